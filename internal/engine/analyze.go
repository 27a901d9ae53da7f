package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"reelforge/internal/domain"
)

var errMalformedScript = errors.New("script output malformed")

// normalizeInput turns the submission payload into a canonical source text.
// Faults here are attributable to the caller's input.
func (e *Engine) normalizeInput(ctx context.Context, in Input) (string, error) {
	var text string
	switch in.InputType {
	case domain.JobInputPDF:
		extracted, err := e.extractDocumentText(in.Config.SourcePath)
		if err != nil {
			return "", err
		}
		text = extracted
	case domain.JobInputText:
		text = in.Config.Text
	case domain.JobInputPrompt:
		text = in.Config.Prompt
	default:
		return "", domain.UserContentError("unsupported input type %q", in.InputType)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.UserContentError("input text is empty")
	}
	return text, nil
}

// extractDocumentText reads an uploaded document from the store. The file
// type decides the extraction path; anything but .pdf/.txt is a user fault.
func (e *Engine) extractDocumentText(sourceKey string) (string, error) {
	if strings.TrimSpace(sourceKey) == "" {
		return "", domain.UserContentError("document source path is missing")
	}
	path, err := e.store.AbsPath(sourceKey)
	if err != nil {
		return "", domain.UserContentError("invalid document source path")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDFText(path)
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", domain.SystemFailureWrap(err, "read document")
		}
		return string(data), nil
	default:
		return "", domain.UserContentError("unsupported file type %q", filepath.Ext(path))
	}
}

func extractPDFText(path string) (string, error) {
	f, r, err := pdflib.Open(path)
	if err != nil {
		return "", domain.SystemFailureWrap(err, "open pdf")
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", domain.SystemFailureWrap(err, "extract pdf text")
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", domain.SystemFailureWrap(err, "extract pdf text")
	}
	return buf.String(), nil
}

// analyzeContent runs the content-analysis call and returns a canonical JSON
// summary of the source material. The response is parsed leniently: output
// that is not valid JSON is carried forward as raw text.
func (e *Engine) analyzeContent(ctx context.Context, sourceText string) (string, error) {
	raw, err := e.script.Complete(ctx, analysisInstruction(sourceText))
	if err != nil {
		return "", domain.SystemFailureWrap(err, "content analysis failed")
	}
	parsed, parseErr := parsePayload[map[string]any](raw)
	if parseErr != nil {
		parsed = map[string]any{"raw_output": raw}
	}
	canonical, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return "", domain.SystemFailureWrap(err, "encode analysis")
	}
	return string(canonical), nil
}

// generateScripts runs the script-generation call, retrying malformed output
// within the stage budget. The parsed reel list must be non-empty.
func (e *Engine) generateScripts(ctx context.Context, analysis string) ([]domain.ReelScript, error) {
	var scripts []domain.ReelScript
	err := e.scriptRetry.Do(ctx, func(ctx context.Context) error {
		raw, err := e.script.Complete(ctx, scriptInstruction(analysis))
		if err != nil {
			// Provider faults are not part of the malformed-output
			// budget; they fail the stage immediately.
			return err
		}
		parsed, parseErr := parsePayload[[]domain.ReelScript](raw)
		if parseErr != nil || len(parsed) == 0 {
			e.logger.Warn().AnErr("parse_error", parseErr).Msg("engine: reel script output malformed")
			return errMalformedScript
		}
		scripts = parsed
		return nil
	})
	if err != nil {
		return nil, domain.SystemFailureWrap(err, "reel script generation failed")
	}
	return scripts, nil
}

func isMalformedScript(err error) bool {
	return errors.Is(err, errMalformedScript)
}

func analysisInstruction(sourceText string) string {
	sb := &strings.Builder{}
	sb.WriteString("You are an expert teacher.\n\n")
	sb.WriteString("Analyze the following book chapter and return JSON with:\n")
	sb.WriteString("- core_ideas\n- key_lessons\n- important_examples\n- actionable_insights\n\n")
	sb.WriteString("Rewrite everything in simple, beginner-friendly language.\n\n")
	fmt.Fprintf(sb, "CHAPTER TEXT:\n%s\n", sourceText)
	return sb.String()
}

func scriptInstruction(analysis string) string {
	sb := &strings.Builder{}
	sb.WriteString("You are an expert educational content creator.\n\n")
	sb.WriteString("TASK:\nCreate the OPTIMAL number of educational short-video reels from the content below.\n\n")
	sb.WriteString("GUIDELINES:\n")
	sb.WriteString("- Decide number of reels based on content depth\n")
	sb.WriteString("- Prefer fewer, deeper reels\n")
	sb.WriteString("- Each reel should explain ONE complete idea\n")
	sb.WriteString("- Spoken narration should be calm, clear, and teacher-like\n")
	sb.WriteString("- Ideal length per reel: 60-120 seconds\n\n")
	sb.WriteString("FOR EACH REEL, RETURN:\n- reel_title\n- spoken_narration\n- on_screen_captions\n\n")
	sb.WriteString("OUTPUT FORMAT:\nSTRICT JSON ARRAY ONLY\n\n")
	fmt.Fprintf(sb, "SOURCE MATERIAL:\n%s\n", analysis)
	return sb.String()
}
