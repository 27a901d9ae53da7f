package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"reelforge/internal/domain"
	"reelforge/internal/media"
	"reelforge/internal/providers"
	"reelforge/internal/storage"
)

type scriptStub struct {
	calls int
	fn    func(call int, instruction string) (string, error)
}

func (s *scriptStub) Complete(_ context.Context, instruction string) (string, error) {
	s.calls++
	return s.fn(s.calls, instruction)
}

type speechStub struct {
	calls int
	err   error
}

func (s *speechStub) Synthesize(context.Context, string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("mp3-bytes"), nil
}

type imageStub struct {
	calls int
	err   error
}

func (s *imageStub) Render(context.Context, string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("png-bytes"), nil
}

type proberStub struct{ duration time.Duration }

func (p *proberStub) Duration(context.Context, string) (time.Duration, error) {
	return p.duration, nil
}

type assemblerStub struct{ specs []media.AssembleSpec }

func (a *assemblerStub) Assemble(_ context.Context, spec media.AssembleSpec) error {
	a.specs = append(a.specs, spec)
	return nil
}

type testDeps struct {
	script    *scriptStub
	speech    *speechStub
	images    *imageStub
	assembler *assemblerStub
	store     *storage.FileStore
	delays    []time.Duration
}

func newTestEngine(t *testing.T, script *scriptStub) (*Engine, *testDeps) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	deps := &testDeps{
		script:    script,
		speech:    &speechStub{},
		images:    &imageStub{},
		assembler: &assemblerStub{},
		store:     store,
	}
	eng := New(Options{
		Script:    deps.script,
		Speech:    deps.speech,
		Images:    deps.images,
		Prober:    &proberStub{duration: 10 * time.Second},
		Assembler: deps.assembler,
		Store:     store,
		Logger:    zerolog.Nop(),
		Sleep: func(_ context.Context, d time.Duration) error {
			deps.delays = append(deps.delays, d)
			return nil
		},
	})
	return eng, deps
}

func textInput(text string) Input {
	return Input{
		JobID:     "job-1",
		UserID:    "u1",
		InputType: domain.JobInputText,
		Config:    domain.JobConfig{InputType: "text", Text: text},
		OutputDir: "outputs/job-1",
	}
}

const analysisJSON = `{"core_ideas":["compounding"],"key_lessons":["start early"]}`

// twoReelScripts has one reel without narration and one complete reel.
const twoReelScripts = `[
  {"reel_title":"Empty","spoken_narration":"","on_screen_captions":[]},
  {"reel_title":"Compounding","spoken_narration":"Money grows on money.","on_screen_captions":["Compound interest"]}
]`

const oneReelScript = `[
  {"reel_title":"Compounding","spoken_narration":"Money grows on money.","on_screen_captions":["Compound interest"]}
]`

const emptyNarrationScript = `[
  {"reel_title":"Empty","spoken_narration":"","on_screen_captions":[]}
]`

const visualPlanJSON = `{"images":[
  {"image_id":1,"description":"coins","prompt":"stack of coins, illustration"},
  {"image_id":2,"description":"tree","prompt":"money tree, illustration"}
]}`

func TestRunEmptyTextIsUserFault(t *testing.T) {
	script := &scriptStub{fn: func(int, string) (string, error) { return "", nil }}
	eng, deps := newTestEngine(t, script)

	_, err := eng.Run(context.Background(), textInput("   "))
	if domain.ClassifyFailure(err) != domain.ErrorKindUser {
		t.Fatalf("err = %v, want user fault", err)
	}
	if deps.script.calls != 0 {
		t.Fatalf("provider called %d times for empty input", deps.script.calls)
	}
}

func TestRunUnsupportedInputTypeIsUserFault(t *testing.T) {
	script := &scriptStub{fn: func(int, string) (string, error) { return "", nil }}
	eng, _ := newTestEngine(t, script)

	in := textInput("irrelevant")
	in.InputType = domain.JobInputType("docx")
	_, err := eng.Run(context.Background(), in)
	if domain.ClassifyFailure(err) != domain.ErrorKindUser {
		t.Fatalf("err = %v, want user fault", err)
	}
	if !strings.Contains(err.Error(), "unsupported input type") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestRunDocumentWithUnsupportedExtensionIsUserFault(t *testing.T) {
	script := &scriptStub{fn: func(int, string) (string, error) { return "", nil }}
	eng, _ := newTestEngine(t, script)

	in := Input{
		JobID:     "job-1",
		InputType: domain.JobInputPDF,
		Config:    domain.JobConfig{InputType: "pdf", SourcePath: "uploads/book.docx"},
		OutputDir: "outputs/job-1",
	}
	_, err := eng.Run(context.Background(), in)
	if domain.ClassifyFailure(err) != domain.ErrorKindUser {
		t.Fatalf("err = %v, want user fault", err)
	}
}

func TestRunDocumentTxtExtraction(t *testing.T) {
	script := &scriptStub{fn: func(call int, _ string) (string, error) {
		switch call {
		case 1:
			return analysisJSON, nil
		default:
			return emptyNarrationScript, nil
		}
	}}
	eng, deps := newTestEngine(t, script)

	if _, err := deps.store.Write(context.Background(), "uploads/chapter.txt", []byte("Chapter one text.")); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	in := Input{
		JobID:     "job-1",
		InputType: domain.JobInputPDF,
		Config:    domain.JobConfig{InputType: "pdf", SourcePath: "uploads/chapter.txt"},
		OutputDir: "outputs/job-1",
	}
	result, err := eng.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Reels) != 1 || !result.Reels[0].Skipped {
		t.Fatalf("unexpected result: %+v", result.Reels)
	}
}

func TestRunAssemblesReelsAndSkipsEmptyNarration(t *testing.T) {
	script := &scriptStub{fn: func(call int, _ string) (string, error) {
		switch call {
		case 1:
			return analysisJSON, nil
		case 2:
			return twoReelScripts, nil
		default:
			return visualPlanJSON, nil
		}
	}}
	eng, deps := newTestEngine(t, script)

	result, err := eng.Run(context.Background(), textInput("Chapter about compounding."))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Reels) != 2 {
		t.Fatalf("reels = %d, want 2", len(result.Reels))
	}

	first := result.Reels[0]
	if !first.Skipped || first.AudioKey != "" || first.VideoKey != "" {
		t.Fatalf("empty-narration reel not skipped: %+v", first)
	}

	second := result.Reels[1]
	if second.AudioKey != "outputs/job-1/reels/02/narration.mp3" {
		t.Fatalf("audio key = %q", second.AudioKey)
	}
	if len(second.ImageKeys) != 2 {
		t.Fatalf("image keys = %v", second.ImageKeys)
	}
	if second.VideoKey != "outputs/job-1/reels/02/reel.mp4" {
		t.Fatalf("video key = %q", second.VideoKey)
	}
	if videos := result.Videos(); len(videos) != 1 || videos[0] != second.VideoKey {
		t.Fatalf("videos = %v", videos)
	}

	// Artifacts really land in the store.
	if _, err := deps.store.Read(context.Background(), second.ImageKeys[0]); err != nil {
		t.Fatalf("image not persisted: %v", err)
	}

	if len(deps.assembler.specs) != 1 {
		t.Fatalf("assembler called %d times, want 1", len(deps.assembler.specs))
	}
	spec := deps.assembler.specs[0]
	if spec.PerImage != 5*time.Second {
		t.Fatalf("per-image slice = %v, want 5s", spec.PerImage)
	}
	if len(spec.ImagePaths) != 2 {
		t.Fatalf("image paths = %v", spec.ImagePaths)
	}
}

func TestRunScriptRetryRecoversFromMalformedOutput(t *testing.T) {
	script := &scriptStub{fn: func(call int, _ string) (string, error) {
		switch call {
		case 1:
			return analysisJSON, nil
		case 2:
			return "sorry, here is prose instead of JSON", nil
		default:
			return emptyNarrationScript, nil
		}
	}}
	eng, deps := newTestEngine(t, script)

	_, err := eng.Run(context.Background(), textInput("Chapter text."))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// One analysis call plus two script attempts.
	if deps.script.calls != 3 {
		t.Fatalf("script calls = %d, want 3", deps.script.calls)
	}
}

func TestRunScriptRetryExhaustionIsSystemFault(t *testing.T) {
	script := &scriptStub{fn: func(call int, _ string) (string, error) {
		if call == 1 {
			return analysisJSON, nil
		}
		return "still not JSON", nil
	}}
	eng, deps := newTestEngine(t, script)

	_, err := eng.Run(context.Background(), textInput("Chapter text."))
	if domain.ClassifyFailure(err) != domain.ErrorKindSystem {
		t.Fatalf("err = %v, want system fault", err)
	}
	if !strings.Contains(err.Error(), "reel script generation failed") {
		t.Fatalf("unexpected message: %v", err)
	}
	if deps.script.calls != 3 {
		t.Fatalf("script calls = %d, want 3", deps.script.calls)
	}
}

func TestRunScriptProviderErrorNotRetried(t *testing.T) {
	script := &scriptStub{fn: func(call int, _ string) (string, error) {
		if call == 1 {
			return analysisJSON, nil
		}
		return "", &providers.StatusError{Provider: "openai", StatusCode: 500}
	}}
	eng, deps := newTestEngine(t, script)

	_, err := eng.Run(context.Background(), textInput("Chapter text."))
	if domain.ClassifyFailure(err) != domain.ErrorKindSystem {
		t.Fatalf("err = %v, want system fault", err)
	}
	if deps.script.calls != 2 {
		t.Fatalf("script calls = %d, want 2", deps.script.calls)
	}
}

func TestRunImageRetryExhaustionIsSystemFault(t *testing.T) {
	script := &scriptStub{fn: func(call int, _ string) (string, error) {
		switch call {
		case 1:
			return analysisJSON, nil
		case 2:
			return oneReelScript, nil
		default:
			return visualPlanJSON, nil
		}
	}}
	eng, deps := newTestEngine(t, script)
	deps.images.err = &providers.StatusError{Provider: "hf-inference", StatusCode: 503}

	_, err := eng.Run(context.Background(), textInput("Chapter text."))
	if domain.ClassifyFailure(err) != domain.ErrorKindSystem {
		t.Fatalf("err = %v, want system fault", err)
	}
	if deps.images.calls != 3 {
		t.Fatalf("image calls = %d, want 3", deps.images.calls)
	}
	wantDelays := []time.Duration{5 * time.Second, 10 * time.Second}
	if len(deps.delays) != len(wantDelays) {
		t.Fatalf("delays = %v, want %v", deps.delays, wantDelays)
	}
	for i := range wantDelays {
		if deps.delays[i] != wantDelays[i] {
			t.Fatalf("delays[%d] = %v, want %v", i, deps.delays[i], wantDelays[i])
		}
	}
}

func TestRunImageTerminalStatusFailsImmediately(t *testing.T) {
	script := &scriptStub{fn: func(call int, _ string) (string, error) {
		switch call {
		case 1:
			return analysisJSON, nil
		case 2:
			return oneReelScript, nil
		default:
			return visualPlanJSON, nil
		}
	}}
	eng, deps := newTestEngine(t, script)
	deps.images.err = &providers.StatusError{Provider: "hf-inference", StatusCode: 401}

	_, err := eng.Run(context.Background(), textInput("Chapter text."))
	if domain.ClassifyFailure(err) != domain.ErrorKindSystem {
		t.Fatalf("err = %v, want system fault", err)
	}
	if deps.images.calls != 1 {
		t.Fatalf("image calls = %d, want 1", deps.images.calls)
	}
}

func TestRunNarrationFailureIsSystemFault(t *testing.T) {
	script := &scriptStub{fn: func(call int, _ string) (string, error) {
		switch call {
		case 1:
			return analysisJSON, nil
		default:
			return oneReelScript, nil
		}
	}}
	eng, deps := newTestEngine(t, script)
	deps.speech.err = &providers.StatusError{Provider: "openai-tts", StatusCode: 500}

	_, err := eng.Run(context.Background(), textInput("Chapter text."))
	if domain.ClassifyFailure(err) != domain.ErrorKindSystem {
		t.Fatalf("err = %v, want system fault", err)
	}
	if !strings.Contains(err.Error(), "narration synthesis failed") {
		t.Fatalf("unexpected message: %v", err)
	}
	if deps.speech.calls != 1 {
		t.Fatalf("speech calls = %d, want 1", deps.speech.calls)
	}
}

func TestRunVisualPlanWithoutImagesIsSystemFault(t *testing.T) {
	script := &scriptStub{fn: func(call int, _ string) (string, error) {
		switch call {
		case 1:
			return analysisJSON, nil
		case 2:
			return oneReelScript, nil
		default:
			return `{"images":[]}`, nil
		}
	}}
	eng, _ := newTestEngine(t, script)

	_, err := eng.Run(context.Background(), textInput("Chapter text."))
	if domain.ClassifyFailure(err) != domain.ErrorKindSystem {
		t.Fatalf("err = %v, want system fault", err)
	}
	if !strings.Contains(err.Error(), "visual plan contains no images") {
		t.Fatalf("unexpected message: %v", err)
	}
}
