package handlers

import (
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ListArtifacts enumerates the artifact paths produced under the job's
// output namespace, relative to that namespace.
func (a *App) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	job, ok := a.ownedJob(w, r, userID)
	if !ok {
		return
	}
	keys, err := a.Store.List(r.Context(), job.OutputDir)
	if err != nil {
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("handlers: list artifacts failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list artifacts")
		return
	}
	if keys == nil {
		keys = []string{}
	}
	a.json(w, http.StatusOK, map[string]any{
		"job_id": job.ID,
		"items":  keys,
	})
}

// DownloadArtifact serves one artifact by its path relative to the job's
// namespace. Any path that would resolve outside the namespace is rejected.
func (a *App) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	job, ok := a.ownedJob(w, r, userID)
	if !ok {
		return
	}

	rel, ok := scopedArtifactPath(chi.URLParam(r, "*"))
	if !ok {
		a.error(w, http.StatusBadRequest, "invalid_path", "artifact path escapes the job namespace")
		return
	}

	data, err := a.Store.Read(r.Context(), path.Join(job.OutputDir, rel))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "artifact not found")
		return
	}

	contentType := mime.TypeByExtension(path.Ext(rel))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// scopedArtifactPath normalizes a caller-supplied relative path and reports
// whether it stays inside the namespace it will be joined to.
func scopedArtifactPath(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	raw = strings.ReplaceAll(raw, "\\", "/")
	for _, segment := range strings.Split(raw, "/") {
		if segment == ".." {
			return "", false
		}
	}
	cleaned := path.Clean("/" + raw)
	if cleaned == "/" {
		return "", false
	}
	return strings.TrimPrefix(cleaned, "/"), true
}
