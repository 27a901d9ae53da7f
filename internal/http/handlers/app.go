// Package handlers exposes the submission, query, artifact, and ledger
// boundaries over HTTP.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"reelforge/internal/domain"
	"reelforge/internal/middleware"
	"reelforge/internal/storage"
)

// JobStarter starts asynchronous execution of a queued job. A nil starter
// leaves jobs queued for the worker binary to pick up.
type JobStarter interface {
	Start(job *domain.Job)
}

// CreditPack is one purchasable top-up bundle.
type CreditPack struct {
	USD     int `json:"usd"`
	Credits int `json:"credits"`
}

// DefaultCreditPacks mirrors the platform's v1 pricing.
var DefaultCreditPacks = map[string]CreditPack{
	"starter": {USD: 10, Credits: 100},
	"pro":     {USD: 25, Credits: 300},
	"power":   {USD: 50, Credits: 700},
}

// App bundles the dependencies shared by all handlers.
type App struct {
	Jobs         domain.JobRepository
	Ledger       domain.Ledger
	Store        *storage.FileStore
	Starter      JobStarter
	Packs        map[string]CreditPack
	MockPayments bool
	Logger       zerolog.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]any{
		"error":   slug,
		"message": message,
	})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// Health reports liveness.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
