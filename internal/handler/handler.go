// Package handler exposes checkout sessions over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/kart-checkout/internal/checkout"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

// Sessions is the live session registry.
type Sessions interface {
	Open(ctx context.Context) (*checkout.Orchestrator, error)
	Get(ctx context.Context, id string) (*checkout.Orchestrator, error)
	Resume(ctx context.Context, orderID string) (checkout.Session, payment.Outcome, error)
}

var _ Sessions = (*checkout.Registry)(nil)

// SubmitGuard deduplicates submits carrying an Idempotency-Key header.
type SubmitGuard interface {
	Claim(ctx context.Context, sessionID, key string) (bool, error)
	Release(ctx context.Context, sessionID, key string) error
}

// Handler serves the checkout API.
type Handler struct {
	sessions Sessions
	guard    SubmitGuard
}

// Option configures a Handler.
type Option func(*Handler)

// WithSubmitGuard enables Idempotency-Key handling on submit.
func WithSubmitGuard(g SubmitGuard) Option {
	return func(h *Handler) { h.guard = g }
}

// NewHandler constructs a Handler backed by sessions.
func NewHandler(sessions Sessions, opts ...Option) *Handler {
	h := &Handler{sessions: sessions}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the checkout API mounted at its root. Every route requires
// a buyer bearer token.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(BuyerAuth)

	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Put("/address", h.SetAddress)
		r.Put("/notes", h.SetNotes)
		r.Put("/rail", h.SelectRail)
		r.Post("/advance", h.Advance)
		r.Post("/retreat", h.Retreat)
		r.Post("/submit", h.Submit)
		r.Post("/check", h.Check)
	})
	r.Get("/returns/{orderID}", h.Return)
	return r
}

// session resolves the {sessionID} route parameter. On failure the error
// response has already been written.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*checkout.Orchestrator, bool) {
	o, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return o, true
}
