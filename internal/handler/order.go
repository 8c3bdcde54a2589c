package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/checkout"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

// IdempotencyHeader names the submit deduplication key.
const IdempotencyHeader = "Idempotency-Key"

var errDuplicateSubmit = errors.New("submission already received")

// Submit executes the active rail. The response body is the outcome
// together with the resulting session.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	o, ok := h.session(w, r)
	if !ok {
		return
	}
	var in checkout.Input
	if err := decodeObject(w, r, true, func(d *jx.Decoder, key string) error {
		return decodeSubmitInput(d, key, &in)
	}); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	key := r.Header.Get(IdempotencyHeader)
	if key != "" && h.guard != nil {
		claimed, err := h.guard.Claim(ctx, o.ID(), key)
		switch {
		case err != nil:
			zctx.From(ctx).Warn("Idempotency guard unavailable", zap.Error(err))
			key = ""
		case !claimed:
			writeError(w, r, errDuplicateSubmit)
			return
		}
	}

	out := o.Submit(ctx, in)
	if out.IsError() && key != "" && h.guard != nil {
		// The buyer may retry a failed submit with the same key.
		if err := h.guard.Release(ctx, o.ID(), key); err != nil {
			zctx.From(ctx).Warn("Failed to release idempotency key", zap.Error(err))
		}
	}
	writeOutcome(w, o, out)
}

// Check fetches the status of the pending charge once.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	o, ok := h.session(w, r)
	if !ok {
		return
	}
	writeOutcome(w, o, o.Check(r.Context()))
}

// Return resumes a session suspended by a redirect once the buyer is back
// from the external surface.
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	s, out, err := h.sessions.Resume(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, outcomeStatus(out), func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("outcome", func(e *jx.Encoder) { encodeOutcome(e, out) })
			e.Field("session", func(e *jx.Encoder) {
				encodeSession(e, sessionView{Session: s, Closed: out.Kind == payment.KindNavigate})
			})
		})
	})
}

func writeOutcome(w http.ResponseWriter, o *checkout.Orchestrator, out payment.Outcome) {
	v := viewOf(o)
	writeJSON(w, outcomeStatus(out), func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("outcome", func(e *jx.Encoder) { encodeOutcome(e, out) })
			e.Field("session", func(e *jx.Encoder) { encodeSession(e, v) })
		})
	})
}
