package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-checkout/internal/checkout"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

// CreateSession snapshots the buyer's cart and opens a session.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	o, err := h.sessions.Open(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSession(w, http.StatusCreated, o)
}

// GetSession reports the session state and its countdown.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	o, ok := h.session(w, r)
	if !ok {
		return
	}
	writeSession(w, http.StatusOK, o)
}

// SetAddress replaces the shipping and billing addresses.
func (h *Handler) SetAddress(w http.ResponseWriter, r *http.Request) {
	o, ok := h.session(w, r)
	if !ok {
		return
	}
	var req addressRequest
	if err := decodeObject(w, r, false, func(d *jx.Decoder, key string) error {
		return decodeAddressRequest(d, key, &req)
	}); err != nil {
		writeError(w, r, err)
		return
	}
	h.apply(w, r, o, o.SetAddress(req.Shipping, req.Billing))
}

// SetNotes sets the order notes.
func (h *Handler) SetNotes(w http.ResponseWriter, r *http.Request) {
	o, ok := h.session(w, r)
	if !ok {
		return
	}
	var notes string
	if err := decodeObject(w, r, false, func(d *jx.Decoder, key string) error {
		if key != "notes" {
			return d.Skip()
		}
		var err error
		notes, err = optStr(d)
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	h.apply(w, r, o, o.SetNotes(notes))
}

// SelectRail activates a payment rail.
func (h *Handler) SelectRail(w http.ResponseWriter, r *http.Request) {
	o, ok := h.session(w, r)
	if !ok {
		return
	}
	var raw string
	if err := decodeObject(w, r, false, func(d *jx.Decoder, key string) error {
		if key != "rail" {
			return d.Skip()
		}
		var err error
		raw, err = optStr(d)
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	rail, err := payment.ParseRail(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.apply(w, r, o, o.SelectRail(r.Context(), rail))
}

// Advance moves the wizard forward.
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	o, ok := h.session(w, r)
	if !ok {
		return
	}
	h.apply(w, r, o, o.Advance())
}

// Retreat moves the wizard back.
func (h *Handler) Retreat(w http.ResponseWriter, r *http.Request) {
	o, ok := h.session(w, r)
	if !ok {
		return
	}
	h.apply(w, r, o, o.Retreat())
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, o *checkout.Orchestrator, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSession(w, http.StatusOK, o)
}

func writeSession(w http.ResponseWriter, status int, o *checkout.Orchestrator) {
	v := viewOf(o)
	writeJSON(w, status, func(e *jx.Encoder) { encodeSession(e, v) })
}
