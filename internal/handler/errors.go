package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/checkout"
	"github.com/xenking/kart-checkout/internal/commerce"
	"github.com/xenking/kart-checkout/internal/domain/address"
	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

// errBadRequest marks request bodies that could not be decoded.
var errBadRequest = errors.New("malformed request body")

// blocked lists the errors of operations that are not allowed in the
// current session state.
var blocked = []error{
	checkout.ErrSessionClosed,
	checkout.ErrPendingCharge,
	checkout.ErrOutOfBandRail,
	checkout.ErrLastStep,
	checkout.ErrSubmitInFlight,
	checkout.ErrWrongStep,
	checkout.ErrNoRail,
	checkout.ErrNoPendingCharge,
	checkout.ErrSuperseded,
	errDuplicateSubmit,
}

func statusFor(err error) int {
	if errors.Is(err, checkout.ErrSessionNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, errBadRequest) {
		return http.StatusBadRequest
	}
	var vErr *address.ValidationError
	if errors.As(err, &vErr) || errors.Is(err, payment.ErrUnknownRail) || errors.Is(err, cart.ErrEmptyCart) {
		return http.StatusUnprocessableEntity
	}
	for _, b := range blocked {
		if errors.Is(err, b) {
			return http.StatusConflict
		}
	}

	var apiErr *commerce.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return apiErr.Status
		}
		if apiErr.Status < 500 {
			return http.StatusUnprocessableEntity
		}
	}
	switch payment.Classify(err) {
	case payment.ClassNetwork, payment.ClassIntegration:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// outcomeStatus maps an outcome to its HTTP status. Recoverable payment
// failures are answered with 200 and the error outcome as the body.
func outcomeStatus(out payment.Outcome) int {
	if !out.IsError() {
		return http.StatusOK
	}
	switch st := statusFor(out.Err); st {
	case http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity, http.StatusUnauthorized, http.StatusForbidden:
		return st
	}
	return http.StatusOK
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeMessage(w, status, "internal error")
		return
	}

	var vErr *address.ValidationError
	errors.As(err, &vErr)
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(payment.Message(err)) })
			if vErr != nil {
				e.Field("fields", func(e *jx.Encoder) { encodeFieldErrors(e, vErr.Fields) })
			}
		})
	})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
