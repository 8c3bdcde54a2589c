package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/checkout"
	"github.com/xenking/kart-checkout/internal/domain/address"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

const maxBodySize = 64 << 10

// readBody returns the request body, or nil when it is empty.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(errBadRequest, err.Error())
	}
	return data, nil
}

// decodeObject runs fn for every field of the JSON object in the body.
// An empty body is accepted when optional is set.
func decodeObject(w http.ResponseWriter, r *http.Request, optional bool, fn func(d *jx.Decoder, key string) error) error {
	data, err := readBody(w, r)
	if err != nil {
		return err
	}
	if len(data) == 0 && optional {
		return nil
	}
	if err := jx.DecodeBytes(data).Obj(fn); err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	return nil
}

// optStr reads a string that may be null.
func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

type addressRequest struct {
	Shipping address.ShippingAddress
	Billing  address.ShippingAddress
}

func decodeAddressRequest(d *jx.Decoder, key string, req *addressRequest) error {
	switch key {
	case "shipping":
		return decodeAddress(d, &req.Shipping)
	case "billing":
		return decodeAddress(d, &req.Billing)
	default:
		return d.Skip()
	}
}

func decodeAddress(d *jx.Decoder, a *address.ShippingAddress) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "recipient_name":
			a.RecipientName, err = optStr(d)
		case "phone":
			a.Phone, err = optStr(d)
		case "email":
			a.Email, err = optStr(d)
		case "line1":
			a.Line1, err = optStr(d)
		case "line2":
			a.Line2, err = optStr(d)
		case "city":
			a.City, err = optStr(d)
		case "province":
			a.Province, err = optStr(d)
		case "postal_code":
			a.PostalCode, err = optStr(d)
		case "country":
			a.Country, err = optStr(d)
		default:
			err = d.Skip()
		}
		return err
	})
}

func decodeSubmitInput(d *jx.Decoder, key string, in *checkout.Input) error {
	var err error
	switch key {
	case "token":
		in.Token, err = optStr(d)
	case "bank_code":
		in.BankCode, err = optStr(d)
	case "phone":
		in.Phone, err = optStr(d)
	case "card":
		if d.Next() == jx.Null {
			return d.Null()
		}
		card := &payment.CardFields{}
		err = d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "name":
				card.Name, err = optStr(d)
			case "number":
				card.Number, err = optStr(d)
			case "expiration_month":
				card.ExpirationMonth, err = d.Int()
			case "expiration_year":
				card.ExpirationYear, err = d.Int()
			case "security_code":
				card.SecurityCode, err = optStr(d)
			default:
				err = d.Skip()
			}
			return err
		})
		in.Card = card
	default:
		err = d.Skip()
	}
	return err
}

func encodeOutcome(e *jx.Encoder, o payment.Outcome) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("kind", func(e *jx.Encoder) { e.Str(string(o.Kind)) })
		optField(e, "target", o.Target)
		optField(e, "message", o.Message)
		optField(e, "uri", o.URI)
		optField(e, "scannable_code", o.ScannableCode)
	})
}

// sessionView is what the API reports about a session.
type sessionView struct {
	Session   checkout.Session
	Countdown *checkout.Countdown
	Closed    bool
	Busy      bool
}

func viewOf(o *checkout.Orchestrator) sessionView {
	v := sessionView{
		Session: o.Session(),
		Closed:  o.Closed(),
		Busy:    o.Busy(),
	}
	if c, ok := o.Countdown(); ok {
		v.Countdown = &c
	}
	return v
}

func encodeSession(e *jx.Encoder, v sessionView) {
	s := v.Session
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(s.ID) })
		e.Field("step", func(e *jx.Encoder) { e.Str(string(s.Step)) })
		e.Field("rail", func(e *jx.Encoder) { nullableStr(e, s.Rail.String()) })
		e.Field("attempt", func(e *jx.Encoder) { e.Int(s.Attempt) })
		e.Field("order_id", func(e *jx.Encoder) { nullableStr(e, s.OrderID) })
		e.Field("charge_id", func(e *jx.Encoder) { nullableStr(e, s.ChargeID) })
		if !s.Total.IsZero() {
			e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, s.Total) })
		}
		optField(e, "scannable_code", s.ScannableCode)
		optField(e, "notes", s.Notes)
		e.Field("shipping", func(e *jx.Encoder) { encodeAddress(e, s.Shipping) })
		if !s.Billing.IsZero() {
			e.Field("billing", func(e *jx.Encoder) { encodeAddress(e, s.Billing) })
		}
		e.Field("cart", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("items", func(e *jx.Encoder) { e.Int(len(s.Cart.Items)) })
				e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, s.Cart.Subtotal()) })
				e.Field("shipping_fee", func(e *jx.Encoder) { encodeDecimal(e, s.Cart.ShippingFee) })
				e.Field("currency", func(e *jx.Encoder) { e.Str(s.Cart.Currency) })
			})
		})
		e.Field("rail_failed", func(e *jx.Encoder) { e.Bool(s.RailFailed) })
		e.Field("paid", func(e *jx.Encoder) { e.Bool(s.Paid) })
		e.Field("closed", func(e *jx.Encoder) { e.Bool(v.Closed) })
		e.Field("busy", func(e *jx.Encoder) { e.Bool(v.Busy) })
		e.Field("countdown", func(e *jx.Encoder) {
			if v.Countdown == nil {
				e.Null()
				return
			}
			c := *v.Countdown
			e.Obj(func(e *jx.Encoder) {
				e.Field("remaining", func(e *jx.Encoder) { e.Int(c.Remaining) })
				e.Field("expired", func(e *jx.Encoder) { e.Bool(c.Expired) })
				e.Field("active", func(e *jx.Encoder) { e.Bool(c.Active()) })
			})
		})
	})
}

func encodeAddress(e *jx.Encoder, a address.ShippingAddress) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("recipient_name", func(e *jx.Encoder) { e.Str(a.RecipientName) })
		e.Field("phone", func(e *jx.Encoder) { e.Str(a.Phone) })
		e.Field("email", func(e *jx.Encoder) { e.Str(a.Email) })
		e.Field("line1", func(e *jx.Encoder) { e.Str(a.Line1) })
		optField(e, "line2", a.Line2)
		e.Field("city", func(e *jx.Encoder) { e.Str(a.City) })
		e.Field("province", func(e *jx.Encoder) { e.Str(a.Province) })
		e.Field("postal_code", func(e *jx.Encoder) { e.Str(a.PostalCode) })
		e.Field("country", func(e *jx.Encoder) { e.Str(a.Country) })
	})
}

func encodeFieldErrors(e *jx.Encoder, fields []address.FieldError) {
	e.Arr(func(e *jx.Encoder) {
		for _, f := range fields {
			e.Obj(func(e *jx.Encoder) {
				e.Field("field", func(e *jx.Encoder) { e.Str(f.Field) })
				e.Field("reason", func(e *jx.Encoder) { e.Str(f.Reason) })
			})
		}
	})
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Str(v.StringFixed(2))
}

func optField(e *jx.Encoder, name, v string) {
	if v != "" {
		e.Field(name, func(e *jx.Encoder) { e.Str(v) })
	}
}

func nullableStr(e *jx.Encoder, v string) {
	if v == "" {
		e.Null()
		return
	}
	e.Str(v)
}
