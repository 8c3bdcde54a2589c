package commerce

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-checkout/internal/domain/payment"
)

var _ payment.ChargeService = (*Client)(nil)

// CreateCharge implements payment.ChargeService. Card charges send the token
// as "card"; every other method is sent as a typed source.
func (c *Client) CreateCharge(ctx context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("amount", func(e *jx.Encoder) { e.Int64(req.Amount) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(strings.ToLower(req.Currency)) })
		e.Field("order_id", func(e *jx.Encoder) { e.Str(req.OrderID) })
		if req.ReturnURI != "" {
			e.Field("return_uri", func(e *jx.Encoder) { e.Str(req.ReturnURI) })
		}
		if req.Method == payment.RailCard.Method() {
			e.Field("card", func(e *jx.Encoder) { e.Str(req.Token) })
			return
		}
		e.Field("source", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("type", func(e *jx.Encoder) { e.Str(req.Method) })
				if req.BankCode != "" {
					e.Field("bank_code", func(e *jx.Encoder) { e.Str(req.BankCode) })
				}
				if req.PhoneNumber != "" {
					e.Field("phone_number", func(e *jx.Encoder) { e.Str(req.PhoneNumber) })
				}
			})
		})
	})

	ch := &payment.Charge{}
	err := c.do(ctx, request{
		op:     "create charge",
		method: http.MethodPost,
		url:    c.baseURL + "/charges",
		body:   e.Bytes(),
	}, func(d *jx.Decoder) error { return decodeCharge(d, ch) })
	if err != nil {
		return nil, err
	}
	if ch.ID == "" {
		return nil, &payment.IntegrationError{Missing: "charge id"}
	}
	return ch, nil
}

// GetCharge implements payment.ChargeService.
func (c *Client) GetCharge(ctx context.Context, chargeID string) (*payment.Charge, error) {
	ch := &payment.Charge{}
	err := c.do(ctx, request{
		op:     "get charge",
		method: http.MethodGet,
		url:    c.baseURL + "/charges/" + url.PathEscape(chargeID),
	}, func(d *jx.Decoder) error { return decodeCharge(d, ch) })
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func decodeCharge(d *jx.Decoder, ch *payment.Charge) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := optStr(d)
			ch.ID = v
			return err
		case "status":
			v, err := optStr(d)
			ch.Status = payment.ParseChargeStatus(v)
			return err
		case "paid":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Bool()
			ch.Paid = v
			return err
		case "authorize_uri":
			v, err := optStr(d)
			ch.AuthorizeURI = v
			return err
		case "failure_message":
			v, err := optStr(d)
			ch.FailureMessage = v
			return err
		case "source":
			return decodeSource(d, ch)
		default:
			return d.Skip()
		}
	})
}

// decodeSource extracts source.scannable_code.image.download_uri.
func decodeSource(d *jx.Decoder, ch *payment.Charge) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	return d.Obj(func(d *jx.Decoder, key string) error {
		if key != "scannable_code" || d.Next() == jx.Null {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "image" || d.Next() == jx.Null {
				return d.Skip()
			}
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "download_uri" {
					return d.Skip()
				}
				v, err := optStr(d)
				ch.ScannableCode = v
				return err
			})
		})
	})
}
