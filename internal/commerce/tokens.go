package commerce

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-checkout/internal/domain/payment"
)

var _ payment.Tokenizer = (*Client)(nil)

// CreateToken implements payment.Tokenizer against the vault. The vault is
// authorized with the public key, never with the buyer token.
func (c *Client) CreateToken(ctx context.Context, card payment.CardFields) (string, error) {
	if c.vaultURL == "" || c.publicKey == "" {
		return "", &payment.IntegrationError{Missing: "vault", Message: "card payments unavailable"}
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("card", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("name", func(e *jx.Encoder) { e.Str(card.Name) })
				e.Field("number", func(e *jx.Encoder) { e.Str(card.Number) })
				e.Field("expiration_month", func(e *jx.Encoder) { e.Int(card.ExpirationMonth) })
				e.Field("expiration_year", func(e *jx.Encoder) { e.Int(card.ExpirationYear) })
				e.Field("security_code", func(e *jx.Encoder) { e.Str(card.SecurityCode) })
			})
		})
	})

	var id string
	err := c.do(ctx, request{
		op:     "create token",
		method: http.MethodPost,
		url:    c.vaultURL + "/tokens",
		body:   e.Bytes(),
		auth: func(r *http.Request) {
			r.SetBasicAuth(c.publicKey, "")
		},
	}, func(d *jx.Decoder) error {
		var err error
		id, err = decodeID(d)
		return err
	})
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", errors.New("create token: vault returned no id")
	}
	return id, nil
}
