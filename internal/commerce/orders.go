package commerce

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-checkout/internal/domain/order"
)

var _ order.Creator = (*Client)(nil)

// CreateOrder implements order.Creator.
func (c *Client) CreateOrder(ctx context.Context, req order.CreateRequest) (string, error) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("shipping_address", func(e *jx.Encoder) { encodeAddress(e, req.Shipping) })
		e.Field("billing_address", func(e *jx.Encoder) { encodeAddress(e, req.Billing) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range req.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("product_id", func(e *jx.Encoder) { e.Str(it.ProductID) })
						if it.VariantID != "" {
							e.Field("variant_id", func(e *jx.Encoder) { e.Str(it.VariantID) })
						}
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
					})
				}
			})
		})
		e.Field("shipping_fee", func(e *jx.Encoder) { encodeDecimal(e, req.ShippingFee) })
		e.Field("tax_amount", func(e *jx.Encoder) { encodeDecimal(e, req.TaxAmount) })
		if req.Notes != "" {
			e.Field("notes", func(e *jx.Encoder) { e.Str(req.Notes) })
		}
	})

	var id string
	err := c.do(ctx, request{
		op:     "create order",
		method: http.MethodPost,
		url:    c.baseURL + "/orders",
		body:   e.Bytes(),
	}, func(d *jx.Decoder) error {
		var err error
		id, err = decodeID(d)
		return err
	})
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", errors.Wrap(order.ErrMissingOrderID, "create order")
	}
	return id, nil
}
