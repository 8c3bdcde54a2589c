package commerce

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-checkout/internal/domain/cart"
)

var _ cart.Loader = (*Client)(nil)

// LoadCart implements cart.Loader. The snapshot is taken once when checkout
// starts.
func (c *Client) LoadCart(ctx context.Context) (*cart.Snapshot, error) {
	snapshot := &cart.Snapshot{Currency: "THB"}
	err := c.do(ctx, request{
		op:     "load cart",
		method: http.MethodGet,
		url:    c.baseURL + "/cart",
	}, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "items":
				return d.Arr(func(d *jx.Decoder) error {
					item, err := decodeCartItem(d)
					if err != nil {
						return err
					}
					snapshot.Items = append(snapshot.Items, item)
					return nil
				})
			case "shipping_fee":
				v, err := decodeDecimal(d)
				snapshot.ShippingFee = v
				return err
			case "currency":
				v, err := optStr(d)
				if v != "" {
					snapshot.Currency = v
				}
				return err
			default:
				return d.Skip()
			}
		})
	})
	if err != nil {
		return nil, err
	}
	snapshot.CapturedAt = time.Now()
	return snapshot, nil
}

func decodeCartItem(d *jx.Decoder) (cart.Item, error) {
	var item cart.Item
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			item.ProductID, err = optStr(d)
		case "variant_id":
			item.VariantID, err = optStr(d)
		case "shop_id":
			item.ShopID, err = optStr(d)
		case "unit_price":
			item.UnitPrice, err = decodeDecimal(d)
		case "quantity":
			item.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return item, err
}
