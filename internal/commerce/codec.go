package commerce

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/address"
)

// Amounts travel as strings with two decimals; responses may use numbers.
func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Str(v.StringFixed(2))
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	case jx.Null:
		return decimal.Zero, d.Null()
	default:
		return decimal.Zero, errors.Errorf("unexpected %s for amount", d.Next())
	}
}

func encodeAddress(e *jx.Encoder, a address.ShippingAddress) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("recipient_name", func(e *jx.Encoder) { e.Str(a.RecipientName) })
		e.Field("phone", func(e *jx.Encoder) { e.Str(a.Phone) })
		e.Field("email", func(e *jx.Encoder) { e.Str(a.Email) })
		e.Field("line1", func(e *jx.Encoder) { e.Str(a.Line1) })
		if a.Line2 != "" {
			e.Field("line2", func(e *jx.Encoder) { e.Str(a.Line2) })
		}
		e.Field("city", func(e *jx.Encoder) { e.Str(a.City) })
		e.Field("province", func(e *jx.Encoder) { e.Str(a.Province) })
		e.Field("postal_code", func(e *jx.Encoder) { e.Str(a.PostalCode) })
		e.Field("country", func(e *jx.Encoder) { e.Str(a.Country) })
	})
}

// decodeID reads an object and returns its "id" field.
func decodeID(d *jx.Decoder) (string, error) {
	var id string
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "id" {
			return d.Skip()
		}
		v, err := optStr(d)
		id = v
		return err
	})
	return id, err
}
