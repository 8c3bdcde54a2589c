package checkout

import (
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/address"
	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

// sessionRecord is the persisted form of a suspended session.
type sessionRecord struct {
	ID            string                  `json:"id"`
	Owner         string                  `json:"owner,omitempty"`
	Step          Step                    `json:"step"`
	Rail          payment.Rail            `json:"rail"`
	Attempt       int                     `json:"attempt"`
	OrderID       string                  `json:"order_id"`
	ChargeID      string                  `json:"charge_id"`
	Total         decimal.Decimal         `json:"total"`
	Phone         string                  `json:"phone,omitempty"`
	Notes         string                  `json:"notes,omitempty"`
	Shipping      address.ShippingAddress `json:"shipping"`
	Billing       address.ShippingAddress `json:"billing"`
	Items         []itemRecord            `json:"items"`
	ShippingFee   decimal.Decimal         `json:"shipping_fee"`
	Currency      string                  `json:"currency"`
	CartCaptured  time.Time               `json:"cart_captured_at"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
	ScannableCode string                  `json:"scannable_code,omitempty"`
}

type itemRecord struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	ShopID    string          `json:"shop_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// MarshalSession encodes s for a SuspendStore.
func MarshalSession(s Session) ([]byte, error) {
	rec := sessionRecord{
		ID:            s.ID,
		Owner:         s.Owner,
		Step:          s.Step,
		Rail:          s.Rail,
		Attempt:       s.Attempt,
		OrderID:       s.OrderID,
		ChargeID:      s.ChargeID,
		Total:         s.Total,
		Phone:         s.Phone,
		Notes:         s.Notes,
		Shipping:      s.Shipping,
		Billing:       s.Billing,
		ShippingFee:   s.Cart.ShippingFee,
		Currency:      s.Cart.Currency,
		CartCaptured:  s.Cart.CapturedAt,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		ScannableCode: s.ScannableCode,
	}
	rec.Items = make([]itemRecord, 0, len(s.Cart.Items))
	for _, it := range s.Cart.Items {
		rec.Items = append(rec.Items, itemRecord{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			ShopID:    it.ShopID,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "marshal session")
	}
	return data, nil
}

// UnmarshalSession decodes a session written by MarshalSession.
func UnmarshalSession(data []byte) (*Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "unmarshal session")
	}
	items := make([]cart.Item, 0, len(rec.Items))
	for _, it := range rec.Items {
		items = append(items, cart.Item{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			ShopID:    it.ShopID,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	return &Session{
		ID:            rec.ID,
		Owner:         rec.Owner,
		Step:          rec.Step,
		Rail:          rec.Rail,
		Attempt:       rec.Attempt,
		OrderID:       rec.OrderID,
		ChargeID:      rec.ChargeID,
		Total:         rec.Total,
		ScannableCode: rec.ScannableCode,
		Phone:         rec.Phone,
		Notes:         rec.Notes,
		Shipping:      rec.Shipping,
		Billing:       rec.Billing,
		Cart: cart.Snapshot{
			Items:       items,
			ShippingFee: rec.ShippingFee,
			Currency:    rec.Currency,
			CapturedAt:  rec.CartCaptured,
		},
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}
