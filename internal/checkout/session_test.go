package checkout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-checkout/internal/domain/address"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

func TestAdvance_ValidAddress(t *testing.T) {
	s := NewSession("sess_1", testSnapshot(), time.Now())
	s = s.WithAddress(validAddress(), address.ShippingAddress{})

	next, err := s.Advance()

	require.NoError(t, err)
	assert.Equal(t, StepPayment, next.Step)
	assert.Equal(t, StepAddress, s.Step, "receiver must not change")
}

func TestAdvance_InvalidPhone(t *testing.T) {
	a := validAddress()
	a.Phone = "123"
	s := NewSession("sess_1", testSnapshot(), time.Now()).WithAddress(a, address.ShippingAddress{})

	next, err := s.Advance()

	var vErr *address.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.True(t, vErr.Has("phone"))
	assert.Equal(t, StepAddress, next.Step)
}

func TestAdvance_PaymentStep(t *testing.T) {
	tests := []struct {
		name    string
		session func() Session
		wantErr error
		want    Step
	}{
		{
			name:    "cod reaches review",
			session: func() Session { return sessionAt(StepPayment, payment.RailCOD) },
			want:    StepReview,
		},
		{
			name:    "card reaches review",
			session: func() Session { return sessionAt(StepPayment, payment.RailCard) },
			want:    StepReview,
		},
		{
			name:    "qr without order reaches review",
			session: func() Session { return sessionAt(StepPayment, payment.RailQR) },
			want:    StepReview,
		},
		{
			name: "qr with unpaid order is blocked",
			session: func() Session {
				s := sessionAt(StepPayment, payment.RailQR)
				s.OrderID = "ord_1"
				return s
			},
			wantErr: ErrPendingCharge,
			want:    StepPayment,
		},
		{
			name: "qr with paid order reaches review",
			session: func() Session {
				s := sessionAt(StepPayment, payment.RailQR)
				s.OrderID = "ord_1"
				s.Paid = true
				return s
			},
			want: StepReview,
		},
		{
			name:    "wallet is blocked",
			session: func() Session { return sessionAt(StepPayment, payment.RailWallet) },
			wantErr: ErrOutOfBandRail,
			want:    StepPayment,
		},
		{
			name:    "bank redirect is blocked",
			session: func() Session { return sessionAt(StepPayment, payment.RailBankRedirect) },
			wantErr: ErrOutOfBandRail,
			want:    StepPayment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := tt.session().Advance()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, next.Step)
		})
	}
}

func TestAdvance_NoRail(t *testing.T) {
	_, err := sessionAt(StepPayment, "").Advance()

	var vErr *address.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.True(t, vErr.Has("payment_method"))
}

func TestAdvance_Review(t *testing.T) {
	_, err := sessionAt(StepReview, payment.RailCOD).Advance()
	require.ErrorIs(t, err, ErrLastStep)
}

func TestRetreat(t *testing.T) {
	s := sessionAt(StepReview, payment.RailCard)
	s.OrderID = "ord_1"

	s = s.Retreat()
	assert.Equal(t, StepPayment, s.Step)
	assert.Equal(t, "ord_1", s.OrderID, "retreat keeps the order")

	s = s.Retreat()
	assert.Equal(t, StepAddress, s.Step)
	assert.Equal(t, StepAddress, s.Retreat().Step)
}

func TestSelectRail_ClearsPayment(t *testing.T) {
	for _, from := range payment.Rails {
		for _, to := range payment.Rails {
			s := sessionAt(StepPayment, from)
			s.OrderID = "ord_1"
			s.ChargeID = "chrg_1"
			s.ScannableCode = "qr.svg"
			s.RailFailed = true

			next := s.SelectRail(to)

			assert.Empty(t, next.OrderID, "%s -> %s", from, to)
			assert.Empty(t, next.ChargeID, "%s -> %s", from, to)
			assert.Empty(t, next.ScannableCode)
			assert.False(t, next.RailFailed)
			assert.Equal(t, to, next.Rail)
			assert.Equal(t, s.Attempt+1, next.Attempt)
			assert.Equal(t, "ord_1", s.OrderID, "receiver must not change")
		}
	}
}

func TestWithAddress(t *testing.T) {
	s := sessionAt(StepPayment, payment.RailQR)
	s.OrderID = "ord_1"

	same := s.WithAddress(validAddress(), address.ShippingAddress{})
	assert.Equal(t, "ord_1", same.OrderID, "unchanged address keeps the order")
	assert.Equal(t, s.Attempt, same.Attempt)

	moved := validAddress()
	moved.PostalCode = "50200"
	changed := s.WithAddress(moved, address.ShippingAddress{})
	assert.Empty(t, changed.OrderID)
	assert.Equal(t, s.Attempt+1, changed.Attempt)
}
