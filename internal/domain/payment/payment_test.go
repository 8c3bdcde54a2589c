package payment

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-checkout/internal/domain/address"
)

func TestParseRail(t *testing.T) {
	for _, r := range Rails {
		got, err := ParseRail(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	_, err := ParseRail("crypto")
	require.ErrorIs(t, err, ErrUnknownRail)
}

func TestRail_Flags(t *testing.T) {
	assert.True(t, RailQR.Polled())
	assert.True(t, RailWallet.Polled())
	assert.False(t, RailCard.Polled())

	assert.True(t, RailWallet.OutOfBand())
	assert.True(t, RailBankRedirect.OutOfBand())
	assert.False(t, RailQR.OutOfBand())

	assert.True(t, RailCOD.SubmitsFromReview())
	assert.True(t, RailCard.SubmitsFromReview())
	assert.False(t, RailBankRedirect.SubmitsFromReview())
}

func TestParseChargeStatus(t *testing.T) {
	assert.Equal(t, ChargePaid, ParseChargeStatus("successful"))
	assert.Equal(t, ChargeAuthorized, ParseChargeStatus("authorized"))
	assert.Equal(t, ChargeFailed, ParseChargeStatus("expired"))
	assert.Equal(t, ChargePending, ParseChargeStatus("something-new"))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(30697), MinorUnits(decimal.RequireFromString("306.97")))
	assert.Equal(t, int64(100), MinorUnits(decimal.RequireFromString("1")))
	assert.Equal(t, int64(13), MinorUnits(decimal.RequireFromString("0.125")))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{name: "nil", err: nil, want: ClassNone},
		{name: "validation", err: address.NewFieldError("phone", "required"), want: ClassValidation},
		{name: "wrapped network", err: errors.Wrap(&NetworkError{Op: "create order", Err: errors.New("eof")}, "cod"), want: ClassNetwork},
		{name: "declined", err: ErrPaymentDeclined, want: ClassDeclined},
		{name: "timeout", err: ErrTimeout, want: ClassTimeout},
		{name: "integration", err: &IntegrationError{Missing: "authorize_uri"}, want: ClassIntegration},
		{name: "other", err: errors.New("boom"), want: ClassOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestFail(t *testing.T) {
	out := Fail(&NetworkError{Op: "get charge", Err: errors.New("connection reset")})
	assert.Equal(t, KindError, out.Kind)
	assert.Equal(t, "network error, please try again", out.Message)

	out = Fail(&IntegrationError{Missing: "authorize_uri", Message: "bank connection failed"})
	assert.Equal(t, "bank connection failed", out.Message)

	out = Fail(ErrPaymentDeclined)
	assert.Equal(t, "payment not successful", out.Message)
	assert.False(t, out.Settled())
}
