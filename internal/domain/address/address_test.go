package address

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAddress() ShippingAddress {
	return ShippingAddress{
		RecipientName: "Somchai Jaidee",
		Phone:         "0812345678",
		Email:         "somchai@example.com",
		Line1:         "99 Rama IV Rd",
		City:          "Bangkok",
		Province:      "Bangkok",
		PostalCode:    "10110",
		Country:       "TH",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(a *ShippingAddress)
		wantFields []string
	}{
		{
			name:   "valid address",
			mutate: func(*ShippingAddress) {},
		},
		{
			name:   "phone with separators is normalized",
			mutate: func(a *ShippingAddress) { a.Phone = "081-234-5678" },
		},
		{
			name:   "landline is accepted",
			mutate: func(a *ShippingAddress) { a.Phone = "021234567" },
		},
		{
			name:       "short phone",
			mutate:     func(a *ShippingAddress) { a.Phone = "123" },
			wantFields: []string{"phone"},
		},
		{
			name:       "postal code with letters",
			mutate:     func(a *ShippingAddress) { a.PostalCode = "1011A" },
			wantFields: []string{"postal_code"},
		},
		{
			name:       "bad email",
			mutate:     func(a *ShippingAddress) { a.Email = "not-an-email" },
			wantFields: []string{"email"},
		},
		{
			name:       "email with display name",
			mutate:     func(a *ShippingAddress) { a.Email = "Somchai <somchai@example.com>" },
			wantFields: []string{"email"},
		},
		{
			name: "missing required fields",
			mutate: func(a *ShippingAddress) {
				a.RecipientName = "  "
				a.City = ""
			},
			wantFields: []string{"recipient_name", "city"},
		},
		{
			name:   "line2 is optional",
			mutate: func(a *ShippingAddress) { a.Line2 = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAddress()
			tt.mutate(&a)

			err := a.Validate()
			if len(tt.wantFields) == 0 {
				require.NoError(t, err)
				return
			}

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Len(t, vErr.Fields, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.True(t, vErr.Has(f), "expected %s to be invalid", f)
			}
		})
	}
}

func TestValidateMobile(t *testing.T) {
	tests := []struct {
		phone string
		ok    bool
	}{
		{"0898765432", true},
		{"0612345678", true},
		{"+66 81 234 5678", true},
		{"0212345678", false},
		{"089876543", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			err := ValidateMobile(tt.phone)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				var vErr *ValidationError
				assert.ErrorAs(t, err, &vErr)
			}
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: []FieldError{
		{Field: "phone", Reason: "invalid format"},
		{Field: "city", Reason: "required"},
	}}

	assert.Equal(t, "validation failed: phone invalid format; city required", err.Error())
}
