// Package address holds the shipping destination collected during checkout
// and its format rules.
package address

import (
	"net/mail"
	"regexp"
	"strings"
)

var (
	phonePattern  = regexp.MustCompile(`^0\d{8,9}$`)
	mobilePattern = regexp.MustCompile(`^0[689]\d{8}$`)
	postalPattern = regexp.MustCompile(`^\d{5}$`)
)

// ShippingAddress is a destination for an order.
type ShippingAddress struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2,omitempty"`
	City          string `json:"city"`
	Province      string `json:"province"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
}

// IsZero reports whether no field has been filled in.
func (a ShippingAddress) IsZero() bool {
	return a == ShippingAddress{}
}

// Normalize trims whitespace and strips phone separators.
func (a ShippingAddress) Normalize() ShippingAddress {
	a.RecipientName = strings.TrimSpace(a.RecipientName)
	a.Phone = NormalizePhone(a.Phone)
	a.Email = strings.TrimSpace(a.Email)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = strings.TrimSpace(a.Line2)
	a.City = strings.TrimSpace(a.City)
	a.Province = strings.TrimSpace(a.Province)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.TrimSpace(a.Country)
	return a
}

// Validate returns a *ValidationError listing every missing or malformed
// field, or nil when the address may be used to create an order.
func (a ShippingAddress) Validate() error {
	a = a.Normalize()
	var v ValidationError

	required := []struct {
		field, value string
	}{
		{"recipient_name", a.RecipientName},
		{"phone", a.Phone},
		{"email", a.Email},
		{"line1", a.Line1},
		{"city", a.City},
		{"province", a.Province},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}
	for _, r := range required {
		if r.value == "" {
			v.add(r.field, "required")
		}
	}

	if a.Phone != "" && !phonePattern.MatchString(a.Phone) {
		v.add("phone", "invalid format")
	}
	if a.PostalCode != "" && !postalPattern.MatchString(a.PostalCode) {
		v.add("postal_code", "must be 5 digits")
	}
	if a.Email != "" && !validEmail(a.Email) {
		v.add("email", "invalid format")
	}

	if len(v.Fields) > 0 {
		return &v
	}
	return nil
}

// ValidateMobile checks a wallet phone number: 10 digits starting with 06,
// 08 or 09.
func ValidateMobile(phone string) error {
	phone = NormalizePhone(phone)
	if phone == "" {
		return NewFieldError("phone", "required")
	}
	if !mobilePattern.MatchString(phone) {
		return NewFieldError("phone", "must be a 10-digit mobile number")
	}
	return nil
}

// NormalizePhone removes spaces, dashes and a leading +66 country prefix.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)
	if rest, ok := strings.CutPrefix(phone, "+66"); ok {
		phone = "0" + rest
	}
	return phone
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && addr.Name == ""
}
