package handler

import (
	"net/http"
	"strings"

	"github.com/xenking/kart-checkout/internal/checkout"
	"github.com/xenking/kart-checkout/internal/commerce"
	"github.com/xenking/kart-checkout/pkg/httpmiddleware"
)

// BuyerAuth requires an "Authorization: Bearer" header and forwards the
// token to every commerce call made while serving the request. The token is
// validated by the commerce API, not here. Its hash owns the sessions the
// request opens.
func BuyerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="checkout"`)
			writeMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := commerce.WithBearer(r.Context(), token)
		ctx = checkout.WithOwner(ctx, httpmiddleware.TokenHash(token))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
