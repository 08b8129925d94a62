package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog"

	"quizbowl-engine/internal/domain"
)

// requireAdmin gates every mutating admin route on an injected bearer token.
// The core services never see the credential; by the time a request reaches
// them it is already authorized.
func requireAdmin(token string, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeError(w, log, domain.ErrUnauthorized)
				return
			}
			got := r.Header.Get("Authorization")
			want := "Bearer " + token
			if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				writeError(w, log, domain.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
