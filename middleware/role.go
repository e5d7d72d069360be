package middleware

import (
	"net/http"

	goGrant "github.com/MrEthical07/goGrant"
)

// RequireRole rejects requests whose authenticated user lacks role. It must
// run inside Guard; without an AuthResult in the context the request is
// treated as unauthenticated.
func RequireRole(engine *goGrant.Engine, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok {
				writeError(w, goGrant.ErrUnauthenticated)
				return
			}
			if err := engine.RequireRole(r.Context(), res.User, role); err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
