package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	goGrant "github.com/MrEthical07/goGrant"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the result stored by Guard.
func AuthResultFromContext(ctx context.Context) (*goGrant.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*goGrant.AuthResult)
	return res, ok
}

// Guard rejects requests without a valid bearer token carrying
// requiredScope. An empty requiredScope only authenticates.
func Guard(engine *goGrant.Engine, requiredScope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, goGrant.ErrEngineNotReady)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, goGrant.ErrUnauthenticated)
				return
			}

			ctx := goGrant.WithClientIP(r.Context(), clientIP(r))
			res, err := engine.Authorize(ctx, token, requiredScope)
			if err != nil {
				writeError(w, err)
				return
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <t>" value.
// The scheme is matched case-insensitively.
func BearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}

func writeError(w http.ResponseWriter, err error) {
	st := goGrant.StatusOf(err)
	if st.Code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="gogrant"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(st.Code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": st.Message})
}
