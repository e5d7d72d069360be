package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := AuthResultFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(res.User.Username))
	})
}

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestGuardAcceptsValidBearer(t *testing.T) {
	kit := testkit.New(t, testkit.Config())
	pair := kit.Login(t)

	rec := serve(Guard(kit.Engine, "read")(okHandler(t)), "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())

	rec = serve(Guard(kit.Engine, "")(okHandler(t)), "bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardRejections(t *testing.T) {
	kit := testkit.New(t, testkit.Config())
	pair := kit.Login(t)

	tests := []struct {
		name   string
		header string
		scope  string
		code   int
		msg    string
	}{
		{"missing header", "", "read", http.StatusUnauthorized, "Authentication required"},
		{"wrong scheme", "Basic " + pair.AccessToken, "read", http.StatusUnauthorized, "Authentication required"},
		{"empty token", "Bearer ", "read", http.StatusUnauthorized, "Authentication required"},
		{"unknown token", "Bearer nope", "read", http.StatusUnauthorized, "Authentication required"},
		{"refresh token as bearer", "Bearer " + pair.RefreshToken, "read", http.StatusUnauthorized, "Authentication required"},
		{"missing scope", "Bearer " + pair.AccessToken, "admin", http.StatusForbidden, "Insufficient scope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(Guard(kit.Engine, tt.scope)(okHandler(t)), tt.header)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.msg, errorBody(t, rec))
			if tt.code == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestGuardNilEngine(t *testing.T) {
	rec := serve(Guard(nil, "")(okHandler(t)), "Bearer x")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequireRole(t *testing.T) {
	kit := testkit.New(t, testkit.Config())
	pair := kit.Login(t)

	h := Guard(kit.Engine, "read")(RequireRole(kit.Engine, "admin")(okHandler(t)))
	rec := serve(h, "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	h = Guard(kit.Engine, "read")(RequireRole(kit.Engine, "auditor")(okHandler(t)))
	rec = serve(h, "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Permission denied", errorBody(t, rec))

	rec = serve(RequireRole(kit.Engine, "admin")(okHandler(t)), "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerToken(t *testing.T) {
	for value, want := range map[string]string{
		"Bearer abc":   "abc",
		"BEARER abc":   "abc",
		"Bearer  abc ": "abc",
		"Bearer":       "",
		"Token abc":    "",
		"":             "",
	} {
		got, ok := BearerToken(value)
		assert.Equal(t, want, got, value)
		assert.Equal(t, want != "", ok, value)
	}
}

func TestStatusMessagesMatchEngineMapping(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, goGrant.ErrRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Too many requests", errorBody(t, rec))
}
