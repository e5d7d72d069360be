package httpapi

import (
	"net/http"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

func toUserResponse(u goGrant.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email}
}

func toTokenResponse(p goGrant.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresIn:    p.ExpiresIn,
		TokenType:    p.TokenType,
		Scope:        p.Scope,
	}
}

// abortWithError renders err through goGrant.StatusOf. Server-side failures
// are logged with their cause; the body never carries it.
func abortWithError(c *gin.Context, err error) {
	st := goGrant.StatusOf(err)
	if st.Code >= http.StatusInternalServerError {
		requestLogger(c, zap.NewNop()).Error("request failed", zap.Int("status", st.Code), zap.Error(err))
	}
	if st.Code == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", `Bearer realm="gogrant"`)
	}
	c.AbortWithStatusJSON(st.Code, errorResponse{Error: st.Message})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg})
}
