package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type handler struct {
	engine *goGrant.Engine
	logger *zap.Logger
}

// loginRequest accepts the identifier as "email" or, for older clients,
// "user_email". Either may hold a username.
type loginRequest struct {
	Email     string `json:"email" form:"email"`
	UserEmail string `json:"user_email" form:"user_email"`
	Password  string `json:"password" form:"password"`
	Scope     string `json:"scope" form:"scope"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type resetRequest struct {
	Email string `json:"email" form:"email"`
}

type resetConfirmRequest struct {
	UID         string `json:"uid" form:"uid"`
	Token       string `json:"token" form:"token"`
	NewPassword string `json:"new_password" form:"new_password"`
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	identifier := strings.TrimSpace(req.Email)
	if identifier == "" {
		identifier = strings.TrimSpace(req.UserEmail)
	}
	if identifier == "" || req.Password == "" {
		badRequest(c, "Email and password are required")
		return
	}

	res, err := h.engine.LoginWithScope(c.Request.Context(), identifier, req.Password, req.Scope)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    toUserResponse(res.User),
		"tokens":  toTokenResponse(res.Tokens),
	})
}

func (h *handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBind(&req); err != nil || req.RefreshToken == "" {
		badRequest(c, "refresh_token is required")
		return
	}

	pair, err := h.engine.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokenResponse(pair))
}

func (h *handler) logout(c *gin.Context) {
	bearer, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		abortWithError(c, goGrant.ErrUnauthenticated)
		return
	}
	if err := h.engine.Revoke(c.Request.Context(), bearer); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) dashboard(c *gin.Context) {
	res, _ := AuthResult(c)
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to your dashboard",
		"user":    toUserResponse(res.User),
	})
}

func (h *handler) auditCheck(c *gin.Context) {
	res, _ := AuthResult(c)
	c.JSON(http.StatusOK, gin.H{
		"message": "Access granted",
		"user":    toUserResponse(res.User),
	})
}

func (h *handler) requestPasswordReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		badRequest(c, "email is required")
		return
	}

	if err := h.engine.RequestPasswordReset(c.Request.Context(), strings.TrimSpace(req.Email)); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset email sent."})
}

func (h *handler) confirmPasswordReset(c *gin.Context) {
	var req resetConfirmRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.UID == "" || req.Token == "" || req.NewPassword == "" {
		badRequest(c, "uid, token and new_password are required")
		return
	}

	if err := h.engine.ConfirmPasswordReset(c.Request.Context(), req.UID, req.Token, req.NewPassword); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully."})
}

func (h *handler) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.engine.Ping(ctx); err != nil {
		requestLogger(c, h.logger).Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
