package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yangjihun/FM-COMMIT/internal/apperr"
	"github.com/yangjihun/FM-COMMIT/internal/oidc"
	"github.com/yangjihun/FM-COMMIT/internal/sessions"
	"github.com/yangjihun/FM-COMMIT/internal/users"
	"github.com/yangjihun/FM-COMMIT/pkg/logger"
	"github.com/yangjihun/FM-COMMIT/pkg/metrics"
	"github.com/yangjihun/FM-COMMIT/pkg/middleware"
	"github.com/yangjihun/FM-COMMIT/pkg/response"
)

var errCredentialRequired = apperr.New(apperr.Validation, "token is required")

// GoogleLoginRequest carries the Google ID token obtained by the browser.
type GoogleLoginRequest struct {
	Token string `json:"token"`
}

// LoginRequest is the password login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	verifier    oidc.CredentialVerifier
	usersSvc    *users.Service
	revocations *sessions.Revocations
}

// NewAuthHandler wires the sign-in routes. verifier may be nil when Google
// sign-in is not configured; revocations may be disabled.
func NewAuthHandler(v oidc.CredentialVerifier, u *users.Service, r *sessions.Revocations) *AuthHandler {
	return &AuthHandler{verifier: v, usersSvc: u, revocations: r}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup, authenticate gin.HandlerFunc) {
	a := rg.Group("/auth")
	a.POST("/google", h.Google)
	a.POST("/login", h.Login)
	a.POST("/logout", authenticate, h.Logout)
}

// Google verifies a Google ID token and returns a session token, creating
// the account on first sign-in.
func (h *AuthHandler) Google(c *gin.Context) {
	if h.verifier == nil {
		response.Fail(c, http.StatusServiceUnavailable, "google sign-in is not configured")
		return
	}
	var req GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		metrics.Logins.WithLabelValues("google", "rejected").Inc()
		response.Error(c, errCredentialRequired)
		return
	}
	id, err := h.verifier.VerifyCredential(c.Request.Context(), req.Token)
	if err != nil {
		metrics.Logins.WithLabelValues("google", "rejected").Inc()
		logger.Debugf("google credential rejected: %v", err)
		response.Error(c, err)
		return
	}
	u, token, err := h.usersSvc.FindByEmailOrCreate(c.Request.Context(), id.Email, id.Name)
	if err != nil {
		metrics.Logins.WithLabelValues("google", "rejected").Inc()
		response.Error(c, err)
		return
	}
	metrics.Logins.WithLabelValues("google", "ok").Inc()
	logger.Infof("google sign-in user=%s", u.ID)
	response.OK(c, http.StatusOK, gin.H{"user": u, "token": token})
}

// Login is the password sign-in used by the bootstrap admin and directly
// registered accounts.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, users.ErrInvalidCredentials)
		return
	}
	u, token, err := h.usersSvc.PasswordLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		metrics.Logins.WithLabelValues("password", "rejected").Inc()
		response.Error(c, err)
		return
	}
	metrics.Logins.WithLabelValues("password", "ok").Inc()
	response.OK(c, http.StatusOK, gin.H{"user": u, "token": token})
}

// Logout revokes the presented token until its natural expiry. Without Redis
// it only acknowledges; the client discards the token either way.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.SessionClaims(c)
	token := c.GetString(middleware.CtxToken)
	if claims != nil && token != "" {
		ttl := time.Until(claims.ExpiresAt)
		if err := h.revocations.Revoke(c.Request.Context(), token, ttl); err != nil {
			response.Error(c, err)
			return
		}
	}
	response.OK(c, http.StatusOK, gin.H{"message": "logged out"})
}
