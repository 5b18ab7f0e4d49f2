package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yangjihun/FM-COMMIT/internal/apperr"
	"github.com/yangjihun/FM-COMMIT/internal/models"
	"github.com/yangjihun/FM-COMMIT/internal/tokens"
	"github.com/yangjihun/FM-COMMIT/pkg/metrics"
	"github.com/yangjihun/FM-COMMIT/pkg/response"
)

// Request context keys set by Authenticate.
const (
	CtxUserID = "userID"
	CtxUser   = "user"
	CtxClaims = "claims"
	CtxToken  = "token"
)

var (
	ErrBlocked      = apperr.New(apperr.Forbidden, "blocked user")
	ErrTokenRevoked = apperr.New(apperr.Unauthenticated, "token revoked")
	ErrNotAdmin     = apperr.New(apperr.Forbidden, "admin permission required")
	ErrUserNotFound = apperr.New(apperr.NotFound, "user not found")
)

// TokenVerifier is the minimal interface the middleware depends on
type TokenVerifier interface {
	Verify(raw string) (*tokens.Claims, error)
}

// UserLookup resolves a user id to the live user record, with Blocked
// populated. A missing user must be reported with an apperr.NotFound error.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// RevocationChecker reports logged-out tokens.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

func deny(c *gin.Context, gate, outcome string, err error) {
	metrics.AuthDecisions.WithLabelValues(gate, outcome).Inc()
	response.Error(c, err)
}

// Authenticate verifies the bearer token and re-reads the user on every
// request, so a block or deletion takes effect without waiting for expiry.
// revocations may be nil.
func Authenticate(codec TokenVerifier, users UserLookup, revocations RevocationChecker) gin.HandlerFunc {
	const gate = "authenticate"
	return func(c *gin.Context) {
		raw, err := tokens.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			deny(c, gate, "missing_token", err)
			return
		}
		claims, err := codec.Verify(raw)
		if err != nil {
			outcome := "invalid_token"
			if tokens.IsExpired(err) {
				outcome = "expired_token"
			}
			deny(c, gate, outcome, err)
			return
		}
		if revocations != nil {
			revoked, err := revocations.IsRevoked(c.Request.Context(), raw)
			if err != nil {
				deny(c, gate, "error", err)
				return
			}
			if revoked {
				deny(c, gate, "revoked", ErrTokenRevoked)
				return
			}
		}
		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if apperr.KindOf(err) == apperr.NotFound {
				deny(c, gate, "unknown_user", tokens.ErrInvalidToken)
				return
			}
			deny(c, gate, "error", err)
			return
		}
		if user.Blocked {
			deny(c, gate, "blocked", ErrBlocked)
			return
		}

		metrics.AuthDecisions.WithLabelValues(gate, "allow").Inc()
		c.Set(CtxUserID, user.ID)
		c.Set(CtxUser, user)
		c.Set(CtxClaims, claims)
		c.Set(CtxToken, raw)
		c.Next()
	}
}

// RequireAdmin must run after Authenticate. It looks the user up again
// rather than trusting the copy Authenticate stored.
func RequireAdmin(users UserLookup) gin.HandlerFunc {
	const gate = "admin"
	return func(c *gin.Context) {
		user, err := users.GetByID(c.Request.Context(), c.GetString(CtxUserID))
		if err != nil {
			if apperr.KindOf(err) == apperr.NotFound {
				deny(c, gate, "unknown_user", ErrUserNotFound)
				return
			}
			deny(c, gate, "error", err)
			return
		}
		if !user.IsAdmin() {
			deny(c, gate, "forbidden", ErrNotAdmin)
			return
		}
		metrics.AuthDecisions.WithLabelValues(gate, "allow").Inc()
		c.Next()
	}
}

// CurrentUser returns the user stored by Authenticate.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CtxUser); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// SessionClaims returns the verified claims stored by Authenticate.
func SessionClaims(c *gin.Context) *tokens.Claims {
	if v, ok := c.Get(CtxClaims); ok {
		if cl, ok := v.(*tokens.Claims); ok {
			return cl
		}
	}
	return nil
}
