package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yangjihun/FM-COMMIT/internal/tokens"
	"github.com/yangjihun/FM-COMMIT/pkg/metrics"
	"github.com/yangjihun/FM-COMMIT/pkg/response"
)

// per-key limiter store (simple in-memory token-bucket)
type limiterStore struct {
	m sync.Map // map[string]*rate.Limiter
}

func (s *limiterStore) get(key string, rps float64, burst int) *rate.Limiter {
	if v, ok := s.m.Load(key); ok {
		return v.(*rate.Limiter)
	}
	v, _ := s.m.LoadOrStore(key, rate.NewLimiter(rate.Limit(rps), burst))
	return v.(*rate.Limiter)
}

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c *gin.Context) string

// ClientKey keys by user id when the request carries one, otherwise by
// client IP. The limiter runs ahead of Authenticate, so a bearer token is
// verified here to find the user; an invalid token counts against the IP.
// codec may be nil, in which case only an id already set by Authenticate
// is used.
func ClientKey(codec TokenVerifier) KeyFunc {
	return func(c *gin.Context) string {
		if id := c.GetString(CtxUserID); id != "" {
			return "user:" + id
		}
		if codec != nil {
			if raw, err := tokens.BearerToken(c.GetHeader("Authorization")); err == nil {
				if claims, err := codec.Verify(raw); err == nil {
					return "user:" + claims.UserID
				}
			}
		}
		return ipKey(c)
	}
}

func ipKey(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket per-key limit.
// rps = allowed events per second, burst = maximum tokens in bucket.
// A nil key means ClientKey(nil). Each call gets its own limiter set.
func RateLimitMiddleware(rps float64, burst int, key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = ClientKey(nil)
	}
	store := &limiterStore{}
	return func(c *gin.Context) {
		if !store.get(key(c), rps, burst).Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			response.Fail(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
