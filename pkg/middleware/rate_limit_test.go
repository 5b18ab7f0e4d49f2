package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/yangjihun/FM-COMMIT/internal/tokens"
	"github.com/yangjihun/FM-COMMIT/pkg/metrics"
)

func hit(r *gin.Engine, path string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Code
}

func TestRateLimitMiddleware_AllowsUnderLimit(t *testing.T) {
	before := testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory"))
	r := gin.New()
	r.Use(RateLimitMiddleware(10, 2, nil))
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, hit(r, "/ok"))
	require.Equal(t, http.StatusOK, hit(r, "/ok"))
	require.Equal(t, before+2, testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory")))
}

func TestRateLimitMiddleware_BlocksWhenExceeded(t *testing.T) {
	before := testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("memory"))
	r := gin.New()
	r.Use(RateLimitMiddleware(0.5, 1, nil))
	r.GET("/limited", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, hit(r, "/limited"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "1", w.Header().Get("Retry-After"))
	require.Equal(t, before+1, testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("memory")))
}

func TestRateLimitMiddleware_KeyedByUser(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if u := c.Query("u"); u != "" {
			c.Set(CtxUserID, u)
		}
	})
	r.Use(RateLimitMiddleware(0.001, 1, nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusOK, hit(r, "/x?u=a"))
	require.Equal(t, http.StatusTooManyRequests, hit(r, "/x?u=a"))
	require.Equal(t, http.StatusOK, hit(r, "/x?u=b"), "separate bucket per user")
	require.Equal(t, http.StatusOK, hit(r, "/x"), "anonymous callers keyed by ip")
}

func TestRateLimitMiddleware_KeyedByBearerToken(t *testing.T) {
	codec := tokens.NewCodec("rate-limit-secret", time.Hour, "")
	alice, _, err := codec.Issue("alice")
	require.NoError(t, err)
	bob, _, err := codec.Issue("bob")
	require.NoError(t, err)

	// mounted globally, ahead of any authentication
	r := gin.New()
	r.Use(RateLimitMiddleware(0.001, 1, ClientKey(codec)))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, call(alice))
	require.Equal(t, http.StatusTooManyRequests, call(alice))
	require.Equal(t, http.StatusOK, call(bob), "separate bucket per user on one ip")
	require.Equal(t, http.StatusOK, call(""), "anonymous caller has the ip bucket")
	require.Equal(t, http.StatusTooManyRequests, call("forged.token.value"), "bad token falls back to the ip bucket")
}

func TestClientKey(t *testing.T) {
	codec := tokens.NewCodec("rate-limit-secret", time.Hour, "")
	tok, _, err := codec.Issue("u1")
	require.NoError(t, err)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.0.0.7:1234"
	require.Equal(t, "ip:10.0.0.7", ClientKey(codec)(c))

	c.Request.Header.Set("Authorization", "Bearer "+tok)
	require.Equal(t, "user:u1", ClientKey(codec)(c))
	require.Equal(t, "ip:10.0.0.7", ClientKey(nil)(c))

	c.Set(CtxUserID, "u2")
	require.Equal(t, "user:u2", ClientKey(nil)(c))
}
