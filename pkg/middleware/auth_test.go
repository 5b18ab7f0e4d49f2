package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/yangjihun/FM-COMMIT/internal/models"
	"github.com/yangjihun/FM-COMMIT/internal/sessions"
	"github.com/yangjihun/FM-COMMIT/internal/tokens"
	"github.com/yangjihun/FM-COMMIT/pkg/metrics"
)

// fakeUsers implements UserLookup
type fakeUsers struct {
	users map[string]*models.User
	err   error
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func setup(t *testing.T) (*tokens.Codec, *fakeUsers) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return tokens.NewCodec("middleware-test-secret", time.Hour, ""), &fakeUsers{users: map[string]*models.User{
		"u1":    {ID: "u1", Email: "u1@gachon.ac.kr", Role: models.RoleCustomer},
		"admin": {ID: "admin", Email: "root@gachon.ac.kr", Role: models.RoleAdmin},
	}}
}

func bearer(t *testing.T, codec *tokens.Codec, userID string) string {
	t.Helper()
	tok, _, err := codec.Issue(userID)
	require.NoError(t, err)
	return "Bearer " + tok
}

func serve(g *gin.Engine, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func errorOf(t *testing.T, rw *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	require.Equal(t, "fail", body.Status)
	return body.Error
}

func TestAuthenticate_MissingAndMalformed(t *testing.T) {
	codec, users := setup(t)
	g := gin.New()
	g.GET("/", Authenticate(codec, users, nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	rw := serve(g, "")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.Equal(t, "token not found", errorOf(t, rw))

	for _, h := range []string{"BadHeader", "Bearer nope", "Basic abc"} {
		rw = serve(g, h)
		require.Equal(t, http.StatusUnauthorized, rw.Code, h)
		require.Equal(t, "invalid token", errorOf(t, rw))
	}
}

func TestAuthenticate_ValidTokenSetsContext(t *testing.T) {
	codec, users := setup(t)
	before := testutil.ToFloat64(metrics.AuthDecisions.WithLabelValues("authenticate", "allow"))

	g := gin.New()
	g.GET("/", Authenticate(codec, users, nil), func(c *gin.Context) {
		require.Equal(t, "u1", c.GetString(CtxUserID))
		require.Equal(t, "u1@gachon.ac.kr", CurrentUser(c).Email)
		require.Equal(t, "u1", SessionClaims(c).UserID)
		require.NotEmpty(t, c.GetString(CtxToken))
		c.Status(http.StatusOK)
	})
	rw := serve(g, bearer(t, codec, "u1"))
	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.AuthDecisions.WithLabelValues("authenticate", "allow")))
}

func TestAuthenticate_ExpiredAndForeignTokens(t *testing.T) {
	codec, users := setup(t)
	g := gin.New()
	g.GET("/", Authenticate(codec, users, nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	short := tokens.NewCodec("middleware-test-secret", -time.Minute, "")
	rw := serve(g, bearer(t, short, "u1"))
	require.Equal(t, http.StatusUnauthorized, rw.Code)

	other := tokens.NewCodec("someone-elses-secret", time.Hour, "")
	rw = serve(g, bearer(t, other, "u1"))
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestAuthenticate_DeletedUserDenied(t *testing.T) {
	codec, users := setup(t)
	g := gin.New()
	g.GET("/", Authenticate(codec, users, nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	auth := bearer(t, codec, "u1")
	require.Equal(t, http.StatusOK, serve(g, auth).Code)

	delete(users.users, "u1")
	rw := serve(g, auth)
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.Equal(t, "invalid token", errorOf(t, rw))
}

func TestAuthenticate_BlockIsLive(t *testing.T) {
	codec, users := setup(t)
	g := gin.New()
	g.GET("/", Authenticate(codec, users, nil), func(c *gin.Context) { c.Status(http.StatusOK) })
	auth := bearer(t, codec, "u1")

	users.users["u1"].Blocked = true
	rw := serve(g, auth)
	require.Equal(t, http.StatusForbidden, rw.Code)
	require.Equal(t, "blocked user", errorOf(t, rw))

	users.users["u1"].Blocked = false
	require.Equal(t, http.StatusOK, serve(g, auth).Code, "same token works again after unblock")
}

func TestAuthenticate_StoreFailureIs500(t *testing.T) {
	codec, users := setup(t)
	users.err = context.DeadlineExceeded
	g := gin.New()
	g.GET("/", Authenticate(codec, users, nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	rw := serve(g, bearer(t, codec, "u1"))
	require.Equal(t, http.StatusInternalServerError, rw.Code)
	require.Equal(t, "internal server error", errorOf(t, rw))
}

func TestAuthenticate_RejectsRevokedToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	rev := sessions.NewRevocations(redis.NewClient(&redis.Options{Addr: m.Addr()}))

	codec, users := setup(t)
	g := gin.New()
	g.GET("/", Authenticate(codec, users, rev), func(c *gin.Context) { c.Status(http.StatusOK) })

	auth := bearer(t, codec, "u1")
	require.Equal(t, http.StatusOK, serve(g, auth).Code)

	require.NoError(t, rev.Revoke(context.Background(), auth[len("Bearer "):], 5*time.Second))
	rw := serve(g, auth)
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.Equal(t, "token revoked", errorOf(t, rw))
}

func TestRequireAdmin(t *testing.T) {
	codec, users := setup(t)
	g := gin.New()
	g.GET("/", Authenticate(codec, users, nil), RequireAdmin(users), func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusOK, serve(g, bearer(t, codec, "admin")).Code)

	rw := serve(g, bearer(t, codec, "u1"))
	require.Equal(t, http.StatusForbidden, rw.Code)
	require.Equal(t, "admin permission required", errorOf(t, rw))

	// demoted between the two lookups
	demoting := &demoteOnSecondLookup{fakeUsers: users}
	g2 := gin.New()
	g2.GET("/", Authenticate(codec, demoting, nil), RequireAdmin(demoting), func(c *gin.Context) { c.Status(http.StatusOK) })
	require.Equal(t, http.StatusForbidden, serve(g2, bearer(t, codec, "admin")).Code)
}

func TestRequireAdmin_MissingUser404(t *testing.T) {
	_, users := setup(t)
	g := gin.New()
	g.GET("/", func(c *gin.Context) { c.Set(CtxUserID, "ghost") }, RequireAdmin(users), func(c *gin.Context) { c.Status(http.StatusOK) })
	rw := serve(g, "")
	require.Equal(t, http.StatusNotFound, rw.Code)
}

type demoteOnSecondLookup struct {
	*fakeUsers
	calls int
}

func (d *demoteOnSecondLookup) GetByID(ctx context.Context, id string) (*models.User, error) {
	d.calls++
	u, err := d.fakeUsers.GetByID(ctx, id)
	if err == nil && d.calls > 1 {
		u.Role = models.RoleCustomer
	}
	return u, err
}
