package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yangjihun/FM-COMMIT/internal/content"
	"github.com/yangjihun/FM-COMMIT/internal/content/repository"
	"github.com/yangjihun/FM-COMMIT/internal/content/service"
	"github.com/yangjihun/FM-COMMIT/internal/storage"
)

type fakeObjects struct{ keys map[string]bool }

func (f *fakeObjects) Put(ctx context.Context, key string, r io.Reader, size int64, ct string) error {
	f.keys[key] = true
	return nil
}
func (f *fakeObjects) Exists(ctx context.Context, key string) (bool, error) { return f.keys[key], nil }
func (f *fakeObjects) PresignedURL(ctx context.Context, key string, exp time.Duration) (string, error) {
	return "http://objects.test/" + key, nil
}

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := &Handler{
		Projects:       service.NewProjects(repository.NewMemoryRepo[content.Project]()),
		RegularStudies: service.NewRegularStudies(repository.NewMemoryRepo[content.RegularStudy]()),
		Study:          service.NewStudyService(repository.NewMemoryStudyRepo()),
		Images:         storage.NewImages(&fakeObjects{keys: map[string]bool{}}, "/api/public/images"),
	}
	g := gin.New()
	h.RegisterAdminRoutes(g.Group("/api/admin/data"))
	h.RegisterPublicRoutes(g.Group("/api/public"))
	return g
}

func do(g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e), w.Body.String())
	return e
}

func TestProjectsCRUD(t *testing.T) {
	g := newEngine(t)

	w := do(g, http.MethodPost, "/api/admin/data/projects", `{"title":"Site","techStack":["go"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created content.Project
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	require.NotEmpty(t, created.ID)

	w = do(g, http.MethodPut, "/api/admin/data/projects/"+created.ID, `{"progress":55}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(g, http.MethodGet, "/api/public/projects", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []content.Project
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &list))
	require.Len(t, list, 1)
	require.Equal(t, 55, list[0].Progress)
	require.Equal(t, "Site", list[0].Title)
	require.Equal(t, []string{"go"}, list[0].TechStack)

	w = do(g, http.MethodDelete, "/api/admin/data/projects/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "success", decode(t, w).Status)

	w = do(g, http.MethodGet, "/api/public/projects", "")
	require.JSONEq(t, `[]`, string(decode(t, w).Data))
}

func TestUpdateMissingProject404(t *testing.T) {
	g := newEngine(t)
	w := do(g, http.MethodPut, "/api/admin/data/projects/p1", `{"title":"New"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	e := decode(t, w)
	require.Equal(t, "fail", e.Status)
	require.NotEmpty(t, e.Error)

	w = do(g, http.MethodDelete, "/api/admin/data/regular-study/none", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateErrors(t *testing.T) {
	g := newEngine(t)
	w := do(g, http.MethodPost, "/api/admin/data/projects", `{"id":"p1","title":"A"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(g, http.MethodPost, "/api/admin/data/projects", `{"id":"p1","title":"B"}`)
	require.Equal(t, http.StatusConflict, w.Code)

	w = do(g, http.MethodPost, "/api/admin/data/projects", `{"description":"no title"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, http.MethodPost, "/api/admin/data/projects", `not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, http.MethodPut, "/api/admin/data/projects/p1", `{"unknownField":1}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReplaceAllBodies(t *testing.T) {
	g := newEngine(t)

	w := do(g, http.MethodPut, "/api/admin/data/regular-study", `{"projects":[{"id":"a","title":"A"},{"title":"B"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(g, http.MethodGet, "/api/public/regular-study", "")
	var list []content.RegularStudy
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &list))
	require.Len(t, list, 2)
	require.Equal(t, "a", list[0].ID)
	require.Equal(t, content.RegularStudyStatusDefault, list[1].Status)

	w = do(g, http.MethodPut, "/api/admin/data/regular-study", `{"items":[{"id":"z","title":"Z"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(g, http.MethodGet, "/api/admin/data/regular-study", "")
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &list))
	require.Len(t, list, 1)

	w = do(g, http.MethodPut, "/api/admin/data/projects", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, http.MethodPut, "/api/admin/data/projects", `{"projects":[]}`)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestStudySingleton(t *testing.T) {
	g := newEngine(t)

	w := do(g, http.MethodGet, "/api/public/study", "")
	require.Equal(t, http.StatusOK, w.Code)
	var s content.Study
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &s))
	require.Empty(t, s.Description)

	w = do(g, http.MethodPut, "/api/admin/data/study", `{"description":"algo","infoCards":[{"icon":"i","title":"t","content":"c"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(g, http.MethodGet, "/api/admin/data/study", "")
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &s))
	require.Equal(t, "algo", s.Description)
	require.Len(t, s.InfoCards, 1)
}

func multipartImage(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="logo.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImageUploadAndRedirect(t *testing.T) {
	g := newEngine(t)

	body, ct := multipartImage(t, "image/png", []byte("\x89PNG..."))
	req := httptest.NewRequest(http.MethodPost, "/api/admin/data/images", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var img storage.Image
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &img))
	require.True(t, strings.HasPrefix(img.Path, "/api/public/images/images/"))

	w = do(g, http.MethodGet, img.Path, "")
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	require.Equal(t, "http://objects.test/"+img.Key, w.Header().Get("Location"))

	w = do(g, http.MethodGet, "/api/public/images/images/missing.png", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestImageUploadRejectsType(t *testing.T) {
	g := newEngine(t)
	body, ct := multipartImage(t, "text/html", []byte("<script>"))
	req := httptest.NewRequest(http.MethodPost, "/api/admin/data/images", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, http.MethodPost, "/api/admin/data/images", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImageRoutesAbsentWithoutStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{
		Projects:       service.NewProjects(repository.NewMemoryRepo[content.Project]()),
		RegularStudies: service.NewRegularStudies(repository.NewMemoryRepo[content.RegularStudy]()),
		Study:          service.NewStudyService(repository.NewMemoryStudyRepo()),
	}
	g := gin.New()
	h.RegisterAdminRoutes(g.Group("/api/admin/data"))
	w := do(g, http.MethodPost, "/api/admin/data/images", `{}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}
