package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yangjihun/FM-COMMIT/internal/apperr"
	"github.com/yangjihun/FM-COMMIT/internal/content"
	"github.com/yangjihun/FM-COMMIT/internal/content/service"
	"github.com/yangjihun/FM-COMMIT/internal/storage"
	"github.com/yangjihun/FM-COMMIT/pkg/response"
)

var (
	errBadBody      = apperr.New(apperr.Validation, "request body must be a JSON object")
	errMissingItems = apperr.New(apperr.Validation, "projects array is required")
)

// Handler serves the content collections. Images is optional.
type Handler struct {
	Projects       *service.Projects
	RegularStudies *service.RegularStudies
	Study          *service.StudyService
	Images         *storage.Images
}

// RegisterAdminRoutes mounts the mutation surface. g must already be gated
// by authentication and the admin check.
func (h *Handler) RegisterAdminRoutes(g *gin.RouterGroup) {
	g.GET("/projects", list(h.Projects))
	g.PUT("/projects", replaceAll(h.Projects))
	g.POST("/projects", create(h.Projects))
	g.PUT("/projects/:id", update(h.Projects))
	g.DELETE("/projects/:id", remove(h.Projects))

	g.GET("/study", h.getStudy)
	g.PUT("/study", h.updateStudy)

	g.GET("/regular-study", list(h.RegularStudies))
	g.PUT("/regular-study", replaceAll(h.RegularStudies))
	g.POST("/regular-study", create(h.RegularStudies))
	g.PUT("/regular-study/:id", update(h.RegularStudies))
	g.DELETE("/regular-study/:id", remove(h.RegularStudies))

	if h.Images != nil {
		g.POST("/images", h.uploadImage)
	}
}

// RegisterPublicRoutes mounts the read-only mirror.
func (h *Handler) RegisterPublicRoutes(g *gin.RouterGroup) {
	g.GET("/projects", list(h.Projects))
	g.GET("/study", h.getStudy)
	g.GET("/regular-study", list(h.RegularStudies))
	if h.Images != nil {
		g.GET("/images/*key", h.serveImage)
	}
}

func list[T any, PT content.Record[T]](col *service.Collection[T, PT]) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := col.List(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, http.StatusOK, gin.H{"data": items})
	}
}

func create[T any, PT content.Record[T]](col *service.Collection[T, PT]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var item T
		if err := c.ShouldBindJSON(&item); err != nil {
			response.Error(c, apperr.Wrap(errBadBody, err))
			return
		}
		created, err := col.Create(c.Request.Context(), &item)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, http.StatusOK, gin.H{"message": "item created", "data": created})
	}
}

func update[T any, PT content.Record[T]](col *service.Collection[T, PT]) gin.HandlerFunc {
	return func(c *gin.Context) {
		patch, err := c.GetRawData()
		if err != nil {
			response.Error(c, apperr.Wrap(errBadBody, err))
			return
		}
		updated, err := col.Update(c.Request.Context(), c.Param("id"), patch)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, http.StatusOK, gin.H{"message": "item updated", "data": updated})
	}
}

func remove[T any, PT content.Record[T]](col *service.Collection[T, PT]) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := col.Delete(c.Request.Context(), c.Param("id")); err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, http.StatusOK, gin.H{"message": "item deleted"})
	}
}

// replaceAll accepts {"projects":[...]}, the shape the admin UI sends for
// both collections, or {"items":[...]}.
func replaceAll[T any, PT content.Record[T]](col *service.Collection[T, PT]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Projects *[]T `json:"projects"`
			Items    *[]T `json:"items"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			response.Error(c, apperr.Wrap(errBadBody, err))
			return
		}
		items := body.Projects
		if items == nil {
			items = body.Items
		}
		if items == nil {
			response.Error(c, errMissingItems)
			return
		}
		out, err := col.ReplaceAll(c.Request.Context(), *items)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, http.StatusOK, gin.H{"message": col.Name() + " replaced", "data": out})
	}
}

func (h *Handler) getStudy(c *gin.Context) {
	doc, err := h.Study.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"data": doc})
}

func (h *Handler) updateStudy(c *gin.Context) {
	patch, err := c.GetRawData()
	if err != nil {
		response.Error(c, apperr.Wrap(errBadBody, err))
		return
	}
	doc, err := h.Study.Update(c.Request.Context(), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "study updated", "data": doc})
}

// multipart overhead allowance on top of the image limit
const formOverhead = 1 << 20

func (h *Handler) uploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxImageSize+formOverhead)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			response.Error(c, storage.ErrImageTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer f.Close()
	img, err := h.Images.Upload(c.Request.Context(), f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"data": img})
}

func (h *Handler) serveImage(c *gin.Context) {
	u, err := h.Images.URL(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, u)
}
