package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yangjihun/FM-COMMIT/internal/apperr"
	"github.com/yangjihun/FM-COMMIT/internal/models"
	"github.com/yangjihun/FM-COMMIT/internal/users"
	"github.com/yangjihun/FM-COMMIT/pkg/middleware"
	"github.com/yangjihun/FM-COMMIT/pkg/response"
)

var errBadJSON = apperr.New(apperr.Validation, "request body must be a JSON object")

// RegisterRequest is the direct registration body.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Level    string `json:"level"`
}

// SetLevelRequest addresses the target by id or, failing that, by email.
type SetLevelRequest struct {
	TargetUserID string `json:"targetUserId"`
	TargetEmail  string `json:"targetEmail"`
	Level        string `json:"level"`
}

// BlockRequest is used by both block and unblock.
type BlockRequest struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// UserHandler serves /user.
type UserHandler struct {
	usersSvc *users.Service
}

func NewUserHandler(u *users.Service) *UserHandler {
	return &UserHandler{usersSvc: u}
}

// Register mounts /user. requireAdmin is composed after authenticate.
func (h *UserHandler) Register(rg *gin.RouterGroup, authenticate, requireAdmin gin.HandlerFunc) {
	u := rg.Group("/user")
	u.POST("", h.Create)
	u.GET("/me", authenticate, h.Me)

	admin := u.Group("", authenticate, requireAdmin)
	admin.GET("/all", h.All)
	admin.PUT("/level", h.SetLevel)
	admin.POST("/block", h.Block)
	admin.POST("/unblock", h.Unblock)
	admin.GET("/blocked", h.Blocked)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errBadJSON)
		return
	}
	_, err := h.usersSvc.Register(c.Request.Context(), users.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     models.Role(req.Level),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, nil)
}

func (h *UserHandler) Me(c *gin.Context) {
	response.OK(c, http.StatusOK, gin.H{"user": middleware.CurrentUser(c)})
}

func (h *UserHandler) All(c *gin.Context) {
	list, err := h.usersSvc.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"users": list})
}

func (h *UserHandler) SetLevel(c *gin.Context) {
	var req SetLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errBadJSON)
		return
	}
	target := users.RoleTarget{UserID: req.TargetUserID, Email: req.TargetEmail}
	u, err := h.usersSvc.SetRole(c.Request.Context(), c.GetString(middleware.CtxUserID), target, models.Role(req.Level))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "user level updated", "user": u})
}

func (h *UserHandler) Block(c *gin.Context) {
	var req BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, users.ErrEmailRequired)
		return
	}
	entry, err := h.usersSvc.Block(c.Request.Context(), c.GetString(middleware.CtxUserID), req.Email, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"data": entry})
}

func (h *UserHandler) Unblock(c *gin.Context) {
	var req BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, users.ErrEmailRequired)
		return
	}
	if err := h.usersSvc.Unblock(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "user unblocked"})
}

func (h *UserHandler) Blocked(c *gin.Context) {
	list, err := h.usersSvc.ListBlocked(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"data": list})
}
