package response

import (
	"github.com/gin-gonic/gin"

	"github.com/yangjihun/FM-COMMIT/internal/apperr"
	"github.com/yangjihun/FM-COMMIT/pkg/logger"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// OK writes {"status":"success", ...fields}.
func OK(c *gin.Context, code int, fields gin.H) {
	body := gin.H{"status": StatusSuccess}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(code, body)
}

// Fail aborts the request with {"status":"fail","error":msg}.
func Fail(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"status": StatusFail, "error": msg})
}

// Error maps err through the apperr taxonomy and aborts the request.
func Error(c *gin.Context, err error) {
	code := apperr.Status(err)
	if code >= 500 {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	Fail(c, code, apperr.Message(err))
}
