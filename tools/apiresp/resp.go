package apiresp

import (
	"net/http"

	"TripChat/logger"
	"TripChat/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Message writes the {"message": ...} body every non-data response uses.
func Message(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// Fail aborts the request with the status carried by err. Messages of 5xx
// errors are never shown to the caller.
func Fail(c *gin.Context, err error) {
	status := errs.Status(err)
	msg := errs.ErrInternalServer.Msg
	if codeErr, ok := errs.AsCode(err); ok && status < http.StatusInternalServerError {
		msg = codeErr.Msg
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	} else {
		logger.Debug("request rejected",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.String("reason", err.Error()),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}
