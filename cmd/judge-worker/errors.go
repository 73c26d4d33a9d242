package main

import (
	"github.com/gin-gonic/gin"

	"judgeengine/pkg/apperrors"
)

// writeError renders an *apperrors.Error as the HTTP response its code maps
// to, per SPEC_FULL.md §7: raw errors cross the pipeline boundary as plain
// Go errors, and are only converted to apperrors.ErrorCode at the HTTP/queue
// layer.
func writeError(c *gin.Context, err *apperrors.Error) {
	c.JSON(err.Code.HTTPStatus(), gin.H{
		"code":    err.Code,
		"message": err.Error(),
	})
}
