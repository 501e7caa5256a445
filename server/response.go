package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/peerkit/errors"
)

// RespondWithError inspects err: an *errors.AppError anywhere in the chain
// sets the status and structured body; anything else is a 500.
func RespondWithError(c *gin.Context, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, errors.Internal(err).ToResponse())
}

// RespondOK sends a 200 response with v as the body.
func RespondOK(c *gin.Context, v any) {
	c.JSON(http.StatusOK, v)
}

// RespondNoContent sends a 204 with no body.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
