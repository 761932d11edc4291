package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/crm/dashboard/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit rejects bodies declared larger than maxBytes up front and caps
// the reader for chunked bodies, which carry no Content-Length.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			AbortBodyTooLarge(c, maxBytes)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// BodyLimitExceeded reports whether err came from reading past the cap
// installed by BodyLimit, and the cap
func BodyLimitExceeded(err error) (int64, bool) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return mbe.Limit, true
	}
	return 0, false
}

// AbortBodyTooLarge answers 413 with the failure envelope
func AbortBodyTooLarge(c *gin.Context, limit int64) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeBodyTooLarge,
		"Request body too large",
		fmt.Sprintf("Request body exceeds %d bytes", limit),
		GetRequestID(c),
	))
}
