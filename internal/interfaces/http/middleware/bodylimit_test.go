package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crm/dashboard/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyLimit(t *testing.T) {
	newRouter := func(limit int64) *gin.Engine {
		router := gin.New()
		router.Use(RequestID(), BodyLimit(limit))
		router.POST("/test", func(c *gin.Context) {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				c.String(http.StatusRequestEntityTooLarge, "read failed")
				return
			}
			c.String(http.StatusOK, string(body))
		})
		return router
	}

	t.Run("allows request within limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(1024).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("small body")))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "small body", w.Body.String())
	})

	t.Run("rejects declared oversized body with envelope", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(strings.Repeat("x", 200)))
		req.Header.Set(RequestIDHeader, "req-1")
		w := httptest.NewRecorder()
		newRouter(100).ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeBodyTooLarge, resp.Code)
		assert.Equal(t, "req-1", resp.RequestID)
	})

	t.Run("caps streamed body without content length", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(strings.Repeat("x", 200)))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		newRouter(100).ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestBodyLimitExceeded(t *testing.T) {
	_, ok := BodyLimitExceeded(io.ErrUnexpectedEOF)
	assert.False(t, ok)

	limit, ok := BodyLimitExceeded(&http.MaxBytesError{Limit: 64})
	assert.True(t, ok)
	assert.EqualValues(t, 64, limit)
}
