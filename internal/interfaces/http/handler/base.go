package handler

import (
	"net/http"

	"github.com/crm/dashboard/internal/domain/shared"
	"github.com/crm/dashboard/internal/infrastructure/logger"
	"github.com/crm/dashboard/internal/interfaces/http/dto"
	"github.com/crm/dashboard/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler writes the dashboard response envelope
type BaseHandler struct{}

// Success answers 200 with data
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessList answers 200 with data and its size in meta
func (h *BaseHandler) SuccessList(c *gin.Context, data any, total int) {
	c.JSON(http.StatusOK, dto.NewListResponse(data, total))
}

// Created answers 201 with data
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Fail answers status with a failure envelope carrying the request ID
func (h *BaseHandler) Fail(c *gin.Context, status int, code, errMsg, message string) {
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, errMsg, message, middleware.GetRequestID(c)))
}

func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Fail(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Bad request", message)
}

func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Fail(c, http.StatusNotFound, dto.ErrCodeNotFound, "Not found", message)
}

func (h *BaseHandler) Unauthorized(c *gin.Context, code, message string) {
	h.Fail(c, http.StatusUnauthorized, code, "Unauthorized", message)
}

// HandleError answers a DomainError with the status its code maps to.
// Any other error is logged and hidden behind a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	if de, ok := shared.AsDomainError(err); ok {
		code := dto.NormalizeErrorCode(de.Code)
		h.Fail(c, dto.GetHTTPStatus(code), code, de.Message, de.Message)
		return
	}

	logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
	_ = c.Error(err)
	h.Fail(c, http.StatusInternalServerError, dto.ErrCodeInternal, "Internal server error", "An unexpected error occurred")
}
