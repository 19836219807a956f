package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = middleware.RequestIDKey

// ActorHeader names the operator performing a request
const ActorHeader = "X-Actor"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDKey)
}

// getActor returns the operator named by the X-Actor header, if any
func getActor(c *gin.Context) string {
	return c.GetHeader(ActorHeader)
}

// parseUUIDParam parses a required UUID path parameter
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, shared.ErrInvalidInput.WithMessage("Invalid " + name + " format")
	}
	return id, nil
}

// optionalUUID converts an already validated uuid_or_empty field
func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id := uuid.MustParse(s)
	return &id
}

// pageOf returns the effective page and size for list responses
func pageOf(page, pageSize, fallback int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = fallback
	}
	return page, pageSize
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// BindError answers a failed ShouldBind call. Validator failures carry field details.
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		middleware.HandleValidationError(c, verrs)
		return
	}
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		h.BadRequest(c, "Invalid number: "+numErr.Num)
		return
	}
	h.BadRequest(c, err.Error())
}

// HandleError converts domain errors to HTTP responses; anything else is a 500
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, dto.GetHTTPStatus(domainErr.Code), domainErr.Code, domainErr.Message)
		return
	}

	_ = c.Error(err)
	h.InternalError(c, "An unexpected error occurred")
}
