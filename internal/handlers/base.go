package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
	"github.com/KERD-ORG/Bornomala-Updated/internal/services"
	"github.com/KERD-ORG/Bornomala-Updated/internal/utils"
	"github.com/KERD-ORG/Bornomala-Updated/internal/validator"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the helpers shared by all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs with the request-scoped logger
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Error(msg, append(args, "error", err)...)
}

// parseIDParam reads a positive id path parameter. It writes the 400 itself
// and returns 0 on failure.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid " + name + " parameter",
		})
		return 0
	}
	return uint(id)
}

// actorID returns the authenticated user id, or writes 401
func (h *BaseHandler) actorID(c *gin.Context) (string, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "User not authenticated",
		})
		return "", false
	}
	return userID, true
}

// handleServiceError maps the service error taxonomy onto HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	var refErr *services.ReferenceError
	var immutableErr *services.ImmutableFieldError

	switch {
	case errors.As(err, &validationErrs):
		errorType := "validation_error"
		if errors.Is(err, validator.ErrInvalidAnswerShape) {
			errorType = "invalid_answer_shape"
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   errorType,
			Message: validationErrs.Error(),
			Details: []validator.ValidationError(validationErrs),
		})
	case errors.Is(err, services.ErrCorruptQuestion):
		h.LogError(c, err, "Stored question cannot be read")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "corrupt_record",
			Message: err.Error(),
		})
	case errors.Is(err, models.ErrUnknownVariant):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unknown_variant",
			Message: err.Error(),
		})
	case errors.As(err, &refErr):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "reference_not_found",
			Message: refErr.Error(),
			Details: refErr.Missing,
		})
	case errors.Is(err, models.ErrUnknownLookupKind), errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.As(err, &immutableErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "immutable_field",
			Message: immutableErr.Error(),
			Details: gin.H{"field": immutableErr.Field},
		})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: err.Error(),
		})
	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Internal server error",
		})
	}
}
