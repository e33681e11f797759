package util

import (
	"errors"
	"examhub_backend/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func KindError(c *gin.Context, code int, kind, message string, data interface{}) {
	c.JSON(code, Response{
		Code:    code,
		Kind:    kind,
		Message: message,
		Data:    data,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	KindError(c, http.StatusForbidden, KindForbidden, "Forbidden", nil)
}

func BadRequest(c *gin.Context, message string) {
	KindError(c, http.StatusBadRequest, KindValidation, message, nil)
}

func NotFound(c *gin.Context) {
	KindError(c, http.StatusNotFound, KindNotFound, "Resource not found", nil)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	InternalServerError(c)
}

// HandleServiceError maps exam service errors onto the response envelope.
// Anything outside the taxonomy is an infrastructure failure.
func HandleServiceError(c *gin.Context, err error) {
	var submitted *AlreadySubmittedError
	if errors.As(err, &submitted) {
		KindError(c, http.StatusConflict, KindAlreadySubmitted, err.Error(), submitted)
		return
	}

	var invalid *ValidationError
	if errors.As(err, &invalid) {
		KindError(c, http.StatusBadRequest, KindValidation, invalid.Message, nil)
		return
	}

	switch {
	case errors.Is(err, ErrExamNotFound), errors.Is(err, ErrSubmissionNotFound):
		KindError(c, http.StatusNotFound, KindNotFound, err.Error(), nil)
	case errors.Is(err, ErrForbidden):
		KindError(c, http.StatusForbidden, KindForbidden, err.Error(), nil)
	case errors.Is(err, ErrExamNotAvailable):
		KindError(c, http.StatusForbidden, KindExamNotAvailable, err.Error(), nil)
	case errors.Is(err, ErrExamNotStarted):
		KindError(c, http.StatusForbidden, KindNotStartedYet, err.Error(), nil)
	case errors.Is(err, ErrExamEnded):
		KindError(c, http.StatusForbidden, KindExamEnded, err.Error(), nil)
	case errors.Is(err, ErrAlreadySubmitted):
		KindError(c, http.StatusConflict, KindAlreadySubmitted, err.Error(), nil)
	case errors.Is(err, ErrConflict):
		KindError(c, http.StatusConflict, KindConflict, err.Error(), nil)
	case errors.Is(err, ErrValidation):
		KindError(c, http.StatusBadRequest, KindValidation, err.Error(), nil)
	default:
		LogInternalError(c, err)
	}
}
