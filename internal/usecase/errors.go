package usecase

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// 入力チェックで引っかかった項目
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// handlerはStatusとMessageをそのままレスポンスにする
type HTTPError struct {
	Status  int
	Message string
	Fields  []FieldError
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

// 400 + 項目ごとのエラー
func NewValidationError(fields ...FieldError) error {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Message: "validation failed",
		Fields:  fields,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

var (
	errUnauthorized = NewHTTPError(http.StatusUnauthorized, "unauthorized")
	errAccessDenied = NewHTTPError(http.StatusForbidden, "Access denied")
)

// 想定外のエラーは原因をログに残し、外には500だけ返す
func internalError(logger *zap.Logger, op string, err error, fields ...zap.Field) error {
	logger.Error(op, append(fields, zap.Error(err))...)
	return NewHTTPError(http.StatusInternalServerError, "internal error")
}

func notFound(entity string) error {
	return NewHTTPError(http.StatusNotFound, entity+" not found")
}
