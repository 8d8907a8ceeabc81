package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bakery/internal/config"
	"bakery/internal/middleware"
	"bakery/internal/repository"
	"bakery/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error  string               `json:"error"`
	Errors []usecase.FieldError `json:"errors,omitempty"`
}

// SuccessResponse は { message: string } の形
type SuccessResponse struct {
	Message string `json:"message"`
}

// 認証つきルートで使う依存
type AuthDeps struct {
	Cfg      config.Config
	UserRepo repository.UserRepository
	Logger   *zap.Logger
}

// JWT必須 + 有効ユーザー + token_version一致
func (d AuthDeps) authenticated() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.AuthJWT(d.Cfg),
		middleware.TokenVersionGuard(d.UserRepo, d.Logger),
	}
}

// authenticated + admin限定
func (d AuthDeps) adminOnly() []echo.MiddlewareFunc {
	return append(d.authenticated(), middleware.AdminRoleGuard())
}

// usecaseのHTTPErrorはそのまま、それ以外は500にしてecho側でログに残す
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message, Errors: he.Fields})
	}

	//500
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}

// echoのエラーもErrorResponseの形で返す
func NewHTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := "internal error"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(status)
			}
			if he.Internal != nil && status >= http.StatusInternalServerError {
				logger.Error("unhandled error", zap.String("uri", c.Request().RequestURI), zap.Error(he.Internal))
			}
		} else {
			logger.Error("unhandled error", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, ErrorResponse{Error: msg})
		}
		if werr != nil {
			logger.Warn("write error response", zap.Error(werr))
		}
	}
}

//middleware.AuthJWT が c.Set("user_id", int64) した値を取り出す

func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	if v == nil {
		return 0, false
	}

	id, ok := v.(int64)
	if !ok {
		return 0, false
	}

	return id, true
}

// roleはTokenVersionGuardがDBの値で入れ直している
func isAdminFromContext(c echo.Context) bool {
	role, _ := c.Get(middleware.CtxUserRoleKey).(string)
	return role == "admin"
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, usecase.NewValidationError(usecase.FieldError{Field: name, Message: "Invalid ID"})
	}
	return id, nil
}

// クエリの読み取り。形式エラーはまとめて400にする
type queryReader struct {
	c      echo.Context
	fields []usecase.FieldError
}

func newQueryReader(c echo.Context) *queryReader {
	return &queryReader{c: c}
}

func (q *queryReader) str(key string) string {
	return strings.TrimSpace(q.c.QueryParam(key))
}

// 未指定は0
func (q *queryReader) integer(key string) int {
	v := q.str(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		q.fields = append(q.fields, usecase.FieldError{Field: key, Message: key + " must be an integer"})
		return 0
	}
	return n
}

func (q *queryReader) int64Ptr(key string) *int64 {
	v := q.str(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		q.fields = append(q.fields, usecase.FieldError{Field: key, Message: key + " must be an integer"})
		return nil
	}
	return &n
}

func (q *queryReader) decimalPtr(key string) *decimal.Decimal {
	v := q.str(key)
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		q.fields = append(q.fields, usecase.FieldError{Field: key, Message: key + " must be a number"})
		return nil
	}
	return &d
}

// RFC3339 か YYYY-MM-DD
func (q *queryReader) timePtr(key string) *time.Time {
	v := q.str(key)
	if v == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t
	}
	q.fields = append(q.fields, usecase.FieldError{Field: key, Message: key + " must be a date"})
	return nil
}

func (q *queryReader) err() error {
	if len(q.fields) == 0 {
		return nil
	}
	return usecase.NewValidationError(q.fields...)
}

// Bind + Validate
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}
