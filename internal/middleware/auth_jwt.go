package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"bakery/internal/config"
	"bakery/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // string
	CtxTokenVersionKey = "token_version" // int
)

var errTokenMissing = errorJSON("No token provided")
var errTokenInvalid = errorJSON("Invalid token")

// アクセストークンのclaim。発行側(cmd/api)と検証側で同じ型を使う
type AccessClaims struct {
	UserID       int64            `json:"sub"`
	Role         model.Role       `json:"role"`
	TokenVersion int              `json:"tv"`
	IssuedAt     *jwt.NumericDate `json:"iat,omitempty"`
	ExpiresAt    *jwt.NumericDate `json:"exp"`
}

// NewAccessClaims は now から ttl 後に失効するclaimを作る
func NewAccessClaims(userID int64, role model.Role, tokenVersion int, now time.Time, ttl time.Duration) AccessClaims {
	return AccessClaims{
		UserID:       userID,
		Role:         role,
		TokenVersion: tokenVersion,
		IssuedAt:     jwt.NewNumericDate(now),
		ExpiresAt:    jwt.NewNumericDate(now.Add(ttl)),
	}
}

// jwt.Claims。expは必須
func (c AccessClaims) Valid() error {
	if c.ExpiresAt == nil {
		return errors.New("exp is required")
	}
	if !jwt.TimeFunc().Before(c.ExpiresAt.Time) {
		return errors.New("token expired")
	}
	if c.UserID <= 0 {
		return errors.New("invalid sub")
	}
	if c.Role != model.RoleUser && c.Role != model.RoleAdmin {
		return errors.New("invalid role")
	}
	if c.TokenVersion < 0 {
		return errors.New("invalid tv")
	}
	return nil
}

// HS256以外は受け付けない
func hmacKey(secret string) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}
}

// Authorization: Bearer <token> からtokenを抜く。ヘッダなしは missing=true
func bearerToken(header string) (raw string, missing bool) {
	if header == "" {
		return "", true
	}
	scheme, rest, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(rest)
	return raw, raw == ""
}

// bearerAuth用のJWT検証ミドルウェア。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	keyFunc := hmacKey(cfg.JWTSecret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, missing := bearerToken(c.Request().Header.Get("Authorization"))
			if missing {
				return c.JSON(http.StatusUnauthorized, errTokenMissing)
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, errTokenInvalid)
			}

			var claims AccessClaims
			token, err := jwt.ParseWithClaims(raw, &claims, keyFunc)
			if err != nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, errTokenInvalid)
			}

			c.Set(CtxUserIDKey, claims.UserID)
			c.Set(CtxUserRoleKey, string(claims.Role))
			c.Set(CtxTokenVersionKey, claims.TokenVersion)

			return next(c)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
