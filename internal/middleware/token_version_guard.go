package middleware

import (
	"errors"
	"net/http"

	"bakery/internal/repository"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// JWTのtvとDBのtoken_versionの一致と、アカウントが有効かを確認。
// roleもDBの値で上書きする（降格・昇格を即時反映）
func TokenVersionGuard(userRepo repository.UserRepository, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//AuthJWTが入れたuser_id を取得する
			rawUserID := c.Get(CtxUserIDKey)
			userID, ok := rawUserID.(int64)
			if !ok || userID <= 0 {
				return c.JSON(http.StatusUnauthorized, errTokenInvalid)
			}

			//AuthJWTが入れたtoken_version(tv)を取得する
			rawTV := c.Get(CtxTokenVersionKey)
			tv, ok := rawTV.(int)
			if !ok || tv < 0 {
				return c.JSON(http.StatusUnauthorized, errTokenInvalid)
			}

			//DBから最新のuserを取得する
			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if errors.Is(err, repository.ErrNotFound) || (err == nil && user == nil) {
				return c.JSON(http.StatusUnauthorized, errorJSON("User not found"))
			}
			if err != nil {
				logger.Error("token version guard: find user", zap.Int64("user_id", userID), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
			}

			//無効化されたアカウント
			if !user.IsActive {
				return c.JSON(http.StatusUnauthorized, errorJSON("Account is deactivated"))
			}

			//token_version が一致しなければ強制ログアウト扱い（401）
			if user.TokenVersion != tv {
				return c.JSON(http.StatusUnauthorized, errorJSON("Token has been revoked"))
			}

			c.Set(CtxUserRoleKey, string(user.Role))
			return next(c)
		}
	}
}
