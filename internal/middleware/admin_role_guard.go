package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// /admin 配下（出品の操作と注文ステータスの管理）はマーケット運営者専用。
// AuthJWTが先に通ってroleがcontextへ積まれている前提で動く。

const RoleAdmin = "ADMIN"

func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(string)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			// 購入者アカウントのトークンでは出品・注文管理に触れない
			if role != RoleAdmin {
				return c.JSON(http.StatusForbidden, errorJSON("admin only"))
			}

			return next(c)
		}
	}
}
