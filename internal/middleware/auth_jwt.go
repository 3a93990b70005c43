package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"marketplace/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey     = "user_id"     // int64
	CtxUserRoleKey   = "user_role"   // string
	CtxGuestTokenKey = "guest_token" // string
)

// bearerAuth用のJWT検証ミドルウェア。管理者ルートで使う（必須）。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, role, err := parseBearer(c, cfg)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxUserIDKey, userID)
			c.Set(CtxUserRoleKey, role)
			return next(c)
		}
	}
}

// カート・注文ルート用。ログイン済みならJWTのユーザー、
// 未ログインなら X-Guest-Token をそのまま持ち主として通す。
// どちらも無い場合も通す（usecase側が401を返す）。
func ResolveIdentity(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") != "" {
				userID, role, err := parseBearer(c, cfg)
				if err != nil {
					return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
				}
				c.Set(CtxUserIDKey, userID)
				c.Set(CtxUserRoleKey, role)
				return next(c)
			}

			if tok := strings.TrimSpace(c.Request().Header.Get("X-Guest-Token")); tok != "" {
				c.Set(CtxGuestTokenKey, tok)
			}
			return next(c)
		}
	}
}

func parseBearer(c echo.Context, cfg config.Config) (int64, string, error) {
	authz := c.Request().Header.Get("Authorization")
	if authz == "" {
		return 0, "", errors.New("missing authorization")
	}

	//Bearer形式か確認してtokenを抜く
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return 0, "", errors.New("not bearer")
	}
	rawToken := strings.TrimSpace(parts[1])
	if rawToken == "" {
		return 0, "", errors.New("empty token")
	}

	//JWTをパースして検証する
	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || token == nil || !token.Valid {
		return 0, "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", errors.New("invalid claims")
	}

	userID, err := parseUserID(claims["sub"])
	if err != nil || userID <= 0 {
		return 0, "", errors.New("invalid sub")
	}

	//roleを取り出す（USER/ADMIN）
	role, err := parseString(claims["role"])
	if err != nil || role == "" {
		return 0, "", errors.New("invalid role")
	}

	return userID, role, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

// user_idをint64に変換する
func parseUserID(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("invalid sub")
	}
}

func parseString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New("invalid string")
	}
	return s, nil
}
