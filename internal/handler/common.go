package handler

import (
	"net/http"

	"marketplace/internal/middleware"
	repo "marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type StockIssuesResponse struct {
	Error  string               `json:"error"`
	Issues []usecase.StockIssue `json:"issues"`
}

// usecaseの型付きエラーをHTTPステータスへ変換する唯一の場所。
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	if _, ok := usecase.AsUnauthorizedError(err); ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	if ve, ok := usecase.AsValidationError(err); ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: ve.Message})
	}
	if nf, ok := usecase.AsNotFoundError(err); ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: nf.Error()})
	}
	if se, ok := usecase.AsStockIssuesError(err); ok {
		return c.JSON(http.StatusBadRequest, StockIssuesResponse{Error: "stock issues", Issues: se.Issues})
	}
	if ie, ok := usecase.AsInsufficientStockError(err); ok {
		if ie.Fatal {
			// 検証パスで弾けているはずの競合。調査用にログへ残して500。
			log.Errorf("fatal stock conflict: %v", ie)
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		}
		return c.JSON(http.StatusConflict, ErrorResponse{Error: ie.Error()})
	}

	//500
	log.Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// ミドルウェアが積んだ持ち主情報（user or guest）を取り出す
func getIdentity(c echo.Context) repo.Identity {
	var id repo.Identity
	if v, ok := c.Get(middleware.CtxUserIDKey).(int64); ok {
		id.UserID = v
	}
	if v, ok := c.Get(middleware.CtxGuestTokenKey).(string); ok {
		id.GuestToken = v
	}
	return id
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	v, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}
