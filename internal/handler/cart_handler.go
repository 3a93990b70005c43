package handler

import (
	"net/http"
	"strconv"

	"marketplace/internal/config"
	"marketplace/internal/middleware"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type AddItemRequest struct {
	OfferID  int64 `json:"offer_id"`
	Quantity int64 `json:"quantity"`
}

type UpdateItemRequest struct {
	Quantity int64 `json:"quantity"`
}

type ApplyCouponRequest struct {
	Code string `json:"code"`
}

type SetShippingRequest struct {
	Cost string `json:"cost"`
}

type SetPaymentRequest struct {
	Method string `json:"method"`
}

type SetContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type SetVatRequest struct {
	VatNumber string `json:"vat_number"`
}

type ClaimRequest struct {
	GuestToken string `json:"guest_token"`
}

func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/cart")
	g.Use(middleware.ResolveIdentity(cfg))

	g.GET("", h.getCart)
	g.POST("/items", h.addItem)
	g.PATCH("/items/:id", h.patchItem)
	g.DELETE("/items/:id", h.deleteItem)
	g.POST("/coupon", h.applyCoupon)
	g.PUT("/shipping", h.setShipping)
	g.PUT("/payment", h.setPayment)
	g.PUT("/contact", h.setContact)
	g.PUT("/vat", h.setVat)
	g.POST("/claim", h.claim)

	// ゲストトークン発行は持ち主不要
	e.POST("/cart/guest-token", h.issueGuestToken)
}

func (h *CartHandler) getCart(c echo.Context) error {
	out, err := h.uc.GetCart(c.Request().Context(), getIdentity(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addItem(c echo.Context) error {
	var req AddItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.AddItem(c.Request().Context(), getIdentity(c), usecase.AddItemInput{
		OfferID:  req.OfferID,
		Quantity: req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) patchItem(c echo.Context) error {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req UpdateItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.UpdateItem(c.Request().Context(), getIdentity(c), itemID, usecase.UpdateItemInput{
		Quantity: req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.RemoveItem(c.Request().Context(), getIdentity(c), itemID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) applyCoupon(c echo.Context) error {
	var req ApplyCouponRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.ApplyCoupon(c.Request().Context(), getIdentity(c), req.Code)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) setShipping(c echo.Context) error {
	var req SetShippingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	cost, err := decimal.NewFromString(req.Cost)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid cost"})
	}

	out, err := h.uc.SetShipping(c.Request().Context(), getIdentity(c), cost)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) setPayment(c echo.Context) error {
	var req SetPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.SetPayment(c.Request().Context(), getIdentity(c), req.Method)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) setContact(c echo.Context) error {
	var req SetContactRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.SetContact(c.Request().Context(), getIdentity(c), usecase.ContactInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) setVat(c echo.Context) error {
	var req SetVatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.SetVat(c.Request().Context(), getIdentity(c), req.VatNumber)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ログイン直後のゲストカート引き継ぎ
func (h *CartHandler) claim(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req ClaimRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.ClaimGuestCart(c.Request().Context(), userID, req.GuestToken)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) issueGuestToken(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"guest_token": h.uc.IssueGuestToken()})
}
