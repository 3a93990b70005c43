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

// 出品（商品×サプライヤー）の管理API
type AdminOfferHandler struct {
	uc *usecase.OfferUsecase
}

func NewAdminOfferHandler(uc *usecase.OfferUsecase) *AdminOfferHandler {
	return &AdminOfferHandler{uc: uc}
}

type CreateOfferRequest struct {
	ProductID  int64  `json:"product_id"`
	SupplierID int64  `json:"supplier_id"`
	Price      string `json:"price"`
	Quantity   int64  `json:"quantity"`
}

type SetPriceRequest struct {
	Price string `json:"price"`
}

type SetQuantityRequest struct {
	Quantity int64  `json:"quantity"`
	Reason   string `json:"reason"`
}

type RemoveOfferRequest struct {
	ProductID  int64 `json:"product_id"`
	SupplierID int64 `json:"supplier_id"`
}

func (h *AdminOfferHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/admin/offers")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.AdminRoleGuard())

	g.POST("", h.create)
	g.PUT("/:id/price", h.setPrice)
	g.PUT("/:id/quantity", h.setQuantity)
	g.DELETE("", h.remove)
	g.GET("/:id/adjustments", h.adjustments)
}

func (h *AdminOfferHandler) create(c echo.Context) error {
	var req CreateOfferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid price"})
	}

	out, err := h.uc.CreateOffer(c.Request().Context(), usecase.CreateOfferInput{
		ProductID:  req.ProductID,
		SupplierID: req.SupplierID,
		Price:      price,
		Quantity:   req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOfferHandler) setPrice(c echo.Context) error {
	offerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req SetPriceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid price"})
	}

	if err := h.uc.SetPrice(c.Request().Context(), offerID, price); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminOfferHandler) setQuantity(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	offerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req SetQuantityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.SetQuantity(c.Request().Context(), adminID, offerID, req.Quantity, req.Reason); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminOfferHandler) remove(c echo.Context) error {
	var req RemoveOfferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.RemoveOffer(c.Request().Context(), req.ProductID, req.SupplierID, false); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminOfferHandler) adjustments(c echo.Context) error {
	offerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.ListAdjustments(c.Request().Context(), offerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
