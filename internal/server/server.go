package server

import (
	"marketplace/internal/config"
	"marketplace/internal/handler"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Handlers struct {
	Cart       *handler.CartHandler
	Order      *handler.OrderHandler
	AdminOffer *handler.AdminOfferHandler
	AdminOrder *handler.AdminOrderHandler
}

func Start(addr string, cfg config.Config, h Handlers) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	h.Cart.RegisterRoutes(e, cfg)
	h.Order.RegisterRoutes(e, cfg)
	h.AdminOffer.RegisterRoutes(e, cfg)
	h.AdminOrder.RegisterRoutes(e, cfg)

	return e.Start(addr)
}
