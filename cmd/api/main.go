package main

import (
	"context"

	"marketplace/internal/config"
	"marketplace/internal/domain/model"
	"marketplace/internal/handler"
	"marketplace/internal/infra/db"
	infraRepo "marketplace/internal/infra/repository"
	"marketplace/internal/job"
	"marketplace/internal/notification"
	"marketplace/internal/server"
	"marketplace/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"gorm.io/gorm/clause"
)

func main() {
	// .env はローカル開発用。本番では環境変数を直接渡す。
	if err := godotenv.Load(); err != nil {
		log.Infof("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		panic(err)
	}
	if err := gormDB.AutoMigrate(
		&model.Supplier{},
		&model.Product{},
		&model.Offer{},
		&model.OfferAdjustment{},
		&model.User{},
		&model.Cart{},
		&model.CartSupplierGroup{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderSupplierGroup{},
		&model.OrderItem{},
		&model.Coupon{},
		&model.Counter{},
	); err != nil {
		panic(err)
	}

	// 注文番号カウンタは起動時に播種しておく。初回注文どうしの行作成競合を避ける。
	if err := gormDB.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Counter{Name: model.CounterOrderCode, Value: 0}).Error; err != nil {
		panic(err)
	}

	tx := infraRepo.NewTxManagerGorm(gormDB)

	cartUC := usecase.NewCartUsecase(tx)
	offerUC := usecase.NewOfferUsecase(tx)
	checkoutUC := usecase.NewCheckoutUsecase(tx, cartUC, notification.NewLogNotifier())

	h := server.Handlers{
		Cart:       handler.NewCartHandler(cartUC),
		Order:      handler.NewOrderHandler(checkoutUC),
		AdminOffer: handler.NewAdminOfferHandler(offerUC),
		AdminOrder: handler.NewAdminOrderHandler(checkoutUC),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go job.NewSweeper(tx, cfg.StaleCartDays, cfg.DormantUserDays).Run(ctx)

	if err := server.Start(":"+cfg.Port, cfg, h); err != nil {
		panic(err)
	}
}
