package main

import (
	"net/http"

	"storefront-be/internal/clients"
	"storefront-be/internal/config"
	"storefront-be/internal/db"
	"storefront-be/internal/logger"
	"storefront-be/internal/notification"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/payment/webhook"
	"storefront-be/internal/transport"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	inventory := clients.NewInventoryClient(cfg.InventoryURL)
	cart := clients.NewCartClient(cfg.CartURL)
	identity := clients.NewIdentityClient(cfg.IdentityURL)
	mailer := notification.NewMailer(cfg.NotificationURL)
	gateway := payment.NewCheckoutGateway(cfg.PaymentBaseURL, cfg.PaymentAPIKey, cfg.WebhookSecret)

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(
		orderRepo, inventory, cart, identity, gateway, mailer,
		cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL, cfg.ServiceToken,
	)

	webhookLedger := payment.NewRepository(database)
	webhookHandler := webhook.NewHandler(gateway, orderSvc, webhookLedger)

	router := transport.NewRouter(orderSvc, webhookHandler, cfg.JWTSecret)

	addr := ":" + cfg.AppPort
	logger.L().Info("order service listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, router); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}
