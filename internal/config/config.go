package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	AppEnv  string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	JWTSecret    string
	ServiceToken string

	InventoryURL    string
	CartURL         string
	IdentityURL     string
	NotificationURL string

	PaymentBaseURL     string
	PaymentAPIKey      string
	WebhookSecret      string
	CheckoutSuccessURL string
	CheckoutCancelURL  string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort: os.Getenv("APP_PORT"),
		AppEnv:  os.Getenv("APP_ENV"),

		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		ServiceToken: os.Getenv("SERVICE_TOKEN"),

		InventoryURL:    os.Getenv("INVENTORY_SERVICE_URL"),
		CartURL:         os.Getenv("CART_SERVICE_URL"),
		IdentityURL:     os.Getenv("IDENTITY_SERVICE_URL"),
		NotificationURL: os.Getenv("NOTIFICATION_SERVICE_URL"),

		PaymentBaseURL:     os.Getenv("PAYMENT_BASE_URL"),
		PaymentAPIKey:      os.Getenv("PAYMENT_APIKEY"),
		WebhookSecret:      os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		CheckoutSuccessURL: os.Getenv("CHECKOUT_SUCCESS_URL"),
		CheckoutCancelURL:  os.Getenv("CHECKOUT_CANCEL_URL"),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}
