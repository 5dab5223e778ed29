package db

import (
	"database/sql"
	"fmt"
	"time"

	"storefront-be/internal/config"
	"storefront-be/internal/logger"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func InitDB(cfg *config.Config) *sql.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.L().Fatal("failed to open database", zap.Error(err))
	}

	// Checkout and webhook transactions are short; a modest pool keeps
	// Postgres comfortable under checkout bursts.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err = db.Ping(); err != nil {
		logger.L().Fatal("failed to ping database", zap.Error(err))
	}

	logger.L().Info("database connection established",
		zap.String("host", cfg.DBHost),
		zap.String("database", cfg.DBName),
	)
	return db
}
