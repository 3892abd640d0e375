package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/ecomstack/storefront/internal/accounts"
	"github.com/ecomstack/storefront/internal/auth"
	"github.com/ecomstack/storefront/internal/cart"
	"github.com/ecomstack/storefront/internal/config"
	"github.com/ecomstack/storefront/internal/events"
	"github.com/ecomstack/storefront/internal/httpapi"
	"github.com/ecomstack/storefront/internal/inventory"
	"github.com/ecomstack/storefront/internal/notify"
	"github.com/ecomstack/storefront/internal/orders"
	"github.com/ecomstack/storefront/internal/stores/postgres"
	"github.com/ecomstack/storefront/internal/websocket"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg := config.Load()

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Wait for database to be ready.
	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			logger.Info("Database connection established")
			break
		}
		logger.Info("Waiting for database...")
		time.Sleep(2 * time.Second)
	}

	store := postgres.NewStore(db)
	if err := store.EnsureSchema(context.Background()); err != nil {
		logger.WithError(err).Fatal("Failed to create tables")
	}

	producer, err := events.NewKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Kafka producer")
	}
	defer producer.Close()

	dispatcher := notify.NewDispatcher(producer, logger)

	hub := websocket.NewHub(logger)
	go hub.Run()

	tokens := auth.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	accountsSvc := accounts.NewService(store, tokens, cfg.OTPTTL, logger)
	accountsSvc.SetOTPSender(dispatcher)

	ledger := inventory.NewLedger(store, logger)
	cartSvc := cart.NewService(store, store, logger)

	ordersSvc := orders.NewService(store, ledger, store, accountsSvc, store, logger)
	ordersSvc.SetNotifier(dispatcher)
	ordersSvc.SetBroadcaster(hub)

	server := httpapi.NewServer(logger, tokens, accountsSvc, cartSvc, ledger, ordersSvc, hub)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("Starting storefront service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server gracefully stopped")
}
