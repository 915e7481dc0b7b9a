package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/apparel-commerce/internal/api"
	"github.com/example/apparel-commerce/internal/auth"
	"github.com/example/apparel-commerce/internal/command"
	"github.com/example/apparel-commerce/internal/config"
	"github.com/example/apparel-commerce/internal/infrastructure/kafka"
	"github.com/example/apparel-commerce/internal/infrastructure/store"
	"github.com/example/apparel-commerce/internal/query"
	"github.com/example/apparel-commerce/internal/razorpay"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("service", "api").Logger()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	log.Info().
		Strs("kafka_brokers", cfg.Brokers()).
		Str("kafka_topic", cfg.KafkaTopic).
		Str("http_addr", cfg.HTTPAddr).
		Msg("starting order service")

	db, err := store.ConnectPostgres(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer db.Close()
	log.Info().Msg("connected to postgres")

	producer := kafka.NewProducer(cfg.Brokers(), cfg.KafkaTopic)
	defer producer.Close()

	st := store.NewPostgresStore(db)
	gateway := razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	jwtService := auth.NewJWTService(cfg.JWTSecret, time.Duration(cfg.TokenExpiryHours)*time.Hour)

	cmdHandler := command.NewHandler(st, gateway, producer, log)
	queryHandler := query.NewHandler(st)

	router := api.NewRouter(api.RouterConfig{
		Handlers:     api.NewHandlers(cmdHandler, queryHandler, log),
		AuthHandlers: api.NewAuthHandlers(st, jwtService, log),
		JWTService:   jwtService,
		Logger:       log,
	})

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("server started")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
