package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/example/apparel-commerce/internal/config"
	"github.com/example/apparel-commerce/internal/email"
	"github.com/example/apparel-commerce/internal/infrastructure/kafka"
	"github.com/example/apparel-commerce/internal/infrastructure/store"
	"github.com/example/apparel-commerce/internal/notification"
)

const consumerGroup = "email-notifier"

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("service", "notifier").Logger()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	log.Info().
		Strs("kafka_brokers", cfg.Brokers()).
		Str("kafka_topic", cfg.KafkaTopic).
		Str("group", consumerGroup).
		Str("smtp", cfg.SMTPHost+":"+cfg.SMTPPort).
		Msg("starting email notification service")

	db, err := store.ConnectPostgres(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer db.Close()

	st := store.NewPostgresStore(db)
	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	handler := notification.NewHandler(emailSvc, st, log)

	consumer := kafka.NewConsumer(cfg.Brokers(), cfg.KafkaTopic, consumerGroup, log)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		log.Info().Msg("starting event consumer")
		if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("consumer error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	cancel()
}
