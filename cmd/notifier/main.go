package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tazhibayda/selectshop/internal/config"
	applog "github.com/tazhibayda/selectshop/internal/log"
	"github.com/tazhibayda/selectshop/internal/mail"
	"github.com/tazhibayda/selectshop/internal/queue"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadNotifier()
	if err != nil {
		panic(err)
	}
	logger, err := applog.Init(cfg.AppEnv == "prod")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cons, err := queue.NewConsumer(cfg.RabbitURL, cfg.Exchange, cfg.Queue, cfg.BindKeys, logger)
	if err != nil {
		logger.Fatal("rabbit consumer init", zap.Error(err))
	}
	defer cons.Close()

	notifier := mail.NewNotifier(mail.NewSender(logger), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("notifier up",
		zap.String("exchange", cfg.Exchange),
		zap.String("queue", cfg.Queue),
		zap.Strings("keys", cfg.BindKeys),
		zap.Int("workers", cfg.Concurrency),
	)
	if err := cons.Consume(ctx, cfg.Concurrency, notifier.Handle); err != nil {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
}
