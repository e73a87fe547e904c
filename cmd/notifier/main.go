package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace-core/internal/config"
	kafkax "github.com/ariefcatur/go-marketplace-core/internal/kafka"
	"github.com/ariefcatur/go-marketplace-core/internal/logging"
	"github.com/ariefcatur/go-marketplace-core/internal/notify"
	"github.com/ariefcatur/go-marketplace-core/internal/orders"
	"github.com/ariefcatur/go-marketplace-core/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	name := cfg.ServiceName + "-notifier"
	log, err := logging.New(cfg.LogLevel, name)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{Redis: rdb, Log: log, ServiceName: name}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, orders.TopicOrderStatusChanged, cfg.NotifierWorkers, log)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("notifier consumer started",
			zap.String("group", cfg.NotifierGroup),
			zap.String("topic", orders.TopicOrderStatusChanged),
			zap.Int("workers", cfg.NotifierWorkers))
		if err := cons.Start(ctx, svc.HandleStatusChanged); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
	<-done
}
