package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/chaintrack/chaintrack/internal/audit"
	"github.com/chaintrack/chaintrack/internal/config"
	"github.com/chaintrack/chaintrack/internal/events"
	kafkax "github.com/chaintrack/chaintrack/internal/kafka"
	"github.com/chaintrack/chaintrack/internal/postgres"
	"github.com/chaintrack/chaintrack/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logrus.WithError(err).Fatal("db")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &audit.Service{
		Repo:        &audit.Repo{DB: db},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-audit",
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range []string{events.TopicUnits, events.TopicStock, events.TopicOrders} {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.AuditGroup, topic, cfg.AuditWorkers)
		topic := topic
		g.Go(func() error {
			logrus.Infof("audit consumer started: group=%s topic=%s workers=%d", cfg.AuditGroup, topic, cfg.AuditWorkers)
			return cons.Start(gctx, svc.Handle)
		})
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logrus.Info("shutting down consumers...")
		cancel()
	case <-gctx.Done():
	}

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("consumer exit")
	}
}
