package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/chaintrack/chaintrack/internal/audit"
	"github.com/chaintrack/chaintrack/internal/authenticity"
	"github.com/chaintrack/chaintrack/internal/bulk"
	"github.com/chaintrack/chaintrack/internal/cart"
	"github.com/chaintrack/chaintrack/internal/catalog"
	"github.com/chaintrack/chaintrack/internal/config"
	"github.com/chaintrack/chaintrack/internal/events"
	"github.com/chaintrack/chaintrack/internal/httpx"
	kafkax "github.com/chaintrack/chaintrack/internal/kafka"
	"github.com/chaintrack/chaintrack/internal/orders"
	"github.com/chaintrack/chaintrack/internal/postgres"
	"github.com/chaintrack/chaintrack/internal/redisx"
	"github.com/chaintrack/chaintrack/internal/units"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		logrus.WithError(err).Fatal("migrate")
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logrus.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pUnits := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicUnits, 1024)
	pUnits.Start(ctx)
	pStock := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicStock, 1024)
	pStock.Start(ctx)
	pOrders := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrders, 1024)
	pOrders.Start(ctx)

	// Domain wiring
	catalogRepo := &catalog.Repo{DB: db}
	unitRepo := &units.Repo{DB: db}
	verifier, err := authenticity.New(cfg.AuthSecret, unitRepo)
	if err != nil {
		logrus.WithError(err).Fatal("verifier")
	}
	unitRepo.Hasher = verifier
	bulkRepo := &bulk.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db, Units: unitRepo, Bulk: bulkRepo}
	coordinator := &orders.Coordinator{
		Catalog:  catalogRepo,
		Store:    orderRepo,
		Units:    unitRepo,
		Producer: pOrders,
		Service:  cfg.ServiceName,
	}

	router := httpx.NewRouter()
	(&httpx.CatalogHandler{Catalog: catalogRepo}).Register(router)
	(&httpx.UnitsHandler{Units: unitRepo, Catalog: catalogRepo, Producer: pUnits, Redis: rdb, Service: cfg.ServiceName}).Register(router)
	(&httpx.StockHandler{Bulk: bulkRepo, Catalog: catalogRepo, Producer: pStock, Service: cfg.ServiceName}).Register(router)
	(&httpx.OrdersHandler{Coordinator: coordinator, Redis: rdb}).Register(router)
	(&httpx.CartHandler{Cart: &cart.Store{Redis: rdb}, Coordinator: coordinator}).Register(router)
	(&httpx.VerifyHandler{Verifier: verifier, Redis: rdb}).Register(router)
	(&httpx.AuditHandler{Audit: &audit.Repo{DB: db}}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logrus.Infof("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logrus.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range []*kafkax.Producer{pUnits, pStock, pOrders} {
		p.Close() // close inbox -> flush & close writer
	}
	for _, p := range []*kafkax.Producer{pUnits, pStock, pOrders} {
		p.WaitClosed() // drain
	}
}
