package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-marketplace/internal/accounts"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/config"
	"github.com/ariefcatur/go-marketplace/internal/httpx"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/orders"
	"github.com/ariefcatur/go-marketplace/internal/payments"
	"github.com/ariefcatur/go-marketplace/internal/postgres"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pOrders := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pOrders.Start(ctx)
	pPayOK := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentCompleted, 1024)
	pPayOK.Start(ctx)
	pPayFail := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentFailed, 1024)
	pPayFail.Start(ctx)

	// Repos & services
	orderRepo := &orders.Repo{DB: db}
	paymentRepo := &payments.Repo{DB: db}
	statusCache := &redisx.StatusCache{Client: rdb}
	paymentSvc := &payments.Service{
		Orders:            orderRepo,
		Store:             paymentRepo,
		Gateway:           payments.NewGateway(cfg.GatewayDelay, int64(cfg.CODFeeCents)),
		Cache:             statusCache,
		ProducerCompleted: pPayOK,
		ProducerFailed:    pPayFail,
		ServiceName:       cfg.ServiceName,
		DefaultCurrency:   cfg.DefaultCurrency,
	}

	router := httpx.NewRouter()
	(&httpx.OrdersHandler{Repo: orderRepo, Producer: pOrders, Redis: rdb, Service: cfg.ServiceName}).Register(router)
	(&httpx.PaymentsHandler{Processor: paymentSvc, Store: paymentRepo, Orders: orderRepo, Cache: statusCache}).Register(router)
	(&httpx.ProductsHandler{Repo: &catalog.Repo{DB: db}}).Register(router)
	(&httpx.AccountsHandler{Repo: &accounts.Repo{DB: db}, Resets: &accounts.ResetStore{Redis: rdb}}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sig:
		case <-gctx.Done():
		}
		log.Println("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Printf("serve: %v", err)
	}

	pOrders.Close()
	pPayOK.Close()
	pPayFail.Close()
	cancel()
	pOrders.WaitClosed()
	pPayOK.WaitClosed()
	pPayFail.WaitClosed()
}
