package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	forecasthandler "github.com/pharmalink/pharmalink-backend/internal/forecast/handler"
	forecastrepo "github.com/pharmalink/pharmalink-backend/internal/forecast/repository"
	forecastservice "github.com/pharmalink/pharmalink-backend/internal/forecast/service"
	invhandler "github.com/pharmalink/pharmalink-backend/internal/inventory/handler"
	invrepo "github.com/pharmalink/pharmalink-backend/internal/inventory/repository"
	invservice "github.com/pharmalink/pharmalink-backend/internal/inventory/service"
	"github.com/pharmalink/pharmalink-backend/internal/order/consumers"
	"github.com/pharmalink/pharmalink-backend/internal/order/events"
	orderhandler "github.com/pharmalink/pharmalink-backend/internal/order/handler"
	orderrepo "github.com/pharmalink/pharmalink-backend/internal/order/repository"
	orderservice "github.com/pharmalink/pharmalink-backend/internal/order/service"
	"github.com/pharmalink/pharmalink-backend/pkg/config"
	"github.com/pharmalink/pharmalink-backend/pkg/database"
	"github.com/pharmalink/pharmalink-backend/pkg/httputil"
	"github.com/pharmalink/pharmalink-backend/pkg/logger"
	"github.com/pharmalink/pharmalink-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("commerce-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("commerce-service", cfg.Server.Environment)
	log.Info().Msg("starting Commerce Service")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	publisher, err := events.NewOrderEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Repositories
	productRepo := invrepo.NewProductRepository(db)
	batchRepo := invrepo.NewBatchRepository(db)
	trendRepo := invrepo.NewTrendRepository(db)
	orderRepo := orderrepo.NewOrderRepository(db)
	connRepo := orderrepo.NewConnectionRepository(db)
	salesRepo := forecastrepo.NewSalesRepository(db)

	// Services
	ledgerService := invservice.NewLedgerService(productRepo, batchRepo, trendRepo, log)
	allocatorService := invservice.NewAllocatorService(batchRepo, log)
	matcherService := invservice.NewMatcherService(productRepo, log)
	transferService := orderservice.NewTransferService(allocatorService, matcherService, productRepo, batchRepo, cfg.Transfer, log)
	ordersService := orderservice.NewOrderService(orderRepo, connRepo, productRepo, transferService, publisher, db, log)
	demandService := forecastservice.NewDemandService(productRepo, batchRepo, trendRepo, salesRepo, cfg.Forecast, log)
	expiryService := forecastservice.NewExpiryService(productRepo, batchRepo, salesRepo, cfg.Forecast, log)

	// Handlers
	productHandler := invhandler.NewProductHandler(ledgerService, log)
	batchHandler := invhandler.NewBatchHandler(ledgerService, log)
	trendHandler := invhandler.NewTrendHandler(ledgerService, log)
	orderHandler := orderhandler.NewOrderHandler(ordersService, log)
	forecastHandler := forecasthandler.NewForecastHandler(demandService, expiryService, log)

	// Keep the connection cache synced with the external directory
	connectionConsumer, err := consumers.NewConnectionEventConsumer(rmq, connRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create connection event consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := connectionConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start connection event consumer")
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			if origin == "http://localhost:3000" || origin == "http://localhost:5173" {
				return true
			}
			return strings.HasSuffix(origin, ".pharmalink.in")
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Tenant-ID", "X-Tenant-Role", "X-User-ID", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(httputil.TenantMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "commerce-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Post("/", productHandler.Create)
			r.Get("/{id}", productHandler.Get)
			r.Put("/{id}", productHandler.Update)
			r.Get("/{id}/batches", batchHandler.ListByProduct)
			r.Post("/{id}/batches", batchHandler.Create)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.List)
			r.Post("/", orderHandler.Place)
			r.Get("/{id}", orderHandler.Get)
			r.Post("/{id}/transition", orderHandler.Transition)
			r.Post("/{id}/assign", orderHandler.Assign)
		})

		r.Route("/trends", func(r chi.Router) {
			r.Get("/", trendHandler.List)
			r.Post("/", trendHandler.Create)
			r.Get("/{id}", trendHandler.Get)
			r.Post("/{id}/archive", trendHandler.Archive)
		})

		r.Route("/forecast", func(r chi.Router) {
			r.Get("/demand", forecastHandler.Demand)
			r.Get("/expiry-risk", forecastHandler.ExpiryRisk)
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
