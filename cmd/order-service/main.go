package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/tgmarket/order-service/internal/config"
	httpserver "github.com/tgmarket/order-service/internal/delivery/http"
	"github.com/tgmarket/order-service/internal/infrastructure/kafka"
	"github.com/tgmarket/order-service/internal/infrastructure/metrics"
	"github.com/tgmarket/order-service/internal/infrastructure/migrate"
	"github.com/tgmarket/order-service/internal/infrastructure/postgres"
	"github.com/tgmarket/order-service/internal/usecase"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}
	// Reading config
	cfg := config.MustLoad()
	// Init database
	db := postgres.MustInitDB(cfg)

	if cfg.StoreDB.MigrationsPath != "" {
		if err := migrate.RunMigrations(db, cfg.StoreDB.MigrationsPath); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	// Document store over postgres
	store := postgres.NewDefaultDocumentStore(db)

	// Kafka lifecycle events
	brokers := []string{fmt.Sprintf("%s:%s", cfg.KafkaService.Host, cfg.KafkaService.Port)}
	publisher := kafka.NewEventPublisher(brokers, cfg.KafkaService.Topic)
	defer publisher.Close()

	// Metrics
	orderMetrics := metrics.NewOrderMetrics()

	// Product repair worker
	repairQueue := usecase.NewProductRepairQueue(store, orderMetrics)
	go repairQueue.StartWorker(context.Background())

	// Init pending order usecase
	pendingUsecase := usecase.NewDefaultPendingOrderUsecase(store)
	// Init card usecase
	cardUsecase := usecase.NewDefaultCardUsecase(store, publisher, orderMetrics)
	// Init order usecase
	orderUsecase := usecase.NewDefaultOrderUsecase(
		store,
		pendingUsecase,
		publisher,
		orderMetrics,
		repairQueue,
	)

	srv := httpserver.NewServer(cfg, orderUsecase, pendingUsecase, cardUsecase)

	log.Printf("http server started on %s:%s\n", cfg.HTTPServer.Host, cfg.HTTPServer.Port)
	if err := srv.Start(); err != nil {
		log.Fatalf("failed to serve: %v\n", err)
	}
}
