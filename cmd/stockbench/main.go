package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go-polyglot-store/internal/bench"
	"go-polyglot-store/internal/config"
	"go-polyglot-store/internal/model"
	"go-polyglot-store/internal/repository"
	"go-polyglot-store/internal/service"
	"go-polyglot-store/pkg/database"

	"github.com/shopspring/decimal"
)

func main() {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	configPath := flag.String("config", "stockbench.yaml", "path to the benchmark config")
	concurrency := flag.Int("concurrency", 0, "override benchmark_settings.concurrency")
	flag.Parse()

	cfg, err := config.LoadBenchConfig(*configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		exitCode = 1
		return
	}
	if *concurrency > 0 {
		cfg.Settings.Concurrency = *concurrency
	}

	timeout, err := time.ParseDuration(cfg.Settings.Timeout)
	if err != nil {
		log.Printf("Invalid timeout %q: %v", cfg.Settings.Timeout, err)
		exitCode = 1
		return
	}
	unitPrice, err := decimal.NewFromString(cfg.Settings.UnitPrice)
	if err != nil {
		log.Printf("Invalid unit price %q: %v", cfg.Settings.UnitPrice, err)
		exitCode = 1
		return
	}

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSetup()

	// 1. Connect both stores
	db, err := database.ConnectPostgres(cfg.Databases.Postgres)
	if err != nil {
		log.Printf("Failed to connect to Postgres: %v", err)
		exitCode = 1
		return
	}
	if err := repository.Migrate(db); err != nil {
		log.Printf("Failed to migrate ledger: %v", err)
		exitCode = 1
		return
	}

	mongoClient, err := database.ConnectMongo(setupCtx, cfg.Databases.Mongo)
	if err != nil {
		log.Printf("Failed to connect to Mongo: %v", err)
		exitCode = 1
		return
	}
	defer mongoClient.Disconnect(context.Background())

	mongoDB := mongoClient.Database(cfg.Databases.MongoDB)
	inventoryRepo := repository.NewInventoryRepo(db)
	catalogRepo := repository.NewCatalogRepo(mongoDB)

	catalogService := service.NewCatalogService(catalogRepo, inventoryRepo, nil, nil, service.CatalogOptions{})
	orderService := service.NewOrderService(repository.NewTransactor(db), inventoryRepo, repository.NewOrderRepo(db), catalogRepo, nil)

	// 2. Seed the contended product through the regular dual write
	product, err := catalogService.Create(setupCtx, service.CreateProductInput{
		Name:     fmt.Sprintf("Stockbench %d", time.Now().Unix()),
		Price:    unitPrice,
		Category: "Benchmark",
	}, cfg.Settings.InitialStock)
	if err != nil {
		log.Printf("Failed to seed product: %v", err)
		exitCode = 1
		return
	}
	productID := product.ID.Hex()

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := catalogService.Delete(cleanupCtx, productID); err != nil {
			log.Printf("Failed to delete bench product: %v", err)
		}
		err := db.WithContext(cleanupCtx).
			Where("customer_email LIKE ?", "%@"+bench.BenchEmailDomain).
			Delete(&model.Order{}).Error
		if err != nil {
			log.Printf("Failed to purge bench orders: %v", err)
		}
	}()

	fmt.Printf("Running checkout contention on %s: %d units, %d workers...\n",
		productID, cfg.Settings.InitialStock, cfg.Settings.Concurrency)

	// 3. Run
	runCtx, cancelRun := context.WithTimeout(context.Background(), timeout)
	defer cancelRun()

	b := &bench.CheckoutContention{
		Orders:       orderService,
		Stock:        inventoryRepo,
		ProductID:    productID,
		InitialStock: cfg.Settings.InitialStock,
		Concurrency:  cfg.Settings.Concurrency,
		UnitPrice:    unitPrice,
	}
	result, err := b.Run(runCtx)
	if err != nil {
		log.Printf("Benchmark failed: %v", err)
		exitCode = 1
		return
	}

	// 4. Report
	jsonOutput, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Printf("Failed to marshal result: %v", err)
		exitCode = 1
		return
	}
	fmt.Println(string(jsonOutput))

	if !result.DataIntegrity {
		log.Printf("Data integrity check FAILED: final stock %d, initial %d, sold %d",
			result.FinalStock, result.InitialStock, result.Succeeded)
		exitCode = 2
	}
}
