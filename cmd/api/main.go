package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-polyglot-store/internal/cache"
	"go-polyglot-store/internal/config"
	"go-polyglot-store/internal/handler"
	"go-polyglot-store/internal/middleware"
	"go-polyglot-store/internal/repository"
	"go-polyglot-store/internal/service"
	"go-polyglot-store/internal/ws"
	"go-polyglot-store/pkg/database"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// 1. Load Env
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// 2. Setup Ledger (Postgres)
	db, err := database.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate ledger tables: %v", err)
	}

	// 3. Setup Catalog (Mongo)
	mongoClient, err := database.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to Mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())

	mongoDB := mongoClient.Database(cfg.MongoDatabase)
	if err := repository.EnsureCatalogIndexes(ctx, mongoDB); err != nil {
		log.Printf("Warning: failed to create catalog indexes: %v", err)
	}

	// 4. Optional facet cache (Redis)
	var facetCache service.FacetCache
	if cfg.RedisURL != "" {
		redisClient, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: facet cache disabled: %v", err)
		} else {
			defer redisClient.Close()
			facetCache = cache.NewFacetCache(redisClient, cfg.FacetCacheTTL)
			log.Println("Facet cache enabled")
		}
	}

	if cfg.AdminPasswordHash == "" {
		log.Println("Warning: ADMIN_PASSWORD_HASH not set, admin login disabled (see cmd/hash-password)")
	}

	// 5. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 6. Dependency Injection (Wiring Layers)
	inventoryRepo := repository.NewInventoryRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	catalogRepo := repository.NewCatalogRepo(mongoDB)
	transactor := repository.NewTransactor(db)

	catalogService := service.NewCatalogService(catalogRepo, inventoryRepo, facetCache, wsHub, service.CatalogOptions{
		PageSize:      cfg.CatalogPageSize,
		AdminPageSize: cfg.AdminPageSize,
	})
	orderService := service.NewOrderService(transactor, inventoryRepo, orderRepo, catalogRepo, wsHub)
	dashService := service.NewDashboardService(catalogService, orderService)
	authService := service.NewAuthService(cfg.AdminUsername, cfg.AdminPasswordHash)

	catalogHandler := handler.NewCatalogHandler(catalogService)
	orderHandler := handler.NewOrderHandler(orderService)
	dashHandler := handler.NewDashboardHandler(dashService)
	authHandler := handler.NewAuthHandler(authService)

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Polyglot Store v1.0",
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 8. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	api.Get("/products", catalogHandler.GetProducts)
	api.Get("/products/:id", catalogHandler.GetProduct)
	api.Get("/facets", catalogHandler.GetFacets)
	api.Post("/checkout", orderHandler.Checkout)
	api.Get("/orders/:id", orderHandler.GetOrder)

	api.Post("/admin/login", authHandler.Login)

	// ============ ADMIN ROUTES ============
	admin := api.Group("/admin", middleware.RequireAdmin())

	admin.Get("/products", catalogHandler.ListProducts)
	admin.Post("/products", catalogHandler.CreateProduct)
	admin.Patch("/products/:id", catalogHandler.UpdateProduct)
	admin.Delete("/products/:id", catalogHandler.DeleteProduct)

	admin.Get("/orders", orderHandler.ListOrders)
	admin.Patch("/orders/:id/status", orderHandler.UpdateOrderStatus)

	admin.Get("/dashboard", dashHandler.GetDashboardStats)
	admin.Get("/dashboard/sales", dashHandler.GetSalesChart)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 9. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Panic(err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Println("Server exited")
}
