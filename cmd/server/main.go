package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/kasirku/pos-sync-backend/internal/api/handlers"
	"github.com/kasirku/pos-sync-backend/internal/config"
	"github.com/kasirku/pos-sync-backend/internal/remote"
	"github.com/kasirku/pos-sync-backend/internal/repository"
	"github.com/kasirku/pos-sync-backend/internal/service"
)

func main() {
	// LOAD ENV
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed load config:", err)
	}

	// process-lifetime context; teardown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// LOCAL STORE
	store, err := repository.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("failed open local store:", err)
	}
	defer store.Close()

	if err := store.RunMigrations(ctx); err != nil {
		log.Fatal("migration error:", err)
	}

	// REMOTE CLIENT
	client := remote.NewClient(remote.Config{
		BaseURL:        cfg.RemoteBaseURL,
		ConsumerKey:    cfg.ConsumerKey,
		ConsumerSecret: cfg.ConsumerSecret,
		Timeout:        cfg.HTTPTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
	})

	// SERVICES
	productSync := service.NewProductSyncService(store, client)
	customerSync := service.NewCustomerSyncService(store, client)
	orderSync := service.NewOrderSyncService(store, client)
	inventorySync := service.NewInventorySyncService(store, client)
	queue := service.NewQueueService(store, orderSync, cfg.MaxAttempts, cfg.RetryWindow)

	orchestrator := service.NewOrchestrator(store, queue, productSync, customerSync, orderSync, inventorySync,
		service.Toggles{
			Orders:    cfg.SyncOrders,
			Products:  cfg.SyncProducts,
			Customers: cfg.SyncCustomers,
			Inventory: cfg.SyncInventory,
		}, cfg.ImportInterval)

	monitor := service.NewConnectionMonitor(func(ctx context.Context) error {
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		_, err := client.TestConnection(probeCtx)
		return err
	}, cfg.ProbeInterval, orchestrator.TriggerNow)

	register := service.NewRegisterService(store, queue, monitor, orchestrator)

	monitor.Start(ctx)
	orchestrator.StartScheduler(ctx, cfg.SyncInterval)

	// HANDLERS
	syncHandler := handlers.NewSyncHandler(store, orchestrator, monitor)
	orderHandler := handlers.NewOrderHandler(store, register)
	catalogHandler := handlers.NewCatalogHandler(store)
	systemHandler := handlers.NewSystemHandler(client, monitor)

	// ROUTER
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api/v1")

	// SYNC ROUTES
	sync := api.Group("/sync")
	{
		sync.POST("/now", syncHandler.TriggerSync)
		sync.GET("/status", syncHandler.GetStatus)
		sync.GET("/runs", syncHandler.GetSyncRuns)
		sync.GET("/queue", syncHandler.GetQueue)
		sync.POST("/queue/:id/retry", syncHandler.RetryQueueItem)
		sync.DELETE("/queue/:id", syncHandler.DismissQueueItem)
	}

	// REGISTER + CATALOG ROUTES
	api.POST("/orders", orderHandler.CreateOrder)
	api.GET("/orders", orderHandler.ListOrders)
	api.GET("/orders/:id", orderHandler.GetOrder)
	api.GET("/products", catalogHandler.ListProducts)
	api.GET("/products/:id/variants", catalogHandler.ListVariants)
	api.GET("/products/:id/movements", catalogHandler.ListStockMovements)
	api.GET("/customers", catalogHandler.ListCustomers)
	api.GET("/system/connection", systemHandler.CheckConnection)

	// START SERVER
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Println("server shutdown:", err)
		}
	}()

	log.Println("Server running on port:", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server error:", err)
	}
}
