package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"participium/config"
	"participium/database"
	"participium/handlers"
	"participium/middleware"
	"participium/notification"
	"participium/services"
	"participium/utils"
	"participium/version"
)

const (
	EndPointHealth          = "/health"
	EndPointCreateReport    = "/create_report"
	EndPointChangeStatus    = "/change_status"
	EndPointGetReport       = "/get_report"
	EndPointGetReports      = "/get_reports"
	EndPointMapCategoryRole = "/map_category_role"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if cfg.LogLevel != "" {
		log.SetLevelFromString(cfg.LogLevel)
	}

	log.Info("Starting the report lifecycle service...")

	// Connect to database
	db, err := utils.DBConnect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize database schema
	if err := database.InitSchema(db); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	// Load the municipality boundary once; it stays immutable for the
	// process lifetime.
	boundary, err := services.LoadBoundary(cfg.BoundaryFile)
	if err != nil {
		log.Fatalf("Failed to load municipality boundary: %v", err)
	}

	// Initialize services
	store := database.NewReportService(db)

	router := services.NewCategoryRouter(store)
	if err := router.Load(context.Background()); err != nil {
		log.Fatalf("Failed to load category routing table: %v", err)
	}

	var notifier services.Notifier
	publisher, err := notification.NewPublisher(cfg.GetRabbitMQURL(), cfg.RabbitMQExchange, cfg.RabbitMQNotificationRoutingKey)
	if err != nil {
		log.Warnf("RabbitMQ unavailable, notifications will be logged only: %v", err)
		notifier = notification.LogNotifier{}
	} else {
		defer publisher.Close()
		notifier = publisher
	}

	lifecycle := services.NewLifecycleService(store, boundary, router, notifier, cfg.ConflictRetryDelay)

	// Initialize handlers
	reportsHandler := handlers.NewReportsHandler(lifecycle, router, store)

	// Setup router
	engine := gin.Default()
	engine.Use(middleware.CORSMiddleware())

	engine.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get("participium"))
	})

	// Register health endpoint (outside API group)
	engine.GET(EndPointHealth, reportsHandler.HealthCheck)

	// Create API v3 router group
	apiV3 := engine.Group("/api/v3")
	{
		apiV3.POST(EndPointCreateReport, middleware.OptionalAuthMiddleware(cfg), reportsHandler.CreateReport)
		apiV3.POST(EndPointChangeStatus, middleware.AuthMiddleware(cfg), reportsHandler.ChangeStatus)
		apiV3.GET(EndPointGetReport, reportsHandler.GetReport)
		apiV3.GET(EndPointGetReports, reportsHandler.GetReports)
		apiV3.POST(EndPointMapCategoryRole, middleware.AuthMiddleware(cfg), reportsHandler.MapCategoryRole)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	go func() {
		log.Infof("Report lifecycle service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
