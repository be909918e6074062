package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ticketkini/booking-backend/internal/cache"
	"github.com/ticketkini/booking-backend/internal/config"
	"github.com/ticketkini/booking-backend/internal/database"
	"github.com/ticketkini/booking-backend/internal/handlers"
	"github.com/ticketkini/booking-backend/internal/middleware"
	"github.com/ticketkini/booking-backend/internal/queue"
	"github.com/ticketkini/booking-backend/internal/services"
	ws "github.com/ticketkini/booking-backend/internal/websocket"
	"github.com/ticketkini/booking-backend/pkg/gateway"
	"github.com/ticketkini/booking-backend/pkg/jwt"
	"github.com/ticketkini/booking-backend/pkg/mailer"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting TicketKini Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	locationRepo := database.NewLocationRepository(db)
	vehicleRepo := database.NewVehicleRepository(db)
	scheduleRepo := database.NewScheduleRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	paymentRepo := database.NewPaymentRepository(db)
	couponRepo := database.NewCouponRepository(db)
	notificationRepo := database.NewNotificationRepository(db)

	// Initialize infrastructure
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	redisClient := cache.NewRedisClient(cfg.Redis, logger)
	availabilityCache := cache.NewAvailabilityCache(redisClient, cfg.Redis.CacheTTL, logger)
	publisher := queue.NewPublisher(cfg.Queue.URL, cfg.Queue.QueueName, logger)
	hub := ws.NewHub(logger)
	mail := mailer.New(cfg.Email, logger)
	processor := gateway.NewSimulator(cfg.Payment.FailureRates, cfg.Payment.ProcessingDelay)

	// Initialize services
	logger.Info("Initializing services...")
	expiryWindow := time.Duration(cfg.Booking.ExpiryMinutes) * time.Minute
	cancelCutoff := time.Duration(cfg.Booking.CancelCutoffHours) * time.Hour

	authService := services.NewAuthService(userRepo, jwtService, cfg.Security.BcryptCost, logger)
	pricingService := services.NewPricingService(userRepo, logger)
	couponService := services.NewCouponService(couponRepo, paymentRepo, logger)
	seatService := services.NewSeatService(scheduleRepo, bookingRepo, availabilityCache, logger)
	searchService := services.NewSearchService(scheduleRepo, locationRepo, bookingRepo, logger)
	notificationService := services.NewNotificationService(notificationRepo, userRepo, hub, mail, logger)
	paymentService := services.NewPaymentService(
		bookingRepo, paymentRepo, scheduleRepo, userRepo,
		couponService, pricingService, seatService,
		processor, publisher, notificationService,
		expiryWindow, logger,
	)
	bookingService := services.NewBookingService(
		bookingRepo, scheduleRepo, paymentRepo,
		seatService, couponService, pricingService,
		paymentService, notificationService,
		expiryWindow, cancelCutoff, logger,
	)
	ticketService := services.NewTicketService(bookingRepo, scheduleRepo, vehicleRepo, paymentRepo, logger)
	adminService := services.NewAdminService(locationRepo, vehicleRepo, scheduleRepo, bookingRepo, couponRepo, userRepo, logger)

	// Start the expiry sweep
	expiryService := services.NewExpiryService(
		bookingRepo, seatService, notificationService,
		time.Duration(cfg.Booking.SweepIntervalSeconds)*time.Second, logger,
	)
	if err := expiryService.Start(); err != nil {
		logger.Fatalf("Failed to start expiry sweep: %v", err)
	}

	// Start the booking.confirmed consumer
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	consumer := queue.NewConsumer(cfg.Queue.URL, cfg.Queue.QueueName, notificationService, logger)
	go consumer.Run(consumerCtx)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, pricingService, logger)
	searchHandler := handlers.NewSearchHandler(searchService, logger)
	seatHandler := handlers.NewSeatHandler(seatService, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, couponService, ticketService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, logger)
	notificationHandler := handlers.NewNotificationHandler(notificationService, hub, jwtService, logger)
	adminHandler := handlers.NewAdminHandler(adminService, expiryService, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db.Ping))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public routes
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}
		v1.GET("/search", searchHandler.Search)
		v1.GET("/locations", searchHandler.Locations)
		v1.GET("/schedules/:id/seats", seatHandler.Availability)
		v1.GET("/schedules/:id/seats/check", seatHandler.Check)
		v1.GET("/notifications/ws", notificationHandler.Stream)

		// Authenticated routes
		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware(jwtService, logger))
		{
			authed.GET("/auth/me", authHandler.Me)
			authed.PUT("/auth/me", authHandler.UpdateMe)
			authed.GET("/auth/loyalty", authHandler.Loyalty)

			bookings := authed.Group("/bookings")
			{
				bookings.POST("", bookingHandler.Create)
				bookings.GET("", bookingHandler.List)
				bookings.POST("/coupon-quote", bookingHandler.ApplyCoupon)
				bookings.GET("/:id", bookingHandler.Get)
				bookings.PUT("/:id", bookingHandler.Update)
				bookings.GET("/:id/cancel-quote", bookingHandler.CancelQuote)
				bookings.POST("/:id/cancel", bookingHandler.Cancel)
				bookings.GET("/:id/ticket", bookingHandler.Ticket)
			}

			payments := authed.Group("/payments")
			{
				payments.POST("", paymentHandler.Process)
				payments.GET("", paymentHandler.History)
				payments.GET("/booking/:booking_id", paymentHandler.GetForBooking)
			}

			notifications := authed.Group("/notifications")
			{
				notifications.GET("", notificationHandler.List)
				notifications.POST("/read-all", notificationHandler.MarkAllRead)
				notifications.POST("/:id/read", notificationHandler.MarkRead)
			}

			// Admin routes
			admin := authed.Group("/admin")
			admin.Use(middleware.RequireAdmin())
			{
				admin.POST("/locations", adminHandler.CreateLocation)
				admin.POST("/vehicles", adminHandler.CreateVehicle)
				admin.POST("/schedules", adminHandler.CreateSchedule)
				admin.DELETE("/schedules/:id", adminHandler.DeactivateSchedule)
				admin.GET("/bookings", adminHandler.ListBookings)
				admin.GET("/users", adminHandler.ListUsers)
				admin.DELETE("/users/:id", adminHandler.DeactivateUser)
				admin.POST("/coupons", adminHandler.CreateCoupon)
				admin.GET("/coupons", adminHandler.ListCoupons)
				admin.PATCH("/coupons/:code", adminHandler.SetCouponActive)
				admin.POST("/expiry-sweep", adminHandler.RunExpirySweep)
				admin.POST("/announcements", notificationHandler.Broadcast)
			}
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	expiryService.Stop()
	cancelConsumer()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    path,
			"ip":      c.ClientIP(),
			"latency": time.Since(start).String(),
		}
		if query != "" {
			fields["query"] = query
		}
		logger.WithFields(fields).Info("Request handled")
	}
}

// healthCheckHandler reports liveness and database reachability
func healthCheckHandler(ping func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": version,
		})
	}
}
