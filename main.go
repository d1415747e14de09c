package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"navyaJuicesAPI/handlers"
	"navyaJuicesAPI/internal/notification"
	"navyaJuicesAPI/middleware"
	"navyaJuicesAPI/services"
)

var (
	dbPool              *pgxpool.Pool
	userService         *services.UserService
	catalogService      *services.CatalogService
	cartService         *services.CartService
	orderService        *services.OrderService
	challengeService    *services.ChallengeService
	notificationService *services.NotificationService
	dispatcher          *services.NotificationDispatcher
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to Postgres")

	userService = services.NewUserService(dbPool)
	catalogService = services.NewCatalogService(dbPool)
	cartService = services.NewCartService(dbPool)
	notificationService = services.NewNotificationService(dbPool)
	orderService = services.NewOrderService(dbPool, notificationService)
	challengeService = services.NewChallengeService(services.NewChallengeStore(dbPool), notificationService)

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	dispatcher = services.NewNotificationDispatcher(notificationService)
	notificationService.SetDispatcher(dispatcher)

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	userHandler := handlers.NewUserHandler(userService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	cartHandler := handlers.NewCartHandler(cartService, userService)
	orderHandler := handlers.NewOrderHandler(orderService, userService)
	challengeHandler := handlers.NewChallengeHandler(challengeService, userService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, userService)
	webhookHandler := handlers.NewWebhookHandler(userService)
	adminHandler := handlers.NewAdminHandler(catalogService, orderService, challengeService, userService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "navya-juices-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public storefront; optional auth lets signed-in users see their own
	// enrollment state on the challenge pages.
	public := api.PathPrefix("").Subrouter()
	public.Use(middleware.OptionalAuthMiddleware)

	public.HandleFunc("/storefront", catalogHandler.GetStorefront).Methods("GET")
	public.HandleFunc("/products", catalogHandler.ListProducts).Methods("GET")
	public.HandleFunc("/products/{slug}", catalogHandler.GetProduct).Methods("GET")
	public.HandleFunc("/challenges", challengeHandler.ListChallenges).Methods("GET")
	public.HandleFunc("/challenges/{challengeID}", challengeHandler.GetChallenge).Methods("GET")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/update-profile", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user/delete-account", userHandler.DeleteAccount).Methods("DELETE")

	protected.HandleFunc("/cart", cartHandler.GetCart).Methods("GET")
	protected.HandleFunc("/cart/items", cartHandler.AddItem).Methods("POST")
	protected.HandleFunc("/cart/items", cartHandler.UpdateItem).Methods("PUT")
	protected.HandleFunc("/cart/items/{productID}", cartHandler.RemoveItem).Methods("DELETE")
	protected.HandleFunc("/cart", cartHandler.ClearCart).Methods("DELETE")

	protected.HandleFunc("/checkout", orderHandler.Checkout).Methods("POST")
	protected.HandleFunc("/orders", orderHandler.ListOrders).Methods("GET")
	protected.HandleFunc("/orders/{orderID}", orderHandler.GetOrder).Methods("GET")
	protected.HandleFunc("/orders/{orderID}/cancel", orderHandler.CancelOrder).Methods("POST")

	protected.HandleFunc("/addresses", orderHandler.ListAddresses).Methods("GET")
	protected.HandleFunc("/addresses", orderHandler.AddAddress).Methods("POST")
	protected.HandleFunc("/addresses/{addressID}", orderHandler.DeleteAddress).Methods("DELETE")

	protected.HandleFunc("/challenges/enroll", challengeHandler.Enroll).Methods("POST")
	protected.HandleFunc("/enrollments/{enrollmentID}/check-in", challengeHandler.CheckIn).Methods("POST")
	protected.HandleFunc("/enrollments/{enrollmentID}/progress", challengeHandler.GetProgress).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/{notificationID}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	admin := protected.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/products", adminHandler.CreateProduct).Methods("POST")
	admin.HandleFunc("/products/{productID}", adminHandler.UpdateProduct).Methods("PUT")
	admin.HandleFunc("/orders", adminHandler.ListOrders).Methods("GET")
	admin.HandleFunc("/orders/{orderID}/status", adminHandler.UpdateOrderStatus).Methods("PUT")
	admin.HandleFunc("/enrollments/{enrollmentID}/abandon", adminHandler.AbandonEnrollment).Methods("POST")

	// CORS configuration
	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	dispatcher.Stop()

	log.Println("Server shutdown complete")
}
