package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/wecode-bootcamp-korea/24-2nd-111percent-backend/docs"
	"github.com/wecode-bootcamp-korea/24-2nd-111percent-backend/internal/database"
	mW "github.com/wecode-bootcamp-korea/24-2nd-111percent-backend/internal/middleware"
	"github.com/wecode-bootcamp-korea/24-2nd-111percent-backend/internal/services"
)

// @title 111percent Backend API
// @version 1.0
// @description API for the peer-to-peer real estate lending platform
// @host localhost:8080
// @BasePath /
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")
	viper.BindEnv("bank.default_name", "DEFAULT_BANK_NAME")
	viper.BindEnv("kakao.user_url", "KAKAO_USER_URL")
	viper.BindEnv("settlement.bic", "SETTLEMENT_BIC")
	viper.BindEnv("settlement.currency", "SETTLEMENT_CURRENCY")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "111percent Backend API"
	docs.SwaggerInfo.Description = "API for the peer-to-peer real estate lending platform"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	transactionService := services.NewTransactionService(db, redisClient)
	portfolioService := services.NewPortfolioService(db)
	investmentService := services.NewInvestmentService(db, redisClient)
	authService := services.NewAuthService(db, redisClient)
	qrService := services.NewQRService(db)
	bankService := services.NewBankService(db)

	if err := bankService.SeedBanks(); err != nil {
		log.Printf("Warning: Failed to seed bank directory: %v", err)
	}

	mW.InitAuthMiddleware(db, redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// Static file server for property photos
	r.Handle("/static/properties/*", http.StripPrefix("/static/properties/",
		mW.StaticFileServer("./static/properties")))

	// Public endpoints
	r.Post("/users/signup", authService.Signup)
	r.Post("/users/signin", authService.Signin)
	r.Post("/users/signin/kakao", authService.KakaoSignin)
	r.Get("/banks", bankService.GetAllBanks)
	r.Get("/investments", investmentService.List)
	r.Get("/investments/{investmentID}", investmentService.Detail)

	// Protected endpoints
	r.Group(func(r chi.Router) {
		r.Use(mW.AuthMiddleware)

		r.Post("/users/logout", authService.Logout)
		r.Get("/users/account/qr", qrService.DepositAccountQR)

		r.Post("/transactions/deposit", transactionService.Deposit)
		r.Post("/transactions/withdrawal", transactionService.Withdraw)
		r.Post("/transactions/invest/{investmentID}", transactionService.Invest)
		r.Get("/transactions/transaction", transactionService.History)
		r.Get("/transactions/portfolio", portfolioService.Portfolio)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
