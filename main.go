package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/username/homescout/backend/src/config"
	"github.com/username/homescout/backend/src/database"
	"github.com/username/homescout/backend/src/handlers"
	"github.com/username/homescout/backend/src/logger"
	"github.com/username/homescout/backend/src/security"
	"github.com/username/homescout/backend/src/services"
)

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("HomeScout backend server starting...")

	if len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}
	if len(config.Cfg.CSRFAuthKey) < 32 {
		logger.L.Error("CSRF_AUTH_KEY must be at least 32 bytes long.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	priceCache := services.NewCache(config.Cfg.RedisAddr, config.Cfg.MarketPriceCacheTTL)

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	emailService := services.NewEmailService()
	recordService := services.NewRecordService(database.DB)
	loanHistoryService := services.NewLoanHistoryService(database.DB)
	defer loanHistoryService.Close()

	tradeFetcher := services.NewTradeFetcher(config.Cfg.MolitAPIKey, config.Cfg.MolitBaseURL)
	marketPriceService := services.NewMarketPriceService(database.DB, priceCache, tradeFetcher, config.Cfg.MarketPriceCacheTTL)
	photoService := services.NewPhotoService(database.DB, config.Cfg.UploadDir, config.Cfg.PublicBaseURL)
	addressSearcher := services.NewAddressSearcher(config.Cfg.KakaoRESTAPIKey)

	userHandler := handlers.NewUserHandler(authService, emailService)
	oauthHandler := handlers.NewOAuthHandler(authService)
	recordHandler := handlers.NewRecordHandler(recordService, addressSearcher)
	photoHandler := handlers.NewPhotoHandler(photoService, recordService)
	loanHandler := handlers.NewLoanHandler(loanHistoryService)
	marketPriceHandler := handlers.NewMarketPriceHandler(marketPriceService)
	searchHandler := handlers.NewSearchHandler(addressSearcher)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	// Public routes.
	apiRouter.HandleFunc("GET /api/auth/csrf", handlers.GetCSRFToken)
	apiRouter.HandleFunc("GET /api/auth/verify-email", userHandler.VerifyEmailHandler)
	apiRouter.HandleFunc("GET /api/auth/google/login", oauthHandler.GoogleLoginHandler)
	apiRouter.HandleFunc("GET /api/auth/google/callback", oauthHandler.GoogleCallbackHandler)

	csrf := handlers.CSRFMiddleware
	auth := userHandler.AuthMiddleware
	protect := func(h http.HandlerFunc) http.Handler {
		return csrf(auth(h))
	}

	// Auth actions: CSRF but no session yet.
	apiRouter.Handle("POST /api/auth/login", csrf(http.HandlerFunc(userHandler.LoginUserHandler)))
	apiRouter.Handle("POST /api/auth/register", csrf(http.HandlerFunc(userHandler.RegisterUserHandler)))
	apiRouter.Handle("POST /api/auth/refresh", csrf(http.HandlerFunc(userHandler.RefreshTokenHandler)))
	apiRouter.Handle("POST /api/auth/request-password-reset", csrf(http.HandlerFunc(userHandler.RequestPasswordResetHandler)))
	apiRouter.Handle("POST /api/auth/reset-password", csrf(http.HandlerFunc(userHandler.ResetPasswordHandler)))
	apiRouter.Handle("POST /api/auth/logout", protect(userHandler.LogoutUserHandler))

	apiRouter.Handle("GET /api/user/me", protect(userHandler.GetCurrentUserHandler))

	// Survey records.
	apiRouter.Handle("GET /api/records", protect(recordHandler.ListRecordsHandler))
	apiRouter.Handle("GET /api/records/filter", protect(recordHandler.ListRecordsHandler))
	apiRouter.Handle("POST /api/records", protect(recordHandler.CreateRecordHandler))
	apiRouter.Handle("GET /api/records/{id}", protect(recordHandler.GetRecordHandler))
	apiRouter.Handle("PUT /api/records/{id}", protect(recordHandler.UpdateRecordHandler))
	apiRouter.Handle("DELETE /api/records/{id}", protect(recordHandler.DeleteRecordHandler))
	apiRouter.Handle("POST /api/records/{id}/comments", protect(recordHandler.AddCommentHandler))
	apiRouter.Handle("PUT /api/comments/{id}", protect(recordHandler.UpdateCommentHandler))
	apiRouter.Handle("DELETE /api/comments/{id}", protect(recordHandler.DeleteCommentHandler))
	apiRouter.Handle("POST /api/records/{id}/photos", protect(photoHandler.UploadPhotoHandler))
	apiRouter.Handle("DELETE /api/photos/{id}", protect(photoHandler.DeletePhotoHandler))

	// Affordability calculator.
	apiRouter.Handle("POST /api/loan/calculate", protect(loanHandler.CalculateLoanHandler))
	apiRouter.Handle("POST /api/loan/range", protect(loanHandler.CalculateRangeHandler))
	apiRouter.Handle("GET /api/loan/history", protect(loanHandler.LoanHistoryHandler))

	// Market prices and region search.
	apiRouter.Handle("GET /api/market-prices", protect(marketPriceHandler.GetMarketPricesHandler))
	apiRouter.Handle("GET /api/search/recent", protect(searchHandler.RecentSearchesHandler))
	apiRouter.Handle("POST /api/search", protect(searchHandler.AddSearchHandler))
	apiRouter.Handle("GET /api/search/address", protect(searchHandler.SearchAddressHandler))

	rootMux.Handle("/api/", apiRouter)
	rootMux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(config.Cfg.UploadDir))))

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "HomeScout Backend is running"})
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	logger.L.Info("Applying global middleware...")
	rateLimit := handlers.RateLimitMiddleware(rate.Every(100*time.Millisecond), 30)
	finalHandler := handlers.CORSMiddleware(rateLimit(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.L.Info("Server starting", "address", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L.Error("Failed to start server", "error", err)
			stdlog.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-shutdownCtx.Done()
	logger.L.Info("Shutdown signal received, draining...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.L.Error("Server shutdown failed", "error", err)
	}
	logger.L.Info("Server stopped gracefully.")
}
