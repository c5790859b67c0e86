package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"VidTube/cache"
	"VidTube/config"
	"VidTube/core/auth"
	"VidTube/core/media"
	"VidTube/core/profile"
	"VidTube/core/session"
	"VidTube/db"
	"VidTube/logger"
	"VidTube/storage"
)

const shutdownTimeout = 5 * time.Second

// NewRouter wires every route. limiter and metrics may be nil.
func NewRouter(h *APIHandler, limiter *cache.RateLimiter, metrics *Metrics) http.Handler {
	router := mux.NewRouter()
	router.Use(RequestID, AccessLog, Recoverer)
	if metrics != nil {
		router.Use(metrics.Middleware)
		router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusNotFound, nil, "Route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusMethodNotAllowed, nil, "Method not allowed")
	})

	router.HandleFunc("/healthz", h.HealthHandler).Methods(http.MethodGet)

	limited := RateLimit(limiter, metrics, h.cfg.Server.TrustProxy)
	users := router.PathPrefix("/api/v1/users").Subrouter()

	users.HandleFunc("/register", limited(h.RegisterHandler)).Methods(http.MethodPost)
	users.HandleFunc("/login", limited(h.LoginHandler)).Methods(http.MethodPost)
	users.HandleFunc("/refresh-token", limited(h.RefreshTokenHandler)).Methods(http.MethodPost)

	users.HandleFunc("/logout", h.AuthMiddleware(h.LogoutHandler)).Methods(http.MethodPost)
	users.HandleFunc("/change-password", h.AuthMiddleware(h.ChangePasswordHandler)).Methods(http.MethodPost)
	users.HandleFunc("/current-user", h.AuthMiddleware(h.CurrentUserHandler)).Methods(http.MethodGet)
	users.HandleFunc("/update-account", h.AuthMiddleware(h.UpdateAccountHandler)).Methods(http.MethodPatch)
	users.HandleFunc("/avatar", h.AuthMiddleware(h.UpdateAvatarHandler)).Methods(http.MethodPatch)
	users.HandleFunc("/cover-image", h.AuthMiddleware(h.UpdateCoverImageHandler)).Methods(http.MethodPatch)
	users.HandleFunc("/c/{username}", h.AuthMiddleware(h.ChannelProfileHandler)).Methods(http.MethodGet)
	users.HandleFunc("/history", h.AuthMiddleware(h.WatchHistoryHandler)).Methods(http.MethodGet)
	users.HandleFunc("/history/{videoId}", h.AuthMiddleware(h.RecordWatchHandler)).Methods(http.MethodPost)
	users.HandleFunc("/subscriptions/c/{channelId}", h.AuthMiddleware(h.ToggleSubscriptionHandler)).Methods(http.MethodPost)

	return cors.New(cors.Options{
		AllowedOrigins:   h.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(router)
}

// Start initializes every dependency and serves until SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := OpenStores(ctx, cfg, true)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Warn("failed to close store", logger.ErrorField(err))
		}
	}()

	host, err := storage.NewImageHost(ctx, cfg.ImageHost)
	if err != nil {
		return fmt.Errorf("failed to initialize image host: %w", err)
	}
	bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = host.EnsureBucket(bucketCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to prepare image bucket: %w", err)
	}

	var limiter *cache.RateLimiter
	if cfg.Redis.Host != "" {
		client, err := db.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, rate limiting disabled", logger.ErrorField(err))
		} else {
			defer client.Close()
			limiter = cache.NewRateLimiter(client, cfg.Redis.RateLimit, cfg.Redis.Burst)
		}
	}

	tokens, err := auth.NewTokenService(cfg.Token)
	if err != nil {
		return err
	}

	stager, err := media.NewStager(cfg.Upload.StagingDir, cfg.Upload.MaxUploadBytes)
	if err != nil {
		return err
	}
	janitor := media.NewJanitor(stager.Dir(), cfg.Upload.OrphanMaxAge)
	go func() {
		if err := janitor.Run(ctx); err != nil {
			logger.Error("staging janitor stopped", logger.ErrorField(err))
		}
	}()

	metrics := NewMetrics()
	uploader := media.NewUploader(host)
	sessions := session.NewManager(stores.Users, tokens, uploader, metrics)
	profiles := profile.NewManager(stores.Users, stores.Subscriptions, stores.Videos, uploader)
	apiHandler := NewAPIHandler(sessions, profiles, tokens, stager, cfg)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      NewRouter(apiHandler, limiter, metrics),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", srv.Addr), logger.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exited gracefully")
	return nil
}
