package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"popin-backend/internal/config"
	"popin-backend/internal/handlers"
	"popin-backend/internal/middleware"
	"popin-backend/internal/services"
	"popin-backend/internal/storage"
	"popin-backend/internal/storage/postgres"
	"popin-backend/internal/storage/sqlite"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Open storage backend
	stores, closeStorage, err := openStorage(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer closeStorage()
	log.Info().Str("driver", cfg.Storage.Driver).Msg("Storage ready")

	// Initialize services
	userService := services.NewUserService(stores.Users, cfg.JWT.Secret)
	avatarService, err := services.NewAvatarService(stores.Users, cfg.AWS.Region, cfg.AWS.S3Bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create avatar service")
	}
	hub := services.NewHub(stores.Friends)
	notificationService, err := services.NewNotificationService(stores.Notifications, stores.Users, hub, cfg.APNS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create notification service")
	}
	friendService := services.NewFriendService(stores.Friends, stores.Users, notificationService)
	eventService := services.NewEventService(stores.Events, stores.Friends, stores.Users, notificationService)
	messageService := services.NewMessageService(stores.Messages, stores.Friends, stores.Users, hub, notificationService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService, avatarService)
	friendHandler := handlers.NewFriendHandler(friendService)
	eventHandler := handlers.NewEventHandler(eventService)
	messageHandler := handlers.NewMessageHandler(messageService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	wsHandler := handlers.NewWebSocketHandler(hub, userService, messageService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))

			r.Get("/users/me", userHandler.Me)
			r.Put("/users/me/push-token", userHandler.UpdatePushToken)
			r.Post("/users/me/avatar", userHandler.AvatarUploadURL)
			r.Get("/users/search", userHandler.Search)
			r.Get("/users/{user_id}", userHandler.Get)

			r.Get("/friends", friendHandler.ListFriends)
			r.Delete("/friends/{friend_id}", friendHandler.RemoveFriend)
			r.Get("/friends/requests", friendHandler.ListRequests)
			r.Post("/friends/requests", friendHandler.SendRequest)
			r.Post("/friends/requests/{request_id}/accept", friendHandler.Accept)
			r.Post("/friends/requests/{request_id}/decline", friendHandler.Decline)
			r.Delete("/friends/requests/{request_id}", friendHandler.Cancel)

			r.Post("/events", eventHandler.Create)
			r.Get("/events", eventHandler.List)
			r.Get("/events/{event_id}", eventHandler.Get)
			r.Put("/events/{event_id}", eventHandler.Update)
			r.Delete("/events/{event_id}", eventHandler.Delete)
			r.Get("/hangouts/matches", eventHandler.ListMatches)

			r.Post("/messages", messageHandler.Send)
			r.Get("/conversations", messageHandler.ListConversations)
			r.Get("/conversations/{friend_id}/messages", messageHandler.ListMessages)
			r.Post("/conversations/{friend_id}/read", messageHandler.MarkRead)

			r.Get("/notifications", notificationHandler.List)
			r.Post("/notifications/read-all", notificationHandler.MarkAllRead)
			r.Post("/notifications/{notification_id}/read", notificationHandler.MarkRead)
			r.Delete("/notifications/{notification_id}", notificationHandler.Delete)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openStorage opens the configured backend and returns the repository
// bundle plus a close func
func openStorage(ctx context.Context, cfg *config.Config) (*storage.Stores, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewStores(db), db.Close, nil
	case "sqlite":
		store, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewStores(store), func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close sqlite store")
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
