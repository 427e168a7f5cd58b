package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eduhacktech-backend/internal/cache"
	"eduhacktech-backend/internal/config"
	"eduhacktech-backend/internal/handlers"
	"eduhacktech-backend/internal/push"
	"eduhacktech-backend/internal/queue"
	"eduhacktech-backend/internal/repository"
	"eduhacktech-backend/internal/repository/memory"
	"eduhacktech-backend/internal/services"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// stores groups the storage contracts the services run on
type stores struct {
	users         services.UserStore
	cards         services.CardStore
	connections   services.ConnectionStore
	conversations services.ConversationStore
	messages      services.MessageStore
	events        services.EventStore
	registrations services.RegistrationStore
	health        handlers.Pinger
	close         func()
}

func openStores(ctx context.Context, cfg config.DatabaseConfig) (*stores, error) {
	if cfg.Driver == "memory" {
		m := memory.New()
		return &stores{
			users:         m.Users(),
			cards:         m.Cards(),
			connections:   m.Connections(),
			conversations: m.Conversations(),
			messages:      m.Messages(),
			events:        m.Events(),
			registrations: m.Registrations(),
			health:        m,
			close:         func() {},
		}, nil
	}

	db, err := repository.Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	return &stores{
		users:         userRepo,
		cards:         repository.NewCardRepository(db),
		connections:   repository.NewConnectionRepository(db),
		conversations: repository.NewConversationRepository(db),
		messages:      repository.NewMessageRepository(db),
		events:        repository.NewEventRepository(db),
		registrations: repository.NewRegistrationRepository(db),
		health:        userRepo,
		close:         db.Close,
	}, nil
}

// backends are the optional infrastructure pieces; nil fields are disabled
type backends struct {
	cache     cache.Cache
	queue     queue.Client
	pusher    services.Pusher
	presigner services.Presigner
}

// newApp wires the services on top of storage and the optional backends
func newApp(cfg *config.Config, st *stores, b backends) (*app, *services.Dispatcher) {
	if b.cache == nil {
		b.cache = cache.Noop{}
	}

	hub := services.NewWSHub()
	dispatcher := services.NewDispatcher(hub, b.queue, st.users, b.pusher)

	a := &app{
		users: services.NewUserService(st.users, cfg.JWT.Secret, cfg.Users.AdminEmails...),
		finder: services.NewTeamFinderService(
			st.cards, st.connections, st.users, st.events, st.registrations,
			b.cache, cfg.TeamFinder.ActiveCountTTL,
		),
		conns: services.NewConnectionService(st.connections, st.users, st.cards, st.events, dispatcher),
		chat: services.NewChatService(
			st.conversations, st.messages, st.connections, st.users,
			dispatcher, cfg.Chat.MaxMessageLength,
		),
		events:  services.NewEventService(st.events, st.registrations, dispatcher),
		uploads: services.NewUploadService(b.presigner, st.events, st.registrations),
		hub:     hub,
		checks:  map[string]handlers.Pinger{"database": st.health},
	}
	if _, ok := b.cache.(cache.Noop); !ok {
		a.checks["cache"] = b.cache
	}

	return a, dispatcher
}

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to storage
	st, err := openStores(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer st.close()
	log.Info().Str("driver", cfg.Database.Driver).Msg("Storage ready")

	var b backends

	// Redis backs the cache and the task queue
	var worker *queue.AsynqServer
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedis(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer redisCache.Close()
		b.cache = redisCache

		client, err := queue.NewAsynqClient(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create task queue client")
		}
		defer client.Close()
		b.queue = client

		worker, err = queue.NewAsynqServer(cfg.Redis.URL, cfg.Queue.Concurrency, map[string]int{"notifications": 1})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create task worker")
		}
	} else {
		log.Warn().Msg("Redis not configured, cache disabled and push notifications sent inline")
	}

	if cfg.APNS.CertificatePath != "" {
		sender, err := push.NewAPNSSender(cfg.APNS.CertificatePath, cfg.APNS.CertificatePassword, cfg.APNS.Topic, cfg.APNS.Production)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create APNs client")
		}
		b.pusher = sender
	}

	if cfg.AWS.S3Bucket != "" {
		presigner, err := services.NewS3Presigner(ctx, services.S3Options{
			Region:    cfg.AWS.Region,
			Bucket:    cfg.AWS.S3Bucket,
			AccessKey: cfg.AWS.AccessKey,
			SecretKey: cfg.AWS.SecretKey,
			Endpoint:  cfg.AWS.Endpoint,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 presigner")
		}
		b.presigner = presigner
	}

	a, dispatcher := newApp(cfg, st, b)

	if worker != nil {
		dispatcher.RegisterTasks(worker)
		go func() {
			if err := worker.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Task worker stopped")
			}
		}()
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      newRouter(a),
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

	<-ctx.Done()

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
