// Package app wires configuration, the user store, the service layer and
// the HTTP boundary together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"userbook/internal/config"
	"userbook/internal/database"
	"userbook/internal/handlers"
	"userbook/internal/middleware"
	"userbook/internal/repositories"
	"userbook/internal/services"
	"userbook/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
)

// App holds all application dependencies.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Users  *services.UserService
	Fiber  *fiber.App

	closers []func(context.Context) error
}

// NewLogger builds the process logger: JSON in production, text otherwise.
func NewLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// New opens the configured store, connects the event publisher when one is
// configured and builds the HTTP app. A store that cannot be reached is
// reported as repositories.ErrConnection.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	repo, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)
	logger.Info("user store ready", "driver", cfg.StoreDriver)

	encoder, err := services.CredentialEncoderFor(cfg.PasswordHashing)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	opts := []services.Option{
		services.WithCredentialEncoder(encoder),
		services.WithLogger(logger),
	}

	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.UserEventsQueue}, logger)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return mq.Close() })
		opts = append(opts, services.WithEventPublisher(mq))
		if err := mq.ConsumeUserEvents(logUserEvent(logger)); err != nil {
			logger.Warn("user event consumer not started", "error", err)
		}
	}

	a.Users = services.NewUserService(repo, opts...)
	a.Fiber = NewHTTP(a.Users, logger)
	return a, nil
}

// NewHTTP builds the Fiber app serving the user routes.
func NewHTTP(users *services.UserService, logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "userbook",
		DisableStartupMessage: true,
	})
	app.Use(middleware.RequestLogger(logger))

	userHandler := handlers.NewUserHandler(users, logger)
	app.Get("/health", userHandler.HandleHealth)
	userHandler.RegisterRoutes(app.Group("/api/v1"))
	return app
}

// OpenStore opens the user repository selected by cfg.StoreDriver and
// returns a function that releases it.
func OpenStore(ctx context.Context, cfg *config.Config) (repositories.UserRepository, func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		m, err := database.OpenMongo(ctx, database.MongoConfig{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			Collection:     cfg.MongoCollection,
			ConnectTimeout: cfg.ConnectTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewMongoUserRepository(m.Collection), m.Close, nil

	case config.DriverPostgres, config.DriverSQLite:
		db, err := database.OpenGORM(cfg.StoreDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", repositories.ErrConnection, err)
		}
		closeDB := func(context.Context) error { return sqlDB.Close() }
		repo := repositories.NewGORMUserRepository(db)
		if err := repo.Migrate(); err != nil {
			closeDB(ctx)
			return nil, nil, err
		}
		return repo, closeDB, nil

	case config.DriverMemory:
		return repositories.NewMockUserRepository(), func(context.Context) error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// Close releases every resource opened by New, most recent first.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func logUserEvent(logger *slog.Logger) func(rabbitmq.UserEvent) error {
	return func(event rabbitmq.UserEvent) error {
		logger.Info("user event received",
			"type", event.Type,
			"user_id", event.UserID,
			"affected", event.Affected,
			"occurred_at", event.OccurredAt,
		)
		return nil
	}
}
