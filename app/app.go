package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"

	"github.com/bookcourier/bookcourier/internal/auth"
	"github.com/bookcourier/bookcourier/internal/cache"
	"github.com/bookcourier/bookcourier/internal/catalog"
	"github.com/bookcourier/bookcourier/internal/config"
	"github.com/bookcourier/bookcourier/internal/db"
	"github.com/bookcourier/bookcourier/internal/email"
	"github.com/bookcourier/bookcourier/internal/handlers"
	"github.com/bookcourier/bookcourier/internal/observability"
	"github.com/bookcourier/bookcourier/internal/services"
	"github.com/bookcourier/bookcourier/internal/stripe"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Metrics       *observability.Metrics
	Handlers      *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL, logger.With("component", "db"))
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cfg.CacheProvider, cfg.RedisConnectionString)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	verifier, err := auth.NewJWTVerifier(cfg.TokenSecret)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize token verifier: %w", err)
	}

	emailProvider, err := email.NewProvider(email.Config{
		Provider: cfg.EmailProvider,
		APIKey:   cfg.EmailAPIKey,
		From:     cfg.EmailFrom,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize email provider: %w", err)
	}

	orderStore := db.NewOrderStore(database)
	userStore := db.NewUserStore(database)
	bookStore := db.NewBookStore(database)
	requestStore := db.NewLibrarianRequestStore(database)

	if cfg.SeedFile != "" {
		if err := catalog.SeedFromFile(startupCtx, cfg.SeedFile, bookStore, logger.With("component", "catalog")); err != nil {
			closeCacheProvider(logger, cacheProvider)
			database.Close()
			return nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
	}

	metrics := observability.NewMetrics()
	checkoutClient := stripe.NewClient(cfg.StripeSecretKey)

	orderService := services.NewOrderService(services.OrderServiceConfig{
		Orders:     orderStore,
		Gateway:    checkoutClient,
		Roles:      userStore,
		Emails:     services.NewOrderEmailSender(emailProvider),
		Metrics:    metrics,
		Logger:     logger.With("component", "order_service"),
		SuccessURL: cfg.PaymentSuccessURL(),
		CancelURL:  cfg.PaymentCancelURL(),
	})
	userService := services.NewUserService(userStore, requestStore, logger.With("component", "user_service"))
	bookService := services.NewBookService(bookStore, userStore, logger.With("component", "book_service"))
	librarianService := services.NewLibrarianService(requestStore, userStore, logger.With("component", "librarian_service"))

	h, err := handlers.New(handlers.Dependencies{
		Config:           cfg,
		DB:               database,
		CacheProvider:    cacheProvider,
		Verifier:         verifier,
		OrderService:     orderService,
		UserService:      userService,
		BookService:      bookService,
		LibrarianService: librarianService,
		Metrics:          metrics,
		Logger:           logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Metrics:       metrics,
		Handlers:      h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: cfg.LogLevel,
	}))
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
