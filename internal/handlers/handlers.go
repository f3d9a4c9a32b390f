package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookcourier/bookcourier/internal/auth"
	"github.com/bookcourier/bookcourier/internal/cache"
	"github.com/bookcourier/bookcourier/internal/config"
	"github.com/bookcourier/bookcourier/internal/logging"
	"github.com/bookcourier/bookcourier/internal/observability"
	"github.com/bookcourier/bookcourier/internal/services"
)

const maxWebhookBodyBytes = 1 << 20 // 1 MB

const maxRequestBodyBytes = 256 << 10

// Handlers provides the HTTP request handlers for the BookCourier API.
type Handlers struct {
	config        *config.Config
	db            *pgxpool.Pool
	cacheProvider cache.Provider
	verifier      auth.Verifier
	orderService  *services.OrderService
	userService   *services.UserService
	bookService   *services.BookService
	librarianSvc  *services.LibrarianService
	metrics       *observability.Metrics
	logger        *slog.Logger
}

type Dependencies struct {
	Config           *config.Config
	DB               *pgxpool.Pool
	CacheProvider    cache.Provider
	Verifier         auth.Verifier
	OrderService     *services.OrderService
	UserService      *services.UserService
	BookService      *services.BookService
	LibrarianService *services.LibrarianService
	Metrics          *observability.Metrics
	Logger           *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.CacheProvider == nil {
		return nil, fmt.Errorf("handlers dependencies: cacheProvider is required")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("handlers dependencies: verifier is required")
	}
	if deps.OrderService == nil {
		return nil, fmt.Errorf("handlers dependencies: orderService is required")
	}
	if deps.UserService == nil {
		return nil, fmt.Errorf("handlers dependencies: userService is required")
	}
	if deps.BookService == nil {
		return nil, fmt.Errorf("handlers dependencies: bookService is required")
	}
	if deps.LibrarianService == nil {
		return nil, fmt.Errorf("handlers dependencies: librarianService is required")
	}
	if deps.Metrics == nil {
		return nil, fmt.Errorf("handlers dependencies: metrics is required")
	}

	return &Handlers{
		config:        deps.Config,
		db:            deps.DB,
		cacheProvider: deps.CacheProvider,
		verifier:      deps.Verifier,
		orderService:  deps.OrderService,
		userService:   deps.UserService,
		bookService:   deps.BookService,
		librarianSvc:  deps.LibrarianService,
		metrics:       deps.Metrics,
		logger:        logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"service": "bookcourier",
		"status":  "running",
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		h.writeError(w, r, http.StatusServiceUnavailable, "database unhealthy")
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeJSON(w, r, status, map[string]any{
		"success": false,
		"message": message,
	})
}

// serviceError maps the service error taxonomy onto HTTP statuses.
// Unrecognized errors are logged and masked as a 500.
func (h *Handlers) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrPaymentIncomplete):
		h.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrForbidden):
		h.writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound):
		h.writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrConflict):
		h.writeError(w, r, http.StatusConflict, err.Error())
	default:
		h.loggerFromContext(r.Context()).Error("request failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody decodes a JSON request body with a size cap and strict
// field checking.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}
