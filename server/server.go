package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/bookcourier/bookcourier/internal/config"
	"github.com/bookcourier/bookcourier/internal/handlers"
	"github.com/bookcourier/bookcourier/internal/observability"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	metrics    *observability.Metrics
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers, metrics *observability.Metrics) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}
	if metrics == nil {
		return nil, fmt.Errorf("metrics are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
		metrics:  metrics,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)

	r.HandleFunc("/", h.Root).Methods("GET").Name("root")
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")
	r.Handle("/metrics", s.metrics.Handler()).Methods("GET").Name("metrics")

	// Payment reconciliation. The redirect path carries no bearer
	// token; the session metadata is the authoritative order binding.
	r.HandleFunc("/payment-success", h.PaymentSuccess).Methods("POST").Name("payments.success")
	if s.cfg.StripeWebhookSecret != "" {
		r.HandleFunc("/webhooks/stripe", h.StripeWebhook).Methods("POST").Name("webhooks.stripe")
	}

	// Public storefront.
	r.HandleFunc("/books_all", h.ListBooks).Methods("GET").Name("books.list")
	r.HandleFunc("/books_all/{id}", h.GetBook).Methods("GET").Name("books.get")

	// Everything below requires a verified identity.
	authed := r.NewRoute().Subrouter()
	authed.Use(h.RequireIdentity)

	authed.HandleFunc("/orders", h.CreateOrder).Methods("POST").Name("orders.create")
	authed.HandleFunc("/orders", h.ListCustomerOrders).Methods("GET").Name("orders.list")
	authed.HandleFunc("/orders/librarian", h.ListSellerOrders).Methods("GET").Name("orders.seller")
	authed.HandleFunc("/orders/{id}", h.GetOrder).Methods("GET").Name("orders.get")
	authed.HandleFunc("/orders/cancel/{id}", h.CancelOrder).Methods("PATCH").Name("orders.cancel")
	authed.HandleFunc("/orders/status/{id}", h.UpdateOrderStatus).Methods("PATCH").Name("orders.status")
	authed.HandleFunc("/admin/orders", h.ListAllOrders).Methods("GET").Name("admin.orders")
	authed.HandleFunc("/invoices", h.ListInvoices).Methods("GET").Name("invoices.list")
	authed.HandleFunc("/create-checkout-session", h.CreateCheckoutSession).Methods("POST").Name("payments.checkout")

	authed.HandleFunc("/books_all", h.CreateBook).Methods("POST").Name("books.create")
	authed.HandleFunc("/books_all/{id}", h.UpdateBook).Methods("PATCH").Name("books.update")
	authed.HandleFunc("/books_all/{id}", h.DeleteBook).Methods("DELETE").Name("books.delete")
	authed.HandleFunc("/books/seller", h.ListSellerBooks).Methods("GET").Name("books.seller")

	authed.HandleFunc("/user", h.Login).Methods("POST").Name("users.login")
	authed.HandleFunc("/users", h.ListUsers).Methods("GET").Name("users.list")
	authed.HandleFunc("/user/profile/update", h.UpdateProfile).Methods("PATCH").Name("users.profile")
	authed.HandleFunc("/user/role", h.GetRole).Methods("GET").Name("users.role")
	authed.HandleFunc("/user/role/{id}", h.UpdateRole).Methods("PATCH").Name("users.role.update")

	authed.HandleFunc("/become-librarian", h.BecomeLibrarian).Methods("POST").Name("librarian.request")
	authed.HandleFunc("/librarian-requests", h.MyLibrarianRequests).Methods("GET").Name("librarian.mine")
	authed.HandleFunc("/admin/librarian-requests", h.ListLibrarianRequests).Methods("GET").Name("admin.librarian.list")
	authed.HandleFunc("/admin/librarian-requests/{email}", h.DismissLibrarianRequest).Methods("DELETE").Name("admin.librarian.dismiss")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"message":"not found"}`))
	})

	return r
}
