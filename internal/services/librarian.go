package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bookcourier/bookcourier/internal/auth"
	"github.com/bookcourier/bookcourier/internal/db"
	"github.com/bookcourier/bookcourier/internal/models"
)

// LibrarianService handles the customer → librarian promotion flow:
// customers file a request, admins approve or dismiss it.
type LibrarianService struct {
	requests *db.LibrarianRequestStore
	users    *db.UserStore
	logger   *slog.Logger
}

func NewLibrarianService(requests *db.LibrarianRequestStore, users *db.UserStore, logger *slog.Logger) *LibrarianService {
	return &LibrarianService{requests: requests, users: users, logger: logger}
}

// Request files a promotion request for the caller. One pending
// request per account; filing again is a conflict.
func (s *LibrarianService) Request(ctx context.Context, identity auth.Identity, message string) (*db.LibrarianRequest, error) {
	user, err := s.users.GetByEmail(ctx, identity.Email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user != nil && user.Role != models.RoleCustomer {
		return nil, fmt.Errorf("%w: account already holds the %s role", ErrConflict, user.Role)
	}

	request := &db.LibrarianRequest{
		Email:   identity.Email,
		Message: strings.TrimSpace(message),
	}
	if err := s.requests.Create(ctx, request); err != nil {
		if errors.Is(err, db.ErrDuplicateRequest) {
			return nil, fmt.Errorf("%w: a request is already pending", ErrConflict)
		}
		return nil, fmt.Errorf("failed to file librarian request: %w", err)
	}

	s.logger.InfoContext(ctx, "librarian request filed", slog.String("email", identity.Email))
	return request, nil
}

// Mine returns the caller's own pending requests.
func (s *LibrarianService) Mine(ctx context.Context, identity auth.Identity) ([]*db.LibrarianRequest, error) {
	return s.requests.ListByEmail(ctx, identity.Email)
}

// List returns all pending requests. Admin only.
func (s *LibrarianService) List(ctx context.Context, identity auth.Identity) ([]*db.LibrarianRequest, error) {
	if err := s.requireAdmin(ctx, identity); err != nil {
		return nil, err
	}
	return s.requests.ListAll(ctx)
}

// Dismiss drops a pending request without promoting. Admin only.
func (s *LibrarianService) Dismiss(ctx context.Context, identity auth.Identity, email string) error {
	if err := s.requireAdmin(ctx, identity); err != nil {
		return err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if err := s.requests.DeleteByEmail(ctx, email); err != nil {
		return fmt.Errorf("failed to dismiss librarian request: %w", err)
	}
	s.logger.InfoContext(ctx, "librarian request dismissed",
		slog.String("email", email),
		slog.String("by", identity.Email),
	)
	return nil
}

func (s *LibrarianService) requireAdmin(ctx context.Context, identity auth.Identity) error {
	isAdmin, err := s.users.IsAdmin(ctx, identity.Email)
	if err != nil {
		return fmt.Errorf("failed to resolve caller role: %w", err)
	}
	if !isAdmin {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}
