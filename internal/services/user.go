package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bookcourier/bookcourier/internal/auth"
	"github.com/bookcourier/bookcourier/internal/db"
	"github.com/bookcourier/bookcourier/internal/models"
)

// UserService manages accounts and role assignments. Accounts are
// created lazily on first login; the identity provider authenticates,
// we only keep the profile and role.
type UserService struct {
	users    *db.UserStore
	requests *db.LibrarianRequestStore
	logger   *slog.Logger
}

func NewUserService(users *db.UserStore, requests *db.LibrarianRequestStore, logger *slog.Logger) *UserService {
	return &UserService{users: users, requests: requests, logger: logger}
}

// Login upserts the caller's account. Returning users keep their
// stored role; only the login timestamp moves.
func (s *UserService) Login(ctx context.Context, identity auth.Identity, name, photoURL string) (*db.User, bool, error) {
	user := &db.User{
		Name:     strings.TrimSpace(name),
		Email:    identity.Email,
		PhotoURL: photoURL,
	}
	created, err := s.users.Upsert(ctx, user)
	if err != nil {
		return nil, false, fmt.Errorf("failed to save user: %w", err)
	}
	if created {
		s.logger.InfoContext(ctx, "user created", slog.String("email", user.Email))
	}
	return user, created, nil
}

func (s *UserService) Get(ctx context.Context, identity auth.Identity) (*db.User, error) {
	user, err := s.users.GetByEmail(ctx, identity.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// List returns every account. Admin only.
func (s *UserService) List(ctx context.Context, identity auth.Identity) ([]*db.User, error) {
	if err := s.requireAdmin(ctx, identity); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

func (s *UserService) UpdateProfile(ctx context.Context, identity auth.Identity, name, photoURL string) (*db.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	err := s.users.UpdateProfile(ctx, identity.Email, name, photoURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.Get(ctx, identity)
}

// SetRole assigns a role to an account. Admin only. Promoting to
// librarian clears any pending librarian request for that account.
func (s *UserService) SetRole(ctx context.Context, identity auth.Identity, userID uuid.UUID, role models.Role) (*db.User, error) {
	switch role {
	case models.RoleCustomer, models.RoleLibrarian, models.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if err := s.requireAdmin(ctx, identity); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	user.Role = role

	if role == models.RoleLibrarian {
		if err := s.requests.DeleteByEmail(ctx, user.Email); err != nil {
			s.logger.WarnContext(ctx, "failed to clear librarian request",
				slog.String("email", user.Email),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "user role updated",
		slog.String("email", user.Email),
		slog.String("role", string(role)),
		slog.String("by", identity.Email),
	)
	return user, nil
}

func (s *UserService) requireAdmin(ctx context.Context, identity auth.Identity) error {
	isAdmin, err := s.users.IsAdmin(ctx, identity.Email)
	if err != nil {
		return fmt.Errorf("failed to resolve caller role: %w", err)
	}
	if !isAdmin {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}
