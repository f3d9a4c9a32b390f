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

// BookService manages the catalog. Listing requires the librarian
// role; editing is restricted to the book's own seller or an admin.
type BookService struct {
	books  *db.BookStore
	users  *db.UserStore
	logger *slog.Logger
}

func NewBookService(books *db.BookStore, users *db.UserStore, logger *slog.Logger) *BookService {
	return &BookService{books: books, users: users, logger: logger}
}

type CreateBookInput struct {
	Name        string
	Description string
	Category    string
	ImageURL    string
	PriceCents  int
	Status      models.BookStatus
}

func (s *BookService) Create(ctx context.Context, identity auth.Identity, input CreateBookInput) (*db.Book, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if input.PriceCents <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	if input.Status == "" {
		input.Status = models.BookPublished
	}
	if input.Status != models.BookPublished && input.Status != models.BookUnpublished {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, input.Status)
	}

	seller, err := s.requireSeller(ctx, identity)
	if err != nil {
		return nil, err
	}

	exists, err := s.books.ExistsBySellerAndName(ctx, identity.Email, input.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate listing: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: you already list %q", ErrConflict, input.Name)
	}

	book := &db.Book{
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
		PriceCents:  input.PriceCents,
		Status:      input.Status,
		Seller:      models.Party{Name: seller.Name, Email: seller.Email},
	}
	if err := s.books.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	s.logger.InfoContext(ctx, "book listed",
		slog.String("book_id", book.ID.String()),
		slog.String("seller_email", book.Seller.Email),
	)
	return book, nil
}

// ListPublished is the public storefront view.
func (s *BookService) ListPublished(ctx context.Context) ([]*db.Book, error) {
	return s.books.ListPublished(ctx)
}

// ListMine returns the caller's own listings, published or not.
func (s *BookService) ListMine(ctx context.Context, identity auth.Identity) ([]*db.Book, error) {
	return s.books.ListBySeller(ctx, identity.Email)
}

func (s *BookService) Get(ctx context.Context, bookID uuid.UUID) (*db.Book, error) {
	book, err := s.books.GetByID(ctx, bookID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: book", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load book: %w", err)
	}
	return book, nil
}

func (s *BookService) Update(ctx context.Context, identity auth.Identity, bookID uuid.UUID, update db.BookUpdate) (*db.Book, error) {
	if update.PriceCents != nil && *update.PriceCents <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	if update.Status != nil && *update.Status != models.BookPublished && *update.Status != models.BookUnpublished {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *update.Status)
	}

	book, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnerOrAdmin(ctx, identity, book); err != nil {
		return nil, err
	}

	if err := s.books.Update(ctx, bookID, update); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: book", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	return s.Get(ctx, bookID)
}

func (s *BookService) Delete(ctx context.Context, identity auth.Identity, bookID uuid.UUID) error {
	book, err := s.Get(ctx, bookID)
	if err != nil {
		return err
	}
	if err := s.requireOwnerOrAdmin(ctx, identity, book); err != nil {
		return err
	}

	if err := s.books.Delete(ctx, bookID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: book", ErrNotFound)
		}
		return fmt.Errorf("failed to delete book: %w", err)
	}

	s.logger.InfoContext(ctx, "book removed",
		slog.String("book_id", bookID.String()),
		slog.String("by", identity.Email),
	)
	return nil
}

func (s *BookService) requireSeller(ctx context.Context, identity auth.Identity) (*db.User, error) {
	user, err := s.users.GetByEmail(ctx, identity.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: librarian role required", ErrForbidden)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Role != models.RoleLibrarian && user.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: librarian role required", ErrForbidden)
	}
	return user, nil
}

func (s *BookService) requireOwnerOrAdmin(ctx context.Context, identity auth.Identity, book *db.Book) error {
	if identity.Email == book.Seller.Email {
		return nil
	}
	isAdmin, err := s.users.IsAdmin(ctx, identity.Email)
	if err != nil {
		return fmt.Errorf("failed to resolve caller role: %w", err)
	}
	if !isAdmin {
		return fmt.Errorf("%w: not your listing", ErrForbidden)
	}
	return nil
}
