package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookcourier/bookcourier/internal/models"
)

type BookStore struct {
	pool *pgxpool.Pool
}

func NewBookStore(pool *pgxpool.Pool) *BookStore {
	return &BookStore{pool: pool}
}

const bookColumns = `id, name, description, category, image_url, price_cents,
	status, seller_name, seller_email, created_at`

func (s *BookStore) Create(ctx context.Context, book *Book) error {
	query := `
		INSERT INTO books (name, description, category, image_url, price_cents,
			status, seller_name, seller_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	row := s.pool.QueryRow(ctx, query,
		book.Name, textOrNull(book.Description), textOrNull(book.Category),
		textOrNull(book.ImageURL), book.PriceCents, string(book.Status),
		book.Seller.Name, book.Seller.Email,
	)
	return row.Scan(&book.ID, &book.CreatedAt)
}

func (s *BookStore) GetByID(ctx context.Context, bookID uuid.UUID) (*Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	return scanBook(s.pool.QueryRow(ctx, query, bookID))
}

func (s *BookStore) ListPublished(ctx context.Context) ([]*Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE status = $1 ORDER BY created_at DESC`
	return s.list(ctx, query, string(models.BookPublished))
}

func (s *BookStore) ListBySeller(ctx context.Context, email string) ([]*Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE seller_email = $1 ORDER BY created_at DESC`
	return s.list(ctx, query, email)
}

func (s *BookStore) ExistsBySellerAndName(ctx context.Context, email, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM books WHERE seller_email = $1 AND name = $2)`,
		email, name,
	).Scan(&exists)
	return exists, err
}

// Update applies a partial edit. Nil fields are left untouched.
type BookUpdate struct {
	Name        *string
	Description *string
	Category    *string
	ImageURL    *string
	PriceCents  *int
	Status      *models.BookStatus
}

func (s *BookStore) Update(ctx context.Context, bookID uuid.UUID, update BookUpdate) error {
	query := `
		UPDATE books
		SET name = COALESCE($1, name),
		    description = COALESCE($2, description),
		    category = COALESCE($3, category),
		    image_url = COALESCE($4, image_url),
		    price_cents = COALESCE($5, price_cents),
		    status = COALESCE($6, status)
		WHERE id = $7
	`
	var status *string
	if update.Status != nil {
		value := string(*update.Status)
		status = &value
	}
	cmdTag, err := s.pool.Exec(ctx, query,
		update.Name, update.Description, update.Category,
		update.ImageURL, update.PriceCents, status, bookID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *BookStore) Delete(ctx context.Context, bookID uuid.UUID) error {
	cmdTag, err := s.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, bookID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *BookStore) list(ctx context.Context, query string, args ...any) ([]*Book, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

func scanBook(row pgx.Row) (*Book, error) {
	var (
		book        Book
		description pgtype.Text
		category    pgtype.Text
		imageURL    pgtype.Text
		status      string
	)
	err := row.Scan(&book.ID, &book.Name, &description, &category, &imageURL,
		&book.PriceCents, &status, &book.Seller.Name, &book.Seller.Email, &book.CreatedAt)
	if err != nil {
		return nil, err
	}
	book.Status = models.BookStatus(status)
	if description.Valid {
		book.Description = description.String
	}
	if category.Valid {
		book.Category = category.String
	}
	if imageURL.Valid {
		book.ImageURL = imageURL.String
	}
	return &book, nil
}
