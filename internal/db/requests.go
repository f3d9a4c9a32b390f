package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateRequest marks a second librarian request from the same
// email while one is still pending.
var ErrDuplicateRequest = errors.New("librarian request already exists")

type LibrarianRequestStore struct {
	pool *pgxpool.Pool
}

func NewLibrarianRequestStore(pool *pgxpool.Pool) *LibrarianRequestStore {
	return &LibrarianRequestStore{pool: pool}
}

func (s *LibrarianRequestStore) Create(ctx context.Context, request *LibrarianRequest) error {
	query := `
		INSERT INTO librarian_requests (email, message)
		VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, created_at
	`
	rows, err := s.pool.Query(ctx, query, request.Email, request.Message)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return ErrDuplicateRequest
	}
	return rows.Scan(&request.ID, &request.CreatedAt)
}

func (s *LibrarianRequestStore) ListByEmail(ctx context.Context, email string) ([]*LibrarianRequest, error) {
	query := `SELECT id, email, message, created_at FROM librarian_requests
		WHERE email = $1 ORDER BY created_at DESC`
	return s.list(ctx, query, email)
}

func (s *LibrarianRequestStore) ListAll(ctx context.Context) ([]*LibrarianRequest, error) {
	query := `SELECT id, email, message, created_at FROM librarian_requests
		ORDER BY created_at DESC`
	return s.list(ctx, query)
}

func (s *LibrarianRequestStore) DeleteByEmail(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM librarian_requests WHERE email = $1`, email)
	return err
}

func (s *LibrarianRequestStore) list(ctx context.Context, query string, args ...any) ([]*LibrarianRequest, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*LibrarianRequest
	for rows.Next() {
		var request LibrarianRequest
		if err := rows.Scan(&request.ID, &request.Email, &request.Message, &request.CreatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, &request)
	}
	return requests, rows.Err()
}
