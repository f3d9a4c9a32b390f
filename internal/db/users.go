package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookcourier/bookcourier/internal/models"
)

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = `id, name, email, photo_url, role, created_at, last_login_at`

// Upsert saves a new user with the customer role, or bumps the login
// timestamp for a returning one. The stored role is never downgraded
// by a login.
func (s *UserStore) Upsert(ctx context.Context, user *User) (created bool, err error) {
	query := `
		INSERT INTO users (name, email, photo_url, role, last_login_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (email) DO UPDATE SET last_login_at = NOW()
		RETURNING id, role, created_at, last_login_at, (xmax = 0)
	`
	row := s.pool.QueryRow(ctx, query,
		user.Name, user.Email, textOrNull(user.PhotoURL), string(models.RoleCustomer),
	)
	var role string
	if err := row.Scan(&user.ID, &role, &user.CreatedAt, &user.LastLoginAt, &created); err != nil {
		return false, err
	}
	user.Role = models.Role(role)
	return created, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(s.pool.QueryRow(ctx, query, email))
}

func (s *UserStore) GetByID(ctx context.Context, userID uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.pool.QueryRow(ctx, query, userID))
}

func (s *UserStore) List(ctx context.Context) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *UserStore) UpdateProfile(ctx context.Context, email, name, photoURL string) error {
	cmdTag, err := s.pool.Exec(ctx,
		`UPDATE users SET name = $1, photo_url = $2 WHERE email = $3`,
		name, textOrNull(photoURL), email,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *UserStore) UpdateRole(ctx context.Context, userID uuid.UUID, role models.Role) error {
	cmdTag, err := s.pool.Exec(ctx,
		`UPDATE users SET role = $1 WHERE id = $2`,
		string(role), userID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// IsAdmin resolves the admin flag for a mutation-side authorization
// check. Unknown identities are simply not admins.
func (s *UserStore) IsAdmin(ctx context.Context, email string) (bool, error) {
	var role string
	err := s.pool.QueryRow(ctx, `SELECT role FROM users WHERE email = $1`, email).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return models.Role(role) == models.RoleAdmin, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		user     User
		photoURL pgtype.Text
		role     string
	)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &photoURL, &role, &user.CreatedAt, &user.LastLoginAt)
	if err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	if photoURL.Valid {
		user.PhotoURL = photoURL.String
	}
	return &user, nil
}
