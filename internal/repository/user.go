package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/webstore/store-api/internal/domain/auth"
	"github.com/webstore/store-api/internal/domain/user"
)

const (
	userColumns = `id, first_name, last_name, email, password, phone, address, role, created_at`

	getUserByIDSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	listUsersSQL = `SELECT ` + userColumns + ` FROM users ORDER BY id DESC LIMIT $1 OFFSET $2`

	countUsersSQL = `SELECT count(*) FROM users`

	createUserSQL = `INSERT INTO users (first_name, last_name, email, password, phone, address, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, created_at`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID returns a single account.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	rows, err := r.pool.Query(ctx, getUserByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}
	return &u, nil
}

// List returns one window of accounts, newest first.
func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]user.User, error) {
	rows, err := r.pool.Query(ctx, listUsersSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return pgx.CollectRows(rows, scanUser)
}

// Count returns the number of accounts.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countUsersSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// Create inserts u, or returns the existing account with the same email,
// and sets its ID and CreatedAt.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := r.pool.QueryRow(ctx, createUserSQL,
		u.FirstName, u.LastName, u.Email, u.Password, u.Phone, u.Address, string(u.Role),
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var (
		u    user.User
		role string
	)
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Password,
		&u.Phone, &u.Address, &role, &u.CreatedAt,
	)
	u.Role = auth.Role(role)
	return u, err
}
