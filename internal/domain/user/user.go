// Package user holds the account records the order engine reads. Accounts
// are created and authenticated elsewhere; this package only looks them up.
package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/webstore/store-api/internal/domain/auth"
	"github.com/webstore/store-api/pkg/pagination"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// User is a store account.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
	Address   string
	Role      auth.Role
	CreatedAt time.Time
}

// Redacted returns a copy of u with the password credential blanked.
func (u User) Redacted() User {
	u.Password = ""
	return u
}

// Repository defines read operations over accounts, plus the insert used by
// the seeding tool.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context, offset, limit int) ([]User, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, u *User) error
}

// Page is one window of the account listing.
type Page struct {
	Users  []User
	Window pagination.Window
}

// Service serves the admin account listing.
type Service struct {
	users    Repository
	pageSize int
}

// NewService creates a Service paging with pageSize.
func NewService(users Repository, pageSize int) *Service {
	return &Service{users: users, pageSize: pageSize}
}

// List returns the requested page of accounts, newest first, with
// credentials blanked.
func (s *Service) List(ctx context.Context, page int) (*Page, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "count users")
	}
	w := pagination.New(count, s.pageSize, page)

	out := &Page{Window: w, Users: []User{}}
	if w.Empty() {
		return out, nil
	}
	users, err := s.users.List(ctx, w.Offset, w.PageSize)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	for _, u := range users {
		out.Users = append(out.Users, u.Redacted())
	}
	return out, nil
}

// Get returns one account with its credential blanked.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r := u.Redacted()
	return &r, nil
}
