package account

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Store provides database operations for accounts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new account store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a new account with a bcrypt-hashed password.
func (s *Store) Create(ctx context.Context, email, password string) (*Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	a := &Account{}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO accounts (email, password_hash)
		 VALUES ($1, $2)
		 RETURNING email, password_hash, created_at`,
		email, string(hash),
	).Scan(&a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return a, nil
}

// GetByEmail retrieves an account by its email address.
func (s *Store) GetByEmail(ctx context.Context, email string) (*Account, error) {
	a := &Account{}
	err := s.pool.QueryRow(ctx,
		`SELECT email, password_hash, created_at
		 FROM accounts WHERE email = $1`, email,
	).Scan(&a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting account by email: %w", err)
	}
	return a, nil
}

// Delete removes an account by email. Used as the compensating action when
// profile extraction fails mid-registration.
func (s *Store) Delete(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return nil
}

// CheckPassword verifies a plaintext password against the account's stored hash.
func CheckPassword(a *Account, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}
