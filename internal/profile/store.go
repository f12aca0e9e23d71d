package profile

import (
	"context"
	"fmt"

	"github.com/convergehq/converge/internal/crypto"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for profiles. Raw blobs are encrypted
// at rest when a cipher is configured; a nil cipher stores them as-is.
type Store struct {
	pool   *pgxpool.Pool
	cipher *crypto.Cipher
}

// NewStore creates a new profile store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool, cipher *crypto.Cipher) *Store {
	return &Store{pool: pool, cipher: cipher}
}

// Upsert inserts or replaces the profile for in.Email.
func (s *Store) Upsert(ctx context.Context, in UpsertInput) (*Profile, error) {
	raw := in.RawData
	if raw == nil {
		raw = []byte("{}")
	}
	sealed, err := s.cipher.Seal(raw)
	if err != nil {
		return nil, fmt.Errorf("sealing profile blob: %w", err)
	}

	p := &Profile{}
	var stored []byte
	err = s.pool.QueryRow(ctx,
		`INSERT INTO profiles (email, name, year, department, institution, availability, raw_data, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (email) DO UPDATE SET
		   name = EXCLUDED.name,
		   year = EXCLUDED.year,
		   department = EXCLUDED.department,
		   institution = EXCLUDED.institution,
		   availability = EXCLUDED.availability,
		   raw_data = EXCLUDED.raw_data,
		   updated_at = now()
		 RETURNING email, name, year, department, institution, availability, raw_data, updated_at`,
		in.Email, in.Name, in.Year, in.Department, in.Institution, in.Availability, sealed,
	).Scan(&p.Email, &p.Name, &p.Year, &p.Department, &p.Institution, &p.Availability, &stored, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upserting profile: %w", err)
	}

	p.RawData = raw
	return p, nil
}

// GetByEmail retrieves a profile by the account email it belongs to.
func (s *Store) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	p := &Profile{}
	var sealed []byte
	err := s.pool.QueryRow(ctx,
		`SELECT email, name, year, department, institution, availability, raw_data, updated_at
		 FROM profiles WHERE email = $1`, email,
	).Scan(&p.Email, &p.Name, &p.Year, &p.Department, &p.Institution, &p.Availability, &sealed, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting profile by email: %w", err)
	}

	raw, err := s.cipher.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("opening profile blob: %w", err)
	}
	p.RawData = raw
	return p, nil
}

// Delete removes a profile by email.
func (s *Store) Delete(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM profiles WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	return nil
}
