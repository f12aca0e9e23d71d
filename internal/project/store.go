package project

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for projects.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new project store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const projectColumns = `id, title, type, visibility, required_skills, preferred_technologies,
	 domain, github_repo, description, owner_email, created_at`

func scanProject(scan func(dest ...any) error) (*Project, error) {
	p := &Project{}
	err := scan(&p.ID, &p.Title, &p.Type, &p.Visibility, &p.RequiredSkills,
		&p.PreferredTechnologies, &p.Domain, &p.GithubRepo, &p.Description,
		&p.OwnerEmail, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new project with an app-generated ID.
func (s *Store) Create(ctx context.Context, in CreateRecord) (*Project, error) {
	p, err := scanProject(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO projects (id, title, type, visibility, required_skills,
			   preferred_technologies, domain, github_repo, description, owner_email)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING `+projectColumns,
			uuid.NewString(), in.Title, in.Type, in.Visibility, in.RequiredSkills,
			in.PreferredTechnologies, in.Domain, in.GithubRepo, in.Description, in.OwnerEmail,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	return p, nil
}

// GetByID retrieves a project by primary key.
func (s *Store) GetByID(ctx context.Context, id string) (*Project, error) {
	p, err := scanProject(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting project by id: %w", err)
	}
	return p, nil
}

// ListByOwner returns the projects owned by ownerEmail, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerEmail string) ([]*Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE owner_email = $1 ORDER BY created_at DESC`, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("listing projects by owner: %w", err)
	}
	defer rows.Close()

	return collectProjects(rows.Next, rows.Scan, rows.Err)
}

// ListAll returns every project, newest first.
func (s *Store) ListAll(ctx context.Context) ([]*Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	return collectProjects(rows.Next, rows.Scan, rows.Err)
}

func collectProjects(next func() bool, scan func(dest ...any) error, rowsErr func() error) ([]*Project, error) {
	var projects []*Project
	for next() {
		p, err := scanProject(scan)
		if err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rowsErr()
}
