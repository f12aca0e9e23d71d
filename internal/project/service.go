package project

import (
	"context"
	"errors"
	"strings"
)

// Validation errors returned by the Service layer.
var (
	ErrTitleRequired      = errors.New("title is required")
	ErrTypeRequired       = errors.New("type is required")
	ErrVisibilityRequired = errors.New("visibility is required")
	ErrSkillsRequired     = errors.New("requiredSkills is required")
	ErrOwnerRequired      = errors.New("owner email is required")
)

// ProjectStore is the persistence the service depends on.
type ProjectStore interface {
	Create(ctx context.Context, in CreateRecord) (*Project, error)
	GetByID(ctx context.Context, id string) (*Project, error)
	ListByOwner(ctx context.Context, ownerEmail string) ([]*Project, error)
	ListAll(ctx context.Context) ([]*Project, error)
}

// CreateRecord is the fully normalized row handed to the store.
type CreateRecord struct {
	Title                 string
	Type                  string
	Visibility            string
	RequiredSkills        string
	PreferredTechnologies string
	Domain                string
	GithubRepo            string
	Description           string
	OwnerEmail            string
}

// Service provides validated business logic over the project store.
type Service struct {
	store ProjectStore
}

// NewService creates a new Service wrapping the given store.
func NewService(store ProjectStore) *Service {
	return &Service{store: store}
}

// Create normalizes the list-like fields, validates, and persists.
func (s *Service) Create(ctx context.Context, in CreateProjectInput) (*Project, error) {
	rec := CreateRecord{
		Title:                 strings.TrimSpace(in.Title),
		Type:                  strings.TrimSpace(in.Type),
		Visibility:            strings.TrimSpace(in.Visibility),
		RequiredSkills:        Normalize(in.RequiredSkills),
		PreferredTechnologies: Normalize(in.PreferredTechnologies),
		Domain:                Normalize(in.Domain),
		GithubRepo:            strings.TrimSpace(in.GithubRepo),
		Description:           in.Description,
		OwnerEmail:            in.OwnerEmail,
	}

	if err := validateCreate(rec); err != nil {
		return nil, err
	}
	return s.store.Create(ctx, rec)
}

// GetByID retrieves a project by its ID.
func (s *Service) GetByID(ctx context.Context, id string) (*Project, error) {
	return s.store.GetByID(ctx, id)
}

// ListByOwner returns the projects owned by the given email.
func (s *Service) ListByOwner(ctx context.Context, ownerEmail string) ([]*Project, error) {
	return s.store.ListByOwner(ctx, ownerEmail)
}

// ListAll returns every project, for the public explore feed.
func (s *Service) ListAll(ctx context.Context) ([]*Project, error) {
	return s.store.ListAll(ctx)
}

func validateCreate(rec CreateRecord) error {
	if rec.Title == "" {
		return ErrTitleRequired
	}
	if rec.Type == "" {
		return ErrTypeRequired
	}
	if rec.Visibility == "" {
		return ErrVisibilityRequired
	}
	if rec.RequiredSkills == "" {
		return ErrSkillsRequired
	}
	if rec.OwnerEmail == "" {
		return ErrOwnerRequired
	}
	return nil
}
