package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/convergehq/converge/internal/account"
	"github.com/convergehq/converge/internal/notify"
	"github.com/convergehq/converge/internal/profile"
	"github.com/jackc/pgx/v5"
)

// Validation and outcome errors returned by the registration service.
var (
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrResumeRequired   = errors.New("resumeText is required")
	ErrAccountExists    = errors.New("account already exists for this email")

	// ErrExtractionFailed signals that resume parsing failed after the
	// account row was written; the compensating delete has already been
	// attempted by the time callers see this.
	ErrExtractionFailed = errors.New("failed to parse and save resume during registration")

	// ErrInvalidCredentials covers both unknown email and password mismatch
	// so a caller cannot tell the two apart by error kind.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// AccountStore is the credential persistence the service depends on.
type AccountStore interface {
	Create(ctx context.Context, email, password string) (*account.Account, error)
	GetByEmail(ctx context.Context, email string) (*account.Account, error)
	Delete(ctx context.Context, email string) error
}

// ProfileStore persists structured profiles keyed by account email.
type ProfileStore interface {
	Upsert(ctx context.Context, in profile.UpsertInput) (*profile.Profile, error)
	GetByEmail(ctx context.Context, email string) (*profile.Profile, error)
}

// TokenIssuer mints bearer tokens for an account email.
type TokenIssuer interface {
	Issue(email string) (string, error)
}

// Publisher accepts fire-and-forget profile events for downstream delivery.
type Publisher interface {
	Publish(ev notify.ProfileEvent)
}

// RegisterInput holds the registration request fields. Everything past
// ResumeText is optional and, when supplied, overrides the extracted value.
type RegisterInput struct {
	Email        string
	Password     string
	ResumeText   string
	Name         string
	Year         string
	Department   string
	Institution  string
	Availability string
}

// Result is the outcome of a successful registration or login. Profile is
// nil on login when the account has no stored profile.
type Result struct {
	Token   string
	Profile *profile.View
}

// Stats receives onboarding observability callbacks.
type Stats interface {
	ObserveExtraction(seconds float64)
	IncExtractionError()
	IncRollback()
}

// Service orchestrates the onboarding pipeline: account creation, profile
// extraction, atomic-by-compensation persistence, and token issuance.
type Service struct {
	accounts  AccountStore
	profiles  ProfileStore
	extractor profile.Extractor
	tokens    TokenIssuer
	publisher Publisher
	stats     Stats
	now       func() time.Time
}

// NewService wires the orchestrator. publisher may be nil when no downstream
// sink is configured.
func NewService(accounts AccountStore, profiles ProfileStore, extractor profile.Extractor, tokens TokenIssuer, publisher Publisher) *Service {
	return &Service{
		accounts:  accounts,
		profiles:  profiles,
		extractor: extractor,
		tokens:    tokens,
		publisher: publisher,
		now:       time.Now,
	}
}

// WithStats attaches an observability sink.
func (s *Service) WithStats(stats Stats) *Service {
	s.stats = stats
	return s
}

// Register creates an account and its derived profile as a two-step
// pseudo-transaction. If extraction fails after the account write, the
// account is deleted as a compensating action; the delete's own failure is
// logged and swallowed so the caller sees a single ErrExtractionFailed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	if strings.TrimSpace(in.Email) == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(in.Password) == "" {
		return nil, ErrPasswordRequired
	}

	_, err := s.accounts.GetByEmail(ctx, in.Email)
	if err == nil {
		return nil, ErrAccountExists
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("checking existing account: %w", err)
	}

	// The conflict check runs before resume validation so re-registering an
	// existing email always reports the conflict, whatever the body carried.
	if strings.TrimSpace(in.ResumeText) == "" {
		return nil, ErrResumeRequired
	}

	// Step one of the pseudo-transaction: the account write is durable from
	// here on and must be compensated if the profile step fails.
	acct, err := s.accounts.Create(ctx, in.Email, in.Password)
	if err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}

	extractStart := s.now()
	extracted, err := s.extractor.Extract(ctx, in.ResumeText)
	if s.stats != nil {
		s.stats.ObserveExtraction(s.now().Sub(extractStart).Seconds())
	}
	if err != nil {
		slog.Error("resume extraction failed, rolling back account", "email", in.Email, "error", err)
		if s.stats != nil {
			s.stats.IncExtractionError()
		}
		s.rollbackAccount(ctx, acct.Email)
		return nil, ErrExtractionFailed
	}

	saved, err := s.profiles.Upsert(ctx, mergeProfile(in, extracted))
	if err != nil {
		slog.Error("profile save failed, rolling back account", "email", in.Email, "error", err)
		s.rollbackAccount(ctx, acct.Email)
		return nil, ErrExtractionFailed
	}

	if s.publisher != nil {
		s.publisher.Publish(notify.ProfileEvent{
			Email:        saved.Email,
			Name:         saved.Name,
			Year:         saved.Year,
			Department:   saved.Department,
			Institution:  saved.Institution,
			Availability: saved.Availability,
			SavedAt:      s.now(),
		})
	}

	tok, err := s.tokens.Issue(acct.Email)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	view := saved.Redacted()
	return &Result{Token: tok, Profile: &view}, nil
}

// rollbackAccount deletes the account written earlier in Register. The
// compensation is best-effort: an orphaned account without a profile is an
// accepted, detectable inconsistency, so the delete's failure is logged and
// swallowed.
func (s *Service) rollbackAccount(ctx context.Context, email string) {
	if s.stats != nil {
		s.stats.IncRollback()
	}
	if err := s.accounts.Delete(ctx, email); err != nil {
		slog.Error("compensating account delete failed", "email", email, "error", err)
	}
}

// Login verifies credentials and issues a fresh token. A missing profile is
// not an error; the result simply carries a nil profile.
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(password) == "" {
		return nil, ErrPasswordRequired
	}

	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up account: %w", err)
	}

	if !account.CheckPassword(acct, password) {
		return nil, ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(acct.Email)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	res := &Result{Token: tok}
	p, err := s.profiles.GetByEmail(ctx, email)
	switch {
	case err == nil:
		view := p.Redacted()
		res.Profile = &view
	case errors.Is(err, pgx.ErrNoRows):
		// Account without profile: login still succeeds.
	default:
		slog.Warn("profile lookup failed during login", "email", email, "error", err)
	}

	return res, nil
}

// mergeProfile combines extracted values with caller-supplied fields.
// Explicit fields win; extracted values only fill what the caller left blank.
func mergeProfile(in RegisterInput, ex *profile.Extracted) profile.UpsertInput {
	pick := func(explicit, extracted string) string {
		if strings.TrimSpace(explicit) != "" {
			return explicit
		}
		return extracted
	}

	return profile.UpsertInput{
		Email:        in.Email,
		Name:         pick(in.Name, ex.Name),
		Year:         pick(in.Year, ex.Year),
		Department:   pick(in.Department, ex.Department),
		Institution:  pick(in.Institution, ex.Institution),
		Availability: pick(in.Availability, ex.Availability),
		RawData:      ex.Raw,
	}
}
