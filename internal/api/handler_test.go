package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/convergehq/converge/internal/account"
	"github.com/convergehq/converge/internal/metrics"
	"github.com/convergehq/converge/internal/notify"
	"github.com/convergehq/converge/internal/profile"
	"github.com/convergehq/converge/internal/project"
	"github.com/convergehq/converge/internal/ratelimit"
	"github.com/convergehq/converge/internal/registration"
	"github.com/convergehq/converge/internal/team"
	"github.com/convergehq/converge/internal/token"
)

// ---------------------------------------------------------------------------
// In-memory stores backing a full router for handler tests
// ---------------------------------------------------------------------------

type memAccounts struct {
	byEmail map[string]*account.Account
}

func (m *memAccounts) Create(_ context.Context, email, password string) (*account.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	a := &account.Account{Email: email, PasswordHash: string(hash), CreatedAt: time.Now()}
	m.byEmail[email] = a
	return a, nil
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*account.Account, error) {
	a, ok := m.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("getting account: %w", pgx.ErrNoRows)
	}
	return a, nil
}

func (m *memAccounts) Delete(_ context.Context, email string) error {
	delete(m.byEmail, email)
	return nil
}

type memProfiles struct {
	byEmail map[string]*profile.Profile
}

func (m *memProfiles) Upsert(_ context.Context, in profile.UpsertInput) (*profile.Profile, error) {
	p := &profile.Profile{
		Email:        in.Email,
		Name:         in.Name,
		Year:         in.Year,
		Department:   in.Department,
		Institution:  in.Institution,
		Availability: in.Availability,
		RawData:      in.RawData,
		UpdatedAt:    time.Now(),
	}
	m.byEmail[in.Email] = p
	return p, nil
}

func (m *memProfiles) GetByEmail(_ context.Context, email string) (*profile.Profile, error) {
	p, ok := m.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("getting profile: %w", pgx.ErrNoRows)
	}
	return p, nil
}

type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, resumeText string) (*profile.Extracted, error) {
	return &profile.Extracted{
		Name:       "Extracted Name",
		Year:       "3",
		Department: "Computer Science",
		Raw:        []byte(`{"source":"stub"}`),
	}, nil
}

type memProjects struct {
	rows []*project.Project
	seq  int
}

func (m *memProjects) Create(_ context.Context, in project.CreateRecord) (*project.Project, error) {
	m.seq++
	p := &project.Project{
		ID:                    fmt.Sprintf("proj-%d", m.seq),
		Title:                 in.Title,
		Type:                  in.Type,
		Visibility:            in.Visibility,
		RequiredSkills:        in.RequiredSkills,
		PreferredTechnologies: in.PreferredTechnologies,
		Domain:                in.Domain,
		GithubRepo:            in.GithubRepo,
		Description:           in.Description,
		OwnerEmail:            in.OwnerEmail,
		CreatedAt:             time.Now(),
	}
	m.rows = append(m.rows, p)
	return p, nil
}

func (m *memProjects) GetByID(_ context.Context, id string) (*project.Project, error) {
	for _, p := range m.rows {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("getting project: %w", pgx.ErrNoRows)
}

func (m *memProjects) ListByOwner(_ context.Context, ownerEmail string) ([]*project.Project, error) {
	var out []*project.Project
	for _, p := range m.rows {
		if p.OwnerEmail == ownerEmail {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProjects) ListAll(_ context.Context) ([]*project.Project, error) {
	return m.rows, nil
}

type memMemberships struct {
	rows []*team.Membership
}

func (m *memMemberships) Insert(_ context.Context, projectID, memberEmail string) (*team.Membership, error) {
	for _, row := range m.rows {
		if row.ProjectID == projectID && row.MemberEmail == memberEmail {
			return nil, team.ErrAlreadyMember
		}
	}
	row := &team.Membership{ProjectID: projectID, MemberEmail: memberEmail, AddedAt: time.Now()}
	m.rows = append(m.rows, row)
	return row, nil
}

func (m *memMemberships) Exists(_ context.Context, projectID, memberEmail string) (bool, error) {
	for _, row := range m.rows {
		if row.ProjectID == projectID && row.MemberEmail == memberEmail {
			return true, nil
		}
	}
	return false, nil
}

func (m *memMemberships) ListByProject(_ context.Context, projectID string) ([]*team.Membership, error) {
	var out []*team.Membership
	for _, row := range m.rows {
		if row.ProjectID == projectID {
			out = append(out, row)
		}
	}
	return out, nil
}

type memInvites struct {
	rows []*team.Invite
	seq  int
}

func (m *memInvites) InsertInvite(_ context.Context, projectID, requesterEmail, targetEmail string) (*team.Invite, error) {
	m.seq++
	inv := &team.Invite{
		ID:             fmt.Sprintf("inv-%d", m.seq),
		ProjectID:      projectID,
		RequesterEmail: requesterEmail,
		TargetEmail:    targetEmail,
		Status:         team.StatusPending,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	m.rows = append(m.rows, inv)
	return inv, nil
}

func (m *memInvites) GetInvite(_ context.Context, id string) (*team.Invite, error) {
	for _, inv := range m.rows {
		if inv.ID == id {
			return inv, nil
		}
	}
	return nil, fmt.Errorf("getting invite: %w", pgx.ErrNoRows)
}

func (m *memInvites) HasPendingInvite(_ context.Context, projectID, targetEmail string) (bool, error) {
	for _, inv := range m.rows {
		if inv.ProjectID == projectID && inv.TargetEmail == targetEmail && inv.Status == team.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memInvites) ListInvitesByTarget(_ context.Context, targetEmail string) ([]*team.Invite, error) {
	var out []*team.Invite
	for _, inv := range m.rows {
		if inv.TargetEmail == targetEmail {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memInvites) UpdateInviteStatus(_ context.Context, id, status string) (*team.Invite, error) {
	for _, inv := range m.rows {
		if inv.ID == id {
			inv.Status = status
			inv.UpdatedAt = time.Now()
			return inv, nil
		}
	}
	return nil, fmt.Errorf("updating invite: %w", pgx.ErrNoRows)
}

type noopPublisher struct{}

func (noopPublisher) Publish(notify.ProfileEvent) {}

// newTestRouter wires a complete router over in-memory stores.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	tokens := token.NewService("handler-test-secret", time.Hour)
	accounts := &memAccounts{byEmail: map[string]*account.Account{}}
	profiles := &memProfiles{byEmail: map[string]*profile.Profile{}}
	regSvc := registration.NewService(accounts, profiles, stubExtractor{}, tokens, noopPublisher{})

	projects := project.NewService(&memProjects{})
	teams := team.NewService(projects, profiles, &memMemberships{}, &memInvites{}, nil)

	return NewRouter(RouterDeps{
		Registration:   regSvc,
		Projects:       projects,
		Teams:          teams,
		Tokens:         tokens,
		Limiter:        ratelimit.New(100, time.Minute),
		Metrics:        metrics.New(),
		AllowedOrigins: []string{"*"},
	})
}

func doJSON(t *testing.T, handler http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, handler http.Handler, email string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/auth/register", "", map[string]string{
		"email":      email,
		"password":   "hunter22",
		"resumeText": "Some resume text",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register %s: got %d: %s", email, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding register response: %v", err)
	}
	return resp.Token
}

// ---------------------------------------------------------------------------
// Basic endpoint tests
// ---------------------------------------------------------------------------

func TestHealthCheck_OK(t *testing.T) {
	handler := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", body["status"])
	}
}

func TestWellKnownHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/.well-known/converge.json", nil)
	rec := httptest.NewRecorder()
	WellKnownHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var manifest map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&manifest); err != nil {
		t.Fatalf("failed to decode manifest: %v", err)
	}
	if name, _ := manifest["name"].(string); name != "Converge" {
		t.Errorf("expected name=Converge, got %q", name)
	}
	endpoints, ok := manifest["endpoints"].(map[string]interface{})
	if !ok {
		t.Fatal("endpoints field is not an object")
	}
	for _, ep := range []string{"register", "login", "projects", "explore", "teammates", "invites"} {
		if _, ok := endpoints[ep]; !ok {
			t.Errorf("endpoints missing %q", ep)
		}
	}
}

func TestRouter_SecureHeadersApplied(t *testing.T) {
	handler := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options: got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options: got %q", got)
	}
}

func TestRouter_RequestIDApplied(t *testing.T) {
	handler := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if id := rec.Header().Get("X-Request-ID"); len(id) != 32 {
		t.Errorf("expected generated 32-char request ID, got %q", id)
	}
}

func TestRequestIDMiddleware_ForwardsExistingID(t *testing.T) {
	handler := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-chosen-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if id := rec.Header().Get("X-Request-ID"); id != "client-chosen-id" {
		t.Errorf("expected client request ID to be echoed, got %q", id)
	}
}

func TestRequestIDMiddleware_ReplacesOversizedID(t *testing.T) {
	handler := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("a", maxRequestIDLen+1))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if id := rec.Header().Get("X-Request-ID"); len(id) != 32 {
		t.Errorf("expected regenerated request ID, got %q", id)
	}
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name            string
		allowedOrigins  []string
		requestOrigin   string
		method          string
		wantStatus      int
		wantAllowOrigin string
	}{
		{"wildcard allows any origin", []string{"*"}, "https://example.com", http.MethodGet, http.StatusOK, "*"},
		{"specific origin is echoed back", []string{"https://app.example.com"}, "https://app.example.com", http.MethodGet, http.StatusOK, "https://app.example.com"},
		{"non-matching origin gets no header", []string{"https://app.example.com"}, "https://evil.com", http.MethodGet, http.StatusOK, ""},
		{"no origin header means no CORS headers", []string{"*"}, "", http.MethodGet, http.StatusOK, ""},
		{"preflight returns 204", []string{"*"}, "https://example.com", http.MethodOptions, http.StatusNoContent, "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := corsMiddleware(tt.allowedOrigins)(inner)

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.requestOrigin != "" {
				req.Header.Set("Origin", tt.requestOrigin)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowOrigin {
				t.Errorf("Access-Control-Allow-Origin: got %q, want %q", got, tt.wantAllowOrigin)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusConflict, "conflict", "already exists")

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if env.Error.Code != "conflict" || env.Error.Message != "already exists" {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestReadJSON_TooLarge(t *testing.T) {
	big := strings.Repeat("x", maxBodySize+100)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"v":"`+big+`"}`))

	var v struct {
		V string `json:"v"`
	}
	if err := readJSON(req, &v); err == nil {
		t.Error("expected error for oversized body")
	}
}

func TestReadJSON_RejectsTrailingValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"v":"a"}{"v":"b"}`))

	var v struct {
		V string `json:"v"`
	}
	if err := readJSON(req, &v); err == nil {
		t.Error("expected error for body with trailing JSON value")
	}
}

func TestWriteError_EchoesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("X-Request-ID", "req-123")
	writeError(rec, http.StatusBadRequest, "validation_error", "bad input")

	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if env.Error.RequestID != "req-123" {
		t.Errorf("expected request id echoed in envelope, got %q", env.Error.RequestID)
	}
}

func TestGenerateID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := generateID()
		if len(id) != 32 {
			t.Fatalf("expected 32-char ID, got %q", id)
		}
		if seen[id] {
			t.Fatal("duplicate generated ID")
		}
		seen[id] = true
	}
}

// ---------------------------------------------------------------------------
// Registration and login flow
// ---------------------------------------------------------------------------

func TestRegisterFlow(t *testing.T) {
	handler := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodPost, "/auth/register", "", map[string]string{
		"email":      "alice@example.com",
		"password":   "hunter22",
		"resumeText": "Third-year CS student",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Message string `json:"message"`
		Token   string `json:"token"`
		Profile struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"profile"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Message == "" {
		t.Error("expected a confirmation message")
	}
	if resp.Token == "" {
		t.Error("expected a token")
	}
	if resp.Profile.Email != "alice@example.com" || resp.Profile.Name != "Extracted Name" {
		t.Errorf("unexpected profile %+v", resp.Profile)
	}

	// Duplicate email conflicts.
	rec = doJSON(t, handler, http.MethodPost, "/auth/register", "", map[string]string{
		"email":      "alice@example.com",
		"password":   "hunter22",
		"resumeText": "Third-year CS student",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register: expected 409, got %d", rec.Code)
	}
}

func TestRegisterSnakeCaseResume(t *testing.T) {
	handler := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodPost, "/auth/register", "", map[string]string{
		"email":       "snake@example.com",
		"password":    "hunter22",
		"resume_text": "Some resume",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with snake_case resume key, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	handler := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing resume: expected 400, got %d", rec.Code)
	}
}

func TestLoginFlow(t *testing.T) {
	handler := newTestRouter(t)
	register(t, handler, "alice@example.com")

	rec := doJSON(t, handler, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Wrong password and unknown email both come back as the same 401.
	for _, body := range []map[string]string{
		{"email": "alice@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "hunter22"},
	} {
		rec := doJSON(t, handler, http.MethodPost, "/auth/login", "", body)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 for %v, got %d", body, rec.Code)
		}
		var env errorEnvelope
		if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
			t.Fatalf("decoding envelope: %v", err)
		}
		if env.Error.Message != "invalid email or password" {
			t.Errorf("expected uniform credential error, got %q", env.Error.Message)
		}
	}
}

func TestAPIRequiresToken(t *testing.T) {
	handler := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/projects", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/projects", "not-a-real-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

func TestProjectFlow(t *testing.T) {
	handler := newTestRouter(t)
	aliceTok := register(t, handler, "alice@example.com")
	bobTok := register(t, handler, "bob@example.com")

	// List-valued fields accept arrays and bracketed strings alike.
	rec := doJSON(t, handler, http.MethodPost, "/api/projects", aliceTok, map[string]any{
		"title":           "Campus Marketplace",
		"type":            "web",
		"visibility":      "public",
		"required_skills": "[Go, Postgres, ]",
		"preferredSkills": []string{"Docker", "chi"},
		"domains":         []string{"ecommerce"},
		"description":     "A marketplace for students",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: got %d: %s", rec.Code, rec.Body.String())
	}

	var created project.Project
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decoding project: %v", err)
	}
	if created.RequiredSkills != "Go,Postgres" {
		t.Errorf("expected normalized skills, got %q", created.RequiredSkills)
	}
	if created.PreferredTechnologies != "Docker,chi" {
		t.Errorf("expected preferredSkills alias to be honored, got %q", created.PreferredTechnologies)
	}

	// The owner sees it under /api/projects; another user does not.
	var mine struct {
		Projects []project.Project `json:"projects"`
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/projects", aliceTok, nil)
	if err := json.NewDecoder(rec.Body).Decode(&mine); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(mine.Projects) != 1 {
		t.Errorf("owner list: expected 1 project, got %d", len(mine.Projects))
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/projects", bobTok, nil)
	mine.Projects = nil
	if err := json.NewDecoder(rec.Body).Decode(&mine); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(mine.Projects) != 0 {
		t.Errorf("non-owner list: expected 0 projects, got %d", len(mine.Projects))
	}

	// Explore shows everything with the poster's identity.
	rec = doJSON(t, handler, http.MethodGet, "/api/projects/explore", bobTok, nil)
	var explore struct {
		Projects []struct {
			ID       string `json:"id"`
			PostedBy struct {
				Email string `json:"email"`
			} `json:"postedBy"`
		} `json:"projects"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&explore); err != nil {
		t.Fatalf("decoding explore: %v", err)
	}
	if len(explore.Projects) != 1 || explore.Projects[0].PostedBy.Email != "alice@example.com" {
		t.Errorf("unexpected explore payload %+v", explore.Projects)
	}

	// Detail returns the project with its (empty) team.
	rec = doJSON(t, handler, http.MethodGet, "/api/projects/"+created.ID, bobTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("detail: got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/projects/does-not-exist", bobTok, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing project: expected 404, got %d", rec.Code)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	handler := newTestRouter(t)
	tok := register(t, handler, "alice@example.com")

	rec := doJSON(t, handler, http.MethodPost, "/api/projects", tok, map[string]any{
		"type":       "web",
		"visibility": "public",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing title: expected 400, got %d", rec.Code)
	}
}

func TestExploreWithoutToken(t *testing.T) {
	handler := newTestRouter(t)
	tok := register(t, handler, "alice@example.com")
	createProject(t, handler, tok)

	// Project discovery is public; no Authorization header is sent.
	rec := doJSON(t, handler, http.MethodGet, "/api/projects/explore", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous explore: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var explore struct {
		Projects []struct {
			PostedBy struct {
				Email string `json:"email"`
			} `json:"postedBy"`
		} `json:"projects"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&explore); err != nil {
		t.Fatalf("decoding explore: %v", err)
	}
	if len(explore.Projects) != 1 || explore.Projects[0].PostedBy.Email != "alice@example.com" {
		t.Errorf("unexpected explore payload %+v", explore.Projects)
	}
}

// ---------------------------------------------------------------------------
// Teammates
// ---------------------------------------------------------------------------

func createProject(t *testing.T, handler http.Handler, tok string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/projects", tok, map[string]any{
		"title":          "Team Project",
		"type":           "web",
		"visibility":     "public",
		"requiredSkills": []string{"Go"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: got %d: %s", rec.Code, rec.Body.String())
	}
	var p project.Project
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decoding project: %v", err)
	}
	return p.ID
}

func TestTeammateFlow(t *testing.T) {
	handler := newTestRouter(t)
	ownerTok := register(t, handler, "owner@example.com")
	register(t, handler, "member@example.com")
	otherTok := register(t, handler, "other@example.com")
	projectID := createProject(t, handler, ownerTok)

	// A non-owner is refused.
	rec := doJSON(t, handler, http.MethodPost, "/api/projects/"+projectID+"/teammates", otherTok,
		map[string]string{"email": "member@example.com"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("non-owner add: expected 401, got %d", rec.Code)
	}

	// The owner adds a member once.
	rec = doJSON(t, handler, http.MethodPost, "/api/projects/"+projectID+"/teammates", ownerTok,
		map[string]string{"email": "member@example.com"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add teammate: got %d: %s", rec.Code, rec.Body.String())
	}

	// Adding again conflicts.
	rec = doJSON(t, handler, http.MethodPost, "/api/projects/"+projectID+"/teammates", ownerTok,
		map[string]string{"email": "member@example.com"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate add: expected 409, got %d", rec.Code)
	}

	// A candidate without a profile cannot join.
	rec = doJSON(t, handler, http.MethodPost, "/api/projects/"+projectID+"/teammates", ownerTok,
		map[string]string{"email": "ghost@example.com"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("no profile: expected 404, got %d", rec.Code)
	}

	// Listing shows the member with profile fields.
	rec = doJSON(t, handler, http.MethodGet, "/api/projects/"+projectID+"/teammates", ownerTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list teammates: got %d", rec.Code)
	}
	var list struct {
		Teammates []struct {
			Email string  `json:"email"`
			Name  *string `json:"name"`
		} `json:"teammates"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decoding teammates: %v", err)
	}
	if len(list.Teammates) != 1 || list.Teammates[0].Email != "member@example.com" {
		t.Fatalf("unexpected teammates %+v", list.Teammates)
	}
	if list.Teammates[0].Name == nil || *list.Teammates[0].Name != "Extracted Name" {
		t.Errorf("expected profile name, got %v", list.Teammates[0].Name)
	}
}

// ---------------------------------------------------------------------------
// Invites
// ---------------------------------------------------------------------------

func TestInviteFlow(t *testing.T) {
	handler := newTestRouter(t)
	ownerTok := register(t, handler, "owner@example.com")
	candTok := register(t, handler, "cand@example.com")
	projectID := createProject(t, handler, ownerTok)

	rec := doJSON(t, handler, http.MethodPost, "/api/projects/"+projectID+"/invites", ownerTok,
		map[string]string{"email": "cand@example.com"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create invite: got %d: %s", rec.Code, rec.Body.String())
	}
	var inv team.Invite
	if err := json.NewDecoder(rec.Body).Decode(&inv); err != nil {
		t.Fatalf("decoding invite: %v", err)
	}

	// The candidate sees the invite.
	rec = doJSON(t, handler, http.MethodGet, "/api/invites", candTok, nil)
	var invites struct {
		Invites []team.Invite `json:"invites"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&invites); err != nil {
		t.Fatalf("decoding invites: %v", err)
	}
	if len(invites.Invites) != 1 {
		t.Fatalf("expected 1 invite, got %d", len(invites.Invites))
	}

	// Only the target may accept.
	rec = doJSON(t, handler, http.MethodPost, "/api/invites/"+inv.ID+"/accept", ownerTok, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-target accept: expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/invites/"+inv.ID+"/accept", candTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept invite: got %d: %s", rec.Code, rec.Body.String())
	}

	// Accepting joined the team.
	rec = doJSON(t, handler, http.MethodGet, "/api/projects/"+projectID+"/teammates", candTok, nil)
	var list struct {
		Teammates []struct {
			Email string `json:"email"`
		} `json:"teammates"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decoding teammates: %v", err)
	}
	if len(list.Teammates) != 1 || list.Teammates[0].Email != "cand@example.com" {
		t.Errorf("expected accepted member on team, got %+v", list.Teammates)
	}

	// A resolved invite cannot be answered again.
	rec = doJSON(t, handler, http.MethodPost, "/api/invites/"+inv.ID+"/reject", candTok, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("resolved invite: expected 409, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Rate limiting on credential endpoints
// ---------------------------------------------------------------------------

func TestLoginRateLimit(t *testing.T) {
	tokens := token.NewService("handler-test-secret", time.Hour)
	accounts := &memAccounts{byEmail: map[string]*account.Account{}}
	profiles := &memProfiles{byEmail: map[string]*profile.Profile{}}
	regSvc := registration.NewService(accounts, profiles, stubExtractor{}, tokens, noopPublisher{})
	projects := project.NewService(&memProjects{})
	teams := team.NewService(projects, profiles, &memMemberships{}, &memInvites{}, nil)

	handler := NewRouter(RouterDeps{
		Registration:   regSvc,
		Projects:       projects,
		Teams:          teams,
		Tokens:         tokens,
		Limiter:        ratelimit.New(2, time.Minute),
		Metrics:        metrics.New(),
		AllowedOrigins: []string{"*"},
	})

	body := map[string]string{"email": "alice@example.com", "password": "wrong"}
	for i := 0; i < 2; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/auth/login", "", body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}

	rec := doJSON(t, handler, http.MethodPost, "/auth/login", "", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after exhausting limit, got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "2" {
		t.Errorf("expected X-RateLimit-Limit 2, got %q", rec.Header().Get("X-RateLimit-Limit"))
	}
}
