package profile

import "time"

// Profile is structured data about a user derived from free-text resume
// input, keyed by account email. RawData is the opaque JSON payload the
// extractor produced; it never leaves the backend.
type Profile struct {
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Year         string    `json:"year,omitempty"`
	Department   string    `json:"department,omitempty"`
	Institution  string    `json:"institution,omitempty"`
	Availability string    `json:"availability,omitempty"`
	RawData      []byte    `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// View is the redacted profile shape exposed in API responses. It carries
// only the display fields, never the raw blob.
type View struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Year         string `json:"year"`
	Department   string `json:"department"`
	Institution  string `json:"institution"`
	Availability string `json:"availability"`
}

// Redacted returns the API-safe view of the profile.
func (p *Profile) Redacted() View {
	return View{
		Email:        p.Email,
		Name:         p.Name,
		Year:         p.Year,
		Department:   p.Department,
		Institution:  p.Institution,
		Availability: p.Availability,
	}
}

// UpsertInput holds the fields written during onboarding.
type UpsertInput struct {
	Email        string
	Name         string
	Year         string
	Department   string
	Institution  string
	Availability string
	RawData      []byte
}
