package project

import (
	"encoding/json"
	"time"
)

// Project is a collaborative project listing. List-like fields are stored in
// normalized comma-separated form. Projects are immutable once created.
type Project struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	Type                  string    `json:"type"`
	Visibility            string    `json:"visibility"`
	RequiredSkills        string    `json:"requiredSkills"`
	PreferredTechnologies string    `json:"preferredTechnologies"`
	Domain                string    `json:"domain"`
	GithubRepo            string    `json:"githubRepo"`
	Description           string    `json:"description"`
	OwnerEmail            string    `json:"-"`
	CreatedAt             time.Time `json:"createdAt"`
}

// CreateProjectInput holds the fields required to create a project. The
// list-like fields accept either JSON arrays or single comma-joined strings.
type CreateProjectInput struct {
	Title                 string     `json:"title"`
	Type                  string     `json:"type"`
	Visibility            string     `json:"visibility"`
	RequiredSkills        StringList `json:"requiredSkills"`
	PreferredTechnologies StringList `json:"preferredTechnologies"`
	Domain                StringList `json:"domain"`
	GithubRepo            string     `json:"githubRepo"`
	Description           string     `json:"description"`
	OwnerEmail            string     `json:"-"`
}

// StringList decodes from either a JSON array of strings or a single string
// that may itself be a bracketed/comma-joined list.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = []string{one}
	return nil
}
