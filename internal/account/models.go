package account

import "time"

// Account is a credential record identifying a user. The email is the
// case-sensitive key every other component joins on.
type Account struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
