package students

import "time"

// Profile is the academic record backed 1:1 by an account. Name and email
// are denormalized copies of the account's fields; the service keeps them
// in sync on every write. EnrolledAt is set once at creation.
type Profile struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Course     string    `json:"course"`
	EnrolledAt time.Time `json:"enrolled_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
