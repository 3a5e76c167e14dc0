package models

// User represents a single user record.
type User struct {
	ID       string     `json:"id"` // Assigned by the store on save, empty before
	Name     string     `json:"name"`
	Email    string     `json:"email"` // Secondary lookup key, not unique
	Password Credential `json:"-"`     // Never serialised
}
