package model

import "time"

// Admin is an administrator account allowed to sign in to the admin panel.
// Passwords are stored as bcrypt hashes. Accounts are provisioned from the
// CLI and are never deleted by the running server.
type Admin struct {
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"` // bcrypt hash, never expose
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
