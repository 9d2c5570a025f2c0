package model

import (
	"net/mail"
	"strings"
	"time"
)

// ContactMessage is a submission of the public contact form.
type ContactMessage struct {
	ID        string    `json:"_id" db:"id"`
	FirstName string    `json:"firstName" db:"first_name"`
	LastName  string    `json:"lastName" db:"last_name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	HeardFrom string    `json:"heardFrom" db:"heard_from"`
	Message   string    `json:"message" db:"message"`
	Read      bool      `json:"read" db:"is_read"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Normalize trims every text field.
func (m *ContactMessage) Normalize() {
	m.FirstName = strings.TrimSpace(m.FirstName)
	m.LastName = strings.TrimSpace(m.LastName)
	m.Email = strings.TrimSpace(m.Email)
	m.Phone = strings.TrimSpace(m.Phone)
	m.HeardFrom = strings.TrimSpace(m.HeardFrom)
	m.Message = strings.TrimSpace(m.Message)
}

// Validate checks the fields the contact form marks as required. An email
// that does not parse as an address is reported the same as a missing one.
func (m *ContactMessage) Validate() error {
	var fields []string
	if m.FirstName == "" {
		fields = append(fields, "firstName")
	}
	if m.Email == "" {
		fields = append(fields, "email")
	} else if _, err := mail.ParseAddress(m.Email); err != nil {
		fields = append(fields, "email")
	}
	if m.HeardFrom == "" {
		fields = append(fields, "heardFrom")
	}
	if m.Message == "" {
		fields = append(fields, "message")
	}
	return newValidationError(fields)
}
