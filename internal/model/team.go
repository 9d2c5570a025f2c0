package model

import (
	"strings"
	"time"
)

// Team member categories, in the order they are listed on the site.
const (
	CategoryLeadership = "leadership"
	CategoryCore       = "core"
	CategorySupport    = "support"
)

// Categories lists the valid team member categories in display order.
var Categories = []string{CategoryLeadership, CategoryCore, CategorySupport}

// CategoryRank returns the display position of a category. Unknown
// categories sort last.
func CategoryRank(category string) int {
	for i, c := range Categories {
		if c == category {
			return i
		}
	}
	return len(Categories)
}

// ValidCategory reports whether category is one of Categories.
func ValidCategory(category string) bool {
	return CategoryRank(category) < len(Categories)
}

// TeamMember is a person shown on the About page. Picture is an opaque
// reference (usually a URL) produced by the image storage backend.
type TeamMember struct {
	ID        string    `json:"_id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Role      string    `json:"role" db:"role"`
	Picture   string    `json:"picture" db:"picture"`
	Category  string    `json:"category" db:"category"`
	Order     int       `json:"order" db:"sort_order"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Normalize trims text fields and fills defaults for omitted fields.
func (m *TeamMember) Normalize() {
	m.Name = strings.TrimSpace(m.Name)
	m.Role = strings.TrimSpace(m.Role)
	m.Category = strings.TrimSpace(m.Category)
	if m.Category == "" {
		m.Category = CategoryCore
	}
}

// Validate checks required fields and the category enum.
func (m *TeamMember) Validate() error {
	var fields []string
	if m.Name == "" {
		fields = append(fields, "name")
	}
	if m.Role == "" {
		fields = append(fields, "role")
	}
	if !ValidCategory(m.Category) {
		fields = append(fields, "category")
	}
	return newValidationError(fields)
}

// TeamMemberPatch carries a partial update. Nil fields are left unchanged.
type TeamMemberPatch struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	Picture  *string `json:"picture"`
	Category *string `json:"category"`
	Order    *int    `json:"order"`
}

// Apply copies the set fields of p onto m. Empty name, role and category
// values are ignored, matching how the admin form submits untouched inputs.
func (p TeamMemberPatch) Apply(m *TeamMember) {
	if p.Name != nil && *p.Name != "" {
		m.Name = *p.Name
	}
	if p.Role != nil && *p.Role != "" {
		m.Role = *p.Role
	}
	if p.Category != nil && *p.Category != "" {
		m.Category = *p.Category
	}
	if p.Order != nil {
		m.Order = *p.Order
	}
	if p.Picture != nil {
		m.Picture = *p.Picture
	}
}
