package models

import "time"

// UserRole separates architects (owners) from their clients
type UserRole string

const (
	RoleArchitect UserRole = "architect"
	RoleClient    UserRole = "client"
)

// Profile mirrors the profiles table maintained alongside Supabase auth users
type Profile struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	DisplayName *string   `json:"display_name,omitempty" db:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	Role        UserRole  `json:"role" db:"role"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Label returns the best human-readable name for the profile
func (p *Profile) Label() string {
	if p.DisplayName != nil && *p.DisplayName != "" {
		return *p.DisplayName
	}
	return p.Name
}
