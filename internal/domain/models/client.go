package models

import "time"

// ClientStatus is the lifecycle state of an architect's client
type ClientStatus string

const (
	ClientActive   ClientStatus = "active"
	ClientPending  ClientStatus = "pending"
	ClientInactive ClientStatus = "inactive"
)

// Client is a customer record owned by an architect
type Client struct {
	ID           string       `json:"id" db:"id"`
	ArchitectID  string       `json:"architect_id" db:"architect_id"`
	Name         string       `json:"name" db:"name"`
	Email        string       `json:"email" db:"email"`
	Phone        *string      `json:"phone,omitempty" db:"phone"`
	CPFCNPJ      *string      `json:"cpf_cnpj,omitempty" db:"cpf_cnpj"`
	Address      *string      `json:"address,omitempty" db:"address"`
	Notes        *string      `json:"notes,omitempty" db:"notes"`
	Status       ClientStatus `json:"status" db:"status"`
	InviteToken  *string      `json:"invite_token,omitempty" db:"invite_token"`
	InviteSentAt *time.Time   `json:"invite_sent_at,omitempty" db:"invite_sent_at"`
	RegisteredAt *time.Time   `json:"registered_at,omitempty" db:"registered_at"`
	UserID       *string      `json:"user_id,omitempty" db:"user_id"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// ClientStats counts an architect's clients by status
type ClientStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Pending  int `json:"pending"`
	Inactive int `json:"inactive"`
}

// Invite is the public view of a pending invitation
type Invite struct {
	ClientID      string `json:"client_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	ArchitectName string `json:"architect_name"`
	Link          string `json:"link,omitempty"`
}
