package services

import (
	"context"

	"linkarbox/internal/domain/models"
)

// CreateClientRequest creates or invites a client
type CreateClientRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone,omitempty"`
	CPFCNPJ *string `json:"cpf_cnpj,omitempty"`
	Address *string `json:"address,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// UpdateClientRequest is a partial update; nil fields are left unchanged
type UpdateClientRequest struct {
	Name    *string              `json:"name,omitempty"`
	Email   *string              `json:"email,omitempty"`
	Phone   *string              `json:"phone,omitempty"`
	CPFCNPJ *string              `json:"cpf_cnpj,omitempty"`
	Address *string              `json:"address,omitempty"`
	Notes   *string              `json:"notes,omitempty"`
	Status  *models.ClientStatus `json:"status,omitempty"`
}

// RegisterRequest completes an invite
type RegisterRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// ClientService manages an architect's clients and their invitations
type ClientService interface {
	CreateClient(ctx context.Context, architectID string, req *CreateClientRequest) (*models.Client, error)
	// InviteClient creates a pending client and returns its invite
	InviteClient(ctx context.Context, architectID string, req *CreateClientRequest) (*models.Invite, error)
	ListClients(ctx context.Context, architectID string) ([]models.Client, error)
	GetClient(ctx context.Context, id, architectID string) (*models.Client, error)
	UpdateClient(ctx context.Context, id, architectID string, req *UpdateClientRequest) (*models.Client, error)
	DeleteClient(ctx context.Context, id, architectID string) error
	// ResendInvite rotates the invite token of a pending client
	ResendInvite(ctx context.Context, id, architectID string) (*models.Invite, error)
	Stats(ctx context.Context, architectID string) (*models.ClientStats, error)

	// GetInvite is public; returns domain.ErrInvalidInvite for unknown or used tokens
	GetInvite(ctx context.Context, token string) (*models.Invite, error)
	CompleteRegistration(ctx context.Context, token string, req *RegisterRequest) (*models.Client, error)
}

// UserProvisioner creates auth users on behalf of the backend
type UserProvisioner interface {
	// CreateUser returns the new user's id. metadata lands in user_metadata.
	CreateUser(ctx context.Context, email, password string, metadata map[string]interface{}) (string, error)
	DeleteUser(ctx context.Context, id string) error
}
