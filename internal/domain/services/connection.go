package services

import (
	"context"

	"linkarbox/internal/domain/models"
	"linkarbox/internal/provider"
)

// Session is a snapshot of a user's live provider session.
// Epoch changes on every connect, switch and disconnect; anything cached
// against an older epoch belongs to a session that no longer exists.
type Session struct {
	UserID   string
	Provider models.CloudProvider
	Adapter  provider.Adapter
	Account  *models.CloudAccount
	Epoch    uint64
}

// ConnectRequest carries a token obtained outside the code flow
// (Google token client, Dropbox implicit redirect).
type ConnectRequest struct {
	Provider      models.CloudProvider `json:"provider"`
	AccessToken   string               `json:"access_token"`
	RefreshToken  string               `json:"refresh_token,omitempty"`
	TokenType     string               `json:"token_type,omitempty"`
	ExpiresIn     int64                `json:"expires_in,omitempty"`
	KeepConnected bool                 `json:"keep_connected"`
}

// ConnectionService owns provider sessions. At most one provider is active
// per user; connecting a second one disconnects the first.
type ConnectionService interface {
	// Status reports both providers, restoring kept sessions on first use
	Status(ctx context.Context, userID string) (*models.ConnectionStatus, error)

	// Active returns the live session, or domain.ErrNotConnected
	Active(ctx context.Context, userID string) (*Session, error)

	// AuthURL starts the authorization-code flow and returns the provider URL
	AuthURL(ctx context.Context, userID string, kind models.CloudProvider, keepConnected bool) (string, error)

	// CompleteOAuth exchanges the code for the user who owns state
	CompleteOAuth(ctx context.Context, state, code string) (*models.ConnectionStatus, error)

	// ConnectToken validates and activates a token supplied by the browser
	ConnectToken(ctx context.Context, userID string, req *ConnectRequest) (*models.ConnectionStatus, error)

	// ConnectRedirect parses a Dropbox redirect URL fragment and connects
	ConnectRedirect(ctx context.Context, userID, redirectURL string, keepConnected bool) (*models.ConnectionStatus, error)

	// Disconnect revokes the token where possible and clears the cached row
	Disconnect(ctx context.Context, userID string, kind models.CloudProvider) (*models.ConnectionStatus, error)

	// SetKeepConnected updates the auto-reconnect preference
	SetKeepConnected(ctx context.Context, userID string, kind models.CloudProvider, keep bool) (*models.ConnectionStatus, error)

	// Invalidate tears down the session of the given epoch after a provider 401
	Invalidate(ctx context.Context, userID string, epoch uint64)

	// StoredAdapter builds a detached adapter from a user's cached token
	// without touching their session.
	StoredAdapter(ctx context.Context, userID string, kind models.CloudProvider) (provider.Adapter, error)
}
