package models

import "time"

// CloudProvider is the tag selecting a provider adapter
type CloudProvider string

const (
	ProviderGoogle  CloudProvider = "google"
	ProviderDropbox CloudProvider = "dropbox"
)

// CloudProviders lists every supported provider in reconnect order
var CloudProviders = []CloudProvider{ProviderGoogle, ProviderDropbox}

// Valid reports whether p names a supported provider
func (p CloudProvider) Valid() bool {
	return p == ProviderGoogle || p == ProviderDropbox
}

// CloudConnection is the durable token and preference row for one user and provider
type CloudConnection struct {
	UserID        string        `json:"user_id" db:"user_id"`
	Provider      CloudProvider `json:"provider" db:"provider"`
	AccessToken   string        `json:"-" db:"access_token"`
	RefreshToken  string        `json:"-" db:"refresh_token"`
	TokenType     string        `json:"-" db:"token_type"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty" db:"expires_at"`
	KeepConnected bool          `json:"keep_connected" db:"keep_connected"`
	AccountName   string        `json:"account_name,omitempty" db:"account_name"`
	AccountEmail  string        `json:"account_email,omitempty" db:"account_email"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// ConnectionState is the per-provider session state
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)

// CloudAccount identifies the account behind a provider session
type CloudAccount struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ProviderStatus is the observable state of one provider
type ProviderStatus struct {
	State         ConnectionState `json:"state"`
	Connected     bool            `json:"connected"`
	KeepConnected bool            `json:"keep_connected"`
	Account       *CloudAccount   `json:"account,omitempty"`
}

// ConnectionStatus reports both providers and the active one (empty when none)
type ConnectionStatus struct {
	Active     CloudProvider  `json:"active,omitempty"`
	Connecting bool           `json:"connecting"`
	Google     ProviderStatus `json:"google"`
	Dropbox    ProviderStatus `json:"dropbox"`
}

// StorageQuota is the provider storage usage in bytes
type StorageQuota struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
}
