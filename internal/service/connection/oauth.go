package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"linkarbox/internal/config"
	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/repositories"
	"linkarbox/internal/domain/services"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"google.golang.org/api/drive/v3"
)

// Callback paths registered with the providers
const (
	GoogleCallbackPath  = "/api/connections/google/callback"
	DropboxCallbackPath = "/dropbox-auth"
)

// NewOAuthConfigs builds the authorization-code configuration for every
// provider whose credentials are set.
func NewOAuthConfigs(cfg *config.Config) map[models.CloudProvider]*oauth2.Config {
	configs := make(map[models.CloudProvider]*oauth2.Config)
	base := strings.TrimRight(cfg.OAuthRedirectBase, "/")

	if cfg.GoogleClientID != "" {
		configs[models.ProviderGoogle] = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     endpoints.Google,
			RedirectURL:  base + GoogleCallbackPath,
			Scopes:       []string{drive.DriveScope},
		}
	}
	if cfg.DropboxAppKey != "" {
		configs[models.ProviderDropbox] = &oauth2.Config{
			ClientID:     cfg.DropboxAppKey,
			ClientSecret: cfg.DropboxAppSecret,
			Endpoint:     endpoints.Dropbox,
			RedirectURL:  base + DropboxCallbackPath,
		}
	}
	return configs
}

// authCodeOptions asks both providers for a refresh token
func authCodeOptions(kind models.CloudProvider) []oauth2.AuthCodeOption {
	if kind == models.ProviderDropbox {
		return []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("token_access_type", "offline")}
	}
	return []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce}
}

type oauthState struct {
	userID        string
	provider      models.CloudProvider
	keepConnected bool
	expires       time.Time
}

// stateStore holds pending authorization requests keyed by the state parameter
type stateStore struct {
	mu     sync.Mutex
	states map[string]oauthState
	ttl    time.Duration
	now    func() time.Time
}

func newStateStore(ttl time.Duration, now func() time.Time) *stateStore {
	return &stateStore{
		states: make(map[string]oauthState),
		ttl:    ttl,
		now:    now,
	}
}

func (st *stateStore) issue(userID string, kind models.CloudProvider, keep bool) string {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	for id, s := range st.states {
		if now.After(s.expires) {
			delete(st.states, id)
		}
	}

	id := uuid.NewString()
	st.states[id] = oauthState{
		userID:        userID,
		provider:      kind,
		keepConnected: keep,
		expires:       now.Add(st.ttl),
	}
	return id
}

// consume returns and forgets the state. Each state is usable once.
func (st *stateStore) consume(id string) (oauthState, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.states[id]
	if !ok {
		return oauthState{}, false
	}
	delete(st.states, id)
	if st.now().After(s.expires) {
		return oauthState{}, false
	}
	return s, true
}

// ParseRedirectFragment extracts the token Dropbox appends to the redirect
// URL fragment in the implicit flow.
func ParseRedirectFragment(rawURL string) (*services.ConnectRequest, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redirect URL", domain.ErrValidation)
	}

	values, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redirect fragment", domain.ErrValidation)
	}

	if e := values.Get("error"); e != "" {
		msg := values.Get("error_description")
		if msg == "" {
			msg = e
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderAuth, msg)
	}

	access := values.Get("access_token")
	if access == "" {
		return nil, fmt.Errorf("%w: redirect has no access_token", domain.ErrValidation)
	}

	req := &services.ConnectRequest{
		Provider:     models.ProviderDropbox,
		AccessToken:  access,
		RefreshToken: values.Get("refresh_token"),
		TokenType:    values.Get("token_type"),
	}
	if n, err := strconv.ParseInt(values.Get("expires_in"), 10, 64); err == nil && n > 0 {
		req.ExpiresIn = n
	}
	return req, nil
}

// persistingTokenSource writes rotated tokens back to the connection row
type persistingTokenSource struct {
	src    oauth2.TokenSource
	repo   repositories.CloudConnectionRepository
	logger *slog.Logger

	mu   sync.Mutex
	conn models.CloudConnection
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken == p.conn.AccessToken {
		return tok, nil
	}

	p.conn.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		p.conn.RefreshToken = tok.RefreshToken
	}
	p.conn.TokenType = tok.TokenType
	p.conn.ExpiresAt = expiryPtr(tok.Expiry)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.repo.UpdateToken(ctx, &p.conn); err != nil {
		p.logger.Warn("failed to persist refreshed token",
			"user_id", p.conn.UserID,
			"provider", p.conn.Provider,
			"error", err,
		)
	} else {
		p.logger.Debug("token refreshed", "user_id", p.conn.UserID, "provider", p.conn.Provider)
	}
	return tok, nil
}

// noRefreshSource stands in for the refresher of tokens that came without
// a refresh token. Once they expire the session is over.
type noRefreshSource struct {
	provider models.CloudProvider
}

func (n noRefreshSource) Token() (*oauth2.Token, error) {
	return nil, &domain.ProviderError{
		Provider: string(n.provider),
		Op:       "refresh token",
		Status:   http.StatusUnauthorized,
		Err:      errors.New("access token expired and no refresh token is stored"),
	}
}

func toOAuthToken(conn *models.CloudConnection) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		TokenType:    conn.TokenType,
	}
	if conn.ExpiresAt != nil {
		tok.Expiry = *conn.ExpiresAt
	}
	return tok
}

func expiryPtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
