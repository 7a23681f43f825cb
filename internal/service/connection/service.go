// Package connection manages provider sessions: OAuth flows, token
// persistence, auto-reconnect and the single-active-provider rule.
package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"linkarbox/internal/config"
	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/repositories"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/provider"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/oauth2"
)

// service implements the ConnectionService interface
type service struct {
	repo     repositories.CloudConnectionRepository
	adapters *provider.Registry
	oauth    map[models.CloudProvider]*oauth2.Config
	states   *stateStore
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	epochs   atomic.Uint64
}

// NewService creates a new connection service
func NewService(
	repo repositories.CloudConnectionRepository,
	adapters *provider.Registry,
	oauthConfigs map[models.CloudProvider]*oauth2.Config,
	logger *slog.Logger,
) services.ConnectionService {
	return newService(repo, adapters, oauthConfigs, logger)
}

func newService(
	repo repositories.CloudConnectionRepository,
	adapters *provider.Registry,
	oauthConfigs map[models.CloudProvider]*oauth2.Config,
	logger *slog.Logger,
) *service {
	if oauthConfigs == nil {
		oauthConfigs = make(map[models.CloudProvider]*oauth2.Config)
	}
	return &service{
		repo:     repo,
		adapters: adapters,
		oauth:    oauthConfigs,
		states:   newStateStore(config.OAuthStateTTL, time.Now),
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

func (s *service) session(userID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = newSession()
		s.sessions[userID] = sess
	}
	return sess
}

// Status reports both providers
func (s *service) Status(ctx context.Context, userID string) (*models.ConnectionStatus, error) {
	s.ensureRestored(ctx, userID)
	return s.session(userID).status(), nil
}

// Active returns the live session
func (s *service) Active(ctx context.Context, userID string) (*services.Session, error) {
	s.ensureRestored(ctx, userID)
	if active := s.session(userID).current(); active != nil {
		return active, nil
	}
	return nil, domain.ErrNotConnected
}

// ensureRestored runs the auto-reconnect once per user. Callers arriving
// while it runs wait for it instead of starting their own attempt.
func (s *service) ensureRestored(ctx context.Context, userID string) {
	sess := s.session(userID)
	sess.restoreMu.Lock()
	defer sess.restoreMu.Unlock()

	if sess.restored {
		return
	}
	sess.restored = s.restore(ctx, userID, sess)
}

// restore reconnects the first kept provider whose cached token still
// validates. A token that fails validation is cleared. Returns false when
// ctx ended before the attempt completed, so a later call retries.
func (s *service) restore(ctx context.Context, userID string, sess *session) bool {
	for _, kind := range models.CloudProviders {
		conn, err := s.repo.Get(ctx, userID, kind)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			if !errors.Is(err, domain.ErrNotFound) {
				s.logger.Warn("failed to load cached connection", "user_id", userID, "provider", kind, "error", err)
			}
			continue
		}

		sess.setKeep(kind, conn.KeepConnected)
		if !conn.KeepConnected || conn.AccessToken == "" || sess.current() != nil {
			continue
		}

		if err := sess.beginConnecting(kind); err != nil {
			continue
		}
		_, err = s.activate(ctx, sess, conn)
		sess.endConnecting()

		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			s.logger.Warn("auto-reconnect failed, clearing cached token",
				"user_id", userID,
				"provider", kind,
				"error", err,
			)
			s.forget(ctx, userID, kind)
			continue
		}

		s.logger.Info("cloud session restored", "user_id", userID, "provider", kind)
	}
	return true
}

// activate validates the connection with a "who am I" call, persists it
// and makes it the active session. The caller holds the connecting flag.
func (s *service) activate(ctx context.Context, sess *session, conn *models.CloudConnection) (*services.Session, error) {
	adapter, err := s.newAdapter(ctx, conn)
	if err != nil {
		return nil, err
	}

	account, err := adapter.Account(ctx)
	if err != nil {
		return nil, fmt.Errorf("validate %s token: %w", conn.Provider, err)
	}

	conn.AccountName = account.Name
	conn.AccountEmail = account.Email
	if err := s.repo.Upsert(ctx, conn); err != nil {
		return nil, err
	}

	active := &services.Session{
		UserID:   conn.UserID,
		Provider: conn.Provider,
		Adapter:  adapter,
		Account:  account,
		Epoch:    s.epochs.Add(1),
	}
	sess.setActive(active)
	sess.setKeep(conn.Provider, conn.KeepConnected)
	return active, nil
}

// newAdapter builds an adapter whose token source refreshes and persists
// rotated tokens.
func (s *service) newAdapter(ctx context.Context, conn *models.CloudConnection) (provider.Adapter, error) {
	tok := toOAuthToken(conn)

	var refresher oauth2.TokenSource = noRefreshSource{provider: conn.Provider}
	if cfg, ok := s.oauth[conn.Provider]; ok && tok.RefreshToken != "" {
		refresher = cfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: tok.RefreshToken})
	}

	ts := &persistingTokenSource{
		src:    oauth2.ReuseTokenSourceWithExpiry(tok, refresher, config.TokenExpiryBuffer),
		repo:   s.repo,
		logger: s.logger,
		conn:   *conn,
	}

	adapter, err := s.adapters.New(context.WithoutCancel(ctx), conn.Provider, ts)
	if err != nil {
		return nil, fmt.Errorf("create %s adapter: %w", conn.Provider, err)
	}
	return adapter, nil
}

// connect makes tok the user's active session for kind. A session on the
// other provider is disconnected first.
func (s *service) connect(ctx context.Context, userID string, kind models.CloudProvider, tok *oauth2.Token, keep bool) (*models.ConnectionStatus, error) {
	sess := s.session(userID)
	if err := sess.beginConnecting(kind); err != nil {
		return nil, err
	}
	defer sess.endConnecting()

	// Reconnecting the same provider must not revoke the grant the new token belongs to
	if prev := sess.current(); prev != nil {
		s.teardown(ctx, prev, prev.Provider != kind)
	}

	if tok.Expiry.IsZero() && kind == models.ProviderDropbox {
		tok.Expiry = s.now().Add(config.DropboxDefaultExpiry)
	}

	conn := &models.CloudConnection{
		UserID:        userID,
		Provider:      kind,
		AccessToken:   tok.AccessToken,
		RefreshToken:  tok.RefreshToken,
		TokenType:     tok.Type(),
		ExpiresAt:     expiryPtr(tok.Expiry),
		KeepConnected: keep,
	}

	active, err := s.activate(ctx, sess, conn)
	if err != nil {
		s.logger.Warn("cloud connect failed", "user_id", userID, "provider", kind, "error", err)
		return nil, err
	}

	s.logger.Info("cloud connected",
		"user_id", userID,
		"provider", kind,
		"account", active.Account.Email,
		"keep_connected", keep,
	)
	return sess.status(), nil
}

// AuthURL starts the authorization-code flow
func (s *service) AuthURL(ctx context.Context, userID string, kind models.CloudProvider, keepConnected bool) (string, error) {
	cfg, ok := s.oauth[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s is not configured", domain.ErrUnsupported, kind)
	}

	state := s.states.issue(userID, kind, keepConnected)
	return cfg.AuthCodeURL(state, authCodeOptions(kind)...), nil
}

// CompleteOAuth exchanges an authorization code
func (s *service) CompleteOAuth(ctx context.Context, state, code string) (*models.ConnectionStatus, error) {
	st, ok := s.states.consume(state)
	if !ok {
		return nil, fmt.Errorf("%w: unknown or expired authorization state", domain.ErrValidation)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", domain.ErrValidation)
	}

	cfg, ok := s.oauth[st.provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not configured", domain.ErrUnsupported, st.provider)
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange %s code: %v", domain.ErrProviderAuth, st.provider, err)
	}

	return s.connect(ctx, st.userID, st.provider, tok, st.keepConnected)
}

// ConnectToken validates and activates a browser-supplied token
func (s *service) ConnectToken(ctx context.Context, userID string, req *services.ConnectRequest) (*models.ConnectionStatus, error) {
	if err := validateConnectRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	tok := &oauth2.Token{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		TokenType:    req.TokenType,
	}
	if req.ExpiresIn > 0 {
		tok.Expiry = s.now().Add(time.Duration(req.ExpiresIn) * time.Second)
	}

	return s.connect(ctx, userID, req.Provider, tok, req.KeepConnected)
}

func validateConnectRequest(req *services.ConnectRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Provider,
			validation.Required,
			validation.By(func(value interface{}) error {
				if p, _ := value.(models.CloudProvider); !p.Valid() {
					return errors.New("must be google or dropbox")
				}
				return nil
			}),
		),
		validation.Field(&req.AccessToken, validation.Required),
		validation.Field(&req.ExpiresIn, validation.Min(int64(0))),
	)
}

// ConnectRedirect connects Dropbox from an implicit-flow redirect URL
func (s *service) ConnectRedirect(ctx context.Context, userID, redirectURL string, keepConnected bool) (*models.ConnectionStatus, error) {
	req, err := ParseRedirectFragment(redirectURL)
	if err != nil {
		return nil, err
	}
	req.KeepConnected = keepConnected
	return s.ConnectToken(ctx, userID, req)
}

// Disconnect revokes and forgets a provider's token
func (s *service) Disconnect(ctx context.Context, userID string, kind models.CloudProvider) (*models.ConnectionStatus, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrValidation, kind)
	}

	sess := s.session(userID)
	if active := sess.current(); active != nil && active.Provider == kind {
		s.teardown(ctx, active, true)
	} else {
		// Not live: revoke the cached token if there is one
		if adapter, err := s.StoredAdapter(ctx, userID, kind); err == nil {
			s.revoke(ctx, userID, adapter)
		}
		s.forget(ctx, userID, kind)
	}

	s.logger.Info("cloud disconnected", "user_id", userID, "provider", kind)
	return sess.status(), nil
}

// teardown ends a session. With revoke set the token is revoked first
// (best effort); the cached row is always removed.
func (s *service) teardown(ctx context.Context, active *services.Session, revoke bool) {
	sess := s.session(active.UserID)
	if !sess.clearActive(active.Epoch) {
		return
	}
	if revoke {
		s.revoke(ctx, active.UserID, active.Adapter)
	}
	s.forget(ctx, active.UserID, active.Provider)
}

func (s *service) revoke(ctx context.Context, userID string, adapter provider.Adapter) {
	if err := adapter.Revoke(ctx); err != nil {
		s.logger.Warn("token revoke failed", "user_id", userID, "provider", adapter.Kind(), "error", err)
	}
}

// forget removes the cached token and preference
func (s *service) forget(ctx context.Context, userID string, kind models.CloudProvider) {
	s.session(userID).setKeep(kind, false)
	if err := s.repo.Delete(context.WithoutCancel(ctx), userID, kind); err != nil {
		s.logger.Warn("failed to clear cached token", "user_id", userID, "provider", kind, "error", err)
	}
}

// SetKeepConnected updates the auto-reconnect preference
func (s *service) SetKeepConnected(ctx context.Context, userID string, kind models.CloudProvider, keep bool) (*models.ConnectionStatus, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrValidation, kind)
	}
	if err := s.repo.SetKeepConnected(ctx, userID, kind, keep); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotConnected, kind)
		}
		return nil, err
	}

	sess := s.session(userID)
	sess.setKeep(kind, keep)
	return sess.status(), nil
}

// Invalidate drops a session whose token the provider rejected
func (s *service) Invalidate(ctx context.Context, userID string, epoch uint64) {
	active := s.session(userID).current()
	if active == nil || active.Epoch != epoch {
		return
	}
	s.logger.Warn("provider rejected token, disconnecting", "user_id", userID, "provider", active.Provider)
	s.teardown(ctx, active, false)
}

// StoredAdapter builds an adapter from the cached token without validating it
func (s *service) StoredAdapter(ctx context.Context, userID string, kind models.CloudProvider) (provider.Adapter, error) {
	if active := s.session(userID).current(); active != nil && active.Provider == kind {
		return active.Adapter, nil
	}

	conn, err := s.repo.Get(ctx, userID, kind)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotConnected, kind)
		}
		return nil, err
	}
	return s.newAdapter(ctx, conn)
}
