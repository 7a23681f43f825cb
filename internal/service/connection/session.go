package connection

import (
	"fmt"
	"sync"

	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/services"
)

// session is one user's provider state. Only the service writes to it.
type session struct {
	mu         sync.Mutex
	active     *services.Session
	connecting models.CloudProvider
	keep       map[models.CloudProvider]bool

	restoreMu sync.Mutex
	restored  bool
}

func newSession() *session {
	return &session{keep: make(map[models.CloudProvider]bool)}
}

func (sess *session) current() *services.Session {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.active
}

func (sess *session) setActive(active *services.Session) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.active = active
}

// clearActive drops the session if it is still the given epoch
func (sess *session) clearActive(epoch uint64) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.active == nil || sess.active.Epoch != epoch {
		return false
	}
	sess.active = nil
	return true
}

// beginConnecting claims the single connection slot
func (sess *session) beginConnecting(kind models.CloudProvider) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.connecting != "" {
		return fmt.Errorf("%w: a %s connection is already in progress", domain.ErrConflict, sess.connecting)
	}
	sess.connecting = kind
	return nil
}

func (sess *session) endConnecting() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.connecting = ""
}

func (sess *session) setKeep(kind models.CloudProvider, keep bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.keep[kind] = keep
}

func (sess *session) status() *models.ConnectionStatus {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	st := &models.ConnectionStatus{
		Connecting: sess.connecting != "",
		Google:     sess.providerStatus(models.ProviderGoogle),
		Dropbox:    sess.providerStatus(models.ProviderDropbox),
	}
	if sess.active != nil {
		st.Active = sess.active.Provider
	}
	return st
}

// providerStatus must be called with mu held
func (sess *session) providerStatus(kind models.CloudProvider) models.ProviderStatus {
	ps := models.ProviderStatus{
		State:         models.StateDisconnected,
		KeepConnected: sess.keep[kind],
	}
	switch {
	case sess.connecting == kind:
		ps.State = models.StateConnecting
	case sess.active != nil && sess.active.Provider == kind:
		ps.State = models.StateConnected
		ps.Connected = true
		ps.Account = sess.active.Account
	}
	return ps
}
