// Package session maintains the authenticated-identity lifecycle: login,
// registration, logout, restoration from persisted storage, rate limiting of
// auth attempts and inactivity-timeout enforcement.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekurganova/agrosense/internal/errs"
	"github.com/ekurganova/agrosense/internal/limiter"
	"github.com/ekurganova/agrosense/internal/model"
	"github.com/ekurganova/agrosense/internal/provider"
	"github.com/ekurganova/agrosense/internal/storage"
	"github.com/ekurganova/agrosense/internal/validate"
)

// DefaultIdleTimeout is the inactivity window before forced logout.
const DefaultIdleTimeout = 30 * time.Minute

// Manager owns exactly one current Identity/Session pair, or none.
type Manager struct {
	prov  provider.Provider
	store storage.Store
	lim   limiter.Limiter
	log   *zap.Logger

	idleTimeout time.Duration
	now         func() time.Time

	mu      sync.Mutex
	current *model.Session
	idle    *time.Timer
}

// Option configures the Manager.
type Option func(*Manager)

// WithIdleTimeout overrides the inactivity window.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.idleTimeout = d
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager constructs a Manager with required dependencies.
func NewManager(prov provider.Provider, store storage.Store, lim limiter.Limiter, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		prov:        prov,
		store:       store,
		lim:         lim,
		log:         log,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Current returns the active session, or nil when logged out.
func (m *Manager) Current() *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Identity returns the active identity, or nil. An Identity is never exposed
// without a backing session.
func (m *Manager) Identity() *model.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	id := m.current.Identity
	return &id
}

// Login authenticates email/password. The rate-limit record is consulted
// before the provider is ever contacted; five failures within the window
// reject further attempts regardless of credential validity.
func (m *Manager) Login(ctx context.Context, email, password string) (*model.Session, error) {
	if err := validate.Email(email); err != nil {
		return nil, err
	}
	if err := validate.LoginPassword(password); err != nil {
		return nil, err
	}

	allowed, retryAfter, err := m.lim.Allow(ctx, email)
	if err != nil {
		return nil, err
	}
	if !allowed {
		m.log.Warn("login rate limited",
			zap.String("email", email),
			zap.Duration("retry_after", retryAfter),
		)
		return nil, errs.ErrRateLimited
	}

	sess, err := m.prov.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidCredentials) {
			// The attempt itself still fails as a credential error; the
			// lock applies from the next attempt on.
			if _, _, ferr := m.lim.Failure(ctx, email); ferr != nil {
				m.log.Warn("recording login failure failed", zap.Error(ferr))
			}
		}
		// Transport failures do not count toward the lockout and pass
		// through for the caller's retry policy.
		return nil, err
	}

	if err := m.lim.Success(ctx, email); err != nil {
		m.log.Warn("rate-limit reset failed", zap.Error(err))
	}
	m.adopt(ctx, sess)
	return sess, nil
}

// Register creates a new identity under the strong password policy and signs
// it in immediately.
func (m *Manager) Register(ctx context.Context, email, password, name string) (*model.Session, error) {
	if err := validate.Email(email); err != nil {
		return nil, err
	}
	if err := validate.StrongPassword(password); err != nil {
		return nil, err
	}
	if err := validate.Name(name); err != nil {
		return nil, err
	}

	sess, err := m.prov.SignUp(ctx, email, password, provider.Profile{
		Name: validate.SanitizeText(name, 100),
	})
	if err != nil {
		return nil, err
	}
	m.adopt(ctx, sess)
	return sess, nil
}

// adopt installs a session as current, persists it and arms the idle timer.
func (m *Manager) adopt(ctx context.Context, sess *model.Session) {
	m.mu.Lock()
	m.current = sess
	m.armIdleLocked()
	m.mu.Unlock()

	if err := m.persist(ctx, sess); err != nil {
		m.log.Warn("session persist failed", zap.Error(err))
	}
}

func (m *Manager) persist(ctx context.Context, sess *model.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, storage.KeySession, b)
}

// Restore loads the persisted session at process start. A blob that fails
// structural validation or is no longer honored by the provider is discarded
// entirely; restore never yields a partially populated identity.
func (m *Manager) Restore(ctx context.Context) (*model.Session, error) {
	b, err := m.store.Get(ctx, storage.KeySession)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess model.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		m.log.Warn("discarding corrupted session blob", zap.Error(err))
		_ = m.store.Delete(ctx, storage.KeySession)
		return nil, nil
	}
	if !sess.Valid(m.now()) {
		m.log.Info("discarding invalid or expired session blob")
		_ = m.store.Delete(ctx, storage.KeySession)
		return nil, nil
	}
	if err := m.prov.Validate(ctx, &sess); err != nil {
		if errors.Is(err, errs.ErrSessionExpired) {
			m.log.Info("provider no longer honors persisted session")
			_ = m.store.Delete(ctx, storage.KeySession)
			return nil, nil
		}
		return nil, err
	}

	m.mu.Lock()
	m.current = &sess
	m.armIdleLocked()
	m.mu.Unlock()
	m.log.Info("session restored", zap.String("email", sess.Identity.Email))
	return &sess, nil
}

// Logout clears the identity, invalidates the session and erases persisted
// session-scoped state. Safe to call with no active session.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.current = nil
	m.stopIdleLocked()
	m.mu.Unlock()

	if err := m.prov.SignOut(ctx); err != nil {
		m.log.Warn("provider sign-out failed", zap.Error(err))
	}
	if err := m.store.Delete(ctx, storage.KeySession); err != nil {
		return err
	}
	return m.store.Delete(ctx, storage.KeyPreferences)
}

// Touch re-arms the inactivity timer. Call on any user-activity signal.
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return
	}
	m.armIdleLocked()
}

// armIdleLocked (re)arms the idle timer; the prior timer is always stopped
// first so repeated arm/disarm cycles never leak timers.
func (m *Manager) armIdleLocked() {
	m.stopIdleLocked()
	m.idle = time.AfterFunc(m.idleTimeout, m.expireIdle)
}

func (m *Manager) stopIdleLocked() {
	if m.idle != nil {
		m.idle.Stop()
		m.idle = nil
	}
}

func (m *Manager) expireIdle() {
	m.log.Info("session expired due to inactivity")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Logout(ctx); err != nil {
		m.log.Warn("forced logout cleanup failed", zap.Error(err))
	}
}

// Watch consumes provider session-change events until ctx is done. Handling
// is an explicit two-phase protocol: phase one updates only the session,
// phase two invokes onChange for any follow-up fetches, in that order.
func (m *Manager) Watch(ctx context.Context, onChange func(ctx context.Context, sess *model.Session)) {
	events := m.prov.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case provider.SignedIn:
				m.mu.Lock()
				m.current = ev.Session
				m.armIdleLocked()
				m.mu.Unlock()
			case provider.SignedOut, provider.Expired:
				m.mu.Lock()
				m.current = nil
				m.stopIdleLocked()
				m.mu.Unlock()
				_ = m.store.Delete(ctx, storage.KeySession)
			}
			if onChange != nil {
				onChange(ctx, m.Current())
			}
		}
	}
}
