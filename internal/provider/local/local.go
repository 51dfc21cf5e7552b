// Package local implements provider.Provider on top of the key-value store,
// with argon2id password hashing and HS256 access tokens. It backs single-node
// and offline deployments where no external identity service is available.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ekurganova/agrosense/internal/errs"
	"github.com/ekurganova/agrosense/internal/model"
	"github.com/ekurganova/agrosense/internal/provider"
	"github.com/ekurganova/agrosense/internal/storage"
)

// account is the persisted registered-identity record.
type account struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Phone    string    `json:"phone,omitempty"`
	Location string    `json:"location,omitempty"`
	FarmSize float64   `json:"farm_size,omitempty"`
	Crops    []string  `json:"crops,omitempty"`
	ExpYears int       `json:"experience_years,omitempty"`
	PwdHash  []byte    `json:"pwd_hash"`
	Salt     []byte    `json:"salt"`
	Created  time.Time `json:"created_at"`
}

// Local is a storage-backed Provider.
type Local struct {
	store     storage.Store
	signKey   []byte
	accessTTL time.Duration
	now       func() time.Time

	mu      sync.Mutex
	current *model.Session
	events  chan provider.Event
}

var _ provider.Provider = (*Local)(nil)

// New constructs a local provider. signKey must be non-empty; accessTTL
// defaults to 24h when zero.
func New(store storage.Store, signKey []byte, accessTTL time.Duration) (*Local, error) {
	if len(signKey) == 0 {
		return nil, errors.New("local provider: empty signing key")
	}
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	return &Local{
		store:     store,
		signKey:   signKey,
		accessTTL: accessTTL,
		now:       time.Now,
		events:    make(chan provider.Event, 8),
	}, nil
}

func accountKey(email string) string {
	return storage.PrefixUsers + strings.ToLower(email)
}

func (p *Local) loadAccount(ctx context.Context, email string) (*account, error) {
	b, err := p.store.Get(ctx, accountKey(email))
	if err != nil {
		return nil, err
	}
	var acc account
	if err := json.Unmarshal(b, &acc); err != nil {
		return nil, fmt.Errorf("%w: account record", errs.ErrStorageCorrupted)
	}
	return &acc, nil
}

func (p *Local) identity(acc *account) model.Identity {
	return model.Identity{
		ID:       acc.ID,
		Email:    acc.Email,
		Name:     acc.Name,
		Phone:    acc.Phone,
		Location: acc.Location,
		FarmSize: acc.FarmSize,
		Crops:    acc.Crops,
		ExpYears: acc.ExpYears,
	}
}

// issueSession creates a signed access token and the session carrying it.
func (p *Local) issueSession(acc *account) (*model.Session, error) {
	now := p.now()
	exp := now.Add(p.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   acc.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(p.signKey)
	if err != nil {
		return nil, err
	}
	return &model.Session{
		AccessToken: signed,
		ExpiresAt:   exp,
		Identity:    p.identity(acc),
	}, nil
}

func (p *Local) emit(ev provider.Event) {
	select {
	case p.events <- ev:
	default:
		// Slow consumer; drop rather than block the auth path.
	}
}

// SignIn verifies credentials and returns a fresh session.
func (p *Local) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	acc, err := p.loadAccount(ctx, email)
	if err != nil {
		// Hide account existence on lookup failure.
		return nil, errs.ErrInvalidCredentials
	}
	if !verifyPassword([]byte(password), acc.Salt, acc.PwdHash) {
		return nil, errs.ErrInvalidCredentials
	}
	sess, err := p.issueSession(acc)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.current = sess
	p.mu.Unlock()
	p.emit(provider.Event{Type: provider.SignedIn, Session: sess})
	return sess, nil
}

// SignUp registers a new account and signs it in.
func (p *Local) SignUp(ctx context.Context, email, password string, profile provider.Profile) (*model.Session, error) {
	if _, err := p.store.Get(ctx, accountKey(email)); err == nil {
		return nil, errs.ErrAlreadyExists
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	salt, err := randSalt()
	if err != nil {
		return nil, err
	}
	acc := &account{
		ID:       id,
		Email:    strings.ToLower(email),
		Name:     profile.Name,
		Phone:    profile.Phone,
		Location: profile.Location,
		FarmSize: profile.FarmSize,
		Crops:    profile.Crops,
		ExpYears: profile.ExpYears,
		PwdHash:  hashPassword([]byte(password), salt),
		Salt:     salt,
		Created:  p.now(),
	}
	b, err := json.Marshal(acc)
	if err != nil {
		return nil, err
	}
	if err := p.store.Set(ctx, accountKey(email), b); err != nil {
		return nil, err
	}

	sess, err := p.issueSession(acc)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.current = sess
	p.mu.Unlock()
	p.emit(provider.Event{Type: provider.SignedIn, Session: sess})
	return sess, nil
}

// SignOut drops the current session. Idempotent.
func (p *Local) SignOut(_ context.Context) error {
	p.mu.Lock()
	had := p.current != nil
	p.current = nil
	p.mu.Unlock()
	if had {
		p.emit(provider.Event{Type: provider.SignedOut})
	}
	return nil
}

// Validate parses and verifies the session's access token.
func (p *Local) Validate(_ context.Context, sess *model.Session) error {
	if sess == nil || sess.AccessToken == "" {
		return errs.ErrSessionExpired
	}
	tok, err := jwt.Parse(sess.AccessToken, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.signKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return errs.ErrSessionExpired
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub != sess.Identity.ID.String() {
		return errs.ErrSessionExpired
	}
	return nil
}

// Events returns the session-change stream.
func (p *Local) Events() <-chan provider.Event { return p.events }

// Expire force-invalidates the current session, emitting an Expired event.
// Used by tests and by admin tooling.
func (p *Local) Expire() {
	p.mu.Lock()
	sess := p.current
	p.current = nil
	p.mu.Unlock()
	if sess != nil {
		p.emit(provider.Event{Type: provider.Expired, Session: sess})
	}
}
