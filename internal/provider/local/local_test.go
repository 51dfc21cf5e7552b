package local

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ekurganova/agrosense/internal/errs"
	"github.com/ekurganova/agrosense/internal/provider"
	"github.com/ekurganova/agrosense/internal/storage/memory"
)

func newProvider(t *testing.T) *Local {
	t.Helper()
	p, err := New(memory.New(), []byte("test-key"), time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestSignUpAndSignIn(t *testing.T) {
	t.Parallel()
	p := newProvider(t)
	ctx := context.Background()

	sess, err := p.SignUp(ctx, "Ana@Farm.Example", "Passw0rd", provider.Profile{Name: "Ana"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if sess.Identity.Name != "Ana" || sess.AccessToken == "" {
		t.Fatalf("bad session: %+v", sess)
	}

	// Duplicate registration, case-insensitive email.
	if _, err := p.SignUp(ctx, "ana@farm.example", "Other1234", provider.Profile{Name: "Other"}); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}

	got, err := p.SignIn(ctx, "ana@farm.example", "Passw0rd")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if got.Identity.ID != sess.Identity.ID {
		t.Fatalf("identity mismatch: %v vs %v", got.Identity.ID, sess.Identity.ID)
	}

	if _, err := p.SignIn(ctx, "ana@farm.example", "wrong-password"); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
	if _, err := p.SignIn(ctx, "nobody@farm.example", "Passw0rd"); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("unknown account must not be distinguishable, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	p := newProvider(t)
	ctx := context.Background()

	sess, err := p.SignUp(ctx, "ana@farm.example", "Passw0rd", provider.Profile{Name: "Ana"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if err := p.Validate(ctx, sess); err != nil {
		t.Fatalf("Validate fresh session: %v", err)
	}

	if err := p.Validate(ctx, nil); !errors.Is(err, errs.ErrSessionExpired) {
		t.Fatalf("nil session: %v", err)
	}

	tampered := *sess
	tampered.AccessToken = sess.AccessToken + "x"
	if err := p.Validate(ctx, &tampered); !errors.Is(err, errs.ErrSessionExpired) {
		t.Fatalf("tampered token: %v", err)
	}

	// Token signed with another key must not validate.
	other, _ := New(memory.New(), []byte("another-key"), time.Hour)
	if err := other.Validate(ctx, sess); !errors.Is(err, errs.ErrSessionExpired) {
		t.Fatalf("foreign key token: %v", err)
	}
}

func TestEvents(t *testing.T) {
	t.Parallel()
	p := newProvider(t)
	ctx := context.Background()

	if _, err := p.SignUp(ctx, "ana@farm.example", "Passw0rd", provider.Profile{Name: "Ana"}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	ev := <-p.Events()
	if ev.Type != provider.SignedIn || ev.Session == nil {
		t.Fatalf("want SignedIn event, got %+v", ev)
	}

	if err := p.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	ev = <-p.Events()
	if ev.Type != provider.SignedOut {
		t.Fatalf("want SignedOut event, got %+v", ev)
	}

	// Idempotent sign-out emits nothing further.
	if err := p.SignOut(ctx); err != nil {
		t.Fatalf("SignOut idempotent: %v", err)
	}
	select {
	case ev := <-p.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}

	_, _ = p.SignIn(ctx, "ana@farm.example", "Passw0rd")
	<-p.Events()
	p.Expire()
	ev = <-p.Events()
	if ev.Type != provider.Expired || ev.Session == nil {
		t.Fatalf("want Expired with session, got %+v", ev)
	}
}
