package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pathtracker/pathtracker/adapters/clock"
	"github.com/pathtracker/pathtracker/adapters/idgen"
	"github.com/pathtracker/pathtracker/adapters/memory"
	"github.com/pathtracker/pathtracker/adapters/random"
	"github.com/pathtracker/pathtracker/app"
	"github.com/pathtracker/pathtracker/domain/session"
	"github.com/pathtracker/pathtracker/domain/tenant"
	"github.com/pathtracker/pathtracker/ports"
)

var sessBase = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

func newSessionFixture(t *testing.T) (*app.SessionService, *clock.Fake) {
	t.Helper()

	tenants := memory.NewTenantStore()
	if err := tenants.Create(context.Background(), tenant.New("tn-1", "acme", sessBase)); err != nil {
		t.Fatalf("Create tenant: %v", err)
	}

	clk := clock.NewFake(sessBase)
	svc := app.NewSessionService(memory.NewSessionStore(), tenants, random.NewFake(), clk, idgen.NewSequential("ses_"))
	return svc, clk
}

func TestSessionCreate(t *testing.T) {
	svc, _ := newSessionFixture(t)

	token, sess, err := svc.Create(context.Background(), "tn-1", time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if !strings.HasPrefix(token, session.TokenPrefix) {
		t.Errorf("token %q must start with %q", token, session.TokenPrefix)
	}
	if sess.TenantID != "tn-1" {
		t.Errorf("TenantID = %q", sess.TenantID)
	}
	if !sess.ExpiresAt.Equal(sessBase.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want now+1h", sess.ExpiresAt)
	}
}

func TestSessionCreate_UnknownTenant(t *testing.T) {
	svc, _ := newSessionFixture(t)

	_, _, err := svc.Create(context.Background(), "tn-ghost", time.Hour)
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSessionCreate_ZeroTTLUsesDefault(t *testing.T) {
	svc, _ := newSessionFixture(t)

	_, sess, err := svc.Create(context.Background(), "tn-1", 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !sess.ExpiresAt.Equal(sessBase.Add(app.DefaultSessionTTL)) {
		t.Errorf("ExpiresAt = %v, want default TTL", sess.ExpiresAt)
	}
}

func TestSessionCreate_ConfiguredDefaultTTL(t *testing.T) {
	svc, _ := newSessionFixture(t)
	svc.SetDefaultTTL(6 * time.Hour)

	_, sess, err := svc.Create(context.Background(), "tn-1", 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !sess.ExpiresAt.Equal(sessBase.Add(6 * time.Hour)) {
		t.Errorf("ExpiresAt = %v, want now+6h from the configured default", sess.ExpiresAt)
	}
}

func TestSessionResolve(t *testing.T) {
	svc, _ := newSessionFixture(t)

	token, created, err := svc.Create(context.Background(), "tn-1", time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sess, err := svc.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sess.ID != created.ID {
		t.Errorf("resolved ID = %q, want %q", sess.ID, created.ID)
	}
}

func TestSessionResolve_UnknownToken(t *testing.T) {
	svc, _ := newSessionFixture(t)

	_, err := svc.Resolve(context.Background(), "ptses_nosuchtoken")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSessionResolve_Expired(t *testing.T) {
	svc, clk := newSessionFixture(t)

	token, _, err := svc.Create(context.Background(), "tn-1", time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	clk.Advance(2 * time.Hour)

	_, err = svc.Resolve(context.Background(), token)
	if !errors.Is(err, app.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}

	// The expired session is deleted opportunistically; a second resolve
	// no longer finds it at all.
	_, err = svc.Resolve(context.Background(), token)
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("second resolve err = %v, want ErrNotFound", err)
	}
}

func TestSessionDelete(t *testing.T) {
	svc, _ := newSessionFixture(t)

	token, sess, err := svc.Create(context.Background(), "tn-1", time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(context.Background(), sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, err = svc.Resolve(context.Background(), token)
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after logout", err)
	}
}

func TestSessionPurgeExpired(t *testing.T) {
	svc, clk := newSessionFixture(t)

	if _, _, err := svc.Create(context.Background(), "tn-1", time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := svc.Create(context.Background(), "tn-1", 3*time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}

	clk.Advance(2 * time.Hour)

	n, err := svc.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
}
