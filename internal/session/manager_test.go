package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/repository"
)

type mockUserFinder struct {
	users map[int64]*model.User
}

func (m *mockUserFinder) FindByID(_ context.Context, id int64) (*model.User, error) {
	return m.users[id], nil
}

var _ UserFinder = (*mockUserFinder)(nil)

func newTestManager(now *time.Time) (*Manager, *repository.MemorySessionRepo) {
	repo := repository.NewMemorySessionRepo()
	users := &mockUserFinder{users: map[int64]*model.User{
		1: {ID: 1, Email: "owner@example.com", Role: model.RoleAdmin},
	}}
	m := NewManager(repo, users, Config{Secret: "test-secret"})
	if now != nil {
		m.now = func() time.Time { return *now }
	}
	return m, repo
}

func TestManager_CreateAndResolve(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(nil)

	s, err := m.Create(ctx, 1)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(s.ID) != 64 {
		t.Errorf("session id length = %d, want 64 hex chars", len(s.ID))
	}
	if got := s.ExpiresAt.Sub(s.CreatedAt); got != DefaultMaxAge {
		t.Errorf("ttl = %v, want %v", got, DefaultMaxAge)
	}

	user, err := m.Resolve(ctx, s.ID)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if user == nil || user.ID != 1 {
		t.Fatalf("Resolve() = %+v, want user 1", user)
	}
}

func TestManager_SessionIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(nil)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s, err := m.Create(ctx, 1)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if seen[s.ID] {
			t.Fatalf("duplicate session id %q", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestManager_ResolveUnknownOrEmptyToken(t *testing.T) {
	m, _ := newTestManager(nil)

	for _, token := range []string{"", "does-not-exist"} {
		user, err := m.Resolve(context.Background(), token)
		if err != nil || user != nil {
			t.Errorf("Resolve(%q) = %v, %v; want nil, nil", token, user, err)
		}
	}
}

func TestManager_ExpiresAfterAbsoluteTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m, _ := newTestManager(&now)

	s, err := m.Create(ctx, 1)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// 利用しても期限は延長されない
	now = now.Add(DefaultMaxAge - time.Second)
	if user, _ := m.Resolve(ctx, s.ID); user == nil {
		t.Fatal("session should still be valid just before expiry")
	}

	now = now.Add(time.Second)
	if user, _ := m.Resolve(ctx, s.ID); user != nil {
		t.Error("session should be invalid at expiry")
	}
}

func TestManager_ResolveDeletedUser(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(nil)

	s, _ := m.Create(ctx, 42)
	user, err := m.Resolve(ctx, s.ID)
	if err != nil || user != nil {
		t.Errorf("Resolve() for missing user = %v, %v; want nil, nil", user, err)
	}
}

func TestManager_DestroyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(nil)

	s, _ := m.Create(ctx, 1)
	for i := 0; i < 2; i++ {
		if err := m.Destroy(ctx, s.ID); err != nil {
			t.Fatalf("Destroy() #%d error = %v", i+1, err)
		}
	}
	if err := m.Destroy(ctx, ""); err != nil {
		t.Errorf("Destroy(\"\") error = %v", err)
	}
	if user, _ := m.Resolve(ctx, s.ID); user != nil {
		t.Error("destroyed session must not resolve")
	}
}

func TestManager_DestroyAll(t *testing.T) {
	ctx := context.Background()
	m, repo := newTestManager(nil)

	m.Create(ctx, 1)
	m.Create(ctx, 1)
	if err := m.DestroyAll(ctx, 1); err != nil {
		t.Fatalf("DestroyAll() error = %v", err)
	}
	if repo.Len() != 0 {
		t.Errorf("sessions left = %d, want 0", repo.Len())
	}
}

func TestManager_CookieRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(nil)
	s, _ := m.Create(ctx, 1)

	rec := httptest.NewRecorder()
	if err := m.WriteCookie(rec, s); err != nil {
		t.Fatalf("WriteCookie() error = %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != CookieName || !c.HttpOnly || c.SameSite != http.SameSiteLaxMode || c.Path != "/" {
		t.Errorf("unexpected cookie attributes: %+v", c)
	}
	if c.Value == s.ID {
		t.Error("cookie value must be signed, not the raw session id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	if got := m.TokenFromRequest(req); got != s.ID {
		t.Errorf("TokenFromRequest() = %q, want %q", got, s.ID)
	}

	user, err := m.ResolveRequest(req)
	if err != nil || user == nil || user.ID != 1 {
		t.Errorf("ResolveRequest() = %v, %v", user, err)
	}
}

func TestManager_TamperedCookieIsIgnored(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(nil)
	s, _ := m.Create(ctx, 1)

	// 生のセッションIDは署名がないため受け付けない
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: s.ID})
	if got := m.TokenFromRequest(req); got != "" {
		t.Errorf("TokenFromRequest() = %q, want empty for unsigned cookie", got)
	}

	// 別の鍵で署名されたCookieも受け付けない
	other := NewManager(repository.NewMemorySessionRepo(), &mockUserFinder{}, Config{Secret: "other-secret"})
	rec := httptest.NewRecorder()
	other.WriteCookie(rec, s)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	if got := m.TokenFromRequest(req); got != "" {
		t.Errorf("TokenFromRequest() = %q, want empty for foreign signature", got)
	}
}

func TestManager_SecureFlagAndClear(t *testing.T) {
	m := NewManager(repository.NewMemorySessionRepo(), &mockUserFinder{}, Config{Secret: "s", Secure: true, Domain: "example.com"})

	rec := httptest.NewRecorder()
	m.ClearCookie(rec)
	c := rec.Result().Cookies()[0]
	if !c.Secure {
		t.Error("cookie should be Secure")
	}
	if c.MaxAge >= 0 {
		t.Errorf("MaxAge = %d, want negative to delete", c.MaxAge)
	}
	if c.Domain != "example.com" {
		t.Errorf("Domain = %q", c.Domain)
	}
}
