package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/robalobadob/househunt/internal/store"
)

func newAuth(t *testing.T) (*Authenticator, store.Store, *store.User) {
	t.Helper()
	st := store.NewMemoryStore()
	u, err := NewUser("  dana_1 ", "correct horse")
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return New(Options{Secret: "test"}, st), st, u
}

func TestNewUserValidates(t *testing.T) {
	if _, err := NewUser("ab", "longenough"); err == nil {
		t.Fatalf("short username accepted")
	}
	if _, err := NewUser("has space", "longenough"); err == nil {
		t.Fatalf("bad chars accepted")
	}
	if _, err := NewUser("okname", "short"); err == nil {
		t.Fatalf("short password accepted")
	}
	u, err := NewUser(" okname ", "longenough")
	if err != nil {
		t.Fatal(err)
	}
	if u.Username != "okname" || u.ID == "" || !CheckPassword(u.PasswordHash, "longenough") {
		t.Fatalf("user = %+v", u)
	}
	if CheckPassword(u.PasswordHash, "wrong") {
		t.Fatalf("wrong password accepted")
	}
}

func TestSignParse(t *testing.T) {
	a, _, u := newAuth(t)
	tok, exp, err := a.Sign(u.ID, u.Username)
	if err != nil || exp.IsZero() {
		t.Fatalf("Sign: %v", err)
	}
	got, err := a.Parse(tok)
	if err != nil || got.ID != u.ID || got.Username != "dana_1" {
		t.Fatalf("Parse = %+v, %v", got, err)
	}

	other := New(Options{Secret: "other"}, nil)
	if _, err := other.Parse(tok); err == nil {
		t.Fatalf("token accepted with wrong secret")
	}
}

func protected(a *Authenticator) http.Handler {
	return a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(FromContext(r.Context()).Username))
	}))
}

func TestRequireAuth(t *testing.T) {
	a, _, u := newAuth(t)
	h := protected(a)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}

	tok, _, _ := a.Sign(u.ID, u.Username)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "dana_1" {
		t.Fatalf("bearer: %d %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "househunt_token", Value: tok})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cookie: %d", rec.Code)
	}

	// Token for a user that no longer exists.
	ghost, _, _ := a.Sign("ghost", "ghost")
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+ghost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ghost: %d", rec.Code)
	}
}

func TestOptionalAuthPassesGuests(t *testing.T) {
	a, _, _ := newAuth(t)
	var seen *User
	h := a.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seen != nil {
		t.Fatalf("code %d user %+v", rec.Code, seen)
	}
}

func TestEnsureAnonID(t *testing.T) {
	a := New(Options{}, nil)
	rec := httptest.NewRecorder()
	id := a.EnsureAnonID(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if id == "" {
		t.Fatalf("empty anon id")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "househunt_anon" || cookies[0].Value != id {
		t.Fatalf("cookies = %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	if again := a.EnsureAnonID(rec, req); again != id {
		t.Fatalf("anon id changed: %q vs %q", again, id)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("cookie reissued")
	}
}
