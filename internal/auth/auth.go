// internal/auth/auth.go
//
// Authentication for the HTTP API.
// Responsibilities:
//   - Password hashing and signup validation (bcrypt).
//   - HS256 JWT signing/parsing with id + username claims.
//   - Auth cookie and Bearer header extraction.
//   - Anonymous cookie so guests keep a stable owner id.
//   - Optional-auth and require-auth middleware (middleware.go).

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/househunt/internal/store"
)

var ErrInvalidToken = errors.New("invalid token")

// anonTTL is how long a guest cookie lives.
const anonTTL = 180 * 24 * time.Hour

// Options configures token and cookie handling.
type Options struct {
	Secret         string
	ExpiresDays    int
	CookieName     string
	AnonCookieName string
	Secure         bool // production: Secure + SameSite=None
}

// UserLookup is the part of the store the middleware needs.
type UserLookup interface {
	UserByID(ctx context.Context, id string) (*store.User, error)
}

// User is placed into request context by the middleware.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Authenticator signs and verifies tokens and manages cookies.
type Authenticator struct {
	opts  Options
	users UserLookup
}

// New returns an Authenticator. Empty options fall back to dev defaults.
func New(opts Options, users UserLookup) *Authenticator {
	if opts.Secret == "" {
		opts.Secret = "dev_secret_change_me"
	}
	if opts.ExpiresDays <= 0 {
		opts.ExpiresDays = 14
	}
	if opts.CookieName == "" {
		opts.CookieName = "househunt_token"
	}
	if opts.AnonCookieName == "" {
		opts.AnonCookieName = "househunt_anon"
	}
	return &Authenticator{opts: opts, users: users}
}

// ------------------------------ passwords ----------------------------------

// HashPassword hashes pw with bcrypt's default cost.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword is a bcrypt verifier.
func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// NormalizeUsername trims whitespace.
func NormalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// ValidateSignup enforces basic username/password rules.
func ValidateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8-100 chars")
	}
	return nil
}

// NewUser validates input and returns a user with a fresh id and hashed password.
func NewUser(username, pw string) (*store.User, error) {
	username = NormalizeUsername(username)
	if err := ValidateSignup(username, pw); err != nil {
		return nil, err
	}
	h, err := HashPassword(pw)
	if err != nil {
		return nil, err
	}
	return &store.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: h,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// --------------------------------- JWT -------------------------------------

// Sign creates an HS256 token for id/username.
func (a *Authenticator) Sign(id, username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(time.Duration(a.opts.ExpiresDays) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString([]byte(a.opts.Secret))
	return ss, exp, err
}

// Parse verifies tok and returns its user claims.
func (a *Authenticator) Parse(tok string) (*User, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(a.opts.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}
	id, _ := claims["id"].(string)
	username, _ := claims["username"].(string)
	if id == "" || username == "" {
		return nil, ErrInvalidToken
	}
	return &User{ID: id, Username: username}, nil
}

// ------------------------------- cookies -----------------------------------

func (a *Authenticator) sameSite() http.SameSite {
	if a.opts.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SetCookie writes the auth token cookie.
func (a *Authenticator) SetCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.opts.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.opts.Secure,
		SameSite: a.sameSite(),
		Expires:  exp,
	})
}

// ClearCookie deletes the auth token cookie.
func (a *Authenticator) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.opts.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.opts.Secure,
		SameSite: a.sameSite(),
		MaxAge:   -1,
	})
}

// Token extracts a bearer token from the Authorization header or auth cookie.
func (a *Authenticator) Token(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if c, err := r.Cookie(a.opts.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// AnonID returns the guest id from the request cookie, or "".
func (a *Authenticator) AnonID(r *http.Request) string {
	if c, err := r.Cookie(a.opts.AnonCookieName); err == nil {
		return c.Value
	}
	return ""
}

// EnsureAnonID returns the existing guest id or sets a new cookie.
func (a *Authenticator) EnsureAnonID(w http.ResponseWriter, r *http.Request) string {
	if id := a.AnonID(r); id != "" {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     a.opts.AnonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.opts.Secure,
		SameSite: a.sameSite(),
		Expires:  time.Now().Add(anonTTL),
	})
	return id
}
