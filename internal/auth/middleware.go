package auth

import (
	"context"
	"net/http"
)

// ctxUserKey is the context key type for storing *User.
type ctxUserKey struct{}

// WithUser returns ctx carrying u.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, u)
}

// FromContext returns the signed-in user, or nil for guests.
func FromContext(ctx context.Context) *User {
	u, _ := ctx.Value(ctxUserKey{}).(*User)
	return u
}

// resolve returns the user for a valid token whose account still exists.
func (a *Authenticator) resolve(r *http.Request) (*User, error) {
	tok := a.Token(r)
	if tok == "" {
		return nil, ErrInvalidToken
	}
	u, err := a.Parse(tok)
	if err != nil {
		return nil, err
	}
	if a.users != nil {
		if _, err := a.users.UserByID(r.Context(), u.ID); err != nil {
			return nil, ErrInvalidToken
		}
	}
	return u, nil
}

// RequireAuth rejects requests without a valid token.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Token(r) == "" {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		u, err := a.resolve(r)
		if err != nil {
			http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// OptionalAuth adds the user to the context when a valid token is present.
// It never rejects; guests pass through.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, err := a.resolve(r); err == nil {
			r = r.WithContext(WithUser(r.Context(), u))
		}
		next.ServeHTTP(w, r)
	})
}
