// internal/httpserver/routes_auth.go
//
// Account and statistics endpoints.
//   - POST /auth/signup, /auth/login, /auth/logout
//   - GET  /auth/me, /stats/me   (require auth)
//   - GET  /rounds/mine          (optional auth; guests see their anon rounds)
//
// Signing up or logging in claims the caller's guest rounds.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/househunt/internal/auth"
	"github.com/robalobadob/househunt/internal/store"
)

// recentRounds caps /rounds/mine.
const recentRounds = 50

// credentials is the request payload for signup/login.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// mountAuthRoutes registers authentication + gated routes.
func (s *Server) mountAuthRoutes(r chi.Router) {
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.RequireAuth)
		r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, auth.FromContext(r.Context()))
		})
		r.Get("/stats/me", s.handleMyStats)
	})
}

// handleSignup creates a user, signs a JWT, sets the cookie and claims guest rounds.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := auth.NewUser(body.Username, body.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "Username taken")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if !s.signIn(w, r, u) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "username": u.Username, "createdAt": u.CreatedAt})
}

// handleLogin authenticates a user, sets the cookie and claims guest rounds.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.store.UserByName(r.Context(), strings.TrimSpace(body.Username))
	if err != nil || !auth.CheckPassword(u.PasswordHash, body.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if !s.signIn(w, r, u) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "username": u.Username})
}

// signIn issues the auth cookie and moves guest rounds onto the account.
func (s *Server) signIn(w http.ResponseWriter, r *http.Request, u *store.User) bool {
	tok, exp, err := s.auth.Sign(u.ID, u.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return false
	}
	s.auth.SetCookie(w, tok, exp)
	if anon := s.auth.AnonID(r); anon != "" {
		if err := s.store.ClaimAnon(r.Context(), anon, u.ID); err != nil {
			log.Warn().Err(err).Str("user", u.ID).Msg("claim guest rounds")
		}
	}
	return true
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMyStats(w http.ResponseWriter, r *http.Request) {
	me := auth.FromContext(r.Context())
	u, err := s.store.UserByID(r.Context(), me.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           u.ID,
		"roundsPlayed": u.RoundsPlayed,
		"objectsFound": u.ObjectsFound,
		"bestMs":       u.BestMs,
	})
}

// handleMyRounds lists recent rounds for the user, or for the guest cookie.
func (s *Server) handleMyRounds(w http.ResponseWriter, r *http.Request) {
	var (
		rounds []store.Round
		err    error
	)
	if me := auth.FromContext(r.Context()); me != nil {
		rounds, err = s.store.RoundsByUser(r.Context(), me.ID, recentRounds)
	} else if anon := s.auth.AnonID(r); anon != "" {
		rounds, err = s.store.RoundsByAnon(r.Context(), anon, recentRounds)
	} else {
		rounds = []store.Round{}
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}
