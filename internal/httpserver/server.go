// internal/httpserver/server.go
//
// HTTP server wiring for the house hunt backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/catalog", "/assets/*".
//   - Session endpoints (optional auth): /session/new, /session/{id}[/pick|/resize|/camera|/ws].
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /rounds/mine.
//   - Daily leaderboard: /daily/leaderboard.
//   - Persisting completed rounds from the session actors.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The websocket route sits outside the timeout group; it is long-lived.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/househunt/internal/auth"
	"github.com/robalobadob/househunt/internal/config"
	"github.com/robalobadob/househunt/internal/daily"
	"github.com/robalobadob/househunt/internal/loader"
	"github.com/robalobadob/househunt/internal/session"
	"github.com/robalobadob/househunt/internal/store"
)

// persistTimeout bounds the background write of a finished round.
const persistTimeout = 5 * time.Second

// Assets is the loaded asset set: the scene source for sessions plus the
// raw files served to the renderer. *loader.Loader implements it.
type Assets interface {
	session.Source
	File(name string) (loader.File, bool)
}

// Deps are the collaborators a Server needs. DB is optional; without it
// the daily leaderboard is unavailable.
type Deps struct {
	Config config.Config
	Store  store.Store
	DB     *sql.DB
	Assets Assets
}

// Server bundles the router, session manager and persistence.
type Server struct {
	r        *chi.Mux
	cfg      config.Config
	store    store.Store
	daily    *daily.Store
	assets   Assets
	auth     *auth.Authenticator
	sessions *session.Manager
	now      func() time.Time

	// dailyDates maps daily session ids to the date they were dealt for.
	dailyDates sync.Map

	// persisted is signalled after each background round write (tests).
	persisted func(store.Round)
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:      chi.NewRouter(),
		cfg:    d.Config,
		store:  d.Store,
		assets: d.Assets,
		now:    time.Now,
	}
	if d.DB != nil {
		s.daily = daily.NewStore(d.DB)
	}
	s.auth = auth.New(auth.Options{
		Secret:         d.Config.JWTSecret,
		ExpiresDays:    d.Config.JWTExpiresDays,
		CookieName:     d.Config.CookieName,
		AnonCookieName: d.Config.AnonCookieName,
		Secure:         d.Config.Production(),
	}, d.Store)
	s.sessions = session.NewManager(d.Assets, session.Options{
		RoundSize:       d.Config.RoundSize,
		LabelDuration:   d.Config.LabelDuration,
		OnRoundComplete: s.recordRound,
		OnRemove:        s.forgetSession,
	})

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(jsonContentType)
	s.r.Use(s.cors)

	// Long-lived event stream, no handler timeout.
	s.r.Get("/session/{id}/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"househunt","endpoints":["/health","/catalog","POST /session/new","/session/{id}/ws","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "sessions": s.sessions.Len()})
		})
		r.Get("/catalog", s.handleCatalog)
		r.Get("/assets/*", s.handleAsset)

		// Sessions: OPTIONAL AUTH (guests can play)
		r.Group(func(r chi.Router) {
			r.Use(s.auth.OptionalAuth)
			r.Post("/session/new", s.handleNewSession)
			r.Get("/session/{id}", s.handleSessionState)
			r.Post("/session/{id}/pick", s.handlePick)
			r.Post("/session/{id}/resize", s.handleResize)
			r.Post("/session/{id}/camera", s.handleCamera)
			r.Get("/rounds/mine", s.handleMyRounds)
		})

		s.mountAuthRoutes(r)
		s.mountDaily(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Sessions exposes the session manager.
func (s *Server) Sessions() *session.Manager { return s.sessions }

// SweepIdle removes idle sessions every interval until ctx is done.
func (s *Server) SweepIdle(ctx context.Context, interval, maxIdle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.sessions.Sweep(maxIdle); n > 0 {
				log.Info().Int("removed", n).Int("live", s.sessions.Len()).Msg("swept idle sessions")
			}
		}
	}
}

// Close stops every live session.
func (s *Server) Close() { s.sessions.Close() }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	b, _ := json.Marshal(map[string]string{"error": msg})
	http.Error(w, string(b), code)
}

// owner returns the signed-in user, or a guest id from the anon cookie.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) session.Owner {
	if me := auth.FromContext(r.Context()); me != nil {
		return session.Owner{UserID: me.ID}
	}
	return session.Owner{AnonID: s.auth.EnsureAnonID(w, r)}
}

// ------------------------------ persistence --------------------------------

// recordRound runs on the session goroutine and persists in the background.
// Only the first round of a daily session counts as the daily result.
func (s *Server) recordRound(res session.RoundResult) {
	rec := store.Round{
		ID:         uuid.NewString(),
		SessionID:  res.SessionID,
		UserID:     res.Owner.UserID,
		AnonID:     res.Owner.AnonID,
		Mode:       string(res.Mode),
		Number:     res.Round,
		Targets:    append([]string(nil), res.Targets...),
		Picks:      res.Picks,
		ElapsedMs:  res.Elapsed.Milliseconds(),
		FinishedAt: res.FinishedAt.UTC(),
	}
	var date string
	if res.Round == 1 {
		if v, ok := s.dailyDates.LoadAndDelete(rec.SessionID); ok {
			date = v.(string)
		}
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if s.store != nil {
			if err := s.store.SaveRound(ctx, rec); err != nil {
				log.Warn().Err(err).Str("session", rec.SessionID).Msg("save round")
			}
		}
		if date != "" && s.daily != nil {
			s.saveDaily(ctx, rec, date)
		}
		if s.persisted != nil {
			s.persisted(rec)
		}
	}()
}

// forgetSession drops per-session bookkeeping once a session is gone.
func (s *Server) forgetSession(id string) { s.dailyDates.Delete(id) }

func (s *Server) saveDaily(ctx context.Context, rec store.Round, date string) {
	owner := rec.UserID
	if owner == "" {
		owner = rec.AnonID
	}
	_, err := s.daily.InsertResult(ctx, daily.Result{
		OwnerID:   owner,
		Date:      date,
		Picks:     rec.Picks,
		ElapsedMs: rec.ElapsedMs,
	})
	if err != nil {
		log.Warn().Err(err).Str("session", rec.SessionID).Msg("save daily result")
	}
}
