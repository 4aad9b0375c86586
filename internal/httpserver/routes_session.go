// internal/httpserver/routes_session.go
//
// Game session endpoints.
//   - POST /session/new          → start a session (normal or daily)
//   - GET  /session/{id}         → state snapshot
//   - POST /session/{id}/pick    → resolve a click in viewport pixels
//   - POST /session/{id}/resize  → new viewport size (never touches game state)
//   - POST /session/{id}/camera  → client orbit camera pose
//   - GET  /catalog, /assets/*   → what the renderer needs to draw the house

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/househunt/internal/daily"
	"github.com/robalobadob/househunt/internal/protocol"
	"github.com/robalobadob/househunt/internal/scene"
	"github.com/robalobadob/househunt/internal/session"
)

// newSessionReq is the request payload for /session/new.
type newSessionReq struct {
	Mode   string `json:"mode"` // "normal" (default) | "daily"
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// newSessionRes is returned by /session/new.
type newSessionRes struct {
	SessionID string         `json:"sessionId"`
	Date      string         `json:"date,omitempty"`
	State     protocol.State `json:"state"`
}

// handleNewSession creates a session for the caller.
// Daily sessions draw their first round from the date seed; an owner who
// already has today's result gets 409.
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var body newSessionReq
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
	}

	owner := s.owner(w, r)
	opts := session.Options{
		Owner:    owner,
		Viewport: scene.Viewport{Width: body.Width, Height: body.Height},
	}

	var date string
	switch session.Mode(strings.ToLower(strings.TrimSpace(body.Mode))) {
	case "", session.ModeNormal:
		opts.Mode = session.ModeNormal
	case session.ModeDaily:
		now := s.now()
		date = daily.DateKey(now)
		if s.daily != nil {
			ownerID := owner.UserID
			if ownerID == "" {
				ownerID = owner.AnonID
			}
			played, err := s.daily.AlreadyPlayed(r.Context(), ownerID, date)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "db_error")
				return
			}
			if played {
				writeError(w, http.StatusConflict, "daily_already_played")
				return
			}
		}
		opts.Mode = session.ModeDaily
		opts.Rand = daily.Source(now, s.cfg.DailySalt)
	default:
		writeError(w, http.StatusBadRequest, "unknown_mode")
		return
	}

	sess := s.sessions.Create(opts)
	if date != "" {
		s.dailyDates.Store(sess.ID(), date)
	}
	st, err := sess.State(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session_failed")
		return
	}
	writeJSON(w, http.StatusOK, newSessionRes{SessionID: sess.ID(), Date: date, State: st})
}

// session looks up the {id} URL parameter, writing 404 when unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "no_session")
		return nil, false
	}
	return sess, true
}

// replyErr maps session request errors to HTTP codes.
func replyErr(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrStopped) {
		writeError(w, http.StatusGone, "session_stopped")
		return
	}
	writeError(w, http.StatusServiceUnavailable, "timeout")
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	st, err := sess.State(r.Context())
	if err != nil {
		replyErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handlePick(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var p protocol.Pick
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	res, err := sess.Pick(r.Context(), p.X, p.Y)
	if err != nil {
		replyErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var p protocol.Resize
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	vp := scene.Viewport{Width: p.Width, Height: p.Height}
	if !vp.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_viewport")
		return
	}
	got, err := sess.Resize(r.Context(), vp)
	if err != nil {
		replyErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, got)
}

func (s *Server) handleCamera(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var p protocol.Camera
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	accepted, err := sess.SetCamera(r.Context(), p.Eye, p.Target)
	if err != nil {
		replyErr(w, err)
		return
	}
	if !accepted {
		writeError(w, http.StatusBadRequest, "invalid_camera")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// catalogRes is returned by /catalog.
type catalogRes struct {
	Ready    bool     `json:"ready"`
	Names    []string `json:"names"`
	Entries  int      `json:"entries"`
	Distinct int      `json:"distinct"`
}

// handleCatalog lists the pickable names once the model has loaded.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	res := catalogRes{Names: []string{}}
	select {
	case <-s.assets.Ready():
		if b := s.assets.Bundle(); b != nil {
			res.Ready = true
			res.Names = b.Catalog.Names()
			res.Entries, res.Distinct = b.Catalog.Stats()
		}
	default:
	}
	writeJSON(w, http.StatusOK, res)
}

// handleAsset serves a loaded asset file by name.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	f, ok := s.assets.File(chi.URLParam(r, "*"))
	if !ok {
		writeError(w, http.StatusNotFound, "no_asset")
		return
	}
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(f.Data)
}
