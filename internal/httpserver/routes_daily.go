// internal/httpserver/routes_daily.go
//
// Daily challenge read side. Daily sessions themselves are created through
// POST /session/new with mode "daily"; their first round is recorded in
// daily_results when it completes.
//   - GET /daily            → today's date key and whether the caller has played
//   - GET /daily/leaderboard → top results for today (or ?date=YYYY-MM-DD)

package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/househunt/internal/auth"
	"github.com/robalobadob/househunt/internal/daily"
)

// mountDaily registers the /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Use(s.auth.OptionalAuth)
		r.Get("/", s.handleDailyStatus)
		r.Get("/leaderboard", s.handleLeaderboard)
	})
}

// dailyStatus is returned by GET /daily.
type dailyStatus struct {
	Date   string `json:"date"`
	Played bool   `json:"played"`
}

func (s *Server) handleDailyStatus(w http.ResponseWriter, r *http.Request) {
	res := dailyStatus{Date: daily.DateKey(s.now())}
	if s.daily == nil {
		writeJSON(w, http.StatusOK, res)
		return
	}
	owner := s.auth.AnonID(r)
	if me := auth.FromContext(r.Context()); me != nil {
		owner = me.ID
	}
	if owner != "" {
		played, err := s.daily.AlreadyPlayed(r.Context(), owner, res.Date)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		res.Played = played
	}
	writeJSON(w, http.StatusOK, res)
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.daily == nil {
		writeError(w, http.StatusServiceUnavailable, "daily_unavailable")
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(s.now())
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.daily.Leaderboard(r.Context(), date, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
