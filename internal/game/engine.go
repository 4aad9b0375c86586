// internal/game/engine.go
//
// Game state for a single session.
// Responsibilities:
//   - Start rounds from the catalog via SelectRound.
//   - Apply picks: record found targets, detect round completion.
//   - Track phase transitions: loading → in_progress → complete → in_progress.
//
// Notes:
//   - State holds no rendering or audio logic. Transitions return Events and
//     the owner decides how to present them.
//   - State is not safe for concurrent use; a session loop owns it.
package game

import (
	"time"

	"github.com/robalobadob/househunt/internal/catalog"
)

// State tracks the current round, its found set and the phase.
type State struct {
	phase     Phase
	round     Round
	found     map[catalog.Identifier]struct{}
	number    int // rounds started so far
	picks     int // picks registered this round, matched or not
	startedAt time.Time

	now func() time.Time
}

// New constructs a State in PhaseLoading.
func New() *State {
	return &State{
		phase: PhaseLoading,
		found: make(map[catalog.Identifier]struct{}),
		now:   time.Now,
	}
}

// StartRound samples a new round and resets the found set.
// Valid only from PhaseLoading or PhaseComplete.
//
// An empty round (empty catalog or size 0) is complete immediately; the
// returned events then contain a single round_complete.
func (s *State) StartRound(src Source, names []catalog.Identifier, size int) ([]Event, error) {
	if s.phase == PhaseInProgress {
		return nil, ErrRoundInProgress
	}
	s.round = SelectRound(src, names, size)
	s.found = make(map[catalog.Identifier]struct{}, len(s.round))
	s.number++
	s.picks = 0
	s.startedAt = s.now()

	if len(s.round) == 0 {
		s.phase = PhaseComplete
		return []Event{s.event(EventRoundComplete, "")}, nil
	}
	s.phase = PhaseInProgress
	return nil, nil
}

// RegisterPick applies a picked identifier to the current round.
//
// Returns:
//   - nil if the game is not in progress, id is not a target, or it was
//     already found (a miss is not an error).
//   - a found event for a newly found target.
//   - found followed by round_complete when that was the last target.
func (s *State) RegisterPick(id catalog.Identifier) []Event {
	if s.phase != PhaseInProgress {
		return nil
	}
	s.picks++
	if !s.round.Contains(id) {
		return nil
	}
	if _, done := s.found[id]; done {
		return nil
	}
	s.found[id] = struct{}{}

	evs := []Event{s.event(EventFound, id)}
	if len(s.found) == len(s.round) {
		s.phase = PhaseComplete
		evs = append(evs, s.event(EventRoundComplete, ""))
	}
	return evs
}

// Phase reports the current phase.
func (s *State) Phase() Phase { return s.phase }

// RoundNumber is 1 for the first round, 0 while loading.
func (s *State) RoundNumber() int { return s.number }

// Picks counts picks registered during the current round.
func (s *State) Picks() int { return s.picks }

// StartedAt is when the current round started.
func (s *State) StartedAt() time.Time { return s.startedAt }

// Targets returns a copy of the current round.
func (s *State) Targets() Round {
	out := make(Round, len(s.round))
	copy(out, s.round)
	return out
}

// Found returns the found identifiers in round order.
func (s *State) Found() []catalog.Identifier {
	out := make([]catalog.Identifier, 0, len(s.found))
	for _, id := range s.round {
		if _, ok := s.found[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Remaining returns the round members not found yet, in round order.
func (s *State) Remaining() []catalog.Identifier {
	out := make([]catalog.Identifier, 0, len(s.round)-len(s.found))
	for _, id := range s.round {
		if _, ok := s.found[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// IsFound reports whether id was found in the current round.
func (s *State) IsFound(id catalog.Identifier) bool {
	_, ok := s.found[id]
	return ok
}

func (s *State) event(kind EventKind, id catalog.Identifier) Event {
	ev := Event{
		Kind:       kind,
		Identifier: id,
		Remaining:  s.Remaining(),
		Round:      s.number,
	}
	switch kind {
	case EventFound:
		ev.Sound = SoundFound
	case EventRoundComplete:
		ev.Notice = CompleteNotice
	}
	return ev
}
