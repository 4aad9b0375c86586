// internal/game/types.go
//
// Core type definitions for the spot-the-object game.
// Defines:
//   - Phase: coarse state of a session's game (loading/in_progress/complete).
//   - Round: the identifiers a player must find in one play-through.
//   - Event: observable side effects emitted by State transitions.

package game

import (
	"errors"

	"github.com/robalobadob/househunt/internal/catalog"
)

// DefaultRoundSize is the number of targets per round when the catalog is
// large enough.
const DefaultRoundSize = 5

// Phase represents where a game is in its lifecycle.
type Phase string

const (
	PhaseLoading    Phase = "loading"     // catalog not built yet
	PhaseInProgress Phase = "in_progress" // round assigned, targets remaining
	PhaseComplete   Phase = "complete"    // every target in the round found
)

// EventKind identifies an Event.
type EventKind string

const (
	EventFound         EventKind = "found"
	EventRoundComplete EventKind = "round_complete"
)

// SoundFound is the audio cue attached to found events.
const SoundFound = "found"

// CompleteNotice is shown to the player when a round is finished.
const CompleteNotice = "You found all objects! Starting a new game..."

// ErrRoundInProgress is returned by StartRound while a round is still open.
var ErrRoundInProgress = errors.New("round in progress")

// Round is an ordered set of distinct identifiers.
type Round []catalog.Identifier

// Contains reports whether id is a member of the round.
func (r Round) Contains(id catalog.Identifier) bool {
	for _, x := range r {
		if x == id {
			return true
		}
	}
	return false
}

// Event is emitted by State on "found" and "round complete" transitions.
// The presentation layer and the audio cue subscribe to these.
type Event struct {
	Kind       EventKind            `json:"kind"`
	Identifier catalog.Identifier   `json:"identifier,omitempty"`
	Remaining  []catalog.Identifier `json:"remaining"`
	Round      int                  `json:"round"`
	Sound      string               `json:"sound,omitempty"`
	Notice     string               `json:"notice,omitempty"`
}
