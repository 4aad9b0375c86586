// Package protocol defines the JSON messages exchanged with the browser
// over the session websocket (and reused as HTTP response bodies).
package protocol

import (
	"github.com/robalobadob/househunt/internal/game"
	"github.com/robalobadob/househunt/internal/present"
	"github.com/robalobadob/househunt/internal/scene"
)

// Server -> client message types.
const (
	MsgState         = "state"
	MsgFound         = "found"
	MsgRoundComplete = "round_complete"
	MsgLabel         = "label"
	MsgLabelHide     = "label_hide"
	MsgViewport      = "viewport"
	MsgPickResult    = "pick_result"
	MsgError         = "error"
)

// Client -> server message types.
const (
	MsgPick   = "pick"
	MsgResize = "resize"
	MsgCamera = "camera"
)

// Pick is a pointer click in viewport pixels.
type Pick struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Resize reports a new viewport size.
type Resize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Camera reports the client's orbit camera pose.
type Camera struct {
	Eye    [3]float64 `json:"eye"`
	Target [3]float64 `json:"target"`
}

// State is a full snapshot of a session.
type State struct {
	SessionID string            `json:"sessionId"`
	Mode      string            `json:"mode"`
	Phase     game.Phase        `json:"phase"`
	Round     int               `json:"round"`
	Targets   []string          `json:"targets"`
	Found     []string          `json:"found"`
	Remaining []string          `json:"remaining"`
	List      string            `json:"list"`
	Label     present.LabelView `json:"label"`
	Viewport  scene.Viewport    `json:"viewport"`
}

// PickResult answers a pick. Hit is empty when nothing was under the pointer.
type PickResult struct {
	Hit       string       `json:"hit,omitempty"`
	Found     bool         `json:"found"`
	Events    []game.Event `json:"events"`
	Phase     game.Phase   `json:"phase"`
	Remaining []string     `json:"remaining"`
}

// ErrorMsg reports a rejected client message.
type ErrorMsg struct {
	Error string `json:"error"`
}
