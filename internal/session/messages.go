package session

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/robalobadob/househunt/internal/protocol"
	"github.com/robalobadob/househunt/internal/scene"
)

// Conn is an event subscriber, usually a websocket.
type Conn interface {
	Send([]byte) error
	Close() error
}

// Pick: a pointer click in viewport pixels.
type Pick struct {
	X, Y  float64
	Reply chan<- protocol.PickResult
}

// Resize: the viewport changed size.
type Resize struct {
	Viewport scene.Viewport
	Reply    chan<- scene.Viewport
}

// SetCamera: the client orbited the camera.
type SetCamera struct {
	Eye, Target mgl64.Vec3
	Reply       chan<- bool
}

// Subscribe attaches an event subscriber and replies with its id.
type Subscribe struct {
	Conn  Conn
	Reply chan<- string
}

// Unsubscribe detaches and closes a subscriber.
type Unsubscribe struct {
	ID string
}

// Snapshot asks for the full session state.
type Snapshot struct {
	Reply chan<- protocol.State
}

// labelExpired is posted by the label timer.
type labelExpired struct {
	gen uint64
}
