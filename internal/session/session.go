// internal/session/session.go
//
// One player's game session.
// Responsibilities:
//   - Own the Game State, camera, viewport and pick label for one browser tab.
//   - Serialise every mutation through a single goroutine (Run) fed by Inbox.
//   - Start the first round once the catalog is ready and a new round after
//     each completed one.
//   - Push state, found, round_complete and label events to subscribers.
//
// Notes:
//   - Nothing outside Run touches session state, so no locks guard it.
//   - The label timer posts back into Inbox; a newer pick makes the old
//     expiry stale through the label generation.

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/househunt/internal/catalog"
	"github.com/robalobadob/househunt/internal/game"
	"github.com/robalobadob/househunt/internal/loader"
	"github.com/robalobadob/househunt/internal/pick"
	"github.com/robalobadob/househunt/internal/present"
	"github.com/robalobadob/househunt/internal/protocol"
	"github.com/robalobadob/househunt/internal/scene"
)

// ErrStopped is returned by requests to a session that has stopped.
var ErrStopped = errors.New("session stopped")

// Mode selects how rounds are drawn.
type Mode string

const (
	ModeNormal Mode = "normal" // crypto-random rounds
	ModeDaily  Mode = "daily"  // rounds seeded by the date, same for everyone
)

// Source provides the loaded scene once assets are ready.
// *loader.Loader implements it.
type Source interface {
	Ready() <-chan struct{}
	Bundle() *loader.Bundle
}

// Owner identifies who is playing, for stats.
type Owner struct {
	UserID string
	AnonID string
}

// RoundResult describes a completed round.
type RoundResult struct {
	SessionID  string
	Mode       Mode
	Owner      Owner
	Round      int
	Targets    []catalog.Identifier
	Picks      int
	Elapsed    time.Duration
	FinishedAt time.Time
}

// Options configure a Session.
type Options struct {
	ID              string
	Mode            Mode
	Owner           Owner
	RoundSize       int
	LabelDuration   time.Duration
	Viewport        scene.Viewport
	Rand            game.Source
	OnRoundComplete func(RoundResult)

	// OnRemove is a Manager option, called with the id once a removed
	// session's loop has exited.
	OnRemove func(id string)
}

// Session is a single-goroutine game session.
type Session struct {
	Inbox chan any

	id    string
	mode  Mode
	owner Owner
	src   Source

	state     *game.State
	cat       *catalog.Catalog
	sc        *scene.Scene
	cam       *scene.Camera
	vp        scene.Viewport
	label     *present.Label
	timer     *time.Timer
	rng       game.Source
	roundSize int

	// emptyDone is the completion of an empty first round, replayed to
	// subscribers that attach after it.
	emptyDone *game.Event

	subs    map[string]Conn
	nextSub int

	onRoundComplete func(RoundResult)
	OnEmpty         func(id string) // called when the last subscriber leaves

	lastActive atomic.Int64 // unix nanos
	quit       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
}

// New constructs a session. Call Run in its own goroutine.
func New(src Source, opts Options) *Session {
	if opts.RoundSize <= 0 {
		opts.RoundSize = game.DefaultRoundSize
	}
	if opts.Mode == "" {
		opts.Mode = ModeNormal
	}
	if opts.Rand == nil {
		opts.Rand = game.CryptoSource{}
	}
	vp := opts.Viewport
	if !vp.Valid() {
		vp = scene.Viewport{Width: 1280, Height: 720}
	}
	s := &Session{
		Inbox:           make(chan any, 64),
		id:              opts.ID,
		mode:            opts.Mode,
		owner:           opts.Owner,
		src:             src,
		state:           game.New(),
		cam:             scene.NewCamera(vp.Aspect()),
		vp:              vp,
		label:           present.NewLabel(opts.LabelDuration),
		rng:             opts.Rand,
		roundSize:       opts.RoundSize,
		subs:            make(map[string]Conn),
		onRoundComplete: opts.OnRoundComplete,
		quit:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	s.touch()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Mode returns the round selection mode.
func (s *Session) Mode() Mode { return s.mode }

// Owner returns who the session belongs to.
func (s *Session) Owner() Owner { return s.owner }

// LastActive is when the session last handled a command.
func (s *Session) LastActive() time.Time { return time.Unix(0, s.lastActive.Load()) }

// Stop ends Run. Safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
}

// Done is closed when Run has returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Run is the session event loop.
func (s *Session) Run() {
	defer close(s.done)
	var ready <-chan struct{}
	if s.src != nil {
		ready = s.src.Ready()
	}
	for {
		select {
		case <-s.quit:
			s.shutdown()
			return
		case <-ready:
			ready = nil
			s.begin()
		case cmd := <-s.Inbox:
			s.handle(cmd)
		}
	}
}

func (s *Session) touch() { s.lastActive.Store(time.Now().UnixNano()) }

func (s *Session) shutdown() {
	if s.timer != nil {
		s.timer.Stop()
	}
	for id, c := range s.subs {
		_ = c.Close()
		delete(s.subs, id)
	}
}

// begin takes the loaded scene and starts the first round.
func (s *Session) begin() {
	b := s.src.Bundle()
	if b == nil {
		return
	}
	s.cat, s.sc = b.Catalog, b.Scene
	log.Debug().Str("session", s.id).Int("catalog", s.cat.Len()).Msg("assets ready, starting first round")
	s.startRound()
}

func (s *Session) startRound() {
	evs, err := s.state.StartRound(s.rng, s.cat.Names(), s.roundSize)
	if err != nil {
		log.Warn().Err(err).Str("session", s.id).Msg("start round")
		return
	}
	s.broadcast(protocol.MsgState, s.snapshot())
	// Only an empty round completes on start. It is announced once and
	// not restarted, since a new round would be empty too.
	for _, ev := range evs {
		ev := ev
		s.emptyDone = &ev
		s.broadcast(string(ev.Kind), ev)
	}
}

func (s *Session) handle(cmd any) {
	s.touch()
	switch c := cmd.(type) {
	case Pick:
		res := s.handlePick(c.X, c.Y)
		if c.Reply != nil {
			c.Reply <- res
		}
	case Resize:
		if c.Viewport.Valid() {
			s.vp = c.Viewport
			s.cam.SetAspect(s.vp.Aspect())
			s.broadcast(protocol.MsgViewport, s.vp)
		}
		if c.Reply != nil {
			c.Reply <- s.vp
		}
	case SetCamera:
		ok := s.cam.LookAt(c.Eye, c.Target)
		if c.Reply != nil {
			c.Reply <- ok
		}
	case Subscribe:
		s.nextSub++
		id := fmt.Sprintf("c%d", s.nextSub)
		s.subs[id] = c.Conn
		s.sendTo(c.Conn, protocol.MsgState, s.snapshot())
		if s.emptyDone != nil {
			s.sendTo(c.Conn, string(s.emptyDone.Kind), *s.emptyDone)
		}
		if c.Reply != nil {
			c.Reply <- id
		}
	case Unsubscribe:
		s.removeSub(c.ID)
	case Snapshot:
		c.Reply <- s.snapshot()
	case labelExpired:
		if s.label.Expire(c.gen) {
			s.broadcast(protocol.MsgLabelHide, s.label.View())
		}
	}
}

func (s *Session) handlePick(x, y float64) protocol.PickResult {
	res := protocol.PickResult{Events: []game.Event{}}
	if s.sc == nil {
		res.Phase = s.state.Phase()
		res.Remaining = s.state.Remaining()
		return res
	}
	hit, ok := pick.Resolve(x, y, s.vp, s.cam, s.sc)
	if !ok {
		res.Phase = s.state.Phase()
		res.Remaining = s.state.Remaining()
		return res
	}
	res.Hit = hit.ID

	evs := s.state.RegisterPick(hit.ID)
	res.Events = append(res.Events, evs...)
	completed := false
	for _, ev := range evs {
		switch ev.Kind {
		case game.EventFound:
			res.Found = true
			s.broadcast(protocol.MsgFound, ev)
		case game.EventRoundComplete:
			completed = true
		}
	}

	s.showLabel(hit)

	if completed {
		s.finishRound(evs[len(evs)-1])
	}
	res.Phase = s.state.Phase()
	res.Remaining = s.state.Remaining()
	return res
}

// finishRound announces completion, reports the result and starts the
// next round.
func (s *Session) finishRound(ev game.Event) {
	s.broadcast(protocol.MsgRoundComplete, ev)
	now := time.Now()
	result := RoundResult{
		SessionID:  s.id,
		Mode:       s.mode,
		Owner:      s.owner,
		Round:      s.state.RoundNumber(),
		Targets:    s.state.Targets(),
		Picks:      s.state.Picks(),
		Elapsed:    now.Sub(s.state.StartedAt()),
		FinishedAt: now,
	}
	log.Info().Str("session", s.id).Int("round", result.Round).Int("picks", result.Picks).
		Dur("elapsed", result.Elapsed).Msg("round complete")
	if s.onRoundComplete != nil {
		s.onRoundComplete(result)
	}
	s.startRound()
}

func (s *Session) showLabel(hit pick.Hit) {
	x, y, on := s.cam.Project(hit.Anchor, s.vp)
	gen := s.label.Show(hit.ID, present.Anchor{World: hit.Anchor, X: x, Y: y, OnScreen: on})
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.label.Duration(), func() {
		select {
		case s.Inbox <- labelExpired{gen: gen}:
		case <-s.quit:
		}
	})
	s.broadcast(protocol.MsgLabel, s.label.View())
}

func (s *Session) snapshot() protocol.State {
	rem := present.RemainingList(s.state.Targets(), s.state.IsFound)
	return protocol.State{
		SessionID: s.id,
		Mode:      string(s.mode),
		Phase:     s.state.Phase(),
		Round:     s.state.RoundNumber(),
		Targets:   s.state.Targets(),
		Found:     s.state.Found(),
		Remaining: rem,
		List:      present.Render(rem),
		Label:     s.label.View(),
		Viewport:  s.vp,
	}
}

func (s *Session) broadcast(t string, payload any) {
	if len(s.subs) == 0 {
		return
	}
	b, err := protocol.Encode(t, payload)
	if err != nil {
		log.Error().Err(err).Str("type", t).Msg("encode event")
		return
	}
	var failed []string
	for id, c := range s.subs {
		if err := c.Send(b); err != nil {
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		s.removeSub(id)
	}
}

func (s *Session) sendTo(c Conn, t string, payload any) {
	b, err := protocol.Encode(t, payload)
	if err != nil {
		return
	}
	_ = c.Send(b)
}

func (s *Session) removeSub(id string) {
	c, ok := s.subs[id]
	if !ok {
		return
	}
	_ = c.Close()
	delete(s.subs, id)
	if len(s.subs) == 0 && s.OnEmpty != nil {
		s.OnEmpty(s.id)
	}
}

// ----------------------------- requests ------------------------------------

// request posts a command built around a reply channel and waits for it.
func request[T any](ctx context.Context, s *Session, build func(chan<- T) any) (T, error) {
	var zero T
	reply := make(chan T, 1)
	select {
	case s.Inbox <- build(reply):
	case <-s.quit:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-s.quit:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Pick resolves a click at viewport pixel (x, y).
func (s *Session) Pick(ctx context.Context, x, y float64) (protocol.PickResult, error) {
	return request(ctx, s, func(r chan<- protocol.PickResult) any { return Pick{X: x, Y: y, Reply: r} })
}

// Resize updates the viewport. It never changes game state.
func (s *Session) Resize(ctx context.Context, vp scene.Viewport) (scene.Viewport, error) {
	return request(ctx, s, func(r chan<- scene.Viewport) any { return Resize{Viewport: vp, Reply: r} })
}

// SetCamera moves the pick camera; false means the pose was rejected.
func (s *Session) SetCamera(ctx context.Context, eye, target [3]float64) (bool, error) {
	return request(ctx, s, func(r chan<- bool) any {
		return SetCamera{Eye: eye, Target: target, Reply: r}
	})
}

// State returns a snapshot of the session.
func (s *Session) State(ctx context.Context) (protocol.State, error) {
	return request(ctx, s, func(r chan<- protocol.State) any { return Snapshot{Reply: r} })
}

// Attach subscribes c to session events and returns the subscriber id.
func (s *Session) Attach(ctx context.Context, c Conn) (string, error) {
	return request(ctx, s, func(r chan<- string) any { return Subscribe{Conn: c, Reply: r} })
}

// Detach removes a subscriber. It does not wait for the loop.
func (s *Session) Detach(id string) {
	select {
	case s.Inbox <- Unsubscribe{ID: id}:
	case <-s.quit:
	}
}
