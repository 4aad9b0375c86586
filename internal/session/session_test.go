package session

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/robalobadob/househunt/internal/catalog"
	"github.com/robalobadob/househunt/internal/game"
	"github.com/robalobadob/househunt/internal/loader"
	"github.com/robalobadob/househunt/internal/protocol"
	"github.com/robalobadob/househunt/internal/scene"
)

type fakeConn struct {
	sendCh chan []byte
	mu     sync.Mutex
	closed bool
}

func newFakeConn() *fakeConn { return &fakeConn{sendCh: make(chan []byte, 256)} }

func (f *fakeConn) Send(b []byte) error {
	cp := make([]byte, len(b))
	copy(cp, b)
	f.sendCh <- cp
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// drain decodes every message already sent.
func (f *fakeConn) drain(t *testing.T) []protocol.Envelope {
	t.Helper()
	var out []protocol.Envelope
	for {
		select {
		case b := <-f.sendCh:
			env, err := protocol.DecodeEnvelope(b)
			if err != nil {
				t.Fatalf("decode envelope: %v", err)
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

func count(envs []protocol.Envelope, typ string) int {
	n := 0
	for _, e := range envs {
		if e.T == typ {
			n++
		}
	}
	return n
}

type fakeSource struct {
	ready  chan struct{}
	bundle *loader.Bundle
}

func (f *fakeSource) Ready() <-chan struct{} { return f.ready }
func (f *fakeSource) Bundle() *loader.Bundle { return f.bundle }

var boxCentres = map[string]mgl64.Vec3{
	"A": {-1.5, 0, 0},
	"B": {0, 0, 0},
	"C": {1.5, 0, 0},
}

func threeBoxSource(ready bool) *fakeSource {
	var nodes []*scene.Node
	for _, name := range []string{"A", "B", "C"} {
		c := boxCentres[name]
		nodes = append(nodes, &scene.Node{
			Name:  name,
			Local: mgl64.Translate3D(c[0], c[1], c[2]),
			Mesh: &scene.Mesh{Bounds: scene.AABB{
				Min: mgl64.Vec3{-0.4, -0.4, -0.4},
				Max: mgl64.Vec3{0.4, 0.4, 0.4},
			}},
		})
	}
	sc := scene.New(nodes...)
	src := &fakeSource{
		ready:  make(chan struct{}),
		bundle: &loader.Bundle{Scene: sc, Catalog: catalog.Build(sc.Pickables())},
	}
	if ready {
		close(src.ready)
	}
	return src
}

var testViewport = scene.Viewport{Width: 800, Height: 600}

// pixelOf returns where a box centre appears with the default camera.
func pixelOf(t *testing.T, name string) (float64, float64) {
	t.Helper()
	x, y, ok := scene.NewCamera(testViewport.Aspect()).Project(boxCentres[name], testViewport)
	if !ok {
		t.Fatalf("%s not visible", name)
	}
	return x, y
}

func startSession(t *testing.T, src Source, opts Options) *Session {
	t.Helper()
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}
	if opts.Viewport == (scene.Viewport{}) {
		opts.Viewport = testViewport
	}
	if opts.ID == "" {
		opts.ID = "test"
	}
	s := New(src, opts)
	go s.Run()
	t.Cleanup(s.Stop)
	return s
}

func waitPhase(t *testing.T, s *Session, want game.Phase) protocol.State {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		st, err := s.State(context.Background())
		if err != nil {
			t.Fatalf("State: %v", err)
		}
		if st.Phase == want {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("phase = %s, want %s", st.Phase, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSessionLoadingUntilReady(t *testing.T) {
	src := threeBoxSource(false)
	s := startSession(t, src, Options{})

	st, err := s.State(context.Background())
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Phase != game.PhaseLoading {
		t.Fatalf("phase = %s, want loading", st.Phase)
	}
	x, y := pixelOf(t, "B")
	res, err := s.Pick(context.Background(), x, y)
	if err != nil || res.Hit != "" {
		t.Fatalf("pick while loading = %+v, %v", res, err)
	}

	close(src.ready)
	st = waitPhase(t, s, game.PhaseInProgress)
	if len(st.Targets) != 3 || st.Round != 1 {
		t.Fatalf("first round = %+v", st)
	}
}

func TestSessionPickFlow(t *testing.T) {
	var mu sync.Mutex
	var results []RoundResult
	s := startSession(t, threeBoxSource(true), Options{
		OnRoundComplete: func(r RoundResult) {
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		},
	})
	waitPhase(t, s, game.PhaseInProgress)

	fc := newFakeConn()
	if _, err := s.Attach(context.Background(), fc); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if envs := fc.drain(t); count(envs, protocol.MsgState) != 1 {
		t.Fatalf("attach should send one state snapshot, got %v", envs)
	}

	ctx := context.Background()

	// A click on empty space resolves to nothing and shows no label.
	res, err := s.Pick(ctx, 2, 2)
	if err != nil || res.Hit != "" || res.Found {
		t.Fatalf("miss = %+v, %v", res, err)
	}

	ax, ay := pixelOf(t, "A")
	res, _ = s.Pick(ctx, ax, ay)
	if res.Hit != "A" || !res.Found {
		t.Fatalf("first A pick = %+v", res)
	}
	res, _ = s.Pick(ctx, ax, ay)
	if res.Hit != "A" || res.Found || len(res.Events) != 0 {
		t.Fatalf("repeat A pick = %+v", res)
	}

	bx, by := pixelOf(t, "B")
	if res, _ = s.Pick(ctx, bx, by); !res.Found || res.Phase != game.PhaseInProgress {
		t.Fatalf("B pick = %+v", res)
	}
	cx, cy := pixelOf(t, "C")
	res, _ = s.Pick(ctx, cx, cy)
	if !res.Found || len(res.Events) != 2 || res.Events[1].Kind != game.EventRoundComplete {
		t.Fatalf("C pick = %+v", res)
	}
	// A new round starts straight away.
	if res.Phase != game.PhaseInProgress || len(res.Remaining) != 3 {
		t.Fatalf("after completion = %+v", res)
	}

	envs := fc.drain(t)
	if n := count(envs, protocol.MsgFound); n != 3 {
		t.Fatalf("found events = %d, want 3", n)
	}
	if n := count(envs, protocol.MsgRoundComplete); n != 1 {
		t.Fatalf("round_complete events = %d, want 1", n)
	}
	if n := count(envs, protocol.MsgLabel); n != 4 {
		t.Fatalf("label events = %d, want 4 (one per hit)", n)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(results) != 1 || results[0].Round != 1 || len(results[0].Targets) != 3 || results[0].Picks != 4 {
		t.Fatalf("round results = %+v", results)
	}

	st, _ := s.State(ctx)
	if st.Round != 2 || len(st.Found) != 0 {
		t.Fatalf("second round = %+v", st)
	}
}

func TestSessionEmptyCatalogCompletesOnce(t *testing.T) {
	sc := scene.New()
	src := &fakeSource{
		ready:  make(chan struct{}),
		bundle: &loader.Bundle{Scene: sc, Catalog: catalog.Build(sc.Pickables())},
	}
	s := startSession(t, src, Options{})
	fc := newFakeConn()
	if _, err := s.Attach(context.Background(), fc); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	close(src.ready)

	st := waitPhase(t, s, game.PhaseComplete)
	if st.Round != 1 || len(st.Targets) != 0 {
		t.Fatalf("state = %+v", st)
	}
	envs := fc.drain(t)
	if n := count(envs, protocol.MsgRoundComplete); n != 1 {
		t.Fatalf("round_complete = %d, want 1", n)
	}
}

func TestSessionEmptyCatalogNotifiesLateSubscriber(t *testing.T) {
	sc := scene.New()
	src := &fakeSource{
		ready:  make(chan struct{}),
		bundle: &loader.Bundle{Scene: sc, Catalog: catalog.Build(sc.Pickables())},
	}
	close(src.ready)
	s := startSession(t, src, Options{})
	waitPhase(t, s, game.PhaseComplete)

	for i := 0; i < 2; i++ {
		fc := newFakeConn()
		if _, err := s.Attach(context.Background(), fc); err != nil {
			t.Fatalf("Attach: %v", err)
		}
		envs := fc.drain(t)
		if n := count(envs, protocol.MsgRoundComplete); n != 1 {
			t.Fatalf("subscriber %d round_complete = %d, want 1 (%v)", i, n, envs)
		}
	}
}

func TestSessionLabelResetByNewPick(t *testing.T) {
	const d = 200 * time.Millisecond
	s := startSession(t, threeBoxSource(true), Options{LabelDuration: d})
	waitPhase(t, s, game.PhaseInProgress)
	ctx := context.Background()

	ax, ay := pixelOf(t, "A")
	bx, by := pixelOf(t, "B")

	if _, err := s.Pick(ctx, ax, ay); err != nil {
		t.Fatalf("pick A: %v", err)
	}
	time.Sleep(d / 2)
	if _, err := s.Pick(ctx, bx, by); err != nil {
		t.Fatalf("pick B: %v", err)
	}
	second := time.Now()

	// Past the first pick's dismissal time but inside the second's.
	time.Sleep(d*3/4 + 10*time.Millisecond)
	st, _ := s.State(ctx)
	if !st.Label.Visible || st.Label.Text != "B" {
		t.Fatalf("label after first deadline = %+v (%v since second pick)", st.Label, time.Since(second))
	}

	time.Sleep(d)
	st, _ = s.State(ctx)
	if st.Label.Visible {
		t.Fatalf("label still visible %v after second pick", time.Since(second))
	}
	if st.Label.Text != "B" {
		t.Fatalf("label text = %q", st.Label.Text)
	}
}

func TestSessionResizeKeepsGameState(t *testing.T) {
	s := startSession(t, threeBoxSource(true), Options{})
	waitPhase(t, s, game.PhaseInProgress)
	ctx := context.Background()

	ax, ay := pixelOf(t, "A")
	_, _ = s.Pick(ctx, ax, ay)
	before, _ := s.State(ctx)

	fc := newFakeConn()
	_, _ = s.Attach(ctx, fc)
	fc.drain(t)

	vp, err := s.Resize(ctx, scene.Viewport{Width: 1024, Height: 512})
	if err != nil || vp.Width != 1024 {
		t.Fatalf("Resize = %+v, %v", vp, err)
	}
	after, _ := s.State(ctx)

	if after.Phase != before.Phase || after.Round != before.Round ||
		len(after.Found) != len(before.Found) || len(after.Remaining) != len(before.Remaining) {
		t.Fatalf("game state changed on resize: %+v -> %+v", before, after)
	}
	if after.Viewport.Width != 1024 || after.Viewport.Height != 512 {
		t.Fatalf("viewport = %+v", after.Viewport)
	}
	if envs := fc.drain(t); count(envs, protocol.MsgViewport) != 1 {
		t.Fatalf("expected a viewport event, got %v", envs)
	}

	// An invalid size is ignored.
	vp, _ = s.Resize(ctx, scene.Viewport{Width: 0, Height: 10})
	if vp.Width != 1024 {
		t.Fatalf("invalid resize applied: %+v", vp)
	}
}

func TestSessionCameraMoveChangesPick(t *testing.T) {
	s := startSession(t, threeBoxSource(true), Options{})
	waitPhase(t, s, game.PhaseInProgress)
	ctx := context.Background()

	// Look straight down the x axis from the right: C is now in front of B.
	ok, err := s.SetCamera(ctx, [3]float64{6, 0, 0}, [3]float64{0, 0, 0})
	if err != nil || !ok {
		t.Fatalf("SetCamera = %v, %v", ok, err)
	}
	res, _ := s.Pick(ctx, float64(testViewport.Width)/2, float64(testViewport.Height)/2)
	if res.Hit != "C" {
		t.Fatalf("centre pick after orbit = %q, want C", res.Hit)
	}
}

func TestSessionRejectsCameraAlongUp(t *testing.T) {
	s := startSession(t, threeBoxSource(true), Options{})
	waitPhase(t, s, game.PhaseInProgress)
	ctx := context.Background()

	ok, err := s.SetCamera(ctx, [3]float64{0, 6, 0}, [3]float64{0, 0, 0})
	if err != nil || ok {
		t.Fatalf("SetCamera straight down = %v, %v; want rejected", ok, err)
	}

	// The default camera still applies: a corner click misses.
	res, _ := s.Pick(ctx, 0, 0)
	if res.Hit != "" || res.Found || len(res.Events) != 0 {
		t.Fatalf("corner pick = %+v", res)
	}
	bx, by := pixelOf(t, "B")
	if res, _ = s.Pick(ctx, bx, by); res.Hit != "B" {
		t.Fatalf("B pick = %+v", res)
	}
	st, err := s.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if _, err := json.Marshal(st); err != nil {
		t.Fatalf("state does not encode: %v", err)
	}
}

func TestSessionStopClosesSubscribers(t *testing.T) {
	s := startSession(t, threeBoxSource(true), Options{})
	fc := newFakeConn()
	if _, err := s.Attach(context.Background(), fc); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	s.Stop()
	<-s.Done()
	if !fc.isClosed() {
		t.Fatalf("subscriber not closed on stop")
	}
	if _, err := s.State(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("State after stop err = %v", err)
	}
}
