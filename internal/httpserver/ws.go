// internal/httpserver/ws.go
//
// Websocket bridge between a browser tab and its session.
//   - Outgoing: session events are queued on a buffered channel and written
//     by one goroutine, which also sends pings.
//   - Incoming: pick, resize and camera envelopes are forwarded to the
//     session; the pick result is answered on the same socket.
//   - A full send queue counts as a dead client; the session drops it.

package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/househunt/internal/protocol"
	"github.com/robalobadob/househunt/internal/scene"
	"github.com/robalobadob/househunt/internal/session"
)

const (
	wsSendBuffer   = 64
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 25 * time.Second
	wsReadLimit    = 1 << 16
	wsRequestLimit = 5 * time.Second
)

var errSendQueueFull = errors.New("websocket send queue full")

// wsConn implements session.Conn over a gorilla websocket.
type wsConn struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newWSConn(c *websocket.Conn) *wsConn {
	return &wsConn{
		conn: c,
		send: make(chan []byte, wsSendBuffer),
		done: make(chan struct{}),
	}
}

// Send queues b without blocking.
func (c *wsConn) Send(b []byte) error {
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	default:
		return errSendQueueFull
	}
}

// Close stops the writer, which closes the socket.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// writeLoop owns every write to the socket.
func (c *wsConn) writeLoop() {
	ping := time.NewTicker(wsPingInterval)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				c.Close()
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || origin == s.cfg.ClientOrigin {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

// handleWS upgrades and attaches the socket to the session.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	ws, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	c := newWSConn(ws)
	go c.writeLoop()

	ctx, cancel := context.WithTimeout(context.Background(), wsRequestLimit)
	subID, err := sess.Attach(ctx, c)
	cancel()
	if err != nil {
		c.Close()
		return
	}
	log.Debug().Str("session", sess.ID()).Str("sub", subID).Msg("websocket attached")

	s.readLoop(sess, c)
	sess.Detach(subID)
	c.Close()
}

// readLoop forwards client messages until the socket fails.
func (s *Server) readLoop(sess *session.Session, c *wsConn) {
	c.conn.SetReadLimit(wsReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		env, err := protocol.DecodeEnvelope(msg)
		if err != nil {
			s.sendError(c, err.Error())
			continue
		}
		if err := s.dispatch(sess, c, env); err != nil {
			if errors.Is(err, session.ErrStopped) {
				return
			}
			s.sendError(c, err.Error())
		}
	}
}

func (s *Server) dispatch(sess *session.Session, c *wsConn, env protocol.Envelope) error {
	ctx, cancel := context.WithTimeout(context.Background(), wsRequestLimit)
	defer cancel()

	switch env.T {
	case protocol.MsgPick:
		p, err := protocol.DecodePayload[protocol.Pick](env)
		if err != nil {
			return err
		}
		res, err := sess.Pick(ctx, p.X, p.Y)
		if err != nil {
			return err
		}
		b, err := protocol.Encode(protocol.MsgPickResult, res)
		if err != nil {
			return err
		}
		return c.Send(b)
	case protocol.MsgResize:
		p, err := protocol.DecodePayload[protocol.Resize](env)
		if err != nil {
			return err
		}
		vp := scene.Viewport{Width: p.Width, Height: p.Height}
		if !vp.Valid() {
			return errors.New("invalid viewport")
		}
		_, err = sess.Resize(ctx, vp)
		return err
	case protocol.MsgCamera:
		p, err := protocol.DecodePayload[protocol.Camera](env)
		if err != nil {
			return err
		}
		accepted, err := sess.SetCamera(ctx, p.Eye, p.Target)
		if err != nil {
			return err
		}
		if !accepted {
			return errors.New("invalid camera")
		}
		return nil
	default:
		return errors.New("unknown message type " + env.T)
	}
}

func (s *Server) sendError(c *wsConn, msg string) {
	if b, err := protocol.Encode(protocol.MsgError, protocol.ErrorMsg{Error: msg}); err == nil {
		_ = c.Send(b)
	}
}
