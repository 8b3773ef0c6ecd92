package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/lagekarte/lagekarte/backend-go/internal/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
)

// Session owns one engine. A single goroutine runs every engine call; other
// goroutines hand it closures through Do.
type Session struct {
	ID string

	engine  *engine.Engine
	inbox   chan func(*engine.Engine)
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	metrics *metrics

	lastActive atomic.Int64 // unix nanos

	mu     sync.Mutex
	client *Client
}

func newSession(id string, e *engine.Engine, m *metrics) *Session {
	s := &Session{
		ID:      id,
		engine:  e,
		inbox:   make(chan func(*engine.Engine)),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		metrics: m,
	}
	s.touch()
	go s.run()
	return s
}

func (s *Session) run() {
	defer close(s.stopped)
	defer s.engine.Close()

	for {
		select {
		case fn := <-s.inbox:
			fn(s.engine)
		case <-s.engine.Ready():
			s.engine.Pump()
		case <-s.done:
			return
		}

		if s.engine.Dirty() {
			s.pushFrame(s.engine)
		}
	}
}

// Do runs fn on the session goroutine and waits for it to return.
func (s *Session) Do(ctx context.Context, fn func(*engine.Engine)) error {
	finished := make(chan struct{})
	job := func(e *engine.Engine) {
		defer close(finished)
		fn(e)
	}

	select {
	case s.inbox <- job:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Frame returns the current frame without consuming it, so connected clients
// still receive pending updates.
func (s *Session) Frame(ctx context.Context) ([]engine.DrawCommand, error) {
	var cmds []engine.DrawCommand
	err := s.Do(ctx, func(e *engine.Engine) {
		cmds = e.Snapshot()
	})
	return cmds, err
}

// SurfaceSize returns the engine's device surface size.
func (s *Session) SurfaceSize(ctx context.Context) (width, height float64, err error) {
	err = s.Do(ctx, func(e *engine.Engine) {
		width, height = e.SurfaceSize()
	})
	return width, height, err
}

// LastActive reports when the session last saw input or a connection.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// Close stops the session goroutine, releases the engine and disconnects the
// attached client. It is safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		<-s.stopped

		s.mu.Lock()
		c := s.client
		s.client = nil
		s.mu.Unlock()
		if c != nil {
			c.close()
		}
	})
}

// attach makes c the session's connection, replacing any older one, then
// greets it with a welcome and the current frame.
func (s *Session) attach(ctx context.Context, c *Client) error {
	s.mu.Lock()
	old := s.client
	s.client = c
	s.mu.Unlock()

	if old != nil {
		slog.Info("client replaced", "session", s.ID, "old", old.ClientID, "new", c.ClientID)
		old.close()
	}
	s.touch()

	payload, _ := json.Marshal(WelcomePayload{SessionID: s.ID, ClientID: c.ClientID, Palette: DefaultPalette()})
	c.Send(&Message{Type: TypeWelcome, SessionID: s.ID, Payload: payload})

	return s.Do(ctx, s.pushFrame)
}

func (s *Session) detach(c *Client) {
	s.mu.Lock()
	if s.client == c {
		s.client = nil
	}
	s.mu.Unlock()
	c.close()
}

func (s *Session) current() *Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// pushFrame sends a frame to the attached client. Without a client the
// engine stays dirty so the next connection gets the update.
func (s *Session) pushFrame(e *engine.Engine) {
	c := s.current()
	if c == nil {
		return
	}
	payload, err := json.Marshal(FramePayload{Commands: e.Frame()})
	if err != nil {
		slog.Error("marshal frame", "error", err, "session", s.ID)
		return
	}
	c.Send(&Message{Type: TypeFrame, SessionID: s.ID, Payload: payload})
	s.metrics.frames.Add(context.Background(), 1)
}

// handle applies one client message. It returns an error only when the
// session is gone and the connection should end.
func (s *Session) handle(ctx context.Context, c *Client, msg *Message) error {
	s.touch()
	s.metrics.inputs.Add(ctx, 1, metric.WithAttributes(attribute.String("type", msg.Type)))

	var (
		resp *Message
		err  error
	)
	doErr := s.Do(ctx, func(e *engine.Engine) {
		resp, err = Apply(e, msg)
	})
	if doErr != nil {
		return doErr
	}

	if err != nil {
		slog.Debug("message rejected", "error", err, "session", s.ID, "type", msg.Type)
		c.Send(errorMessage(msg, err))
		return nil
	}
	if resp != nil {
		c.Send(resp)
	}
	return nil
}
