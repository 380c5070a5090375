// Package ephemtest provides a scripted ephemeris.Engine for tests.
package ephemtest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/siliconsteed/rva-api/internal/ephemeris"
)

// Engine returns fixed positions per body and counts its use.
type Engine struct {
	mu        sync.Mutex
	positions map[ephemeris.Body]ephemeris.Position
	failures  map[ephemeris.Body]error
	openErr   error
	readyErr  error
	panicOn   map[ephemeris.Body]bool
	jds       []float64
	flags     []ephemeris.Flags

	Opens  atomic.Int64
	Closes atomic.Int64
	Calls  atomic.Int64
}

// New returns an engine that reports every body at longitude 0.
func New() *Engine {
	return &Engine{
		positions: make(map[ephemeris.Body]ephemeris.Position),
		failures:  make(map[ephemeris.Body]error),
		panicOn:   make(map[ephemeris.Body]bool),
	}
}

// Set fixes the position returned for body.
func (e *Engine) Set(body ephemeris.Body, pos ephemeris.Position) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.positions[body] = pos
	return e
}

// Fail makes Calc for body return err.
func (e *Engine) Fail(body ephemeris.Body, err error) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[body] = err
	return e
}

// Panic makes Calc for body panic.
func (e *Engine) Panic(body ephemeris.Body) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.panicOn[body] = true
	return e
}

// FailOpen makes Open return err.
func (e *Engine) FailOpen(err error) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.openErr = err
	return e
}

// FailReady makes Ready return err.
func (e *Engine) FailReady(err error) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.readyErr = err
	return e
}

// JulianDays returns every jd passed to Calc, in call order.
func (e *Engine) JulianDays() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]float64(nil), e.jds...)
}

// Flags returns every flag set passed to Calc, in call order.
func (e *Engine) Flags() []ephemeris.Flags {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ephemeris.Flags(nil), e.flags...)
}

// Name implements ephemeris.Engine.
func (e *Engine) Name() string { return "stub" }

// Ready implements ephemeris.Engine.
func (e *Engine) Ready() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readyErr
}

// Open implements ephemeris.Engine.
func (e *Engine) Open() (ephemeris.Session, error) {
	e.mu.Lock()
	err := e.openErr
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	e.Opens.Add(1)
	return &session{engine: e}, nil
}

type session struct {
	engine *Engine
	closed atomic.Bool
}

func (s *session) Calc(ctx context.Context, jd float64, body ephemeris.Body, flags ephemeris.Flags) (ephemeris.Position, error) {
	if s.closed.Load() {
		return ephemeris.Position{}, ephemeris.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return ephemeris.Position{}, err
	}
	e := s.engine
	e.Calls.Add(1)

	e.mu.Lock()
	e.jds = append(e.jds, jd)
	e.flags = append(e.flags, flags)
	pos := e.positions[body]
	err := e.failures[body]
	shouldPanic := e.panicOn[body]
	e.mu.Unlock()

	if shouldPanic {
		panic("ephemtest: scripted panic for " + body.String())
	}
	if err != nil {
		return ephemeris.Position{}, err
	}
	return pos, nil
}

func (s *session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ephemeris.ErrSessionClosed
	}
	s.engine.Closes.Add(1)
	return nil
}

// ErrScripted is a convenience error for Fail.
var ErrScripted = errors.New("scripted failure")
