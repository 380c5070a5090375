// Package ephemeris provides geocentric ecliptic positions of the Sun, Moon,
// classical planets and the mean lunar node.
//
// An Engine is configured once at startup and is safe for concurrent use.
// Callers acquire a Session per unit of work and must Close it when done.
package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/siliconsteed/rva-api/internal/metrics"
)

// Body identifies a body the engines can compute.
type Body int

const (
	Sun Body = iota
	Moon
	Mercury
	Venus
	Mars
	Jupiter
	Saturn
	MeanNode
)

// String returns the body name.
func (b Body) String() string {
	switch b {
	case Sun:
		return "sun"
	case Moon:
		return "moon"
	case Mercury:
		return "mercury"
	case Venus:
		return "venus"
	case Mars:
		return "mars"
	case Jupiter:
		return "jupiter"
	case Saturn:
		return "saturn"
	case MeanNode:
		return "mean_node"
	default:
		return "unknown"
	}
}

// Flags select calculation options.
type Flags uint32

const (
	// FlagStandardEphemeris asks for the engine's primary ephemeris source.
	FlagStandardEphemeris Flags = 1 << iota
	// FlagSidereal subtracts the configured ayanamsa from the tropical longitude.
	FlagSidereal
)

// Position is a geocentric ecliptic position.
type Position struct {
	Longitude float64 // degrees, [0, 360)
	Latitude  float64 // degrees
	Distance  float64 // AU
}

var (
	// ErrUnsupportedBody is returned when an engine cannot compute a body.
	ErrUnsupportedBody = errors.New("body not supported by engine")
	// ErrSessionClosed is returned by calls on a released session.
	ErrSessionClosed = errors.New("ephemeris session closed")
	// ErrOutOfRange is returned for Julian Days outside the engine's validity.
	ErrOutOfRange = errors.New("julian day outside supported range")
)

// Engine produces sessions. Implementations are immutable after construction.
type Engine interface {
	// Name returns the engine name for logging and metrics.
	Name() string
	// Open acquires a session. The caller must Close it.
	Open() (Session, error)
	// Ready reports whether the engine can serve requests.
	Ready() error
}

// Session computes positions. A session is used by one request at a time.
type Session interface {
	Calc(ctx context.Context, jd float64, body Body, flags Flags) (Position, error)
	// Close releases the session. A second Close returns ErrSessionClosed.
	Close() error
}

// Mode selects which engine New builds.
type Mode int

const (
	ModeAnalytic Mode = iota // built-in series, no network
	ModeHorizons             // JPL Horizons only
	ModeAuto                 // Horizons, falling back to analytic per body
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeAnalytic:
		return "analytic"
	case ModeHorizons:
		return "horizons"
	case ModeAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "analytic":
		return ModeAnalytic, nil
	case "horizons":
		return ModeHorizons, nil
	case "auto":
		return ModeAuto, nil
	default:
		return ModeAnalytic, fmt.Errorf("unknown ephemeris mode %q", s)
	}
}

// Config is the process-wide engine configuration, built once at startup.
type Config struct {
	Mode            Mode
	EphePath        string // directory holding elements.txt
	Sidereal        SiderealMode
	HorizonsURL     string
	HorizonsTimeout time.Duration
}

// New builds the engine selected by cfg.Mode.
func New(cfg Config, logger *slog.Logger) (Engine, error) {
	switch cfg.Mode {
	case ModeAnalytic:
		return NewAnalytic(cfg, logger)
	case ModeHorizons:
		return NewHorizons(cfg, logger), nil
	case ModeAuto:
		an, err := NewAnalytic(cfg, logger)
		if err != nil {
			return nil, err
		}
		return NewFallback(NewHorizons(cfg, logger), an, logger), nil
	default:
		return nil, fmt.Errorf("unsupported ephemeris mode %d", cfg.Mode)
	}
}

// sessionState tracks the open/closed lifecycle shared by all session types.
type sessionState struct {
	engine string
	closed atomic.Bool
}

func openSession(engine string) *sessionState {
	metrics.SessionOpened(engine)
	return &sessionState{engine: engine}
}

func (s *sessionState) check() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	return nil
}

func (s *sessionState) close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrSessionClosed
	}
	metrics.SessionClosed(s.engine)
	return nil
}
