package ephemeris

import (
	"context"
	"errors"
	"log/slog"
)

// Fallback tries a primary engine and, per body, falls back to a secondary
// engine when the primary fails.
type Fallback struct {
	primary   Engine
	secondary Engine
	logger    *slog.Logger
}

// NewFallback combines two engines.
func NewFallback(primary, secondary Engine, logger *slog.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// Name implements Engine.
func (f *Fallback) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

// Ready implements Engine. The secondary alone is enough to serve requests.
func (f *Fallback) Ready() error {
	return f.secondary.Ready()
}

// Open implements Engine. A primary that cannot open is skipped.
func (f *Fallback) Open() (Session, error) {
	sec, err := f.secondary.Open()
	if err != nil {
		return nil, err
	}
	prim, err := f.primary.Open()
	if err != nil {
		f.logger.Warn("primary ephemeris unavailable, using secondary only",
			"component", "ephemeris",
			"primary", f.primary.Name(),
			"error", err,
		)
		prim = nil
	}
	return &fallbackSession{engine: f, primary: prim, secondary: sec}, nil
}

type fallbackSession struct {
	engine    *Fallback
	primary   Session
	secondary Session
}

func (s *fallbackSession) Calc(ctx context.Context, jd float64, body Body, flags Flags) (Position, error) {
	if s.primary != nil {
		pos, err := s.primary.Calc(ctx, jd, body, flags)
		if err == nil {
			return pos, nil
		}
		if errors.Is(err, ErrSessionClosed) {
			return Position{}, err
		}
		level := slog.LevelWarn
		if errors.Is(err, ErrUnsupportedBody) {
			level = slog.LevelDebug
		}
		s.engine.logger.Log(ctx, level, "primary ephemeris failed, falling back",
			"component", "ephemeris",
			"body", body.String(),
			"primary", s.engine.primary.Name(),
			"error", err,
		)
	}
	return s.secondary.Calc(ctx, jd, body, flags)
}

func (s *fallbackSession) Close() error {
	var errs []error
	if s.primary != nil {
		errs = append(errs, s.primary.Close())
	}
	errs = append(errs, s.secondary.Close())
	return errors.Join(errs...)
}
