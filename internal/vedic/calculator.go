// Package vedic maps ephemeris longitudes onto rashi, nakshatra and pada for
// a roster of grahas, deriving Ketu from Rahu.
package vedic

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/siliconsteed/rva-api/internal/ephemeris"
	"github.com/siliconsteed/rva-api/internal/metrics"
	"github.com/siliconsteed/rva-api/internal/timescale"
)

// calcFlags are passed to every engine call.
const calcFlags = ephemeris.FlagStandardEphemeris | ephemeris.FlagSidereal

// Input is one chart request. Latitude and Longitude are carried for the
// response and do not affect the calculation.
type Input struct {
	Date           string // YYYY-MM-DD
	Time           string // HH:MM, local
	Latitude       float64
	Longitude      float64
	TimezoneOffset float64 // hours east of UTC
}

// Calculator computes result sets with an ephemeris engine.
type Calculator struct {
	engine ephemeris.Engine
	roster Roster
	logger *slog.Logger
}

// NewCalculator validates roster and returns a calculator. A nil roster
// selects DefaultRoster.
func NewCalculator(engine ephemeris.Engine, roster Roster, logger *slog.Logger) (*Calculator, error) {
	if engine == nil {
		return nil, fmt.Errorf("ephemeris engine is required")
	}
	if roster == nil {
		roster = DefaultRoster()
	}
	if err := roster.Validate(); err != nil {
		return nil, fmt.Errorf("invalid roster: %w", err)
	}
	return &Calculator{engine: engine, roster: roster, logger: logger}, nil
}

// Ready reports whether the underlying engine can serve requests.
func (c *Calculator) Ready() error {
	return c.engine.Ready()
}

// Calculate computes one chart. The engine session is released on every
// return path, including panics. Request-level failures are returned as
// *CalculationError.
func (c *Calculator) Calculate(ctx context.Context, in Input) (rs *ResultSet, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveChart(time.Since(start), err == nil)
	}()

	sess, err := c.engine.Open()
	if err != nil {
		return nil, &CalculationError{Err: fmt.Errorf("opening ephemeris session: %w", err)}
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			c.logger.Warn("closing ephemeris session", "component", "vedic", "error", cerr)
		}
	}()

	if in.Date == "" || in.Time == "" {
		return nil, &CalculationError{Err: ErrMissingParameters}
	}
	jd, err := timescale.ToJulianDay(in.Date, in.Time, in.TimezoneOffset)
	if err != nil {
		return nil, &CalculationError{Err: err}
	}

	return c.ComputeAll(ctx, sess, jd), nil
}

// raw is an engine result before mapping.
type raw struct {
	pos ephemeris.Position
	err error
}

// ComputeAll computes every roster body at jd with sess. Body failures are
// recorded in the result set; they never abort the chart.
func (c *Calculator) ComputeAll(ctx context.Context, sess ephemeris.Session, jd float64) *ResultSet {
	resolved := make(map[string]raw, len(c.roster))
	for _, b := range c.roster.dependencies() {
		resolved[b.Name] = c.query(ctx, sess, jd, b)
	}

	rs := newResultSet(len(c.roster))
	for _, b := range c.roster {
		switch b.Kind {
		case Queried:
			r, ok := resolved[b.Name]
			if !ok {
				r = c.query(ctx, sess, jd, b)
				resolved[b.Name] = r
			}
			if r.err != nil {
				rs.set(b.Name, failedPosition(MsgCalculationFailed))
				continue
			}
			rs.set(b.Name, positionAt(r.pos.Longitude, r.pos.Distance))

		case Derived:
			dep := resolved[b.DependsOn]
			if dep.err != nil {
				metrics.RecordBody(b.Name, "dependency_failed")
				rs.set(b.Name, failedPosition(dependencyFailed(b.DependsOn)))
				continue
			}
			metrics.RecordBody(b.Name, "derived")
			rs.set(b.Name, positionAt(b.Derive(dep.pos.Longitude), dep.pos.Distance))
		}
	}
	return rs
}

func (c *Calculator) query(ctx context.Context, sess ephemeris.Session, jd float64, b CelestialBody) raw {
	pos, err := sess.Calc(ctx, jd, b.Code, calcFlags)
	if err == nil && (math.IsNaN(pos.Longitude) || math.IsInf(pos.Longitude, 0)) {
		err = fmt.Errorf("engine returned non-finite longitude")
	}
	if err != nil {
		metrics.RecordBody(b.Name, "error")
		c.logger.Warn("body calculation failed",
			"component", "vedic",
			"body", b.Name,
			"jd", jd,
			"error", err,
		)
		return raw{err: err}
	}

	metrics.RecordBody(b.Name, "ok")
	c.logger.Debug("body calculated",
		"component", "vedic",
		"body", b.Name,
		"jd", jd,
		"longitude", pos.Longitude,
	)
	return raw{pos: pos}
}
