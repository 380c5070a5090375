package ephemeris

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/siliconsteed/rva-api/internal/timescale"
)

const (
	// moonMeanDistanceAU is reported as the mean node's distance.
	moonMeanDistanceAU = 384400.0 / auKm
	auKm               = 149597870.7
	// lightDaysPerAU is the light time for one AU, in days.
	lightDaysPerAU = 0.0057755183
	// maxCenturies bounds the analytic series to +/- 3000 years from J2000.
	maxCenturies = 30.0
)

// vec3 is a rectangular ecliptic vector.
type vec3 struct {
	X, Y, Z float64
}

func (v vec3) sub(u vec3) vec3 {
	return vec3{v.X - u.X, v.Y - u.Y, v.Z - u.Z}
}

func (v vec3) norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v vec3) spherical() (lonDeg, latDeg, r float64) {
	r = v.norm()
	if r == 0 {
		return 0, 0, 0
	}
	return normalizeAngle360(radToDeg(math.Atan2(v.Y, v.X))), radToDeg(math.Asin(v.Z / r)), r
}

// Analytic computes positions from closed-form series: a low-precision solar
// theory, a truncated lunar series, Keplerian planetary elements and the mean
// node polynomial. It needs no network and no data files.
type Analytic struct {
	elements map[string]OrbitalElements
	sidereal SiderealMode
	logger   *slog.Logger
}

// NewAnalytic builds the analytic engine, loading orbital elements from
// cfg.EphePath when an elements file is present.
func NewAnalytic(cfg Config, logger *slog.Logger) (*Analytic, error) {
	elements, source, err := LoadElements(cfg.EphePath, logger)
	if err != nil {
		return nil, fmt.Errorf("loading orbital elements: %w", err)
	}
	logger.Info("analytic ephemeris ready",
		"component", "ephemeris",
		"elements_source", source,
		"sidereal_mode", cfg.Sidereal.String(),
	)
	return &Analytic{elements: elements, sidereal: cfg.Sidereal, logger: logger}, nil
}

// Name implements Engine.
func (a *Analytic) Name() string { return "analytic" }

// Ready implements Engine.
func (a *Analytic) Ready() error {
	if _, ok := a.elements["earth"]; !ok {
		return fmt.Errorf("analytic ephemeris: no earth elements loaded")
	}
	return nil
}

// Open implements Engine.
func (a *Analytic) Open() (Session, error) {
	return &analyticSession{engine: a, state: openSession(a.Name())}, nil
}

type analyticSession struct {
	engine *Analytic
	state  *sessionState
}

func (s *analyticSession) Close() error {
	return s.state.close()
}

func (s *analyticSession) Calc(_ context.Context, jd float64, body Body, flags Flags) (Position, error) {
	if err := s.state.check(); err != nil {
		return Position{}, err
	}
	if math.IsNaN(jd) || math.IsInf(jd, 0) || math.Abs(timescale.Centuries(jd)) > maxCenturies {
		return Position{}, fmt.Errorf("%s at jd %.6f: %w", body, jd, ErrOutOfRange)
	}

	pos, err := s.engine.tropical(jd, body)
	if err != nil {
		return Position{}, err
	}
	if flags&FlagSidereal != 0 {
		pos.Longitude = s.engine.sidereal.toSidereal(pos.Longitude, jd)
	}
	return pos, nil
}

// tropical returns the geocentric longitude referred to the mean equinox of date.
func (a *Analytic) tropical(jd float64, body Body) (Position, error) {
	switch body {
	case Sun:
		return sunPosition(jd), nil
	case Moon:
		return moonPosition(jd), nil
	case MeanNode:
		return Position{Longitude: meanNode(jd), Distance: moonMeanDistanceAU}, nil
	case Mercury, Venus, Mars, Jupiter, Saturn:
		return a.planetPosition(jd, body)
	default:
		return Position{}, fmt.Errorf("%s: %w", body, ErrUnsupportedBody)
	}
}

// sunPosition uses the Astronomical Almanac low-precision solar theory,
// corrected for aberration. Accuracy is about 0.01 degrees.
func sunPosition(jd float64) Position {
	t := timescale.Centuries(jd)

	l0 := normalizeAngle360(280.46646 + 36000.76983*t + 0.0003032*t*t)
	m := normalizeAngle360(357.52911 + 35999.05029*t - 0.0001537*t*t)
	mRad := degToRad(m)
	e := 0.016708634 - 0.000042037*t - 0.0000001267*t*t

	c := (1.914602-0.004817*t-0.000014*t*t)*math.Sin(mRad) +
		(0.019993-0.000101*t)*math.Sin(2*mRad) +
		0.000289*math.Sin(3*mRad)

	trueLon := l0 + c
	v := degToRad(m + c)
	r := 1.000001018 * (1 - e*e) / (1 + e*math.Cos(v))

	return Position{
		Longitude: normalizeAngle360(trueLon - 0.00569),
		Distance:  r,
	}
}

// meanNode returns the longitude of the Moon's mean ascending node (Meeus 47.7).
func meanNode(jd float64) float64 {
	t := timescale.Centuries(jd)
	return normalizeAngle360(125.0445479 -
		1934.1362891*t +
		0.0020754*t*t +
		t*t*t/467441.0 -
		t*t*t*t/60616000.0)
}

// planetPosition returns the geocentric position of a planet from Keplerian
// elements, corrected for light time. Elements are J2000-referred; general
// precession moves the result onto the equinox of date.
func (a *Analytic) planetPosition(jd float64, body Body) (Position, error) {
	el, ok := a.elements[body.String()]
	if !ok {
		return Position{}, fmt.Errorf("%s: no orbital elements: %w", body, ErrUnsupportedBody)
	}
	earthEl, ok := a.elements["earth"]
	if !ok {
		return Position{}, fmt.Errorf("%s: no earth elements: %w", body, ErrUnsupportedBody)
	}

	t := timescale.Centuries(jd)
	earth := earthEl.heliocentric(t)
	geo := el.heliocentric(t).sub(earth)

	// One light-time iteration is enough at this precision.
	tau := geo.norm() * lightDaysPerAU
	geo = el.heliocentric(timescale.Centuries(jd - tau)).sub(earth)

	lon, lat, r := geo.spherical()
	return Position{
		Longitude: normalizeAngle360(lon + precession(jd)),
		Latitude:  lat,
		Distance:  r,
	}, nil
}
