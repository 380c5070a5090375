package vedic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siliconsteed/rva-api/internal/ephemeris"
	"github.com/siliconsteed/rva-api/internal/ephemeris/ephemtest"
	"github.com/siliconsteed/rva-api/internal/timescale"
)

var rosterNames = []string{"Sun", "Moon", "Mercury", "Venus", "Mars", "Jupiter", "Saturn", "Rahu", "Ketu"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scriptedEngine() *ephemtest.Engine {
	return ephemtest.New().
		Set(ephemeris.Sun, ephemeris.Position{Longitude: 270.5, Distance: 0.983}).
		Set(ephemeris.Moon, ephemeris.Position{Longitude: 285.6, Distance: 0.0026}).
		Set(ephemeris.Mercury, ephemeris.Position{Longitude: 250.1, Distance: 0.7}).
		Set(ephemeris.Venus, ephemeris.Position{Longitude: 280.2, Distance: 0.27}).
		Set(ephemeris.Mars, ephemeris.Position{Longitude: 220.3, Distance: 2.1}).
		Set(ephemeris.Jupiter, ephemeris.Position{Longitude: 72.4, Distance: 4.2}).
		Set(ephemeris.Saturn, ephemeris.Position{Longitude: 265.5, Distance: 10.9}).
		Set(ephemeris.MeanNode, ephemeris.Position{Longitude: 281.7, Distance: 0.00257})
}

func newCalc(t *testing.T, engine ephemeris.Engine, roster Roster) *Calculator {
	t.Helper()
	c, err := NewCalculator(engine, roster, discardLogger())
	require.NoError(t, err)
	return c
}

var sampleInput = Input{
	Date:           "1990-01-15",
	Time:           "14:30",
	Latitude:       28.6139,
	Longitude:      77.2090,
	TimezoneOffset: 5.5,
}

func TestCalculateFullChart(t *testing.T) {
	engine := scriptedEngine()
	c := newCalc(t, engine, nil)

	rs, err := c.Calculate(context.Background(), sampleInput)
	require.NoError(t, err)

	assert.Equal(t, rosterNames, rs.Names())
	for _, name := range rosterNames {
		p, ok := rs.Get(name)
		require.True(t, ok, name)
		assert.False(t, p.Failed(), name)
	}

	rahu, _ := rs.Get("Rahu")
	ketu, _ := rs.Get("Ketu")
	assert.InDelta(t, 101.7, ketu.Longitude, 1e-9)
	assert.InDelta(t, 180, math.Mod(ketu.Longitude-rahu.Longitude+360, 360), 1e-9)
	assert.Equal(t, rahu.Distance, ketu.Distance)

	moon, _ := rs.Get("Moon")
	assert.Equal(t, "Makara (Capricorn)", moon.Rashi.SignName)
	assert.Equal(t, "Shravana", moon.Nakshatra.Name)

	// Ketu is never queried and Rahu is queried once.
	assert.Equal(t, int64(8), engine.Calls.Load())
	assert.Equal(t, int64(1), engine.Opens.Load())
	assert.Equal(t, int64(1), engine.Closes.Load())
	for _, f := range engine.Flags() {
		assert.Equal(t, ephemeris.FlagStandardEphemeris|ephemeris.FlagSidereal, f)
	}
}

func TestCalculateJulianDay(t *testing.T) {
	engine := scriptedEngine()
	c := newCalc(t, engine, nil)

	_, err := c.Calculate(context.Background(), sampleInput)
	require.NoError(t, err)

	// 14:30 at +5:30 is 09:00 UTC.
	for _, jd := range engine.JulianDays() {
		assert.InDelta(t, 2447906.875, jd, 1e-9)
	}
}

func TestRahuFailureIsolated(t *testing.T) {
	engine := scriptedEngine().Fail(ephemeris.MeanNode, ephemtest.ErrScripted)
	c := newCalc(t, engine, nil)

	rs, err := c.Calculate(context.Background(), sampleInput)
	require.NoError(t, err)
	require.Equal(t, 9, rs.Len())

	rahu, _ := rs.Get("Rahu")
	assert.Equal(t, "Calculation failed", rahu.Err)
	ketu, _ := rs.Get("Ketu")
	assert.Equal(t, "Rahu calculation failed", ketu.Err)

	for _, name := range rosterNames[:7] {
		p, _ := rs.Get(name)
		assert.False(t, p.Failed(), name)
	}
	assert.Equal(t, int64(8), engine.Calls.Load(), "failed Rahu is not retried")
}

func TestMarsOnlyFailure(t *testing.T) {
	engine := scriptedEngine().Fail(ephemeris.Mars, ephemtest.ErrScripted)
	c := newCalc(t, engine, nil)

	rs, err := c.Calculate(context.Background(), sampleInput)
	require.NoError(t, err)
	require.Equal(t, 9, rs.Len())

	for _, name := range rosterNames {
		p, _ := rs.Get(name)
		if name == "Mars" {
			assert.Equal(t, BodyPosition{Err: "Calculation failed"}, p)
			continue
		}
		assert.False(t, p.Failed(), name)
	}
}

func TestNonFiniteLongitudeFails(t *testing.T) {
	engine := scriptedEngine().Set(ephemeris.Venus, ephemeris.Position{Longitude: math.NaN()})
	c := newCalc(t, engine, nil)

	rs, err := c.Calculate(context.Background(), sampleInput)
	require.NoError(t, err)
	venus, _ := rs.Get("Venus")
	assert.Equal(t, MsgCalculationFailed, venus.Err)
}

func TestCalculateRequestErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   Input
		wantIs  error
		wantMsg string
	}{
		{
			name:    "missing date",
			input:   Input{Time: "14:30", TimezoneOffset: 5.5},
			wantIs:  ErrMissingParameters,
			wantMsg: "Calculation error: missing required parameters: date, time, lat, lon, timezone",
		},
		{
			name:    "missing time",
			input:   Input{Date: "1990-01-15"},
			wantIs:  ErrMissingParameters,
			wantMsg: "Calculation error: missing required parameters",
		},
		{
			name:    "non-numeric date",
			input:   Input{Date: "1990-xx-15", Time: "14:30"},
			wantIs:  timescale.ErrInvalidInput,
			wantMsg: "Calculation error: invalid date or time format",
		},
		{
			name:    "missing separator",
			input:   Input{Date: "1990-01-15", Time: "1430"},
			wantIs:  timescale.ErrInvalidInput,
			wantMsg: "Calculation error: invalid date or time format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := scriptedEngine()
			c := newCalc(t, engine, nil)

			rs, err := c.Calculate(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, rs)

			var calcErr *CalculationError
			require.True(t, errors.As(err, &calcErr))
			assert.ErrorIs(t, err, tt.wantIs)
			assert.True(t, strings.HasPrefix(err.Error(), tt.wantMsg), err.Error())

			assert.Zero(t, engine.Calls.Load())
			assert.Equal(t, int64(1), engine.Opens.Load())
			assert.Equal(t, int64(1), engine.Closes.Load(), "session released on error path")
		})
	}
}

func TestCalculateOpenFailure(t *testing.T) {
	engine := scriptedEngine().FailOpen(errors.New("no ephemeris"))
	c := newCalc(t, engine, nil)

	_, err := c.Calculate(context.Background(), sampleInput)
	var calcErr *CalculationError
	require.True(t, errors.As(err, &calcErr))
	assert.Contains(t, err.Error(), "no ephemeris")
	assert.Zero(t, engine.Closes.Load())
}

func TestCalculateReleasesSessionOnPanic(t *testing.T) {
	engine := scriptedEngine().Panic(ephemeris.Jupiter)
	c := newCalc(t, engine, nil)

	assert.Panics(t, func() {
		c.Calculate(context.Background(), sampleInput)
	})
	assert.Equal(t, int64(1), engine.Closes.Load())
}

func TestRepeatedRequestsBalanceSessions(t *testing.T) {
	engine := scriptedEngine()
	c := newCalc(t, engine, nil)

	for i := 0; i < 20; i++ {
		_, err := c.Calculate(context.Background(), sampleInput)
		require.NoError(t, err)
	}
	_, _ = c.Calculate(context.Background(), Input{Date: "bad", Time: "bad"})

	assert.Equal(t, int64(21), engine.Opens.Load())
	assert.Equal(t, engine.Opens.Load(), engine.Closes.Load())
}

func TestDerivedBeforeDependencyInRoster(t *testing.T) {
	roster := Roster{
		DerivedBody("Ketu", "Rahu", KetuLongitude),
		QueriedBody("Sun", ephemeris.Sun),
		QueriedBody("Rahu", ephemeris.MeanNode),
	}
	engine := scriptedEngine()
	c := newCalc(t, engine, roster)

	rs, err := c.Calculate(context.Background(), sampleInput)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ketu", "Sun", "Rahu"}, rs.Names())

	ketu, _ := rs.Get("Ketu")
	assert.False(t, ketu.Failed())
	assert.InDelta(t, 101.7, ketu.Longitude, 1e-9)
	assert.Equal(t, int64(2), engine.Calls.Load())
}

func TestComputeAllWithRealEngine(t *testing.T) {
	engine, err := ephemeris.NewAnalytic(ephemeris.Config{}, discardLogger())
	require.NoError(t, err)
	c := newCalc(t, engine, nil)

	rs, err := c.Calculate(context.Background(), sampleInput)
	require.NoError(t, err)
	require.Equal(t, rosterNames, rs.Names())

	rahu, _ := rs.Get("Rahu")
	ketu, _ := rs.Get("Ketu")
	require.False(t, rahu.Failed())
	assert.InDelta(t, 180, math.Mod(ketu.Longitude-rahu.Longitude+360, 360), 1e-9)

	for _, name := range rosterNames {
		p, _ := rs.Get(name)
		assert.False(t, p.Failed(), name)
		assert.Equal(t, int(math.Floor(p.Longitude/30)), p.Rashi.Index, name)
	}
}

func TestResultSetJSON(t *testing.T) {
	engine := scriptedEngine().Fail(ephemeris.MeanNode, ephemtest.ErrScripted)
	c := newCalc(t, engine, nil)

	rs, err := c.Calculate(context.Background(), sampleInput)
	require.NoError(t, err)

	data, err := json.Marshal(rs)
	require.NoError(t, err)
	body := string(data)

	// Keys appear in roster order.
	last := -1
	for _, name := range rosterNames {
		idx := strings.Index(body, `"`+name+`":`)
		require.Greater(t, idx, last, name)
		last = idx
	}

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, map[string]any{"error": "Rahu calculation failed"}, decoded["Ketu"])
	assert.Equal(t, map[string]any{"error": "Calculation failed"}, decoded["Rahu"])

	moon := decoded["Moon"]
	assert.Equal(t, 285.6, moon["longitude"])
	assert.Equal(t, 0.0026, moon["distance"])
	assert.Equal(t, 2.0, moon["pada"])

	rashi := moon["rashi"].(map[string]any)
	assert.Equal(t, 9.0, rashi["index"])
	assert.Equal(t, "Makara (Capricorn)", rashi["signName"])
	assert.Equal(t, 15.6, rashi["degreeInSign"])
	assert.Equal(t, "15.60° Makara (Capricorn)", rashi["label"])

	nak := moon["nakshatra"].(map[string]any)
	assert.Equal(t, 21.0, nak["index"])
	assert.Equal(t, "Shravana", nak["name"])
	assert.Equal(t, 42.0, nak["percentageThroughMansion"])
	assert.Equal(t, "Shravana (42.0%)", nak["label"])
}

func TestPositionJSONStaysBelowBoundaries(t *testing.T) {
	p := BodyPosition{Placement: MapLongitude(359.9999999), Distance: 1}
	require.Equal(t, 11, p.Rashi.Index)
	require.Equal(t, 26, p.Nakshatra.Index)

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 359.999999, decoded["longitude"])

	rashi := decoded["rashi"].(map[string]any)
	assert.Equal(t, 29.99, rashi["degreeInSign"])
	assert.Equal(t, "29.99° Meena (Pisces)", rashi["label"])

	nak := decoded["nakshatra"].(map[string]any)
	assert.Equal(t, 99.9, nak["percentageThroughMansion"])
	assert.Equal(t, "Revati (99.9%)", nak["label"])
	assert.Equal(t, 4.0, decoded["pada"])
}

func TestRoundBelow(t *testing.T) {
	tests := []struct {
		x     float64
		n     int
		limit float64
		want  float64
	}{
		{359.9999999, 6, 360, 359.999999},
		{359.5, 6, 360, 359.5},
		{29.996, 2, 30, 29.99},
		{99.96, 1, 100, 99.9},
		{42.04, 1, 100, 42.0},
		{0, 1, 100, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roundBelow(tt.x, tt.n, tt.limit), "roundBelow(%v, %d, %v)", tt.x, tt.n, tt.limit)
	}
}

func TestNewCalculatorRejectsBadRoster(t *testing.T) {
	_, err := NewCalculator(scriptedEngine(), Roster{QueriedBody("Sun", ephemeris.Sun), QueriedBody("Sun", ephemeris.Moon)}, discardLogger())
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewCalculator(nil, nil, discardLogger())
	assert.Error(t, err)
}
