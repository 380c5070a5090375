package ephemeris

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ElementsFile is the file name looked up inside the ephemeris directory.
const ElementsFile = "elements.txt"

// OrbitalElements are heliocentric Keplerian elements referred to the mean
// ecliptic and equinox of J2000, with linear rates per Julian century.
type OrbitalElements struct {
	A        float64 // semi-major axis, AU
	E        float64 // eccentricity
	I        float64 // inclination, degrees
	L        float64 // mean longitude, degrees
	LongPeri float64 // longitude of perihelion, degrees
	LongNode float64 // longitude of ascending node, degrees

	// Rates per Julian century.
	ADot, EDot, IDot, LDot, LongPeriDot, LongNodeDot float64
}

// elementKeys maps file names to the internal key used by the analytic engine.
// The Earth-Moon barycentre stands in for the Earth.
var elementKeys = map[string]string{
	"MERCURY": "mercury",
	"VENUS":   "venus",
	"EARTH":   "earth",
	"EMB":     "earth",
	"MARS":    "mars",
	"JUPITER": "jupiter",
	"SATURN":  "saturn",
}

// defaultElements are the JPL approximate planetary elements (Standish),
// valid 1800-2050 AD to better than a few arcminutes for the inner planets.
var defaultElements = map[string]OrbitalElements{
	"mercury": {
		A: 0.38709927, E: 0.20563593, I: 7.00497902, L: 252.25032350, LongPeri: 77.45779628, LongNode: 48.33076593,
		ADot: 0.00000037, EDot: 0.00001906, IDot: -0.00594749, LDot: 149472.67411175, LongPeriDot: 0.16047689, LongNodeDot: -0.12534081,
	},
	"venus": {
		A: 0.72333566, E: 0.00677672, I: 3.39467605, L: 181.97909950, LongPeri: 131.60246718, LongNode: 76.67984255,
		ADot: 0.00000390, EDot: -0.00004107, IDot: -0.00078890, LDot: 58517.81538729, LongPeriDot: 0.00268329, LongNodeDot: -0.27769418,
	},
	"earth": {
		A: 1.00000261, E: 0.01671123, I: -0.00001531, L: 100.46457166, LongPeri: 102.93768193, LongNode: 0.0,
		ADot: 0.00000562, EDot: -0.00004392, IDot: -0.01294668, LDot: 35999.37244981, LongPeriDot: 0.32327364, LongNodeDot: 0.0,
	},
	"mars": {
		A: 1.52371034, E: 0.09339410, I: 1.84969142, L: -4.55343205, LongPeri: -23.94362959, LongNode: 49.55953891,
		ADot: 0.00001847, EDot: 0.00007882, IDot: -0.00813131, LDot: 19140.30268499, LongPeriDot: 0.44441088, LongNodeDot: -0.29257343,
	},
	"jupiter": {
		A: 5.20288700, E: 0.04838624, I: 1.30439695, L: 34.39644051, LongPeri: 14.72847983, LongNode: 100.47390909,
		ADot: -0.00011607, EDot: -0.00013253, IDot: -0.00183714, LDot: 3034.74612775, LongPeriDot: 0.21252668, LongNodeDot: 0.20469106,
	},
	"saturn": {
		A: 9.53667594, E: 0.05386179, I: 2.48599187, L: 49.95424423, LongPeri: 92.59887831, LongNode: 113.66242448,
		ADot: -0.00125060, EDot: -0.00050991, IDot: 0.00193609, LDot: 1222.49362201, LongPeriDot: -0.41897216, LongNodeDot: -0.28867794,
	},
}

// at returns the elements propagated to t Julian centuries from J2000.
func (el OrbitalElements) at(t float64) OrbitalElements {
	return OrbitalElements{
		A:        el.A + el.ADot*t,
		E:        el.E + el.EDot*t,
		I:        el.I + el.IDot*t,
		L:        el.L + el.LDot*t,
		LongPeri: el.LongPeri + el.LongPeriDot*t,
		LongNode: el.LongNode + el.LongNodeDot*t,
	}
}

// heliocentric returns the J2000 ecliptic rectangular position in AU.
func (el OrbitalElements) heliocentric(t float64) vec3 {
	e := el.at(t)

	omega := e.LongPeri - e.LongNode // argument of perihelion
	m := math.Mod(e.L-e.LongPeri, 360)
	if m > 180 {
		m -= 360
	} else if m < -180 {
		m += 360
	}

	ea := solveKepler(degToRad(m), e.E)
	xp := e.A * (math.Cos(ea) - e.E)
	yp := e.A * math.Sqrt(1-e.E*e.E) * math.Sin(ea)

	cw, sw := math.Cos(degToRad(omega)), math.Sin(degToRad(omega))
	cn, sn := math.Cos(degToRad(e.LongNode)), math.Sin(degToRad(e.LongNode))
	ci, si := math.Cos(degToRad(e.I)), math.Sin(degToRad(e.I))

	return vec3{
		X: (cw*cn-sw*sn*ci)*xp + (-sw*cn-cw*sn*ci)*yp,
		Y: (cw*sn+sw*cn*ci)*xp + (-sw*sn+cw*cn*ci)*yp,
		Z: (sw*si)*xp + (cw*si)*yp,
	}
}

// solveKepler solves E - e sin E = M by Newton iteration (radians).
func solveKepler(m, e float64) float64 {
	ea := m + e*math.Sin(m)
	for i := 0; i < 30; i++ {
		d := (ea - e*math.Sin(ea) - m) / (1 - e*math.Cos(ea))
		ea -= d
		if math.Abs(d) < 1e-12 {
			break
		}
	}
	return ea
}

// ParseElements reads an elements table. Each non-comment line holds a body
// name, six elements and optionally six per-century rates. Malformed lines
// and unknown bodies are skipped with a warning log.
func ParseElements(r io.Reader, logger *slog.Logger) (map[string]OrbitalElements, error) {
	scanner := bufio.NewScanner(r)
	out := make(map[string]OrbitalElements)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		key, ok := elementKeys[strings.ToUpper(fields[0])]
		if !ok {
			logger.Warn("skipping elements for unknown body", "line", lineNo, "name", fields[0])
			continue
		}
		if len(fields) != 7 && len(fields) != 13 {
			logger.Warn("skipping malformed elements line", "line", lineNo, "name", fields[0], "fields", len(fields))
			continue
		}

		vals := make([]float64, 12)
		var parseErr error
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				parseErr = err
				break
			}
			vals[i] = v
		}
		if parseErr != nil {
			logger.Warn("skipping elements line with invalid number", "line", lineNo, "name", fields[0], "error", parseErr)
			continue
		}
		if vals[1] < 0 || vals[1] >= 1 || vals[0] <= 0 {
			logger.Warn("skipping non-elliptic elements", "line", lineNo, "name", fields[0])
			continue
		}

		out[key] = OrbitalElements{
			A: vals[0], E: vals[1], I: vals[2], L: vals[3], LongPeri: vals[4], LongNode: vals[5],
			ADot: vals[6], EDot: vals[7], IDot: vals[8], LDot: vals[9], LongPeriDot: vals[10], LongNodeDot: vals[11],
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading elements: %w", err)
	}
	return out, nil
}

// LoadElements returns the built-in table overlaid with dir/elements.txt when
// that file exists. source names where the elements came from.
func LoadElements(dir string, logger *slog.Logger) (elements map[string]OrbitalElements, source string, err error) {
	elements = make(map[string]OrbitalElements, len(defaultElements))
	for k, v := range defaultElements {
		elements[k] = v
	}
	if dir == "" {
		return elements, "builtin", nil
	}

	path := filepath.Join(dir, ElementsFile)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return elements, "builtin", nil
		}
		return nil, "", fmt.Errorf("opening elements file: %w", err)
	}
	defer f.Close()

	overrides, err := ParseElements(f, logger)
	if err != nil {
		return nil, "", err
	}
	for k, v := range overrides {
		elements[k] = v
	}
	return elements, path, nil
}
