package vedic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// BodyPosition is one body's result: a placement with its distance, or an
// error message when the body could not be computed.
type BodyPosition struct {
	Placement
	Distance float64 // AU
	Err      string
}

// Failed reports whether the position holds an error instead of a placement.
func (p BodyPosition) Failed() bool { return p.Err != "" }

func positionAt(longitude, distance float64) BodyPosition {
	return BodyPosition{Placement: MapLongitude(longitude), Distance: distance}
}

func failedPosition(msg string) BodyPosition {
	return BodyPosition{Err: msg}
}

type rashiJSON struct {
	Index        int     `json:"index"`
	SignName     string  `json:"signName"`
	DegreeInSign float64 `json:"degreeInSign"`
	Label        string  `json:"label"`
}

type nakshatraJSON struct {
	Index                    int     `json:"index"`
	Name                     string  `json:"name"`
	PercentageThroughMansion float64 `json:"percentageThroughMansion"`
	Label                    string  `json:"label"`
}

type positionJSON struct {
	Longitude float64       `json:"longitude"`
	Rashi     rashiJSON     `json:"rashi"`
	Nakshatra nakshatraJSON `json:"nakshatra"`
	Pada      int           `json:"pada"`
	Distance  float64       `json:"distance"`
}

// MarshalJSON renders the position with presentation rounding applied.
func (p BodyPosition) MarshalJSON() ([]byte, error) {
	if p.Failed() {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{p.Err})
	}
	lon := roundBelow(p.Longitude, 6, 360)
	deg := roundBelow(p.Rashi.DegreeInSign, 2, SignSpan)
	pct := roundBelow(p.Nakshatra.PercentageThroughMansion, 1, 100)
	return json.Marshal(positionJSON{
		Longitude: lon,
		Rashi: rashiJSON{
			Index:        p.Rashi.Index,
			SignName:     p.Rashi.SignName,
			DegreeInSign: deg,
			Label:        fmt.Sprintf("%.2f° %s", deg, p.Rashi.SignName),
		},
		Nakshatra: nakshatraJSON{
			Index:                    p.Nakshatra.Index,
			Name:                     p.Nakshatra.Name,
			PercentageThroughMansion: pct,
			Label:                    fmt.Sprintf("%s (%.1f%%)", p.Nakshatra.Name, pct),
		},
		Pada:     p.Pada,
		Distance: round(p.Distance, 6),
	})
}

// roundBelow rounds x to n places, keeping the result under limit so a value
// just short of a boundary never prints as the boundary itself.
func roundBelow(x float64, n int, limit float64) float64 {
	r := round(x, n)
	if r >= limit {
		r = round(limit-math.Pow10(-n), n)
	}
	return r
}

// ResultSet maps body names to positions, keeping roster order.
type ResultSet struct {
	names     []string
	positions map[string]BodyPosition
}

func newResultSet(capacity int) *ResultSet {
	return &ResultSet{
		names:     make([]string, 0, capacity),
		positions: make(map[string]BodyPosition, capacity),
	}
}

func (r *ResultSet) set(name string, p BodyPosition) {
	if _, ok := r.positions[name]; !ok {
		r.names = append(r.names, name)
	}
	r.positions[name] = p
}

// Get returns the position recorded for name.
func (r *ResultSet) Get(name string) (BodyPosition, bool) {
	p, ok := r.positions[name]
	return p, ok
}

// Names returns body names in roster order.
func (r *ResultSet) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of bodies.
func (r *ResultSet) Len() int { return len(r.names) }

// MarshalJSON renders a JSON object whose keys follow roster order.
func (r *ResultSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.positions[name])
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
