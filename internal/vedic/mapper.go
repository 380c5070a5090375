package vedic

import "math"

const (
	// SignSpan is the width of one rashi in degrees.
	SignSpan = 30.0
	// NakshatraSpan is the width of one nakshatra in degrees.
	NakshatraSpan = 360.0 / 27.0
	// padaPercent is the share of a nakshatra covered by one pada.
	padaPercent = 25.0
)

// Rashi is a position within the 12-sign zodiac.
type Rashi struct {
	Index        int
	SignName     string
	DegreeInSign float64
}

// Nakshatra is a position within the 27 lunar mansions.
type Nakshatra struct {
	Index                    int
	Name                     string
	PercentageThroughMansion float64
}

// Placement is the symbolic position of a sidereal longitude.
// Values are full precision; rounding happens when the placement is rendered.
type Placement struct {
	Longitude float64
	Rashi     Rashi
	Nakshatra Nakshatra
	Pada      int
}

// NormalizeLongitude wraps l into [0, 360). Non-finite input yields 0.
func NormalizeLongitude(l float64) float64 {
	if math.IsNaN(l) || math.IsInf(l, 0) {
		return 0
	}
	l = math.Mod(l, 360)
	if l < 0 {
		l += 360
	}
	// l+360 can round up to exactly 360 for tiny negative l.
	if l >= 360 {
		l = 0
	}
	return l
}

// MapLongitude maps a sidereal longitude onto rashi, nakshatra and pada.
func MapLongitude(l float64) Placement {
	l = NormalizeLongitude(l)

	sign := clamp(int(math.Floor(l/SignSpan)), 0, len(signNames)-1)
	nak := clamp(int(math.Floor(l/NakshatraSpan)), 0, len(nakshatraNames)-1)

	pct := math.Mod(l, NakshatraSpan) / NakshatraSpan * 100
	pada := clamp(int(math.Floor(pct/padaPercent))+1, 1, 4)

	return Placement{
		Longitude: l,
		Rashi: Rashi{
			Index:        sign,
			SignName:     signNames[sign],
			DegreeInSign: math.Mod(l, SignSpan),
		},
		Nakshatra: Nakshatra{
			Index:                    nak,
			Name:                     nakshatraNames[nak],
			PercentageThroughMansion: pct,
		},
		Pada: pada,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round rounds x to n decimal places.
func round(x float64, n int) float64 {
	p := math.Pow10(n)
	return math.Round(x*p) / p
}
