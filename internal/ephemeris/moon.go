package ephemeris

import (
	"math"

	"github.com/siliconsteed/rva-api/internal/timescale"
)

// lunarTerm is one periodic term of the lunar longitude and distance series.
// Coefficients are in 1e-6 degrees (sl) and 1e-3 km (sr).
type lunarTerm struct {
	d, m, mp, f int
	sl, sr      float64
}

// lunarTerms are the leading terms of Meeus table 47.A. The omitted terms
// sum to about 0.01 degrees in longitude.
var lunarTerms = []lunarTerm{
	{0, 0, 1, 0, 6288774, -20905355},
	{2, 0, -1, 0, 1274027, -3699111},
	{2, 0, 0, 0, 658314, -2955968},
	{0, 0, 2, 0, 213618, -569925},
	{0, 1, 0, 0, -185116, 48888},
	{0, 0, 0, 2, -114332, -3149},
	{2, 0, -2, 0, 58793, 246158},
	{2, -1, -1, 0, 57066, -152138},
	{2, 0, 1, 0, 53322, -170733},
	{2, -1, 0, 0, 45758, -204586},
	{0, 1, -1, 0, -40923, -129620},
	{1, 0, 0, 0, -34720, 108743},
	{0, 1, 1, 0, -30383, 104755},
	{2, 0, 0, -2, 15327, 10321},
	{0, 0, 1, 2, -12528, 0},
	{0, 0, 1, -2, 10980, 79661},
	{4, 0, -1, 0, 10675, -34782},
	{0, 0, 3, 0, 10034, -23210},
	{4, 0, -2, 0, 8548, -21636},
	{2, 1, -1, 0, -7888, 24208},
	{2, 1, 0, 0, -6766, 30824},
	{1, 0, -1, 0, -5163, -8379},
	{1, 1, 0, 0, 4987, -16675},
	{2, -1, 1, 0, 4036, -12831},
	{2, 0, 2, 0, 3994, -10445},
	{4, 0, 0, 0, 3861, -11650},
	{2, 0, -3, 0, 3665, 14403},
	{0, 1, -2, 0, -2689, -7003},
	{2, 0, -1, 2, -2602, 0},
	{2, -1, -2, 0, 2390, 10056},
	{1, 0, 1, 0, -2348, 6322},
	{2, -2, 0, 0, 2236, -9884},
}

// moonPosition returns the Moon's geocentric longitude (mean equinox of date)
// and distance.
func moonPosition(jd float64) Position {
	t := timescale.Centuries(jd)
	t2, t3, t4 := t*t, t*t*t, t*t*t*t

	lp := 218.3164477 + 481267.88123421*t - 0.0015786*t2 + t3/538841.0 - t4/65194000.0
	d := 297.8501921 + 445267.1114034*t - 0.0018819*t2 + t3/545868.0 - t4/113065000.0
	m := 357.5291092 + 35999.0502909*t - 0.0001536*t2 + t3/24490000.0
	mp := 134.9633964 + 477198.8675055*t + 0.0087414*t2 + t3/69699.0 - t4/14712000.0
	f := 93.2720950 + 483202.0175233*t - 0.0036539*t2 - t3/3526000.0 + t4/863310000.0

	a1 := 119.75 + 131.849*t
	a2 := 53.09 + 479264.290*t
	e := 1 - 0.002516*t - 0.0000074*t2

	dR, mR, mpR, fR := degToRad(d), degToRad(m), degToRad(mp), degToRad(f)

	var sumL, sumR float64
	for _, term := range lunarTerms {
		arg := float64(term.d)*dR + float64(term.m)*mR + float64(term.mp)*mpR + float64(term.f)*fR
		scale := 1.0
		switch term.m {
		case 1, -1:
			scale = e
		case 2, -2:
			scale = e * e
		}
		sumL += term.sl * scale * math.Sin(arg)
		sumR += term.sr * scale * math.Cos(arg)
	}

	sumL += 3958*math.Sin(degToRad(a1)) +
		1962*math.Sin(degToRad(lp-f)) +
		318*math.Sin(degToRad(a2))

	return Position{
		Longitude: normalizeAngle360(lp + sumL/1e6),
		Distance:  (385000.56 + sumR/1000.0) / auKm,
	}
}
