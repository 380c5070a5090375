package vedic

import (
	"fmt"

	"github.com/siliconsteed/rva-api/internal/ephemeris"
)

// Kind tells how a body's longitude is obtained.
type Kind int

const (
	// Queried bodies are computed by the ephemeris session.
	Queried Kind = iota
	// Derived bodies are computed from another body's result.
	Derived
)

// CelestialBody is one roster entry. Code is set for Queried bodies;
// DependsOn and Derive for Derived ones.
type CelestialBody struct {
	Name string
	Kind Kind

	Code ephemeris.Body

	DependsOn string
	Derive    func(longitude float64) float64
}

// QueriedBody returns a roster entry computed by the engine.
func QueriedBody(name string, code ephemeris.Body) CelestialBody {
	return CelestialBody{Name: name, Kind: Queried, Code: code}
}

// DerivedBody returns a roster entry computed from dependsOn's longitude.
func DerivedBody(name, dependsOn string, derive func(float64) float64) CelestialBody {
	return CelestialBody{Name: name, Kind: Derived, DependsOn: dependsOn, Derive: derive}
}

// KetuLongitude returns the descending node opposite Rahu.
func KetuLongitude(rahu float64) float64 {
	return NormalizeLongitude(rahu + 180)
}

// Roster is an ordered list of bodies. Order controls output order only;
// dependencies are always resolved first.
type Roster []CelestialBody

// DefaultRoster returns the nine grahas in traditional order.
func DefaultRoster() Roster {
	return Roster{
		QueriedBody("Sun", ephemeris.Sun),
		QueriedBody("Moon", ephemeris.Moon),
		QueriedBody("Mercury", ephemeris.Mercury),
		QueriedBody("Venus", ephemeris.Venus),
		QueriedBody("Mars", ephemeris.Mars),
		QueriedBody("Jupiter", ephemeris.Jupiter),
		QueriedBody("Saturn", ephemeris.Saturn),
		QueriedBody("Rahu", ephemeris.MeanNode),
		DerivedBody("Ketu", "Rahu", KetuLongitude),
	}
}

// Validate checks names are unique and every derived body depends on a
// queried body present in the roster.
func (r Roster) Validate() error {
	if len(r) == 0 {
		return fmt.Errorf("roster is empty")
	}
	kinds := make(map[string]Kind, len(r))
	for _, b := range r {
		if b.Name == "" {
			return fmt.Errorf("roster entry with empty name")
		}
		if _, dup := kinds[b.Name]; dup {
			return fmt.Errorf("duplicate roster entry %q", b.Name)
		}
		kinds[b.Name] = b.Kind
	}
	for _, b := range r {
		if b.Kind != Derived {
			continue
		}
		if b.Derive == nil {
			return fmt.Errorf("derived body %q has no derive function", b.Name)
		}
		kind, ok := kinds[b.DependsOn]
		if !ok {
			return fmt.Errorf("derived body %q depends on unknown body %q", b.Name, b.DependsOn)
		}
		if kind != Queried {
			return fmt.Errorf("derived body %q must depend on a queried body, not %q", b.Name, b.DependsOn)
		}
	}
	return nil
}

// dependencies returns the queried bodies that derived bodies depend on,
// in roster order.
func (r Roster) dependencies() []CelestialBody {
	needed := make(map[string]bool)
	for _, b := range r {
		if b.Kind == Derived {
			needed[b.DependsOn] = true
		}
	}
	var out []CelestialBody
	for _, b := range r {
		if b.Kind == Queried && needed[b.Name] {
			out = append(out, b)
		}
	}
	return out
}
