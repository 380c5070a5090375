package ephemeris

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseElements(t *testing.T) {
	input := `# name a e i L long.peri long.node
MARS    1.5 0.09 1.85 -4.55 -23.94 49.56
venus   0.72 0.0067 3.39 181.98 131.60 76.68  0 0 0 58517.8 0 0   # with rates
PLUTO   39.48 0.2488 17.14 238.93 224.07 110.30
EMB     1.0 0.0167 0 100.46 102.94
JUPITER 5.2 abc 1.3 34.4 14.7 100.5
SATURN  9.5 1.2 2.5 50.0 92.6 113.7
`
	got, err := ParseElements(strings.NewReader(input), discardLogger())
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, 1.5, got["mars"].A)
	assert.Equal(t, 0.0, got["mars"].LDot)
	assert.Equal(t, 58517.8, got["venus"].LDot)
	assert.NotContains(t, got, "earth", "short line skipped")
	assert.NotContains(t, got, "jupiter", "bad number skipped")
	assert.NotContains(t, got, "saturn", "hyperbolic skipped")
}

func TestLoadElements(t *testing.T) {
	t.Run("missing directory uses builtin", func(t *testing.T) {
		el, source, err := LoadElements(filepath.Join(t.TempDir(), "nope"), discardLogger())
		require.NoError(t, err)
		assert.Equal(t, "builtin", source)
		assert.Equal(t, defaultElements["saturn"], el["saturn"])
	})

	t.Run("empty path uses builtin", func(t *testing.T) {
		_, source, err := LoadElements("", discardLogger())
		require.NoError(t, err)
		assert.Equal(t, "builtin", source)
	})

	t.Run("file overrides builtin", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ElementsFile)
		require.NoError(t, os.WriteFile(path, []byte("MARS 1.6 0.1 1.8 0 0 49\n"), 0o644))

		el, source, err := LoadElements(dir, discardLogger())
		require.NoError(t, err)
		assert.Equal(t, path, source)
		assert.Equal(t, 1.6, el["mars"].A)
		assert.Equal(t, defaultElements["venus"], el["venus"])

		// The builtin table is not mutated.
		assert.Equal(t, 1.52371034, defaultElements["mars"].A)
	})
}

func TestSolveKepler(t *testing.T) {
	for _, e := range []float64{0, 0.0167, 0.2056, 0.9} {
		for _, m := range []float64{0.1, 1, 3} {
			ea := solveKepler(m, e)
			assert.InDelta(t, m, ea-e*math.Sin(ea), 1e-10, "e=%v m=%v", e, m)
		}
	}
}
