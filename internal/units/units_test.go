package units

import (
	"math"
	"testing"

	"bakery-backoffice/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		from, to string
		want     float64
	}{
		{"kg to g", 2, "kg", "g", 2000},
		{"g to kg", 250, "g", "kg", 0.25},
		{"mg to g", 500, "mg", "g", 0.5},
		{"kg to mg", 1, "kg", "mg", 1_000_000},
		{"l to ml", 1.5, "l", "ml", 1500},
		{"ml to l", 250, "ml", "l", 0.25},
		{"same unit", 42, "g", "g", 42},
		{"count same unit", 3, "un", "un", 3},
		{"case insensitive", 1, "KG", "G", 1000},
		{"nan is zero", math.NaN(), "kg", "g", 0},
		{"inf is zero", math.Inf(1), "l", "ml", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.value, tt.from, tt.to)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestConvertRejectsCrossFamily(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		kind     apperr.Kind
	}{
		{"count to mass", "un", "g", apperr.KindIncompatibleUnit},
		{"mass to count", "kg", "un", apperr.KindIncompatibleUnit},
		{"volume to count", "ml", "un", apperr.KindIncompatibleUnit},
		{"mass to volume", "g", "ml", apperr.KindIncompatibleUnit},
		{"unknown source", "cup", "g", apperr.KindUnknownUnit},
		{"unknown target", "g", "oz", apperr.KindUnknownUnit},
		{"unknown same unit", "oz", "oz", apperr.KindUnknownUnit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Convert(1, tt.from, tt.to)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestConvertRoundTrip(t *testing.T) {
	pairs := [][2]string{{"g", "kg"}, {"mg", "kg"}, {"ml", "l"}, {"mg", "g"}}
	for _, p := range pairs {
		for _, v := range []float64{0, 0.001, 1, 37.5, 12345.678} {
			there, err := Convert(v, p[0], p[1])
			require.NoError(t, err)
			back, err := Convert(there, p[1], p[0])
			require.NoError(t, err)
			assert.InEpsilon(t, v+1, back+1, 1e-9, "%v %s->%s", v, p[0], p[1])
		}
	}
}

func TestToBase(t *testing.T) {
	assert.Equal(t, 0.25, ToBase(250, "mg"))
	assert.Equal(t, 3000.0, ToBase(3, "kg"))
	assert.Equal(t, 2000.0, ToBase(2, "L"))
	assert.Equal(t, 7.0, ToBase(7, "un"))
	assert.Equal(t, 9.0, ToBase(9, "cup"), "unknown units pass through")
	assert.Equal(t, 0.0, ToBase(math.NaN(), "kg"))
}

func TestCanonicalAndFamilies(t *testing.T) {
	c, err := Canonical("kg")
	require.NoError(t, err)
	assert.Equal(t, Gram, c)

	c, err = Canonical("L")
	require.NoError(t, err)
	assert.Equal(t, Millilitre, c)

	c, err = Canonical("un")
	require.NoError(t, err)
	assert.Equal(t, Count, c)

	_, err = Canonical("pinch")
	assert.True(t, apperr.Is(err, apperr.KindUnknownUnit))

	assert.True(t, SameFamily("mg", "kg"))
	assert.False(t, SameFamily("g", "ml"))
	assert.False(t, SameFamily("x", "x"))
	assert.True(t, IsCount("UN"))
	assert.Equal(t, FamilyUnknown, FamilyOf(""))
}
