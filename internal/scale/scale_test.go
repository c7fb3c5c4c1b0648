package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DegenerateRange(t *testing.T) {
	_, err := New(10, 10, 0, 100)
	assert.ErrorIs(t, err, ErrDegenerateRange)
}

func TestMapper_ToTarget(t *testing.T) {
	tests := []struct {
		name string
		m    [4]float64
		in   float64
		want float64
	}{
		{"brightness v2 midpoint", [4]float64{10, 1000, 0, 100}, 550, 54.54545454545455},
		{"brightness v2 max", [4]float64{10, 1000, 0, 100}, 1000, 100},
		{"brightness v1 midpoint", [4]float64{0, 255, 0, 100}, 128, 50.19607843137255},
		{"identity", [4]float64{0, 100, 0, 100}, 42, 42},
		{"inverted target", [4]float64{0, 100, 100, 0}, 25, 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.m[0], tt.m[1], tt.m[2], tt.m[3])
			require.NoError(t, err)
			assert.InDelta(t, tt.want, m.ToTarget(tt.in), 1e-9)
		})
	}
}

func TestMapper_RoundTrip(t *testing.T) {
	// toSource(toTarget(x)) == x within rounding epsilon for assorted ranges
	ranges := [][4]float64{
		{10, 1000, 0, 100},
		{0, 255, 0, 100},
		{0, 1000, 2700, 6500},
		{1, 4, 0, 100},
		{-40, 80, 0, 1},
	}

	for _, r := range ranges {
		m, err := New(r[0], r[1], r[2], r[3])
		require.NoError(t, err)
		for _, x := range []float64{r[0], r[1], (r[0] + r[1]) / 2, r[0] + 1} {
			assert.InDelta(t, x, m.ToSource(m.ToTarget(x)), 1e-9)
		}
	}
}

func TestMapper_Rounded(t *testing.T) {
	m, err := New(10, 1000, 0, 100)
	require.NoError(t, err)

	// 550 on the provider scale is canonical 55 after rounding
	assert.Equal(t, 55, m.ToTargetRounded(550))
	// canonical 100 maps back to the provider maximum
	assert.Equal(t, 1000, m.ToSourceRounded(100))
}
