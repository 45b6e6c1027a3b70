package moremath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMinPropagateNaN(t *testing.T) {
	require.Equal(t, -1.1, MinPropagateNaN(-1.1, 123))
	require.Equal(t, -1.1, MinPropagateNaN(-1.1, math.Inf(1)))
	require.Equal(t, math.Inf(-1), MinPropagateNaN(math.Inf(-1), 123))

	require.True(t, math.IsNaN(MinPropagateNaN(math.NaN(), 1.0)))
	require.True(t, math.IsNaN(MinPropagateNaN(1.0, math.NaN())))
	require.True(t, math.IsNaN(MinPropagateNaN(math.Inf(-1), math.NaN())))
	require.True(t, math.IsNaN(MinPropagateNaN(math.Inf(1), math.NaN())))
}

func TestMaxPropagateNaN(t *testing.T) {
	require.Equal(t, 123.1, MaxPropagateNaN(-1.1, 123.1))
	require.Equal(t, math.Inf(1), MaxPropagateNaN(-1.1, math.Inf(1)))
	require.Equal(t, 123.1, MaxPropagateNaN(math.Inf(-1), 123.1))

	require.True(t, math.IsNaN(MaxPropagateNaN(math.NaN(), 1.0)))
	require.True(t, math.IsNaN(MaxPropagateNaN(1.0, math.NaN())))
	require.True(t, math.IsNaN(MaxPropagateNaN(math.Inf(-1), math.NaN())))
	require.True(t, math.IsNaN(MaxPropagateNaN(math.Inf(1), math.NaN())))
}
