package shapefile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// esriClockwiseSquare is a unit square wound clockwise, the ESRI
// convention for an outer ring.
var esriClockwiseSquare = []float64{0, 0, 0, 1, 1, 1, 1, 0, 0, 0}

func TestReversePolygonRingOrientationPolygon(t *testing.T) {
	p := geom.NewPolygonFlat(geom.XY, esriClockwiseSquare, []int{len(esriClockwiseSquare)})
	orientation, err := RingOrientationOf(p.FlatCoords(), 2)
	require.NoError(t, err)
	assert.Equal(t, RingOrientationClockwise, orientation)

	reversed := reversePolygonRingOrientation(p).(*geom.Polygon)
	orientation, err = RingOrientationOf(reversed.FlatCoords(), 2)
	require.NoError(t, err)
	assert.Equal(t, RingOrientationCounterClockwise, orientation)

	roundTripped := reversePolygonRingOrientation(reversed).(*geom.Polygon)
	assert.Equal(t, p.FlatCoords(), roundTripped.FlatCoords())
}

func TestReversePolygonRingOrientationMultiPolygon(t *testing.T) {
	second := []float64{2, 2, 2, 3, 3, 3, 3, 2, 2, 2}
	flat := append(append([]float64{}, esriClockwiseSquare...), second...)
	mp := geom.NewMultiPolygonFlat(geom.XY, flat, [][]int{{len(esriClockwiseSquare)}, {len(flat)}})

	reversed := reversePolygonRingOrientation(mp).(*geom.MultiPolygon)
	require.Equal(t, 2, reversed.NumPolygons())
	flat = reversed.FlatCoords()
	start := 0
	for i := 0; i < reversed.NumPolygons(); i++ {
		for _, end := range reversed.Endss()[i] {
			orientation, err := RingOrientationOf(flat[start:end], 2)
			require.NoError(t, err)
			assert.Equal(t, RingOrientationCounterClockwise, orientation)
			start = end
		}
	}
}

func TestNormalizePolygonRingsClosesAndReorients(t *testing.T) {
	// An open, counterclockwise-wound outer ring: the caller handed us
	// the wrong winding and forgot to close it.
	open := []float64{0, 0, 1, 0, 1, 1, 0, 1}
	flatCoords, ends, err := normalizePolygonRings(2, open, []int{len(open)}, []int{1})
	require.NoError(t, err)
	require.Equal(t, []int{10}, ends)

	orientation, err := RingOrientationOf(flatCoords[:ends[0]], 2)
	require.NoError(t, err)
	assert.Equal(t, RingOrientationClockwise, orientation)
	assert.True(t, IsClosedRing(flatCoords[:ends[0]], 2))
}
