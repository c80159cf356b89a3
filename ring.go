package shapefile

import (
	"fmt"
	"math"
)

// maxRingAreaRetryExponent bounds the shoelace-area rescaling retry: the
// coordinates are multiplied by 10^(3k) for k = 0..maxRingAreaRetryExponent
// before the area is recomputed, to recover a ring whose true area is
// nonzero but underflows at the ring's native coordinate scale.
const maxRingAreaRetryExponent = 3

// A RingOrientation classifies a closed ring's winding direction.
type RingOrientation int

const (
	// RingOrientationUndefined is returned for an empty ring set or one
	// whose rings don't agree on a consistent outer/inner pairing.
	RingOrientationUndefined RingOrientation = iota
	RingOrientationClockwise
	RingOrientationCounterClockwise
)

func ringVertexCount(flatCoords []float64, stride int) int {
	return len(flatCoords) / stride
}

// SignedRingArea computes the ring's signed area, the shoelace sum divided
// by 2, over the X/Y ordinates only. A ring with fewer than 3 vertices fails
// with ErrRingNotEnoughVertices. If the area comes out to exactly zero at
// native scale, the computation retries at 10^3, 10^6 and 10^9 times the
// native coordinates (undoing the scale factor in the result) before
// failing with ErrRingAreaTooSmall.
func SignedRingArea(flatCoords []float64, stride int) (float64, error) {
	n := ringVertexCount(flatCoords, stride)
	if n < 3 {
		return 0, newError(ErrRingNotEnoughVertices, "SignedRingArea", fmt.Sprintf("%d vertices", n))
	}
	for k := 0; k <= maxRingAreaRetryExponent; k++ {
		mult := math.Pow(10, float64(3*k))
		var sum float64
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			xi, yi := flatCoords[i*stride]*mult, flatCoords[i*stride+1]*mult
			xj, yj := flatCoords[j*stride]*mult, flatCoords[j*stride+1]*mult
			sum += xi*yj - xj*yi
		}
		if sum != 0 {
			return (sum / 2) / (mult * mult), nil
		}
	}
	return 0, newError(ErrRingAreaTooSmall, "SignedRingArea", "")
}

// RingOrientationOf reports the winding direction of a single ring, derived
// from the sign of its signed area (negative is clockwise).
func RingOrientationOf(flatCoords []float64, stride int) (RingOrientation, error) {
	area, err := SignedRingArea(flatCoords, stride)
	if err != nil {
		return RingOrientationUndefined, err
	}
	if area < 0 {
		return RingOrientationClockwise, nil
	}
	return RingOrientationCounterClockwise, nil
}

// IsClosedRing reports whether the ring's first and last vertices compare
// equal in every ordinate of stride, and the ring has at least 4 vertices.
func IsClosedRing(flatCoords []float64, stride int) bool {
	n := ringVertexCount(flatCoords, stride)
	if n < 4 {
		return false
	}
	last := (n - 1) * stride
	for i := 0; i < stride; i++ {
		if flatCoords[i] != flatCoords[last+i] {
			return false
		}
	}
	return true
}

// ForceClosedRing returns flatCoords, appending a copy of its first vertex
// when the ring isn't already closed.
func ForceClosedRing(flatCoords []float64, stride int) []float64 {
	if IsClosedRing(flatCoords, stride) {
		return flatCoords
	}
	closed := make([]float64, len(flatCoords)+stride)
	copy(closed, flatCoords)
	copy(closed[len(flatCoords):], flatCoords[:stride])
	return closed
}

func reverseRing(flatCoords []float64, stride int) []float64 {
	n := ringVertexCount(flatCoords, stride)
	reversed := make([]float64, len(flatCoords))
	for i := 0; i < n; i++ {
		copy(reversed[i*stride:(i+1)*stride], flatCoords[(n-1-i)*stride:(n-i)*stride])
	}
	return reversed
}

// PolygonOrientation reports the orientation of rings[0] (the outer ring)
// if, and only if, every inner ring winds the opposite way. An empty ring
// set, or one where orientations don't alternate outer-vs-inner, returns
// RingOrientationUndefined.
func PolygonOrientation(rings [][]float64, stride int) RingOrientation {
	if len(rings) == 0 {
		return RingOrientationUndefined
	}
	outer, err := RingOrientationOf(rings[0], stride)
	if err != nil {
		return RingOrientationUndefined
	}
	for _, inner := range rings[1:] {
		o, err := RingOrientationOf(inner, stride)
		if err != nil || o == outer {
			return RingOrientationUndefined
		}
	}
	return outer
}

// IsClockwise reports whether rings already satisfy the
// outer-clockwise/inner-counterclockwise convention.
func IsClockwise(rings [][]float64, stride int) bool {
	return PolygonOrientation(rings, stride) == RingOrientationClockwise
}

// IsCounterClockwise reports whether rings already satisfy the
// outer-counterclockwise/inner-clockwise convention.
func IsCounterClockwise(rings [][]float64, stride int) bool {
	return PolygonOrientation(rings, stride) == RingOrientationCounterClockwise
}

func forcePolygonOrientation(rings [][]float64, stride int, outer RingOrientation) ([][]float64, error) {
	inner := RingOrientationCounterClockwise
	if outer == RingOrientationCounterClockwise {
		inner = RingOrientationClockwise
	}
	result := make([][]float64, len(rings))
	for i, ring := range rings {
		want := inner
		if i == 0 {
			want = outer
		}
		o, err := RingOrientationOf(ring, stride)
		if err != nil {
			return nil, err
		}
		if o == want {
			result[i] = ring
		} else {
			result[i] = reverseRing(ring, stride)
		}
	}
	return result, nil
}

// ForceClockwise returns rings reoriented so the outer ring winds clockwise
// and every inner ring winds counterclockwise.
func ForceClockwise(rings [][]float64, stride int) ([][]float64, error) {
	return forcePolygonOrientation(rings, stride, RingOrientationClockwise)
}

// ForceCounterClockwise returns rings reoriented so the outer ring winds
// counterclockwise and every inner ring winds clockwise.
func ForceCounterClockwise(rings [][]float64, stride int) ([][]float64, error) {
	return forcePolygonOrientation(rings, stride, RingOrientationCounterClockwise)
}

// ForceClosedRings closes every ring in rings that isn't already closed.
func ForceClosedRings(rings [][]float64, stride int) [][]float64 {
	result := make([][]float64, len(rings))
	for i, ring := range rings {
		result[i] = ForceClosedRing(ring, stride)
	}
	return result
}
