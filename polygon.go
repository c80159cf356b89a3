package shapefile

import "github.com/twpayne/go-geom"

// polygonGroup holds one reconstructed polygon's flat coordinates and ring
// boundaries, in the same (flatCoords, ends) shape geom.NewPolygonFlat
// expects.
type polygonGroup struct {
	flatCoords []float64
	ends       []int
}

// groupPolygonRings partitions a shapefile part's flat ring list — as
// decoded straight off the wire, where ends[i] is the flat-coordinate index
// one past the end of ring i — into polygons.
//
// With autosense off (the ESRI-standard interpretation), a clockwise ring
// starts a new polygon and every counterclockwise ring that follows is a
// hole belonging to it; the first ring must be clockwise.
//
// With autosense on, rings are grouped by contiguous runs of identical
// orientation instead, tolerating producers that don't follow the ESRI
// winding convention strictly.
func groupPolygonRings(layout geom.Layout, flatCoords []float64, ends []int, autosense bool) ([]polygonGroup, error) {
	stride := layout.Stride()
	rings := make([][]float64, len(ends))
	start := 0
	for i, end := range ends {
		rings[i] = flatCoords[start:end]
		start = end
	}

	orientations := make([]RingOrientation, len(rings))
	for i, ring := range rings {
		o, err := RingOrientationOf(ring, stride)
		if err != nil {
			return nil, err
		}
		orientations[i] = o
	}

	var groups []polygonGroup
	var curFlat []float64
	var curEnds []int
	flush := func() {
		if len(curEnds) == 0 {
			return
		}
		groups = append(groups, polygonGroup{flatCoords: curFlat, ends: curEnds})
		curFlat, curEnds = nil, nil
	}

	if autosense {
		var run RingOrientation
		for i, ring := range rings {
			if i == 0 || orientations[i] != run {
				flush()
				run = orientations[i]
			}
			curFlat = append(curFlat, ring...)
			curEnds = append(curEnds, len(curFlat))
		}
		flush()
		return groups, nil
	}

	if orientations[0] != RingOrientationClockwise {
		return nil, newError(ErrPolygonWrongOrientation, "groupPolygonRings", "outer ring is not clockwise")
	}
	for i, ring := range rings {
		if orientations[i] == RingOrientationClockwise {
			flush()
		}
		curFlat = append(curFlat, ring...)
		curEnds = append(curEnds, len(curFlat))
	}
	flush()
	return groups, nil
}

// buildPolygonGeometry reconstructs a single Polygon or MultiPolygon from a
// shapefile part, per forceMultipart: when false (the default), a part that
// groups into exactly one polygon is returned as *geom.Polygon; otherwise,
// or whenever grouping yields more than one polygon, a *geom.MultiPolygon
// is returned.
func buildPolygonGeometry(layout geom.Layout, flatCoords []float64, ends []int, autosense, forceMultipart bool) (geom.T, error) {
	groups, err := groupPolygonRings(layout, flatCoords, ends, autosense)
	if err != nil {
		return nil, err
	}
	if len(groups) == 1 && !forceMultipart {
		return geom.NewPolygonFlat(layout, groups[0].flatCoords, groups[0].ends), nil
	}
	var mpFlat []float64
	endss := make([][]int, len(groups))
	for i, g := range groups {
		offset := len(mpFlat)
		mpFlat = append(mpFlat, g.flatCoords...)
		adjusted := make([]int, len(g.ends))
		for j, e := range g.ends {
			adjusted[j] = offset + e
		}
		endss[i] = adjusted
	}
	return geom.NewMultiPolygonFlat(layout, mpFlat, endss), nil
}

// flattenPolygonRings extracts a polygon's rings as a flat list suitable
// for re-encoding onto the wire, in outer-ring-first order.
func flattenPolygonRings(p *geom.Polygon) ([]float64, []int) {
	return p.FlatCoords(), p.Ends()
}

// reversePolygonRingOrientation reverses the winding of every ring of a
// Polygon or MultiPolygon. Flipping every ring swaps the ESRI convention
// (outer clockwise, holes counterclockwise) for the RFC 7946 GeoJSON
// convention (outer counterclockwise, holes clockwise) and back again, so
// the same transform serves both directions. Other geometry types pass
// through unchanged.
func reversePolygonRingOrientation(g geom.T) geom.T {
	switch t := g.(type) {
	case *geom.Polygon:
		stride := t.Layout().Stride()
		rings := polygonRingSlices(t.FlatCoords(), t.Ends())
		for i, ring := range rings {
			rings[i] = reverseRing(ring, stride)
		}
		flatCoords, ends := joinRingSlices(rings)
		return geom.NewPolygonFlat(t.Layout(), flatCoords, ends)
	case *geom.MultiPolygon:
		stride := t.Layout().Stride()
		var rawEnds []int
		for i := 0; i < t.NumPolygons(); i++ {
			rawEnds = append(rawEnds, t.Endss()[i]...)
		}
		rings := polygonRingSlices(t.FlatCoords(), rawEnds)
		for i, ring := range rings {
			rings[i] = reverseRing(ring, stride)
		}
		flatCoords, ends := joinRingSlices(rings)
		endss := make([][]int, t.NumPolygons())
		start := 0
		for i := 0; i < t.NumPolygons(); i++ {
			count := len(t.Endss()[i])
			endss[i] = ends[start : start+count]
			start += count
		}
		return geom.NewMultiPolygonFlat(t.Layout(), flatCoords, endss)
	default:
		return g
	}
}

// polygonRingSlices splits flatCoords into per-ring slices using ends,
// where each end is an absolute flat-coordinate-array boundary (as
// produced by geom.Polygon.Ends / geom.MultiPolygon.Endss).
func polygonRingSlices(flatCoords []float64, ends []int) [][]float64 {
	rings := make([][]float64, len(ends))
	start := 0
	for i, end := range ends {
		rings[i] = flatCoords[start:end]
		start = end
	}
	return rings
}

// joinRingSlices reassembles rings produced by polygonRingSlices back into
// a flat coordinate array and absolute end boundaries.
func joinRingSlices(rings [][]float64) ([]float64, []int) {
	var flatCoords []float64
	ends := make([]int, len(rings))
	for i, ring := range rings {
		flatCoords = append(flatCoords, ring...)
		ends[i] = len(flatCoords)
	}
	return flatCoords, ends
}

// normalizePolygonRings closes every ring and reorients each polygon's
// rings to the ESRI convention (outer ring clockwise, holes
// counterclockwise) before a Polygon or MultiPolygon part is packed onto
// the wire. ringCounts gives the number of rings belonging to each
// successive polygon in order (a single entry, len(ends), for a plain
// Polygon).
func normalizePolygonRings(stride int, flatCoords []float64, ends []int, ringCounts []int) ([]float64, []int, error) {
	rings := polygonRingSlices(flatCoords, ends)
	rings = ForceClosedRings(rings, stride)

	start := 0
	for _, count := range ringCounts {
		oriented, err := ForceClockwise(rings[start:start+count], stride)
		if err != nil {
			return nil, nil, err
		}
		copy(rings[start:start+count], oriented)
		start += count
	}

	flatCoords, ends = joinRingSlices(rings)
	return flatCoords, ends, nil
}
