package shapefile

import (
	"math"

	"github.com/twpayne/go-geom"
)

// noDataEncoded is the exact value ESRI shapefiles use on disk to mark a
// missing M ordinate. Readers treat any value <= noDataThreshold as
// no-data; writers always emit exactly noDataEncoded, never a value merely
// below the threshold.
const (
	noDataEncoded   = -1e40
	noDataThreshold = -1e38
)

// IsNoData reports whether x is, per the ESRI convention, a no-data M value.
func IsNoData(x float64) bool {
	return x <= noDataThreshold
}

// A Measure is an M ordinate that may be absent. It is a distinguished
// variant, not a NaN: a Measure with NoData set carries no meaningful
// Value and is skipped by bounding-box aggregation and format converters
// that have no "no-data" representation of their own.
type Measure struct {
	Value  float64
	NoData bool
}

// NewMeasure builds a Measure from an on-wire (or in-memory) M value,
// recognizing the no-data sentinel.
func NewMeasure(x float64) Measure {
	if IsNoData(x) {
		return Measure{NoData: true}
	}
	return Measure{Value: x}
}

// Encode returns the on-wire representation of m, using the canonical
// noDataEncoded sentinel for a no-data measure.
func (m Measure) Encode() float64 {
	if m.NoData {
		return noDataEncoded
	}
	return m.Value
}

// Bounds aggregates a dataset's spatial and M/Z extent. Unlike geom.Bounds,
// it tracks M no-data separately so an all-no-data M range can be reported
// as empty rather than as a degenerate [+Inf, -Inf] span.
type Bounds struct {
	Layout                 geom.Layout
	MinX, MinY, MaxX, MaxY float64
	MinZ, MaxZ             float64
	MinM, MaxM             float64
	hasXY, hasZ, hasM      bool
}

// NewBounds returns an empty Bounds for the given layout, ready to be
// extended.
func NewBounds(layout geom.Layout) *Bounds {
	return &Bounds{
		Layout: layout,
		MinX:   math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1),
		MinZ: math.Inf(1), MaxZ: math.Inf(-1),
		MinM: math.Inf(1), MaxM: math.Inf(-1),
	}
}

// ExtendXY widens b to include (x, y).
func (b *Bounds) ExtendXY(x, y float64) {
	b.hasXY = true
	b.MinX, b.MaxX = math.Min(b.MinX, x), math.Max(b.MaxX, x)
	b.MinY, b.MaxY = math.Min(b.MinY, y), math.Max(b.MaxY, y)
}

// ExtendZ widens b to include z.
func (b *Bounds) ExtendZ(z float64) {
	b.hasZ = true
	b.MinZ, b.MaxZ = math.Min(b.MinZ, z), math.Max(b.MaxZ, z)
}

// ExtendM widens b to include m, ignoring a no-data measure.
func (b *Bounds) ExtendM(m Measure) {
	if m.NoData {
		return
	}
	b.hasM = true
	b.MinM, b.MaxM = math.Min(b.MinM, m.Value), math.Max(b.MaxM, m.Value)
}

// ExtendGeom widens b to include every coordinate of g.
func (b *Bounds) ExtendGeom(g geom.T) {
	layout := g.Layout()
	stride := layout.Stride()
	flat := g.FlatCoords()
	for i := 0; i+stride <= len(flat); i += stride {
		b.ExtendXY(flat[i], flat[i+1])
		if layout == geom.XYZ || layout == geom.XYZM {
			b.ExtendZ(flat[i+layout.ZIndex()])
		}
		if layout == geom.XYM || layout == geom.XYZM {
			b.ExtendM(NewMeasure(flat[i+layout.MIndex()]))
		}
	}
}

// HasM reports whether any M value seen so far was not no-data.
func (b *Bounds) HasM() bool { return b.hasM }

// HasZ reports whether any Z value has been seen.
func (b *Bounds) HasZ() bool { return b.hasZ }

// Empty reports whether b has never been extended.
func (b *Bounds) Empty() bool { return !b.hasXY }

// ToGeomBounds converts b to a *geom.Bounds in b.Layout, substituting the
// no-data sentinel for an M range that was never extended.
func (b *Bounds) ToGeomBounds() *geom.Bounds {
	gb := geom.NewBounds(b.Layout)
	switch b.Layout {
	case geom.XY:
		gb.Set(b.MinX, b.MinY, b.MaxX, b.MaxY)
	case geom.XYZ:
		gb.Set(b.MinX, b.MinY, b.MinZ, b.MaxX, b.MaxY, b.MaxZ)
	case geom.XYM:
		minM, maxM := b.minMOrNoData(), b.maxMOrNoData()
		gb.Set(b.MinX, b.MinY, minM, b.MaxX, b.MaxY, maxM)
	case geom.XYZM:
		minM, maxM := b.minMOrNoData(), b.maxMOrNoData()
		gb.Set(b.MinX, b.MinY, b.MinZ, minM, b.MaxX, b.MaxY, b.MaxZ, maxM)
	}
	return gb
}

// boundsFromHeader reconstructs an aggregate Bounds from a recovered
// .shp/.shx header's extent fields, for a Writer reopening an existing
// dataset in append mode. hasZ is derived from shapeType's layout alone:
// unlike M, Z has no no-data convention in this format, so a recovered Z
// extent is always trusted. hasM additionally requires that the recovered
// M extent is not entirely the no-data sentinel.
func boundsFromHeader(shapeType ShapeType, extent [8]float64) *Bounds {
	layout := layoutForShapeType(shapeType)
	b := NewBounds(layout)
	b.hasXY = true
	b.MinX, b.MinY, b.MaxX, b.MaxY = extent[0], extent[1], extent[2], extent[3]
	if layout == geom.XYZ || layout == geom.XYZM {
		b.hasZ = true
		b.MinZ, b.MaxZ = extent[4], extent[5]
	}
	if layout == geom.XYM || layout == geom.XYZM {
		minM, maxM := extent[6], extent[7]
		if !IsNoData(minM) || !IsNoData(maxM) {
			b.hasM = true
			b.MinM, b.MaxM = minM, maxM
		}
	}
	return b
}

func (b *Bounds) minMOrNoData() float64 {
	if !b.hasM {
		return noDataEncoded
	}
	return b.MinM
}

func (b *Bounds) maxMOrNoData() float64 {
	if !b.hasM {
		return noDataEncoded
	}
	return b.MaxM
}
