package shapefile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestEncodeSHPRecordReadSHPRecordRoundtripPoint(t *testing.T) {
	g := geom.NewPointFlat(geom.XY, []float64{15.744476635247011, 47.56136608020768})
	body, err := EncodeSHPRecord(1, g, ShapeTypePoint)
	require.NoError(t, err)

	record, err := ReadSHPRecord(bytes.NewReader(body), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, record.Number)
	assert.Equal(t, ShapeTypePoint, record.ShapeType)
	assert.Equal(t, g, record.Geom)
}

func TestEncodeSHPRecordReadSHPRecordRoundtripPolygon(t *testing.T) {
	g := geom.NewPolygonFlat(geom.XY, []float64{
		0, 0,
		0, 10,
		10, 10,
		10, 0,
		0, 0,
	}, []int{10})

	body, err := EncodeSHPRecord(1, g, ShapeTypePolygon)
	require.NoError(t, err)

	record, err := ReadSHPRecord(bytes.NewReader(body), nil)
	require.NoError(t, err)
	assert.Equal(t, ShapeTypePolygon, record.ShapeType)
	assert.Equal(t, g.FlatCoords(), record.Geom.FlatCoords())
}

func TestEncodeSHPRecordNormalizesPolygonRings(t *testing.T) {
	// Counterclockwise-wound and missing its closing vertex: the wire
	// format requires a closed, clockwise outer ring, so EncodeSHPRecord
	// must fix both before packing.
	g := geom.NewPolygonFlat(geom.XY, []float64{
		0, 0,
		10, 0,
		10, 10,
		0, 10,
	}, []int{8})

	body, err := EncodeSHPRecord(1, g, ShapeTypePolygon)
	require.NoError(t, err)

	record, err := ReadSHPRecord(bytes.NewReader(body), nil)
	require.NoError(t, err)
	poly, ok := record.Geom.(*geom.Polygon)
	require.True(t, ok)
	assert.True(t, IsClosedRing(poly.FlatCoords(), 2))
	orientation, err := RingOrientationOf(poly.FlatCoords(), 2)
	require.NoError(t, err)
	assert.Equal(t, RingOrientationClockwise, orientation)
}

func TestEncodeSHPRecordNull(t *testing.T) {
	body, err := EncodeSHPRecord(1, nil, ShapeTypeNull)
	require.NoError(t, err)

	record, err := ReadSHPRecord(bytes.NewReader(body), nil)
	require.NoError(t, err)
	assert.Equal(t, ShapeTypeNull, record.ShapeType)
	assert.Nil(t, record.Geom)
}

func TestReadSHP(t *testing.T) {
	g := geom.NewPointFlat(geom.XY, []float64{1, 2})
	body, err := EncodeSHPRecord(1, g, ShapeTypePoint)
	require.NoError(t, err)

	bounds := NewBounds(geom.XY)
	bounds.ExtendGeom(g)

	var buf bytes.Buffer
	fileLength := int64(headerSize + len(body))
	buf.Write(EncodeSHxHeader(ShapeTypePoint, bounds, fileLength))
	buf.Write(body)

	shp, err := ReadSHP(bytes.NewReader(buf.Bytes()), fileLength, nil)
	require.NoError(t, err)
	assert.Equal(t, ShapeTypePoint, shp.ShapeType)
	require.Len(t, shp.Records, 1)
	assert.Equal(t, g, shp.Records[0].Geom)
}

func FuzzReadSHP(f *testing.F) {
	g := geom.NewPointFlat(geom.XY, []float64{1, 2})
	body, err := EncodeSHPRecord(1, g, ShapeTypePoint)
	require.NoError(f, err)

	bounds := NewBounds(geom.XY)
	bounds.ExtendGeom(g)

	var buf bytes.Buffer
	fileLength := int64(headerSize + len(body))
	buf.Write(EncodeSHxHeader(ShapeTypePoint, bounds, fileLength))
	buf.Write(body)
	f.Add(buf.Bytes())

	f.Fuzz(func(_ *testing.T, data []byte) {
		r := bytes.NewReader(data)
		_, _ = ReadSHP(r, int64(len(data)), nil)
	})
}
