package shapefile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestGeomToGeoJSONFromGeoJSONRoundtrip(t *testing.T) {
	g := geom.NewPointFlat(geom.XY, []float64{6.1432, 46.2044})
	gg, err := GeomToGeoJSON(g)
	require.NoError(t, err)

	data, err := json.Marshal(gg)
	require.NoError(t, err)

	parsed, err := GeomFromGeoJSON(data)
	require.NoError(t, err)
	assert.Equal(t, g, parsed)
}

func TestGeomToGeoJSONFromGeoJSONRoundtripPolygon(t *testing.T) {
	// Outer ring wound clockwise, the ESRI convention EncodeSHPRecord
	// expects; GeomToGeoJSON must flip it to RFC 7946's counterclockwise
	// before encoding, and GeomFromGeoJSON must flip it back.
	g := geom.NewPolygonFlat(geom.XY, esriClockwiseSquare, []int{len(esriClockwiseSquare)})

	gg, err := GeomToGeoJSON(g)
	require.NoError(t, err)
	data, err := json.Marshal(gg)
	require.NoError(t, err)

	parsed, err := GeomFromGeoJSON(data)
	require.NoError(t, err)
	assert.Equal(t, g, parsed)
}

func TestRecordToFeature(t *testing.T) {
	g := geom.NewPointFlat(geom.XY, []float64{6.1432, 46.2044})
	record := &Record{Number: 1, Fields: map[string]any{"NAME": "Geneva"}, Geom: g}

	feature, err := RecordToFeature(record)
	require.NoError(t, err)
	assert.Equal(t, "Feature", feature.Type)
	assert.Equal(t, "Geneva", feature.Properties["NAME"])
	require.NotNil(t, feature.Geometry)
}

func TestRecordsToFeatureCollection(t *testing.T) {
	records := []*Record{
		{Number: 1, Fields: map[string]any{"NAME": "Geneva"}, Geom: geom.NewPointFlat(geom.XY, []float64{6.1432, 46.2044})},
		{Number: 2, Fields: map[string]any{"NAME": "Lausanne"}},
	}
	fc, err := RecordsToFeatureCollection(records)
	require.NoError(t, err)
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Nil(t, fc.Features[1].Geometry)
}
