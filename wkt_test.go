package shapefile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestGeomToWKTFromWKTRoundtrip(t *testing.T) {
	g := geom.NewPointFlat(geom.XY, []float64{6.1432, 46.2044})
	s, err := GeomToWKT(g)
	require.NoError(t, err)
	assert.Equal(t, "POINT (6.1432 46.2044)", s)

	parsed, err := GeomFromWKT(s)
	require.NoError(t, err)
	assert.Equal(t, g, parsed)
}

func TestGeomFromWKTInvalid(t *testing.T) {
	_, err := GeomFromWKT("NOT WKT")
	require.Error(t, err)
	assert.True(t, Is(err, ErrWKTNotValid))
}

func TestRecordToWKTNilGeometry(t *testing.T) {
	s, err := RecordToWKT(&Record{Number: 1})
	require.NoError(t, err)
	assert.Equal(t, "", s)
}
