package shapefile

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestWithLoggerAppliesToReader(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	catalog := NewCatalog(false)
	var shp, shx, dbf seekBuffer
	w, err := NewWriter(WriterSink{SHP: &shp, SHX: &shx, DBF: &dbf}, ShapeTypePoint, catalog, nil)
	require.NoError(t, err)
	require.NoError(t, w.WriteRecord(nil, geom.NewPointFlat(geom.XY, []float64{1, 2})))
	require.NoError(t, w.Close())

	source := ReaderSource{
		SHP: bytes.NewReader(shp.Bytes()), SHPSize: int64(len(shp.Bytes())),
		SHX: bytes.NewReader(shx.Bytes()), SHXSize: int64(len(shx.Bytes())),
		DBF: bytes.NewReader(dbf.Bytes()), DBFSize: int64(len(dbf.Bytes())),
	}
	_, err = NewReader(source, nil, WithLogger(logger))
	require.NoError(t, err)

	assert.Contains(t, logBuf.String(), "opened shapefile reader")
}

func TestWithLoggerIgnoresNil(t *testing.T) {
	cfg := newConfig()
	WithLogger(nil)(&cfg)
	assert.Equal(t, defaultLogger, cfg.logger)
}
