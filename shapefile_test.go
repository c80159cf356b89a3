package shapefile

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// writeTestShapefile builds a two-record point shapefile with a Writer and
// returns its three companion files' bytes, keyed by extension.
func writeTestShapefile(t *testing.T) map[string][]byte {
	t.Helper()

	catalog := NewCatalog(false)
	_, err := catalog.AddField(FieldSpec{Name: "NAME", Type: 'C', Length: 20})
	require.NoError(t, err)
	_, err = catalog.AddField(FieldSpec{Name: "POP", Type: 'N', Length: 12, Decimals: 0})
	require.NoError(t, err)

	var shp, shx, dbf seekBuffer
	sink := WriterSink{SHP: &shp, SHX: &shx, DBF: &dbf}

	w, err := NewWriter(sink, ShapeTypePoint, catalog, nil)
	require.NoError(t, err)

	err = w.WriteRecord(map[string]any{"NAME": "Geneva", "POP": 203856.0}, geom.NewPointFlat(geom.XY, []float64{6.1432, 46.2044}))
	require.NoError(t, err)
	err = w.WriteRecord(map[string]any{"NAME": "Lausanne", "POP": 140202.0}, geom.NewPointFlat(geom.XY, []float64{6.6323, 46.5197}))
	require.NoError(t, err)

	require.NoError(t, w.Close())

	checksum, err := w.Checksum()
	require.NoError(t, err)
	assert.NotZero(t, checksum)

	return map[string][]byte{
		".shp": shp.Bytes(),
		".shx": shx.Bytes(),
		".dbf": dbf.Bytes(),
	}
}

func TestWriterReadFSRoundtrip(t *testing.T) {
	files := writeTestShapefile(t)

	fsys := fstest.MapFS{
		"cities.shp": {Data: files[".shp"]},
		"cities.shx": {Data: files[".shx"]},
		"cities.dbf": {Data: files[".dbf"]},
	}

	sf, err := ReadFS(fsys, "cities", nil)
	require.NoError(t, err)

	assert.Equal(t, ShapeTypePoint, sf.SHP.ShapeType)
	assert.Equal(t, 2, sf.NumRecords())

	fields, g := sf.Record(0)
	assert.Equal(t, "Geneva", fields["NAME"])
	assert.Equal(t, 203856.0, fields["POP"])
	assert.Equal(t, geom.NewPointFlat(geom.XY, []float64{6.1432, 46.2044}), g)

	fields, _ = sf.Record(1)
	assert.Equal(t, "Lausanne", fields["NAME"])
}

func TestWriterReadZipReaderRoundtrip(t *testing.T) {
	files := writeTestShapefile(t)

	var zipBuf bytes.Buffer
	zw := zip.NewWriter(&zipBuf)
	for ext, data := range files {
		w, err := zw.Create("cities" + ext)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	zr, err := zip.NewReader(bytes.NewReader(zipBuf.Bytes()), int64(zipBuf.Len()))
	require.NoError(t, err)

	sf, err := ReadZipReader(zr, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sf.NumRecords())
}

func TestReaderStreamsSameRecordsAsReadFS(t *testing.T) {
	files := writeTestShapefile(t)

	source := ReaderSource{
		SHP:     bytes.NewReader(files[".shp"]),
		SHX:     bytes.NewReader(files[".shx"]),
		DBF:     bytes.NewReader(files[".dbf"]),
		SHPSize: int64(len(files[".shp"])),
		SHXSize: int64(len(files[".shx"])),
		DBFSize: int64(len(files[".dbf"])),
	}
	reader, err := NewReader(source, nil)
	require.NoError(t, err)
	defer reader.Close()

	record, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "Geneva", record.Fields["NAME"])
	assert.Equal(t, geom.NewPointFlat(geom.XY, []float64{6.1432, 46.2044}), record.Geom)

	record, err = reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "Lausanne", record.Fields["NAME"])

	_, err = reader.Next()
	assert.ErrorIs(t, err, io.EOF)
}
