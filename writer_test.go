package shapefile

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestWriterMemoFieldRoundtrip(t *testing.T) {
	catalog := NewCatalog(false)
	_, err := catalog.AddField(FieldSpec{Name: "NAME", Type: 'C', Length: 20})
	require.NoError(t, err)
	_, err = catalog.AddField(FieldSpec{Name: "NOTES", Type: 'M', Length: 10})
	require.NoError(t, err)

	var shp, shx, dbf, dbt seekBuffer
	sink := WriterSink{SHP: &shp, SHX: &shx, DBF: &dbf, DBT: &dbt}

	w, err := NewWriter(sink, ShapeTypePoint, catalog, nil)
	require.NoError(t, err)

	longNote := "a memo long enough to span more than one 512-byte block: " +
		string(bytes.Repeat([]byte("x"), 600))

	err = w.WriteRecord(
		map[string]any{"NAME": "Geneva", "NOTES": longNote},
		geom.NewPointFlat(geom.XY, []float64{6.1432, 46.2044}),
	)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	dbtReader, err := ReadDBT(bytes.NewReader(dbt.Bytes()), int64(len(dbt.Bytes())))
	require.NoError(t, err)

	charset, err := NewCharset("")
	require.NoError(t, err)

	dbfFile, err := ReadDBF(bytes.NewReader(dbf.Bytes()), int64(len(dbf.Bytes())), &ReadDBFOptions{
		Charset: charset,
		DBT:     dbtReader,
	})
	require.NoError(t, err)

	fields := dbfFile.Record(0)
	memo, ok := fields["NOTES"].(DBFMemo)
	require.True(t, ok)
	assert.Equal(t, longNote, memo.Text)
}

func TestWriterMemoFieldNilStaysBlank(t *testing.T) {
	catalog := NewCatalog(false)
	_, err := catalog.AddField(FieldSpec{Name: "NAME", Type: 'C', Length: 20})
	require.NoError(t, err)
	_, err = catalog.AddField(FieldSpec{Name: "NOTES", Type: 'M', Length: 10})
	require.NoError(t, err)

	var shp, shx, dbf, dbt seekBuffer
	sink := WriterSink{SHP: &shp, SHX: &shx, DBF: &dbf, DBT: &dbt}

	w, err := NewWriter(sink, ShapeTypePoint, catalog, nil)
	require.NoError(t, err)
	err = w.WriteRecord(
		map[string]any{"NAME": "Geneva"},
		geom.NewPointFlat(geom.XY, []float64{6.1432, 46.2044}),
	)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	dbtReader, err := ReadDBT(bytes.NewReader(dbt.Bytes()), int64(len(dbt.Bytes())))
	require.NoError(t, err)

	charset, err := NewCharset("")
	require.NoError(t, err)
	dbfFile, err := ReadDBF(bytes.NewReader(dbf.Bytes()), int64(len(dbf.Bytes())), &ReadDBFOptions{Charset: charset, DBT: dbtReader})
	require.NoError(t, err)

	fields := dbfFile.Record(0)
	memo, ok := fields["NOTES"].(DBFMemo)
	require.True(t, ok)
	assert.Equal(t, DBFMemo{}, memo)
}

func TestWriterFlushIntervalBackfillsHeadersMidStream(t *testing.T) {
	catalog := NewCatalog(false)
	_, err := catalog.AddField(FieldSpec{Name: "NAME", Type: 'C', Length: 20})
	require.NoError(t, err)

	var shp, shx, dbf seekBuffer
	sink := WriterSink{SHP: &shp, SHX: &shx, DBF: &dbf}
	w, err := NewWriter(sink, ShapeTypePoint, catalog, &WriterOptions{FlushInterval: 2})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		err = w.WriteRecord(map[string]any{"NAME": "a"}, geom.NewPointFlat(geom.XY, []float64{float64(i), float64(i)}))
		require.NoError(t, err)
	}

	// Without closing, the on-disk DBF header should already report two
	// records: flushBuffer ran automatically at the FlushInterval boundary.
	header, err := ParseDBFHeader(dbf.Bytes()[:dbfHeaderLength])
	require.NoError(t, err)
	assert.Equal(t, 2, header.Records)

	require.NoError(t, w.Close())
}

func TestWriterSetCustomBoundingBox(t *testing.T) {
	var shp, shx, dbf seekBuffer
	sink := WriterSink{SHP: &shp, SHX: &shx, DBF: &dbf}
	w, err := NewWriter(sink, ShapeTypePoint, nil, nil)
	require.NoError(t, err)

	custom := NewBounds(geom.XY)
	custom.ExtendXY(-180, -90)
	custom.ExtendXY(180, 90)
	w.SetCustomBoundingBox(custom)

	require.NoError(t, w.WriteRecord(nil, geom.NewPointFlat(geom.XY, []float64{1, 2})))
	require.NoError(t, w.Close())

	_, _, extent, err := decodeSHxHeaderExtent(shp.Bytes()[:headerSize])
	require.NoError(t, err)
	assert.Equal(t, -180.0, extent[0])
	assert.Equal(t, 180.0, extent[2])
}

func TestOpenWriterAppendExistingContinuesRecordNumbering(t *testing.T) {
	dir := t.TempDir()
	base := dir + "/cities"

	catalog := NewCatalog(false)
	_, err := catalog.AddField(FieldSpec{Name: "NAME", Type: 'C', Length: 20})
	require.NoError(t, err)

	w, err := OpenWriter(base, ShapeTypePoint, catalog, PreserveExisting, nil)
	require.NoError(t, err)
	require.NoError(t, w.WriteRecord(map[string]any{"NAME": "Geneva"}, geom.NewPointFlat(geom.XY, []float64{6.1432, 46.2044})))
	require.NoError(t, w.WriteRecord(map[string]any{"NAME": "Lausanne"}, geom.NewPointFlat(geom.XY, []float64{6.6323, 46.5197})))
	require.NoError(t, w.Close())

	appended, err := OpenWriter(base, ShapeTypeNull, nil, AppendExisting, nil)
	require.NoError(t, err)
	require.NoError(t, appended.WriteRecord(map[string]any{"NAME": "Zurich"}, geom.NewPointFlat(geom.XY, []float64{8.5417, 47.3769})))
	require.NoError(t, appended.Close())

	sf, err := ReadFS(os.DirFS(dir), "cities", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, sf.NumRecords())
	fields, g := sf.Record(2)
	assert.Equal(t, "Zurich", fields["NAME"])
	assert.Equal(t, geom.NewPointFlat(geom.XY, []float64{8.5417, 47.3769}), g)
}

func TestWriterRejectsUnsupportedShapeType(t *testing.T) {
	var shp, shx, dbf seekBuffer
	sink := WriterSink{SHP: &shp, SHX: &shx, DBF: &dbf}
	_, err := NewWriter(sink, ShapeTypeMultiPatch, nil, nil)
	require.Error(t, err)
	assert.True(t, Is(err, ErrGeometryTypeNotValid))
}

func TestWriterWriteRecordAfterCloseFails(t *testing.T) {
	var shp, shx, dbf seekBuffer
	sink := WriterSink{SHP: &shp, SHX: &shx, DBF: &dbf}
	w, err := NewWriter(sink, ShapeTypePoint, nil, nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = w.WriteRecord(nil, geom.NewPointFlat(geom.XY, []float64{0, 0}))
	require.Error(t, err)
	assert.True(t, Is(err, ErrFileAlreadyInitialized))
}

func TestWriterChecksumBeforeCloseFails(t *testing.T) {
	var shp, shx, dbf seekBuffer
	sink := WriterSink{SHP: &shp, SHX: &shx, DBF: &dbf}
	w, err := NewWriter(sink, ShapeTypePoint, nil, nil)
	require.NoError(t, err)

	_, err = w.Checksum()
	assert.Error(t, err)
}
