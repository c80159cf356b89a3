package shapefile

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func newTestReaderSource(t *testing.T) ReaderSource {
	t.Helper()
	catalog := NewCatalog(false)
	_, err := catalog.AddField(FieldSpec{Name: "NAME", Type: 'C', Length: 20})
	require.NoError(t, err)

	var shp, shx, dbf seekBuffer
	w, err := NewWriter(WriterSink{SHP: &shp, SHX: &shx, DBF: &dbf}, ShapeTypePoint, catalog, nil)
	require.NoError(t, err)
	require.NoError(t, w.WriteRecord(map[string]any{"NAME": "Geneva"}, geom.NewPointFlat(geom.XY, []float64{1, 1})))
	require.NoError(t, w.WriteRecord(map[string]any{"NAME": "Lausanne"}, geom.NewPointFlat(geom.XY, []float64{2, 2})))
	require.NoError(t, w.WriteRecord(map[string]any{"NAME": "Zurich"}, geom.NewPointFlat(geom.XY, []float64{3, 3})))
	require.NoError(t, w.Close())

	return ReaderSource{
		SHP: bytes.NewReader(shp.Bytes()), SHPSize: int64(len(shp.Bytes())),
		SHX: bytes.NewReader(shx.Bytes()), SHXSize: int64(len(shx.Bytes())),
		DBF: bytes.NewReader(dbf.Bytes()), DBFSize: int64(len(dbf.Bytes())),
	}
}

func TestReaderIteratorValidKeyCurrent(t *testing.T) {
	r, err := NewReader(newTestReaderSource(t), nil)
	require.NoError(t, err)

	assert.False(t, r.Valid())
	assert.Zero(t, r.Key())
	assert.Nil(t, r.Current())

	record, err := r.Next()
	require.NoError(t, err)
	assert.True(t, r.Valid())
	assert.Equal(t, 1, r.Key())
	assert.Same(t, record, r.Current())

	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.False(t, r.Valid())
}

func TestReaderRewind(t *testing.T) {
	r, err := NewReader(newTestReaderSource(t), nil)
	require.NoError(t, err)

	first, err := r.Next()
	require.NoError(t, err)

	require.NoError(t, r.Rewind())
	assert.False(t, r.Valid())

	again, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, first.Fields, again.Fields)
}

func TestReaderSetCurrentRecordRandomAccess(t *testing.T) {
	r, err := NewReader(newTestReaderSource(t), nil)
	require.NoError(t, err)

	require.NoError(t, r.SetCurrentRecord(3))
	record, err := r.GetCurrentRecord()
	require.NoError(t, err)
	assert.Equal(t, "Zurich", record.Fields["NAME"])
	assert.Equal(t, 3, r.Key())

	// Next continues after the record SetCurrentRecord positioned on.
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, r.SetCurrentRecord(1))
	record, err = r.GetCurrentRecord()
	require.NoError(t, err)
	assert.Equal(t, "Geneva", record.Fields["NAME"])

	next, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "Lausanne", next.Fields["NAME"])
}

func TestReaderSetCurrentRecordOutOfRange(t *testing.T) {
	r, err := NewReader(newTestReaderSource(t), nil)
	require.NoError(t, err)

	err = r.SetCurrentRecord(99)
	require.Error(t, err)
	assert.True(t, Is(err, ErrRecordNotFound))
}

func TestReaderSetCurrentRecordUnavailableWithoutSHX(t *testing.T) {
	source := newTestReaderSource(t)
	source.SHX = nil
	source.SHXSize = 0

	r, err := NewReader(source, nil)
	require.NoError(t, err)

	err = r.SetCurrentRecord(1)
	require.Error(t, err)
	assert.True(t, Is(err, ErrRandomAccessUnavailable))
}

func TestReaderIgnoreSHXDisablesRandomAccess(t *testing.T) {
	source := newTestReaderSource(t)
	r, err := NewReader(source, &ReadShapefileOptions{IgnoreSHX: true})
	require.NoError(t, err)

	err = r.SetCurrentRecord(1)
	require.Error(t, err)
	assert.True(t, Is(err, ErrRandomAccessUnavailable))
}

func TestReaderIgnoreDBFSkipsFields(t *testing.T) {
	source := newTestReaderSource(t)
	r, err := NewReader(source, &ReadShapefileOptions{IgnoreDBF: true})
	require.NoError(t, err)

	record, err := r.Next()
	require.NoError(t, err)
	assert.Nil(t, record.Fields)
	assert.NotNil(t, record.Geom)
}
