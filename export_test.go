package shapefile

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

type exportedCity struct {
	Name     string `shp:"name"`
	Pop      int    `shp:"pop"`
	Geometry string `shp:"geometry"`
}

func TestExporterExport(t *testing.T) {
	fieldDescriptors := []*DBFFieldDescriptor{
		{Name: "NAME", Type: 'C', Length: 20},
		{Name: "POP", Type: 'N', Length: 12},
	}
	exporter, err := NewExporter(reflect.TypeOf(exportedCity{}), "shp", fieldDescriptors)
	require.NoError(t, err)

	record := &Record{
		Number: 1,
		Fields: map[string]any{"NAME": "Geneva", "POP": 203856.0},
		Geom:   geom.NewPointFlat(geom.XY, []float64{6.1432, 46.2044}),
	}

	exported := exporter.Export(record).(exportedCity)
	assert.Equal(t, "Geneva", exported.Name)
	assert.Equal(t, 203856, exported.Pop)
	assert.Equal(t, "POINT (6.1432 46.2044)", exported.Geometry)
}

func TestExporterExportNilGeometry(t *testing.T) {
	fieldDescriptors := []*DBFFieldDescriptor{{Name: "NAME", Type: 'C', Length: 20}}
	exporter, err := NewExporter(reflect.TypeOf(exportedCity{}), "shp", fieldDescriptors)
	require.NoError(t, err)

	record := &Record{Number: 1, Fields: map[string]any{"NAME": "Geneva"}}
	exported := exporter.Export(record).(exportedCity)
	assert.Equal(t, "Geneva", exported.Name)
	assert.Equal(t, "", exported.Geometry)
}

func TestNewExporterRejectsNonStruct(t *testing.T) {
	_, err := NewExporter(reflect.TypeOf(0), "shp", nil)
	require.Error(t, err)
}
