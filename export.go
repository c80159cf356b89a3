package shapefile

import (
	"encoding/binary"
	"errors"
	"reflect"
	"strings"

	"github.com/ettle/strcase"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// An Exporter copies a Record's fields and geometry into instances of a
// caller-supplied struct type, matching DBF field names against struct
// tags so callers can decode records directly into domain types instead of
// walking Record.Fields by hand.
type Exporter struct {
	fieldStruct map[string]string
	geomField   string
	t           reflect.Type
}

// NewExporter builds an Exporter for t, matching struct fields tagged
// `tag:"<snake_case field name>"` against fieldDescriptors, and the field
// tagged `tag:"geometry"` against a record's Geom.
func NewExporter(t reflect.Type, tag string, fieldDescriptors []*DBFFieldDescriptor) (*Exporter, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, errors.New("shapefile: NewExporter: type must be a non-nil struct type")
	}
	structTags := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tagName := strings.Split(field.Tag.Get(tag), ",")[0]
		structTags[tagName] = field.Name
	}
	fieldStruct := make(map[string]string, len(fieldDescriptors))
	for _, fieldDescriptor := range fieldDescriptors {
		if name, ok := structTags[strcase.ToSnake(fieldDescriptor.Name)]; ok {
			fieldStruct[fieldDescriptor.Name] = name
		}
	}
	return &Exporter{
		fieldStruct: fieldStruct,
		geomField:   structTags["geometry"],
		t:           t,
	}, nil
}

// Export copies record into a new instance of the Exporter's struct type,
// encoding the geometry as a geom.T, a *geojson.Geometry, WKT, or WKB,
// depending on the tagged field's type.
func (e *Exporter) Export(record *Record) any {
	values := reflect.New(e.t).Elem()
	for name, value := range record.Fields {
		structField, ok := e.fieldStruct[name]
		if !ok {
			continue
		}
		setExportedValue(values.FieldByName(structField), value)
	}
	if record.Geom != nil && e.geomField != "" {
		setGeomValue(values.FieldByName(e.geomField), record.Geom)
	}
	return values.Interface()
}

func setExportedValue(val reflect.Value, value any) {
	if !val.IsValid() {
		return
	}
	valType := val.Type()
	if valType.Kind() == reflect.Pointer {
		target := reflect.ValueOf(value)
		if target.IsValid() && target.CanConvert(valType.Elem()) {
			aux := reflect.New(valType.Elem())
			aux.Elem().Set(target.Convert(valType.Elem()))
			val.Set(aux)
		}
		return
	}
	target := reflect.ValueOf(value)
	if target.IsValid() && target.CanConvert(valType) {
		val.Set(target.Convert(valType))
	}
}

func setGeomValue(val reflect.Value, g geom.T) {
	if !val.IsValid() {
		return
	}
	valType := val.Type()
	elemType := valType
	pointer := valType.Kind() == reflect.Pointer
	if pointer {
		elemType = valType.Elem()
	}

	var encoded any
	switch {
	case elemType.ConvertibleTo(reflect.TypeOf((*geom.T)(nil)).Elem()):
		encoded = g
	case elemType.ConvertibleTo(reflect.TypeOf(geojson.Geometry{})):
		gg, err := geojson.Encode(g)
		if err != nil {
			return
		}
		encoded = *gg
	case elemType.Kind() == reflect.String:
		s, err := wkt.NewEncoder().Encode(g)
		if err != nil {
			return
		}
		encoded = s
	case elemType.ConvertibleTo(reflect.TypeOf([]byte(nil))):
		b, err := wkb.Marshal(g, binary.BigEndian)
		if err != nil {
			return
		}
		encoded = b
	default:
		return
	}

	target := reflect.ValueOf(encoded)
	if !target.CanConvert(elemType) {
		return
	}
	if pointer {
		aux := reflect.New(elemType)
		aux.Elem().Set(target.Convert(elemType))
		val.Set(aux)
	} else {
		val.Set(target.Convert(elemType))
	}
}
