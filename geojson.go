package shapefile

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// GeomToGeoJSON renders g as a GeoJSON geometry object. Polygon and
// MultiPolygon rings are reoriented from the Shapefile convention (outer
// clockwise) to the RFC 7946 convention (outer counterclockwise) first.
func GeomToGeoJSON(g geom.T) (*geojson.Geometry, error) {
	gg, err := geojson.Encode(reversePolygonRingOrientation(g))
	if err != nil {
		return nil, wrapError(ErrGeoJSONNotValid, "GeomToGeoJSON", err)
	}
	return gg, nil
}

// GeomFromGeoJSON parses data as a GeoJSON geometry object. Polygon and
// MultiPolygon rings are reoriented from the RFC 7946 convention back to
// the Shapefile convention (outer clockwise).
func GeomFromGeoJSON(data []byte) (geom.T, error) {
	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, wrapError(ErrGeoJSONNotValid, "GeomFromGeoJSON", err)
	}
	return reversePolygonRingOrientation(g), nil
}

// A Feature is one record rendered as a GeoJSON Feature: its geometry plus
// its attribute fields as properties.
type Feature struct {
	Type       string            `json:"type"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties map[string]any    `json:"properties"`
}

// RecordToFeature renders record as a GeoJSON Feature.
func RecordToFeature(record *Record) (*Feature, error) {
	var g *geojson.Geometry
	if record.Geom != nil {
		var err error
		g, err = GeomToGeoJSON(record.Geom)
		if err != nil {
			return nil, err
		}
	}
	return &Feature{
		Type:       "Feature",
		Geometry:   g,
		Properties: record.Fields,
	}, nil
}

// A FeatureCollection is a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
}

// RecordsToFeatureCollection renders records as a GeoJSON
// FeatureCollection.
func RecordsToFeatureCollection(records []*Record) (*FeatureCollection, error) {
	features := make([]*Feature, 0, len(records))
	for _, record := range records {
		feature, err := RecordToFeature(record)
		if err != nil {
			return nil, err
		}
		features = append(features, feature)
	}
	return &FeatureCollection{Type: "FeatureCollection", Features: features}, nil
}
