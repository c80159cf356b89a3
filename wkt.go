package shapefile

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// GeomToWKT renders g as Well-Known Text.
func GeomToWKT(g geom.T) (string, error) {
	s, err := wkt.NewEncoder().Encode(g)
	if err != nil {
		return "", wrapError(ErrWKTNotValid, "GeomToWKT", err)
	}
	return s, nil
}

// GeomFromWKT parses s as Well-Known Text.
func GeomFromWKT(s string) (geom.T, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, wrapError(ErrWKTNotValid, "GeomFromWKT", err)
	}
	return g, nil
}

// RecordToWKT renders record's geometry as Well-Known Text, or "" if it has
// none.
func RecordToWKT(record *Record) (string, error) {
	if record.Geom == nil {
		return "", nil
	}
	return GeomToWKT(record.Geom)
}
