package shapefile

import "github.com/twpayne/go-geom"

// A Record is one shapefile feature: its attribute fields, keyed by DBF
// field name, and its geometry. A deleted DBF row or a Null-shape geometry
// surfaces as a nil Fields or nil Geom respectively, not as an error.
type Record struct {
	Number int
	Fields map[string]any
	Geom   geom.T
}
