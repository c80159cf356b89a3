package shapefile

import (
	"errors"
	"fmt"
)

// An ErrorKind identifies one entry of the shapefile error taxonomy. It is a
// flat enumeration: every failure the package can produce maps to exactly
// one Kind, with any further context carried in Error.Detail.
type ErrorKind int

// Error kinds.
const (
	ErrFileMissing ErrorKind = iota + 1
	ErrFileProtected
	ErrInvalidStreamResource
	ErrOpenFailed
	ErrReadFailed
	ErrWriteFailed

	ErrShapeTypeNotSupported
	ErrShapeTypeNotSet
	ErrShapeTypeAlreadySet
	ErrGeometryTypeNotCompatible
	ErrBoundingBoxMismatched
	ErrFileAlreadyInitialized
	ErrWrongRecordShapeType

	ErrDBFNotValid
	ErrDBFMismatchedFile
	ErrDBFEOFReached
	ErrMaxFieldCountReached
	ErrFieldNameConflict
	ErrFieldTypeNotValid
	ErrFieldSizeNotValid
	ErrFieldDecimalsNotValid
	ErrCharsetConversion

	ErrDBTEOFReached

	ErrGeometryNotEmpty
	ErrCoordValueNotValid
	ErrMismatchedDimensions
	ErrMismatchedBoundingBox
	ErrMissingField
	ErrPointNotValid
	ErrPolygonOpenRing
	ErrPolygonWrongOrientation
	ErrRingAreaTooSmall
	ErrRingNotEnoughVertices

	ErrRecordNotFound
	ErrFieldNotFound
	ErrGeometryTypeNotValid
	ErrGeometryIndexNotValid
	ErrArrayNotValid
	ErrWKTNotValid
	ErrGeoJSONNotValid
	ErrNumericValueOverflow
	ErrRandomAccessUnavailable
)

var errorKindStrings = map[ErrorKind]string{
	ErrFileMissing:               "file missing",
	ErrFileProtected:             "file exists but protected",
	ErrInvalidStreamResource:     "invalid stream resource",
	ErrOpenFailed:                "open failed",
	ErrReadFailed:                "read failed",
	ErrWriteFailed:               "write failed",
	ErrShapeTypeNotSupported:     "shape type not supported",
	ErrShapeTypeNotSet:           "shape type not set",
	ErrShapeTypeAlreadySet:       "shape type already set",
	ErrGeometryTypeNotCompatible: "geometry type not compatible",
	ErrBoundingBoxMismatched:     "bounding box mismatched",
	ErrFileAlreadyInitialized:    "file already initialized",
	ErrWrongRecordShapeType:      "wrong record shape type",
	ErrDBFNotValid:               "file not valid dBase",
	ErrDBFMismatchedFile:         "mismatched file",
	ErrDBFEOFReached:             "EOF reached",
	ErrMaxFieldCountReached:      "max field count reached",
	ErrFieldNameConflict:         "field name conflict",
	ErrFieldTypeNotValid:         "field type not valid",
	ErrFieldSizeNotValid:         "field size not valid",
	ErrFieldDecimalsNotValid:     "field decimals not valid",
	ErrCharsetConversion:         "charset conversion error",
	ErrDBTEOFReached:             "DBT EOF reached",
	ErrGeometryNotEmpty:          "geometry not empty",
	ErrCoordValueNotValid:        "coordinate value not valid",
	ErrMismatchedDimensions:      "mismatched dimensions",
	ErrMismatchedBoundingBox:     "mismatched bounding box",
	ErrMissingField:              "missing field",
	ErrPointNotValid:             "point not valid",
	ErrPolygonOpenRing:           "polygon open ring",
	ErrPolygonWrongOrientation:   "polygon wrong orientation",
	ErrRingAreaTooSmall:          "ring area too small",
	ErrRingNotEnoughVertices:     "ring does not have enough vertices",
	ErrRecordNotFound:            "record not found",
	ErrFieldNotFound:             "field not found",
	ErrGeometryTypeNotValid:      "geometry type not valid",
	ErrGeometryIndexNotValid:     "geometry index not valid",
	ErrArrayNotValid:             "array not valid",
	ErrWKTNotValid:               "WKT not valid",
	ErrGeoJSONNotValid:           "GeoJSON not valid",
	ErrNumericValueOverflow:      "numeric value overflow",
	ErrRandomAccessUnavailable:   "random access unavailable",
}

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	if s, ok := errorKindStrings[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// An Error is the single error type returned from every public entry point
// in this package. Op names the failing operation, Path (when relevant)
// names the offending file, and Detail carries free-form context. Err, when
// set, is the underlying cause and is reachable through errors.Unwrap.
type Error struct {
	Kind   ErrorKind
	Op     string
	Path   string
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var s string
	switch {
	case e.Op != "" && e.Path != "":
		s = fmt.Sprintf("%s: %s: %s", e.Op, e.Path, e.Kind)
	case e.Op != "":
		s = fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		s = e.Kind.String()
	}
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns e.Err, allowing errors.Is/errors.As to see through an
// *Error to its cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, op, detail string) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail}
}

func newPathError(kind ErrorKind, op, path, detail string) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Detail: detail}
}

func wrapError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err is, or wraps, a shapefile *Error of the given kind.
func Is(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
