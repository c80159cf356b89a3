package shapefile

// FIXME document all exported types
// FIXME validate XYZ and XYZM code
// FIXME do more validation, especially against the length of the file
// FIXME use .shx indexes
// FIXME factor out ParseSHPRecord

import (
	"archive/zip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/twpayne/go-geom"
)

type SHPRecord struct {
	Number        int
	ContentLength int
	ShapeType     ShapeType
	Bounds        *geom.Bounds
	Geom          geom.T
}

// ReadSHPOptions bounds resource consumption while decoding a .shp stream
// and controls polygon-ring reconstruction.
type ReadSHPOptions struct {
	MaxParts      int
	MaxPoints     int
	MaxRecordSize int

	// PolygonOrientationAutosense groups polygon rings by contiguous
	// runs of identical winding instead of requiring the ESRI
	// clockwise-outer/counterclockwise-inner convention.
	PolygonOrientationAutosense bool
	// ForceMultipart always decodes polygon parts as *geom.MultiPolygon,
	// even when a part contains a single polygon.
	ForceMultipart bool
}

type SHP struct {
	SHxHeader
	Records []*SHPRecord
}

func ReadSHP(r io.Reader, fileLength int64, options *ReadSHPOptions) (*SHP, error) {
	header, err := ReadSHxHeader(r, fileLength)
	if err != nil {
		return nil, err
	}
	var records []*SHPRecord
RECORD:
	for recordNumber := 1; ; recordNumber++ {
		switch record, err := ReadSHPRecord(r, options); {
		case errors.Is(err, io.EOF):
			break RECORD
		case err != nil:
			return nil, fmt.Errorf("record %d: %w", recordNumber, err)
		case record.Number != recordNumber:
			return nil, fmt.Errorf("record %d: invalid record number", recordNumber)
		default:
			records = append(records, record)
		}
	}
	return &SHP{
		SHxHeader: *header,
		Records:   records,
	}, nil
}

func ReadSHPRecord(r io.Reader, options *ReadSHPOptions) (*SHPRecord, error) {
	recordHeaderData := make([]byte, 8)
	if err := readFull(r, recordHeaderData); err != nil {
		return nil, err
	}
	recordNumber := int(binary.BigEndian.Uint32(recordHeaderData[:4]))
	contentLength := 2 * int(binary.BigEndian.Uint32(recordHeaderData[4:8]))
	if contentLength < 4 {
		return nil, newError(ErrReadFailed, "ReadSHPRecord", "content length too short")
	}
	if options != nil && options.MaxRecordSize != 0 && contentLength > options.MaxRecordSize {
		return nil, newError(ErrReadFailed, "ReadSHPRecord", "content length too large")
	}

	recordData := make([]byte, contentLength)
	if err := readFull(r, recordData); err != nil {
		return nil, err
	}

	byteSliceReader := newByteSliceReader(recordData)

	shapeType := ShapeType(byteSliceReader.readUint32())
	expectedContentLength := 4

	if shapeType == ShapeTypeNull {
		if contentLength != expectedContentLength {
			return nil, newError(ErrReadFailed, "ReadSHPRecord", "invalid content length")
		}
		return &SHPRecord{
			Number:        recordNumber,
			ContentLength: contentLength,
			ShapeType:     ShapeTypeNull,
		}, nil
	}

	layout := geom.NoLayout
	switch shapeType {
	case ShapeTypeNull:
	case ShapeTypePoint, ShapeTypeMultiPoint, ShapeTypePolyLine, ShapeTypePolygon:
		layout = geom.XY
	case ShapeTypePointM, ShapeTypeMultiPointM, ShapeTypePolyLineM, ShapeTypePolygonM:
		layout = geom.XYM
	case ShapeTypePointZ, ShapeTypeMultiPointZ, ShapeTypePolyLineZ, ShapeTypePolygonZ:
		layout = geom.XYZM
	}

	switch shapeType {
	case ShapeTypePoint, ShapeTypePointM, ShapeTypePointZ:
		flatCoords := byteSliceReader.readFloat64s(layout.Stride())
		expectedContentLength += 8 * layout.Stride()
		if contentLength != expectedContentLength {
			return nil, newError(ErrReadFailed, "ReadSHPRecord", "invalid content length")
		}
		return &SHPRecord{
			Number:        recordNumber,
			ContentLength: contentLength,
			ShapeType:     shapeType,
			Geom:          geom.NewPointFlat(layout, flatCoords),
		}, nil
	}

	minX, minY := byteSliceReader.readFloat64Pair()
	maxX, maxY := byteSliceReader.readFloat64Pair()
	expectedContentLength += 8 * 4

	var numParts int
	switch shapeType {
	case ShapeTypePolyLine, ShapeTypePolyLineM, ShapeTypePolyLineZ:
		fallthrough
	case ShapeTypePolygon, ShapeTypePolygonM, ShapeTypePolygonZ:
		numParts = byteSliceReader.readUint32()
		if numParts == 0 {
			return nil, newError(ErrReadFailed, "ReadSHPRecord", "invalid number of parts")
		}
		if options != nil && options.MaxParts != 0 && numParts > options.MaxParts {
			return nil, newError(ErrReadFailed, "ReadSHPRecord", "too many parts")
		}
		expectedContentLength += 4 + 4*numParts
	}

	numPoints := byteSliceReader.readUint32()
	if options != nil && options.MaxPoints != 0 && numPoints > options.MaxPoints {
		return nil, newError(ErrReadFailed, "ReadSHPRecord", "too many points")
	}
	expectedContentLength += 4

	switch layout {
	case geom.XY:
		expectedContentLength += 8 * 2 * numPoints
	case geom.XYM:
		expectedContentLength += 8*2*numPoints + 8*2 + 8*numPoints
	case geom.XYZM:
		expectedContentLength += 8*2*numPoints + 8*2 + 8*numPoints + 8*2 + 8*numPoints
	}

	if contentLength != expectedContentLength {
		return nil, newError(ErrReadFailed, "ReadSHPRecord", "invalid content length")
	}

	var ends []int
	switch shapeType {
	case ShapeTypePolyLine, ShapeTypePolyLineM, ShapeTypePolyLineZ:
		fallthrough
	case ShapeTypePolygon, ShapeTypePolygonM, ShapeTypePolygonZ:
		ends = byteSliceReader.readEnds(layout, numParts, numPoints)
	}

	flatCoords := make([]float64, layout.Stride()*numPoints)
	byteSliceReader.readXYs(flatCoords, numPoints, layout)

	var bounds *geom.Bounds
	switch layout {
	case geom.XY:
		bounds = geom.NewBounds(geom.XY).Set(minX, minY, maxX, maxY)
	case geom.XYM:
		minM, maxM := byteSliceReader.readFloat64Pair()
		byteSliceReader.readOrdinates(flatCoords, numPoints, layout, layout.MIndex())
		bounds = geom.NewBounds(geom.XYM).Set(minX, minY, minM, maxX, maxY, maxM)
	case geom.XYZM:
		minZ, maxZ := byteSliceReader.readFloat64Pair()
		byteSliceReader.readOrdinates(flatCoords, numPoints, layout, layout.ZIndex())
		minM, maxM := byteSliceReader.readFloat64Pair()
		byteSliceReader.readOrdinates(flatCoords, numPoints, layout, layout.MIndex())
		bounds = geom.NewBounds(geom.XYZM).Set(minX, minY, minZ, minM, maxX, maxY, maxZ, maxM)
	}

	if err := byteSliceReader.Err(); err != nil {
		return nil, err
	}

	autosense, forceMultipart := false, false
	if options != nil {
		autosense, forceMultipart = options.PolygonOrientationAutosense, options.ForceMultipart
	}

	var g geom.T
	switch shapeType {
	case ShapeTypeMultiPoint, ShapeTypeMultiPointM, ShapeTypeMultiPointZ:
		g = geom.NewMultiPointFlat(layout, flatCoords)
	case ShapeTypePolyLine, ShapeTypePolyLineM, ShapeTypePolyLineZ:
		g = geom.NewMultiLineStringFlat(layout, flatCoords, ends)
	case ShapeTypePolygon, ShapeTypePolygonM, ShapeTypePolygonZ:
		var err error
		g, err = buildPolygonGeometry(layout, flatCoords, ends, autosense, forceMultipart)
		if err != nil {
			return nil, err
		}
	}

	return &SHPRecord{
		Number:        recordNumber,
		ContentLength: contentLength,
		ShapeType:     shapeType,
		Bounds:        bounds,
		Geom:          g,
	}, nil
}

// shapeTypeForGeom picks the on-wire ShapeType for g, given whether the
// enclosing dataset is Z- or M-enabled.
func shapeTypeForGeom(g geom.T, hasZ, hasM bool) (ShapeType, error) {
	const op = "shapeTypeForGeom"
	switch g.(type) {
	case *geom.Point:
		switch {
		case hasZ:
			return ShapeTypePointZ, nil
		case hasM:
			return ShapeTypePointM, nil
		default:
			return ShapeTypePoint, nil
		}
	case *geom.MultiPoint:
		switch {
		case hasZ:
			return ShapeTypeMultiPointZ, nil
		case hasM:
			return ShapeTypeMultiPointM, nil
		default:
			return ShapeTypeMultiPoint, nil
		}
	case *geom.LineString, *geom.MultiLineString:
		switch {
		case hasZ:
			return ShapeTypePolyLineZ, nil
		case hasM:
			return ShapeTypePolyLineM, nil
		default:
			return ShapeTypePolyLine, nil
		}
	case *geom.Polygon, *geom.MultiPolygon:
		switch {
		case hasZ:
			return ShapeTypePolygonZ, nil
		case hasM:
			return ShapeTypePolygonM, nil
		default:
			return ShapeTypePolygon, nil
		}
	default:
		return ShapeTypeNull, newError(ErrGeometryTypeNotValid, op, fmt.Sprintf("%T", g))
	}
}

// geomParts extracts g's flat coordinates and ring/line "ends" (part
// boundaries, in flat-coordinate-array units, ESRI convention) regardless
// of whether g is a single-part or multi-part geometry.
func geomParts(g geom.T) (layout geom.Layout, flatCoords []float64, ends []int, err error) {
	const op = "geomParts"
	switch t := g.(type) {
	case *geom.Point:
		return t.Layout(), t.FlatCoords(), nil, nil
	case *geom.MultiPoint:
		return t.Layout(), t.FlatCoords(), nil, nil
	case *geom.LineString:
		return t.Layout(), t.FlatCoords(), []int{len(t.FlatCoords())}, nil
	case *geom.MultiLineString:
		return t.Layout(), t.FlatCoords(), t.Ends(), nil
	case *geom.Polygon:
		layout = t.Layout()
		flatCoords, ends, err = normalizePolygonRings(layout.Stride(), t.FlatCoords(), t.Ends(), []int{len(t.Ends())})
		if err != nil {
			return geom.NoLayout, nil, nil, err
		}
		return layout, flatCoords, ends, nil
	case *geom.MultiPolygon:
		layout = t.Layout()
		rawFlat := t.FlatCoords()
		var rawEnds, ringCounts []int
		for i := 0; i < t.NumPolygons(); i++ {
			rawEnds = append(rawEnds, t.Endss()[i]...)
			ringCounts = append(ringCounts, len(t.Endss()[i]))
		}
		flatCoords, ends, err = normalizePolygonRings(layout.Stride(), rawFlat, rawEnds, ringCounts)
		if err != nil {
			return geom.NoLayout, nil, nil, err
		}
		return layout, flatCoords, ends, nil
	default:
		return geom.NoLayout, nil, nil, newError(ErrGeometryTypeNotValid, op, fmt.Sprintf("%T", g))
	}
}

// EncodeSHPRecord renders g as one .shp record body (the 8-byte record
// header plus shape-specific content), for shapeType, which must agree with
// g's concrete type and dimensionality.
func EncodeSHPRecord(recordNumber int, g geom.T, shapeType ShapeType) ([]byte, error) {
	const op = "EncodeSHPRecord"
	body := &byteSliceWriter{}
	body.writeUint32(uint32(shapeType))

	if shapeType == ShapeTypeNull {
		return finishSHPRecord(recordNumber, body), nil
	}

	if _, ok := g.(*geom.Point); ok {
		flatCoords := g.FlatCoords()
		for _, c := range flatCoords {
			body.writeFloat64(c)
		}
		return finishSHPRecord(recordNumber, body), nil
	}

	layout, flatCoords, ends, err := geomParts(g)
	if err != nil {
		return nil, err
	}
	stride := layout.Stride()
	numPoints := len(flatCoords) / stride

	b := NewBounds(layout)
	b.ExtendGeom(g)
	body.writeFloat64(b.MinX)
	body.writeFloat64(b.MinY)
	body.writeFloat64(b.MaxX)
	body.writeFloat64(b.MaxY)

	switch shapeType {
	case ShapeTypePolyLine, ShapeTypePolyLineM, ShapeTypePolyLineZ,
		ShapeTypePolygon, ShapeTypePolygonM, ShapeTypePolygonZ:
		body.writeUint32(uint32(len(ends)))
	}
	body.writeUint32(uint32(numPoints))

	switch shapeType {
	case ShapeTypePolyLine, ShapeTypePolyLineM, ShapeTypePolyLineZ,
		ShapeTypePolygon, ShapeTypePolygonM, ShapeTypePolygonZ:
		body.writeEnds(ends, layout)
	}

	body.writeXYs(flatCoords, numPoints, layout)

	switch layout {
	case geom.XYM:
		body.writeFloat64(b.MinM)
		body.writeFloat64(b.MaxM)
		body.writeOrdinates(flatCoords, numPoints, layout, layout.MIndex())
	case geom.XYZM:
		body.writeFloat64(b.MinZ)
		body.writeFloat64(b.MaxZ)
		body.writeOrdinates(flatCoords, numPoints, layout, layout.ZIndex())
		body.writeFloat64(b.MinM)
		body.writeFloat64(b.MaxM)
		body.writeOrdinates(flatCoords, numPoints, layout, layout.MIndex())
	}

	return finishSHPRecord(recordNumber, body), nil
}

func finishSHPRecord(recordNumber int, body *byteSliceWriter) []byte {
	content := body.Bytes()
	header := make([]byte, 8)
	binary.BigEndian.PutUint32(header[:4], uint32(recordNumber))
	binary.BigEndian.PutUint32(header[4:], uint32(len(content)/2))
	return append(header, content...)
}

func ReadSHPZipFile(zipFile *zip.File, options *ReadSHPOptions) (*SHP, error) {
	readCloser, err := zipFile.Open()
	if err != nil {
		return nil, err
	}
	defer readCloser.Close()
	return ReadSHP(readCloser, int64(zipFile.UncompressedSize64), options)
}

func (s *SHP) Record(i int) geom.T {
	return s.Records[i].Geom
}
