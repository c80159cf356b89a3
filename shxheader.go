package shapefile

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// readSHxHeader and parseSHxHeader are thin unexported aliases; the
// canonical parsing logic lives in ReadSHxHeader and ParseSHxHeader in
// shapefile.go.
func readSHxHeader(r io.Reader, fileLength int64) (*SHxHeader, error) {
	return ReadSHxHeader(r, fileLength)
}

func parseSHxHeader(data []byte, fileLength int64) (*SHxHeader, error) {
	return ParseSHxHeader(data, fileLength)
}

// EncodeSHxHeader renders a 100-byte .shp/.shx header for shapeType and the
// given aggregated bounds, with fileLength expressed in bytes (converted
// internally to 16-bit words). bounds may be nil or empty, in which case
// the no-data sentinel is written for every extent field.
func EncodeSHxHeader(shapeType ShapeType, bounds *Bounds, fileLength int64) []byte {
	data := make([]byte, headerSize)
	binary.BigEndian.PutUint32(data[0:4], fileCode)
	binary.BigEndian.PutUint32(data[24:28], uint32(fileLength/2))
	binary.LittleEndian.PutUint32(data[28:32], version)
	binary.LittleEndian.PutUint32(data[32:36], uint32(shapeType))

	minX, minY, maxX, maxY := noDataEncoded, noDataEncoded, noDataEncoded, noDataEncoded
	minZ, maxZ, minM, maxM := noDataEncoded, noDataEncoded, noDataEncoded, noDataEncoded
	if bounds != nil && !bounds.Empty() {
		minX, minY, maxX, maxY = bounds.MinX, bounds.MinY, bounds.MaxX, bounds.MaxY
		if bounds.HasZ() {
			minZ, maxZ = bounds.MinZ, bounds.MaxZ
		}
		if bounds.HasM() {
			minM, maxM = bounds.MinM, bounds.MaxM
		}
	}
	binary.LittleEndian.PutUint64(data[36:44], math.Float64bits(minX))
	binary.LittleEndian.PutUint64(data[44:52], math.Float64bits(minY))
	binary.LittleEndian.PutUint64(data[52:60], math.Float64bits(maxX))
	binary.LittleEndian.PutUint64(data[60:68], math.Float64bits(maxY))
	binary.LittleEndian.PutUint64(data[68:76], math.Float64bits(minZ))
	binary.LittleEndian.PutUint64(data[76:84], math.Float64bits(maxZ))
	binary.LittleEndian.PutUint64(data[84:92], math.Float64bits(minM))
	binary.LittleEndian.PutUint64(data[92:100], math.Float64bits(maxM))
	return data
}

// decodeSHxHeaderExtent parses the shape type, file length (in bytes) and
// the eight extent fields (minX, minY, maxX, maxY, minZ, maxZ, minM, maxM)
// out of a raw 100-byte .shp/.shx header, the inverse of EncodeSHxHeader.
// It skips the fileCode/version validation ReadSHxHeader performs, since
// append-mode recovery only needs the extent back, not full validation of
// a file this package itself wrote.
func decodeSHxHeaderExtent(data []byte) (shapeType ShapeType, fileLength int64, extent [8]float64, err error) {
	if len(data) != headerSize {
		return 0, 0, extent, errors.New("invalid header length")
	}
	fileLength = 2 * int64(binary.BigEndian.Uint32(data[24:28]))
	shapeType = ShapeType(binary.LittleEndian.Uint32(data[32:36]))
	for i := range extent {
		extent[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[36+8*i : 44+8*i]))
	}
	return shapeType, fileLength, extent, nil
}

func readFull(r io.Reader, data []byte) error {
	for {
		switch n, err := r.Read(data); {
		case errors.Is(err, io.EOF) && n == len(data):
			return nil
		case err != nil:
			return err
		case n == 0:
			return io.ErrUnexpectedEOF
		case n < len(data):
			data = data[n:]
		default:
			return nil
		}
	}
}
