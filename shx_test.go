package shapefile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHXRecordEncodeParseRoundtrip(t *testing.T) {
	record := SHXRecord{Offset: 100, ContentLength: 44}
	parsed := ParseSHXRecord(record.Encode())
	assert.Equal(t, record, parsed)
}

func TestReadSHX(t *testing.T) {
	records := []SHXRecord{
		{Offset: headerSize, ContentLength: 20},
		{Offset: headerSize + 28, ContentLength: 44},
	}

	fileLength := int64(headerSize + 8*len(records))
	var buf bytes.Buffer
	buf.Write(EncodeSHxHeader(ShapeTypePoint, nil, fileLength))
	for _, r := range records {
		buf.Write(r.Encode())
	}

	shx, err := ReadSHX(bytes.NewReader(buf.Bytes()), fileLength)
	require.NoError(t, err)
	assert.Equal(t, ShapeTypePoint, shx.ShapeType)
	assert.Equal(t, records, shx.Records)
}

func FuzzReadSHX(f *testing.F) {
	records := []SHXRecord{{Offset: headerSize, ContentLength: 20}}
	fileLength := int64(headerSize + 8*len(records))
	var buf bytes.Buffer
	buf.Write(EncodeSHxHeader(ShapeTypePoint, nil, fileLength))
	for _, r := range records {
		buf.Write(r.Encode())
	}
	f.Add(buf.Bytes())

	f.Fuzz(func(_ *testing.T, data []byte) {
		r := bytes.NewReader(data)
		_, _ = ReadSHX(r, int64(len(data)))
	})
}
