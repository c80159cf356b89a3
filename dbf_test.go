package shapefile

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDBFHeaderBytes(records, headerSize, recordSize int, memo bool) []byte {
	data := make([]byte, dbfHeaderLength)
	flags := byte(3)
	if memo {
		flags |= 0x08
	}
	data[0] = flags
	data[1], data[2], data[3] = 124, 1, 1 // 2024-01-01
	putUint32LE(data[4:8], uint32(records))
	putUint16LE(data[8:10], uint16(headerSize))
	putUint16LE(data[10:12], uint16(recordSize))
	return data
}

func TestParseDBFHeader(t *testing.T) {
	data := buildDBFHeaderBytes(3, 97, 21, false)
	header, err := ParseDBFHeader(data)
	require.NoError(t, err)
	assert.Equal(t, 3, header.Records)
	assert.Equal(t, 97, header.HeaderSize)
	assert.Equal(t, 21, header.RecordSize)
	assert.False(t, header.Memo)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), header.LastUpdate)
}

func TestParseDBFHeaderInvalidLength(t *testing.T) {
	_, err := ParseDBFHeader(make([]byte, dbfHeaderLength-1))
	require.Error(t, err)
	assert.True(t, Is(err, ErrDBFNotValid))
}

func TestDBFFieldDescriptorEncodeParseRoundtrip(t *testing.T) {
	charset, err := NewCharset("")
	require.NoError(t, err)

	for _, tc := range []struct {
		name       string
		descriptor *DBFFieldDescriptor
		value      any
	}{
		{
			name:       "character",
			descriptor: &DBFFieldDescriptor{Name: "NAME", Type: 'C', Length: 20},
			value:      "Lausanne",
		},
		{
			name:       "numeric",
			descriptor: &DBFFieldDescriptor{Name: "POP", Type: 'N', Length: 12, DecimalCount: 2},
			value:      140202.5,
		},
		{
			name:       "logical true",
			descriptor: &DBFFieldDescriptor{Name: "FLAG", Type: 'L', Length: 1},
			value:      true,
		},
		{
			name:       "logical false",
			descriptor: &DBFFieldDescriptor{Name: "FLAG", Type: 'L', Length: 1},
			value:      false,
		},
		{
			name:       "date",
			descriptor: &DBFFieldDescriptor{Name: "WHEN", Type: 'D', Length: 8},
			value:      time.Date(2023, time.March, 14, 0, 0, 0, 0, time.UTC),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := tc.descriptor.Encode(tc.value, charset, nil)
			require.NoError(t, err)
			require.Len(t, encoded, tc.descriptor.Length)

			parsed, err := tc.descriptor.Parse(encoded, charset, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.value, parsed)
		})
	}
}

func TestDBFFieldDescriptorEncodeNumericOverflow(t *testing.T) {
	charset, err := NewCharset("")
	require.NoError(t, err)
	descriptor := &DBFFieldDescriptor{Name: "N", Type: 'N', Length: 3}
	_, err = descriptor.Encode(123456.0, charset, nil)
	require.Error(t, err)
	assert.True(t, Is(err, ErrNumericValueOverflow))
}

func FuzzReadDBF(f *testing.F) {
	charset, err := NewCharset("")
	require.NoError(f, err)

	descriptor := &DBFFieldDescriptor{Name: "NAME", Type: 'C', Length: 10}
	row, err := descriptor.Encode("seed", charset, nil)
	require.NoError(f, err)

	header := buildDBFHeaderBytes(1, dbfHeaderLength+dbfFieldDescriptorSize+1, 1+len(row), false)
	fieldDescriptor := encodeDBFFieldDescriptor(descriptor)

	var buf bytes.Buffer
	buf.Write(header)
	buf.Write(fieldDescriptor)
	buf.WriteByte('\x0d')
	buf.WriteByte(' ')
	buf.Write(row)
	buf.WriteByte('\x1a')
	f.Add(buf.Bytes())

	f.Fuzz(func(_ *testing.T, data []byte) {
		r := bytes.NewReader(data)
		_, _ = ReadDBF(r, int64(len(data)), &ReadDBFOptions{Charset: charset})
	})
}
