package shapefile

import (
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// defaultCharsetName is the encoding dBase III character fields use when a
// dataset carries no .cpg file, matching the historical MS-DOS default most
// GIS producers still emit.
const defaultCharsetName = "ISO-8859-1"

// A Charset transcodes DBF character-field bytes to and from UTF-8.
type Charset struct {
	Name string
	enc  encoding.Encoding
}

// NewCharset resolves name (an IANA charset name, as ReadCPG returns) to a
// usable Charset. An empty name resolves to the dBase default,
// ISO-8859-1.
func NewCharset(name string) (*Charset, error) {
	if name == "" {
		return &Charset{Name: defaultCharsetName, enc: charmap.ISO8859_1}, nil
	}
	enc, canonicalName := charset.Lookup(name)
	if enc == nil {
		return nil, newError(ErrCharsetConversion, "NewCharset", name)
	}
	return &Charset{Name: canonicalName, enc: enc}, nil
}

// Decode converts raw DBF field bytes in c's charset to a UTF-8 string.
func (c *Charset) Decode(data []byte) (string, error) {
	decoded, err := c.enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", wrapError(ErrCharsetConversion, "Charset.Decode", err)
	}
	return string(decoded), nil
}

// Encode converts a UTF-8 string to raw bytes in c's charset, for writing
// into a fixed-width DBF character field.
func (c *Charset) Encode(s string) ([]byte, error) {
	encoded, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, wrapError(ErrCharsetConversion, "Charset.Encode", err)
	}
	return encoded, nil
}
