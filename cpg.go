package shapefile

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// A CPG is a .cpg file.
type CPG struct {
	Charset string
}

// ReadCPG reads a CPG from an io.Reader.
func ReadCPG(r io.Reader, _ int64) (*CPG, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	enc, name := charset.Lookup(strings.ToLower(string(data)))
	if enc == nil {
		return nil, newPathError(ErrCharsetConversion, "ReadCPG", "", string(data))
	}
	return &CPG{
		Charset: name,
	}, nil
}

// WriteCPG writes a CPG naming charsetName, the canonical IANA name for the
// charset the companion DBF table's character fields are encoded in.
func WriteCPG(w io.Writer, charsetName string) error {
	_, err := io.WriteString(w, charsetName)
	if err != nil {
		return wrapError(ErrWriteFailed, "WriteCPG", err)
	}
	return nil
}

// ReadCPGZipFile reads a CPG from a *zip.File.
func ReadCPGZipFile(zipFile *zip.File) (*CPG, error) {
	readCloser, err := zipFile.Open()
	if err != nil {
		return nil, err
	}
	defer readCloser.Close()
	cpg, err := ReadCPG(readCloser, int64(zipFile.UncompressedSize64))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", zipFile.Name, err)
	}
	return cpg, nil
}
