package main

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	shapefile "github.com/gasparesganga/go-shapefile"
)

// openReaderSource builds a shapefile.ReaderSource for path (a directory
// basename or a .zip archive), along with a closer that releases every
// file it opened.
func openReaderSource(path string) (shapefile.ReaderSource, func() error, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return openReaderSourceFromZip(path)
	}
	return openReaderSourceFromDir(path)
}

func openReaderSourceFromDir(path string) (shapefile.ReaderSource, func() error, error) {
	var source shapefile.ReaderSource
	var closers []io.Closer
	closeAll := func() error {
		var err error
		for _, c := range closers {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		return err
	}

	exts := map[string]struct {
		reader *io.Reader
		size   *int64
	}{
		".shp": {&source.SHP, &source.SHPSize},
		".shx": {&source.SHX, &source.SHXSize},
		".dbf": {&source.DBF, &source.DBFSize},
		".prj": {&source.PRJ, &source.PRJSize},
		".cpg": {&source.CPG, &source.CPGSize},
	}
	for ext, dest := range exts {
		f, err := os.Open(path + ext)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			closeAll()
			return source, nil, err
		}
		info, err := f.Stat()
		if err != nil {
			closeAll()
			return source, nil, err
		}
		closers = append(closers, f)
		*dest.reader = f
		*dest.size = info.Size()
	}
	return source, closeAll, nil
}

func openReaderSourceFromZip(path string) (shapefile.ReaderSource, func() error, error) {
	var source shapefile.ReaderSource
	zr, err := zip.OpenReader(path)
	if err != nil {
		return source, nil, err
	}
	var closers []io.Closer
	closers = append(closers, zr)
	closeAll := func() error {
		var err error
		for _, c := range closers {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		return err
	}

	exts := map[string]struct {
		reader *io.Reader
		size   *int64
	}{
		".shp": {&source.SHP, &source.SHPSize},
		".shx": {&source.SHX, &source.SHXSize},
		".dbf": {&source.DBF, &source.DBFSize},
		".prj": {&source.PRJ, &source.PRJSize},
		".cpg": {&source.CPG, &source.CPGSize},
	}
	for _, zipFile := range zr.File {
		ext := strings.ToLower(filepath.Ext(zipFile.Name))
		dest, ok := exts[ext]
		if !ok {
			continue
		}
		rc, err := zipFile.Open()
		if err != nil {
			closeAll()
			return source, nil, err
		}
		closers = append(closers, rc)
		*dest.reader = rc
		*dest.size = int64(zipFile.UncompressedSize64)
	}
	return source, closeAll, nil
}

// datasetBasename returns the bare basename a dataset's companion files
// share, stripping any directory and any extension (such as .zip).
func datasetBasename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var errNoGeometry = fmt.Errorf("record has no geometry")
