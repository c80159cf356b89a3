package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	shapefile "github.com/gasparesganga/go-shapefile"
)

// openDataset loads the dataset named by path, accepting either a
// directory basename shared by the .shp/.shx/.dbf companions or a .zip
// archive bundling them.
func openDataset(path string) (*shapefile.Shapefile, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return shapefile.ReadZipFile(path, nil)
	}
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	return shapefile.ReadFS(os.DirFS(dir), base, nil)
}

// datasetArg is the single positional argument every subcommand takes.
func datasetArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one dataset path argument")
	}
	return args[0], nil
}
