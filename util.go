package shapefile

import (
	"path/filepath"
	"strings"
)

func isMacOSXPath(p string) bool {
	dir, _ := filepath.Split(p)
	for _, elem := range strings.Split(dir, string(filepath.Separator)) {
		if elem == "__MACOSX" {
			return true
		}
	}
	return false
}
