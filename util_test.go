package shapefile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMacOSXPath(t *testing.T) {
	for _, tc := range []struct {
		path     string
		expected bool
	}{
		{"__MACOSX/dir/._test.shp", true},
		{"dir/__MACOSX/._test.shp", true},
		{"dir/__MACOSX/dir/._test.shp", true},
		{"dir/__MACOSX/dir/__MACOSX/._test.shp", true},
		{"dir/._test.shp", false},
		{"dir/ABC__MACOSX", false},
		{"dir/ABC__MACOSX/._test.shp", false},
		{"dir/._test.shp.__MACOSX", false},
	} {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, isMacOSXPath(tc.path))
		})
	}
}
