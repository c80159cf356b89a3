package shapefile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogAddFieldSanitizesInvalidCharsToUnderscore(t *testing.T) {
	catalog := NewCatalog(false)
	name, err := catalog.AddField(FieldSpec{Name: "name-three", Type: 'C', Length: 20})
	require.NoError(t, err)
	assert.Equal(t, "name_three", name)
}

func TestCatalogAddFieldSanitizationAvoidsCollision(t *testing.T) {
	catalog := NewCatalog(false)
	first, err := catalog.AddField(FieldSpec{Name: "a-b", Type: 'C', Length: 10})
	require.NoError(t, err)
	second, err := catalog.AddField(FieldSpec{Name: "a_b", Type: 'C', Length: 10})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
