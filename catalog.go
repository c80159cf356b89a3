package shapefile

import (
	"fmt"
	"regexp"
	"strings"
)

// maxCatalogFields is the hard cap dBase III places on field descriptors in
// a single table (the header leaves one byte for field count bookkeeping
// via the descriptor-terminator offset, not the count itself, but every
// existing implementation enforces 255 as the practical ceiling).
const maxCatalogFields = 255

var validFieldTypes = map[byte]struct{}{
	'C': {}, 'D': {}, 'F': {}, 'N': {}, 'L': {}, 'M': {},
}

var invalidFieldNameChars = regexp.MustCompile(`[^A-Za-z0-9]`)

// A FieldSpec describes one DBF field before it's locked into a Catalog.
type FieldSpec struct {
	Name     string
	Type     byte
	Length   int
	Decimals int
}

// A Catalog builds the ordered list of field descriptors for a DBF table
// being written. Names are sanitized and deduplicated as fields are added;
// once the catalog is locked (by the first call to Descriptors, typically
// made when the writer emits its header) no further fields may be added.
type Catalog struct {
	AllCaps bool

	fields []*DBFFieldDescriptor
	names  map[string]struct{}
	locked bool
}

// NewCatalog returns an empty field catalog. When allCaps is true, every
// sanitized field name is additionally upper-cased, matching the
// all-uppercase convention many dBase-era consumers require.
func NewCatalog(allCaps bool) *Catalog {
	return &Catalog{AllCaps: allCaps, names: map[string]struct{}{}}
}

// AddField validates spec and appends it to the catalog, returning the
// resolved field name (after sanitization and any collision suffix).
func (c *Catalog) AddField(spec FieldSpec) (string, error) {
	const op = "Catalog.AddField"
	if c.locked {
		return "", newError(ErrFileAlreadyInitialized, op, "catalog already finalized")
	}
	if len(c.fields) >= maxCatalogFields {
		return "", newError(ErrMaxFieldCountReached, op, fmt.Sprintf("limit is %d fields", maxCatalogFields))
	}
	if _, ok := validFieldTypes[spec.Type]; !ok {
		return "", newError(ErrFieldTypeNotValid, op, string(spec.Type))
	}
	if err := validateFieldSize(spec); err != nil {
		return "", err
	}

	name, err := c.resolveFieldName(spec.Name)
	if err != nil {
		return "", err
	}
	c.names[name] = struct{}{}

	c.fields = append(c.fields, &DBFFieldDescriptor{
		Name:         name,
		Type:         spec.Type,
		Length:       spec.Length,
		DecimalCount: spec.Decimals,
	})
	return name, nil
}

func validateFieldSize(spec FieldSpec) error {
	const op = "Catalog.AddField"
	switch spec.Type {
	case 'C':
		if spec.Length < 1 || spec.Length > 254 {
			return newError(ErrFieldSizeNotValid, op, "character fields must be 1-254 bytes")
		}
	case 'N', 'F':
		if spec.Length < 1 || spec.Length > 20 {
			return newError(ErrFieldSizeNotValid, op, "numeric/float fields must be 1-20 bytes")
		}
		if spec.Decimals < 0 || spec.Decimals >= spec.Length {
			return newError(ErrFieldDecimalsNotValid, op, "decimals must be less than the field length")
		}
	case 'D':
		if spec.Length != 8 {
			return newError(ErrFieldSizeNotValid, op, "date fields must be 8 bytes")
		}
	case 'L':
		if spec.Length != 1 {
			return newError(ErrFieldSizeNotValid, op, "logical fields must be 1 byte")
		}
	case 'M':
		if spec.Length != 10 {
			return newError(ErrFieldSizeNotValid, op, "memo fields must be 10 bytes")
		}
	}
	return nil
}

// resolveFieldName replaces every character outside [A-Za-z0-9] with "_",
// truncates the result to 10 bytes, and — on collision with an
// already-registered name — retries with the name truncated to 8 bytes
// plus a "_N" suffix for N in 1..99.
func (c *Catalog) resolveFieldName(name string) (string, error) {
	sanitized := invalidFieldNameChars.ReplaceAllString(name, "_")
	if sanitized == "" {
		sanitized = "FIELD"
	}
	if c.AllCaps {
		sanitized = strings.ToUpper(sanitized)
	}
	sanitized = sanitized[:minOf(len(sanitized), 10)]
	if _, taken := c.names[sanitized]; !taken {
		return sanitized, nil
	}

	base := sanitized[:minOf(len(sanitized), 8)]
	for n := 1; n <= 99; n++ {
		candidate := fmt.Sprintf("%s_%d", base, n)
		if _, taken := c.names[candidate]; !taken {
			return candidate, nil
		}
	}
	return "", newError(ErrFieldNameConflict, "Catalog.AddField", name)
}

// CatalogFromDescriptors wraps an already-resolved field descriptor list
// (as recovered from an existing DBF header when a Writer reopens a
// dataset in append mode) as a locked Catalog. The descriptors are trusted
// as-is: no sanitization or size validation is re-applied, since they're
// already committed to disk.
func CatalogFromDescriptors(descriptors []*DBFFieldDescriptor, allCaps bool) *Catalog {
	names := make(map[string]struct{}, len(descriptors))
	for _, d := range descriptors {
		names[d.Name] = struct{}{}
	}
	return &Catalog{AllCaps: allCaps, fields: descriptors, names: names, locked: true}
}

// Descriptors locks the catalog and returns its field descriptors in
// insertion order. Subsequent calls return the same locked slice.
func (c *Catalog) Descriptors() []*DBFFieldDescriptor {
	c.locked = true
	return c.fields
}

// Len returns the number of fields currently in the catalog.
func (c *Catalog) Len() int {
	return len(c.fields)
}

// RecordSize returns the fixed record length implied by the catalog's
// fields, including the 1-byte deletion flag every DBF record carries.
func (c *Catalog) RecordSize() int {
	size := 1
	for _, f := range c.fields {
		size += f.Length
	}
	return size
}
