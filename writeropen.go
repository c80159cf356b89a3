package shapefile

import (
	"fmt"
	"os"
)

// ExistingFilePolicy controls what OpenWriter (and NewWriter, for the
// AppendExisting case) does when a dataset already exists at the target
// location.
type ExistingFilePolicy int

// Existing file policies.
const (
	// PreserveExisting refuses to touch a dataset that already exists.
	// This is the default.
	PreserveExisting ExistingFilePolicy = iota
	// OverwriteExisting truncates and replaces an existing dataset.
	OverwriteExisting
	// AppendExisting reopens an existing dataset and recovers its
	// state — shape type, field catalog, bounding box, record count
	// and next-free memo block — so new records continue where the
	// old ones left off.
	AppendExisting
)

// OpenWriter opens (or creates) the companion files of the dataset named
// by basePath (without extension) and returns a Writer committing to
// them, per policy. Grounded on WangNingkai/go-shp's path-based
// Create/Append: Preserve and Overwrite differ only in the flags the
// files are opened with; Append hands NewWriter real file handles so it
// can recover the writer's state from what's already on disk. The
// returned Writer's Close also closes the files OpenWriter opened.
func OpenWriter(basePath string, shapeType ShapeType, catalog *Catalog, policy ExistingFilePolicy, options *WriterOptions, opts ...Option) (*Writer, error) {
	const op = "OpenWriter"

	var flag int
	switch policy {
	case AppendExisting:
		flag = os.O_RDWR
	case OverwriteExisting:
		flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	default:
		flag = os.O_RDWR | os.O_CREATE | os.O_EXCL
	}

	shpFile, err := os.OpenFile(basePath+".shp", flag, 0o644)
	if err != nil {
		return nil, openWriterError(op, basePath+".shp", policy, err)
	}
	shxFile, err := os.OpenFile(basePath+".shx", flag, 0o644)
	if err != nil {
		shpFile.Close()
		return nil, openWriterError(op, basePath+".shx", policy, err)
	}
	dbfFile, err := os.OpenFile(basePath+".dbf", flag, 0o644)
	if err != nil {
		shpFile.Close()
		shxFile.Close()
		return nil, openWriterError(op, basePath+".dbf", policy, err)
	}

	sink := WriterSink{SHP: shpFile, SHX: shxFile, DBF: dbfFile}

	var dbtFile *os.File
	switch {
	case policy == AppendExisting:
		dbtFile, err = os.OpenFile(basePath+".dbt", os.O_RDWR, 0o644)
		switch {
		case err == nil:
			sink.DBT = dbtFile
		case os.IsNotExist(err):
			dbtFile = nil
		default:
			shpFile.Close()
			shxFile.Close()
			dbfFile.Close()
			return nil, openWriterError(op, basePath+".dbt", policy, err)
		}
	case catalog != nil && hasMemoField(catalog):
		dbtFile, err = os.OpenFile(basePath+".dbt", flag, 0o644)
		if err != nil {
			shpFile.Close()
			shxFile.Close()
			dbfFile.Close()
			return nil, openWriterError(op, basePath+".dbt", policy, err)
		}
		sink.DBT = dbtFile
	}

	w, err := NewWriter(sink, shapeType, catalog, withExistingFilePolicy(options, policy), opts...)
	if err != nil {
		shpFile.Close()
		shxFile.Close()
		dbfFile.Close()
		if dbtFile != nil {
			dbtFile.Close()
		}
		return nil, err
	}
	w.closers = append(w.closers, shpFile, shxFile, dbfFile)
	if dbtFile != nil {
		w.closers = append(w.closers, dbtFile)
	}
	return w, nil
}

func withExistingFilePolicy(options *WriterOptions, policy ExistingFilePolicy) *WriterOptions {
	merged := WriterOptions{}
	if options != nil {
		merged = *options
	}
	merged.ExistingFilePolicy = policy
	return &merged
}

func openWriterError(op, path string, policy ExistingFilePolicy, err error) error {
	if policy == PreserveExisting && os.IsExist(err) {
		return newPathError(ErrFileProtected, op, path, "refusing to overwrite an existing file")
	}
	return wrapError(ErrOpenFailed, op, fmt.Errorf("%s: %w", path, err))
}
