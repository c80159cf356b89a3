package shapefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// A Reader streams a Shapefile's records one at a time, reading its .shp,
// .shx and .dbf companions in lockstep, instead of materializing every
// record in memory the way ReadFS and ReadZipReader do. Unlike the
// concurrent, multi-goroutine scanning some shapefile libraries use, every
// Reader method does its own I/O on the caller's goroutine: the three
// companion files are short enough, and their records interdependent
// enough, that sequential reads keep the implementation easy to reason
// about without costing meaningful throughput.
type Reader struct {
	shp *shpStream
	shx *shxStream
	dbf *dbfStream

	PRJ *PRJ
	CPG *CPG

	fieldDescriptors []*DBFFieldDescriptor
	estimatedRecords int64
	numRead          int64
	err              error

	// shxIndex holds every .shx entry read up front at construction, so
	// SetCurrentRecord can seek straight to a record's .shp offset
	// without scanning every record before it.
	shxIndex      []SHXRecord
	sourceSHP     io.Reader
	sourceDBF     io.Reader
	dbfDataStart  int64
	dbfRecordSize int
	current       *Record

	logger *slog.Logger
}

// ReaderSource supplies the readers NewReader pulls each companion file
// from. A nil Reader field (and its matching zero Size) means that
// companion file doesn't exist; SHP, SHX and DBF are otherwise read
// together, record by record.
type ReaderSource struct {
	SHP io.Reader
	SHX io.Reader
	DBF io.Reader
	PRJ io.Reader
	CPG io.Reader

	SHPSize int64
	SHXSize int64
	DBFSize int64
	PRJSize int64
	CPGSize int64
}

// NewReader builds a streaming Reader over source. Charset resolution
// follows the same precedence ReadFS uses: options.DBF.Charset, then the
// .cpg file's charset, then ISO-8859-1.
func NewReader(source ReaderSource, options *ReadShapefileOptions, opts ...Option) (*Reader, error) {
	const op = "NewReader"
	if options == nil {
		options = &ReadShapefileOptions{}
	}
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var cpg *CPG
	if source.CPG != nil {
		var err error
		cpg, err = ReadCPG(source.CPG, source.CPGSize)
		if err != nil {
			return nil, wrapError(ErrReadFailed, op, err)
		}
	}

	var prj *PRJ
	if source.PRJ != nil {
		var err error
		prj, err = ReadPRJ(source.PRJ, source.PRJSize)
		if err != nil {
			return nil, wrapError(ErrReadFailed, op, err)
		}
	}

	dbfOptions := mergeReadDBFOptions(options, cpg, nil)

	var shp *shpStream
	if source.SHP != nil {
		var err error
		shp, err = newSHPStream(source.SHP, source.SHPSize, options.SHP)
		if err != nil {
			return nil, wrapError(ErrReadFailed, op, err)
		}
	}

	var shx *shxStream
	var shxIndex []SHXRecord
	if source.SHX != nil && !options.IgnoreSHX {
		var err error
		shx, err = newSHXStream(source.SHX, source.SHXSize)
		if err != nil {
			return nil, wrapError(ErrReadFailed, op, err)
		}
		// Drained once up front: the index is small (8 bytes per
		// record) and SetCurrentRecord needs random access to every
		// offset, not just the ones Next has streamed past so far.
		for {
			record, err := shx.next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, wrapError(ErrReadFailed, op, err)
			}
			shxIndex = append(shxIndex, *record)
		}
	}

	var dbf *dbfStream
	var fieldDescriptors []*DBFFieldDescriptor
	var estimatedDBF int64
	if source.DBF != nil && !options.IgnoreDBF {
		var err error
		dbf, err = newDBFStream(source.DBF, dbfOptions)
		if err != nil {
			return nil, wrapError(ErrReadFailed, op, err)
		}
		fieldDescriptors = dbf.fieldDescriptors
		if dbf.header.RecordSize > 0 {
			estimatedDBF = (source.DBFSize - dbfHeaderLength) / int64(dbf.header.RecordSize)
		}
	}

	var estimatedSHX int64
	if source.SHX != nil && !options.IgnoreSHX {
		estimatedSHX = (source.SHXSize - headerSize) / 8
	}

	estimated := maxOf(estimatedDBF, estimatedSHX)

	cfg.logger.Debug("opened shapefile reader",
		"hasSHP", source.SHP != nil, "hasSHX", source.SHX != nil, "hasDBF", source.DBF != nil,
		"estimatedRecords", estimated)

	var dbfDataStart int64
	var dbfRecordSize int
	if dbf != nil {
		dbfDataStart = int64(dbfHeaderLength + dbfFieldDescriptorSize*len(fieldDescriptors) + 1)
		dbfRecordSize = dbf.header.RecordSize
	}

	return &Reader{
		shp:              shp,
		shx:              shx,
		dbf:              dbf,
		PRJ:              prj,
		CPG:              cpg,
		fieldDescriptors: fieldDescriptors,
		estimatedRecords: estimated,
		shxIndex:         shxIndex,
		sourceSHP:        source.SHP,
		sourceDBF:        source.DBF,
		dbfDataStart:     dbfDataStart,
		dbfRecordSize:    dbfRecordSize,
		logger:           cfg.logger,
	}, nil
}

// Next reads and returns the next record, or io.EOF once every companion
// file is exhausted.
func (r *Reader) Next() (*Record, error) {
	if r.err != nil {
		return nil, r.err
	}

	var shpRecord *SHPRecord
	if r.shp != nil {
		record, err := r.shp.next()
		switch {
		case errors.Is(err, io.EOF):
			r.err = io.EOF
			r.current = nil
			return nil, r.err
		case err != nil:
			r.err = err
			r.current = nil
			return nil, r.err
		default:
			shpRecord = record
		}
	}

	if r.shx != nil {
		if _, err := r.shx.next(); err != nil && !errors.Is(err, io.EOF) {
			r.err = err
			r.current = nil
			return nil, r.err
		}
	}

	var fields map[string]any
	if r.dbf != nil {
		row, err := r.dbf.next()
		switch {
		case errors.Is(err, io.EOF):
			if r.shp == nil {
				r.err = io.EOF
				r.current = nil
				return nil, r.err
			}
		case err != nil:
			r.err = err
			r.current = nil
			return nil, r.err
		default:
			if row != nil {
				fields = make(map[string]any, len(r.fieldDescriptors))
				for i, fieldDescriptor := range r.fieldDescriptors {
					fields[fieldDescriptor.Name] = row[i]
				}
			}
		}
	}

	r.numRead++
	record := &Record{Number: int(r.numRead), Fields: fields}
	if shpRecord != nil {
		record.Geom = shpRecord.Geom
	}
	r.current = record
	return record, nil
}

// Discard skips n records without building Records for them.
func (r *Reader) Discard(n int) (int, error) {
	for i := 0; i < n; i++ {
		if _, err := r.Next(); err != nil {
			return i, err
		}
	}
	return n, nil
}

// Close closes every underlying companion reader that implements
// io.Closer.
func (r *Reader) Close() error {
	var err error
	if r.shp != nil {
		err = errors.Join(err, closeIfCloser(r.shp.r))
	}
	if r.shx != nil {
		err = errors.Join(err, closeIfCloser(r.shx.r))
	}
	if r.dbf != nil {
		err = errors.Join(err, closeIfCloser(r.dbf.r))
	}
	return err
}

func closeIfCloser(r io.Reader) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NumRead returns the number of records returned by Next so far.
func (r *Reader) NumRead() int64 {
	return r.numRead
}

// EstimatedRecords returns a best-effort record count derived from the
// .dbf or .shx file sizes, without reading the whole file.
func (r *Reader) EstimatedRecords() int64 {
	return r.estimatedRecords
}

// FieldDescriptors returns the .dbf field descriptors, or nil if no .dbf
// was supplied.
func (r *Reader) FieldDescriptors() []*DBFFieldDescriptor {
	return r.fieldDescriptors
}

// Err returns the error, if any, that halted scanning. It is io.EOF once
// Next has been exhausted normally.
func (r *Reader) Err() error {
	return r.err
}

// Valid reports whether the Reader is currently positioned on a record,
// following the conventions of RocksDB-style iterators: it is false
// before the first Next call, after Rewind, and after Next returns io.EOF.
func (r *Reader) Valid() bool {
	return r.current != nil
}

// Key returns the record number the Reader is currently positioned on,
// or 0 if Valid is false.
func (r *Reader) Key() int {
	if r.current == nil {
		return 0
	}
	return r.current.Number
}

// Current returns the record the Reader is currently positioned on, or
// nil if Valid is false. Unlike Next, it doesn't advance the Reader.
func (r *Reader) Current() *Record {
	return r.current
}

// Rewind repositions the Reader at the start of its record stream, as if
// freshly constructed by NewReader. It requires every non-nil companion
// reader supplied to NewReader to implement io.Seeker; otherwise it
// returns ErrRandomAccessUnavailable.
func (r *Reader) Rewind() error {
	const op = "Reader.Rewind"
	if r.shp != nil {
		if err := r.shp.seekTo(r.sourceSHP, headerSize, 1); err != nil {
			return wrapError(ErrRandomAccessUnavailable, op, err)
		}
	}
	if r.dbf != nil {
		if err := r.dbf.seekTo(r.sourceDBF, r.dbfDataStart, 1); err != nil {
			return wrapError(ErrRandomAccessUnavailable, op, err)
		}
	}
	r.numRead = 0
	r.err = nil
	r.current = nil
	return nil
}

// SetCurrentRecord repositions the Reader at the 1-indexed record number
// and reads it, making it the Current record. It requires the Reader to
// have been built with a .shx source (for the .shp offset) and with
// seekable .shp and .dbf readers; otherwise it returns
// ErrRandomAccessUnavailable. A subsequent Next call continues reading
// from the record after number.
func (r *Reader) SetCurrentRecord(number int) error {
	const op = "Reader.SetCurrentRecord"
	if r.shxIndex == nil {
		return newError(ErrRandomAccessUnavailable, op, "no .shx index available")
	}
	if number < 1 || number > len(r.shxIndex) {
		return newError(ErrRecordNotFound, op, fmt.Sprintf("record %d out of range", number))
	}

	var shpRecord *SHPRecord
	if r.shp != nil {
		if err := r.shp.seekTo(r.sourceSHP, int64(r.shxIndex[number-1].Offset), number); err != nil {
			return wrapError(ErrRandomAccessUnavailable, op, err)
		}
		record, err := r.shp.next()
		if err != nil {
			return wrapError(ErrReadFailed, op, err)
		}
		shpRecord = record
	}

	var fields map[string]any
	if r.dbf != nil {
		if err := r.dbf.seekTo(r.sourceDBF, r.dbfDataStart, number); err != nil {
			return wrapError(ErrRandomAccessUnavailable, op, err)
		}
		row, err := r.dbf.next()
		if err != nil {
			return wrapError(ErrReadFailed, op, err)
		}
		if row != nil {
			fields = make(map[string]any, len(r.fieldDescriptors))
			for i, fieldDescriptor := range r.fieldDescriptors {
				fields[fieldDescriptor.Name] = row[i]
			}
		}
	}

	record := &Record{Number: number, Fields: fields}
	if shpRecord != nil {
		record.Geom = shpRecord.Geom
	}
	r.numRead = int64(number)
	r.err = nil
	r.current = record
	return nil
}

// GetCurrentRecord returns the record set by the most recent Next or
// SetCurrentRecord call, or ErrRecordNotFound if the Reader isn't
// currently positioned on one.
func (r *Reader) GetCurrentRecord() (*Record, error) {
	if r.current == nil {
		return nil, newError(ErrRecordNotFound, "Reader.GetCurrentRecord", "reader is not positioned on a record")
	}
	return r.current, nil
}

type shpStream struct {
	r       *bufio.Reader
	options *ReadSHPOptions
	header  *SHxHeader
	numRead int
}

func newSHPStream(r io.Reader, size int64, options *ReadSHPOptions) (*shpStream, error) {
	br := bufio.NewReader(r)
	header, err := ReadSHxHeader(br, size)
	if err != nil {
		return nil, err
	}
	return &shpStream{r: br, options: options, header: header}, nil
}

func (s *shpStream) next() (*SHPRecord, error) {
	record, err := ReadSHPRecord(s.r, s.options)
	if err != nil {
		return nil, err
	}
	if record.Number != s.numRead+1 {
		return nil, newError(ErrReadFailed, "shpStream.next", fmt.Sprintf("record %d: invalid record number", record.Number))
	}
	s.numRead++
	return record, nil
}

// seekTo repositions the stream at a byte offset into the underlying
// reader, discarding whatever the bufio.Reader has buffered. raw must be
// the same reader newSHPStream was given.
func (s *shpStream) seekTo(raw io.Reader, offset int64, recordNumber int) error {
	seeker, ok := raw.(io.Seeker)
	if !ok {
		return newError(ErrRandomAccessUnavailable, "shpStream.seekTo", "underlying .shp reader is not seekable")
	}
	if _, err := seeker.Seek(offset, io.SeekStart); err != nil {
		return wrapError(ErrReadFailed, "shpStream.seekTo", err)
	}
	s.r = bufio.NewReader(raw)
	s.numRead = recordNumber - 1
	return nil
}

type shxStream struct {
	r       *bufio.Reader
	header  *SHxHeader
	numRead int
}

func newSHXStream(r io.Reader, size int64) (*shxStream, error) {
	br := bufio.NewReader(r)
	header, err := ReadSHxHeader(br, size)
	if err != nil {
		return nil, err
	}
	return &shxStream{r: br, header: header}, nil
}

func (s *shxStream) next() (*SHXRecord, error) {
	data := make([]byte, 8)
	if err := readFull(s.r, data); err != nil {
		return nil, err
	}
	record := ParseSHXRecord(data)
	s.numRead++
	return &record, nil
}

type dbfStream struct {
	r                *bufio.Reader
	options          *ReadDBFOptions
	charset          *Charset
	dbt              *DBT
	header           *DBFHeader
	fieldDescriptors []*DBFFieldDescriptor
	numRead          int
}

func newDBFStream(r io.Reader, options *ReadDBFOptions) (*dbfStream, error) {
	const op = "newDBFStream"
	charset := (*Charset)(nil)
	var dbt *DBT
	if options != nil {
		charset = options.Charset
		dbt = options.DBT
	}
	if charset == nil {
		var err error
		charset, err = NewCharset("")
		if err != nil {
			return nil, err
		}
	}

	br := bufio.NewReader(r)
	headerData := make([]byte, dbfHeaderLength)
	if err := readFull(br, headerData); err != nil {
		return nil, wrapError(ErrReadFailed, op, err)
	}
	header, err := ParseDBFHeader(headerData)
	if err != nil {
		return nil, err
	}
	if header.Memo && dbt == nil {
		return nil, newError(ErrMissingField, op, "table declares memo fields but no DBT was provided")
	}

	var fieldDescriptors []*DBFFieldDescriptor
	for i := 0; ; i++ {
		fieldDescriptorData := make([]byte, dbfFieldDescriptorSize)
		if err := readFull(br, fieldDescriptorData[:1]); err != nil {
			return nil, wrapError(ErrReadFailed, op, err)
		}
		if fieldDescriptorData[0] == '\x0d' {
			break
		}
		if err := readFull(br, fieldDescriptorData[1:]); err != nil {
			return nil, wrapError(ErrReadFailed, op, err)
		}

		name := string(TrimTrailingZeros(fieldDescriptorData[:11]))
		fieldType := fieldDescriptorData[11]
		if _, ok := validFieldTypes[fieldType]; !ok {
			return nil, newError(ErrFieldTypeNotValid, op, fmt.Sprintf("field %d: type %q", i, fieldType))
		}
		fieldDescriptors = append(fieldDescriptors, &DBFFieldDescriptor{
			Name:         name,
			Type:         fieldType,
			Length:       int(fieldDescriptorData[16]),
			DecimalCount: int(fieldDescriptorData[17]),
			WorkAreaID:   fieldDescriptorData[20],
			SetFields:    fieldDescriptorData[23],
		})
	}

	return &dbfStream{
		r:                br,
		options:          options,
		charset:          charset,
		dbt:              dbt,
		header:           header,
		fieldDescriptors: fieldDescriptors,
	}, nil
}

// next returns the next row's field values, nil for a deleted row, or
// io.EOF at the end-of-file marker.
func (s *dbfStream) next() ([]any, error) {
	const op = "dbfStream.next"
	if s.numRead >= s.header.Records {
		data := make([]byte, 1)
		if err := readFull(s.r, data); err != nil {
			return nil, wrapError(ErrReadFailed, op, err)
		}
		if data[0] != '\x1a' {
			return nil, newError(ErrDBFNotValid, op, "missing end-of-file marker")
		}
		return nil, io.EOF
	}

	recordData := make([]byte, s.header.RecordSize)
	if err := readFull(s.r, recordData); err != nil {
		return nil, wrapError(ErrReadFailed, op, err)
	}
	s.numRead++
	switch recordData[0] {
	case ' ':
		row := make([]any, 0, len(s.fieldDescriptors))
		offset := 1
		for _, fieldDescriptor := range s.fieldDescriptors {
			fieldData := recordData[offset : offset+fieldDescriptor.Length]
			offset += fieldDescriptor.Length
			field, err := fieldDescriptor.Parse(fieldData, s.charset, s.dbt)
			if err != nil {
				return nil, newError(ErrDBFNotValid, op, fmt.Sprintf("field %s: %v", fieldDescriptor.Name, err))
			}
			row = append(row, field)
		}
		return row, nil
	case '*', '\x1a':
		return nil, nil
	default:
		return nil, newError(ErrDBFNotValid, op, fmt.Sprintf("invalid deletion flag %q", recordData[0]))
	}
}

// seekTo repositions the stream at the start of the given 1-indexed
// record. raw must be the same reader newDBFStream was given.
func (s *dbfStream) seekTo(raw io.Reader, dataStart int64, recordNumber int) error {
	seeker, ok := raw.(io.Seeker)
	if !ok {
		return newError(ErrRandomAccessUnavailable, "dbfStream.seekTo", "underlying .dbf reader is not seekable")
	}
	offset := dataStart + int64(recordNumber-1)*int64(s.header.RecordSize)
	if _, err := seeker.Seek(offset, io.SeekStart); err != nil {
		return wrapError(ErrReadFailed, "dbfStream.seekTo", err)
	}
	s.r = bufio.NewReader(raw)
	s.numRead = recordNumber - 1
	return nil
}
