package shapefile

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/twpayne/go-geom"
)

// A WriterFile is the destination a Writer commits one companion file to.
// Seek is required even for a brand-new dataset, since the header is
// written as a placeholder up front and backfilled in place once the
// record count and bounds are known; Read is required so NewWriter can
// recover a dataset's state when reopened in append mode.
type WriterFile interface {
	io.Reader
	io.Writer
	io.Seeker
}

// A WriterSink names the destinations a Writer commits its files to. SHP,
// SHX and DBF are required; DBT, PRJ and CPG are optional, matching the
// optional companion files ReadFS tolerates being absent.
type WriterSink struct {
	SHP WriterFile
	SHX WriterFile
	DBF WriterFile
	DBT WriterFile

	PRJ        io.Writer
	Projection string

	CPG         io.Writer
	CharsetName string
}

// A Writer builds a Shapefile one record at a time, writing each record
// straight to its WriterSink as it arrives rather than buffering the
// whole dataset in memory. Like DBTWriter, it keeps its headers valid by
// seeking back and rewriting them — at construction, periodically via
// FlushInterval, and finally at Close — instead of computing them once
// up front.
type Writer struct {
	sink      WriterSink
	shapeType ShapeType
	catalog   *Catalog
	charset   *Charset
	dbt       *DBTWriter

	flushInterval int
	customBounds  *Bounds

	shpOffset    int
	dbfDataStart int
	numRecords   int
	bounds       *Bounds

	closers []io.Closer

	logger *slog.Logger
	closed bool
	err    error
}

// WriterOptions configures NewWriter beyond the functional Option layer.
type WriterOptions struct {
	// Charset encodes DBF character fields; when nil, ISO-8859-1 is used.
	Charset *Charset

	// ExistingFilePolicy controls what NewWriter does when sink already
	// names a non-empty dataset. The default, PreserveExisting, refuses
	// to touch it.
	ExistingFilePolicy ExistingFilePolicy

	// FlushInterval is how many records WriteRecord writes between
	// backfills of the SHP/SHX/DBF headers in place. The default is 10;
	// a value <= 0 also falls back to the default, since 0 would mean
	// "never flush except at Close," losing the crash-resilience
	// periodic flushing is for.
	FlushInterval int
}

const defaultFlushInterval = 10

// NewWriter prepares a Writer that will encode records with shapeType and
// the fields described by catalog, which must already be fully populated
// (AddField is not safe to call after NewWriter locks it via
// Descriptors). When options.ExistingFilePolicy is AppendExisting,
// shapeType and catalog are ignored in favor of state recovered from
// sink's existing contents.
func NewWriter(sink WriterSink, shapeType ShapeType, catalog *Catalog, options *WriterOptions, opts ...Option) (*Writer, error) {
	const op = "NewWriter"
	cfg := newConfig()
	for _, o := range opts {
		o(&cfg)
	}

	charset := (*Charset)(nil)
	policy := PreserveExisting
	flushInterval := defaultFlushInterval
	if options != nil {
		charset = options.Charset
		policy = options.ExistingFilePolicy
		if options.FlushInterval > 0 {
			flushInterval = options.FlushInterval
		}
	}
	if charset == nil {
		var err error
		charset, err = NewCharset("")
		if err != nil {
			return nil, err
		}
	}

	if policy == AppendExisting {
		return newAppendWriter(sink, charset, flushInterval, cfg.logger)
	}

	if _, ok := validShapeTypes[shapeType]; !ok {
		return nil, newError(ErrGeometryTypeNotValid, op, fmt.Sprintf("shape type %d", shapeType))
	}
	if _, unsupported := unsupportedShapeTypes[shapeType]; unsupported {
		return nil, newError(ErrGeometryTypeNotValid, op, "unsupported shape type")
	}
	if catalog == nil {
		catalog = NewCatalog(false)
	}

	if policy == PreserveExisting {
		nonEmpty, err := sinkHasContent(sink)
		if err != nil {
			return nil, wrapError(ErrReadFailed, op, err)
		}
		if nonEmpty {
			return nil, newError(ErrFileProtected, op, "refusing to overwrite an existing dataset")
		}
	}

	layout := layoutForShapeType(shapeType)
	w := &Writer{
		sink:          sink,
		shapeType:     shapeType,
		catalog:       catalog,
		charset:       charset,
		flushInterval: flushInterval,
		bounds:        NewBounds(layout),
		logger:        cfg.logger,
	}

	if err := w.writeInitialHeaders(); err != nil {
		return nil, err
	}
	if sink.DBT != nil && hasMemoField(catalog) {
		if _, err := sink.DBT.Seek(0, io.SeekStart); err != nil {
			return nil, wrapError(ErrWriteFailed, op, err)
		}
		dbt, err := NewDBTWriter(sink.DBT)
		if err != nil {
			return nil, err
		}
		w.dbt = dbt
	}

	return w, nil
}

// sinkHasContent reports whether sink's SHP destination already holds
// data, leaving it positioned at the start either way.
func sinkHasContent(sink WriterSink) (bool, error) {
	if sink.SHP == nil {
		return false, nil
	}
	end, err := sink.SHP.Seek(0, io.SeekEnd)
	if err != nil {
		return false, err
	}
	if _, err := sink.SHP.Seek(0, io.SeekStart); err != nil {
		return false, err
	}
	return end > 0, nil
}

func hasMemoField(catalog *Catalog) bool {
	for _, d := range catalog.Descriptors() {
		if d.Type == 'M' {
			return true
		}
	}
	return false
}

// writeInitialHeaders writes the placeholder SHP/SHX headers and the full
// DBF header (field descriptors included), sized correctly from the
// start even though the record count they report is backfilled later.
func (w *Writer) writeInitialHeaders() error {
	const op = "NewWriter"
	placeholderHeader := EncodeSHxHeader(w.shapeType, nil, headerSize)

	if _, err := w.sink.SHP.Seek(0, io.SeekStart); err != nil {
		return wrapError(ErrWriteFailed, op, err)
	}
	if _, err := w.sink.SHP.Write(placeholderHeader); err != nil {
		return wrapError(ErrWriteFailed, op, err)
	}
	w.shpOffset = headerSize

	if _, err := w.sink.SHX.Seek(0, io.SeekStart); err != nil {
		return wrapError(ErrWriteFailed, op, err)
	}
	if _, err := w.sink.SHX.Write(placeholderHeader); err != nil {
		return wrapError(ErrWriteFailed, op, err)
	}

	if _, err := w.sink.DBF.Seek(0, io.SeekStart); err != nil {
		return wrapError(ErrWriteFailed, op, err)
	}
	if _, err := w.sink.DBF.Write(w.encodeDBFHeader()); err != nil {
		return wrapError(ErrWriteFailed, op, err)
	}
	for _, descriptor := range w.catalog.Descriptors() {
		if _, err := w.sink.DBF.Write(encodeDBFFieldDescriptor(descriptor)); err != nil {
			return wrapError(ErrWriteFailed, op, err)
		}
	}
	if _, err := w.sink.DBF.Write([]byte{'\x0d'}); err != nil {
		return wrapError(ErrWriteFailed, op, err)
	}
	w.dbfDataStart = dbfHeaderLength + dbfFieldDescriptorSize*w.catalog.Len() + 1
	return nil
}

// seekLength reports f's current length, leaving it positioned at the
// end.
func seekLength(f WriterFile) (int64, error) {
	return f.Seek(0, io.SeekEnd)
}

// newAppendWriter recovers a Writer's in-memory state — shape type,
// field catalog, bounding box, record count and next-free memo block —
// from a dataset already on sink, so WriteRecord can resume appending to
// it. This is the "spawn an internal reader to recover" state the
// existing-file append policy calls for; it reuses this package's own
// header decoding and ReadDBF rather than re-deriving the format.
func newAppendWriter(sink WriterSink, charset *Charset, flushInterval int, logger *slog.Logger) (*Writer, error) {
	const op = "NewWriter"
	if sink.SHP == nil || sink.SHX == nil || sink.DBF == nil {
		return nil, newError(ErrFileMissing, op, "append mode requires existing SHP, SHX and DBF files")
	}

	shpLen, err := seekLength(sink.SHP)
	if err != nil {
		return nil, wrapError(ErrReadFailed, op, err)
	}
	if shpLen < headerSize {
		return nil, newError(ErrReadFailed, op, "SHP file too short to append to")
	}
	if _, err := sink.SHP.Seek(0, io.SeekStart); err != nil {
		return nil, wrapError(ErrReadFailed, op, err)
	}
	headerData := make([]byte, headerSize)
	if err := readFull(sink.SHP, headerData); err != nil {
		return nil, wrapError(ErrReadFailed, op, err)
	}
	shapeType, _, extent, err := decodeSHxHeaderExtent(headerData)
	if err != nil {
		return nil, wrapError(ErrReadFailed, op, err)
	}
	if _, err := sink.SHP.Seek(0, io.SeekEnd); err != nil {
		return nil, wrapError(ErrReadFailed, op, err)
	}
	if _, err := seekLength(sink.SHX); err != nil {
		return nil, wrapError(ErrReadFailed, op, err)
	}

	dbfLen, err := seekLength(sink.DBF)
	if err != nil {
		return nil, wrapError(ErrReadFailed, op, err)
	}
	if _, err := sink.DBF.Seek(0, io.SeekStart); err != nil {
		return nil, wrapError(ErrReadFailed, op, err)
	}

	var dbt *DBT
	var recoveredDBTState *DBTHeader
	if sink.DBT != nil {
		dbtLen, err := seekLength(sink.DBT)
		if err != nil {
			return nil, wrapError(ErrReadFailed, op, err)
		}
		if dbtLen >= dbtHeaderSize {
			if _, err := sink.DBT.Seek(0, io.SeekStart); err != nil {
				return nil, wrapError(ErrReadFailed, op, err)
			}
			data, err := io.ReadAll(io.LimitReader(sink.DBT, dbtLen))
			if err != nil {
				return nil, wrapError(ErrReadFailed, op, err)
			}
			dbtRead, err := ReadDBT(bytesReaderAt(data), dbtLen)
			if err != nil {
				return nil, err
			}
			dbt = dbtRead
			recoveredDBTState = &dbtRead.DBTHeader
			if _, err := sink.DBT.Seek(0, io.SeekEnd); err != nil {
				return nil, wrapError(ErrReadFailed, op, err)
			}
		}
	}

	dbf, err := ReadDBF(sink.DBF, dbfLen, &ReadDBFOptions{Charset: charset, DBT: dbt})
	if err != nil {
		return nil, err
	}
	if dbfLen > 0 {
		if _, err := sink.DBF.Seek(-1, io.SeekEnd); err != nil {
			return nil, wrapError(ErrReadFailed, op, err)
		}
	}

	bounds := NewBounds(layoutForShapeType(shapeType))
	if dbf.Records > 0 {
		bounds = boundsFromHeader(shapeType, extent)
	}

	w := &Writer{
		sink:          sink,
		shapeType:     shapeType,
		catalog:       CatalogFromDescriptors(dbf.FieldDescriptors, false),
		charset:       charset,
		flushInterval: flushInterval,
		shpOffset:     int(shpLen),
		dbfDataStart:  dbf.HeaderSize,
		numRecords:    dbf.Records,
		bounds:        bounds,
		logger:        logger,
	}
	if recoveredDBTState != nil && sink.DBT != nil {
		w.dbt = &DBTWriter{w: sink.DBT, nextFreeBlock: recoveredDBTState.NextFreeBlock, blockSize: recoveredDBTState.BlockSize}
	}
	return w, nil
}

func layoutForShapeType(shapeType ShapeType) geom.Layout {
	switch shapeType {
	case ShapeTypePointM, ShapeTypeMultiPointM, ShapeTypePolyLineM, ShapeTypePolygonM:
		return geom.XYM
	case ShapeTypePointZ, ShapeTypeMultiPointZ, ShapeTypePolyLineZ, ShapeTypePolygonZ:
		return geom.XYZM
	default:
		return geom.XY
	}
}

// WriteRecord appends one record's geometry and fields, in catalog field
// order (looked up by name from fields; a missing name encodes as a nil
// value: blank, or '?' for a logical field). Every FlushInterval records, the SHP/SHX/DBF headers are
// backfilled with progress so far.
func (w *Writer) WriteRecord(fields map[string]any, g geom.T) error {
	const op = "Writer.WriteRecord"
	if w.closed {
		return newError(ErrFileAlreadyInitialized, op, "writer is closed")
	}
	if w.err != nil {
		return w.err
	}

	w.numRecords++
	recordNumber := w.numRecords

	shapeType := w.shapeType
	if g == nil {
		shapeType = ShapeTypeNull
	}
	body, err := EncodeSHPRecord(recordNumber, g, shapeType)
	if err != nil {
		w.err = err
		return err
	}
	if g != nil {
		w.bounds.ExtendGeom(g)
	}
	if _, err := w.sink.SHP.Write(body); err != nil {
		w.err = wrapError(ErrWriteFailed, op, err)
		return w.err
	}

	shxRecord := SHXRecord{Offset: w.shpOffset, ContentLength: len(body) - 8}
	if _, err := w.sink.SHX.Write(shxRecord.Encode()); err != nil {
		w.err = wrapError(ErrWriteFailed, op, err)
		return w.err
	}
	w.shpOffset += len(body)

	row := make([]byte, 0, w.catalog.RecordSize())
	row = append(row, ' ')
	for _, descriptor := range w.catalog.Descriptors() {
		encoded, err := descriptor.Encode(fields[descriptor.Name], w.charset, w.dbt)
		if err != nil {
			w.err = err
			return err
		}
		row = append(row, encoded...)
	}
	if _, err := w.sink.DBF.Write(row); err != nil {
		w.err = wrapError(ErrWriteFailed, op, err)
		return w.err
	}

	if w.numRecords%w.flushInterval == 0 {
		if err := w.flushBuffer(); err != nil {
			w.err = err
			return err
		}
	}
	return nil
}

// flushBuffer backfills the SHP, SHX and DBF headers with the
// currently-known bounds and record count, without closing the writer,
// so the headers reflect the records written so far instead of only
// being correct after Close. The DBF end-of-file marker is written only
// by Close.
func (w *Writer) flushBuffer() error {
	const op = "Writer.flushBuffer"
	bounds := w.bounds
	if w.customBounds != nil {
		bounds = w.customBounds
	}

	if err := rewriteHeader(w.sink.SHP, EncodeSHxHeader(w.shapeType, bounds, int64(w.shpOffset))); err != nil {
		return wrapError(ErrWriteFailed, op, err)
	}
	shxLength := headerSize + 8*w.numRecords
	if err := rewriteHeader(w.sink.SHX, EncodeSHxHeader(w.shapeType, bounds, int64(shxLength))); err != nil {
		return wrapError(ErrWriteFailed, op, err)
	}
	if err := rewriteHeader(w.sink.DBF, w.encodeDBFHeader()); err != nil {
		return wrapError(ErrWriteFailed, op, err)
	}
	return nil
}

// rewriteHeader overwrites f's first len(header) bytes, then restores
// f's position to the end, ready for further appends.
func rewriteHeader(f WriterFile, header []byte) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := f.Write(header); err != nil {
		return err
	}
	_, err := f.Seek(0, io.SeekEnd)
	return err
}

// Flush backfills headers with progress so far without closing the
// writer. WriteRecord calls it automatically every FlushInterval
// records.
func (w *Writer) Flush() error {
	if w.closed {
		return newError(ErrFileAlreadyInitialized, "Writer.Flush", "writer is closed")
	}
	return w.flushBuffer()
}

// SetCustomBoundingBox overrides the bounding box Flush/Close write into
// the SHP/SHX headers, in place of the box accumulated from written
// geometries. Use it to declare an extent known in advance, e.g. when
// appending to a dataset whose final tiling extent isn't recoverable
// from the records written so far.
func (w *Writer) SetCustomBoundingBox(bounds *Bounds) {
	w.customBounds = bounds
}

// ResetCustomBoundingBox discards a bounding box set by
// SetCustomBoundingBox, reverting to the box accumulated from written
// geometries.
func (w *Writer) ResetCustomBoundingBox() {
	w.customBounds = nil
}

// Close backfills the SHP/SHX/DBF headers one last time, writes the DBF
// end-of-file marker, emits the optional PRJ/CPG companions, and closes
// any files OpenWriter opened on the Writer's behalf.
func (w *Writer) Close() error {
	const op = "Writer.Close"
	if w.closed {
		return nil
	}
	w.closed = true
	if w.err != nil {
		return errors.Join(w.err, w.closeAll())
	}

	if err := w.flushBuffer(); err != nil {
		return errors.Join(err, w.closeAll())
	}
	if _, err := w.sink.DBF.Write([]byte{'\x1a'}); err != nil {
		return errors.Join(wrapError(ErrWriteFailed, op, err), w.closeAll())
	}

	if w.sink.PRJ != nil {
		if err := WritePRJ(w.sink.PRJ, w.sink.Projection); err != nil {
			return errors.Join(err, w.closeAll())
		}
	}
	if w.sink.CPG != nil {
		if err := WriteCPG(w.sink.CPG, w.sink.CharsetName); err != nil {
			return errors.Join(err, w.closeAll())
		}
	}

	w.logger.Info("closed shapefile writer", "records", w.numRecords, "shapeType", w.shapeType)
	return w.closeAll()
}

func (w *Writer) closeAll() error {
	var err error
	for _, c := range w.closers {
		err = errors.Join(err, c.Close())
	}
	return err
}

func (w *Writer) encodeDBFHeader() []byte {
	header := make([]byte, dbfHeaderLength)
	flags := byte(3)
	if w.dbt != nil {
		flags |= 0x08
	}
	header[0] = flags
	now := time.Now()
	header[1] = byte(now.Year() - 1900)
	header[2] = byte(now.Month())
	header[3] = byte(now.Day())
	putUint32LE(header[4:8], uint32(w.numRecords))
	recordSize := w.catalog.RecordSize()
	dbfTotalHeaderSize := w.dbfDataStart
	if dbfTotalHeaderSize == 0 {
		dbfTotalHeaderSize = dbfHeaderLength + dbfFieldDescriptorSize*w.catalog.Len() + 1
	}
	putUint16LE(header[8:10], uint16(dbfTotalHeaderSize))
	putUint16LE(header[10:12], uint16(recordSize))
	return header
}

func encodeDBFFieldDescriptor(d *DBFFieldDescriptor) []byte {
	data := make([]byte, dbfFieldDescriptorSize)
	name := d.Name
	if len(name) > 11 {
		name = name[:11]
	}
	copy(data[:11], name)
	data[11] = d.Type
	data[16] = byte(d.Length)
	data[17] = byte(d.DecimalCount)
	data[20] = d.WorkAreaID
	data[23] = d.SetFields
	return data
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putUint16LE(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// Checksum returns an xxhash-64 digest mixing the bytes of the SHP, SHX,
// DBF and (when present) DBT files the Writer committed to, so a caller can verify a written dataset wasn't
// truncated or altered without re-parsing it. It is only valid after
// Close, and re-reads each sink file from the start.
func (w *Writer) Checksum() (uint64, error) {
	if !w.closed {
		return 0, errors.New("shapefile: Checksum called before Close")
	}
	digest := xxhash.New()
	for _, f := range []WriterFile{w.sink.SHP, w.sink.SHX, w.sink.DBF, w.sink.DBT} {
		if f == nil {
			continue
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return 0, err
		}
		if _, err := io.Copy(digest, f); err != nil {
			return 0, err
		}
	}
	return digest.Sum64(), nil
}

// bytesReaderAt adapts a byte slice already read fully into memory to
// io.ReaderAt, for ReadDBT's random-access memo lookups during append
// recovery.
func bytesReaderAt(data []byte) io.ReaderAt {
	return byteSliceReaderAt(data)
}

type byteSliceReaderAt []byte

func (b byteSliceReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// seekBuffer is an in-memory implementation of WriterFile, so tests and
// in-process callers can drive a Writer without touching the
// filesystem.
type seekBuffer struct {
	buf []byte
	pos int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + len(p)
	if end > len(b.buf) {
		grown := make([]byte, end)
		copy(grown, b.buf)
		b.buf = grown
	}
	copy(b.buf[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuffer) Read(p []byte) (int, error) {
	if b.pos >= len(b.buf) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[b.pos:])
	b.pos += n
	return n, nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var newPos int
	switch whence {
	case io.SeekStart:
		newPos = int(offset)
	case io.SeekCurrent:
		newPos = b.pos + int(offset)
	case io.SeekEnd:
		newPos = len(b.buf) + int(offset)
	default:
		return 0, errors.New("shapefile: seekBuffer: invalid whence")
	}
	if newPos < 0 {
		return 0, errors.New("shapefile: seekBuffer: negative position")
	}
	b.pos = newPos
	return int64(newPos), nil
}

func (b *seekBuffer) Bytes() []byte {
	return b.buf
}
