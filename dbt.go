package shapefile

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// dBase III memo files store fixed 512-byte blocks; unlike FoxPro's .fpt,
// there is no per-block length prefix — a memo simply runs until a
// double-0x1A terminator, and the field referencing it stores the starting
// block number as ASCII decimal text, not a binary offset.
const (
	dbtBlockSize  = 512
	dbtHeaderSize = 512
)

var dbtTerminator = []byte{0x1a, 0x1a}

// A DBTHeader is the fixed-size header of a .dbt memo file.
type DBTHeader struct {
	NextFreeBlock int
	BlockSize     int
}

// A DBT provides random-access reads of memo blocks in a companion .dbt
// file, addressed by the block index a DBF memo field stores.
type DBT struct {
	DBTHeader
	r io.ReaderAt
}

// ReadDBT opens a .dbt memo file for lookup via ReadMemo.
func ReadDBT(r io.ReaderAt, size int64) (*DBT, error) {
	const op = "ReadDBT"
	if size < dbtHeaderSize {
		return nil, newError(ErrDBFNotValid, op, "DBT file too short")
	}
	header := make([]byte, dbtHeaderSize)
	if _, err := r.ReadAt(header, 0); err != nil {
		return nil, wrapError(ErrReadFailed, op, err)
	}
	nextFreeBlock := int(binary.LittleEndian.Uint32(header[0:4]))
	blockSize := dbtBlockSize
	if bs := binary.LittleEndian.Uint16(header[20:22]); bs != 0 {
		blockSize = int(bs)
	}
	return &DBT{
		DBTHeader: DBTHeader{NextFreeBlock: nextFreeBlock, BlockSize: blockSize},
		r:         r,
	}, nil
}

// ReadDBTZipFile reads a DBT from a *zip.File, buffering it fully since
// zip entries aren't seekable.
func ReadDBTZipFile(zipFile *zip.File) (*DBT, error) {
	readCloser, err := zipFile.Open()
	if err != nil {
		return nil, wrapError(ErrOpenFailed, "ReadDBTZipFile", err)
	}
	defer readCloser.Close()
	data, err := io.ReadAll(readCloser)
	if err != nil {
		return nil, wrapError(ErrReadFailed, "ReadDBTZipFile", err)
	}
	return ReadDBT(bytes.NewReader(data), int64(len(data)))
}

// ReadMemo returns the text stored at blockIndex, scanning forward across
// blocks until the double-0x1A terminator. A blockIndex of 0 (the
// convention for "no memo") returns an empty string.
func (d *DBT) ReadMemo(blockIndex int) (string, error) {
	const op = "DBT.ReadMemo"
	if blockIndex <= 0 {
		return "", nil
	}
	var buf bytes.Buffer
	block := make([]byte, d.BlockSize)
	offset := int64(blockIndex) * int64(d.BlockSize)
	for {
		n, err := d.r.ReadAt(block, offset)
		if n == 0 && err != nil {
			return "", newError(ErrDBTEOFReached, op, fmt.Sprintf("block %d", blockIndex))
		}
		data := block[:n]
		if idx := bytes.Index(data, dbtTerminator); idx >= 0 {
			buf.Write(data[:idx])
			return buf.String(), nil
		}
		buf.Write(data)
		if err != nil {
			return buf.String(), nil
		}
		offset += int64(n)
	}
}

// A DBTWriter appends memo blocks to a .dbt file and backfills its header's
// next-free-block counter after every write, the same backfill-as-you-go
// discipline the SHP/SHX/DBF writer uses for its own headers.
type DBTWriter struct {
	w             io.WriteSeeker
	nextFreeBlock int
	blockSize     int
}

// NewDBTWriter creates a fresh .dbt file on w, writing its initial header.
func NewDBTWriter(w io.WriteSeeker) (*DBTWriter, error) {
	dw := &DBTWriter{w: w, nextFreeBlock: 1, blockSize: dbtBlockSize}
	if err := dw.writeHeader(); err != nil {
		return nil, err
	}
	return dw, nil
}

func (dw *DBTWriter) writeHeader() error {
	const op = "DBTWriter.writeHeader"
	header := make([]byte, dbtHeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], uint32(dw.nextFreeBlock))
	binary.LittleEndian.PutUint16(header[20:22], uint16(dw.blockSize))
	if _, err := dw.w.Seek(0, io.SeekStart); err != nil {
		return wrapError(ErrWriteFailed, op, err)
	}
	if _, err := dw.w.Write(header); err != nil {
		return wrapError(ErrWriteFailed, op, err)
	}
	return nil
}

// WriteMemo appends text as a new memo, padding its final block and
// terminating it with a double-0x1A marker, and returns the block index
// the owning DBF field should store.
func (dw *DBTWriter) WriteMemo(text string) (int, error) {
	const op = "DBTWriter.WriteMemo"
	blockIndex := dw.nextFreeBlock
	data := append([]byte(text), dbtTerminator...)
	numBlocks := (len(data) + dw.blockSize - 1) / dw.blockSize
	padded := make([]byte, numBlocks*dw.blockSize)
	copy(padded, data)

	offset := int64(blockIndex) * int64(dw.blockSize)
	if _, err := dw.w.Seek(offset, io.SeekStart); err != nil {
		return 0, wrapError(ErrWriteFailed, op, err)
	}
	if _, err := dw.w.Write(padded); err != nil {
		return 0, wrapError(ErrWriteFailed, op, err)
	}

	dw.nextFreeBlock += numBlocks
	if err := dw.writeHeader(); err != nil {
		return 0, err
	}
	return blockIndex, nil
}
