package shapefile

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"time"
)

const (
	dbfHeaderLength        = 32
	dbfFieldDescriptorSize = 32
)

var knownLogicalValues = map[string]any{
	"?": nil,
	"F": false,
	"N": false,
	"T": true,
	"Y": true,
	"f": false,
	"n": false,
	"t": true,
	"y": true,
}

// A DBFHeader is the fixed-size header of a .dbf file.
type DBFHeader struct {
	Version    int
	Memo       bool
	DBT        bool
	LastUpdate time.Time
	Records    int
	HeaderSize int
	RecordSize int
}

// A DBFFieldDescriptor describes one column of a .dbf table.
type DBFFieldDescriptor struct {
	Name         string
	Type         byte
	Length       int
	DecimalCount int
	WorkAreaID   byte
	SetFields    byte
}

// A DBF is a dBase III PLUS table.
//
// See http://web.archive.org/web/20150323061445/http://ulisse.elettra.trieste.it/services/doc/dbase/DBFstruct.htm.
// See https://www.clicketyclick.dk/databases/xbase/format/dbf.html.
type DBF struct {
	DBFHeader
	FieldDescriptors []*DBFFieldDescriptor
	Records          [][]any
}

// DBFMemo is a field value that stores its real content out-of-line, in a
// companion .dbt file. MemoIndex is the block number and text, when
// non-empty, is the resolved memo content (populated only when ReadDBF was
// given the companion DBT via ReadDBFOptions.DBT).
type DBFMemo struct {
	MemoIndex int
	Text      string
}

// ReadDBFOptions configures ReadDBF.
type ReadDBFOptions struct {
	// Charset decodes character fields; when nil, ISO-8859-1 is used.
	Charset *Charset
	// DBT, when set, resolves memo field indices into their text.
	DBT *DBT
}

func ReadDBF(r io.Reader, size int64, options *ReadDBFOptions) (*DBF, error) {
	const op = "ReadDBF"
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

	headerData := make([]byte, dbfHeaderLength)
	if err := readFull(r, headerData); err != nil {
		return nil, wrapError(ErrReadFailed, op, err)
	}
	header, err := ParseDBFHeader(headerData)
	if err != nil {
		return nil, err
	}
	if header.Version != 3 {
		return nil, newError(ErrDBFNotValid, op, fmt.Sprintf("unsupported version %d", header.Version))
	}
	if header.Memo && dbt == nil {
		return nil, newError(ErrMissingField, op, "table declares memo fields but no DBT was provided")
	}

	var fieldDescriptors []*DBFFieldDescriptor
	for i := 0; ; i++ {
		fieldDescriptorData := make([]byte, dbfFieldDescriptorSize)
		if err := readFull(r, fieldDescriptorData[:1]); err != nil {
			return nil, wrapError(ErrReadFailed, op, err)
		}
		if fieldDescriptorData[0] == '\x0d' {
			break
		}
		if err := readFull(r, fieldDescriptorData[1:]); err != nil {
			return nil, wrapError(ErrReadFailed, op, err)
		}

		name := string(TrimTrailingZeros(fieldDescriptorData[:11]))
		fieldType := fieldDescriptorData[11]
		if _, ok := validFieldTypes[fieldType]; !ok {
			return nil, newError(ErrFieldTypeNotValid, op, fmt.Sprintf("field %d: type %q", i, fieldType))
		}
		length := int(fieldDescriptorData[16])
		decimalCount := int(fieldDescriptorData[17])
		workAreaID := fieldDescriptorData[20]
		setFields := fieldDescriptorData[23]

		fieldDescriptors = append(fieldDescriptors, &DBFFieldDescriptor{
			Name:         name,
			Type:         fieldType,
			Length:       length,
			DecimalCount: decimalCount,
			WorkAreaID:   workAreaID,
			SetFields:    setFields,
		})
	}

	records := make([][]any, 0, header.Records)
	for i := 0; i < header.Records; i++ {
		recordData := make([]byte, header.RecordSize)
		if err := readFull(r, recordData); err != nil {
			return nil, wrapError(ErrReadFailed, op, err)
		}
		switch recordData[0] {
		case ' ':
			record := make([]any, 0, len(fieldDescriptors))
			offset := 1
			for _, fieldDescriptor := range fieldDescriptors {
				fieldData := recordData[offset : offset+fieldDescriptor.Length]
				offset += fieldDescriptor.Length
				field, err := fieldDescriptor.Parse(fieldData, charset, dbt)
				if err != nil {
					return nil, newError(ErrDBFNotValid, op, fmt.Sprintf("record %d field %s: %v", i, fieldDescriptor.Name, err))
				}
				record = append(record, field)
			}
			records = append(records, record)
		case '*', '\x1a':
			records = append(records, nil)
		default:
			return nil, newError(ErrDBFNotValid, op, fmt.Sprintf("record %d: invalid deletion flag %q", i, recordData[0]))
		}
	}

	data := make([]byte, 1)
	if err := readFull(r, data); err != nil {
		return nil, wrapError(ErrReadFailed, op, err)
	}
	if data[0] != '\x1a' {
		return nil, newError(ErrDBFNotValid, op, "missing end-of-file marker")
	}

	return &DBF{
		DBFHeader:        *header,
		FieldDescriptors: fieldDescriptors,
		Records:          records,
	}, nil
}

func ParseDBFHeader(data []byte) (*DBFHeader, error) {
	const op = "ParseDBFHeader"
	if len(data) != dbfHeaderLength {
		return nil, newError(ErrDBFNotValid, op, "invalid header length")
	}

	version := int(data[0]) & 0x7
	memo := int(data[0])&0x8 == 0x8
	dbt := int(data[0])&0x80 == 0x80

	lastUpdateYear := int(data[1]) + 1900
	lastUpdateMonth := time.Month(int(data[2]))
	lastUpdateDay := int(data[3])
	lastUpdate := time.Date(lastUpdateYear, lastUpdateMonth, lastUpdateDay, 0, 0, 0, 0, time.UTC)

	records := int(binary.LittleEndian.Uint32(data[4:8]))
	headerSize := int(binary.LittleEndian.Uint16(data[8:10]))
	recordSize := int(binary.LittleEndian.Uint16(data[10:12]))

	return &DBFHeader{
		Version:    version,
		Memo:       memo,
		DBT:        dbt,
		LastUpdate: lastUpdate,
		Records:    records,
		HeaderSize: headerSize,
		RecordSize: recordSize,
	}, nil
}

func ReadDBFZipFile(zipFile *zip.File, options *ReadDBFOptions) (*DBF, error) {
	readCloser, err := zipFile.Open()
	if err != nil {
		return nil, wrapError(ErrOpenFailed, "ReadDBFZipFile", err)
	}
	defer readCloser.Close()
	return ReadDBF(readCloser, int64(zipFile.UncompressedSize64), options)
}

// Record returns the ith record as a name-keyed map, or nil if the record
// was marked deleted.
func (d *DBF) Record(i int) map[string]any {
	if d.Records[i] == nil {
		return nil
	}
	fields := make(map[string]any, len(d.FieldDescriptors))
	record := d.Records[i]
	for j, fieldDescriptor := range d.FieldDescriptors {
		fields[fieldDescriptor.Name] = record[j]
	}
	return fields
}

// Parse decodes one field's raw fixed-width bytes according to d.Type.
// charset decodes character fields; dbt, when non-nil,
// resolves a memo field's block index into its text.
func (d *DBFFieldDescriptor) Parse(data []byte, charset *Charset, dbt *DBT) (any, error) {
	switch d.Type {
	case 'C':
		trimmed := bytes.TrimRight(TrimTrailingZeros(data), " ")
		return charset.Decode(trimmed)
	case 'D':
		return parseDate(data)
	case 'F', 'N':
		fieldStr := string(bytes.TrimSpace(TrimTrailingZeros(data)))
		if fieldStr == "" {
			return nil, nil
		}
		field, err := strconv.ParseFloat(fieldStr, 64)
		if err != nil {
			return nil, newError(ErrNumericValueOverflow, "DBFFieldDescriptor.Parse", fieldStr)
		}
		return field, nil
	case 'L':
		field, ok := knownLogicalValues[string(data)]
		if !ok {
			return nil, newError(ErrDBFNotValid, "DBFFieldDescriptor.Parse", fmt.Sprintf("invalid logical value %q", string(data)))
		}
		return field, nil
	case 'M':
		memoStr := string(bytes.TrimSpace(TrimTrailingZeros(data)))
		if memoStr == "" {
			return DBFMemo{}, nil
		}
		index, err := strconv.Atoi(memoStr)
		if err != nil {
			return nil, newError(ErrDBFNotValid, "DBFFieldDescriptor.Parse", fmt.Sprintf("invalid memo index %q", memoStr))
		}
		memo := DBFMemo{MemoIndex: index}
		if dbt != nil {
			text, err := dbt.ReadMemo(index)
			if err != nil {
				return nil, err
			}
			memo.Text = text
		}
		return memo, nil
	default:
		return nil, newError(ErrFieldTypeNotValid, "DBFFieldDescriptor.Parse", string(d.Type))
	}
}

func TrimTrailingZeros(data []byte) []byte {
	for i := len(data) - 1; i >= 0; i-- {
		if data[i] != '\x00' {
			return data[:i+1]
		}
	}
	return nil
}

func parseDate(data []byte) (time.Time, error) {
	if len(data) != 8 {
		return time.Time{}, newError(ErrDBFNotValid, "parseDate", "date field must be 8 bytes")
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return time.Time{}, nil
	}
	year, err := strconv.ParseInt(string(data[:4]), 10, 64)
	if err != nil {
		return time.Time{}, newError(ErrDBFNotValid, "parseDate", fmt.Sprintf("invalid year %q", string(data[:4])))
	}
	month, err := strconv.ParseInt(string(data[4:6]), 10, 64)
	if err != nil {
		return time.Time{}, newError(ErrDBFNotValid, "parseDate", fmt.Sprintf("invalid month %q", string(data[4:6])))
	}
	day, err := strconv.ParseInt(string(data[6:8]), 10, 64)
	if err != nil {
		return time.Time{}, newError(ErrDBFNotValid, "parseDate", fmt.Sprintf("invalid day %q", string(data[6:8])))
	}
	return time.Date(int(year), time.Month(month), int(day), 0, 0, 0, 0, time.UTC), nil
}
