package shapefile

import (
	"fmt"
	"strconv"
	"time"
)

// Encode renders value as d's fixed-width, space-padded field bytes, the
// write-side counterpart to Parse. A nil value encodes as blanks for every
// field type except logical, which encodes nil as '?'. dbt, when non-nil, is where a memo field's text is
// appended; its returned block index is what gets encoded into the field.
func (d *DBFFieldDescriptor) Encode(value any, charset *Charset, dbt *DBTWriter) ([]byte, error) {
	const op = "DBFFieldDescriptor.Encode"
	data := make([]byte, d.Length)
	for i := range data {
		data[i] = ' '
	}

	switch d.Type {
	case 'C':
		s, _ := value.(string)
		encoded, err := charset.Encode(s)
		if err != nil {
			return nil, err
		}
		if len(encoded) > d.Length {
			encoded = encoded[:d.Length]
		}
		copy(data, encoded)
		return data, nil

	case 'D':
		t, ok := value.(time.Time)
		if !ok || t.IsZero() {
			return data, nil
		}
		copy(data, []byte(t.Format("20060102")))
		return data, nil

	case 'F', 'N':
		if value == nil {
			return data, nil
		}
		f, err := toFloat64(value)
		if err != nil {
			return nil, newError(ErrNumericValueOverflow, op, fmt.Sprintf("%v", value))
		}
		formatted := strconv.FormatFloat(f, 'f', d.DecimalCount, 64)
		if len(formatted) > d.Length {
			return nil, newError(ErrNumericValueOverflow, op, formatted)
		}
		copy(data[d.Length-len(formatted):], formatted)
		return data, nil

	case 'L':
		switch b, _ := value.(bool); {
		case value == nil:
			data[0] = '?'
		case b:
			data[0] = 'T'
		default:
			data[0] = 'F'
		}
		return data, nil

	case 'M':
		if value == nil || dbt == nil {
			return data, nil
		}
		text, _ := value.(string)
		blockIndex, err := dbt.WriteMemo(text)
		if err != nil {
			return nil, err
		}
		formatted := strconv.Itoa(blockIndex)
		copy(data[d.Length-len(formatted):], formatted)
		return data, nil

	default:
		return nil, newError(ErrFieldTypeNotValid, op, string(d.Type))
	}
}

func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", value)
	}
}
