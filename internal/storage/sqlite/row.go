package sqlite

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// RowSet is the result of a read statement.
type RowSet struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (rs RowSet) Len() int {
	return len(rs.Rows)
}

// Row is one result row: values in column order, addressable by column name.
type Row struct {
	columns []string
	values  []any
}

// Value returns the raw driver value of the named column.
func (r Row) Value(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

// Reader starts a typed read of the row. The first conversion failure is
// kept and reported by Err; later reads return zero values.
func (r Row) Reader() *RowReader {
	return &RowReader{row: r}
}

// RowReader maps a generic Row onto typed fields.
type RowReader struct {
	row Row
	err error
}

// Err returns the first error met while reading.
func (rr *RowReader) Err() error {
	return rr.err
}

func (rr *RowReader) value(column string) any {
	if rr.err != nil {
		return nil
	}
	v, ok := rr.row.Value(column)
	if !ok {
		rr.err = fmt.Errorf("column %q not in result", column)
		return nil
	}
	return v
}

func (rr *RowReader) fail(column string, v any, want string) {
	rr.err = fmt.Errorf("column %q: cannot read %T as %s", column, v, want)
}

// Int64 reads a non-null integer column.
func (rr *RowReader) Int64(column string) int64 {
	v := rr.value(column)
	if rr.err != nil {
		return 0
	}
	n, ok := toInt64(v)
	if !ok {
		rr.fail(column, v, "integer")
	}
	return n
}

// OptionalInt64 reads a nullable integer column; NULL yields nil.
func (rr *RowReader) OptionalInt64(column string) *int64 {
	v := rr.value(column)
	if rr.err != nil || v == nil {
		return nil
	}
	n, ok := toInt64(v)
	if !ok {
		rr.fail(column, v, "integer")
		return nil
	}
	return &n
}

// String reads a text column; NULL yields "".
func (rr *RowReader) String(column string) string {
	v := rr.value(column)
	if rr.err != nil {
		return ""
	}
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		rr.fail(column, v, "text")
		return ""
	}
}

// Time reads a timestamp column stored either natively or as text.
func (rr *RowReader) Time(column string) time.Time {
	v := rr.value(column)
	if rr.err != nil {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		return rr.parseTime(column, t)
	case []byte:
		return rr.parseTime(column, string(t))
	case int64:
		return time.Unix(t, 0).UTC()
	default:
		rr.fail(column, v, "timestamp")
		return time.Time{}
	}
}

func (rr *RowReader) parseTime(column, raw string) time.Time {
	s := strings.TrimSuffix(raw, "Z")
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}
	rr.err = fmt.Errorf("column %q: unrecognized timestamp %q", column, raw)
	return time.Time{}
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case []byte:
		n, err := strconv.ParseInt(string(t), 10, 64)
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil
	}
	return 0, false
}
