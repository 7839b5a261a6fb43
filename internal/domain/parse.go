package domain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Columns is the fixed column order of the ASCII input format.
var Columns = []string{"PLATFORM", "OBTYPE", "CHANNEL", "LONGITUDE", "LATITUDE", "PRESSURE", "IMPACT", "OMF", "OBERR"}

var errFieldCount = errors.New("wrong number of fields")

// ReadASCII parses whitespace-delimited records from r, stamping every row
// with date. Blank lines are skipped. The first malformed line aborts the
// whole batch with a *ParseError; no partial table is returned.
func ReadASCII(r io.Reader, date time.Time) (Table, error) {
	date = normalizeTime(date)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var records []Record
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		rec, err := parseFields(line, date, fields)
		if err != nil {
			return Table{}, err
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return Table{}, fmt.Errorf("read ascii: %w", err)
	}
	return Table{records: records}, nil
}

// ReadASCIIFile opens path and parses it with ReadASCII.
func ReadASCIIFile(path string, date time.Time) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := ReadASCII(f, date)
	if err != nil {
		return Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func parseFields(line int, date time.Time, fields []string) (Record, error) {
	if len(fields) != len(Columns) {
		return Record{}, &ParseError{
			Line: line,
			Err:  fmt.Errorf("%w: got %d, want %d", errFieldCount, len(fields), len(Columns)),
		}
	}

	channel, err := strconv.Atoi(fields[2])
	if err != nil {
		return Record{}, &ParseError{Line: line, Field: Columns[2], Value: fields[2], Err: err}
	}

	var nums [6]float64
	for i := range nums {
		col := 3 + i
		v, err := strconv.ParseFloat(fields[col], 64)
		if err != nil {
			return Record{}, &ParseError{Line: line, Field: Columns[col], Value: fields[col], Err: err}
		}
		nums[i] = v
	}

	return Record{
		Key:       Key{DateTime: date, Platform: fields[0], ObType: fields[1], Channel: channel},
		Longitude: nums[0],
		Latitude:  nums[1],
		Pressure:  nums[2],
		Impact:    nums[3],
		OMF:       nums[4],
		ObErr:     nums[5],
	}, nil
}

// FromRows converts in-memory rows shaped like the ASCII columns into a
// Table. Numeric cells may be any Go integer or float type, or a numeric
// string.
func FromRows(date time.Time, rows [][]any) (Table, error) {
	date = normalizeTime(date)
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		rec, err := parseRow(i, date, row)
		if err != nil {
			return Table{}, err
		}
		records = append(records, rec)
	}
	return Table{records: records}, nil
}

func parseRow(idx int, date time.Time, row []any) (Record, error) {
	if len(row) != len(Columns) {
		return Record{}, &ParseError{
			Line: idx,
			Err:  fmt.Errorf("%w: got %d, want %d", errFieldCount, len(row), len(Columns)),
		}
	}

	platform, err := cellString(row[0])
	if err != nil {
		return Record{}, &ParseError{Line: idx, Field: Columns[0], Value: fmt.Sprint(row[0]), Err: err}
	}
	obtype, err := cellString(row[1])
	if err != nil {
		return Record{}, &ParseError{Line: idx, Field: Columns[1], Value: fmt.Sprint(row[1]), Err: err}
	}
	channel, err := cellInt(row[2])
	if err != nil {
		return Record{}, &ParseError{Line: idx, Field: Columns[2], Value: fmt.Sprint(row[2]), Err: err}
	}

	var nums [6]float64
	for i := range nums {
		col := 3 + i
		v, err := cellFloat(row[col])
		if err != nil {
			return Record{}, &ParseError{Line: idx, Field: Columns[col], Value: fmt.Sprint(row[col]), Err: err}
		}
		nums[i] = v
	}

	return Record{
		Key:       Key{DateTime: date, Platform: platform, ObType: obtype, Channel: channel},
		Longitude: nums[0],
		Latitude:  nums[1],
		Pressure:  nums[2],
		Impact:    nums[3],
		OMF:       nums[4],
		ObErr:     nums[5],
	}, nil
}

func cellString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func cellInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func cellFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
