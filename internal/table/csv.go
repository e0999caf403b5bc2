package table

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrEmptyInput is returned when the input has no header line.
	ErrEmptyInput = errors.New("dataset is empty")
	// ErrInvalidHeader is returned when a header name is blank or repeated.
	ErrInvalidHeader = errors.New("invalid header")
	// ErrUnsupportedFormat is returned by LoadFile for non-CSV files.
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
)

// LoadFile reads a CSV file from disk. The table is named after the file.
func LoadFile(path string) (*Table, error) {
	if err := checkExt(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadNamed(filepath.Base(path), f)
}

// ReadNamed parses an uploaded file named name.
func ReadNamed(name string, r io.Reader) (*Table, error) {
	if err := checkExt(name); err != nil {
		return nil, err
	}
	t, err := ParseCSV(r)
	if err != nil {
		return nil, err
	}
	t.Name = filepath.Base(name)
	return t, nil
}

func checkExt(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".csv" && ext != ".txt" {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(name))
	}
	return nil
}

// ParseCSV parses the simple comma-separated dialect: the first line holds the
// headers, every later line one row. Lines are split on ',' with no quoting or
// escaping. Lines whose field count differs from the header are dropped.
// Fields are trimmed and stored as float64 when numeric, otherwise as string.
func ParseCSV(r io.Reader) (*Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return nil, ErrEmptyInput
	}
	lines := strings.Split(text, "\n")

	headers := strings.Split(lines[0], ",")
	seen := make(map[string]struct{}, len(headers))
	for i := range headers {
		h := strings.TrimSpace(headers[i])
		if h == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrInvalidHeader, i+1)
		}
		if _, dup := seen[h]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidHeader, h)
		}
		seen[h] = struct{}{}
		headers[i] = h
	}

	t := &Table{Columns: headers, Rows: make([]Row, 0, len(lines)-1)}
	for _, line := range lines[1:] {
		fields := strings.Split(line, ",")
		if len(fields) != len(headers) {
			continue
		}
		row := make(Row, len(headers))
		for i, h := range headers {
			row[h] = parseValue(strings.TrimSpace(fields[i]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// parseValue keeps empty fields as "" and only accepts finite numbers.
func parseValue(s string) Value {
	if s == "" {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return s
	}
	return f
}
