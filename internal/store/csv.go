package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// ParseError reports a malformed row store file.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Row is one record of a row store: the date cell and the remaining fields.
type Row struct {
	Date   string
	Fields []string
}

// Record returns the row as a CSV record.
func (r Row) Record() []string {
	rec := make([]string, 0, len(r.Fields)+1)
	rec = append(rec, r.Date)
	return append(rec, r.Fields...)
}

// RowStore is the content of one CSV file in file order.
type RowStore struct {
	Path string
	Rows []Row
}

// Load reads the whole file at path. Nothing is cached; every call hits the disk.
func Load(path string) (*RowStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open row store: %w", err)
	}
	defer f.Close()

	rs := &RowStore{Path: path}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &ParseError{Path: path, Line: perr.Line, Err: perr.Err}
			}
			return nil, fmt.Errorf("read row store %s: %w", path, err)
		}
		rs.Rows = append(rs.Rows, Row{Date: rec[0], Fields: rec[1:]})
	}

	return rs, nil
}

// Find returns the first row whose date cell equals date.
func (s *RowStore) Find(date string) (Row, bool) {
	i, ok := s.IndexOf(date)
	if !ok {
		return Row{}, false
	}
	return s.Rows[i], true
}

// IndexOf returns the zero-based position of the first row whose date cell equals date.
func (s *RowStore) IndexOf(date string) (int, bool) {
	for i, row := range s.Rows {
		if row.Date == date {
			return i, true
		}
	}
	return -1, false
}

// All yields the rows one at a time in file order.
func (s *RowStore) All() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i, row := range s.Rows {
			if !yield(i, row) {
				return
			}
		}
	}
}

// SplitHeader separates a leading header row from the data rows. The first
// row is a header only when its date cell holds no digits; a malformed date
// stays in the data so that date parsing rejects it.
func (s *RowStore) SplitHeader() (*Row, []Row) {
	if len(s.Rows) == 0 {
		return nil, nil
	}
	if !isHeaderCell(s.Rows[0].Date) {
		return nil, s.Rows
	}
	header := s.Rows[0]
	return &header, s.Rows[1:]
}

func isHeaderCell(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	return !strings.ContainsAny(v, "0123456789")
}

// Dates returns the set of date cells present in the store.
func (s *RowStore) Dates() map[string]struct{} {
	dates := make(map[string]struct{}, len(s.Rows))
	for _, row := range s.Rows {
		dates[row.Date] = struct{}{}
	}
	return dates
}

// WriteFile replaces path with the given header (optional) and rows. The
// content is written to a temporary file in the same directory and renamed
// into place, so readers see either the old or the new file.
func WriteFile(path string, header []string, records [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}

	w := csv.NewWriter(tmp)
	if header != nil {
		if err := w.Write(header); err != nil {
			tmp.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Append adds rows to the end of path. When the file does not exist yet it
// is created and header is written first.
func Append(path string, header []string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}

	_, statErr := os.Stat(path)
	created := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if created && header != nil {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write header to %s: %w", path, err)
		}
	}
	for _, row := range rows {
		if err := w.Write(row.Record()); err != nil {
			return fmt.Errorf("append to %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
