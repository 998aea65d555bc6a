// Package recordfile implements line-oriented storage of fixed-schema
// comma-delimited records. Every multi-line rewrite goes through a temp file
// and an atomic rename so a crash can never leave a file half-written.
//
// Fields are stored verbatim with no escaping: a field containing the
// delimiter corrupts column alignment. Callers own that constraint.
package recordfile

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Delimiter separates fields within a record line.
const Delimiter = ","

// ErrNotFound reports that no record line carries the requested identifier.
var ErrNotFound = errors.New("record not found")

// File is one delimited record file. The zero value is not usable; create
// with New or NewTrailing.
type File struct {
	path string

	// trailingDelim writes a delimiter after the last field, matching the
	// legacy layout of the user and admin record files.
	trailingDelim bool
}

// New returns a File for path. The file need not exist yet; a missing file
// reads as empty.
func New(path string) *File {
	return &File{path: path}
}

// NewTrailing returns a File whose records end with a trailing delimiter.
func NewTrailing(path string) *File {
	return &File{path: path, trailingDelim: true}
}

// Path returns the underlying file path.
func (f *File) Path() string {
	return f.path
}

// Records reads and decodes every record line, preserving file order.
func (f *File) Records() ([][]string, error) {
	lines, err := f.readLines()
	if err != nil {
		return nil, err
	}
	records := make([][]string, 0, len(lines))
	for _, line := range lines {
		records = append(records, f.parse(line))
	}
	return records, nil
}

// FindLine scans for the first line whose identifier field (the text before
// the first delimiter) equals id and returns its index. A truncated or empty
// id never matches a longer identifier. Returns ErrNotFound if no line
// matches.
func (f *File) FindLine(id string) (int, error) {
	lines, err := f.readLines()
	if err != nil {
		return -1, err
	}
	for i, line := range lines {
		field := line
		if cut := strings.Index(line, Delimiter); cut >= 0 {
			field = line[:cut]
		}
		if field == id {
			return i, nil
		}
	}
	return -1, ErrNotFound
}

// Record returns the decoded record for id along with its line index.
func (f *File) Record(id string) ([]string, int, error) {
	idx, err := f.FindLine(id)
	if err != nil {
		return nil, -1, err
	}
	records, err := f.Records()
	if err != nil {
		return nil, -1, err
	}
	return records[idx], idx, nil
}

// Append writes one record to the end of the file. Used for creation and for
// the append-only logs.
func (f *File) Append(fields []string) error {
	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s for append: %w", f.path, err)
	}
	_, werr := fh.WriteString(f.format(fields))
	cerr := fh.Close()
	if werr != nil {
		return fmt.Errorf("failed to append to %s: %w", f.path, werr)
	}
	if cerr != nil {
		return fmt.Errorf("failed to close %s after append: %w", f.path, cerr)
	}
	return nil
}

// ReplaceLine rewrites the whole file with the record at index replaced.
func (f *File) ReplaceLine(index int, fields []string) error {
	records, err := f.Records()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(records) {
		return fmt.Errorf("line %d out of range for %s (%d records)", index, f.path, len(records))
	}
	records[index] = fields
	return f.WriteAll(records)
}

// DeleteLine rewrites the whole file with the record at index omitted.
func (f *File) DeleteLine(index int) error {
	records, err := f.Records()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(records) {
		return fmt.Errorf("line %d out of range for %s (%d records)", index, f.path, len(records))
	}
	records = append(records[:index], records[index+1:]...)
	return f.WriteAll(records)
}

// WriteAll atomically replaces the file contents with the given records.
func (f *File) WriteAll(records [][]string) error {
	var b strings.Builder
	for _, rec := range records {
		b.WriteString(f.format(rec))
	}

	// Atomic write pattern: write to temp file, then rename.
	tempFile := f.path + ".tmp"
	if err := os.WriteFile(tempFile, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write temp file for %s: %w", f.path, err)
	}
	if err := os.Rename(tempFile, f.path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file over %s: %w", f.path, err)
	}
	return nil
}

// Clear atomically truncates the file to zero records.
func (f *File) Clear() error {
	return f.WriteAll(nil)
}

func (f *File) readLines() ([]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist yet, treat as empty.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	raw := strings.Split(string(data), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (f *File) parse(line string) []string {
	fields := strings.Split(line, Delimiter)
	if f.trailingDelim && len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

func (f *File) format(fields []string) string {
	line := strings.Join(fields, Delimiter)
	if f.trailingDelim {
		line += Delimiter
	}
	return line + "\n"
}
