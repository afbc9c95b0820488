// Package table reads and writes the tabular result formats served by
// the archive: votable, ipac, csv, and tsv. Values are kept as strings;
// interpreting column types is left to the caller.
package table

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Format names a tabular serialization understood by the archive.
type Format int

const (
	FormatVOTable Format = iota
	FormatIPAC
	FormatCSV
	FormatTSV
)

// ErrUnknownFormat is returned for format names outside the supported set.
var ErrUnknownFormat = errors.New("unknown table format")

// ParseFormat maps a format name (case-insensitive) to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "votable":
		return FormatVOTable, nil
	case "ipac":
		return FormatIPAC, nil
	case "csv":
		return FormatCSV, nil
	case "tsv":
		return FormatTSV, nil
	default:
		return FormatVOTable, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

func (f Format) String() string {
	switch f {
	case FormatIPAC:
		return "ipac"
	case FormatCSV:
		return "csv"
	case FormatTSV:
		return "tsv"
	default:
		return "votable"
	}
}

// Ext returns the conventional file extension for the format.
func (f Format) Ext() string {
	switch f {
	case FormatIPAC:
		return "tbl"
	case FormatCSV:
		return "csv"
	case FormatTSV:
		return "tsv"
	default:
		return "xml"
	}
}

// Table is an in-memory result set: named columns and string-valued rows.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the index of the named column, matching
// case-insensitively, or -1 when absent.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if strings.EqualFold(col, name) {
			return i
		}
	}

	return -1
}

// Read parses r in the given format.
func Read(r io.Reader, f Format) (*Table, error) {
	switch f {
	case FormatVOTable:
		return readVOTable(r)
	case FormatIPAC:
		return readIPAC(r)
	case FormatCSV:
		return readSeparated(r, ',')
	case FormatTSV:
		return readSeparated(r, '\t')
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, f)
	}
}

// ReadFile parses the file at path in the given format.
func ReadFile(path string, f Format) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table file: %w", err)
	}
	defer file.Close()

	tbl, err := Read(file, f)
	if err != nil {
		return nil, fmt.Errorf("reading %s table %s: %w", f, path, err)
	}

	return tbl, nil
}

// Write serializes the table to w in the given format. VOTable output
// is not supported; the archive always serves votable, never asks for it.
func (t *Table) Write(w io.Writer, f Format) error {
	switch f {
	case FormatIPAC:
		return t.writeIPAC(w)
	case FormatCSV:
		return t.writeSeparated(w, ',')
	case FormatTSV:
		return t.writeSeparated(w, '\t')
	default:
		return fmt.Errorf("%w: writing %s is not supported", ErrUnknownFormat, f)
	}
}

// WriteFile serializes the table to the file at path, overwriting it.
func (t *Table) WriteFile(path string, f Format) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating table file: %w", err)
	}

	if err := t.Write(file, f); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}
