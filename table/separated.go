package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// readSeparated parses comma- or tab-separated data. The first record
// is the header row.
func readSeparated(r io.Reader, comma rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("table has no header row")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	tbl := Table{Columns: header}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(tbl.Rows)+1, err)
		}

		tbl.Rows = append(tbl.Rows, record)
	}

	return &tbl, nil
}

func (t *Table) writeSeparated(w io.Writer, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma

	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	cw.Flush()

	return cw.Error()
}
