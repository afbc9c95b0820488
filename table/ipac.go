package table

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// readIPAC parses an IPAC ASCII table: backslash-prefixed keyword
// lines, pipe-delimited header lines (names first, then optional
// types/units/nulls), and fixed-width data rows aligned to the pipe
// positions of the name header.
func readIPAC(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var tbl Table
	var bounds []int

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "\\"):
			// Keyword/comment line; carries no tabular data.
			continue

		case strings.HasPrefix(line, "|"):
			if tbl.Columns != nil {
				// Type, unit, or null header line.
				continue
			}

			bounds = pipePositions(line)
			if len(bounds) < 2 {
				return nil, fmt.Errorf("ipac header line has no columns")
			}

			for i := 0; i < len(bounds)-1; i++ {
				name := strings.TrimSpace(sliceLine(line, bounds[i]+1, bounds[i+1]))
				tbl.Columns = append(tbl.Columns, name)
			}

		default:
			if tbl.Columns == nil {
				return nil, fmt.Errorf("ipac data row before header line")
			}

			row := make([]string, 0, len(tbl.Columns))
			for i := 0; i < len(bounds)-1; i++ {
				row = append(row, strings.TrimSpace(sliceLine(line, bounds[i]+1, bounds[i+1])))
			}
			tbl.Rows = append(tbl.Rows, row)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning ipac table: %w", err)
	}

	if tbl.Columns == nil {
		return nil, fmt.Errorf("ipac table has no header line")
	}

	return &tbl, nil
}

func (t *Table) writeIPAC(w io.Writer) error {
	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = len(col)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	b.WriteString("|")
	for i, col := range t.Columns {
		fmt.Fprintf(&b, "%-*s|", widths[i], col)
	}
	b.WriteString("\n")

	for _, row := range t.Rows {
		b.WriteString(" ")
		for i := range t.Columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			fmt.Fprintf(&b, "%-*s ", widths[i], cell)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())

	return err
}

// pipePositions returns the byte offsets of every '|' in the header line.
func pipePositions(line string) []int {
	var positions []int
	for i, r := range line {
		if r == '|' {
			positions = append(positions, i)
		}
	}

	return positions
}

// sliceLine extracts [from, to) from line, tolerating short data rows.
func sliceLine(line string, from, to int) string {
	if from >= len(line) {
		return ""
	}
	if to > len(line) {
		to = len(line)
	}

	return line[from:to]
}
