package archive

import (
	"net/url"
	"strconv"
)

// Criteria are the structured search parameters accepted by the
// archive's query-builder endpoint. Datalevel is required; every other
// field narrows the search when set.
type Criteria struct {
	// Datalevel selects the data product table: l0, l1, l2, or eng.
	Datalevel string `json:"datalevel" validate:"required,oneof=l0 l1 l2 eng"`

	// Datetime constrains observation time as an ISO range,
	// "2021-01-01 00:00:00/2021-02-01 00:00:00". An open range leaves
	// one side of the slash empty.
	Datetime string `json:"datetime" validate:"omitempty,datetimerange"`

	// Position is a spatial constraint, "circle <ra> <dec> <radius>"
	// in decimal degrees.
	Position string `json:"position" validate:"omitempty,min=3"`

	// Target is an object name to resolve into a position.
	Target string `json:"target" validate:"omitempty"`

	// Object matches the target name recorded in the metadata, without
	// any resolution.
	Object string `json:"object" validate:"omitempty"`

	// Qobject is the archive's qualified object name column.
	Qobject string `json:"qobject" validate:"omitempty"`

	// PIName matches the principal investigator, "last, first".
	PIName string `json:"piname" validate:"omitempty"`

	// Program is an observing program ID.
	Program string `json:"program" validate:"omitempty"`

	// Columns is a comma-separated list of output columns. Empty
	// selects the table's default column set.
	Columns string `json:"columns" validate:"omitempty"`
}

// values flattens the criteria into the query-builder's form
// parameters. Zero-valued fields are omitted.
func (c Criteria) values(format string, maxrec int) url.Values {
	vals := url.Values{}
	vals.Set("datalevel", c.Datalevel)
	vals.Set("format", format)

	if maxrec > 0 {
		vals.Set("maxrec", strconv.Itoa(maxrec))
	}

	for key, val := range map[string]string{
		"datetime": c.Datetime,
		"position": c.Position,
		"target":   c.Target,
		"object":   c.Object,
		"qobject":  c.Qobject,
		"piname":   c.PIName,
		"program":  c.Program,
		"columns":  c.Columns,
	} {
		if val != "" {
			vals.Set(key, val)
		}
	}

	return vals
}
