package table

import (
	"encoding/xml"
	"fmt"
	"io"
)

// voTable mirrors the subset of the VOTable schema the archive serves:
// one RESOURCE/TABLE with FIELD declarations and TABLEDATA rows.
// Matching is by local name, so namespace prefixes are irrelevant.
type voTable struct {
	XMLName  xml.Name     `xml:"VOTABLE"`
	Resource []voResource `xml:"RESOURCE"`
}

type voResource struct {
	Tables []voTableElement `xml:"TABLE"`
}

type voTableElement struct {
	Fields []voField `xml:"FIELD"`
	Data   *voData   `xml:"DATA"`
}

type voField struct {
	Name     string `xml:"name,attr"`
	Datatype string `xml:"datatype,attr"`
}

type voData struct {
	TableData *voTableData `xml:"TABLEDATA"`
}

type voTableData struct {
	Rows []voRow `xml:"TR"`
}

type voRow struct {
	Cells []string `xml:"TD"`
}

func readVOTable(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading votable: %w", err)
	}

	var vot voTable
	if err := xml.Unmarshal(raw, &vot); err != nil {
		return nil, fmt.Errorf("decoding votable: %w", err)
	}

	if len(vot.Resource) == 0 || len(vot.Resource[0].Tables) == 0 {
		return nil, fmt.Errorf("votable carries no TABLE element")
	}

	vt := vot.Resource[0].Tables[0]
	if len(vt.Fields) == 0 {
		return nil, fmt.Errorf("votable TABLE declares no FIELD elements")
	}

	tbl := Table{Columns: make([]string, 0, len(vt.Fields))}
	for _, f := range vt.Fields {
		tbl.Columns = append(tbl.Columns, f.Name)
	}

	if vt.Data == nil || vt.Data.TableData == nil {
		return &tbl, nil
	}

	for _, row := range vt.Data.TableData.Rows {
		tbl.Rows = append(tbl.Rows, row.Cells)
	}

	return &tbl, nil
}
