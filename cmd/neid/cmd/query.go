package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caltech-ipac/goneid/archive"
	"github.com/caltech-ipac/goneid/table"
	"github.com/caltech-ipac/goneid/tap"
)

func newQueryCmd(flags *rootFlags) *cobra.Command {
	var (
		criteria archive.Criteria
		adql     string
		outpath  string
		radius   float64
	)

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Run a metadata query",
		Long: `Run a metadata query against the archive's TAP service.

Criteria flags are combined with AND. Alternatively --adql submits a
raw ADQL statement and ignores the criteria flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := flags.buildArchive()
			if err != nil {
				return err
			}

			var queryOpts []archive.QueryOption
			if outpath != "" {
				queryOpts = append(queryOpts, archive.WithOutputPath(outpath))
			}
			if radius > 0 {
				queryOpts = append(queryOpts, archive.WithRadius(radius))
			}

			if adql != "" {
				result, err := a.QueryADQL(cmd.Context(), adql, queryOpts...)
				if err != nil {
					return err
				}
				return printOutcome(result, outpath)
			}

			result, err := a.QueryCriteria(cmd.Context(), criteria, queryOpts...)
			if err != nil {
				return err
			}
			return printOutcome(result, outpath)
		},
	}

	queryCmd.Flags().StringVar(&criteria.Datalevel, "datalevel", "", "data level: l0, l1, l2, or eng")
	queryCmd.Flags().StringVar(&criteria.Datetime, "datetime", "", "ISO datetime range, start/end")
	queryCmd.Flags().StringVar(&criteria.Position, "position", "", "spatial constraint, 'circle ra dec radius'")
	queryCmd.Flags().StringVar(&criteria.Target, "target", "", "object name to resolve into a position")
	queryCmd.Flags().StringVar(&criteria.Object, "object", "", "exact object name recorded in the metadata")
	queryCmd.Flags().StringVar(&criteria.Qobject, "qobject", "", "qualified object name")
	queryCmd.Flags().StringVar(&criteria.PIName, "piname", "", "principal investigator, 'last, first'")
	queryCmd.Flags().StringVar(&criteria.Program, "program", "", "observing program ID")
	queryCmd.Flags().StringVar(&criteria.Columns, "columns", "", "comma-separated output columns")
	queryCmd.Flags().StringVar(&adql, "adql", "", "raw ADQL statement")
	queryCmd.Flags().StringVarP(&outpath, "out", "o", "", "write the result table to this file")
	queryCmd.Flags().Float64Var(&radius, "radius", 0, "cone search radius in degrees for --target")

	return queryCmd
}

// printOutcome reports the query result on stdout. In-memory results
// render as CSV since VOTable has no writer.
func printOutcome(outcome *tap.Outcome, outpath string) error {
	fmt.Fprintln(os.Stdout, outcome.Message)

	if outpath == "" && outcome.Table != nil {
		fmt.Fprintf(os.Stdout, "%d rows, %d columns\n", len(outcome.Table.Rows), len(outcome.Table.Columns))
		if err := outcome.Table.Write(os.Stdout, table.FormatCSV); err != nil {
			return err
		}
	}

	return nil
}
