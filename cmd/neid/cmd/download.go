package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caltech-ipac/goneid/archive"
	"github.com/caltech-ipac/goneid/table"
)

func newDownloadCmd(flags *rootFlags) *cobra.Command {
	var (
		metaPath    string
		metaFormat  string
		datalevel   string
		outDir      string
		startRow    int
		endRow      int
		concurrency int
	)

	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Fetch the FITS files a metadata table names",
		Long: `Fetch the FITS files named by a metadata table saved from an earlier
query. Files already present in the output directory are skipped, so an
interrupted run can simply be restarted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := flags.buildArchive()
			if err != nil {
				return err
			}

			format, err := table.ParseFormat(metaFormat)
			if err != nil {
				return err
			}

			stats, err := a.Download(cmd.Context(), archive.DownloadSpec{
				MetaPath:    metaPath,
				DataLevel:   datalevel,
				Format:      format,
				OutDir:      outDir,
				StartRow:    startRow,
				EndRow:      endRow,
				Concurrency: concurrency,
				Progress: func(s archive.DownloadStats) {
					fmt.Fprintf(os.Stderr, "\r%d fetched, %d skipped, %d failed of %d",
						s.Fetched, s.Skipped, s.Failed, s.Total)
				},
			})
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "Downloaded %d files, skipped %d existing, %d failed\n",
				stats.Fetched, stats.Skipped, stats.Failed)
			return nil
		},
	}

	downloadCmd.Flags().StringVarP(&metaPath, "meta", "m", "", "metadata table from an earlier query")
	downloadCmd.Flags().StringVar(&metaFormat, "meta-format", "csv", "metadata table format")
	downloadCmd.Flags().StringVar(&datalevel, "datalevel", "", "data level whose files to fetch: l0, l1, l2, or eng")
	downloadCmd.Flags().StringVarP(&outDir, "outdir", "d", "", "directory receiving the files")
	downloadCmd.Flags().IntVar(&startRow, "start-row", 0, "first table row to fetch, zero-based")
	downloadCmd.Flags().IntVar(&endRow, "end-row", 0, "last table row to fetch, 0 for the end")
	downloadCmd.Flags().IntVar(&concurrency, "concurrency", 4, "simultaneous downloads")
	_ = downloadCmd.MarkFlagRequired("meta")
	_ = downloadCmd.MarkFlagRequired("datalevel")
	_ = downloadCmd.MarkFlagRequired("outdir")

	return downloadCmd
}
