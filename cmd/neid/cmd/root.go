// Package cmd implements the neid command line tool: login, metadata
// queries, and bulk FITS retrieval against the NEID archive.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/caltech-ipac/goneid/archive"
	"github.com/caltech-ipac/goneid/table"
)

// rootFlags are the persistent settings shared by every subcommand.
type rootFlags struct {
	configPath string
	baseURL    string
	cookieFile string
	token      string
	format     string
	maxrec     int
	debug      bool
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "neid",
		Short:         "NEID archive client",
		Long:          "Query the NEID radial-velocity archive and download its data products.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.config/goneid/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "archive base URL")
	rootCmd.PersistentFlags().StringVar(&flags.cookieFile, "cookie-file", "", "Netscape cookie file holding a saved session")
	rootCmd.PersistentFlags().StringVar(&flags.token, "token", "", "session token from a previous login")
	rootCmd.PersistentFlags().StringVar(&flags.format, "format", "", "table format: votable, ipac, csv, or tsv")
	rootCmd.PersistentFlags().IntVar(&flags.maxrec, "maxrec", 0, "row cap for synchronous queries")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newLoginCmd(flags),
		newQueryCmd(flags),
		newDownloadCmd(flags),
	)

	return rootCmd
}

// buildArchive assembles an Archive from the config file and flag
// overrides, flags winning.
func (f *rootFlags) buildArchive() (*archive.Archive, error) {
	cfg, err := archive.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}

	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	opts = append(opts, archive.WithLogger(f.logger()))

	if f.cookieFile != "" {
		opts = append(opts, archive.WithCookieFile(f.cookieFile))
	}
	if f.token != "" {
		opts = append(opts, archive.WithToken(f.token))
	}
	if f.format != "" {
		format, err := table.ParseFormat(f.format)
		if err != nil {
			return nil, err
		}
		opts = append(opts, archive.WithFormat(format))
	}
	if f.maxrec > 0 {
		opts = append(opts, archive.WithMaxRec(f.maxrec))
	}

	base := cfg.BaseURL
	if f.baseURL != "" {
		base = f.baseURL
	}
	if base == "" {
		base = archive.DefaultBaseURL
	}

	return archive.New(base, opts...)
}

func (f *rootFlags) logger() *slog.Logger {
	level := slog.LevelWarn
	if f.debug {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
