package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/caltech-ipac/goneid/client/download"
	"github.com/caltech-ipac/goneid/table"
)

// downloadPath is the CGI endpoint serving individual FITS files.
const downloadPath = "cgi-bin/NeidAPI/nph-neidDownload.py"

// DownloadSpec names the files to retrieve: a metadata table saved by
// an earlier query, the data level whose file columns to read, and
// where to put the files.
type DownloadSpec struct {
	// MetaPath is the metadata table on disk.
	MetaPath string

	// DataLevel selects the <datalevel>filename and <datalevel>filepath
	// columns: l0, l1, l2, or eng.
	DataLevel string

	// Format is the metadata table's format.
	Format table.Format

	// OutDir receives the files. Created if absent.
	OutDir string

	// StartRow and EndRow bound the rows to fetch, inclusive and
	// zero-based. EndRow values at or below zero mean through the
	// last row, so a zero-value range covers the whole table.
	StartRow int
	EndRow   int

	// Concurrency caps simultaneous fetches. <= 0 means unlimited.
	Concurrency int

	// Progress, when non-nil, is called after each row settles.
	Progress func(stats DownloadStats)
}

// DownloadStats counts the outcome of a bulk retrieval.
type DownloadStats struct {
	Total   int
	Fetched int
	Skipped int
	Failed  int
}

// downloadReject is the JSON body the file endpoint returns instead of
// file content when a request is refused.
type downloadReject struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

// Download fetches every FITS file named by the metadata table's rows.
// Files already present in OutDir are skipped, so re-running after an
// interruption only fetches what is missing. Per-file failures are
// counted rather than aborting the batch; the returned error joins
// them all.
func (a *Archive) Download(ctx context.Context, spec DownloadSpec) (DownloadStats, error) {
	var stats DownloadStats

	if spec.MetaPath == "" {
		return stats, fmt.Errorf("metadata table path is required")
	}
	if spec.OutDir == "" {
		return stats, fmt.Errorf("output directory is required")
	}

	meta, err := table.ReadFile(spec.MetaPath, spec.Format)
	if err != nil {
		return stats, fmt.Errorf("reading metadata table: %w", err)
	}

	nameCol := meta.ColumnIndex(spec.DataLevel + "filename")
	pathCol := meta.ColumnIndex(spec.DataLevel + "filepath")
	if nameCol < 0 || pathCol < 0 {
		return stats, fmt.Errorf("metadata table has no %sfilename/%sfilepath columns", spec.DataLevel, spec.DataLevel)
	}

	if err := os.MkdirAll(spec.OutDir, 0o775); err != nil {
		return stats, fmt.Errorf("creating output directory: %w", err)
	}

	start := max(spec.StartRow, 0)
	end := len(meta.Rows) - 1
	if spec.EndRow > 0 && spec.EndRow < end {
		end = spec.EndRow
	}

	var fetched, skipped, failed atomic.Int64
	settle := func() {
		if spec.Progress != nil {
			spec.Progress(DownloadStats{
				Total:   stats.Total,
				Fetched: int(fetched.Load()),
				Skipped: int(skipped.Load()),
				Failed:  int(failed.Load()),
			})
		}
	}

	queue := download.NewQueue(spec.Concurrency)

	for i := start; i <= end && i < len(meta.Rows); i++ {
		row := meta.Rows[i]
		if nameCol >= len(row) || pathCol >= len(row) {
			continue
		}

		name := strings.TrimSpace(row[nameCol])
		filehand := strings.TrimSpace(row[pathCol])
		if name == "" || filehand == "" {
			continue
		}
		stats.Total++

		dest := filepath.Join(spec.OutDir, name)
		if _, err := os.Stat(dest); err == nil {
			skipped.Add(1)
			settle()
			continue
		}

		queue.Start(ctx, func(ctx context.Context) error {
			defer settle()

			if err := a.fetchFile(ctx, filehand, dest); err != nil {
				failed.Add(1)
				a.logger.Warn("file download failed", "file", name, "error", err)
				return fmt.Errorf("downloading %s: %w", name, err)
			}

			fetched.Add(1)
			return nil
		}, nil)
	}

	err = queue.Wait()

	stats.Fetched = int(fetched.Load())
	stats.Skipped = int(skipped.Load())
	stats.Failed = int(failed.Load())

	a.logger.Info("bulk download finished",
		"total", stats.Total,
		"fetched", stats.Fetched,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)

	return stats, err
}

// fetchFile retrieves one file from the archive. The endpoint answers
// refusals with a JSON body, so content type is checked before any
// bytes hit disk.
func (a *Archive) fetchFile(ctx context.Context, filehand, dest string) error {
	fileURL := a.endpoint(downloadPath)
	fileURL.RawQuery = url.Values{"filehand": {filehand}}.Encode()

	req, err := a.httpc.Request(ctx, fileURL, http.MethodGet, a.credentials().RequestOptions()...)
	if err != nil {
		return fmt.Errorf("building file request: %w", err)
	}

	resp, err := a.httpc.Exchange(req)
	if err != nil {
		return fmt.Errorf("fetching file: %w", err)
	}
	defer resp.Body.Close()

	if isJSONContent(resp.Header.Get("Content-Type")) {
		var reject downloadReject
		if err := json.NewDecoder(resp.Body).Decode(&reject); err != nil {
			return fmt.Errorf("decoding rejection: %w", err)
		}
		return fmt.Errorf("archive refused file: %s", reject.Msg)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	return download.Save(ctx, resp.Body, resp.ContentLength, dest, a.logger)
}

func isJSONContent(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}
