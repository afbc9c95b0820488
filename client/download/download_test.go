package download_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/caltech-ipac/goneid/client/download"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSave(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "file.fits")
	body := strings.NewReader("file bytes")

	if err := download.Save(t.Context(), body, 10, dest, discardLogger()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(data) != "file bytes" {
		t.Errorf("content mismatch: %q", data)
	}
}

func TestSave_ContentLengthMismatch(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "file.fits")

	err := download.Save(t.Context(), strings.NewReader("short"), 100, dest, discardLogger())
	if !errors.Is(err, download.ErrContentLengthMismatch) {
		t.Fatalf("expected ErrContentLengthMismatch, got: %v", err)
	}

	// Neither the destination nor a stray temp file may remain.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty dir after failed save, got %d entries", len(entries))
	}
}

func TestSave_UnknownContentLength(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "file.fits")

	// Chunked responses report -1; any byte count must be accepted.
	if err := download.Save(t.Context(), strings.NewReader("whatever"), -1, dest, discardLogger()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestSave_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	dest := filepath.Join(t.TempDir(), "file.fits")

	err := download.Save(ctx, strings.NewReader("bytes"), 5, dest, discardLogger())
	if !errors.Is(err, download.ErrDownloadCancelled) {
		t.Fatalf("expected ErrDownloadCancelled, got: %v", err)
	}
}

func TestQueue_Shutdown(t *testing.T) {
	q := download.NewQueue(1)
	q.Shutdown()

	res := q.Start(t.Context(), func(ctx context.Context) error {
		t.Error("work must not run after shutdown")
		return nil
	}, nil)

	if err := res.Err(); !errors.Is(err, download.ErrQueueShutdown) {
		t.Errorf("expected ErrQueueShutdown, got: %v", err)
	}
}

func TestQueue_WaitJoinsErrors(t *testing.T) {
	q := download.NewQueue(2)

	wantErr := errors.New("boom")

	q.Start(t.Context(), func(ctx context.Context) error { return wantErr }, nil)
	q.Start(t.Context(), func(ctx context.Context) error { return nil }, nil)

	if err := q.Wait(); !errors.Is(err, wantErr) {
		t.Errorf("expected joined boom error, got: %v", err)
	}
}

func TestQueue_ConcurrencyLimit(t *testing.T) {
	q := download.NewQueue(1)

	var inFlight, peak, runs atomic.Int64

	for range 4 {
		q.Start(t.Context(), func(ctx context.Context) error {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)

			if n > peak.Load() {
				peak.Store(n)
			}
			runs.Add(1)
			time.Sleep(time.Millisecond)
			return nil
		}, nil)
	}

	if err := q.Wait(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if peak.Load() > 1 {
		t.Errorf("expected at most 1 concurrent worker, saw %d", peak.Load())
	}
	if runs.Load() != 4 {
		t.Errorf("expected 4 runs, got %d", runs.Load())
	}
}
