package tap_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/caltech-ipac/goneid/client"
	"github.com/caltech-ipac/goneid/tap"
	"github.com/caltech-ipac/goneid/tap/uws"
)

func newJobClient(t *testing.T) *client.Client {
	t.Helper()

	httpc, err := client.Build(client.WithNoFollowRedirects())
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}

	return httpc
}

func TestCreateJob_FetchesInitialStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, statusDoc("QUEUED", ""))
	}))
	defer ts.Close()

	job, err := tap.CreateJob(t.Context(), newJobClient(t), ts.URL+"/status")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if job.Phase() != uws.PhaseQueued {
		t.Errorf("expected QUEUED, got %v", job.Phase())
	}
	if job.StatusURL() != ts.URL+"/status" {
		t.Errorf("unexpected status URL: %q", job.StatusURL())
	}
	if len(job.RawStatus()) == 0 {
		t.Error("expected raw status document retained")
	}
}

func TestCreateJob_MalformedDocument(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not xml at all")
	}))
	defer ts.Close()

	_, err := tap.CreateJob(t.Context(), newJobClient(t), ts.URL+"/status")
	if !errors.Is(err, uws.ErrMalformedDocument) {
		t.Errorf("expected ErrMalformedDocument, got: %v", err)
	}
}

func TestRefreshPhase_FailureKeepsPriorState(t *testing.T) {
	var calls atomic.Int64

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, statusDoc("EXECUTING", ""))
			return
		}
		fmt.Fprint(w, "garbage")
	}))
	defer ts.Close()

	job, err := tap.CreateJob(t.Context(), newJobClient(t), ts.URL+"/status")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	phase, err := job.RefreshPhase(t.Context())
	if err == nil {
		t.Fatal("expected error from malformed refresh")
	}

	// A failed refresh must not disturb the cached snapshot.
	if phase != uws.PhaseExecuting {
		t.Errorf("expected cached EXECUTING, got %v", phase)
	}
	if job.Phase() != uws.PhaseExecuting {
		t.Errorf("expected cached EXECUTING, got %v", job.Phase())
	}
}

func TestFetchResult_NotReady(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, statusDoc("EXECUTING", ""))
	}))
	defer ts.Close()

	job, err := tap.CreateJob(t.Context(), newJobClient(t), ts.URL+"/status")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	err = job.FetchResult(t.Context(), filepath.Join(t.TempDir(), "out.csv"))
	if !errors.Is(err, tap.ErrResultNotReady) {
		t.Errorf("expected ErrResultNotReady, got: %v", err)
	}
}

func TestFetchResult_ErrorPhase(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, statusDoc("ERROR", ""))
	}))
	defer ts.Close()

	job, err := tap.CreateJob(t.Context(), newJobClient(t), ts.URL+"/status")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	err = job.FetchResult(t.Context(), filepath.Join(t.TempDir(), "out.csv"))

	var remote *tap.RemoteJobError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteJobError, got: %v", err)
	}
	if remote.Message != "Table nonexistent does not exist" {
		t.Errorf("unexpected message: %q", remote.Message)
	}
}

func TestErrorSummary(t *testing.T) {
	tests := []struct {
		name  string
		phase string
		want  string
	}{
		{"error phase", "ERROR", "Table nonexistent does not exist"},
		{"completed phase", "COMPLETED", "Process completed without error message."},
		{"running phase", "EXECUTING", "The process is still running."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, statusDoc(tt.phase, "http://example.org/result"))
			}))
			defer ts.Close()

			job, err := tap.CreateJob(t.Context(), newJobClient(t), ts.URL+"/status")
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}

			got, err := job.ErrorSummary(t.Context())
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
