package tap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/caltech-ipac/goneid/client"
	"github.com/caltech-ipac/goneid/tap/uws"
)

// Job is the client-side view of one remote asynchronous query
// execution. It is created the moment the service redirects a
// submission to a status URL and lives until the owning query
// operation returns.
//
// A Job is pull-based: its cached fields change only through explicit
// refresh operations, and once a terminal phase (COMPLETED or ERROR)
// has been observed it is treated as immutable.
type Job struct {
	httpc     *client.Client
	logger    *slog.Logger
	statusURL string
	creds     Credentials

	// status and raw are overwritten together on every successful
	// refresh; a failed refresh leaves both untouched.
	status *uws.Job
	raw    []byte
}

// JobOption is a functional option for [CreateJob].
type JobOption func(*jobOpts)

type jobOpts struct {
	logger *slog.Logger
	creds  Credentials
}

// WithJobLogger injects a custom [slog.Logger] into the [Job].
func WithJobLogger(logger *slog.Logger) JobOption {
	return func(o *jobOpts) {
		o.logger = logger
	}
}

// WithJobCredentials attaches credentials to every status and result
// request the job issues.
func WithJobCredentials(creds Credentials) JobOption {
	return func(o *jobOpts) {
		o.creds = creds
	}
}

// CreateJob performs one immediate GET against statusURL, parses the
// returned status document, and returns the populated Job. A network
// failure or a malformed document fails the creation; no retry is
// attempted here — retry policy, if any, belongs to the caller.
func CreateJob(ctx context.Context, httpc *client.Client, statusURL string, opts ...JobOption) (*Job, error) {
	var settings jobOpts
	for _, opt := range opts {
		opt(&settings)
	}

	if settings.logger == nil {
		settings.logger = slog.Default()
	}

	if _, err := url.Parse(statusURL); err != nil {
		return nil, fmt.Errorf("invalid status url %q: %w", statusURL, err)
	}

	j := &Job{
		httpc:     httpc,
		logger:    settings.logger,
		statusURL: statusURL,
		creds:     settings.creds,
	}

	if err := j.refresh(ctx); err != nil {
		return nil, fmt.Errorf("creating tap job: %w", err)
	}

	return j, nil
}

// StatusURL returns the job's UWS status resource locator.
func (j *Job) StatusURL() string { return j.statusURL }

// Phase returns the most recently observed phase without a network call.
func (j *Job) Phase() uws.Phase { return j.status.Phase }

// Status returns the last parsed status snapshot.
func (j *Job) Status() *uws.Job { return j.status }

// RawStatus returns the raw body of the last status fetch, for diagnostics.
func (j *Job) RawStatus() []byte { return j.raw }

// RefreshPhase re-fetches the status document and returns the current
// phase. Once a terminal phase has been observed the cached phase is
// returned without a network call; terminal phases are assumed
// immutable once seen.
//
// A failed refresh leaves the previously cached state intact.
func (j *Job) RefreshPhase(ctx context.Context) (uws.Phase, error) {
	if j.status.Phase.Terminal() {
		return j.status.Phase, nil
	}

	if err := j.refresh(ctx); err != nil {
		return j.status.Phase, fmt.Errorf("refreshing tap job: %w", err)
	}

	return j.status.Phase, nil
}

// FetchResult streams the job's result resource to outpath, overwriting
// any existing file. The phase is refreshed once if not yet known to be
// terminal; if it is still non-terminal afterwards the fetch fails with
// [ErrResultNotReady].
func (j *Job) FetchResult(ctx context.Context, outpath string) error {
	if outpath == "" {
		return fmt.Errorf("output file path is required")
	}

	phase, err := j.RefreshPhase(ctx)
	if err != nil {
		return err
	}

	switch {
	case phase == uws.PhaseError:
		return &RemoteJobError{Message: j.status.ErrorMessage}
	case !phase.Terminal():
		return fmt.Errorf("%w: phase is %s", ErrResultNotReady, phase)
	case j.status.ResultURL == "":
		return ErrMissingResultURL
	}

	if err := j.streamResult(ctx, outpath); err != nil {
		return &PersistenceError{Path: outpath, Err: err}
	}

	j.logger.Debug("result written", "path", outpath, "job", j.status.ID)

	return nil
}

// ResultURL returns the result locator, refreshing once when the job is
// not yet known to be terminal.
func (j *Job) ResultURL(ctx context.Context) (string, error) {
	if _, err := j.RefreshPhase(ctx); err != nil {
		return "", err
	}

	return j.status.ResultURL, nil
}

// ErrorSummary returns the server-supplied error message for a job in
// the ERROR phase, refreshing once when the job is not yet known to be
// terminal. For the two no-error cases it returns an informational
// string rather than failing: "still running" is a state, not a fault.
func (j *Job) ErrorSummary(ctx context.Context) (string, error) {
	phase, err := j.RefreshPhase(ctx)
	if err != nil {
		return "", err
	}

	switch phase {
	case uws.PhaseError:
		return j.status.ErrorMessage, nil
	case uws.PhaseCompleted:
		return "Process completed without error message.", nil
	default:
		return "The process is still running.", nil
	}
}

// refresh GETs the status URL and re-parses it, overwriting the cached
// snapshot and raw document atomically: either both update or neither.
func (j *Job) refresh(ctx context.Context) error {
	statusURL, err := url.Parse(j.statusURL)
	if err != nil {
		return fmt.Errorf("parsing status url: %w", err)
	}

	req, err := j.httpc.Request(ctx, statusURL, http.MethodGet, j.creds.RequestOptions()...)
	if err != nil {
		return fmt.Errorf("building status request: %w", err)
	}

	resp, err := j.httpc.Exchange(req)
	if err != nil {
		return fmt.Errorf("fetching status document: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading status document: %w", err)
	}

	status, err := uws.Parse(raw)
	if err != nil {
		return err
	}

	j.status = status
	j.raw = raw

	return nil
}

// streamResult copies the result resource to outpath. The write is a
// plain stream copy: a failure partway leaves a partial file, which is
// documented as a caller responsibility.
func (j *Job) streamResult(ctx context.Context, outpath string) error {
	resultURL, err := url.Parse(j.status.ResultURL)
	if err != nil {
		return fmt.Errorf("parsing result url: %w", err)
	}

	req, err := j.httpc.Request(ctx, resultURL, http.MethodGet, j.creds.RequestOptions()...)
	if err != nil {
		return fmt.Errorf("building result request: %w", err)
	}

	resp, err := j.httpc.Exchange(req)
	if err != nil {
		return fmt.Errorf("fetching result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: result fetch returned status %d", ErrProtocol, resp.StatusCode)
	}

	file, err := os.Create(outpath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return fmt.Errorf("writing result: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}

	return nil
}
