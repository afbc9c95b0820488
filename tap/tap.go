// Package tap submits ADQL queries to a Table Access Protocol service
// and drives the resulting Universal Worker Service jobs to completion.
//
// Asynchronous submission is the primary path: a POST to {base}/async
// answers with a 303 redirect whose Location header names the job's
// status URL. The job is then polled until it reaches COMPLETED or
// ERROR, and on success the result resource is streamed to disk or
// parsed into an in-memory table.
package tap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/caltech-ipac/goneid/client"
	"github.com/caltech-ipac/goneid/table"
	"github.com/caltech-ipac/goneid/tap/uws"
)

// Credentials attach a caller identity to every request of one
// submission. At most one mechanism is active: a bearer token wins over
// cookies when both are present.
type Credentials struct {
	Token   string
	Cookies []*http.Cookie
}

// RequestOptions renders the credentials as request options for the
// HTTP client, applying the token-over-cookies precedence.
func (c Credentials) RequestOptions() []client.RequestOption {
	switch {
	case c.Token != "":
		return []client.RequestOption{client.WithToken(c.Token)}
	case len(c.Cookies) > 0:
		return []client.RequestOption{client.WithCookies(c.Cookies...)}
	default:
		return nil
	}
}

// SubmitParams are the form parameters accompanying every query
// submission.
type SubmitParams struct {
	Request  string
	Lang     string
	Phase    string
	Format   table.Format
	MaxRec   int
	PropFlag int
}

// Outcome is the successful completion of a submission. Exactly one of
// the persistence fields is populated: Path when the result was written
// to disk, Table when it was parsed into memory.
type Outcome struct {
	Message string
	Job     *Job
	Path    string
	Table   *table.Table
}

// Service is a client for one TAP endpoint. Construct with [New];
// configuration is explicit and instances carry no shared mutable
// state beyond their HTTP client.
type Service struct {
	base   *url.URL
	httpc  *client.Client
	logger *slog.Logger
	tracer trace.Tracer
	params SubmitParams
	creds  Credentials
	poll   PollPolicy
}

// ServiceOption is a functional option for [New].
type ServiceOption func(*serviceOpts) error

type serviceOpts struct {
	httpc   *client.Client
	logger  *slog.Logger
	creds   Credentials
	params  *SubmitParams
	poll    *PollPolicy
	timeout *time.Duration
}

// WithHTTPClient replaces the internally built HTTP client. The
// supplied client must not follow redirects, or the async submission
// handshake breaks.
func WithHTTPClient(httpc *client.Client) ServiceOption {
	return func(o *serviceOpts) error {
		if httpc == nil {
			return fmt.Errorf("http client must not be nil")
		}
		o.httpc = httpc
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Service].
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOpts) error {
		o.logger = logger
		return nil
	}
}

// WithCredentials sets the credentials attached to every request.
func WithCredentials(creds Credentials) ServiceOption {
	return func(o *serviceOpts) error {
		o.creds = creds
		return nil
	}
}

// WithSubmitParams overrides the default submission parameters.
func WithSubmitParams(params SubmitParams) ServiceOption {
	return func(o *serviceOpts) error {
		o.params = &params
		return nil
	}
}

// WithPollPolicy replaces the default fixed two-second unbounded
// polling behavior.
func WithPollPolicy(policy PollPolicy) ServiceOption {
	return func(o *serviceOpts) error {
		o.poll = &policy
		return nil
	}
}

// WithTimeout sets the per-request timeout on the internally built
// HTTP client. Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) ServiceOption {
	return func(o *serviceOpts) error {
		if d < 0 {
			return fmt.Errorf("timeout must not be negative")
		}
		o.timeout = &d
		return nil
	}
}

// DefaultSubmitParams mirror the service defaults: an ADQL doQuery run
// returning votable rows.
func DefaultSubmitParams() SubmitParams {
	return SubmitParams{
		Request:  "doQuery",
		Lang:     "ADQL",
		Phase:    "RUN",
		Format:   table.FormatVOTable,
		MaxRec:   0,
		PropFlag: 1,
	}
}

// New constructs a Service for the TAP endpoint at baseURL.
func New(baseURL string, opts ...ServiceOption) (*Service, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	var settings serviceOpts
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, fmt.Errorf("applying service option: %w", err)
		}
	}

	logger := settings.logger
	if logger == nil {
		logger = slog.Default()
	}

	httpc := settings.httpc
	if httpc == nil {
		clientOpts := []client.Option{
			client.WithNoFollowRedirects(),
			client.WithLogger(logger),
		}
		if settings.timeout != nil {
			clientOpts = append(clientOpts, client.WithTimeout(*settings.timeout))
		}

		httpc, err = client.Build(clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("building http client: %w", err)
		}
	}

	params := DefaultSubmitParams()
	if settings.params != nil {
		params = *settings.params
	}

	poll := DefaultPollPolicy()
	if settings.poll != nil {
		poll = *settings.poll
	}

	return &Service{
		base:   base,
		httpc:  httpc,
		logger: logger,
		tracer: otel.Tracer("github.com/caltech-ipac/goneid/tap"),
		params: params,
		creds:  settings.creds,
		poll:   poll,
	}, nil
}

// SubmitOption is a functional option for [Service.SubmitAsync] and
// [Service.SubmitSync].
type SubmitOption func(*submitOpts) error

type submitOpts struct {
	outpath string
	format  *table.Format
	maxrec  *int
}

// WithOutputPath persists the result to the given file instead of
// parsing it into memory.
func WithOutputPath(path string) SubmitOption {
	return func(o *submitOpts) error {
		o.outpath = path
		return nil
	}
}

// WithFormat overrides the service-level result format for one
// submission.
func WithFormat(f table.Format) SubmitOption {
	return func(o *submitOpts) error {
		o.format = &f
		return nil
	}
}

// WithMaxRec overrides the service-level row cap for one submission.
// Asynchronous jobs ignore it; they are never row-capped.
func WithMaxRec(n int) SubmitOption {
	return func(o *submitOpts) error {
		if n < 0 {
			return fmt.Errorf("maxrec must not be negative")
		}
		o.maxrec = &n
		return nil
	}
}

// SubmitAsync submits query to {base}/async and drives the resulting
// job to a terminal phase.
//
// An immediate JSON rejection surfaces as a [*RejectedError]; a job
// finishing in the ERROR phase as a [*RemoteJobError] carrying the
// server's message verbatim. Network failures are terminal for the
// whole operation — nothing here retries.
func (s *Service) SubmitAsync(ctx context.Context, query string, opts ...SubmitOption) (*Outcome, error) {
	settings, err := applySubmitOpts(opts)
	if err != nil {
		return nil, err
	}

	format := s.params.Format
	if settings.format != nil {
		format = *settings.format
	}

	logger := s.logger.With("op", uuid.NewString())

	ctx, span := s.tracer.Start(ctx, "tap.submit_async", trace.WithAttributes(
		attribute.String("tap.endpoint", s.endpoint("async").String()),
		attribute.String("tap.format", format.String()),
	))
	defer span.End()

	// Async jobs are not row-capped: maxrec is forced to 0 regardless
	// of what the caller configured.
	form := s.submitForm(query, format, 0)

	job, err := s.submit(ctx, logger, "async", form)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("tap.status_url", job.StatusURL()))

	phase, err := s.awaitTerminal(ctx, logger, job)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if phase == uws.PhaseError {
		msg, err := job.ErrorSummary(ctx)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		span.SetStatus(codes.Error, msg)
		return nil, &RemoteJobError{Message: msg}
	}

	outcome, err := s.persistResult(ctx, logger, job, format, settings.outpath)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return outcome, nil
}

// SubmitSync submits query to {base}/sync and treats the response body
// as the result stream. No polling, no redirect handling: the sync
// endpoint answers queries inline.
func (s *Service) SubmitSync(ctx context.Context, query string, opts ...SubmitOption) (*Outcome, error) {
	settings, err := applySubmitOpts(opts)
	if err != nil {
		return nil, err
	}

	format := s.params.Format
	if settings.format != nil {
		format = *settings.format
	}

	maxrec := s.params.MaxRec
	if settings.maxrec != nil {
		maxrec = *settings.maxrec
	}

	logger := s.logger.With("op", uuid.NewString())

	ctx, span := s.tracer.Start(ctx, "tap.submit_sync", trace.WithAttributes(
		attribute.String("tap.endpoint", s.endpoint("sync").String()),
		attribute.String("tap.format", format.String()),
	))
	defer span.End()

	form := s.submitForm(query, format, maxrec)

	reqOpts := append(s.creds.RequestOptions(), client.WithForm(form))
	req, err := s.httpc.Request(ctx, s.endpoint("sync"), http.MethodPost, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("building sync request: %w", err)
	}

	resp, err := s.httpc.Exchange(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("submitting sync query: %w", err)
	}
	defer resp.Body.Close()

	if isJSON(resp.Header.Get("Content-Type")) {
		err := decodeRejection(resp.Body)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Debug("sync result returned", "status", resp.StatusCode)

	return s.sink(resp.Body, format, settings.outpath)
}

// submit POSTs the form to the named endpoint and classifies the
// response: a 303 with a Location header yields the job; anything else
// is an immediate rejection.
func (s *Service) submit(ctx context.Context, logger *slog.Logger, endpoint string, form url.Values) (*Job, error) {
	reqOpts := append(s.creds.RequestOptions(), client.WithForm(form))
	req, err := s.httpc.Request(ctx, s.endpoint(endpoint), http.MethodPost, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("building submit request: %w", err)
	}

	resp, err := s.httpc.Exchange(req)
	if err != nil {
		return nil, fmt.Errorf("submitting query: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusSeeOther {
		logger.Debug("submission not redirected", "status", resp.StatusCode)
		return nil, decodeRejection(resp.Body)
	}

	statusURL := resp.Header.Get("Location")
	if statusURL == "" {
		return nil, fmt.Errorf("%w: 303 response without a Location header", ErrProtocol)
	}

	logger.Debug("job accepted", "status_url", statusURL)

	return CreateJob(ctx, s.httpc, statusURL,
		WithJobLogger(logger),
		WithJobCredentials(s.creds),
	)
}

// awaitTerminal polls the job per the service's policy until it
// reaches COMPLETED or ERROR.
func (s *Service) awaitTerminal(ctx context.Context, logger *slog.Logger, job *Job) (uws.Phase, error) {
	phase := job.Phase()
	start := time.Now()

	for attempt := 1; !phase.Terminal(); attempt++ {
		if err := s.poll.wait(ctx, attempt, start); err != nil {
			return phase, err
		}

		var err error
		phase, err = job.RefreshPhase(ctx)
		if err != nil {
			return phase, err
		}

		logger.Debug("polled job", "attempt", attempt, "phase", phase.String())
	}

	return phase, nil
}

// persistResult routes a completed job's result to the configured sink.
func (s *Service) persistResult(ctx context.Context, logger *slog.Logger, job *Job, format table.Format, outpath string) (*Outcome, error) {
	if outpath != "" {
		if err := job.FetchResult(ctx, outpath); err != nil {
			return nil, err
		}

		logger.Info("result downloaded", "path", outpath)

		return &Outcome{
			Message: fmt.Sprintf("Result downloaded to file [%s]", outpath),
			Job:     job,
			Path:    outpath,
		}, nil
	}

	// No destination given: stage the download in a private temp file,
	// parse it into memory, and remove the staging file regardless of
	// whether parsing succeeded.
	tmp, err := os.CreateTemp("", "goneid-result-*."+format.Ext())
	if err != nil {
		return nil, &PersistenceError{Path: "", Err: err}
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := job.FetchResult(ctx, tmpPath); err != nil {
		return nil, err
	}

	tbl, err := table.ReadFile(tmpPath, format)
	if err != nil {
		return nil, &PersistenceError{Path: tmpPath, Err: err}
	}

	logger.Info("result parsed in memory", "rows", len(tbl.Rows))

	return &Outcome{
		Message: "Result saved in memory.",
		Job:     job,
		Table:   tbl,
	}, nil
}

// sink persists an inline result stream (the sync path) to outpath or
// into memory.
func (s *Service) sink(body io.Reader, format table.Format, outpath string) (*Outcome, error) {
	if outpath != "" {
		file, err := os.Create(outpath)
		if err != nil {
			return nil, &PersistenceError{Path: outpath, Err: err}
		}

		if _, err := io.Copy(file, body); err != nil {
			file.Close()
			return nil, &PersistenceError{Path: outpath, Err: err}
		}

		if err := file.Close(); err != nil {
			return nil, &PersistenceError{Path: outpath, Err: err}
		}

		return &Outcome{
			Message: fmt.Sprintf("Result downloaded to file [%s]", outpath),
			Path:    outpath,
		}, nil
	}

	tbl, err := table.Read(body, format)
	if err != nil {
		return nil, &PersistenceError{Path: "", Err: err}
	}

	return &Outcome{
		Message: "Result saved in memory.",
		Table:   tbl,
	}, nil
}

// submitForm assembles the form parameters for one submission.
func (s *Service) submitForm(query string, format table.Format, maxrec int) url.Values {
	return url.Values{
		"query":    {query},
		"request":  {s.params.Request},
		"lang":     {s.params.Lang},
		"phase":    {s.params.Phase},
		"format":   {format.String()},
		"maxrec":   {strconv.Itoa(maxrec)},
		"propflag": {strconv.Itoa(s.params.PropFlag)},
	}
}

// endpoint resolves a sub-resource path under the service base URL.
func (s *Service) endpoint(name string) *url.URL {
	u := *s.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + name

	return &u
}

func applySubmitOpts(opts []SubmitOption) (submitOpts, error) {
	var settings submitOpts
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return settings, err
		}
	}

	return settings, nil
}

// rejection is the JSON body the service answers with when it refuses
// a submission outright.
type rejection struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

// decodeRejection turns a non-redirect submission response into a
// RejectedError. An unparseable body still rejects, with a generic
// message.
func decodeRejection(body io.Reader) error {
	var rej rejection
	if err := json.NewDecoder(body).Decode(&rej); err != nil {
		return &RejectedError{
			Status:  "error",
			Message: fmt.Sprintf("JSON parse error: %v", err),
		}
	}

	return &RejectedError{Status: rej.Status, Message: rej.Msg}
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(strings.TrimSpace(contentType), "application/json")
}
