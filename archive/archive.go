// Package archive is the high-level client for the NEID data archive:
// login, criteria-based metadata queries through the TAP service, and
// bulk retrieval of the FITS files a metadata table names.
package archive

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/caltech-ipac/goneid/client"
	"github.com/caltech-ipac/goneid/table"
	"github.com/caltech-ipac/goneid/tap"
)

// DefaultBaseURL is the production archive endpoint.
const DefaultBaseURL = "https://neid.ipac.caltech.edu/"

// defaultLookupURL resolves object names through the exoplanet
// archive, which falls through to SIMBAD and NED.
const defaultLookupURL = "https://exoplanetarchive.ipac.caltech.edu/cgi-bin/Lookup/nph-lookup"

// Archive is a client for one archive deployment. Construct with
// [New]; configuration is explicit, there is no package-level instance.
type Archive struct {
	base      *url.URL
	lookupURL string
	httpc     *client.Client
	logger    *slog.Logger
	format    table.Format
	maxrec    int
	poll      *tap.PollPolicy

	// Session credentials. The token wins over cookies whenever both
	// are present; exactly one mechanism is attached per request.
	token   string
	cookies []*http.Cookie
}

// Option is a functional option for [New].
type Option func(*options) error

type options struct {
	httpc      *client.Client
	logger     *slog.Logger
	format     *table.Format
	maxrec     *int
	token      string
	cookieFile string
	lookupURL  string
	timeout    *time.Duration
	poll       *tap.PollPolicy
	throttle   *[2]int
}

// WithLogger injects a custom [slog.Logger].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithFormat sets the metadata table format requested from the TAP
// service. Defaults to csv.
func WithFormat(f table.Format) Option {
	return func(o *options) error {
		o.format = &f
		return nil
	}
}

// WithMaxRec caps the number of rows returned by synchronous queries.
// Asynchronous queries are never row-capped.
func WithMaxRec(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return fmt.Errorf("maxrec must not be negative")
		}
		o.maxrec = &n
		return nil
	}
}

// WithToken supplies a session token obtained from a previous login.
func WithToken(token string) Option {
	return func(o *options) error {
		o.token = token
		return nil
	}
}

// WithCookieFile loads session cookies from a Netscape-format cookie
// file saved by a previous [Archive.Login].
func WithCookieFile(path string) Option {
	return func(o *options) error {
		if path == "" {
			return fmt.Errorf("cookie file path must not be empty")
		}
		o.cookieFile = path
		return nil
	}
}

// WithHTTPClient replaces the internally built HTTP client. It must
// not follow redirects or the TAP submission handshake breaks.
func WithHTTPClient(httpc *client.Client) Option {
	return func(o *options) error {
		if httpc == nil {
			return fmt.Errorf("http client must not be nil")
		}
		o.httpc = httpc
		return nil
	}
}

// WithTimeout sets the per-request timeout on the internally built
// HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("timeout must not be negative")
		}
		o.timeout = &d
		return nil
	}
}

// WithThrottle rate-limits outgoing requests, which matters when bulk
// downloads fan out over thousands of files.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps and burst must be positive")
		}
		o.throttle = &[2]int{rps, burst}
		return nil
	}
}

// WithPollPolicy overrides the default job polling behavior for every
// query issued through this archive.
func WithPollPolicy(policy tap.PollPolicy) Option {
	return func(o *options) error {
		o.poll = &policy
		return nil
	}
}

// WithLookupURL points object-name resolution at a different resolver.
func WithLookupURL(raw string) Option {
	return func(o *options) error {
		if _, err := url.Parse(raw); err != nil {
			return fmt.Errorf("invalid lookup url: %w", err)
		}
		o.lookupURL = raw
		return nil
	}
}

// New constructs an Archive client for the deployment at baseURL.
// Pass [DefaultBaseURL] for the production archive.
func New(baseURL string, opts ...Option) (*Archive, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	var settings options
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, fmt.Errorf("applying archive option: %w", err)
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
			client.WithUserAgent("goneid/1.0"),
		}
		if settings.timeout != nil {
			clientOpts = append(clientOpts, client.WithTimeout(*settings.timeout))
		}
		if settings.throttle != nil {
			clientOpts = append(clientOpts, client.WithThrottle(settings.throttle[0], settings.throttle[1]))
		}

		httpc, err = client.Build(clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("building http client: %w", err)
		}
	}

	a := &Archive{
		base:      base,
		lookupURL: defaultLookupURL,
		httpc:     httpc,
		logger:    logger,
		format:    table.FormatCSV,
		token:     settings.token,
	}

	if settings.lookupURL != "" {
		a.lookupURL = settings.lookupURL
	}
	if settings.format != nil {
		a.format = *settings.format
	}
	if settings.maxrec != nil {
		a.maxrec = *settings.maxrec
	}
	if settings.poll != nil {
		a.poll = settings.poll
	}

	if settings.cookieFile != "" {
		cookies, err := LoadCookies(settings.cookieFile)
		if err != nil {
			return nil, fmt.Errorf("loading cookie file: %w", err)
		}
		a.cookies = cookies
	}

	return a, nil
}

// Token returns the session token held in memory, if any.
func (a *Archive) Token() string { return a.token }

// credentials assembles the tap-layer view of the session identity.
func (a *Archive) credentials() tap.Credentials {
	return tap.Credentials{Token: a.token, Cookies: a.cookies}
}

// tapService builds a TAP client bound to the archive's current
// session credentials.
func (a *Archive) tapService() (*tap.Service, error) {
	params := tap.DefaultSubmitParams()
	params.Format = a.format
	params.MaxRec = a.maxrec

	opts := []tap.ServiceOption{
		tap.WithHTTPClient(a.httpc),
		tap.WithLogger(a.logger),
		tap.WithCredentials(a.credentials()),
		tap.WithSubmitParams(params),
	}
	if a.poll != nil {
		opts = append(opts, tap.WithPollPolicy(*a.poll))
	}

	return tap.New(a.endpoint("TAP").String(), opts...)
}

// endpoint resolves a path under the archive base URL.
func (a *Archive) endpoint(path string) *url.URL {
	u := *a.base
	u.Path = singleJoin(u.Path, path)

	return &u
}

func singleJoin(base, path string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}

	return base + "/" + path
}
