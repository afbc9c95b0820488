// Package client exposes the HTTP plumbing shared by the archive and
// TAP layers: a configurable client, request/URL builders, and helpers
// for JSON exchanges and streaming file downloads.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/caltech-ipac/goneid/client/download"
	"github.com/caltech-ipac/goneid/client/throttle"
)

// Client wraps the std-lib *http.Client with the behaviors the archive
// needs: redirect inspection, bearer/cookie credentials, throttled
// transports, and streaming downloads.
type Client struct {
	c      *http.Client
	logger *slog.Logger
}

// Build constructs a Client, applying any functional options.
func Build(optFns ...Option) (*Client, error) {
	client := &Client{
		c:      &http.Client{},
		logger: slog.Default(),
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	if opts.client != nil {
		client.c = opts.client
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	if opts.jar != nil {
		client.c.Jar = opts.jar
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(opts.throttle.RPS, opts.throttle.Burst, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	client.c.Transport = transport

	return client, nil
}

// Do fires the request and, when a destination was supplied via
// WithDestination, decodes the JSON response body into it.
func (c *Client) Do(req *http.Request, expCode int, opts ...DoOption) error {
	var settings doOpts
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return err
		}
	}

	doFunc := func(resp *http.Response) error {
		if settings.responseBody != nil {
			d := json.NewDecoder(resp.Body)

			if settings.useJSONNum {
				d.UseNumber()
			}

			if err := d.Decode(settings.responseBody); err != nil {
				return fmt.Errorf("decoding body: %w", err)
			}
		}

		return nil
	}

	return c.exec(req, expCode, doFunc)
}

// Exchange fires the request and returns the raw response without any
// status-code validation. The caller owns the response body. This is the
// entry point for exchanges whose status code is semantically meaningful,
// such as the TAP async submission where a 303 carries the job locator.
func (c *Client) Exchange(req *http.Request) (*http.Response, error) {
	resp, err := c.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange http do: %w", err)
	}

	return resp, nil
}

// Download executes a request that streams the response body to destPath.
// Data is staged in a temp file alongside destPath and renamed into place
// on success; on failure the temp file is removed.
func (c *Client) Download(req *http.Request, expCode int, destPath string, opts ...DownloadOption) error {
	if destPath == "" {
		return errors.New("destPath must not be empty")
	}

	dlFunc := func(resp *http.Response) error {
		if err := download.Save(req.Context(), resp.Body, resp.ContentLength, destPath, c.logger, opts...); err != nil {
			return fmt.Errorf("download: %w", err)
		}

		return nil
	}

	return c.exec(req, expCode, dlFunc)
}

// DownloadAsync starts a download in the background and returns a
// handle for tracking it. Use download.WithBatch to bound concurrency
// and DownloadResult.Add to enqueue more files into the same batch.
func (c *Client) DownloadAsync(req *http.Request, expCode int, destPath string, opts ...DownloadOption) (*download.Result, error) {
	if destPath == "" {
		return nil, errors.New("destPath must not be empty")
	}

	work := func(ctx context.Context) error {
		return c.Download(req.WithContext(ctx), expCode, destPath, opts...)
	}

	return download.Enqueue(req.Context(), work, c.DownloadAsync, opts...)
}

// Request instantiates an *http.Request with the provided information.
// It's just a convenience method that wraps the public Request func.
func (c *Client) Request(ctx context.Context, reqURL *url.URL, method string, opts ...RequestOption) (*http.Request, error) {
	return Request(ctx, reqURL, method, opts...)
}

// exec runs the request and injected function on success after validating the expected status code.
func (c *Client) exec(req *http.Request, expCode int, fn execFn) error {
	resp, err := c.c.Do(req)
	if err != nil {
		return fmt.Errorf("exec http do: %w", err)
	}

	discardBody := true
	defer func() {
		if discardBody {
			if _, err = io.Copy(io.Discard, resp.Body); err != nil {
				c.logger.Error("failed to discard unused body", "error", err)
			}
		}
		if err = resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != expCode {
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		if err != nil {
			b = []byte("unable to read body")
		}

		return &UnexpectedStatusError{
			StatusCode: resp.StatusCode,
			Body:       string(b),
			Err:        ErrUnexpectedStatusCode,
		}
	}

	if err := fn(resp); err != nil {
		discardBody = false
		return fmt.Errorf("exec fn: %w", err)
	}

	return nil
}

// Request instantiates an *http.Request with the provided information.
// A JSON payload defaults the Content-Type to `application/json`; a form
// payload to `application/x-www-form-urlencoded`. Both can be overridden
// via WithContentType.
func Request(ctx context.Context, reqURL *url.URL, method string, opts ...RequestOption) (*http.Request, error) {
	var settings requestOpts
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, err
		}
	}

	if settings.body != nil && settings.form != nil {
		return nil, errors.New("request cannot carry both a JSON and a form payload")
	}

	var payload io.Reader
	var defaultContentType string
	switch {
	case settings.body != nil:
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(settings.body); err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
		payload = &buf
		defaultContentType = "application/json"
	case settings.form != nil:
		payload = strings.NewReader(settings.form.Encode())
		defaultContentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), payload)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	// Exactly one credential mechanism is attached per request; a bearer
	// token always wins over cookies.
	switch {
	case settings.token != "":
		req.Header.Set("Authorization", "Bearer "+settings.token)
	default:
		for _, cookie := range settings.cookies {
			req.AddCookie(cookie)
		}
	}

	switch {
	case settings.contentType != nil:
		req.Header.Set("Content-Type", *settings.contentType)
	case defaultContentType != "":
		req.Header.Set("Content-Type", defaultContentType)
	}

	for k, v := range settings.headers {
		for _, element := range v {
			req.Header.Add(k, element)
		}
	}

	return req, nil
}

// URL creates a url.URL for use in Request.
func URL(scheme, host, path string, opts ...URLOption) *url.URL {
	var settings urlOpts
	for _, opt := range opts {
		opt(&settings)
	}

	if settings.port != nil {
		host = fmt.Sprintf("%s:%d", host, *settings.port)
	}

	endpoint := url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   path,
	}

	if settings.queryStrings != nil {
		queryParams := url.Values{}
		for k, v := range settings.queryStrings {
			queryParams.Add(k, v)
		}

		endpoint.RawQuery = queryParams.Encode()
	}

	return &endpoint
}
