package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/caltech-ipac/goneid/tap"
)

// QueryOption adjusts a single query.
type QueryOption func(*queryOpts) error

type queryOpts struct {
	outpath string
	radius  float64
}

// WithOutputPath streams the result table to a file instead of
// returning it in memory.
func WithOutputPath(path string) QueryOption {
	return func(q *queryOpts) error {
		if path == "" {
			return fmt.Errorf("output path must not be empty")
		}
		q.outpath = path
		return nil
	}
}

// WithRadius sets the cone search radius, in degrees, for queries that
// resolve an object name to a position. Defaults to 0.5.
func WithRadius(radius float64) QueryOption {
	return func(q *queryOpts) error {
		if radius <= 0 {
			return fmt.Errorf("radius must be positive")
		}
		q.radius = radius
		return nil
	}
}

// QueryCriteria validates the criteria, builds ADQL through the
// archive's query builder, and runs it as an asynchronous TAP job.
func (a *Archive) QueryCriteria(ctx context.Context, criteria Criteria, opts ...QueryOption) (*tap.Outcome, error) {
	settings, err := applyQueryOpts(opts)
	if err != nil {
		return nil, err
	}

	if err := checkCriteria(criteria); err != nil {
		return nil, fmt.Errorf("validating criteria: %w", err)
	}

	if criteria.Target != "" && criteria.Position == "" {
		pos, err := a.Resolve(ctx, criteria.Target)
		if err != nil {
			return nil, err
		}
		criteria.Position = pos.Circle(settings.radius)
		criteria.Target = ""
	}

	query, err := a.makeQuery(ctx, criteria)
	if err != nil {
		return nil, err
	}

	return a.runADQL(ctx, query, settings)
}

// QueryDatetime retrieves metadata for observations in an ISO datetime
// range, "2021-01-01 00:00:00/2021-02-01 00:00:00".
func (a *Archive) QueryDatetime(ctx context.Context, datalevel, datetime string, opts ...QueryOption) (*tap.Outcome, error) {
	return a.QueryCriteria(ctx, Criteria{Datalevel: datalevel, Datetime: datetime}, opts...)
}

// QueryPosition retrieves metadata for observations inside a spatial
// constraint, "circle <ra> <dec> <radius>" in decimal degrees.
func (a *Archive) QueryPosition(ctx context.Context, datalevel, position string, opts ...QueryOption) (*tap.Outcome, error) {
	return a.QueryCriteria(ctx, Criteria{Datalevel: datalevel, Position: position}, opts...)
}

// QueryObject resolves an object name to coordinates and retrieves
// metadata for observations around it.
func (a *Archive) QueryObject(ctx context.Context, datalevel, object string, opts ...QueryOption) (*tap.Outcome, error) {
	return a.QueryCriteria(ctx, Criteria{Datalevel: datalevel, Target: object}, opts...)
}

// QueryPIName retrieves metadata for a principal investigator's
// observations, name given as "last, first".
func (a *Archive) QueryPIName(ctx context.Context, datalevel, piname string, opts ...QueryOption) (*tap.Outcome, error) {
	return a.QueryCriteria(ctx, Criteria{Datalevel: datalevel, PIName: piname}, opts...)
}

// QueryProgram retrieves metadata for an observing program.
func (a *Archive) QueryProgram(ctx context.Context, datalevel, program string, opts ...QueryOption) (*tap.Outcome, error) {
	return a.QueryCriteria(ctx, Criteria{Datalevel: datalevel, Program: program}, opts...)
}

// QueryADQL runs a caller-supplied ADQL statement as an asynchronous
// TAP job, bypassing the query builder.
func (a *Archive) QueryADQL(ctx context.Context, query string, opts ...QueryOption) (*tap.Outcome, error) {
	settings, err := applyQueryOpts(opts)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	return a.runADQL(ctx, query, settings)
}

func (a *Archive) runADQL(ctx context.Context, query string, settings queryOpts) (*tap.Outcome, error) {
	svc, err := a.tapService()
	if err != nil {
		return nil, fmt.Errorf("building tap service: %w", err)
	}

	var submitOpts []tap.SubmitOption
	if settings.outpath != "" {
		submitOpts = append(submitOpts, tap.WithOutputPath(settings.outpath))
	}

	return svc.SubmitAsync(ctx, query, submitOpts...)
}

// makeQueryReply is the JSON body of the query-builder endpoint.
type makeQueryReply struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
	Query  string `json:"query"`
}

// makeQuery asks the archive to translate criteria into ADQL. The
// server owns the column lists and table names, so clients stay valid
// as the schema evolves.
func (a *Archive) makeQuery(ctx context.Context, criteria Criteria) (string, error) {
	buildURL := a.endpoint("NeidAPI/nph-neidMakequery.py")
	buildURL.RawQuery = criteria.values(a.format.String(), a.maxrec).Encode()

	req, err := a.httpc.Request(ctx, buildURL, http.MethodGet)
	if err != nil {
		return "", fmt.Errorf("building makequery request: %w", err)
	}

	resp, err := a.httpc.Exchange(req)
	if err != nil {
		return "", fmt.Errorf("submitting makequery: %w", err)
	}
	defer resp.Body.Close()

	var reply makeQueryReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("decoding makequery reply: %w", err)
	}

	if reply.Status != "ok" || reply.Query == "" {
		return "", fmt.Errorf("building query: %s", reply.Msg)
	}

	a.logger.Debug("query built", "adql", reply.Query)

	return reply.Query, nil
}

func applyQueryOpts(opts []QueryOption) (queryOpts, error) {
	settings := queryOpts{radius: defaultResolveRadius}
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return settings, fmt.Errorf("applying query option: %w", err)
		}
	}

	return settings, nil
}
