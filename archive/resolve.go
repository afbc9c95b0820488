package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// defaultResolveRadius is the cone search radius, in degrees, applied
// when a resolved object name is turned into a position constraint.
const defaultResolveRadius = 0.5

// lookupReply is the JSON body of the name resolver. The service
// reports its status under "stat" rather than "status".
type lookupReply struct {
	Stat    string `json:"stat"`
	Msg     string `json:"msg"`
	RA2000  string `json:"ra2000"`
	Dec2000 string `json:"dec2000"`
}

// ResolveError reports a name the resolver could not identify.
type ResolveError struct {
	Name    string
	Message string
}

func (e *ResolveError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("resolving object %q: %s", e.Name, e.Message)
	}

	return fmt.Sprintf("failed to resolve object %q", e.Name)
}

// Position is a resolved sky coordinate, J2000 decimal degrees.
type Position struct {
	RA  string
	Dec string
}

// Circle renders the position as a cone-search constraint for the
// query builder.
func (p Position) Circle(radius float64) string {
	return fmt.Sprintf("circle %s %s %g", p.RA, p.Dec, radius)
}

// Resolve turns an object name into J2000 coordinates using the
// archive's lookup service, which consults SIMBAD and NED.
func (a *Archive) Resolve(ctx context.Context, name string) (Position, error) {
	if name == "" {
		return Position{}, fmt.Errorf("object name must not be empty")
	}

	lookup, err := url.Parse(a.lookupURL)
	if err != nil {
		return Position{}, fmt.Errorf("parsing lookup url: %w", err)
	}
	lookup.RawQuery = url.Values{"location": {name}}.Encode()

	req, err := a.httpc.Request(ctx, lookup, http.MethodGet)
	if err != nil {
		return Position{}, fmt.Errorf("building lookup request: %w", err)
	}

	resp, err := a.httpc.Exchange(req)
	if err != nil {
		return Position{}, fmt.Errorf("submitting lookup: %w", err)
	}
	defer resp.Body.Close()

	var reply lookupReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return Position{}, fmt.Errorf("decoding lookup reply: %w", err)
	}

	// The service does not guarantee the casing of the stat value.
	if !strings.EqualFold(reply.Stat, "ok") || reply.RA2000 == "" || reply.Dec2000 == "" {
		return Position{}, &ResolveError{Name: name, Message: reply.Msg}
	}

	a.logger.Debug("object resolved", "name", name, "ra", reply.RA2000, "dec", reply.Dec2000)

	return Position{RA: reply.RA2000, Dec: reply.Dec2000}, nil
}
