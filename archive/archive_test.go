package archive_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/caltech-ipac/goneid/archive"
	"github.com/caltech-ipac/goneid/tap"
)

// fakeArchive serves the endpoints an Archive client touches: login,
// the query builder, the TAP async workflow, and the file endpoint.
type fakeArchive struct {
	server *httptest.Server

	loginStatus string
	adql        string
	resultCSV   string
}

func newFakeArchive(t *testing.T) *fakeArchive {
	t.Helper()

	f := &fakeArchive{
		loginStatus: "ok",
		adql:        "select * from neidl2 where obsdate > '2021-01-01'",
		resultCSV:   "object,l2filename,l2filepath\nHD 4628,neidL2_A.fits,/data/A.fits\n",
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /NeidAPI/nph-neidLogin.py", func(w http.ResponseWriter, r *http.Request) {
		if f.loginStatus != "ok" {
			fmt.Fprint(w, `{"status": "error", "msg": "Incorrect userid or password."}`)
			return
		}

		http.SetCookie(w, &http.Cookie{Name: "JOSSO_SESSIONID", Value: "sess42", Path: "/"})
		fmt.Fprintf(w, `{"status": "ok", "msg": "Successful login as %s.", "token": "tok-xyz"}`,
			r.URL.Query().Get("userid"))
	})

	mux.HandleFunc("GET /NeidAPI/nph-neidMakequery.py", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("datalevel") == "" {
			fmt.Fprint(w, `{"status": "error", "msg": "datalevel is required", "query": ""}`)
			return
		}
		fmt.Fprintf(w, `{"status": "ok", "msg": "", "query": %q}`, f.adql)
	})

	mux.HandleFunc("POST /TAP/async", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", f.server.URL+"/TAP/async/job1")
		w.WriteHeader(http.StatusSeeOther)
	})
	mux.HandleFunc("GET /TAP/async/job1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<uws:job xmlns:uws="http://www.ivoa.net/xml/UWS/v1.0" xmlns:xlink="http://www.w3.org/1999/xlink">
  <uws:jobId>job1</uws:jobId>
  <uws:phase>COMPLETED</uws:phase>
  <uws:results><uws:result id="result" xlink:href="%s/TAP/async/job1/results/result"/></uws:results>
</uws:job>`, f.server.URL)
	})
	mux.HandleFunc("GET /TAP/async/job1/results/result", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, f.resultCSV)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeArchive) newClient(t *testing.T, opts ...archive.Option) *archive.Archive {
	t.Helper()

	opts = append([]archive.Option{
		archive.WithPollPolicy(tap.PollPolicy{
			Sleep: func(ctx context.Context, d time.Duration) error { return nil },
		}),
	}, opts...)

	a, err := archive.New(f.server.URL, opts...)
	if err != nil {
		t.Fatalf("failed to create archive client: %v", err)
	}

	return a
}

func TestLogin(t *testing.T) {
	fake := newFakeArchive(t)
	a := fake.newClient(t)

	cookiePath := filepath.Join(t.TempDir(), "cookies.txt")

	if err := a.Login(t.Context(), "neidadmin", "secret", cookiePath); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if a.Token() != "tok-xyz" {
		t.Errorf("expected session token retained, got %q", a.Token())
	}

	cookies, err := archive.LoadCookies(cookiePath)
	if err != nil {
		t.Fatalf("failed to load saved cookies: %v", err)
	}
	if len(cookies) != 1 || cookies[0].Name != "JOSSO_SESSIONID" || cookies[0].Value != "sess42" {
		t.Errorf("unexpected saved cookies: %+v", cookies)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	fake := newFakeArchive(t)
	fake.loginStatus = "error"
	a := fake.newClient(t)

	err := a.Login(t.Context(), "neidadmin", "wrong", "")

	var loginErr *archive.LoginError
	if !errors.As(err, &loginErr) {
		t.Fatalf("expected LoginError, got: %v", err)
	}
	if loginErr.Message != "Incorrect userid or password." {
		t.Errorf("unexpected message: %q", loginErr.Message)
	}
	if a.Token() != "" {
		t.Errorf("expected no token after failed login, got %q", a.Token())
	}
}

func TestLogin_MissingArguments(t *testing.T) {
	fake := newFakeArchive(t)
	a := fake.newClient(t)

	if err := a.Login(t.Context(), "", "pw", ""); err == nil {
		t.Error("expected error for empty userid")
	}
	if err := a.Login(t.Context(), "user", "", ""); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestQueryDatetime(t *testing.T) {
	fake := newFakeArchive(t)
	a := fake.newClient(t)

	outcome, err := a.QueryDatetime(t.Context(), "l2", "2021-01-01 00:00:00/2021-02-01 00:00:00")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if outcome.Message != "Result saved in memory." {
		t.Errorf("unexpected message: %q", outcome.Message)
	}
	if outcome.Table == nil || len(outcome.Table.Rows) != 1 {
		t.Fatalf("unexpected table: %+v", outcome.Table)
	}
}

func TestQueryCriteria_ValidationFailure(t *testing.T) {
	fake := newFakeArchive(t)
	a := fake.newClient(t)

	tests := []struct {
		name     string
		criteria archive.Criteria
	}{
		{"missing datalevel", archive.Criteria{}},
		{"bad datalevel", archive.Criteria{Datalevel: "l9"}},
		{"bad datetime", archive.Criteria{Datalevel: "l1", Datetime: "not a range"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.QueryCriteria(t.Context(), tt.criteria)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}

			var fields archive.FieldErrors
			if !errors.As(err, &fields) {
				t.Errorf("expected FieldErrors, got: %v", err)
			}
		})
	}
}

func TestQueryADQL_ToFile(t *testing.T) {
	fake := newFakeArchive(t)
	a := fake.newClient(t)

	outpath := filepath.Join(t.TempDir(), "meta.csv")

	outcome, err := a.QueryADQL(t.Context(), "select * from neidl2", archive.WithOutputPath(outpath))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	want := fmt.Sprintf("Result downloaded to file [%s]", outpath)
	if outcome.Message != want {
		t.Errorf("expected message %q, got %q", want, outcome.Message)
	}
}

func TestResolve(t *testing.T) {
	// The resolver's stat value arrives in whatever casing the
	// service feels like that day.
	for _, stat := range []string{"OK", "ok", "Ok"} {
		t.Run(stat, func(t *testing.T) {
			lookup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("location"); got != "HD 4628" {
					t.Errorf("expected location HD 4628, got %q", got)
				}
				fmt.Fprintf(w, `{"stat": %q, "ra2000": "12.0934", "dec2000": "5.2869"}`, stat)
			}))
			defer lookup.Close()

			fake := newFakeArchive(t)
			a := fake.newClient(t, archive.WithLookupURL(lookup.URL))

			pos, err := a.Resolve(t.Context(), "HD 4628")
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}

			if pos.RA != "12.0934" || pos.Dec != "5.2869" {
				t.Errorf("unexpected position: %+v", pos)
			}
			if got := pos.Circle(0.5); got != "circle 12.0934 5.2869 0.5" {
				t.Errorf("unexpected circle constraint: %q", got)
			}
		})
	}
}

func TestResolve_Unknown(t *testing.T) {
	lookup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"stat": "ERROR", "msg": "object not found"}`)
	}))
	defer lookup.Close()

	fake := newFakeArchive(t)
	a := fake.newClient(t, archive.WithLookupURL(lookup.URL))

	_, err := a.Resolve(t.Context(), "Planet X")

	var resolveErr *archive.ResolveError
	if !errors.As(err, &resolveErr) {
		t.Fatalf("expected ResolveError, got: %v", err)
	}
	if resolveErr.Name != "Planet X" {
		t.Errorf("unexpected name: %q", resolveErr.Name)
	}
}

func TestQueryObject_UsesResolvedPosition(t *testing.T) {
	lookup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"stat": "OK", "ra2000": "3.45", "dec2000": "5.28"}`)
	}))
	defer lookup.Close()

	var gotPosition string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /NeidAPI/nph-neidMakequery.py", func(w http.ResponseWriter, r *http.Request) {
		gotPosition = r.URL.Query().Get("position")
		fmt.Fprint(w, `{"status": "ok", "msg": "", "query": "select 1"}`)
	})
	mux.HandleFunc("POST /TAP/async", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status": "error", "msg": "stop here"}`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	a, err := archive.New(ts.URL, archive.WithLookupURL(lookup.URL))
	if err != nil {
		t.Fatalf("failed to create archive client: %v", err)
	}

	_, _ = a.QueryObject(t.Context(), "l2", "HD 4628")

	if gotPosition != "circle 3.45 5.28 0.5" {
		t.Errorf("expected resolved position constraint, got %q", gotPosition)
	}
}
