package archive_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/caltech-ipac/goneid/archive"
)

func TestCookies_RoundTrip(t *testing.T) {
	want := []*http.Cookie{
		{
			Domain:  ".ipac.caltech.edu",
			Path:    "/",
			Secure:  true,
			Expires: time.Unix(1790000000, 0),
			Name:    "JOSSO_SESSIONID",
			Value:   "abc123",
		},
		{
			Domain:   "neid.ipac.caltech.edu",
			Path:     "/NeidAPI",
			Name:     "prefs",
			Value:    "dark",
			HttpOnly: true,
		},
	}

	path := filepath.Join(t.TempDir(), "cookies.txt")

	if err := archive.SaveCookies(path, want); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	got, err := archive.LoadCookies(path)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	opt := cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })
	if diff := cmp.Diff(want, got, opt); diff != "" {
		t.Errorf("cookies mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCookies_NetscapeFormat(t *testing.T) {
	raw := `# Netscape HTTP Cookie File
# This file was generated by a browser. Do not edit.

.ipac.caltech.edu	TRUE	/	FALSE	1790000000	session	xyz
#HttpOnly_neid.ipac.caltech.edu	FALSE	/	TRUE	0	secure_session	abc
`
	path := filepath.Join(t.TempDir(), "cookies.txt")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("failed to write cookie file: %v", err)
	}

	cookies, err := archive.LoadCookies(path)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}

	if cookies[0].Name != "session" || cookies[0].Value != "xyz" {
		t.Errorf("unexpected first cookie: %+v", cookies[0])
	}
	if cookies[0].Expires.Unix() != 1790000000 {
		t.Errorf("unexpected expiry: %v", cookies[0].Expires)
	}

	if !cookies[1].HttpOnly {
		t.Error("expected #HttpOnly_ prefix to mark the cookie HttpOnly")
	}
	if !cookies[1].Secure {
		t.Error("expected secure flag parsed")
	}
	if !cookies[1].Expires.IsZero() {
		t.Errorf("expected zero expiry for session cookie, got %v", cookies[1].Expires)
	}
}

func TestLoadCookies_MalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	if err := os.WriteFile(path, []byte("only\tthree\tfields\n"), 0o600); err != nil {
		t.Fatalf("failed to write cookie file: %v", err)
	}

	if _, err := archive.LoadCookies(path); err == nil {
		t.Error("expected error for malformed line")
	}
}

func TestLoadCookies_Missing(t *testing.T) {
	if _, err := archive.LoadCookies(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
