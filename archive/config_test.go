package archive_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/caltech-ipac/goneid/archive"
)

func TestLoadConfig(t *testing.T) {
	raw := `base_url = "https://neid.example.org/"
cookie_file = "/tmp/goneid-cookies.txt"
token = "tok-abc"
format = "ipac"
maxrec = 250
`
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	got, err := archive.LoadConfig(path)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	want := archive.FileConfig{
		BaseURL:    "https://neid.example.org/",
		CookieFile: "/tmp/goneid-cookies.txt",
		Token:      "tok-abc",
		Format:     "ipac",
		MaxRec:     250,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_ExplicitPathMissing(t *testing.T) {
	if _, err := archive.LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("base_url = [broken"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := archive.LoadConfig(path); err == nil {
		t.Error("expected error for malformed toml")
	}
}

func TestLoadConfig_NegativeMaxRec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("maxrec = -5"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := archive.LoadConfig(path); err == nil {
		t.Error("expected error for negative maxrec")
	}
}

func TestFileConfig_Options(t *testing.T) {
	cfg := archive.FileConfig{Format: "csv", MaxRec: 10, Token: "t"}

	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(opts) != 3 {
		t.Errorf("expected 3 options, got %d", len(opts))
	}

	if _, err := (archive.FileConfig{Format: "parquet"}).Options(); err == nil {
		t.Error("expected error for unknown format")
	}
}
