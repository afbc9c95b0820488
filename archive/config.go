package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/caltech-ipac/goneid/table"
)

// FileConfig captures the archive settings a config file may carry.
// Everything is optional; absent fields fall back to library defaults.
type FileConfig struct {
	BaseURL    string `toml:"base_url"`
	LookupURL  string `toml:"lookup_url"`
	CookieFile string `toml:"cookie_file"`
	Token      string `toml:"token"`
	Format     string `toml:"format"`
	MaxRec     int    `toml:"maxrec"`
}

const defaultConfigPath = "~/.config/goneid/config.toml"

// LoadConfig locates and parses the config file, falling back to an
// empty config when the file does not exist. An empty path selects
// the default location.
func LoadConfig(path string) (FileConfig, error) {
	explicit := strings.TrimSpace(path) != ""

	resolved, err := resolveConfigPath(path)
	if err != nil {
		return FileConfig{}, err
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg FileConfig
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.MaxRec < 0 {
		return FileConfig{}, fmt.Errorf("config maxrec must not be negative")
	}

	if cfg.CookieFile != "" {
		cfg.CookieFile = mustExpand(cfg.CookieFile)
	}

	return cfg, nil
}

// Options renders the file config as archive options, ready to append
// caller overrides after.
func (c FileConfig) Options() ([]Option, error) {
	var opts []Option

	if c.LookupURL != "" {
		opts = append(opts, WithLookupURL(c.LookupURL))
	}
	if c.CookieFile != "" {
		opts = append(opts, WithCookieFile(c.CookieFile))
	}
	if c.Token != "" {
		opts = append(opts, WithToken(c.Token))
	}
	if c.Format != "" {
		f, err := table.ParseFormat(c.Format)
		if err != nil {
			return nil, fmt.Errorf("config format: %w", err)
		}
		opts = append(opts, WithFormat(f))
	}
	if c.MaxRec > 0 {
		opts = append(opts, WithMaxRec(c.MaxRec))
	}

	return opts, nil
}

func resolveConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
