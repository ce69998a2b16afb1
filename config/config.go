// Package config locates and loads a kurtex config file, which may be
// plain JSON or a JS/TS module exporting a default config object.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dop251/goja"
	"github.com/go-playground/validator/v10"

	"github.com/jtarchie/kurtex/engine"
	"github.com/jtarchie/kurtex/loader"
)

// CandidateNames are checked, in order, at each directory level Find
// walks up through.
var CandidateNames = []string{
	"kurtex.config.ts",
	"kurtex.config.mts",
	"kurtex.config.cts",
	"kurtex.config.tsx",
	"kurtex.config.js",
	"kurtex.config.mjs",
	"kurtex.config.cjs",
	"kurtex.config.jsx",
	"kurtex.config.json",
	"ktx.config.ts",
	"ktx.config.mts",
	"ktx.config.cts",
	"ktx.config.tsx",
	"ktx.config.js",
	"ktx.config.mjs",
	"ktx.config.cjs",
	"ktx.config.jsx",
}

// ErrNotFound is returned by Find when no candidate file exists between
// start and the filesystem root.
var ErrNotFound = errors.New("no config file found")

// Config is a run's resolved settings — the defaults, a discovered
// config file's contents, and CLI flags all unify into one of these
// before the File Collector runs.
type Config struct {
	Root     string   `json:"root"      validate:"required"`
	Include  []string `json:"include"`
	Exclude  []string `json:"exclude"`
	Globals  bool      `json:"globals"`
	Parallel bool      `json:"parallel"`
	Watch    bool      `json:"watch"`
	Debounce duration  `json:"debounce"`
}

// duration unmarshals from either a JSON number (milliseconds) or a Go
// duration string ("1500ms"), since a JS config author writes numbers
// but a JSON config author may prefer either.
type duration time.Duration

func (d *duration) UnmarshalJSON(data []byte) error {
	var asNumber float64
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*d = duration(time.Duration(asNumber) * time.Millisecond)

		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("could not parse duration: %w", err)
	}

	parsed, err := time.ParseDuration(asString)
	if err != nil {
		return fmt.Errorf("could not parse duration %q: %w", asString, err)
	}

	*d = duration(parsed)

	return nil
}

// Duration returns the config value as a time.Duration.
func (d duration) Duration() time.Duration { return time.Duration(d) }

// SetDebounce overrides the config's debounce window, for a CLI flag
// that should take precedence over whatever the config file declared.
func (c *Config) SetDebounce(d time.Duration) { c.Debounce = duration(d) }

// Find walks up from start looking for any of CandidateNames, the way a
// package manager finds the nearest package.json.
func Find(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("could not resolve %q: %w", start, err)
	}

	for {
		for _, name := range CandidateNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}

		dir = parent
	}
}

// Load reads and validates the config file at path. JSON files are
// decoded directly; .js/.mjs/.ts/.mts files are evaluated through a
// throwaway Engine Session and their default export is converted.
func Load(path string, logger *slog.Logger) (*Config, error) {
	var cfg Config

	switch filepath.Ext(path) {
	case ".json":
		if err := loadJSON(path, &cfg); err != nil {
			return nil, err
		}
	default:
		if err := loadScript(path, logger, &cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Root == "" {
		cfg.Root = filepath.Dir(path)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}

	return &cfg, nil
}

func loadJSON(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read %q: %w", path, err)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("could not parse %q: %w", path, err)
	}

	return nil
}

func loadScript(path string, logger *slog.Logger, cfg *Config) error {
	ld := loader.New(nil)
	sess := engine.New(ld, logger)
	defer sess.Close()

	specifier, err := loader.PathToSpecifier(path)
	if err != nil {
		return err
	}

	moduleID, err := sess.Load(specifier, "")
	if err != nil {
		return fmt.Errorf("could not evaluate %q: %w", path, err)
	}

	exportsObj, err := sess.ExportsObject(moduleID)
	if err != nil {
		return err
	}

	value := exportsObj.Get("default")
	if value == nil || goja.IsUndefined(value) {
		value = exportsObj
	}

	if err := sess.VM().ExportTo(value, cfg); err != nil {
		return fmt.Errorf("could not convert config export from %q: %w", path, err)
	}

	return nil
}
