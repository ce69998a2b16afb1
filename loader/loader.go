// Package loader resolves module specifiers to filesystem paths, reads and
// transpiles their source, and records the result as a ModuleRecord in a
// Store so the Module Graph can see every module's imports. Load always
// re-reads a specifier's source from disk: a duplicate Load for a specifier
// already in the Store replaces its record rather than returning the stale
// one, so a file edited between two collection passes (watch mode) is
// picked up on the next Load instead of serving pre-edit bytes forever.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/jtarchie/kurtex/transform"
)

// ContentType distinguishes the handful of ways a module's source is
// interpreted once read from disk.
type ContentType int

const (
	ContentJavaScript ContentType = iota
	ContentJSON
)

var (
	ErrNotFound           = errors.New("module not found")
	ErrReadFailed         = errors.New("could not read module source")
	ErrUnknownModuleType  = errors.New("unrecognized module extension")
	ErrTranspileFailed    = errors.New("could not transpile module")
	ErrSpecifierNotFile   = errors.New("only file-scheme specifiers are supported")
)

// transpileExtensions are read and run through esbuild before being handed
// to the Engine Session as CommonJS source.
var transpileExtensions = map[string]bool{
	".ts":  true,
	".mts": true,
	".cts": true,
	".tsx": true,
	".jsx": true,
}

// passthroughExtensions are handed to the Engine Session exactly as read,
// without going through esbuild, so their source must already be CommonJS;
// ESM import/export syntax in them is not rewritten.
var passthroughExtensions = map[string]bool{
	".js":  true,
	".mjs": true,
	".cjs": true,
}

// ModuleRecord is everything the Engine Session and the Module Graph need
// about one resolved module: its specifier, the transpiled source ready to
// wrap and run, and the specifiers it statically imports.
type ModuleRecord struct {
	Specifier   string
	ContentType ContentType
	Source      []byte
	Imports     []string
}

// Store caches ModuleRecords by specifier. Safe for concurrent use so a
// Module Graph build and a parallel File Collector run can share one Store.
type Store struct {
	mu      sync.RWMutex
	records map[string]*ModuleRecord
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{records: map[string]*ModuleRecord{}}
}

// Get returns a cached record, if one exists for specifier.
func (s *Store) Get(specifier string) (*ModuleRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[specifier]

	return rec, ok
}

// put stores or replaces a record.
func (s *Store) put(rec *ModuleRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.Specifier] = rec
}

// All returns every record currently cached, unordered.
func (s *Store) All() []*ModuleRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ModuleRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}

	return out
}

// Loader resolves specifiers relative to a referrer and loads their
// content, transpiling TypeScript/JSX sources and recording static import
// specifiers for the Module Graph.
type Loader struct {
	store *Store
}

// New returns a Loader backed by store. A nil store gets its own private
// cache.
func New(store *Store) *Loader {
	if store == nil {
		store = NewStore()
	}

	return &Loader{store: store}
}

// Store returns the Loader's backing cache.
func (l *Loader) Store() *Store { return l.store }

// PathToSpecifier converts a filesystem path to a file-scheme specifier.
func PathToSpecifier(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("could not resolve absolute path for %q: %w", path, err)
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}

	return u.String(), nil
}

// SpecifierToPath converts a file-scheme specifier back to a filesystem
// path.
func SpecifierToPath(specifier string) (string, error) {
	u, err := url.Parse(specifier)
	if err != nil {
		return "", fmt.Errorf("%q: invalid specifier: %w", specifier, err)
	}

	if u.Scheme != "file" {
		return "", fmt.Errorf("%q: %w", specifier, ErrSpecifierNotFile)
	}

	return filepath.FromSlash(u.Path), nil
}

// Resolve turns a bare specifier (as written in an import/require call)
// into an absolute file-scheme specifier, relative to referrer when the
// specifier is itself relative. referrer may be empty for a run's root
// files.
func (l *Loader) Resolve(specifier, referrer string) (string, error) {
	if u, err := url.Parse(specifier); err == nil && u.Scheme == "file" {
		return specifier, nil
	}

	if filepath.IsAbs(specifier) {
		return PathToSpecifier(specifier)
	}

	dir := "."

	if referrer != "" {
		referrerPath, err := SpecifierToPath(referrer)
		if err != nil {
			return "", err
		}

		dir = filepath.Dir(referrerPath)
	}

	path := filepath.Join(dir, specifier)

	// An extensionless require("./helper") names helper.js, helper.ts, etc.
	if _, err := os.Stat(path); err != nil {
		for _, ext := range []string{".js", ".ts", ".mjs", ".cjs", ".mts", ".cts", ".jsx", ".tsx", ".json"} {
			if _, err := os.Stat(path + ext); err == nil {
				path += ext

				break
			}
		}
	}

	return PathToSpecifier(path)
}

// Load reads and (if needed) transpiles the module named by specifier,
// replacing any prior Store record for it, and returns the fresh record.
// fallback is the content type to assume when the specifier's extension is
// not recognized (e.g. an extensionless require resolved from a JavaScript
// referrer). Load always re-reads from disk rather than serving a cached
// record, so a duplicate Load for the same specifier reflects the file's
// current contents.
func (l *Loader) Load(specifier string, fallback ContentType) (*ModuleRecord, error) {
	path, err := SpecifierToPath(specifier)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%q: %w", specifier, ErrNotFound)
		}

		return nil, fmt.Errorf("%q: %w: %w", specifier, ErrReadFailed, err)
	}

	ext := strings.ToLower(filepath.Ext(path))

	contentType := fallback
	needsTranspile := false

	switch {
	case ext == ".json":
		contentType = ContentJSON
	case transpileExtensions[ext]:
		contentType = ContentJavaScript
		needsTranspile = true
	case passthroughExtensions[ext]:
		contentType = ContentJavaScript
	case ext == "":
		// fallback stands
	default:
		return nil, fmt.Errorf("%q: %w", specifier, ErrUnknownModuleType)
	}

	source := raw

	if needsTranspile {
		transpiled, err := transform.Transpile(string(raw), path)
		if err != nil {
			return nil, fmt.Errorf("%q: %w: %w", specifier, ErrTranspileFailed, err)
		}

		source = []byte(transpiled)
	}

	rec := &ModuleRecord{
		Specifier:   specifier,
		ContentType: contentType,
		Source:      source,
	}

	if contentType == ContentJavaScript {
		rec.Imports = parseImports(source)
	}

	l.store.put(rec)

	return rec, nil
}

// importPattern matches require("specifier") and require('specifier')
// calls, which is what esbuild lowers both ESM import/export statements
// and CommonJS requires to once Format is CommonJS. Dynamic import() calls
// that esbuild cannot statically resolve are not recorded; the Module
// Graph treats the files they touch as untracked.
var importPattern = regexp.MustCompile(`require\(\s*["']([^"']+)["']\s*\)`)

func parseImports(source []byte) []string {
	matches := importPattern.FindAllSubmatch(source, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))

	imports := make([]string, 0, len(matches))
	for _, m := range matches {
		spec := string(m[1])
		if seen[spec] {
			continue
		}

		seen[spec] = true

		imports = append(imports, spec)
	}

	return imports
}
