// Package engine wraps a single goja.Runtime as a Session: one JavaScript
// execution context per collected test file (or, in sequential mode, per
// run), driving its own CommonJS module loading, a cooperative timer-backed
// event loop, and a small typed state bag that registration ops use to
// reach the Collector Context without the engine importing it.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"

	"github.com/jtarchie/kurtex/loader"
)

var (
	ErrNotAFunction  = errors.New("value is not callable")
	ErrPromiseFailed = errors.New("promise rejected")
)

// Session is one JavaScript execution context. Not safe for concurrent
// use: a Session is owned by exactly one goroutine for its whole lifetime,
// the same contract the File Collector relies on when it hands a fresh or
// reused Session to each file in turn.
type Session struct {
	vm     *goja.Runtime
	logger *slog.Logger
	loader *loader.Loader

	modules map[string]*goja.Object
	loading map[string]bool

	tasks   chan func() error
	pending int

	timers   map[uint32]*time.Timer
	timerSeq uint32

	state    map[reflect.Type]any
	registry *require.Registry
}

// New returns a Session backed by ld for module resolution, with
// console.log/warn/error wired to logger.
func New(ld *loader.Loader, logger *slog.Logger) *Session {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	sess := &Session{
		vm:      vm,
		logger:  logger,
		loader:  ld,
		modules: map[string]*goja.Object{},
		loading: map[string]bool{},
		tasks:   make(chan func() error, 1),
		timers:  map[uint32]*time.Timer{},
		state:   map[reflect.Type]any{},
	}

	registry := require.NewRegistry()
	registry.Enable(vm)
	registry.RegisterNativeModule("console", console.RequireWithPrinter(&printer{logger: logger}))

	_ = vm.Set("console", require.Require(vm, "console"))
	sess.registry = registry
	sess.installTimers()

	return sess
}

// VM returns the underlying goja runtime, for ops packages that need to
// bind host functions directly.
func (s *Session) VM() *goja.Runtime { return s.vm }

// RegisterNativeModule exposes loader as require(name) — used for
// --globals=false mode, where test/describe/etc. are imported from a
// virtual module rather than installed as globals.
func (s *Session) RegisterNativeModule(name string, loader require.ModuleLoader) {
	s.registry.RegisterNativeModule(name, loader)
}

// StatePut stores v, keyed by its own type, in the session's host state
// bag. A later StateGet[T] on the same Session retrieves it.
func StatePut[T any](s *Session, v T) {
	s.state[reflect.TypeOf(v)] = v
}

// StateGet retrieves the value of type T previously stored with StatePut,
// if any.
func StateGet[T any](s *Session) (T, bool) {
	var zero T

	raw, ok := s.state[reflect.TypeOf(zero)]
	if !ok {
		return zero, false
	}

	v, ok := raw.(T)

	return v, ok
}

// Load resolves specifier relative to referrer (empty for a run root),
// evaluates its CommonJS wrapper if not already cached, and returns the
// resolved specifier (the module's id). Evaluation runs any top-level
// registration ops as a side effect.
func (s *Session) Load(specifier, referrer string) (string, error) {
	resolved, err := s.loader.Resolve(specifier, referrer)
	if err != nil {
		return "", fmt.Errorf("could not resolve %q: %w", specifier, err)
	}

	if err := s.loadModule(resolved); err != nil {
		return "", err
	}

	return resolved, nil
}

// Exports returns the named export of an already-loaded module.
func (s *Session) Exports(moduleID, name string) (goja.Value, error) {
	obj, ok := s.modules[moduleID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", moduleID, loader.ErrNotFound)
	}

	return obj.Get(name), nil
}

// ExportsObject returns the module.exports object of an already-loaded
// module, for callers (e.g. config loading) that need the whole object
// rather than one named export.
func (s *Session) ExportsObject(moduleID string) (*goja.Object, error) {
	obj, ok := s.modules[moduleID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", moduleID, loader.ErrNotFound)
	}

	return obj, nil
}

func (s *Session) loadModule(specifier string) error {
	if _, ok := s.modules[specifier]; ok {
		return nil
	}

	if s.loading[specifier] {
		return nil // cyclic require resolves to the in-progress (possibly partial) exports
	}

	fallback := loader.ContentJavaScript

	rec, err := s.loader.Load(specifier, fallback)
	if err != nil {
		return err
	}

	if rec.ContentType == loader.ContentJSON {
		return s.loadJSON(rec)
	}

	s.loading[specifier] = true
	defer delete(s.loading, specifier)

	wrapped := "(function(module, exports, require) {\n" + string(rec.Source) + "\n})"

	program, err := goja.Compile(specifier, wrapped, true)
	if err != nil {
		return fmt.Errorf("could not compile %q: %w", specifier, err)
	}

	wrapperVal, err := s.vm.RunProgram(program)
	if err != nil {
		return fmt.Errorf("could not evaluate %q: %w", specifier, err)
	}

	wrapperFn, ok := goja.AssertFunction(wrapperVal)
	if !ok {
		return fmt.Errorf("%q: %w", specifier, ErrNotAFunction)
	}

	moduleObj := s.vm.NewObject()
	exportsObj := s.vm.NewObject()

	if err := moduleObj.Set("exports", exportsObj); err != nil {
		return fmt.Errorf("could not seed module.exports for %q: %w", specifier, err)
	}

	requireFn := s.makeRequire(specifier)

	s.modules[specifier] = exportsObj // cache before running so cyclic requires see the (empty) placeholder

	if _, err := wrapperFn(goja.Undefined(), moduleObj, exportsObj, s.vm.ToValue(requireFn)); err != nil {
		delete(s.modules, specifier)

		return fmt.Errorf("could not run %q: %w", specifier, err)
	}

	if err := s.drainEventLoop(); err != nil {
		delete(s.modules, specifier)

		return err
	}

	if finalExports, ok := moduleObj.Get("exports").(*goja.Object); ok {
		s.modules[specifier] = finalExports
	} else if exported := moduleObj.Get("exports"); exported != nil {
		wrapperObj := s.vm.NewObject()
		_ = wrapperObj.Set("default", exported)
		s.modules[specifier] = wrapperObj
	}

	return nil
}

func (s *Session) loadJSON(rec *loader.ModuleRecord) error {
	var payload any

	if err := json.Unmarshal(rec.Source, &payload); err != nil {
		return fmt.Errorf("could not parse %q as JSON: %w", rec.Specifier, err)
	}

	obj := s.vm.NewObject()
	if err := obj.Set("default", s.vm.ToValue(payload)); err != nil {
		return fmt.Errorf("could not wrap JSON export for %q: %w", rec.Specifier, err)
	}

	s.modules[rec.Specifier] = obj

	return nil
}

func (s *Session) makeRequire(referrer string) func(string) (goja.Value, error) {
	return func(specifier string) (goja.Value, error) {
		// Bare names (e.g. "kurtex") are tried against the native modules
		// registered with RegisterNativeModule before the file loader.
		isBare := !strings.HasPrefix(specifier, ".") && !filepath.IsAbs(specifier) && !strings.HasPrefix(specifier, "file:")
		if native, ok := goja.AssertFunction(s.vm.Get("require")); ok && isBare {
			if mod, err := native(goja.Undefined(), s.vm.ToValue(specifier)); err == nil {
				return mod, nil
			}
		}

		resolved, err := s.loader.Resolve(specifier, referrer)
		if err != nil {
			return nil, fmt.Errorf("could not resolve %q: %w", specifier, err)
		}

		if err := s.loadModule(resolved); err != nil {
			return nil, err
		}

		return s.modules[resolved], nil
	}
}

// Call invokes fn, drives the event loop until it quiesces, and if fn
// returned a Promise, resolves it (driving the loop further as needed).
func (s *Session) Call(fn goja.Callable, args ...goja.Value) (goja.Value, error) {
	val, err := fn(goja.Undefined(), args...)
	if err != nil {
		return nil, err
	}

	if err := s.drainEventLoop(); err != nil {
		return nil, err
	}

	return s.resolvePromise(val)
}

func (s *Session) resolvePromise(val goja.Value) (goja.Value, error) {
	if val == nil {
		return val, nil
	}

	promise, ok := val.Export().(*goja.Promise)
	if !ok {
		return val, nil
	}

	for promise.State() == goja.PromiseStatePending && s.pending > 0 {
		if err := s.drainEventLoop(); err != nil {
			return nil, err
		}
	}

	switch promise.State() {
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("%w: %v", ErrPromiseFailed, promise.Result())
	default:
		return promise.Result(), nil
	}
}

// drainEventLoop runs posted continuations (timer firings, resolved
// microtasks) until no more are outstanding.
func (s *Session) drainEventLoop() error {
	for s.pending > 0 {
		task := <-s.tasks
		s.pending--

		if err := task(); err != nil {
			return err
		}
	}

	return nil
}

// installTimers binds a minimal setTimeout/clearTimeout pair. Timer
// callbacks fire on their own goroutine but only ever post a continuation
// onto the Session's task channel — they never touch the goja.Runtime
// directly, preserving the single-goroutine-owns-the-VM contract.
func (s *Session) installTimers() {
	_ = s.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		cb, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(s.vm.NewTypeError("setTimeout: first argument must be a function"))
		}

		delay := call.Argument(1).ToFloat()

		s.timerSeq++
		id := s.timerSeq
		s.pending++

		s.timers[id] = time.AfterFunc(time.Duration(delay)*time.Millisecond, func() {
			s.tasks <- func() error {
				delete(s.timers, id)

				_, err := cb(goja.Undefined())

				return err
			}
		})

		return s.vm.ToValue(id)
	})

	_ = s.vm.Set("clearTimeout", func(call goja.FunctionCall) goja.Value {
		id := uint32(call.Argument(0).ToInteger())

		if timer, ok := s.timers[id]; ok {
			timer.Stop()
			delete(s.timers, id)
			s.pending--
		}

		return goja.Undefined()
	})
}

// Close stops any outstanding timers. Safe to call on a Session that is
// about to be discarded (e.g. the "fresh Session per file" parallel mode).
func (s *Session) Close() {
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
