// Package source turns watched files into relay channels. A Source
// reads a file, decodes it, validates the result, runs it through an
// optional processing pipeline, and emits it as an update on a
// relay.Channel; every subsequent write to the file repeats the cycle.
//
// Decode, validation, and pipeline failures are not terminal: the
// Source degrades, records the failure, and keeps watching for valid
// data. The channel completes only when the watch ends — with
// ErrCancelled when the context is done, or with a failure when the
// watcher's event or error channel closes. Errors the watcher reports
// while running are recorded like other failures and are not terminal.
//
//	type Config struct {
//	    Port int    `yaml:"port" validate:"min=1,max=65535"`
//	    Host string `yaml:"host" validate:"required"`
//	}
//
//	src := source.New[Config]("/etc/app/config.yaml",
//	    source.WithYAML[Config](),
//	    source.WithRetry[Config](3),
//	)
//	if err := src.Start(ctx); err != nil {
//	    log.Printf("initial load failed: %v", err)
//	}
//	src.Channel().OnUpdate(relay.Main(), app.Reconfigure)
package source

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"

	"github.com/zoobzio/relay"
)

// validate is the shared validator instance.
var validate = validator.New()

// Validator lets a decoded type carry its own validation logic, in
// addition to (or instead of) struct tags.
type Validator interface {
	Validate() error
}

// Source watches a file and emits each valid decoded value as an
// update on a relay channel.
type Source[T any] struct {
	path     string
	decode   Decoder
	pipeline pipz.Chainable[T]
	history  *failureLog

	state     atomic.Int32
	lastError atomic.Pointer[error]

	mu      sync.Mutex
	started bool

	prod *relay.Producer[T, struct{}]
}

// New creates a Source for the given file path.
//
// Bytes are decoded to T using the configured decoder (DecodeAuto by
// default), validated with go-playground/validator struct tags plus
// the Validator interface if T implements it, and run through the
// configured pipeline before emission.
func New[T any](path string, opts ...Option[T]) *Source[T] {
	cfg := &config[T]{bufferSize: 1}
	for _, opt := range opts {
		opt(cfg)
	}

	decode := cfg.decode
	if decode == nil {
		decode = DecodeAuto
	}

	s := &Source[T]{
		path:     path,
		decode:   decode,
		pipeline: buildPipeline(cfg),
		history:  newFailureLog(cfg.historySize),
		prod:     relay.NewProducer[T, struct{}](cfg.bufferSize),
	}
	s.state.Store(int32(StateLoading))
	return s
}

// Channel returns the channel the source emits on. Late subscribers
// replay the most recent values per the configured buffer.
func (s *Source[T]) Channel() *relay.Channel[T, struct{}] {
	return s.prod.Channel
}

// State returns the current state of the Source.
func (s *Source[T]) State() State {
	return State(s.state.Load())
}

// LastError returns the last processing error, or nil.
func (s *Source[T]) LastError() error {
	ptr := s.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// Failures returns the recent failure history, oldest first, with
// consecutive repeats of the same failure coalesced. Nil unless
// WithFailureHistory was set.
func (s *Source[T]) Failures() []Failure {
	return s.history.all()
}

// Start reads and processes the file once, then continues watching
// asynchronously. If the initial load fails, Start returns the error
// but keeps watching for valid updates. Start can only be called once.
func (s *Source[T]) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("source already started")
	}
	s.started = true
	s.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(s.path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch file %s: %w", s.path, err)
	}

	capitan.Emit(ctx, SourceStarted, KeyPath.Field(s.path))

	initialErr := s.read(ctx)
	go s.watch(ctx, watcher)
	return initialErr
}

// read loads the file and processes its contents.
func (s *Source[T]) read(ctx context.Context) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.fail(ctx, "read", err)
		return fmt.Errorf("read failed: %w", err)
	}
	capitan.Emit(ctx, SourceChangeReceived, KeyPath.Field(s.path))
	return s.process(ctx, data)
}

// process decodes, validates, pipelines, and emits a single value.
func (s *Source[T]) process(ctx context.Context, raw []byte) error {
	var value T
	if err := s.decode(raw, &value); err != nil {
		s.fail(ctx, "decode", err)
		capitan.Emit(ctx, SourceDecodeFailed, KeyError.Field(err.Error()))
		return fmt.Errorf("decode failed: %w", err)
	}

	if err := validateValue(value); err != nil {
		s.fail(ctx, "validate", err)
		capitan.Emit(ctx, SourceValidationFailed, KeyError.Field(err.Error()))
		return fmt.Errorf("validation failed: %w", err)
	}

	if s.pipeline != nil {
		processed, err := s.pipeline.Process(ctx, value)
		if err != nil {
			s.fail(ctx, "pipeline", err)
			capitan.Emit(ctx, SourcePipelineFailed, KeyError.Field(err.Error()))
			return fmt.Errorf("pipeline failed: %w", err)
		}
		value = processed
	}

	s.prod.Update(value)
	s.lastError.Store(nil)
	s.history.clear()
	s.transition(ctx, StateHealthy)
	capitan.Emit(ctx, SourceEmitted, KeyPath.Field(s.path))
	return nil
}

// validateValue applies the Validator interface when implemented and
// struct-tag validation when v is a struct.
func validateValue(v any) error {
	if val, ok := v.(Validator); ok {
		if err := val.Validate(); err != nil {
			return err
		}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		return validate.Struct(v)
	}
	return nil
}

// fail records a processing failure and degrades the state.
func (s *Source[T]) fail(ctx context.Context, stage string, err error) {
	e := err
	s.lastError.Store(&e)
	s.history.push(stage, err)
	if s.everEmitted() {
		s.transition(ctx, StateDegraded)
	} else {
		s.transition(ctx, StateEmpty)
	}
}

// everEmitted reports whether any value has reached the channel.
func (s *Source[T]) everEmitted() bool {
	return State(s.state.Load()) == StateHealthy || State(s.state.Load()) == StateDegraded
}

// transition updates the state and emits a change signal if it moved.
func (s *Source[T]) transition(ctx context.Context, next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev == next {
		return
	}
	capitan.Emit(ctx, SourceStateChanged,
		KeyOldState.Field(prev.String()),
		KeyNewState.Field(next.String()),
	)
}

// watch re-reads the file on every write until the context ends or the
// watcher dies, then completes the channel.
func (s *Source[T]) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	defer func() {
		capitan.Emit(ctx, SourceStopped,
			KeyPath.Field(s.path),
			KeyState.Field(s.State().String()),
		)
	}()

	for {
		select {
		case <-ctx.Done():
			s.prod.Cancel()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				s.prod.Fail(fmt.Errorf("watcher closed for %s", s.path))
				return
			}
			// Write for in-place edits, Create for atomic replace-by-rename.
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			_ = s.read(ctx) //nolint:errcheck // Failures recorded via fail

		case err, ok := <-watcher.Errors:
			if !ok {
				s.prod.Fail(fmt.Errorf("watcher closed for %s", s.path))
				return
			}
			s.fail(ctx, "watch", err)
		}
	}
}
