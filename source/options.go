package source

import (
	"context"
	"time"

	"github.com/zoobzio/pipz"
)

// Option configures a Source. Pipeline options (WithRetry, WithBackoff,
// WithTimeout, WithStages) build up the processing applied to each
// decoded value before it is emitted; each one wraps the pipeline
// configured so far, so later options enclose earlier ones.
type Option[T any] func(*config[T])

type config[T any] struct {
	decode      Decoder
	bufferSize  int
	historySize int
	wrappers    []func(pipz.Chainable[T]) pipz.Chainable[T]
}

// WithDecoder sets the decoder for the watched bytes.
// Default: DecodeAuto.
func WithDecoder[T any](decode Decoder) Option[T] {
	return func(c *config[T]) {
		c.decode = decode
	}
}

// WithJSON enforces JSON format for incoming data.
func WithJSON[T any]() Option[T] {
	return WithDecoder[T](DecodeJSON)
}

// WithYAML enforces YAML format for incoming data (which also accepts
// JSON).
func WithYAML[T any]() Option[T] {
	return WithDecoder[T](DecodeYAML)
}

// WithBuffer sets the replay capacity of the source's channel, so late
// subscribers see up to n recent values. Default: 1 (the current
// value).
func WithBuffer[T any](n int) Option[T] {
	return func(c *config[T]) {
		c.bufferSize = n
	}
}

// WithFailureHistory retains up to n recent processing failures for
// inspection via Failures(); consecutive repeats of the same failure
// coalesce into one entry. Default: only the most recent error via
// LastError().
func WithFailureHistory[T any](n int) Option[T] {
	return func(c *config[T]) {
		c.historySize = n
	}
}

// WithRetry wraps the processing pipeline with retry logic. Failed
// processing is retried immediately up to maxAttempts times.
func WithRetry[T any](maxAttempts int) Option[T] {
	return func(c *config[T]) {
		c.wrappers = append(c.wrappers, func(p pipz.Chainable[T]) pipz.Chainable[T] {
			return pipz.NewRetry("retry", p, maxAttempts)
		})
	}
}

// WithBackoff wraps the processing pipeline with exponential backoff
// retry logic: baseDelay, 2*baseDelay, 4*baseDelay, and so on.
func WithBackoff[T any](maxAttempts int, baseDelay time.Duration) Option[T] {
	return func(c *config[T]) {
		c.wrappers = append(c.wrappers, func(p pipz.Chainable[T]) pipz.Chainable[T] {
			return pipz.NewBackoff("backoff", p, maxAttempts, baseDelay)
		})
	}
}

// WithTimeout wraps the processing pipeline with a deadline.
func WithTimeout[T any](d time.Duration) Option[T] {
	return func(c *config[T]) {
		c.wrappers = append(c.wrappers, func(p pipz.Chainable[T]) pipz.Chainable[T] {
			return pipz.NewTimeout("timeout", p, d)
		})
	}
}

// WithStages runs the given processors, in order, on each decoded value
// before it is emitted. Use the Stage* helpers or provide custom
// pipz.Chainable implementations directly.
func WithStages[T any](stages ...pipz.Chainable[T]) Option[T] {
	return func(c *config[T]) {
		c.wrappers = append(c.wrappers, func(p pipz.Chainable[T]) pipz.Chainable[T] {
			all := make([]pipz.Chainable[T], 0, len(stages)+1)
			all = append(all, stages...)
			all = append(all, p)
			return pipz.NewSequence("stages", all...)
		})
	}
}

// StageTransform creates a stage that transforms the decoded value and
// cannot fail.
func StageTransform[T any](name string, fn func(context.Context, T) T) pipz.Chainable[T] {
	return pipz.Transform(pipz.Name(name), fn)
}

// StageApply creates a stage that can transform the decoded value and
// fail.
func StageApply[T any](name string, fn func(context.Context, T) (T, error)) pipz.Chainable[T] {
	return pipz.Apply(pipz.Name(name), fn)
}

// StageEffect creates a stage that observes the decoded value without
// changing it.
func StageEffect[T any](name string, fn func(context.Context, T) error) pipz.Chainable[T] {
	return pipz.Effect(pipz.Name(name), fn)
}

// buildPipeline wraps the identity terminal with the configured
// wrappers.
func buildPipeline[T any](cfg *config[T]) pipz.Chainable[T] {
	if len(cfg.wrappers) == 0 {
		return nil
	}
	pipeline := pipz.Chainable[T](pipz.Transform(pipz.Name("emit"), func(_ context.Context, v T) T {
		return v
	}))
	for _, wrap := range cfg.wrappers {
		pipeline = wrap(pipeline)
	}
	return pipeline
}
