package source

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/relay"
)

func TestSource_StagesTransformBeforeEmission(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "port: 8080\nhost: localhost")

	src := New[TestConfig](path,
		WithStages(
			StageTransform("default-timeout", func(_ context.Context, cfg TestConfig) TestConfig {
				if cfg.Timeout == 0 {
					cfg.Timeout = 60
				}
				return cfg
			}),
		),
	)

	got := make(chan TestConfig, 1)
	src.Channel().OnUpdate(relay.Immediate(), func(cfg TestConfig) {
		select {
		case got <- cfg:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case cfg := <-got:
		if cfg.Timeout != 60 {
			t.Errorf("expected defaulted timeout 60, got %d", cfg.Timeout)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for value")
	}
}

func TestSource_StageFailureDegrades(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "port: 8080\nhost: localhost")

	src := New[TestConfig](path,
		WithStages(
			StageEffect("reject-all", func(context.Context, TestConfig) error {
				return errors.New("rejected")
			}),
		),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := src.Start(ctx); err == nil {
		t.Fatal("expected pipeline error")
	}
	if src.State() != StateEmpty {
		t.Errorf("expected empty state, got %s", src.State())
	}
}

func TestSource_RetryRerunsPipeline(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "port: 8080\nhost: localhost")

	var attempts atomic.Int32
	src := New[TestConfig](path,
		WithStages(
			StageEffect("flaky", func(context.Context, TestConfig) error {
				if attempts.Add(1) < 3 {
					return errors.New("transient")
				}
				return nil
			}),
		),
		// Later options wrap the pipeline built so far, so the retry
		// encloses the flaky stage.
		WithRetry[TestConfig](3),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("expected retries to succeed, got %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
	if src.State() != StateHealthy {
		t.Errorf("expected healthy, got %s", src.State())
	}
}

func TestSource_BufferServesMultipleLateSubscribers(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "port: 8080\nhost: localhost")

	src := New[TestConfig](path, WithBuffer[TestConfig](2))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		got := make(chan TestConfig, 1)
		src.Channel().OnUpdate(relay.Immediate(), func(cfg TestConfig) {
			select {
			case got <- cfg:
			default:
			}
		})
		select {
		case cfg := <-got:
			if cfg.Port != 8080 {
				t.Errorf("subscriber %d: expected 8080, got %d", i, cfg.Port)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: timeout waiting for replay", i)
		}
	}
}
