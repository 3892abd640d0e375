package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests
	return logger
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b := New("mailgate", 3, time.Minute, testLogger())
	failing := func() error { return errors.New("gateway down") }

	for i := 0; i < 3; i++ {
		if err := b.Execute(failing); err == nil {
			t.Fatal("expected failure from fn")
		}
	}

	if b.State() != StateOpen {
		t.Fatalf("expected open after 3 failures, got %s", b.State())
	}

	// While open, calls fail fast without invoking fn.
	invoked := false
	err := b.Execute(func() error {
		invoked = true
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
	if invoked {
		t.Error("fn must not run while breaker is open")
	}
}

func TestHalfOpenProbeClosesOnSuccess(t *testing.T) {
	b := New("mailgate", 1, 10*time.Millisecond, testLogger())

	if err := b.Execute(func() error { return errors.New("boom") }); err == nil {
		t.Fatal("expected failure")
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	time.Sleep(20 * time.Millisecond)

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe should have been allowed: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("expected closed after successful probe, got %s", b.State())
	}
}

func TestHalfOpenProbeReopensOnFailure(t *testing.T) {
	b := New("mailgate", 1, 10*time.Millisecond, testLogger())

	b.Execute(func() error { return errors.New("boom") })
	time.Sleep(20 * time.Millisecond)

	if err := b.Execute(func() error { return errors.New("still down") }); err == nil {
		t.Fatal("expected probe failure")
	}
	if b.State() != StateOpen {
		t.Errorf("expected open after failed probe, got %s", b.State())
	}
}

func TestConcurrentExecuteIsSafe(t *testing.T) {
	b := New("mailgate", 5, 50*time.Millisecond, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			b.Execute(func() error {
				if n%3 == 0 {
					return errors.New("simulated failure")
				}
				return nil
			})
		}(i)
	}
	wg.Wait()

	// No assertion on final state; the point is the race detector stays
	// quiet and State remains well-formed.
	if s := b.State(); s != StateClosed && s != StateOpen && s != StateHalfOpen {
		t.Errorf("invalid state %d", s)
	}
}
