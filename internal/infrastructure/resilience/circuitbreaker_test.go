package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	failing := func() error { return errors.New("boom") }

	for i := 0; i < 3; i++ {
		if err := cb.Execute(failing); err == nil {
			t.Fatalf("expected failure on call %d", i)
		}
	}

	if cb.CurrentState() != StateOpen {
		t.Fatalf("expected open state after threshold, got %v", cb.CurrentState())
	}

	// Further calls are rejected without invoking fn.
	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Errorf("expected fn not to be called while open")
	}
}

func TestCircuitBreaker_SuccessResetsFailCount(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	failing := func() error { return errors.New("boom") }

	_ = cb.Execute(failing)
	_ = cb.Execute(failing)
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(failing)
	_ = cb.Execute(failing)

	if cb.CurrentState() != StateClosed {
		t.Errorf("expected closed state, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	_ = cb.Execute(func() error { return errors.New("boom") })
	if cb.CurrentState() != StateOpen {
		t.Fatalf("expected open state, got %v", cb.CurrentState())
	}

	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected half-open probe to succeed, got %v", err)
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("expected closed state after recovery, got %v", cb.CurrentState())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	_ = cb.Execute(func() error { return errors.New("boom") })
	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(func() error { return errors.New("still down") }); err == nil {
		t.Fatalf("expected failure")
	}
	if cb.CurrentState() != StateOpen {
		t.Errorf("expected reopened state, got %v", cb.CurrentState())
	}
}

func TestState_String(t *testing.T) {
	cases := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
	}
	for _, tc := range cases {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", tc.state, got, tc.want)
		}
	}
}

type flakyLLM struct {
	err   error
	calls int
}

func (f *flakyLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "ok", nil
}
func (f *flakyLLM) Name() string { return "flaky" }

func TestGuardedLLMClient(t *testing.T) {
	inner := &flakyLLM{err: errors.New("provider down")}
	guarded := NewGuardedLLMClient(inner, NewCircuitBreaker(2, time.Minute))

	_, _ = guarded.Generate(context.Background(), "p")
	_, _ = guarded.Generate(context.Background(), "p")

	// Circuit is open now; the provider must not see the third call.
	_, err := guarded.Generate(context.Background(), "p")
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", inner.calls)
	}

	if guarded.Name() != "flaky [guarded]" {
		t.Errorf("unexpected name %q", guarded.Name())
	}
}

func TestGuardedLLMClient_PassThrough(t *testing.T) {
	inner := &flakyLLM{}
	guarded := NewGuardedLLMClient(inner, NewCircuitBreaker(2, time.Minute))

	out, err := guarded.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Errorf("expected ok, got %q", out)
	}
}
