package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newStringGroup() *FallbackGroup[string] {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	fg.AddFallback("secondary", "secondary")
	return fg
}

func TestFallbackGroup_Execute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fail    map[string]bool
		want    string
		wantErr bool
	}{
		{name: "primary succeeds", want: "primary"},
		{name: "fails over", fail: map[string]bool{"primary": true}, want: "secondary"},
		{name: "all fail", fail: map[string]bool{"primary": true, "secondary": true}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var called string
			err := newStringGroup().Execute(func(v string) error {
				if tt.fail[v] {
					return errTest
				}
				called = v
				return nil
			})
			if tt.wantErr {
				if !errors.Is(err, ErrAllFailed) || !errors.Is(err, errTest) {
					t.Fatalf("err = %v, want ErrAllFailed wrapping errTest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute: unexpected error: %v", err)
			}
			if called != tt.want {
				t.Errorf("called = %q, want %q", called, tt.want)
			}
		})
	}
}

func TestFallbackGroup_SkipsOpenEntry(t *testing.T) {
	t.Parallel()

	fg := newStringGroup()
	for range 2 {
		_ = fg.Execute(func(v string) error {
			if v == "primary" {
				return errTest
			}
			return nil
		})
	}

	var calls []string
	err := fg.Execute(func(v string) error {
		calls = append(calls, v)
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: unexpected error: %v", err)
	}
	if !equalStrings(calls, []string{"secondary"}) {
		t.Errorf("calls = %v, want only secondary", calls)
	}
}

func TestExecuteWithResult_StopsOnCancel(t *testing.T) {
	t.Parallel()

	var calls int
	_, err := ExecuteWithResult(newStringGroup(), func(string) (int, error) {
		calls++
		return 0, context.Canceled
	})
	if !errors.Is(err, context.Canceled) || errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want bare context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestFallbackGroup_Names(t *testing.T) {
	t.Parallel()

	fg := newStringGroup()
	if !equalStrings(fg.Names(), []string{"primary", "secondary"}) {
		t.Errorf("Names = %v", fg.Names())
	}
	if fg.Primary() != "primary" {
		t.Errorf("Primary = %q", fg.Primary())
	}
}
