package reasoning

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicy_SucceedsFirstAttempt(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), "test", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryPolicy_RetriesUntilSuccess(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), "test", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	wantErr := errors.New("persistent")
	calls := 0
	err := policy.Do(context.Background(), "test", func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Do error = %v, want %v", err, wantErr)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryPolicy_ZeroValueRunsOnce(t *testing.T) {
	var policy RetryPolicy

	calls := 0
	policy.Do(context.Background(), "test", func() error {
		calls++
		return errors.New("fail")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryPolicy_ContextCancelled(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- policy.Do(ctx, "test", func() error {
			calls++
			return errors.New("transient")
		})
	}()

	// Cancel while the policy is sleeping before the second attempt.
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
