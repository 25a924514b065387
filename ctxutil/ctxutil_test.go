// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func TestCloseGroup(t *testing.T) {
	var cg CloseGroup

	var done atomic.Int32
	for i := 0; i < 100; i++ {
		cg.Go(context.Background(), func(ctx context.Context) {
			<-ctx.Done()
			if !errors.Is(context.Cause(ctx), os.ErrClosed) {
				t.Errorf("want os.ErrClosed, got %v", context.Cause(ctx))
			}
			done.Add(1)
		})
	}

	cg.Close()
	if n := done.Load(); n != 100 {
		t.Fatalf("want 100 goroutines complete, got %d", n)
	}
}

func TestCloseGroupParent(t *testing.T) {
	var cg CloseGroup
	defer cg.Close()

	parent, cancel := context.WithCancel(context.Background())
	doneCh := make(chan struct{})
	cg.Go(parent, func(ctx context.Context) {
		<-ctx.Done()
		close(doneCh)
	})
	cancel()

	select {
	case <-doneCh:
	case <-time.After(5 * time.Second):
		t.Fatalf("goroutine did not observe parent cancellation")
	}
}

func TestSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatal(err)
	}
}

func TestBackoff(t *testing.T) {
	b := Exponential(time.Second, 5*time.Second)
	wants := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, want := range wants {
		if got := b(i + 1); got != want {
			t.Fatalf("attempt %d: want %s, got %s", i+1, want, got)
		}
	}
	if got := Fixed(time.Second)(10); got != time.Second {
		t.Fatalf("want 1s, got %s", got)
	}
}

func TestRetry(t *testing.T) {
	n := 0
	err := Retry(context.Background(), Fixed(0), func() error {
		if n++; n < 3 {
			return os.ErrInvalid
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("want 3 calls, got %d", n)
	}
}
