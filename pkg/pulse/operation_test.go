package pulse

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOperationCompletes(t *testing.T) {
	op := newOperation()
	if op.State() != OpRunning {
		t.Fatalf("new operation state = %v, want running", op.State())
	}

	go op.complete(nil)
	if err := op.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if op.State() != OpDone {
		t.Errorf("state = %v, want done", op.State())
	}
}

func TestOperationError(t *testing.T) {
	op := newOperation()
	want := errors.New("request failed")
	op.complete(want)

	if err := op.Wait(context.Background()); !errors.Is(err, want) {
		t.Fatalf("Wait = %v, want %v", err, want)
	}
	if op.State() != OpError {
		t.Errorf("state = %v, want error", op.State())
	}
}

func TestOperationCompletesOnce(t *testing.T) {
	op := newOperation()
	op.complete(nil)
	op.complete(errors.New("late failure")) // ignored

	if op.State() != OpDone {
		t.Errorf("state = %v, want done", op.State())
	}
	if err := op.Wait(context.Background()); err != nil {
		t.Errorf("Wait = %v, want nil", err)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	op := newOperation()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := op.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait = %v, want deadline exceeded", err)
	}
}
