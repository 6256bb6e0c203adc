package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLockTable_ExclusivePerDevice(t *testing.T) {
	locks := newLockTable()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "gate-1", time.Second)
	if err != nil {
		t.Fatalf("acquire() error = %v", err)
	}

	if _, err := locks.acquire(ctx, "gate-1", 10*time.Millisecond); !errors.Is(err, ErrLockTimeout) {
		t.Errorf("second acquire() error = %v, want ErrLockTimeout", err)
	}

	other, err := locks.acquire(ctx, "gate-2", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire(gate-2) error = %v", err)
	}
	other()

	release()
	release() // second call is a no-op

	again, err := locks.acquire(ctx, "gate-1", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire() after release error = %v", err)
	}
	again()

	if locks.size() != 0 {
		t.Errorf("size() = %d, want 0", locks.size())
	}
}

func TestLockTable_FIFOHandoff(t *testing.T) {
	locks := newLockTable()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "gate-1", time.Second)
	if err != nil {
		t.Fatalf("acquire() error = %v", err)
	}

	order := make(chan int, 3)
	for i := 0; i < 3; i++ {
		waiting := make(chan struct{})
		go func(i int) {
			close(waiting)
			rel, err := locks.acquire(ctx, "gate-1", 5*time.Second)
			if err != nil {
				t.Errorf("acquire(%d) error = %v", i, err)
				return
			}
			order <- i
			rel()
		}(i)
		<-waiting
		// Give the goroutine time to queue behind the holder.
		time.Sleep(20 * time.Millisecond)
	}

	release()
	for want := 0; want < 3; want++ {
		if got := <-order; got != want {
			t.Errorf("acquired by %d, want %d", got, want)
		}
	}
}
