package browser

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStartWithinKeepsBrowserOnSuccess(t *testing.T) {
	aborted := false
	err := startWithin(context.Background(), time.Second,
		func() error { return nil },
		func() { aborted = true },
	)
	if err != nil {
		t.Fatalf("startWithin: %v", err)
	}
	if aborted {
		t.Error("a started browser must not be torn down when launch returns")
	}
}

func TestStartWithinAbortsOnStartError(t *testing.T) {
	boom := errors.New("exec: chrome not found")
	aborted := false
	err := startWithin(context.Background(), time.Second,
		func() error { return boom },
		func() { aborted = true },
	)
	if !errors.Is(err, boom) {
		t.Errorf("err: got %v, want %v", err, boom)
	}
	if !aborted {
		t.Error("failed start should release the session")
	}
}

func TestStartWithinAbortsOnTimeout(t *testing.T) {
	release := make(chan struct{})
	err := startWithin(context.Background(), 20*time.Millisecond,
		func() error {
			<-release
			return context.Canceled
		},
		func() { close(release) },
	)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestStartWithinAbortsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	err := startWithin(ctx, time.Minute,
		func() error {
			<-release
			return nil
		},
		func() { close(release) },
	)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err: got %v, want context.Canceled", err)
	}
}
