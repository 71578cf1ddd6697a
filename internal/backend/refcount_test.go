package backend

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestRefcountInitializesOnceAndFreesAtZero(t *testing.T) {
	inits, frees := 0, 0
	r := NewRefcount(
		func() error { inits++; return nil },
		func() { frees++ },
		nil,
	)

	if err := r.Acquire(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Acquire(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inits != 1 {
		t.Fatalf("expected init to run once for two acquires, ran %d times", inits)
	}

	r.Release()
	if frees != 0 {
		t.Fatal("expected free not to run while refcount > 0")
	}
	r.Release()
	if frees != 1 {
		t.Fatalf("expected free to run once at refcount zero, ran %d times", frees)
	}
}

func TestLoadUnloadLoadRoundTrips(t *testing.T) {
	inits, frees := 0, 0
	r := NewRefcount(
		func() error { inits++; return nil },
		func() { frees++ },
		nil,
	)
	_ = r.Acquire()
	r.Release()
	_ = r.Acquire()
	r.Release()
	if inits != 2 || frees != 2 {
		t.Fatalf("expected init/free to pair up across load/unload/load, got inits=%d frees=%d", inits, frees)
	}
	if r.Count() != 0 {
		t.Fatalf("expected refcount to return to zero, got %d", r.Count())
	}
}

func TestAcquireLogsInitFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	initErr := errors.New("native init boom")
	r := NewRefcount(func() error { return initErr }, func() {}, logger)

	if err := r.Acquire(); !errors.Is(err, initErr) {
		t.Fatalf("expected init error to propagate, got %v", err)
	}
	if !strings.Contains(buf.String(), "native init boom") {
		t.Fatalf("expected init failure to be logged, got %q", buf.String())
	}
}

func TestReleaseBelowZeroIsNoOp(t *testing.T) {
	frees := 0
	r := NewRefcount(func() error { return nil }, func() { frees++ }, nil)
	r.Release()
	r.Release()
	if frees != 0 {
		t.Fatal("expected releasing an unacquired refcount to be a no-op")
	}
}
