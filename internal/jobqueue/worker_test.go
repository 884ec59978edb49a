package jobqueue

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
)

func TestRegistryGetUnregisteredKind(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.get(KindRunMatch); ok {
		t.Fatal("an empty registry should not resolve any kind")
	}
}

func TestRegistryGetReturnsRegisteredHandler(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register(KindRunMatch, func(ctx context.Context, payload []byte) error {
		called = true
		return nil
	})

	h, ok := r.get(KindRunMatch)
	if !ok {
		t.Fatal("expected KindRunMatch to resolve after Register")
	}
	if err := h(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error from handler: %v", err)
	}
	if !called {
		t.Fatal("resolved handler should be the one registered")
	}
}

func TestWorkerInvokeRecoversFromPanic(t *testing.T) {
	w := &Worker{log: slog.New(slog.NewTextHandler(os.Stderr, nil))}
	job := &Job{ID: uuid.New(), Kind: KindRunMatch}

	panicking := func(ctx context.Context, payload []byte) error {
		panic("boom")
	}

	err := w.invoke(context.Background(), panicking, job)
	if err == nil {
		t.Fatal("expected invoke to convert a panic into an error")
	}
}

func TestWorkerInvokePropagatesHandlerError(t *testing.T) {
	w := &Worker{log: slog.New(slog.NewTextHandler(os.Stderr, nil))}
	job := &Job{ID: uuid.New(), Kind: KindRunMatch}

	wantErr := errors.New("handler exploded")
	failing := func(ctx context.Context, payload []byte) error { return wantErr }

	err := w.invoke(context.Background(), failing, job)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}
