package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSubmitRunsJobAndCallsBack(t *testing.T) {
	p := New(1, zerolog.Nop())
	defer p.Close()

	boom := errors.New("boom")
	done := make(chan error, 1)
	if !p.Submit(context.Background(), func(ctx context.Context) error { return boom }, func(err error) { done <- err }) {
		t.Fatal("Expected submit to succeed")
	}
	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("Expected boom, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback not invoked")
	}
}

func TestSubmitBackPressure(t *testing.T) {
	p := New(1, zerolog.Nop())
	defer p.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	blocking := func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}
	if !p.Submit(context.Background(), blocking, nil) {
		t.Fatal("first submit should succeed")
	}
	<-started

	noop := func(ctx context.Context) error { return nil }
	if !p.Submit(context.Background(), noop, nil) {
		t.Fatal("second submit should fill the queue slot")
	}
	if p.Submit(context.Background(), noop, nil) {
		t.Error("third submit should be dropped while busy")
	}
	close(release)
}

func TestPanicBecomesError(t *testing.T) {
	p := New(1, zerolog.Nop())
	defer p.Close()

	done := make(chan error, 1)
	p.Submit(context.Background(), func(ctx context.Context) error { panic("índice") }, func(err error) { done <- err })
	if err := <-done; err == nil {
		t.Fatal("Expected panic to surface as error")
	}

	// worker still alive
	p.Submit(context.Background(), func(ctx context.Context) error { return nil }, func(err error) { done <- err })
	if err := <-done; err != nil {
		t.Errorf("Unexpected error %v", err)
	}
}
