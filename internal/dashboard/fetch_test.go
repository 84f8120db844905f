package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sellos-taller/dashboard/internal/query"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCoordinator_LastIssuedWins(t *testing.T) {
	release := map[string]chan struct{}{
		"old": make(chan struct{}),
		"new": make(chan struct{}),
	}
	var oldCtxErr error
	var mu sync.Mutex
	fetch := func(ctx context.Context, req query.Request) (string, error) {
		<-release[req.Search]
		if req.Search == "old" {
			mu.Lock()
			oldCtxErr = ctx.Err()
			mu.Unlock()
		}
		return req.Search, nil
	}
	settled := make(chan FetchState[string], 4)
	c := NewCoordinator[string](fetch, func(st FetchState[string]) { settled <- st })
	defer c.Close()

	c.Trigger(query.Request{Search: "old"})
	gen := c.Trigger(query.Request{Search: "new"})

	close(release["new"])
	st := <-settled
	if st.Result != "new" || st.Generation != gen {
		t.Fatalf("settled = %+v, want new at gen %d", st, gen)
	}

	close(release["old"])
	waitFor(t, "old fetch to finish", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return oldCtxErr != nil
	})
	if !errors.Is(oldCtxErr, context.Canceled) {
		t.Errorf("superseded fetch ctx err = %v, want context.Canceled", oldCtxErr)
	}
	select {
	case st := <-settled:
		t.Fatalf("stale result settled: %+v", st)
	case <-time.After(50 * time.Millisecond):
	}
	if got := c.State(); got.Result != "new" || got.Phase != PhaseSuccess {
		t.Errorf("state = %+v", got)
	}
}

func TestCoordinator_FailureKeepsLastResult(t *testing.T) {
	fail := errors.New("timeout")
	fetch := func(ctx context.Context, req query.Request) (int, error) {
		if req.Search == "bad" {
			return 0, fail
		}
		return 42, nil
	}
	settled := make(chan FetchState[int], 2)
	c := NewCoordinator[int](fetch, func(st FetchState[int]) { settled <- st })
	defer c.Close()

	if c.State().Phase != PhaseIdle {
		t.Fatalf("initial phase = %s", c.State().Phase)
	}
	c.Trigger(query.Request{})
	<-settled
	c.Trigger(query.Request{Search: "bad"})
	st := <-settled

	if st.Phase != PhaseFailure || !errors.Is(st.Err, fail) {
		t.Fatalf("state = %+v", st)
	}
	if !st.HasResult || st.Result != 42 {
		t.Errorf("previous result lost: %+v", st)
	}
}

func TestCoordinator_CloseCancelsAndIgnoresTriggers(t *testing.T) {
	started := make(chan struct{})
	fetch := func(ctx context.Context, req query.Request) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	}
	var calls int
	c := NewCoordinator[int](fetch, func(FetchState[int]) { calls++ })
	c.Trigger(query.Request{})
	<-started
	c.Close()

	c.Trigger(query.Request{})
	if calls != 0 {
		t.Errorf("onSettle called %d times after close", calls)
	}
}
