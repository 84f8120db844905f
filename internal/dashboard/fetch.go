package dashboard

import (
	"context"
	"sync"

	"github.com/sellos-taller/dashboard/internal/query"
)

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseFailure Phase = "failure"
)

type FetchFunc[T any] func(ctx context.Context, req query.Request) (T, error)

// FetchState is what the coordinator exposes. Result holds the last
// successful result and survives later loads and failures.
type FetchState[T any] struct {
	Phase      Phase
	Result     T
	HasResult  bool
	Err        error
	Generation uint64
}

// Coordinator runs list fetches with last-issued-wins semantics: every
// Trigger cancels the fetch before it, and a completion whose generation is
// no longer current is dropped.
type Coordinator[T any] struct {
	fetch    FetchFunc[T]
	onSettle func(FetchState[T])

	mu     sync.Mutex
	state  FetchState[T]
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// NewCoordinator creates an idle coordinator. onSettle runs on the fetch
// goroutine after the current generation completes.
func NewCoordinator[T any](fetch FetchFunc[T], onSettle func(FetchState[T])) *Coordinator[T] {
	return &Coordinator[T]{
		fetch:    fetch,
		onSettle: onSettle,
		state:    FetchState[T]{Phase: PhaseIdle},
	}
}

// Trigger starts a fetch for req and returns its generation.
func (c *Coordinator[T]) Trigger(req query.Request) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.state.Generation
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.state.Generation++
	c.state.Phase = PhaseLoading
	gen := c.state.Generation

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		res, err := c.fetch(ctx, req)
		c.complete(gen, res, err)
	}()
	return gen
}

func (c *Coordinator[T]) complete(gen uint64, res T, err error) {
	c.mu.Lock()
	if c.closed || gen != c.state.Generation {
		c.mu.Unlock()
		return
	}
	c.cancel = nil
	if err != nil {
		c.state.Phase = PhaseFailure
		c.state.Err = err
	} else {
		c.state.Phase = PhaseSuccess
		c.state.Result = res
		c.state.HasResult = true
		c.state.Err = nil
	}
	snap := c.state
	c.mu.Unlock()

	if c.onSettle != nil {
		c.onSettle(snap)
	}
}

func (c *Coordinator[T]) State() FetchState[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close cancels the fetch in flight and waits for its goroutine. Later
// Triggers are ignored.
func (c *Coordinator[T]) Close() {
	c.mu.Lock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	c.wg.Wait()
}
