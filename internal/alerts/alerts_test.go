package alerts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingChecker struct {
	mu       sync.Mutex
	calls    []Request
	err      error
	panicMsg string
	block    chan struct{}
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (c *recordingChecker) CheckBudgetAlert(ctx context.Context, userID, categoryID, month string) error {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		cur := c.maxSeen.Load()
		if n <= cur || c.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	c.calls = append(c.calls, Request{UserID: userID, CategoryID: categoryID, Month: month})
	c.mu.Unlock()
	if c.panicMsg != "" {
		panic(c.panicMsg)
	}
	return c.err
}

func TestAsyncDispatcher_RunsCheck(t *testing.T) {
	checker := &recordingChecker{}
	d := NewAsyncDispatcher(checker, time.Second, 4)

	d.Dispatch(context.Background(), Request{UserID: "u1", CategoryID: "c1", Month: "2024-06"})
	d.Close()

	require.Len(t, checker.calls, 1)
	assert.Equal(t, Request{UserID: "u1", CategoryID: "c1", Month: "2024-06"}, checker.calls[0])
}

func TestAsyncDispatcher_SurvivesCallerCancellation(t *testing.T) {
	checker := &recordingChecker{block: make(chan struct{})}
	d := NewAsyncDispatcher(checker, time.Second, 1)

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, Request{UserID: "u1", CategoryID: "c1", Month: "2024-06"})
	cancel()
	close(checker.block)
	d.Close()

	assert.Len(t, checker.calls, 1, "check must run even after the request context is cancelled")
}

func TestAsyncDispatcher_ErrorsAndPanicsAreContained(t *testing.T) {
	d := NewAsyncDispatcher(&recordingChecker{err: errors.New("smtp down")}, time.Second, 1)
	d.Dispatch(context.Background(), Request{UserID: "u1"})
	d.Close()

	p := NewAsyncDispatcher(&recordingChecker{panicMsg: "nil map"}, time.Second, 1)
	p.Dispatch(context.Background(), Request{UserID: "u1"})
	p.Close()
}

func TestAsyncDispatcher_BoundsConcurrency(t *testing.T) {
	checker := &recordingChecker{}
	d := NewAsyncDispatcher(checker, time.Second, 2)

	for i := 0; i < 20; i++ {
		d.Dispatch(context.Background(), Request{UserID: "u1"})
	}
	d.Close()

	assert.Len(t, checker.calls, 20)
	assert.LessOrEqual(t, checker.maxSeen.Load(), int32(2))
}

func TestAsyncDispatcher_TimeoutBoundsCheck(t *testing.T) {
	checker := &recordingChecker{block: make(chan struct{})}
	d := NewAsyncDispatcher(checker, 10*time.Millisecond, 1)

	d.Dispatch(context.Background(), Request{UserID: "u1"})
	d.Close()

	assert.Empty(t, checker.calls, "blocked check should have been cut off by the timeout")
}

func TestAsyncDispatcher_DropsAfterClose(t *testing.T) {
	checker := &recordingChecker{}
	d := NewAsyncDispatcher(checker, time.Second, 1)
	d.Close()

	d.Dispatch(context.Background(), Request{UserID: "u1"})
	d.Wait()

	assert.Empty(t, checker.calls)
}
