// Package alerts dispatches budget threshold checks off the request path.
//
// A transaction write commits first and then hands a Request to a Dispatcher.
// Whatever happens to the check afterwards is logged, never returned to the writer.
package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spendsmart/internal/logger"
)

// Request identifies the budget to re-evaluate.
type Request struct {
	UserID        string `json:"user_id"`
	CategoryID    string `json:"category_id"`
	Month         string `json:"month"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// Checker evaluates a budget and notifies its owner when the threshold is crossed.
type Checker interface {
	CheckBudgetAlert(ctx context.Context, userID, categoryID, month string) error
}

// Dispatcher schedules a check. Implementations must not block on the check itself.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request)
}

// AsyncDispatcher runs checks on background goroutines inside this process.
type AsyncDispatcher struct {
	checker Checker
	timeout time.Duration
	sem     chan struct{}

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncDispatcher returns a dispatcher running at most maxInFlight checks at
// once, each bounded by timeout.
func NewAsyncDispatcher(checker Checker, timeout time.Duration, maxInFlight int) *AsyncDispatcher {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &AsyncDispatcher{
		checker: checker,
		timeout: timeout,
		sem:     make(chan struct{}, maxInFlight),
	}
}

// Dispatch implements Dispatcher. The check outlives ctx's cancellation but keeps its values.
func (d *AsyncDispatcher) Dispatch(ctx context.Context, req Request) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		logger.Get().Warnw("alert dispatcher closed, dropping budget check",
			"user_id", req.UserID, "category_id", req.CategoryID, "month", req.Month)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		d.sem <- struct{}{}
		defer func() { <-d.sem }()
		d.run(detached, req)
	}()
}

func (d *AsyncDispatcher) run(ctx context.Context, req Request) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Get().Errorw("budget check panicked",
				"panic", fmt.Sprint(r), "user_id", req.UserID, "category_id", req.CategoryID, "month", req.Month)
		}
	}()

	if err := d.checker.CheckBudgetAlert(ctx, req.UserID, req.CategoryID, req.Month); err != nil {
		logger.Get().Errorw("budget check failed",
			"error", err,
			"user_id", req.UserID,
			"category_id", req.CategoryID,
			"month", req.Month,
			"transaction_id", req.TransactionID,
		)
	}
}

// Wait blocks until every dispatched check has finished.
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting checks and waits for running ones.
func (d *AsyncDispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
