// Package batch computes many charts concurrently on a bounded worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/siliconsteed/rva-api/internal/metrics"
	"github.com/siliconsteed/rva-api/internal/vedic"
)

const defaultMaxItems = 100

var (
	// ErrEmptyBatch is returned for a batch with no items.
	ErrEmptyBatch = errors.New("batch contains no requests")
	// ErrBatchTooLarge is returned when a batch exceeds Config.MaxItems.
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
	// ErrPanicked marks an item whose calculation panicked.
	ErrPanicked = errors.New("calculation panicked")
)

// Calculator computes one chart. *vedic.Calculator satisfies it.
type Calculator interface {
	Calculate(ctx context.Context, in vedic.Input) (*vedic.ResultSet, error)
}

// Config controls pool size and batch limits.
type Config struct {
	Workers  int // defaults to runtime.NumCPU()
	MaxItems int // defaults to 100
}

// Outcome is the result of one batch item. Exactly one of Result and Err is set.
type Outcome struct {
	Index  int
	Input  vedic.Input
	Result *vedic.ResultSet
	Err    error
}

// Pool runs chart calculations on a shared pond pool.
type Pool struct {
	calc     Calculator
	pool     pond.Pool
	workers  int
	maxItems int
	logger   *slog.Logger
}

// New creates a pool. Call Stop to release its workers.
func New(calc Calculator, cfg Config, logger *slog.Logger) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	return &Pool{
		calc:     calc,
		pool:     pond.NewPool(workers),
		workers:  workers,
		maxItems: maxItems,
		logger:   logger,
	}
}

// Workers returns the pool's concurrency limit.
func (p *Pool) Workers() int { return p.workers }

// MaxItems returns the largest accepted batch.
func (p *Pool) MaxItems() int { return p.maxItems }

// CalculateBatch computes every input and returns outcomes in input order.
// Items fail independently; the returned error covers only batch-level
// problems (empty or oversized batch).
func (p *Pool) CalculateBatch(ctx context.Context, inputs []vedic.Input) ([]Outcome, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(inputs) > p.maxItems {
		return nil, fmt.Errorf("%w: %d items, limit %d", ErrBatchTooLarge, len(inputs), p.maxItems)
	}

	start := time.Now()
	metrics.ObserveBatch(len(inputs))

	outcomes := make([]Outcome, len(inputs))
	for i, in := range inputs {
		outcomes[i] = Outcome{Index: i, Input: in}
	}

	// A cancelled group can return from Wait while tasks are still running;
	// results arriving after that are dropped.
	var mu sync.Mutex
	collected := false

	group := p.pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for i, in := range inputs {
		group.Submit(func() {
			var rs *vedic.ResultSet
			err := groupCtx.Err()
			if err == nil {
				rs, err = p.calculateOne(groupCtx, in)
			}

			mu.Lock()
			defer mu.Unlock()
			if !collected {
				outcomes[i].Result, outcomes[i].Err = rs, err
			}
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		p.logger.Warn("batch group finished with error", "component", "batch", "error", err)
	}

	mu.Lock()
	collected = true
	mu.Unlock()

	// Tasks skipped by a cancelled group never ran.
	var failed int
	for i := range outcomes {
		if outcomes[i].Result == nil && outcomes[i].Err == nil {
			outcomes[i].Err = context.Cause(ctx)
			if outcomes[i].Err == nil {
				outcomes[i].Err = pond.ErrGroupStopped
			}
		}
		if outcomes[i].Err != nil {
			failed++
		}
	}

	p.logger.Info("batch calculated",
		"component", "batch",
		"items", len(inputs),
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return outcomes, nil
}

func (p *Pool) calculateOne(ctx context.Context, in vedic.Input) (rs *vedic.ResultSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("batch item panicked", "component", "batch", "panic", fmt.Sprint(r))
			rs, err = nil, fmt.Errorf("%w: %v", ErrPanicked, r)
		}
	}()
	return p.calc.Calculate(ctx, in)
}

// Stop waits for running tasks and stops the pool.
func (p *Pool) Stop() {
	p.pool.StopAndWait()
}
