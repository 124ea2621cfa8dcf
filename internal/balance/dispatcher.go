package balance

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DispatcherConfig tunes the recompute worker pool.
type DispatcherConfig struct {
	Workers     int
	QueueDepth  int
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}

	if c.QueueDepth <= 0 {
		c.QueueDepth = 64
	}

	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}

	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}

	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}

	return c
}

// Dispatcher fans transaction-write events out to recompute workers.
// Recomputes are sharded by customer id, so two writes against the same
// customer are always recomputed in order on the same worker while
// different customers proceed in parallel. Failed recomputes are retried
// in place with backoff; a recompute is a pure function of the stored
// transaction set, so retrying it is always safe.
type Dispatcher struct {
	engine *Engine
	cfg    DispatcherConfig
	log    *slog.Logger

	queues []chan uuid.UUID
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewDispatcher(engine *Engine, cfg DispatcherConfig, log *slog.Logger) *Dispatcher {
	cfg = cfg.withDefaults()

	d := &Dispatcher{
		engine: engine,
		cfg:    cfg,
		log:    log,
		queues: make([]chan uuid.UUID, cfg.Workers),
	}

	for i := range d.queues {
		d.queues[i] = make(chan uuid.UUID, cfg.QueueDepth)
	}

	return d
}

// Start launches the worker pool. Each worker owns one shard of the
// customer id space.
func (d *Dispatcher) Start() {
	for _, q := range d.queues {
		d.wg.Add(1)

		go func(q chan uuid.UUID) {
			defer d.wg.Done()

			for id := range q {
				d.process(id)
			}
		}(q)
	}
}

// TransactionWritten satisfies the transaction service's Recalculator
// contract. It never blocks the caller beyond queue backpressure.
func (d *Dispatcher) TransactionWritten(before, after *uuid.UUID) {
	d.Enqueue(WriteEvent{Before: before, After: after})
}

// Enqueue schedules a recompute for every customer the event touches.
// Events arriving after Close are dropped with a warning; the next write
// for the same customer re-triggers a full recompute anyway.
func (d *Dispatcher) Enqueue(ev WriteEvent) {
	ids := ev.CustomerIDs()
	if len(ids) == 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.log.Warn("recompute dropped, dispatcher closed", "customers", ids)
		return
	}

	for _, id := range ids {
		d.queues[shard(id, len(d.queues))] <- id
	}
}

// Close stops accepting events and blocks until all queued recomputes have
// drained.
func (d *Dispatcher) Close() {
	d.mu.Lock()

	if d.closed {
		d.mu.Unlock()
		return
	}

	d.closed = true

	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) process(customerID uuid.UUID) {
	var err error

	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
		err = d.engine.Recalculate(ctx, customerID)
		cancel()

		if err == nil {
			return
		}

		d.log.Warn("balance recompute failed",
			"customer_id", customerID, "attempt", attempt, "error", err)

		if attempt < d.cfg.MaxAttempts {
			time.Sleep(d.cfg.RetryDelay * time.Duration(attempt))
		}
	}

	d.log.Error("balance recompute abandoned, balance stays stale until next write",
		"customer_id", customerID, "attempts", d.cfg.MaxAttempts, "error", err)
}

func shard(id uuid.UUID, n int) int {
	h := fnv.New32a()
	h.Write(id[:])

	return int(h.Sum32() % uint32(n))
}
