package balance_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lebohangm/fakaloan/internal/balance"
	"github.com/lebohangm/fakaloan/internal/transaction"
)

func testDispatcherConfig() balance.DispatcherConfig {
	return balance.DispatcherConfig{
		Workers:     4,
		QueueDepth:  16,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
		Timeout:     time.Second,
	}
}

func TestDispatcher_RecomputesEnqueuedCustomers(t *testing.T) {
	customerA := uuid.New()
	customerB := uuid.New()

	source := newFakeSource()
	source.add(customerA, credit(customerA, "100"), repayment(customerA, "40"))
	source.add(customerB, credit(customerB, "5"))

	writer := newFakeWriter()
	engine := balance.NewEngine(source, writer, testLogger())

	d := balance.NewDispatcher(engine, testDispatcherConfig(), testLogger())
	d.Start()

	d.TransactionWritten(nil, &customerA)
	d.TransactionWritten(&customerB, &customerB)
	d.Close()

	assert.Equal(t, "60", writer.balance(customerA).String())
	assert.Equal(t, "5", writer.balance(customerB).String())
}

func TestDispatcher_ReassignmentRecomputesBoth(t *testing.T) {
	customerA := uuid.New()
	customerB := uuid.New()

	source := newFakeSource()
	source.add(customerB, credit(customerB, "30"))

	writer := newFakeWriter()
	engine := balance.NewEngine(source, writer, testLogger())

	d := balance.NewDispatcher(engine, testDispatcherConfig(), testLogger())
	d.Start()

	d.TransactionWritten(&customerA, &customerB)
	d.Close()

	assert.True(t, writer.balance(customerA).IsZero())
	assert.Equal(t, "30", writer.balance(customerB).String())
}

// flakyWriter fails a fixed number of times before succeeding.
type flakyWriter struct {
	inner     *fakeWriter
	mu        sync.Mutex
	failures  int
	attempted int
}

func (f *flakyWriter) PatchBalance(ctx context.Context, customerID uuid.UUID, bal decimal.Decimal) error {
	f.mu.Lock()
	f.attempted++
	fail := f.attempted <= f.failures
	f.mu.Unlock()

	if fail {
		return errors.New("transient store outage")
	}

	return f.inner.PatchBalance(ctx, customerID, bal)
}

func TestDispatcher_RetriesFailedRecompute(t *testing.T) {
	customerID := uuid.New()

	source := newFakeSource()
	source.add(customerID, credit(customerID, "10"))

	writer := &flakyWriter{inner: newFakeWriter(), failures: 2}
	engine := balance.NewEngine(source, writer, testLogger())

	d := balance.NewDispatcher(engine, testDispatcherConfig(), testLogger())
	d.Start()

	d.TransactionWritten(nil, &customerID)
	d.Close()

	assert.Equal(t, "10", writer.inner.balance(customerID).String())
	assert.Equal(t, 3, writer.attempted)
}

// concurrencySource counts how many recomputes read the same customer at
// once.
type concurrencySource struct {
	*fakeSource
	active   atomic.Int32
	maxSeen  atomic.Int32
	listened atomic.Int32
}

func (c *concurrencySource) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*transaction.Transaction, error) {
	n := c.active.Add(1)
	defer c.active.Add(-1)

	for {
		seen := c.maxSeen.Load()
		if n <= seen || c.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	time.Sleep(time.Millisecond)
	c.listened.Add(1)

	return c.fakeSource.ListForCustomer(ctx, customerID)
}

func TestDispatcher_SerializesRecomputesPerCustomer(t *testing.T) {
	customerID := uuid.New()

	source := &concurrencySource{fakeSource: newFakeSource()}
	source.add(customerID, credit(customerID, "1"))

	writer := newFakeWriter()
	engine := balance.NewEngine(source, writer, testLogger())

	d := balance.NewDispatcher(engine, testDispatcherConfig(), testLogger())
	d.Start()

	for i := 0; i < 20; i++ {
		d.TransactionWritten(nil, &customerID)
	}

	d.Close()

	assert.Equal(t, int32(20), source.listened.Load())
	assert.Equal(t, int32(1), source.maxSeen.Load(),
		"recomputes for one customer must never overlap")
}

func TestDispatcher_DropsEventsAfterClose(t *testing.T) {
	customerID := uuid.New()

	source := newFakeSource()
	writer := newFakeWriter()
	engine := balance.NewEngine(source, writer, testLogger())

	d := balance.NewDispatcher(engine, testDispatcherConfig(), testLogger())
	d.Start()
	d.Close()

	require.NotPanics(t, func() {
		d.TransactionWritten(nil, &customerID)
	})
	assert.Zero(t, writer.writeCount())
}
