package balance_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lebohangm/fakaloan/internal/balance"
	"github.com/lebohangm/fakaloan/internal/customer"
	"github.com/lebohangm/fakaloan/internal/transaction"
)

// fakeSource is an in-memory transaction store. Unknown customers yield an
// empty slice, mirroring the real store contract.
type fakeSource struct {
	mu  sync.Mutex
	txs map[uuid.UUID][]*transaction.Transaction
	err error
}

func newFakeSource() *fakeSource {
	return &fakeSource{txs: make(map[uuid.UUID][]*transaction.Transaction)}
}

func (f *fakeSource) ListForCustomer(_ context.Context, customerID uuid.UUID) ([]*transaction.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	return append([]*transaction.Transaction(nil), f.txs[customerID]...), nil
}

func (f *fakeSource) add(customerID uuid.UUID, txs ...*transaction.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.txs[customerID] = append(f.txs[customerID], txs...)
}

func (f *fakeSource) remove(customerID, txID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.txs[customerID][:0]

	for _, tx := range f.txs[customerID] {
		if tx.ID != txID {
			kept = append(kept, tx)
		}
	}

	f.txs[customerID] = kept
}

// fakeWriter records balance patches.
type fakeWriter struct {
	mu       sync.Mutex
	balances map[uuid.UUID]decimal.Decimal
	writes   int
	err      error
	errFor   map[uuid.UUID]error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{balances: make(map[uuid.UUID]decimal.Decimal)}
}

func (f *fakeWriter) PatchBalance(_ context.Context, customerID uuid.UUID, bal decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	if err := f.errFor[customerID]; err != nil {
		return err
	}

	f.writes++
	f.balances[customerID] = bal

	return nil
}

func (f *fakeWriter) balance(customerID uuid.UUID) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.balances[customerID]
}

func (f *fakeWriter) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.writes
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func credit(customerID uuid.UUID, amount string) *transaction.Transaction {
	return &transaction.Transaction{
		ID:         uuid.New(),
		CustomerID: customerID,
		Type:       transaction.TypeCredit,
		Amount:     decimal.RequireFromString(amount),
	}
}

func repayment(customerID uuid.UUID, amount string) *transaction.Transaction {
	return &transaction.Transaction{
		ID:         uuid.New(),
		CustomerID: customerID,
		Type:       transaction.TypeRepayment,
		Amount:     decimal.RequireFromString(amount),
	}
}

func TestRecalculate_CreditsMinusRepayments(t *testing.T) {
	customerID := uuid.New()
	source := newFakeSource()
	writer := newFakeWriter()
	engine := balance.NewEngine(source, writer, testLogger())

	source.add(customerID,
		credit(customerID, "100"),
		credit(customerID, "50"),
		repayment(customerID, "30"),
	)

	require.NoError(t, engine.Recalculate(context.Background(), customerID))
	assert.True(t, writer.balance(customerID).Equal(decimal.RequireFromString("120")),
		"got %s", writer.balance(customerID))
}

func TestRecalculate_TracksTransactionSetChanges(t *testing.T) {
	customerID := uuid.New()
	source := newFakeSource()
	writer := newFakeWriter()
	engine := balance.NewEngine(source, writer, testLogger())

	firstRepayment := repayment(customerID, "30")
	source.add(customerID,
		credit(customerID, "100"),
		credit(customerID, "50"),
		firstRepayment,
	)

	require.NoError(t, engine.Recalculate(context.Background(), customerID))
	assert.Equal(t, "120", writer.balance(customerID).String())

	// A second repayment arrives.
	source.add(customerID, repayment(customerID, "20"))

	require.NoError(t, engine.Recalculate(context.Background(), customerID))
	assert.Equal(t, "100", writer.balance(customerID).String())

	// The original repayment is deleted.
	source.remove(customerID, firstRepayment.ID)

	require.NoError(t, engine.Recalculate(context.Background(), customerID))
	assert.Equal(t, "150", writer.balance(customerID).String())
}

func TestRecalculate_EmptyCustomerHasZeroBalance(t *testing.T) {
	customerID := uuid.New()
	source := newFakeSource()
	writer := newFakeWriter()
	engine := balance.NewEngine(source, writer, testLogger())

	require.NoError(t, engine.Recalculate(context.Background(), customerID))
	assert.True(t, writer.balance(customerID).IsZero())
	assert.Equal(t, 1, writer.writeCount())
}

func TestRecalculate_Idempotent(t *testing.T) {
	customerID := uuid.New()
	source := newFakeSource()
	writer := newFakeWriter()
	engine := balance.NewEngine(source, writer, testLogger())

	source.add(customerID,
		credit(customerID, "75.50"),
		repayment(customerID, "25.50"),
	)

	require.NoError(t, engine.Recalculate(context.Background(), customerID))
	first := writer.balance(customerID)

	require.NoError(t, engine.Recalculate(context.Background(), customerID))
	second := writer.balance(customerID)

	assert.True(t, first.Equal(second))
	assert.Equal(t, "50", second.String())
}

func TestRecalculate_FoldIsOrderIndependent(t *testing.T) {
	customerID := uuid.New()

	txs := []*transaction.Transaction{
		credit(customerID, "10.10"),
		credit(customerID, "200"),
		repayment(customerID, "0.10"),
		repayment(customerID, "55.55"),
		credit(customerID, "1.23"),
	}

	want := decimal.RequireFromString("155.68")

	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 10; i++ {
		rng.Shuffle(len(txs), func(a, b int) { txs[a], txs[b] = txs[b], txs[a] })

		source := newFakeSource()
		source.add(customerID, txs...)

		writer := newFakeWriter()
		engine := balance.NewEngine(source, writer, testLogger())

		require.NoError(t, engine.Recalculate(context.Background(), customerID))
		assert.True(t, writer.balance(customerID).Equal(want),
			"permutation %d: got %s, want %s", i, writer.balance(customerID), want)
	}
}

func TestRecalculate_DecimalAmountsDoNotDrift(t *testing.T) {
	customerID := uuid.New()
	source := newFakeSource()
	writer := newFakeWriter()
	engine := balance.NewEngine(source, writer, testLogger())

	// Ten 0.1 credits drift under binary floats; the fold must not.
	for i := 0; i < 10; i++ {
		source.add(customerID, credit(customerID, "0.1"))
	}

	require.NoError(t, engine.Recalculate(context.Background(), customerID))
	assert.Equal(t, "1", writer.balance(customerID).String())
}

func TestRecalculate_ReadFailureWritesNothing(t *testing.T) {
	customerID := uuid.New()
	source := newFakeSource()
	source.err = errors.New("store unavailable")

	writer := newFakeWriter()
	engine := balance.NewEngine(source, writer, testLogger())

	err := engine.Recalculate(context.Background(), customerID)
	require.Error(t, err)
	assert.Zero(t, writer.writeCount(), "no balance may be written from a failed read")
}

func TestRecalculate_WriteFailurePropagates(t *testing.T) {
	customerID := uuid.New()
	source := newFakeSource()
	source.add(customerID, credit(customerID, "10"))

	writer := newFakeWriter()
	writer.err = errors.New("write refused")

	engine := balance.NewEngine(source, writer, testLogger())

	require.Error(t, engine.Recalculate(context.Background(), customerID))
}

func TestRecalculate_MissingCustomerIsMoot(t *testing.T) {
	customerID := uuid.New()
	source := newFakeSource()
	source.add(customerID, credit(customerID, "10"))

	writer := newFakeWriter()
	writer.err = customer.ErrNotFound

	engine := balance.NewEngine(source, writer, testLogger())

	assert.NoError(t, engine.Recalculate(context.Background(), customerID))
}

func TestRecalculate_UnknownTypeIsInvariantViolation(t *testing.T) {
	customerID := uuid.New()
	source := newFakeSource()
	source.add(customerID,
		credit(customerID, "10"),
		&transaction.Transaction{
			ID:         uuid.New(),
			CustomerID: customerID,
			Type:       transaction.Type("refund"),
			Amount:     decimal.RequireFromString("5"),
		},
	)

	writer := newFakeWriter()
	engine := balance.NewEngine(source, writer, testLogger())

	err := engine.Recalculate(context.Background(), customerID)
	require.ErrorIs(t, err, transaction.ErrUnknownType)
	assert.Zero(t, writer.writeCount(), "a poisoned fold must not persist a balance")
}

func TestHandleWrite_NoResolvableIDIsNoOp(t *testing.T) {
	source := newFakeSource()
	writer := newFakeWriter()
	engine := balance.NewEngine(source, writer, testLogger())

	require.NoError(t, engine.HandleWrite(context.Background(), balance.WriteEvent{}))
	assert.Zero(t, writer.writeCount())
}

func TestHandleWrite_CreateAndDeleteTouchOneCustomer(t *testing.T) {
	customerID := uuid.New()
	source := newFakeSource()
	source.add(customerID, credit(customerID, "40"))

	writer := newFakeWriter()
	engine := balance.NewEngine(source, writer, testLogger())

	// Create: only an after id.
	require.NoError(t, engine.HandleWrite(context.Background(), balance.WriteEvent{After: &customerID}))
	assert.Equal(t, 1, writer.writeCount())

	// Delete: only a before id.
	require.NoError(t, engine.HandleWrite(context.Background(), balance.WriteEvent{Before: &customerID}))
	assert.Equal(t, 2, writer.writeCount())

	// Update without reassignment: same id on both sides recomputes once.
	require.NoError(t, engine.HandleWrite(context.Background(), balance.WriteEvent{Before: &customerID, After: &customerID}))
	assert.Equal(t, 3, writer.writeCount())
}

func TestHandleWrite_ReassignmentRecomputesBothCustomers(t *testing.T) {
	customerA := uuid.New()
	customerB := uuid.New()

	// The transaction has already moved from A to B in the store.
	source := newFakeSource()
	source.add(customerA, credit(customerA, "100"))
	source.add(customerB,
		credit(customerB, "20"),
		credit(customerB, "30"), // the moved transaction
	)

	writer := newFakeWriter()
	engine := balance.NewEngine(source, writer, testLogger())

	ev := balance.WriteEvent{Before: &customerA, After: &customerB}
	require.NoError(t, engine.HandleWrite(context.Background(), ev))

	assert.Equal(t, "100", writer.balance(customerA).String())
	assert.Equal(t, "50", writer.balance(customerB).String())
}

func TestHandleWrite_ReassignmentPartialFailureStillRecomputesOther(t *testing.T) {
	customerA := uuid.New()
	customerB := uuid.New()

	source := newFakeSource()
	source.add(customerA, credit(customerA, "10"))
	source.add(customerB, credit(customerB, "20"))

	writer := newFakeWriter()
	writer.errFor = map[uuid.UUID]error{customerA: errors.New("write refused")}

	engine := balance.NewEngine(source, writer, testLogger())

	ev := balance.WriteEvent{Before: &customerA, After: &customerB}
	err := engine.HandleWrite(context.Background(), ev)

	require.Error(t, err, "the failed side must surface for redelivery")
	assert.Equal(t, "20", writer.balance(customerB).String(),
		"the healthy side must still be recomputed")
}

func TestHandleWrite_RandomSetsSatisfyInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 50; run++ {
		customerID := uuid.New()
		source := newFakeSource()
		writer := newFakeWriter()
		engine := balance.NewEngine(source, writer, testLogger())

		want := decimal.Zero

		for i := 0; i < rng.Intn(20); i++ {
			cents := rng.Int63n(1_000_000) + 1
			amount := decimal.New(cents, -2)

			if rng.Intn(2) == 0 {
				source.add(customerID, &transaction.Transaction{
					ID: uuid.New(), CustomerID: customerID,
					Type: transaction.TypeCredit, Amount: amount,
				})
				want = want.Add(amount)
			} else {
				source.add(customerID, &transaction.Transaction{
					ID: uuid.New(), CustomerID: customerID,
					Type: transaction.TypeRepayment, Amount: amount,
				})
				want = want.Sub(amount)
			}
		}

		require.NoError(t, engine.HandleWrite(context.Background(), balance.WriteEvent{After: &customerID}))
		assert.True(t, writer.balance(customerID).Equal(want),
			"run %d: got %s, want %s", run, writer.balance(customerID), want)
	}
}

func TestWriteEvent_CustomerIDs(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	tests := []struct {
		name string
		ev   balance.WriteEvent
		want []uuid.UUID
	}{
		{name: "Empty", ev: balance.WriteEvent{}, want: nil},
		{name: "Create", ev: balance.WriteEvent{After: &a}, want: []uuid.UUID{a}},
		{name: "Delete", ev: balance.WriteEvent{Before: &a}, want: []uuid.UUID{a}},
		{name: "Update", ev: balance.WriteEvent{Before: &a, After: &a}, want: []uuid.UUID{a}},
		{name: "Reassign", ev: balance.WriteEvent{Before: &a, After: &b}, want: []uuid.UUID{a, b}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ev.CustomerIDs())
		})
	}
}
