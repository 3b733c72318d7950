package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"safe-gateway-lite/internal/apperr"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time      { return c.t }
func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func propose(t *testing.T, m *Memory, hash string, nonce uint64) {
	t.Helper()
	require.NoError(t, m.Propose(context.Background(), ProposeRequest{Transaction: Transaction{
		SafeTxHash: hash, Safe: testSafe, ChainID: "1", Nonce: nonce,
	}}))
}

func TestMemory_LagAndExecution(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	var executed []string
	m := NewMemory(MemoryOptions{Lag: time.Minute, Now: c.now, OnExecute: func(tx Transaction) {
		executed = append(executed, tx.SafeTxHash)
	}})
	ctx := context.Background()

	propose(t, m, "0xa", 0)
	items, err := m.Queued(ctx, "1", testSafe)
	require.NoError(t, err)
	assert.Empty(t, Transactions(items), "not visible before the lag elapses")

	c.add(time.Minute)
	items, err = m.Queued(ctx, "1", testSafe)
	require.NoError(t, err)
	require.Len(t, Transactions(items), 1)
	assert.Equal(t, ItemLabel, items[0].Type)

	require.NoError(t, m.Execute("1", "0xa", "0xbeef"))
	assert.Equal(t, []string{"0xa"}, executed)
	assert.True(t, apperr.Is(m.Execute("1", "0xa", "0xbeef"), apperr.ErrConflict))

	history, err := m.History(ctx, "1", testSafe)
	require.NoError(t, err)
	assert.Empty(t, Transactions(history))

	c.add(time.Minute)
	history, err = m.History(ctx, "1", testSafe)
	require.NoError(t, err)
	txs := Transactions(history)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].IsExecuted)
	assert.Equal(t, ItemDateLabel, history[0].Type)

	items, err = m.Queued(ctx, "1", testSafe)
	require.NoError(t, err)
	assert.Empty(t, Transactions(items))
}

func TestMemory_ConflictHeadersAndDelete(t *testing.T) {
	m := NewMemory(MemoryOptions{})
	ctx := context.Background()
	propose(t, m, "0xa", 0)
	propose(t, m, "0xb", 1)
	propose(t, m, "0xc", 1)

	assert.True(t, apperr.Is(m.Propose(ctx, ProposeRequest{Transaction: Transaction{SafeTxHash: "0xA", ChainID: "1"}}), apperr.ErrConflict))

	items, err := m.Queued(ctx, "1", testSafe)
	require.NoError(t, err)
	var kinds []ItemType
	for _, it := range items {
		kinds = append(kinds, it.Type)
	}
	assert.Equal(t, []ItemType{ItemLabel, ItemTransaction, ItemLabel, ItemConflictHeader, ItemTransaction, ItemTransaction}, kinds)

	require.NoError(t, m.Delete(ctx, "1", "0xb", "sig"))
	require.NoError(t, m.Delete(ctx, "1", "0xb", "sig"))
	items, err = m.Queued(ctx, "1", testSafe)
	require.NoError(t, err)
	assert.Len(t, Transactions(items), 2)

	require.NoError(t, m.Confirm(ctx, "1", "0xa", Confirmation{Owner: "o1", Signature: "s1"}))
	require.NoError(t, m.Confirm(ctx, "1", "0xa", Confirmation{Owner: "o1", Signature: "s1"}))
	items, _ = m.Queued(ctx, "1", testSafe)
	assert.Len(t, Transactions(items)[0].Confirmations, 1)

	assert.True(t, apperr.Is(m.Confirm(ctx, "1", "0xb", Confirmation{Owner: "o1"}), apperr.ErrNotFound))
}

func TestMemory_TransactionFollowsVisibility(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	m := NewMemory(MemoryOptions{Lag: time.Minute, Now: c.now})
	ctx := context.Background()

	propose(t, m, "0xa", 0)
	_, err := m.Transaction(ctx, "1", "0xA")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound), "got %v", err)

	c.add(time.Minute)
	tx, err := m.Transaction(ctx, "1", "0xA")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), tx.Nonce)
	assert.False(t, tx.IsExecuted)

	require.NoError(t, m.Execute("1", "0xa", "0xbeef"))
	tx, err = m.Transaction(ctx, "1", "0xa")
	require.NoError(t, err)
	assert.False(t, tx.IsExecuted, "execution not visible before the lag elapses")

	c.add(time.Minute)
	tx, err = m.Transaction(ctx, "1", "0xa")
	require.NoError(t, err)
	assert.True(t, tx.IsExecuted)
	require.NotNil(t, tx.TxHash)
	assert.Equal(t, "0xbeef", *tx.TxHash)

	propose(t, m, "0xb", 1)
	c.add(time.Minute)
	require.NoError(t, m.Delete(ctx, "1", "0xb", "sig"))
	_, err = m.Transaction(ctx, "1", "0xb")
	require.NoError(t, err, "removal not visible before the lag elapses")
	c.add(time.Minute)
	_, err = m.Transaction(ctx, "1", "0xb")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound), "got %v", err)
}
