package indexer

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"safe-gateway-lite/internal/apperr"
)

type memoryTx struct {
	tx         Transaction
	visibleAt  time.Time
	removedAt  *time.Time
	executedAt *time.Time
}

// Memory is an in-process indexer. Writes become visible to reads only
// after Lag, so it reproduces the eventual consistency of the real
// service. Execute stands in for a transaction being mined.
type Memory struct {
	mu        sync.Mutex
	lag       time.Duration
	now       func() time.Time
	txs       map[string]*memoryTx
	onExecute func(tx Transaction)
}

type MemoryOptions struct {
	Lag time.Duration
	Now func() time.Time
	// OnExecute runs after Execute, outside the lock, e.g. to advance the
	// chain nonce of the Safe.
	OnExecute func(tx Transaction)
}

func NewMemory(opts MemoryOptions) *Memory {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Memory{
		lag:       opts.Lag,
		now:       opts.Now,
		txs:       make(map[string]*memoryTx),
		onExecute: opts.OnExecute,
	}
}

func hashKey(chainID, safeTxHash string) string {
	return chainID + "|" + strings.ToLower(safeTxHash)
}

func (m *Memory) Propose(_ context.Context, req ProposeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := hashKey(req.ChainID, req.SafeTxHash)
	if _, ok := m.txs[key]; ok {
		return apperr.Wrapf(apperr.ErrConflict, "indexer already knows %s", req.SafeTxHash)
	}
	tx := req.Transaction
	tx.Confirmations = append([]Confirmation(nil), tx.Confirmations...)
	m.txs[key] = &memoryTx{tx: tx, visibleAt: m.now().Add(m.lag)}
	return nil
}

func (m *Memory) Confirm(_ context.Context, chainID, safeTxHash string, c Confirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mt, ok := m.txs[hashKey(chainID, safeTxHash)]
	if !ok || mt.removedAt != nil {
		return apperr.Wrapf(apperr.ErrNotFound, "indexer does not know %s", safeTxHash)
	}
	for _, existing := range mt.tx.Confirmations {
		if existing.Owner == c.Owner {
			return nil
		}
	}
	if c.SubmittedAt == 0 {
		c.SubmittedAt = m.now().UnixMilli()
	}
	mt.tx.Confirmations = append(mt.tx.Confirmations, c)
	return nil
}

func (m *Memory) Delete(_ context.Context, chainID, safeTxHash, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mt, ok := m.txs[hashKey(chainID, safeTxHash)]
	if !ok || mt.removedAt != nil {
		return nil
	}
	if mt.executedAt != nil {
		return apperr.Wrapf(apperr.ErrConflict, "%s is already executed", safeTxHash)
	}
	at := m.now().Add(m.lag)
	mt.removedAt = &at
	return nil
}

// Execute marks the transaction as mined with txHash. Other queued
// transactions of the Safe with the same nonce are dropped.
func (m *Memory) Execute(chainID, safeTxHash, txHash string) error {
	m.mu.Lock()
	mt, ok := m.txs[hashKey(chainID, safeTxHash)]
	if !ok || mt.removedAt != nil {
		m.mu.Unlock()
		return apperr.Wrapf(apperr.ErrNotFound, "indexer does not know %s", safeTxHash)
	}
	if mt.executedAt != nil {
		m.mu.Unlock()
		return apperr.Wrapf(apperr.ErrConflict, "%s is already executed", safeTxHash)
	}
	now := m.now()
	visible := now.Add(m.lag)
	millis := now.UnixMilli()
	mt.executedAt = &visible
	mt.tx.IsExecuted = true
	mt.tx.ExecutedAt = &millis
	mt.tx.TxHash = &txHash
	for _, other := range m.txs {
		if other != mt && other.tx.ChainID == mt.tx.ChainID && other.tx.Safe == mt.tx.Safe &&
			other.tx.Nonce == mt.tx.Nonce && other.executedAt == nil && other.removedAt == nil {
			other.removedAt = &visible
		}
	}
	executed := mt.tx
	m.mu.Unlock()

	if m.onExecute != nil {
		m.onExecute(executed)
	}
	return nil
}

// Transaction returns the transaction as a reader would currently see it:
// not yet visible or already removed is ErrNotFound, and execution shows
// only once it is visible.
func (m *Memory) Transaction(_ context.Context, chainID, safeTxHash string) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	mt, ok := m.txs[hashKey(chainID, safeTxHash)]
	if !ok || now.Before(mt.visibleAt) || (mt.removedAt != nil && !now.Before(*mt.removedAt)) {
		return Transaction{}, apperr.Wrapf(apperr.ErrNotFound, "indexer does not know %s", safeTxHash)
	}
	tx := cloneTx(mt.tx)
	if mt.executedAt != nil && now.Before(*mt.executedAt) {
		tx.IsExecuted, tx.ExecutedAt, tx.TxHash = false, nil, nil
	}
	return tx, nil
}

func (m *Memory) Queued(_ context.Context, chainID, safe string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var txs []Transaction
	for _, mt := range m.txs {
		if mt.tx.ChainID != chainID || !strings.EqualFold(mt.tx.Safe, safe) || now.Before(mt.visibleAt) {
			continue
		}
		if mt.removedAt != nil && !now.Before(*mt.removedAt) {
			continue
		}
		if mt.executedAt != nil && !now.Before(*mt.executedAt) {
			continue
		}
		txs = append(txs, cloneTx(mt.tx))
	}
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Nonce != txs[j].Nonce {
			return txs[i].Nonce < txs[j].Nonce
		}
		return txs[i].SubmittedAt < txs[j].SubmittedAt
	})

	items := make([]Item, 0, len(txs)+2)
	for i := 0; i < len(txs); {
		switch i {
		case 0:
			items = append(items, Item{Type: ItemLabel, Label: "Next"})
		default:
			if txs[i].Nonce != txs[i-1].Nonce && txs[i-1].Nonce == txs[0].Nonce {
				items = append(items, Item{Type: ItemLabel, Label: "Queued"})
			}
		}
		j := i
		for j < len(txs) && txs[j].Nonce == txs[i].Nonce {
			j++
		}
		if j-i > 1 {
			nonce := txs[i].Nonce
			items = append(items, Item{Type: ItemConflictHeader, Nonce: &nonce})
		}
		for ; i < j; i++ {
			tx := txs[i]
			items = append(items, Item{Type: ItemTransaction, Transaction: &tx})
		}
	}
	return items, nil
}

func (m *Memory) History(_ context.Context, chainID, safe string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var txs []Transaction
	for _, mt := range m.txs {
		if mt.tx.ChainID != chainID || !strings.EqualFold(mt.tx.Safe, safe) {
			continue
		}
		if mt.executedAt == nil || now.Before(*mt.executedAt) {
			continue
		}
		txs = append(txs, cloneTx(mt.tx))
	}
	sort.Slice(txs, func(i, j int) bool { return *txs[i].ExecutedAt > *txs[j].ExecutedAt })

	items := make([]Item, 0, len(txs)+1)
	lastDay := int64(-1)
	for _, tx := range txs {
		day := time.UnixMilli(*tx.ExecutedAt).UTC().Truncate(24 * time.Hour).UnixMilli()
		if day != lastDay {
			items = append(items, Item{Type: ItemDateLabel, Timestamp: day})
			lastDay = day
		}
		tx := tx
		items = append(items, Item{Type: ItemTransaction, Transaction: &tx})
	}
	return items, nil
}

func cloneTx(t Transaction) Transaction {
	t.Confirmations = append([]Confirmation(nil), t.Confirmations...)
	return t
}
