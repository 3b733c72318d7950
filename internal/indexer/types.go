// Package indexer talks to the transaction indexing service that tracks
// Safe transactions. The indexer lags behind both the gateway and the
// chain; callers must not assume read-your-writes.
package indexer

import (
	"context"

	"safe-gateway-lite/internal/model"
)

// ItemType discriminates the entries of a queue or history page.
type ItemType string

const (
	ItemTransaction    ItemType = "TRANSACTION"
	ItemDateLabel      ItemType = "DATE_LABEL"
	ItemLabel          ItemType = "LABEL"
	ItemConflictHeader ItemType = "CONFLICT_HEADER"
)

// Item is one entry of a paginated listing. Only TRANSACTION items carry
// a transaction; the others are presentation markers.
type Item struct {
	Type        ItemType     `json:"type"`
	Transaction *Transaction `json:"transaction,omitempty"`
	Label       string       `json:"label,omitempty"`
	Timestamp   int64        `json:"timestamp,omitempty"`
	Nonce       *uint64      `json:"nonce,omitempty"`
}

type Page struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []Item  `json:"results"`
}

type Confirmation struct {
	Owner       string `json:"owner"`
	Signature   string `json:"signature"`
	SubmittedAt int64  `json:"submissionDate"`
}

// Transaction is the indexer's view of a multisig transaction.
type Transaction struct {
	SafeTxHash     string         `json:"safeTxHash"`
	Safe           string         `json:"safe"`
	ChainID        string         `json:"chainId"`
	Nonce          uint64         `json:"nonce"`
	To             string         `json:"to"`
	Value          string         `json:"value"`
	Data           string         `json:"data,omitempty"`
	Operation      int            `json:"operation"`
	SafeTxGas      string         `json:"safeTxGas"`
	BaseGas        string         `json:"baseGas"`
	GasPrice       string         `json:"gasPrice"`
	GasToken       string         `json:"gasToken"`
	RefundReceiver string         `json:"refundReceiver"`
	Proposer       string         `json:"proposer"`
	Origin         *string        `json:"origin,omitempty"`
	Confirmations  []Confirmation `json:"confirmations"`
	SubmittedAt    int64          `json:"submissionDate"`
	IsExecuted     bool           `json:"isExecuted"`
	ExecutedAt     *int64         `json:"executionDate,omitempty"`
	TxHash         *string        `json:"transactionHash,omitempty"`
}

// ProposeRequest is the body forwarded when a transaction is proposed.
type ProposeRequest struct {
	Transaction
	Sender    string `json:"sender"`
	Signature string `json:"signature"`
}

// Indexer is the write-through and read surface the engine uses.
type Indexer interface {
	Propose(ctx context.Context, req ProposeRequest) error
	Confirm(ctx context.Context, chainID, safeTxHash string, c Confirmation) error
	Delete(ctx context.Context, chainID, safeTxHash, signature string) error
	// Transaction looks up one transaction by hash; ErrNotFound when the
	// indexer does not list it.
	Transaction(ctx context.Context, chainID, safeTxHash string) (Transaction, error)
	Queued(ctx context.Context, chainID, safe string) ([]Item, error)
	History(ctx context.Context, chainID, safe string) ([]Item, error)
}

// Transactions keeps the TRANSACTION items of items, in order, and drops
// every other kind.
func Transactions(items []Item) []Transaction {
	out := make([]Transaction, 0, len(items))
	for _, it := range items {
		if it.Type == ItemTransaction && it.Transaction != nil {
			out = append(out, *it.Transaction)
		}
	}
	return out
}

func FromModel(tx model.Transaction) Transaction {
	out := Transaction{
		SafeTxHash:     tx.SafeTxHash,
		Safe:           tx.Safe,
		ChainID:        tx.ChainID,
		Nonce:          tx.Nonce,
		To:             tx.To,
		Value:          tx.Value,
		Data:           tx.Data,
		Operation:      int(tx.Operation),
		SafeTxGas:      tx.SafeTxGas,
		BaseGas:        tx.BaseGas,
		GasPrice:       tx.GasPrice,
		GasToken:       tx.GasToken,
		RefundReceiver: tx.RefundReceiver,
		Proposer:       tx.Proposer,
		Origin:         tx.Origin,
		SubmittedAt:    tx.SubmittedAt,
		IsExecuted:     tx.Status == model.TxStatusExecuted,
		ExecutedAt:     tx.ExecutedAt,
		TxHash:         tx.TxHash,
	}
	out.Confirmations = make([]Confirmation, 0, len(tx.Confirmations))
	for _, c := range tx.Confirmations {
		out.Confirmations = append(out.Confirmations, Confirmation{Owner: c.Signer, Signature: c.Signature, SubmittedAt: c.SubmittedAt})
	}
	return out
}

// ToModel converts t. The status is QUEUED or EXECUTED depending on where
// the indexer reports it; the gateway overlays its own state on top.
func (t Transaction) ToModel() model.Transaction {
	out := model.Transaction{
		SafeTxHash:     t.SafeTxHash,
		Safe:           t.Safe,
		ChainID:        t.ChainID,
		Nonce:          t.Nonce,
		To:             t.To,
		Value:          t.Value,
		Data:           t.Data,
		Operation:      model.Operation(t.Operation),
		SafeTxGas:      t.SafeTxGas,
		BaseGas:        t.BaseGas,
		GasPrice:       t.GasPrice,
		GasToken:       t.GasToken,
		RefundReceiver: t.RefundReceiver,
		Proposer:       t.Proposer,
		Origin:         t.Origin,
		SubmittedAt:    t.SubmittedAt,
		Status:         model.TxStatusQueued,
		ExecutedAt:     t.ExecutedAt,
		TxHash:         t.TxHash,
	}
	if t.IsExecuted {
		out.Status = model.TxStatusExecuted
	}
	for _, c := range t.Confirmations {
		out.Confirmations = append(out.Confirmations, model.Confirmation{Signer: c.Owner, Signature: c.Signature, SubmittedAt: c.SubmittedAt})
	}
	return out
}
