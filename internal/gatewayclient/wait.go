package gatewayclient

import (
	"context"
	"fmt"
	"strings"

	"safe-gateway-lite/internal/retry"
)

func findTx(txs []Transaction, safeTxHash string) (Transaction, bool) {
	for _, tx := range txs {
		if strings.EqualFold(tx.SafeTxHash, safeTxHash) {
			return tx, true
		}
	}
	return Transaction{}, false
}

// WaitForQueued polls the queue of safe until safeTxHash is listed.
func (c *Client) WaitForQueued(ctx context.Context, p retry.Policy, safe, safeTxHash string) (Transaction, error) {
	return retry.Value(ctx, p, func(ctx context.Context) (Transaction, error) {
		queue, err := c.Queue(ctx, safe)
		if err != nil {
			return Transaction{}, err
		}
		tx, ok := findTx(queue, safeTxHash)
		if !ok {
			return Transaction{}, fmt.Errorf("%s not queued yet", safeTxHash)
		}
		return tx, nil
	})
}

// WaitForLeftQueue polls until safeTxHash is no longer listed in the queue,
// after it was executed or deleted.
func (c *Client) WaitForLeftQueue(ctx context.Context, p retry.Policy, safe, safeTxHash string) error {
	return retry.Do(ctx, p, func(ctx context.Context) error {
		queue, err := c.Queue(ctx, safe)
		if err != nil {
			return err
		}
		if _, ok := findTx(queue, safeTxHash); ok {
			return fmt.Errorf("%s still queued", safeTxHash)
		}
		return nil
	})
}

// WaitForExecuted polls the history of safe until safeTxHash shows up as
// executed.
func (c *Client) WaitForExecuted(ctx context.Context, p retry.Policy, safe, safeTxHash string) (Transaction, error) {
	return retry.Value(ctx, p, func(ctx context.Context) (Transaction, error) {
		history, err := c.History(ctx, safe)
		if err != nil {
			return Transaction{}, err
		}
		tx, ok := findTx(history, safeTxHash)
		if !ok {
			return Transaction{}, fmt.Errorf("%s not in history yet", safeTxHash)
		}
		return tx, nil
	})
}

// WaitForNonce polls until the recommended nonce of safe reaches want.
func (c *Client) WaitForNonce(ctx context.Context, p retry.Policy, safe string, want uint64) (Nonces, error) {
	return retry.Value(ctx, p, func(ctx context.Context) (Nonces, error) {
		n, err := c.Nonces(ctx, safe)
		if err != nil {
			return n, err
		}
		if n.RecommendedNonce < want {
			return n, fmt.Errorf("recommended nonce %d, want %d", n.RecommendedNonce, want)
		}
		return n, nil
	})
}
