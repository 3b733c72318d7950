// Package chainstate reads Safe contract state from a chain node.
package chainstate

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"safe-gateway-lite/internal/apperr"
)

// ErrSafeNotFound is returned when no Safe is deployed at an address.
var ErrSafeNotFound = errors.New("safe not deployed")

// Reader is the read-only chain surface the transaction engine depends on.
type Reader interface {
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
	Code(ctx context.Context, addr common.Address) ([]byte, error)
	SafeNonce(ctx context.Context, safe common.Address) (uint64, error)
	SafeOwners(ctx context.Context, safe common.Address) ([]common.Address, error)
}

// Set routes chain ids to their readers.
type Set map[string]Reader

func (s Set) Reader(chainID string) (Reader, error) {
	r, ok := s[chainID]
	if !ok {
		return nil, apperr.Wrapf(apperr.ErrInvalidInput, "chain %s is not supported", chainID)
	}
	return r, nil
}

// IsOwner reports whether candidate is among the Safe's owners.
func IsOwner(ctx context.Context, r Reader, safe, candidate common.Address) (bool, error) {
	owners, err := r.SafeOwners(ctx, safe)
	if err != nil {
		return false, err
	}
	for _, o := range owners {
		if o == candidate {
			return true, nil
		}
	}
	return false, nil
}
