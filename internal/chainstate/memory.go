package chainstate

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"safe-gateway-lite/internal/apperr"
)

type memorySafe struct {
	owners []common.Address
	nonce  uint64
}

// Memory is an in-process chain used when no RPC endpoint is configured
// and in tests.
type Memory struct {
	mu       sync.RWMutex
	safes    map[common.Address]memorySafe
	balances map[common.Address]*big.Int
}

func NewMemory() *Memory {
	return &Memory{
		safes:    make(map[common.Address]memorySafe),
		balances: make(map[common.Address]*big.Int),
	}
}

// DeploySafe registers a Safe with the given owners at nonce 0.
func (m *Memory) DeploySafe(safe common.Address, owners ...common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.safes[safe] = memorySafe{owners: append([]common.Address(nil), owners...)}
}

// SetNonce moves the Safe's on-chain nonce, e.g. after an execution.
func (m *Memory) SetNonce(safe common.Address, nonce uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.safes[safe]
	if !ok {
		return
	}
	if nonce > s.nonce {
		s.nonce = nonce
	}
	m.safes[safe] = s
}

func (m *Memory) SetBalance(addr common.Address, wei *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[addr] = new(big.Int).Set(wei)
}

func (m *Memory) Balance(_ context.Context, addr common.Address) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.balances[addr]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (m *Memory) Code(_ context.Context, addr common.Address) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.safes[addr]; ok {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

func (m *Memory) safe(addr common.Address) (memorySafe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.safes[addr]
	if !ok {
		return memorySafe{}, apperr.Wrap(apperr.ErrNotFound, ErrSafeNotFound.Error())
	}
	return s, nil
}

func (m *Memory) SafeNonce(_ context.Context, safe common.Address) (uint64, error) {
	s, err := m.safe(safe)
	if err != nil {
		return 0, err
	}
	return s.nonce, nil
}

func (m *Memory) SafeOwners(_ context.Context, safe common.Address) ([]common.Address, error) {
	s, err := m.safe(safe)
	if err != nil {
		return nil, err
	}
	return append([]common.Address(nil), s.owners...), nil
}
