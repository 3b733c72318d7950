// Package delegate authorises delegate edges with per-request EIP-712
// signatures and keeps them in the registry store.
//
// A delegator proves intent by signing
//
//	Delegate{delegateAddress: bytes32, totp: uint256}
//
// in the domain {name: "Safe Transaction Service", version: "1.0", chainId}.
// totp is the current hour since the Unix epoch, so a leaked signature is
// only useful for the hour it was made in and the one after.
package delegate

import (
	"log/slog"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"safe-gateway-lite/internal/address"
	"safe-gateway-lite/internal/apperr"
	"safe-gateway-lite/internal/auth"
	"safe-gateway-lite/internal/model"
	"safe-gateway-lite/internal/store"
)

const labelMax = 50

// Store is the slice of the registry store the delegate registry needs.
type Store interface {
	UpsertDelegate(d model.Delegate) (model.Delegate, bool)
	ListDelegates(f store.DelegateFilter) []model.Delegate
	DeleteDelegate(f store.DelegateFilter) (model.Delegate, bool)
}

type CreateInput struct {
	ChainID   string
	Safe      *string
	Delegator string
	Delegate  string
	Label     string
	Signature string
}

// DeleteInput names the edge by (delegator, delegate) or (safe, delegate).
type DeleteInput struct {
	ChainID   string
	Delegate  string
	Delegator *string
	Safe      *string
	Signature string
}

type Filter struct {
	ChainID   string
	Safe      *string
	Delegator *string
	Delegate  *string
	Label     *string
}

type Registry struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

func NewRegistry(s Store, now func() time.Time, logger *slog.Logger) *Registry {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: s, now: now, logger: logger.With("component", "delegates")}
}

func (r *Registry) Create(in CreateInput) (model.Delegate, error) {
	chainID, err := parseChainID(in.ChainID)
	if err != nil {
		return model.Delegate{}, err
	}
	delegator, err := address.Parse(in.Delegator)
	if err != nil {
		return model.Delegate{}, err
	}
	delegate, err := address.Parse(in.Delegate)
	if err != nil {
		return model.Delegate{}, err
	}
	safe, err := optionalAddress(in.Safe)
	if err != nil {
		return model.Delegate{}, err
	}
	if strings.TrimSpace(in.Label) == "" || utf8.RuneCountInString(in.Label) > labelMax {
		return model.Delegate{}, apperr.Wrapf(apperr.ErrInvalidInput, "label must be 1 to %d characters", labelMax)
	}

	sig, err := auth.DecodeSignature(in.Signature)
	if err != nil {
		return model.Delegate{}, apperr.Wrap(apperr.ErrSignatureMismatch, err.Error())
	}
	_, err = auth.RecoverWindowed(r.now(), sig, delegateTypedData(chainID, delegate), func(signer common.Address) bool {
		return signer == delegator
	})
	if err != nil {
		return model.Delegate{}, apperr.Wrap(apperr.ErrSignatureMismatch, "signature is not from the delegator")
	}

	d, created := r.store.UpsertDelegate(model.Delegate{
		ChainID:   in.ChainID,
		Safe:      safe,
		Delegator: delegator.Hex(),
		Delegate:  delegate.Hex(),
		Label:     in.Label,
	})
	r.logger.Info("delegate stored", "chainId", d.ChainID, "delegator", d.Delegator, "delegate", d.Delegate, "created", created)
	return d, nil
}

// Delete removes the first edge matching the input. The signature may come
// from the edge's delegator or from the delegate itself. Deleting an edge
// that does not exist succeeds without touching anything.
func (r *Registry) Delete(in DeleteInput) error {
	chainID, err := parseChainID(in.ChainID)
	if err != nil {
		return err
	}
	delegate, err := address.Parse(in.Delegate)
	if err != nil {
		return err
	}
	delegator, err := optionalAddress(in.Delegator)
	if err != nil {
		return err
	}
	safe, err := optionalAddress(in.Safe)
	if err != nil {
		return err
	}
	if delegator == nil && safe == nil {
		return apperr.Wrap(apperr.ErrInvalidInput, "either delegator or safe is required")
	}
	sig, err := auth.DecodeSignature(in.Signature)
	if err != nil {
		return apperr.Wrap(apperr.ErrSignatureMismatch, err.Error())
	}

	delegateHex := delegate.Hex()
	filter := store.DelegateFilter{ChainID: in.ChainID, Safe: safe, Delegator: delegator, Delegate: &delegateHex}
	edges := r.store.ListDelegates(filter)
	if len(edges) == 0 {
		return nil
	}

	signer, err := auth.RecoverWindowed(r.now(), sig, delegateTypedData(chainID, delegate), func(signer common.Address) bool {
		if signer == delegate {
			return true
		}
		for _, e := range edges {
			if e.Delegator == signer.Hex() {
				return true
			}
		}
		return false
	})
	if err != nil {
		return apperr.Wrap(apperr.ErrSignatureMismatch, "signature is neither from the delegator nor the delegate")
	}
	if signer != delegate {
		signerHex := signer.Hex()
		filter.Delegator = &signerHex
	}

	if removed, ok := r.store.DeleteDelegate(filter); ok {
		r.logger.Info("delegate removed", "chainId", removed.ChainID, "delegator", removed.Delegator, "delegate", removed.Delegate)
	}
	return nil
}

func (r *Registry) List(f Filter) ([]model.Delegate, error) {
	if _, err := parseChainID(f.ChainID); err != nil {
		return nil, err
	}
	sf := store.DelegateFilter{ChainID: f.ChainID, Label: f.Label}
	var err error
	if sf.Safe, err = optionalAddress(f.Safe); err != nil {
		return nil, err
	}
	if sf.Delegator, err = optionalAddress(f.Delegator); err != nil {
		return nil, err
	}
	if sf.Delegate, err = optionalAddress(f.Delegate); err != nil {
		return nil, err
	}
	return r.store.ListDelegates(sf), nil
}

func delegateTypedData(chainID *big.Int, delegate common.Address) func(int64) apitypes.TypedData {
	return func(totp int64) apitypes.TypedData {
		return auth.DelegateTypedData(chainID, delegate, totp)
	}
}

func parseChainID(raw string) (*big.Int, error) {
	if !model.ValidChainID(raw) {
		return nil, apperr.Wrapf(apperr.ErrInvalidInput, "invalid chain id %q", raw)
	}
	n, _ := new(big.Int).SetString(raw, 10)
	return n, nil
}

func optionalAddress(raw *string) (*string, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	v, err := address.Checksum(*raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
