package store

import (
	"sort"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"safe-gateway-lite/internal/address"
	"safe-gateway-lite/internal/apperr"
	"safe-gateway-lite/internal/model"
)

type CounterfactualSafeInput struct {
	ChainID          string
	PredictedAddress string
	Owners           []string
	Threshold        int
	SingletonAddress string
	FallbackHandler  string
	SaltNonce        string
}

func safeKey(creator, chainID, predicted string) string {
	return creator + "|" + chainID + "|" + predicted
}

func cloneSafe(cf model.CounterfactualSafe) model.CounterfactualSafe {
	cf.Owners = append([]string(nil), cf.Owners...)
	return cf
}

// normalize checksums every address of in and checks the owner set against
// the threshold.
func (in CounterfactualSafeInput) normalize() (CounterfactualSafeInput, error) {
	out := in
	var err error
	if err = validateChainID(in.ChainID); err != nil {
		return out, err
	}
	if out.PredictedAddress, err = address.Checksum(in.PredictedAddress); err != nil {
		return out, err
	}
	if out.SingletonAddress, err = address.Checksum(in.SingletonAddress); err != nil {
		return out, err
	}
	if out.FallbackHandler, err = address.Checksum(in.FallbackHandler); err != nil {
		return out, err
	}
	if len(in.Owners) == 0 {
		return out, apperr.Wrap(apperr.ErrInvalidInput, "owners must not be empty")
	}
	if out.Owners, err = address.ChecksumAll(in.Owners); err != nil {
		return out, err
	}
	seen := make(map[string]bool, len(out.Owners))
	for _, o := range out.Owners {
		if seen[o] {
			return out, apperr.Wrapf(apperr.ErrInvalidInput, "duplicate owner %s", o)
		}
		seen[o] = true
	}
	if in.Threshold < 1 || in.Threshold > len(out.Owners) {
		return out, apperr.Wrapf(apperr.ErrInvalidInput, "threshold must be between 1 and %d", len(out.Owners))
	}
	if _, err := uint256.FromDecimal(in.SaltNonce); err != nil {
		return out, apperr.Wrap(apperr.ErrInvalidInput, "saltNonce must be a decimal uint256")
	}
	return out, nil
}

func (s *Store) CreateCounterfactualSafe(creator string, in CounterfactualSafeInput) (model.CounterfactualSafe, error) {
	addr, err := address.Checksum(creator)
	if err != nil {
		return model.CounterfactualSafe{}, err
	}
	in, err = in.normalize()
	if err != nil {
		return model.CounterfactualSafe{}, err
	}

	s.mu.Lock()
	acc, err := s.accountLocked(addr)
	if err != nil {
		s.mu.Unlock()
		return model.CounterfactualSafe{}, err
	}
	if err := s.requireEnabledLocked(acc, model.DataTypeCounterfactualSafes); err != nil {
		s.mu.Unlock()
		return model.CounterfactualSafe{}, err
	}
	key := safeKey(addr, in.ChainID, in.PredictedAddress)
	if _, ok := s.safesByKey[key]; ok {
		s.mu.Unlock()
		return model.CounterfactualSafe{}, apperr.Wrapf(apperr.ErrConflict, "counterfactual safe %s already exists on chain %s", in.PredictedAddress, in.ChainID)
	}
	cf := model.CounterfactualSafe{
		ID:               uuid.NewString(),
		Creator:          addr,
		ChainID:          in.ChainID,
		PredictedAddress: in.PredictedAddress,
		Owners:           in.Owners,
		Threshold:        in.Threshold,
		SingletonAddress: in.SingletonAddress,
		FallbackHandler:  in.FallbackHandler,
		SaltNonce:        in.SaltNonce,
		CreatedAt:        s.nowMillis(),
	}
	s.safesByKey[key] = cf
	s.unlockAndPersist(s.snapshotLocked())
	return cloneSafe(cf), nil
}

func (s *Store) CounterfactualSafe(creator, chainID, predicted string) (model.CounterfactualSafe, error) {
	addr, err := address.Checksum(creator)
	if err != nil {
		return model.CounterfactualSafe{}, err
	}
	predicted, err = address.Checksum(predicted)
	if err != nil {
		return model.CounterfactualSafe{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cf, ok := s.safesByKey[safeKey(addr, chainID, predicted)]
	if !ok {
		return model.CounterfactualSafe{}, apperr.Wrap(apperr.ErrNotFound, "Counterfactual Safe not found")
	}
	return cloneSafe(cf), nil
}

// ListCounterfactualSafes returns the creator's safes in creation order.
func (s *Store) ListCounterfactualSafes(creator string) ([]model.CounterfactualSafe, error) {
	addr, err := address.Checksum(creator)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.accountLocked(addr); err != nil {
		return nil, err
	}
	result := make([]model.CounterfactualSafe, 0)
	for _, cf := range s.safesByKey {
		if cf.Creator == addr {
			result = append(result, cloneSafe(cf))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Store) DeleteCounterfactualSafe(creator, chainID, predicted string) error {
	addr, err := address.Checksum(creator)
	if err != nil {
		return err
	}
	predicted, err = address.Checksum(predicted)
	if err != nil {
		return err
	}

	s.mu.Lock()
	key := safeKey(addr, chainID, predicted)
	if _, ok := s.safesByKey[key]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.safesByKey, key)
	s.unlockAndPersist(s.snapshotLocked())
	return nil
}

// DeleteCounterfactualSafes removes every safe of creator and returns how many went.
func (s *Store) DeleteCounterfactualSafes(creator string) (int, error) {
	addr, err := address.Checksum(creator)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	removed := 0
	for key, cf := range s.safesByKey {
		if cf.Creator == addr {
			delete(s.safesByKey, key)
			removed++
		}
	}
	if removed == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	s.unlockAndPersist(s.snapshotLocked())
	return removed, nil
}
