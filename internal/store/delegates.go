package store

import (
	"sort"

	"safe-gateway-lite/internal/model"
)

// DelegateFilter selects delegate edges; nil fields match anything.
// Addresses must already be checksummed.
type DelegateFilter struct {
	ChainID   string
	Safe      *string
	Delegator *string
	Delegate  *string
	Label     *string
}

func (f DelegateFilter) matches(d model.Delegate) bool {
	if f.ChainID != "" && d.ChainID != f.ChainID {
		return false
	}
	if f.Safe != nil && (d.Safe == nil || *d.Safe != *f.Safe) {
		return false
	}
	if f.Delegator != nil && d.Delegator != *f.Delegator {
		return false
	}
	if f.Delegate != nil && d.Delegate != *f.Delegate {
		return false
	}
	if f.Label != nil && d.Label != *f.Label {
		return false
	}
	return true
}

func delegateKey(chainID string, safe *string, delegator, delegate string) string {
	s := ""
	if safe != nil {
		s = *safe
	}
	return chainID + "|" + s + "|" + delegator + "|" + delegate
}

// UpsertDelegate stores d. An existing edge with the same chain, safe,
// delegator and delegate keeps its creation time and takes the new label.
func (s *Store) UpsertDelegate(d model.Delegate) (model.Delegate, bool) {
	s.mu.Lock()
	key := delegateKey(d.ChainID, d.Safe, d.Delegator, d.Delegate)
	existing, ok := s.delegatesByKey[key]
	if ok {
		existing.Label = d.Label
		d = existing
	} else {
		d.CreatedAt = s.nowMillis()
	}
	s.delegatesByKey[key] = d
	s.unlockAndPersist(s.snapshotLocked())
	return d, !ok
}

func (s *Store) ListDelegates(f DelegateFilter) []model.Delegate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listDelegatesLocked(f)
}

func (s *Store) listDelegatesLocked(f DelegateFilter) []model.Delegate {
	result := make([]model.Delegate, 0)
	for _, d := range s.delegatesByKey {
		if f.matches(d) {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return delegateKey(result[i].ChainID, result[i].Safe, result[i].Delegator, result[i].Delegate) <
			delegateKey(result[j].ChainID, result[j].Safe, result[j].Delegator, result[j].Delegate)
	})
	return result
}

// DeleteDelegate removes the oldest edge matching f, if any.
func (s *Store) DeleteDelegate(f DelegateFilter) (model.Delegate, bool) {
	s.mu.Lock()
	found := s.listDelegatesLocked(f)
	if len(found) == 0 {
		s.mu.Unlock()
		return model.Delegate{}, false
	}
	d := found[0]
	delete(s.delegatesByKey, delegateKey(d.ChainID, d.Safe, d.Delegator, d.Delegate))
	s.unlockAndPersist(s.snapshotLocked())
	return d, true
}
