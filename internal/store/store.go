package store

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"safe-gateway-lite/internal/model"
)

// Store is the in-memory registry behind accounts, address books,
// counterfactual safes and delegates. Every mutation runs under mu, so
// uniqueness checks and cascades are atomic with respect to readers.
type Store struct {
	mu sync.RWMutex

	stateFile string
	persistMu sync.Mutex

	accountsByAddress map[string]model.Account
	settingsByKey     map[string]model.AccountDataSetting // accountID + "|" + dataTypeID
	booksByKey        map[string]model.AddressBook        // accountID + "|" + chainID
	safesByKey        map[string]model.CounterfactualSafe // creator + "|" + chainID + "|" + predicted
	delegatesByKey    map[string]model.Delegate           // chainID + "|" + safe + "|" + delegator + "|" + delegate

	itemSeq *seqGenerator

	now    func() time.Time
	logger *slog.Logger
}

func New() *Store {
	return NewWithOptions(Options{})
}

type Options struct {
	// StateFile, when set, receives a JSON snapshot after every mutation
	// and is loaded on start.
	StateFile string
	Now       func() time.Time
	Logger    *slog.Logger
}

func NewWithOptions(opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Store{
		accountsByAddress: make(map[string]model.Account),
		settingsByKey:     make(map[string]model.AccountDataSetting),
		booksByKey:        make(map[string]model.AddressBook),
		safesByKey:        make(map[string]model.CounterfactualSafe),
		delegatesByKey:    make(map[string]model.Delegate),
		itemSeq:           newSeqGenerator(),
		stateFile:         opts.StateFile,
		now:               opts.Now,
		logger:            opts.Logger.With("component", "store"),
	}

	if s.stateFile != "" {
		if err := s.loadFromFile(s.stateFile); err != nil {
			s.logger.Error("state load failed", "file", s.stateFile, "err", err)
		}
	}

	return s
}

func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}

type persistedState struct {
	Version         int                        `json:"version"`
	Accounts        []model.Account            `json:"accounts"`
	DataSettings    []model.AccountDataSetting `json:"dataSettings"`
	AddressBooks    []model.AddressBook        `json:"addressBooks"`
	ItemCounters    map[string]int64           `json:"itemCounters"`
	Counterfactuals []model.CounterfactualSafe `json:"counterfactualSafes"`
	Delegates       []model.Delegate           `json:"delegates"`
	SavedAt         int64                      `json:"savedAt"`
}

func (s *Store) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var file persistedState
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	if file.Version != 1 {
		return errors.New("unsupported state version")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range file.Accounts {
		if a.ID == "" || a.Address == "" {
			continue
		}
		s.accountsByAddress[a.Address] = a
	}
	for _, st := range file.DataSettings {
		s.settingsByKey[settingKey(st.AccountID, st.DataTypeID)] = st
	}
	for _, b := range file.AddressBooks {
		s.booksByKey[bookKey(b.AccountID, b.ChainID)] = b
	}
	for bookID, n := range file.ItemCounters {
		s.itemSeq.restore(bookID, n)
	}
	for _, cf := range file.Counterfactuals {
		s.safesByKey[safeKey(cf.Creator, cf.ChainID, cf.PredictedAddress)] = cf
	}
	for _, d := range file.Delegates {
		s.delegatesByKey[delegateKey(d.ChainID, d.Safe, d.Delegator, d.Delegate)] = d
	}
	return nil
}

// snapshotLocked captures the registries; callers hold mu.
// It returns nil when persistence is off.
func (s *Store) snapshotLocked() *persistedState {
	if s.stateFile == "" {
		return nil
	}
	st := &persistedState{
		Version:      1,
		ItemCounters: s.itemSeq.snapshot(),
	}
	for _, a := range s.accountsByAddress {
		st.Accounts = append(st.Accounts, a)
	}
	for _, v := range s.settingsByKey {
		st.DataSettings = append(st.DataSettings, v)
	}
	for _, b := range s.booksByKey {
		st.AddressBooks = append(st.AddressBooks, cloneBook(b))
	}
	for _, cf := range s.safesByKey {
		st.Counterfactuals = append(st.Counterfactuals, cloneSafe(cf))
	}
	for _, d := range s.delegatesByKey {
		st.Delegates = append(st.Delegates, d)
	}
	sort.Slice(st.Accounts, func(i, j int) bool { return st.Accounts[i].Address < st.Accounts[j].Address })
	sort.Slice(st.AddressBooks, func(i, j int) bool { return st.AddressBooks[i].ID < st.AddressBooks[j].ID })
	sort.Slice(st.Counterfactuals, func(i, j int) bool { return st.Counterfactuals[i].ID < st.Counterfactuals[j].ID })
	return st
}

// unlockAndPersist releases mu and writes snap, if any, outside the lock.
// persistMu is taken before mu is released, so snapshots reach the file in
// the order they were taken.
func (s *Store) unlockAndPersist(snap *persistedState) {
	if snap == nil {
		s.mu.Unlock()
		return
	}
	s.persistMu.Lock()
	s.mu.Unlock()
	defer s.persistMu.Unlock()
	s.persistLocked(snap)
}

// persistLocked writes file atomically; callers hold persistMu.
func (s *Store) persistLocked(file *persistedState) {
	path := s.stateFile

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		s.logger.Error("state persist: mkdir failed", "dir", dir, "err", err)
		return
	}

	file.SavedAt = s.nowMillis()
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		s.logger.Error("state persist: marshal failed", "err", err)
		return
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		s.logger.Error("state persist: create temp failed", "err", err)
		return
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		s.logger.Error("state persist: chmod temp failed", "err", err)
		return
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		s.logger.Error("state persist: write temp failed", "err", err)
		return
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		s.logger.Error("state persist: sync temp failed", "err", err)
		return
	}
	if err := tmp.Close(); err != nil {
		s.logger.Error("state persist: close temp failed", "err", err)
		return
	}
	if err := os.Rename(tmpName, path); err != nil {
		s.logger.Error("state persist: rename failed", "err", err)
		return
	}
}
