package store

import (
	"regexp"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"
	"safe-gateway-lite/internal/address"
	"safe-gateway-lite/internal/apperr"
	"safe-gateway-lite/internal/model"
)

const (
	accountNameMin = 3
	accountNameMax = 20
)

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+(?:[._-][a-zA-Z0-9]+)*$`)

// ValidateAccountName enforces the account name policy: 3 to 20 letters
// or digits, optionally separated by single '.', '_' or '-'.
func ValidateAccountName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < accountNameMin || n > accountNameMax {
		return apperr.Wrapf(apperr.ErrNameInvalid, "name must be %d to %d characters", accountNameMin, accountNameMax)
	}
	if !accountNamePattern.MatchString(name) {
		return apperr.Wrap(apperr.ErrNameInvalid, "name may only contain letters, digits and single . _ - separators")
	}
	return nil
}

func settingKey(accountID string, dataTypeID int) string {
	return accountID + "|" + strconv.Itoa(dataTypeID)
}

func (s *Store) CreateAccount(rawAddress string, groupID, name *string) (model.Account, error) {
	addr, err := address.Checksum(rawAddress)
	if err != nil {
		return model.Account{}, err
	}
	if name != nil {
		if err := ValidateAccountName(*name); err != nil {
			return model.Account{}, err
		}
	}

	s.mu.Lock()
	if _, ok := s.accountsByAddress[addr]; ok {
		s.mu.Unlock()
		return model.Account{}, apperr.Wrapf(apperr.ErrConflict, "account %s already exists", addr)
	}
	acc := model.Account{
		ID:        uuid.NewString(),
		Address:   addr,
		GroupID:   groupID,
		Name:      name,
		CreatedAt: s.nowMillis(),
	}
	s.accountsByAddress[addr] = acc
	s.unlockAndPersist(s.snapshotLocked())
	return acc, nil
}

func (s *Store) GetAccount(rawAddress string) (model.Account, error) {
	addr, err := address.Checksum(rawAddress)
	if err != nil {
		return model.Account{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountLocked(addr)
}

func (s *Store) accountLocked(addr string) (model.Account, error) {
	acc, ok := s.accountsByAddress[addr]
	if !ok {
		return model.Account{}, apperr.Wrap(apperr.ErrNotFound, "Account not found")
	}
	return acc, nil
}

// DeleteAccount removes the account together with its data settings,
// address books and counterfactual safes. It reports whether an account
// existed; deleting an absent account is not an error.
func (s *Store) DeleteAccount(rawAddress string) (bool, error) {
	addr, err := address.Checksum(rawAddress)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	acc, ok := s.accountsByAddress[addr]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.accountsByAddress, addr)
	for _, dt := range model.DataTypes {
		delete(s.settingsByKey, settingKey(acc.ID, dt.ID))
	}
	for key, book := range s.booksByKey {
		if book.AccountID == acc.ID {
			delete(s.booksByKey, key)
			s.itemSeq.forget(book.ID)
		}
	}
	for key, cf := range s.safesByKey {
		if cf.Creator == addr {
			delete(s.safesByKey, key)
		}
	}
	s.unlockAndPersist(s.snapshotLocked())
	return true, nil
}

// DataSettings returns one row per catalog data type; types never set are disabled.
func (s *Store) DataSettings(rawAddress string) ([]model.AccountDataSetting, error) {
	addr, err := address.Checksum(rawAddress)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, err := s.accountLocked(addr)
	if err != nil {
		return nil, err
	}
	result := make([]model.AccountDataSetting, 0, len(model.DataTypes))
	for _, dt := range model.DataTypes {
		st, ok := s.settingsByKey[settingKey(acc.ID, dt.ID)]
		if !ok {
			st = model.AccountDataSetting{AccountID: acc.ID, DataTypeID: dt.ID}
		}
		result = append(result, st)
	}
	return result, nil
}

// UpsertDataSettings sets the enabled flag of every mentioned data type in
// one critical section and returns the resulting rows for those types.
// Types not mentioned keep their current value.
func (s *Store) UpsertDataSettings(rawAddress string, settings []model.AccountDataSetting) ([]model.AccountDataSetting, error) {
	addr, err := address.Checksum(rawAddress)
	if err != nil {
		return nil, err
	}
	for _, st := range settings {
		if _, ok := model.LookupDataType(st.DataTypeID); !ok {
			return nil, apperr.Wrapf(apperr.ErrNotFound, "Data type %d not found", st.DataTypeID)
		}
	}

	s.mu.Lock()
	acc, err := s.accountLocked(addr)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	touched := make(map[int]bool, len(settings))
	for _, st := range settings {
		s.settingsByKey[settingKey(acc.ID, st.DataTypeID)] = model.AccountDataSetting{
			AccountID:  acc.ID,
			DataTypeID: st.DataTypeID,
			Enabled:    st.Enabled,
		}
		touched[st.DataTypeID] = true
	}
	result := make([]model.AccountDataSetting, 0, len(touched))
	for id := range touched {
		result = append(result, s.settingsByKey[settingKey(acc.ID, id)])
	}
	s.unlockAndPersist(s.snapshotLocked())

	sort.Slice(result, func(i, j int) bool { return result[i].DataTypeID < result[j].DataTypeID })
	return result, nil
}

// requireEnabledLocked fails with Forbidden unless dataTypeID is active in
// the catalog and enabled for the account.
func (s *Store) requireEnabledLocked(acc model.Account, dataTypeID int) error {
	dt, ok := model.LookupDataType(dataTypeID)
	if !ok || !dt.IsActive {
		return apperr.Wrapf(apperr.ErrForbidden, "data type %d is not active", dataTypeID)
	}
	if !s.settingsByKey[settingKey(acc.ID, dataTypeID)].Enabled {
		return apperr.Wrapf(apperr.ErrForbidden, "%s is not enabled for this account", dt.Name)
	}
	return nil
}
