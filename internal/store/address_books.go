package store

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"safe-gateway-lite/internal/address"
	"safe-gateway-lite/internal/apperr"
	"safe-gateway-lite/internal/model"
)

const itemNameMax = 50

func bookKey(accountID, chainID string) string {
	return accountID + "|" + chainID
}

func cloneBook(b model.AddressBook) model.AddressBook {
	b.Items = append([]model.AddressBookItem(nil), b.Items...)
	return b
}

func validateItemName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Wrap(apperr.ErrInvalidInput, "name must not be blank")
	}
	if utf8.RuneCountInString(name) > itemNameMax {
		return apperr.Wrapf(apperr.ErrInvalidInput, "name must be at most %d characters", itemNameMax)
	}
	return nil
}

func validateChainID(chainID string) error {
	if !model.ValidChainID(chainID) {
		return apperr.Wrapf(apperr.ErrInvalidInput, "invalid chain id %q", chainID)
	}
	return nil
}

func (s *Store) AddressBook(owner, chainID string) (model.AddressBook, error) {
	addr, err := address.Checksum(owner)
	if err != nil {
		return model.AddressBook{}, err
	}
	if err := validateChainID(chainID); err != nil {
		return model.AddressBook{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, err := s.accountLocked(addr)
	if err != nil {
		return model.AddressBook{}, err
	}
	book, ok := s.booksByKey[bookKey(acc.ID, chainID)]
	if !ok {
		return model.AddressBook{}, apperr.Wrap(apperr.ErrNotFound, "Address Book not found")
	}
	return cloneBook(book), nil
}

// CreateAddressBookItem appends an entry to the owner's book on chainID,
// creating the book on first use. The item id comes from the book's
// counter, advanced under the same lock that inserts the item.
func (s *Store) CreateAddressBookItem(owner, chainID, name, target string) (model.AddressBookItem, error) {
	addr, err := address.Checksum(owner)
	if err != nil {
		return model.AddressBookItem{}, err
	}
	if err := validateChainID(chainID); err != nil {
		return model.AddressBookItem{}, err
	}
	if err := validateItemName(name); err != nil {
		return model.AddressBookItem{}, err
	}
	target, err = address.Checksum(target)
	if err != nil {
		return model.AddressBookItem{}, err
	}

	s.mu.Lock()
	acc, err := s.accountLocked(addr)
	if err != nil {
		s.mu.Unlock()
		return model.AddressBookItem{}, err
	}
	if err := s.requireEnabledLocked(acc, model.DataTypeAddressBook); err != nil {
		s.mu.Unlock()
		return model.AddressBookItem{}, err
	}

	key := bookKey(acc.ID, chainID)
	book, ok := s.booksByKey[key]
	if !ok {
		book = model.AddressBook{ID: uuid.NewString(), AccountID: acc.ID, ChainID: chainID}
	}
	for _, it := range book.Items {
		if it.Address == target {
			s.mu.Unlock()
			return model.AddressBookItem{}, apperr.Wrapf(apperr.ErrConflict, "%s is already in the address book", target)
		}
	}

	item := model.AddressBookItem{ID: s.itemSeq.next(book.ID), Name: name, Address: target}
	book = cloneBook(book)
	book.Items = append(book.Items, item)
	s.booksByKey[key] = book
	s.unlockAndPersist(s.snapshotLocked())
	return item, nil
}

// UpdateAddressBookItem renames or retargets an entry, keeping its id.
func (s *Store) UpdateAddressBookItem(owner, chainID, itemID, name, target string) (model.AddressBookItem, error) {
	addr, err := address.Checksum(owner)
	if err != nil {
		return model.AddressBookItem{}, err
	}
	if err := validateItemName(name); err != nil {
		return model.AddressBookItem{}, err
	}
	target, err = address.Checksum(target)
	if err != nil {
		return model.AddressBookItem{}, err
	}

	s.mu.Lock()
	acc, err := s.accountLocked(addr)
	if err != nil {
		s.mu.Unlock()
		return model.AddressBookItem{}, err
	}
	key := bookKey(acc.ID, chainID)
	book, ok := s.booksByKey[key]
	if !ok {
		s.mu.Unlock()
		return model.AddressBookItem{}, apperr.Wrap(apperr.ErrNotFound, "Address Book not found")
	}

	idx := -1
	for i, it := range book.Items {
		if it.ID == itemID {
			idx = i
		} else if it.Address == target {
			s.mu.Unlock()
			return model.AddressBookItem{}, apperr.Wrapf(apperr.ErrConflict, "%s is already in the address book", target)
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return model.AddressBookItem{}, apperr.Wrap(apperr.ErrNotFound, "Address Book item not found")
	}

	book = cloneBook(book)
	book.Items[idx].Name = name
	book.Items[idx].Address = target
	item := book.Items[idx]
	s.booksByKey[key] = book
	s.unlockAndPersist(s.snapshotLocked())
	return item, nil
}

// DeleteAddressBookItem removes one entry; survivors keep their ids.
// Removing an absent entry is not an error.
func (s *Store) DeleteAddressBookItem(owner, chainID, itemID string) error {
	addr, err := address.Checksum(owner)
	if err != nil {
		return err
	}

	s.mu.Lock()
	acc, ok := s.accountsByAddress[addr]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	key := bookKey(acc.ID, chainID)
	book, ok := s.booksByKey[key]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	kept := make([]model.AddressBookItem, 0, len(book.Items))
	for _, it := range book.Items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(book.Items) {
		s.mu.Unlock()
		return nil
	}
	book.Items = kept
	s.booksByKey[key] = book
	s.unlockAndPersist(s.snapshotLocked())
	return nil
}

// DeleteAddressBook removes the whole book. A later item creation starts a
// fresh book whose ids begin at "1" again.
func (s *Store) DeleteAddressBook(owner, chainID string) error {
	addr, err := address.Checksum(owner)
	if err != nil {
		return err
	}

	s.mu.Lock()
	acc, ok := s.accountsByAddress[addr]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	key := bookKey(acc.ID, chainID)
	book, ok := s.booksByKey[key]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.booksByKey, key)
	s.itemSeq.forget(book.ID)
	s.unlockAndPersist(s.snapshotLocked())
	return nil
}
