package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"safe-gateway-lite/internal/apperr"
)

func TestAddressBook_SequentialIDs(t *testing.T) {
	s := New()
	newAccount(t, s, ownerAddr)
	enableAll(t, s, ownerAddr)

	a, err := s.CreateAddressBookItem(ownerAddr, "1", "A", "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359")
	require.NoError(t, err)
	b, err := s.CreateAddressBookItem(ownerAddr, "1", "B", thirdAddr)
	require.NoError(t, err)
	assert.Equal(t, "1", a.ID)
	assert.Equal(t, "2", b.ID)
	assert.Equal(t, otherAddr, a.Address)

	require.NoError(t, s.DeleteAddressBookItem(ownerAddr, "1", "1"))
	book, err := s.AddressBook(ownerAddr, "1")
	require.NoError(t, err)
	require.Len(t, book.Items, 1)
	assert.Equal(t, "2", book.Items[0].ID)

	c, err := s.CreateAddressBookItem(ownerAddr, "1", "C", otherAddr)
	require.NoError(t, err)
	assert.Equal(t, "3", c.ID)

	// books are partitioned by chain
	d, err := s.CreateAddressBookItem(ownerAddr, "137", "D", otherAddr)
	require.NoError(t, err)
	assert.Equal(t, "1", d.ID)
}

func TestAddressBook_NotFoundAndIdempotentDeletes(t *testing.T) {
	s := New()
	newAccount(t, s, ownerAddr)
	enableAll(t, s, ownerAddr)

	_, err := s.AddressBook(ownerAddr, "1")
	require.True(t, apperr.Is(err, apperr.ErrNotFound))
	assert.Equal(t, "Address Book not found", apperr.Message(err))

	_, err = s.CreateAddressBookItem(ownerAddr, "1", "A", otherAddr)
	require.NoError(t, err)

	require.NoError(t, s.DeleteAddressBookItem(ownerAddr, "1", "42"))
	require.NoError(t, s.DeleteAddressBook(ownerAddr, "1"))
	require.NoError(t, s.DeleteAddressBook(ownerAddr, "1"))

	_, err = s.AddressBook(ownerAddr, "1")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))

	item, err := s.CreateAddressBookItem(ownerAddr, "1", "A", otherAddr)
	require.NoError(t, err)
	assert.Equal(t, "1", item.ID)
}

func TestAddressBook_Validation(t *testing.T) {
	s := New()
	newAccount(t, s, ownerAddr)

	_, err := s.CreateAddressBookItem(ownerAddr, "1", "A", otherAddr)
	assert.True(t, apperr.Is(err, apperr.ErrForbidden), "disabled data type: got %v", err)

	enableAll(t, s, ownerAddr)
	_, err = s.CreateAddressBookItem(ownerAddr, "1", "   ", otherAddr)
	assert.True(t, apperr.Is(err, apperr.ErrInvalidInput))
	_, err = s.CreateAddressBookItem(ownerAddr, "1", "A", "0xnope")
	assert.True(t, apperr.Is(err, apperr.ErrInvalidAddress))
	_, err = s.CreateAddressBookItem(ownerAddr, "x1", "A", otherAddr)
	assert.True(t, apperr.Is(err, apperr.ErrInvalidInput))

	_, err = s.CreateAddressBookItem(ownerAddr, "1", "A", otherAddr)
	require.NoError(t, err)
	_, err = s.CreateAddressBookItem(ownerAddr, "1", "A again", otherAddr)
	assert.True(t, apperr.Is(err, apperr.ErrConflict))

	_, err = s.CreateAddressBookItem(otherAddr, "1", "A", ownerAddr)
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}

func TestAddressBook_Update(t *testing.T) {
	s := New()
	newAccount(t, s, ownerAddr)
	enableAll(t, s, ownerAddr)
	_, err := s.CreateAddressBookItem(ownerAddr, "1", "A", otherAddr)
	require.NoError(t, err)
	_, err = s.CreateAddressBookItem(ownerAddr, "1", "B", thirdAddr)
	require.NoError(t, err)

	updated, err := s.UpdateAddressBookItem(ownerAddr, "1", "1", "Alice", otherAddr)
	require.NoError(t, err)
	assert.Equal(t, "1", updated.ID)
	assert.Equal(t, "Alice", updated.Name)

	_, err = s.UpdateAddressBookItem(ownerAddr, "1", "1", "Alice", thirdAddr)
	assert.True(t, apperr.Is(err, apperr.ErrConflict))
	_, err = s.UpdateAddressBookItem(ownerAddr, "1", "9", "X", ownerAddr)
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}

func TestAddressBook_ConcurrentCreatesGetDistinctIDs(t *testing.T) {
	s := New()
	newAccount(t, s, ownerAddr)
	enableAll(t, s, ownerAddr)

	const n = 30
	targets := make([]string, n)
	for i := range targets {
		targets[i] = testAddress(i + 1)
	}

	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()
			_, err := s.CreateAddressBookItem(ownerAddr, "1", "peer", target)
			assert.NoError(t, err)
		}(target)
	}
	wg.Wait()

	book, err := s.AddressBook(ownerAddr, "1")
	require.NoError(t, err)
	require.Len(t, book.Items, n)
	seen := map[string]bool{}
	for _, it := range book.Items {
		assert.False(t, seen[it.ID], "duplicate id %s", it.ID)
		seen[it.ID] = true
	}
	// insertion order equals id order
	for i, it := range book.Items {
		assert.Equal(t, itoa(i+1), it.ID)
	}
}
