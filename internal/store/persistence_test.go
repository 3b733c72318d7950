package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"safe-gateway-lite/internal/model"
)

func TestStore_Persistence_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	stateFile := filepath.Join(dir, "nested", "state.json")

	s1 := NewWithOptions(Options{StateFile: stateFile})
	newAccount(t, s1, ownerAddr)
	enableAll(t, s1, ownerAddr)
	_, err := s1.CreateAddressBookItem(ownerAddr, "1", "A", otherAddr)
	require.NoError(t, err)
	_, err = s1.CreateAddressBookItem(ownerAddr, "1", "B", thirdAddr)
	require.NoError(t, err)
	require.NoError(t, s1.DeleteAddressBookItem(ownerAddr, "1", "2"))
	_, err = s1.CreateCounterfactualSafe(ownerAddr, testSafeInput("1"))
	require.NoError(t, err)
	s1.UpsertDelegate(model.Delegate{ChainID: "1", Delegator: ownerAddr, Delegate: otherAddr, Label: "ops"})

	info, err := os.Stat(stateFile)
	require.NoError(t, err, "expected state file written")
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	s2 := NewWithOptions(Options{StateFile: stateFile})
	_, err = s2.GetAccount(ownerAddr)
	require.NoError(t, err)
	book, err := s2.AddressBook(ownerAddr, "1")
	require.NoError(t, err)
	require.Len(t, book.Items, 1)

	// the counter survives a restart, so "2" is not handed out again
	item, err := s2.CreateAddressBookItem(ownerAddr, "1", "C", thirdAddr)
	require.NoError(t, err)
	assert.Equal(t, "3", item.ID)

	safes, err := s2.ListCounterfactualSafes(ownerAddr)
	require.NoError(t, err)
	assert.Len(t, safes, 1)
	assert.Len(t, s2.ListDelegates(DelegateFilter{ChainID: "1"}), 1)
}

func TestStore_Persistence_CorruptFileIsIgnored(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(stateFile, []byte("{not json"), 0o600))

	s := NewWithOptions(Options{StateFile: stateFile})
	newAccount(t, s, ownerAddr)

	_, err := NewWithOptions(Options{StateFile: stateFile}).GetAccount(ownerAddr)
	assert.NoError(t, err)
}

func TestStore_Persistence_ConcurrentWritesKeepLatest(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "state.json")
	s1 := NewWithOptions(Options{StateFile: stateFile})
	newAccount(t, s1, ownerAddr)
	enableAll(t, s1, ownerAddr)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := testSafeInput(itoa(i + 1))
			if _, errs[i] = s1.CreateCounterfactualSafe(ownerAddr, in); errs[i] != nil {
				return
			}
			if i%2 == 0 {
				errs[i] = s1.DeleteCounterfactualSafe(ownerAddr, in.ChainID, in.PredictedAddress)
			}
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}

	want, err := s1.ListCounterfactualSafes(ownerAddr)
	require.NoError(t, err)
	require.Len(t, want, n/2)

	got, err := NewWithOptions(Options{StateFile: stateFile}).ListCounterfactualSafes(ownerAddr)
	require.NoError(t, err)
	assert.Equal(t, want, got, "the file holds the last snapshot")
}
