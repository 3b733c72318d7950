package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"safe-gateway-lite/internal/apperr"
	"safe-gateway-lite/internal/model"
)

const (
	ownerAddr = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	otherAddr = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	thirdAddr = "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"
)

func strPtr(s string) *string { return &s }

func newAccount(t *testing.T, s *Store, addr string) model.Account {
	t.Helper()
	acc, err := s.CreateAccount(addr, nil, nil)
	require.NoError(t, err)
	return acc
}

func enableAll(t *testing.T, s *Store, addr string) {
	t.Helper()
	_, err := s.UpsertDataSettings(addr, []model.AccountDataSetting{
		{DataTypeID: model.DataTypeCounterfactualSafes, Enabled: true},
		{DataTypeID: model.DataTypeAddressBook, Enabled: true},
	})
	require.NoError(t, err)
}

func TestCreateAccount(t *testing.T) {
	s := New()

	acc, err := s.CreateAccount("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", nil, strPtr("alice.eth"))
	require.NoError(t, err)
	assert.Equal(t, ownerAddr, acc.Address)
	assert.NotEmpty(t, acc.ID)
	require.NotNil(t, acc.Name)
	assert.Equal(t, "alice.eth", *acc.Name)

	_, err = s.CreateAccount(ownerAddr, nil, nil)
	assert.True(t, apperr.Is(err, apperr.ErrConflict), "got %v", err)

	got, err := s.GetAccount(ownerAddr)
	require.NoError(t, err)
	assert.Equal(t, acc, got)
}

func TestCreateAccount_InvalidNames(t *testing.T) {
	s := New()
	for _, name := range []string{"ab", "has space", "averyveryverylongname1", "trailing-", "-leading", "double..dot", "tab\tname", ""} {
		_, err := s.CreateAccount(ownerAddr, nil, strPtr(name))
		assert.True(t, apperr.Is(err, apperr.ErrNameInvalid), "name %q: got %v", name, err)
	}
	for _, name := range []string{"abc", "a_b-c.d", "Safe2024"} {
		assert.NoError(t, ValidateAccountName(name), name)
	}
}

func TestCreateAccount_InvalidAddress(t *testing.T) {
	_, err := New().CreateAccount("0x1234", nil, nil)
	assert.True(t, apperr.Is(err, apperr.ErrInvalidAddress), "got %v", err)
}

func TestCreateAccount_ConcurrentSameAddress(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateAccount(ownerAddr, nil, nil)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if apperr.Is(err, apperr.ErrConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, 19, conflicts)
}

func TestDeleteAccount_Cascades(t *testing.T) {
	s := New()
	newAccount(t, s, ownerAddr)
	enableAll(t, s, ownerAddr)

	_, err := s.CreateAddressBookItem(ownerAddr, "1", "Bob", otherAddr)
	require.NoError(t, err)
	_, err = s.CreateCounterfactualSafe(ownerAddr, testSafeInput("1"))
	require.NoError(t, err)

	existed, err := s.DeleteAccount(ownerAddr)
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = s.GetAccount(ownerAddr)
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))

	// a re-created account starts empty
	newAccount(t, s, ownerAddr)
	settings, err := s.DataSettings(ownerAddr)
	require.NoError(t, err)
	for _, st := range settings {
		assert.False(t, st.Enabled)
	}
	_, err = s.AddressBook(ownerAddr, "1")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
	safes, err := s.ListCounterfactualSafes(ownerAddr)
	require.NoError(t, err)
	assert.Empty(t, safes)

	existed, err = s.DeleteAccount(otherAddr)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestDataSettings_DefaultsAndUpsert(t *testing.T) {
	s := New()
	newAccount(t, s, ownerAddr)

	settings, err := s.DataSettings(ownerAddr)
	require.NoError(t, err)
	require.Len(t, settings, len(model.DataTypes))
	for _, st := range settings {
		assert.False(t, st.Enabled)
	}

	got, err := s.UpsertDataSettings(ownerAddr, []model.AccountDataSetting{{DataTypeID: model.DataTypeAddressBook, Enabled: true}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Enabled)

	// upserting the same value twice is idempotent
	got, err = s.UpsertDataSettings(ownerAddr, []model.AccountDataSetting{{DataTypeID: model.DataTypeAddressBook, Enabled: true}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Enabled)

	settings, err = s.DataSettings(ownerAddr)
	require.NoError(t, err)
	for _, st := range settings {
		assert.Equal(t, st.DataTypeID == model.DataTypeAddressBook, st.Enabled, "type %d", st.DataTypeID)
	}

	_, err = s.UpsertDataSettings(ownerAddr, []model.AccountDataSetting{{DataTypeID: 99, Enabled: true}})
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))

	_, err = s.UpsertDataSettings(otherAddr, nil)
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}

func TestDataSettings_ConcurrentUpserts(t *testing.T) {
	s := New()
	newAccount(t, s, ownerAddr)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(enabled bool) {
			defer wg.Done()
			_, err := s.UpsertDataSettings(ownerAddr, []model.AccountDataSetting{
				{DataTypeID: model.DataTypeCounterfactualSafes, Enabled: enabled},
				{DataTypeID: model.DataTypeAddressBook, Enabled: enabled},
			})
			assert.NoError(t, err)
		}(i%2 == 0)
	}
	wg.Wait()

	settings, err := s.DataSettings(ownerAddr)
	require.NoError(t, err)
	// both flags come from the same upsert
	assert.Equal(t, settings[0].Enabled, settings[1].Enabled)
}
