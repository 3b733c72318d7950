package delegate

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"safe-gateway-lite/internal/apperr"
	"safe-gateway-lite/internal/auth"
	"safe-gateway-lite/internal/store"
	"safe-gateway-lite/internal/testutil"
)

var testNow = time.Unix(1_700_000_000, 0)

func newRegistry() *Registry {
	return NewRegistry(store.New(), func() time.Time { return testNow }, nil)
}

func sign(t *testing.T, w *testutil.Wallet, delegate *testutil.Wallet, hoursAgo int64) string {
	t.Helper()
	td := auth.DelegateTypedData(big.NewInt(1), delegate.Address, auth.TOTP(testNow)-hoursAgo)
	return w.SignTypedData(t, td)
}

func TestCreate(t *testing.T) {
	r := newRegistry()
	delegator := testutil.NewWallet(t)
	delegate := testutil.NewWallet(t)

	d, err := r.Create(CreateInput{
		ChainID:   "1",
		Delegator: delegator.Hex(),
		Delegate:  delegate.Hex(),
		Label:     "bot",
		Signature: sign(t, delegator, delegate, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, delegator.Hex(), d.Delegator)
	assert.Equal(t, delegate.Hex(), d.Delegate)

	// the previous window is still accepted and replaces the label
	_, err = r.Create(CreateInput{
		ChainID:   "1",
		Delegator: delegator.Hex(),
		Delegate:  delegate.Hex(),
		Label:     "renamed",
		Signature: sign(t, delegator, delegate, 1),
	})
	require.NoError(t, err)

	list, err := r.List(Filter{ChainID: "1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "renamed", list[0].Label)
}

func TestCreate_Rejections(t *testing.T) {
	r := newRegistry()
	delegator := testutil.NewWallet(t)
	delegate := testutil.NewWallet(t)
	stranger := testutil.NewWallet(t)

	cases := map[string]struct {
		in   CreateInput
		kind *apperr.Error
	}{
		"stale window": {
			in:   CreateInput{ChainID: "1", Delegator: delegator.Hex(), Delegate: delegate.Hex(), Label: "x", Signature: sign(t, delegator, delegate, 2)},
			kind: apperr.ErrSignatureMismatch,
		},
		"signed by someone else": {
			in:   CreateInput{ChainID: "1", Delegator: delegator.Hex(), Delegate: delegate.Hex(), Label: "x", Signature: sign(t, stranger, delegate, 0)},
			kind: apperr.ErrSignatureMismatch,
		},
		"signed for another chain": {
			in:   CreateInput{ChainID: "5", Delegator: delegator.Hex(), Delegate: delegate.Hex(), Label: "x", Signature: sign(t, delegator, delegate, 0)},
			kind: apperr.ErrSignatureMismatch,
		},
		"garbage signature": {
			in:   CreateInput{ChainID: "1", Delegator: delegator.Hex(), Delegate: delegate.Hex(), Label: "x", Signature: "0x1234"},
			kind: apperr.ErrSignatureMismatch,
		},
		"empty label": {
			in:   CreateInput{ChainID: "1", Delegator: delegator.Hex(), Delegate: delegate.Hex(), Label: " ", Signature: sign(t, delegator, delegate, 0)},
			kind: apperr.ErrInvalidInput,
		},
		"bad delegate": {
			in:   CreateInput{ChainID: "1", Delegator: delegator.Hex(), Delegate: "0xabc", Label: "x", Signature: sign(t, delegator, delegate, 0)},
			kind: apperr.ErrInvalidAddress,
		},
	}
	for name, tc := range cases {
		_, err := r.Create(tc.in)
		assert.True(t, apperr.Is(err, tc.kind), "%s: got %v", name, err)
	}
	list, err := r.List(Filter{ChainID: "1"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDelete(t *testing.T) {
	r := newRegistry()
	delegator := testutil.NewWallet(t)
	delegate := testutil.NewWallet(t)
	stranger := testutil.NewWallet(t)
	safe := testutil.NewWallet(t).Hex()

	_, err := r.Create(CreateInput{ChainID: "1", Delegator: delegator.Hex(), Delegate: delegate.Hex(), Label: "a", Signature: sign(t, delegator, delegate, 0)})
	require.NoError(t, err)
	_, err = r.Create(CreateInput{ChainID: "1", Safe: &safe, Delegator: delegator.Hex(), Delegate: delegate.Hex(), Label: "b", Signature: sign(t, delegator, delegate, 0)})
	require.NoError(t, err)

	delegatorHex := delegator.Hex()
	err = r.Delete(DeleteInput{ChainID: "1", Delegate: delegate.Hex(), Delegator: &delegatorHex, Signature: sign(t, stranger, delegate, 0)})
	assert.True(t, apperr.Is(err, apperr.ErrSignatureMismatch), "got %v", err)

	// the delegate may remove itself, keyed by safe
	require.NoError(t, r.Delete(DeleteInput{ChainID: "1", Delegate: delegate.Hex(), Safe: &safe, Signature: sign(t, delegate, delegate, 0)}))
	list, err := r.List(Filter{ChainID: "1", Safe: &safe})
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, r.Delete(DeleteInput{ChainID: "1", Delegate: delegate.Hex(), Delegator: &delegatorHex, Signature: sign(t, delegator, delegate, 0)}))
	list, err = r.List(Filter{ChainID: "1"})
	require.NoError(t, err)
	assert.Empty(t, list)

	// deleting again is a no-op
	require.NoError(t, r.Delete(DeleteInput{ChainID: "1", Delegate: delegate.Hex(), Delegator: &delegatorHex, Signature: sign(t, delegator, delegate, 0)}))

	err = r.Delete(DeleteInput{ChainID: "1", Delegate: delegate.Hex(), Signature: sign(t, delegator, delegate, 0)})
	assert.True(t, apperr.Is(err, apperr.ErrInvalidInput))
}

func TestList_Filters(t *testing.T) {
	r := newRegistry()
	alice := testutil.NewWallet(t)
	bob := testutil.NewWallet(t)
	carol := testutil.NewWallet(t)

	for _, e := range []struct{ from, to *testutil.Wallet }{{alice, bob}, {alice, carol}, {bob, carol}} {
		_, err := r.Create(CreateInput{ChainID: "1", Delegator: e.from.Hex(), Delegate: e.to.Hex(), Label: "l", Signature: sign(t, e.from, e.to, 0)})
		require.NoError(t, err)
	}

	aliceHex, carolHex := alice.Hex(), carol.Hex()
	got, err := r.List(Filter{ChainID: "1", Delegator: &aliceHex})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = r.List(Filter{ChainID: "1", Delegator: &aliceHex, Delegate: &carolHex})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = r.List(Filter{ChainID: "137"})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = r.List(Filter{ChainID: "abc"})
	assert.True(t, apperr.Is(err, apperr.ErrInvalidInput))
}
