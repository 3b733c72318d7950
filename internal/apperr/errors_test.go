package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsKind(t *testing.T) {
	err := Wrap(ErrNotFound, "Address Book not found")

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrConflict))

	kind, ok := Kind(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, kind.HTTPStatus())
	assert.Equal(t, "NotFound", kind.Code())
	assert.Equal(t, "Address Book not found", Message(err))
}

func TestKindThroughStdlibWrapping(t *testing.T) {
	err := fmt.Errorf("indexer: %w", Wrapf(ErrUpstreamUnavailable, "status %d", 502))

	kind, ok := Kind(err)
	require.True(t, ok)
	assert.Equal(t, ErrUpstreamUnavailable, kind)
	assert.Equal(t, http.StatusServiceUnavailable, kind.HTTPStatus())
}

func TestMessageOfBareKind(t *testing.T) {
	assert.Equal(t, "conflict", Message(ErrConflict))
	assert.Equal(t, "", Message(nil))
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() { Register("NotFound", http.StatusNotFound, "again") })
}

func TestKindOfPlainError(t *testing.T) {
	_, ok := Kind(fmt.Errorf("boom"))
	assert.False(t, ok)
}
