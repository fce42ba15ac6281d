package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateSigner(t *testing.T) {
	s := NewStateSigner("secret")

	state, err := s.New()
	require.NoError(t, err)
	assert.True(t, s.Valid(state))

	other, err := s.New()
	require.NoError(t, err)
	assert.NotEqual(t, state, other)

	assert.False(t, NewStateSigner("different").Valid(state))
	assert.False(t, s.Valid(""))
	assert.False(t, s.Valid("nodot"))
	assert.False(t, s.Valid(state+"x"))
}
