package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedTokensAreStablePerSecret(t *testing.T) {
	a, err := NewFeedTokens("s3cret")
	require.NoError(t, err)
	b, err := NewFeedTokens("s3cret")
	require.NoError(t, err)
	other, err := NewFeedTokens("rotated")
	require.NoError(t, err)

	tok := a.Token("t1", "p1")
	assert.Len(t, tok, 2*feedTokenSize)
	assert.Equal(t, tok, b.Token("t1", "p1"))
	assert.NotEqual(t, tok, other.Token("t1", "p1"))
	assert.NotEqual(t, tok, a.Token("t1", "p2"))
	assert.NotEqual(t, a.Token("t1p", "1"), a.Token("t1", "p1"))

	assert.True(t, a.Verify("t1", "p1", tok))
	assert.False(t, a.Verify("t2", "p1", tok))
	assert.False(t, a.Verify("t1", "p1", ""))
}

func TestLongAndEmptySecrets(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'k'
	}
	tokens, err := NewFeedTokens(string(long))
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Token("t1", "p1"))

	random, err := NewFeedTokens("")
	require.NoError(t, err)
	assert.True(t, random.Verify("t1", "p1", random.Token("t1", "p1")))
}
