package keychain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestTokenLifecycle(t *testing.T) {
	keyring.MockInit()

	tok, err := Token()
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, SetToken("s3cret"))
	tok, err = Token()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", tok)
	assert.Equal(t, "s3cret", Resolve(""))
	assert.Equal(t, "explicit", Resolve("explicit"))

	require.NoError(t, ClearToken())
	require.NoError(t, ClearToken())
	assert.Empty(t, Resolve(""))
}

func TestSetToken_RejectsEmpty(t *testing.T) {
	keyring.MockInit()
	assert.Error(t, SetToken(""))
}
