package password_test

import (
	"strings"
	"testing"

	"github.com/dropDatabas3/authkit/internal/security/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Costo bajo para que los tests no tarden.
var testParams = password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32}

func TestHashVerify_RoundTrip(t *testing.T) {
	phc, err := password.Hash(testParams, "s3creto!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(phc, "$argon2id$v=19$"))

	assert.True(t, password.Verify("s3creto!", phc))
	assert.False(t, password.Verify("otro", phc))
}

func TestHash_EmptyPlaintext(t *testing.T) {
	_, err := password.Hash(testParams, "")
	require.Error(t, err)
}

func TestHash_SaltsDiffer(t *testing.T) {
	a, err := password.Hash(testParams, "mismo")
	require.NoError(t, err)
	b, err := password.Hash(testParams, "mismo")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerify_MalformedPHC(t *testing.T) {
	for _, phc := range []string{
		"",
		"no-es-phc",
		"$argon2id$v=18$m=8192,t=1,p=1$abc$def",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$def",
	} {
		assert.False(t, password.Verify("x", phc), "phc=%q", phc)
	}
}
