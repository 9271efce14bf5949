package jwt_test

import (
	"testing"
	"time"

	jwtx "github.com/dropDatabas3/authkit/internal/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T) *jwtx.Issuer {
	t.Helper()
	i, err := jwtx.New("http://test.local", "", 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)
	return i
}

func TestIssueAccess_RoundTrip(t *testing.T) {
	i := newIssuer(t)

	raw, exp, err := i.IssueAccess("acc-1", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	c, err := i.ParseAccess(raw)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", c.Subject)
	assert.Equal(t, "admin", c.Role)
	assert.Equal(t, jwtx.UseAccess, c.TokenUse)
}

func TestParse_RejectsWrongUse(t *testing.T) {
	i := newIssuer(t)

	refresh, _, err := i.IssueRefresh("acc-1")
	require.NoError(t, err)

	// Un refresh token no sirve como access token ni al revés.
	_, err = i.ParseAccess(refresh)
	assert.ErrorIs(t, err, jwtx.ErrTokenInvalid)

	access, _, err := i.IssueAccess("acc-1", "user")
	require.NoError(t, err)
	_, err = i.ParseRefresh(access)
	assert.ErrorIs(t, err, jwtx.ErrTokenInvalid)
}

func TestParse_Expired(t *testing.T) {
	i, err := jwtx.New("http://test.local", "", -time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	raw, _, err := i.IssueAccess("acc-1", "user")
	require.NoError(t, err)

	_, err = i.ParseAccess(raw)
	assert.ErrorIs(t, err, jwtx.ErrTokenExpired)
}

func TestParse_ForeignKeyRejected(t *testing.T) {
	a := newIssuer(t)
	b := newIssuer(t) // otra clave

	raw, _, err := a.IssueAccess("acc-1", "user")
	require.NoError(t, err)

	_, err = b.ParseAccess(raw)
	assert.ErrorIs(t, err, jwtx.ErrTokenInvalid)
}

func TestNew_SeedValidation(t *testing.T) {
	_, err := jwtx.New("iss", "demasiado-corto", time.Minute, time.Hour)
	assert.Error(t, err)
}

func TestIssueRefresh_Unique(t *testing.T) {
	i := newIssuer(t)
	a, _, err := i.IssueRefresh("acc-1")
	require.NoError(t, err)
	b, _, err := i.IssueRefresh("acc-1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
