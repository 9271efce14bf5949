package totp_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/authkit/internal/security/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Secreto de los vectores del RFC 6238 ("12345678901234567890" en base32).
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

// Vectores del RFC 6238 (apéndice B) truncados a 6 dígitos.
func TestVerify_RFC6238Vectors(t *testing.T) {
	cases := []struct {
		unix int64
		code string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}
	for _, c := range cases {
		at := time.Unix(c.unix, 0).UTC()
		assert.True(t, totp.Verify(rfcSecret, c.code, at, 0), "t=%d", c.unix)
	}
}

func TestVerify_Window(t *testing.T) {
	at := time.Unix(1111111109, 0).UTC() // código 081804

	// Dentro de ±2 pasos el código sigue siendo válido.
	assert.True(t, totp.Verify(rfcSecret, "081804", at.Add(60*time.Second), 2))
	assert.True(t, totp.Verify(rfcSecret, "081804", at.Add(-60*time.Second), 2))

	// Fuera de la ventana, no.
	assert.False(t, totp.Verify(rfcSecret, "081804", at.Add(120*time.Second), 2))
	assert.False(t, totp.Verify(rfcSecret, "081804", at.Add(60*time.Second), 0))
}

func TestVerify_Malformed(t *testing.T) {
	at := time.Unix(59, 0).UTC()
	assert.False(t, totp.Verify(rfcSecret, "12345", at, 2))    // corto
	assert.False(t, totp.Verify(rfcSecret, "1234567", at, 2))  // largo
	assert.False(t, totp.Verify("not-base32!", "287082", at, 2))
}

func TestGenerateSecret(t *testing.T) {
	a, err := totp.GenerateSecret()
	require.NoError(t, err)
	b, err := totp.GenerateSecret()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "=") // base32 sin padding
	assert.Len(t, a, 32)          // 20 bytes -> 32 chars
}

func TestOTPAuthURL(t *testing.T) {
	u := totp.OTPAuthURL("AuthKit", "a@x.com", rfcSecret)
	assert.True(t, strings.HasPrefix(u, "otpauth://totp/AuthKit:a%40x.com?"))
	assert.Contains(t, u, "secret="+rfcSecret)
	assert.Contains(t, u, "issuer=AuthKit")
	assert.Contains(t, u, "period=30")
}
