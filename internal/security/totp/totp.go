// Package totp implementa TOTP (RFC 6238) sobre HOTP (RFC 4226) con
// HMAC-SHA1, período de 30s y códigos de 6 dígitos.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	periodSeconds = 30
	digits        = 6
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret retorna 20 bytes aleatorios codificados base32 sin padding.
func GenerateSecret() (string, error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return b32.EncodeToString(raw), nil
}

// OTPAuthURL construye la URI otpauth:// que el cliente renderiza como QR.
func OTPAuthURL(issuer, accountName, secretB32 string) string {
	label := url.PathEscape(fmt.Sprintf("%s:%s", issuer, accountName))
	q := url.Values{}
	q.Set("secret", secretB32)
	q.Set("issuer", issuer)
	q.Set("algorithm", "SHA1")
	q.Set("digits", fmt.Sprintf("%d", digits))
	q.Set("period", fmt.Sprintf("%d", periodSeconds))
	return fmt.Sprintf("otpauth://totp/%s?%s", label, q.Encode())
}

// Code calcula el código vigente para el instante t. Lo usan los
// flujos que necesitan generar (no solo verificar): tests y tooling.
func Code(secretB32 string, t time.Time) (string, error) {
	raw, err := b32.DecodeString(strings.ToUpper(strings.TrimSpace(secretB32)))
	if err != nil {
		return "", err
	}
	return hotp(raw, t.Unix()/periodSeconds), nil
}

// Verify chequea code contra el secreto en una ventana de ±windowSteps
// pasos alrededor de t, para absorber drift de reloj.
// El componente no retiene estado; el caller persiste secreto/enabled.
func Verify(secretB32, code string, t time.Time, windowSteps int) bool {
	code = strings.TrimSpace(code)
	if len(code) != digits {
		return false
	}
	raw, err := b32.DecodeString(strings.ToUpper(strings.TrimSpace(secretB32)))
	if err != nil {
		return false
	}
	counter := t.Unix() / periodSeconds
	for c := counter - int64(windowSteps); c <= counter+int64(windowSteps); c++ {
		if hotp(raw, c) == code {
			return true
		}
	}
	return false
}

// hotp calcula HOTP(K, C) con truncamiento dinámico (RFC 4226 §5.3).
func hotp(secret []byte, counter int64) string {
	var msg [8]byte
	for i := 7; i >= 0; i-- {
		msg[i] = byte(counter & 0xff)
		counter >>= 8
	}
	m := hmac.New(sha1.New, secret)
	_, _ = m.Write(msg[:])
	sum := m.Sum(nil)
	offset := int(sum[len(sum)-1] & 0x0f)
	bin := (int(sum[offset])&0x7f)<<24 | int(sum[offset+1])<<16 | int(sum[offset+2])<<8 | int(sum[offset+3])
	return fmt.Sprintf("%06d", bin%1000000)
}
