// Package jwt emite y verifica los tokens firmados del servicio.
//
// Access y refresh son JWT EdDSA. El access token es puramente
// criptográfico (no revocable antes de su expiración); el refresh
// además debe existir activo en el registro de sesiones, la firma sola
// nunca alcanza para rotar.
package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Usos declarados en el claim token_use.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

var (
	// ErrTokenExpired indica firma válida pero token vencido.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indica firma, issuer o estructura inválidos.
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims es el payload verificado de un token.
type Claims struct {
	Subject  string
	Role     string
	TokenUse string
	IssuedAt time.Time
	Expires  time.Time
}

// Issuer firma y verifica tokens con una clave ed25519.
type Issuer struct {
	Iss        string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	kid  string
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// New crea un Issuer desde un seed base64 de 32 bytes.
// Seed vacío genera una clave efímera (los tokens mueren con el
// proceso; solo para dev).
func New(iss, seedB64 string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	var priv ed25519.PrivateKey
	if seedB64 == "" {
		_, p, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		priv = p
	} else {
		seed, err := base64.StdEncoding.DecodeString(seedB64)
		if err != nil || len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("jwt: signing seed debe ser base64 de %d bytes", ed25519.SeedSize)
		}
		priv = ed25519.NewKeyFromSeed(seed)
	}
	pub := priv.Public().(ed25519.PublicKey)
	sum := sha256.Sum256(pub)
	return &Issuer{
		Iss:        iss,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		kid:        base64.RawURLEncoding.EncodeToString(sum[:8]),
		priv:       priv,
		pub:        pub,
	}, nil
}

// IssueAccess emite un access token para la cuenta con su rol embebido.
func (i *Issuer) IssueAccess(accountID, role string) (token string, exp time.Time, err error) {
	return i.sign(accountID, role, UseAccess, i.AccessTTL)
}

// IssueRefresh emite un refresh token. El caller DEBE registrarlo en el
// SessionRepository antes de devolverlo al cliente.
func (i *Issuer) IssueRefresh(accountID string) (token string, exp time.Time, err error) {
	return i.sign(accountID, "", UseRefresh, i.RefreshTTL)
}

func (i *Issuer) sign(sub, role, use string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwtv5.MapClaims{
		"iss":       i.Iss,
		"sub":       sub,
		"iat":       now.Unix(),
		"nbf":       now.Unix(),
		"exp":       exp.Unix(),
		"jti":       mustNonce(),
		"token_use": use,
	}
	if role != "" {
		claims["role"] = role
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = i.kid
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString(i.priv)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// mustNonce genera un jti aleatorio para que dos tokens emitidos en el
// mismo segundo no colisionen.
func mustNonce() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// ParseAccess verifica un access token y retorna sus claims.
func (i *Issuer) ParseAccess(raw string) (*Claims, error) {
	return i.parse(raw, UseAccess)
}

// ParseRefresh verifica firma y expiración de un refresh token.
// La validez real requiere además lookup en el registro de sesiones.
func (i *Issuer) ParseRefresh(raw string) (*Claims, error) {
	return i.parse(raw, UseRefresh)
}

func (i *Issuer) parse(raw, wantUse string) (*Claims, error) {
	tok, err := jwtv5.Parse(raw,
		func(t *jwtv5.Token) (any, error) { return i.pub, nil },
		jwtv5.WithValidMethods([]string{"EdDSA"}),
		jwtv5.WithIssuer(i.Iss),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	mc, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok || !tok.Valid {
		return nil, ErrTokenInvalid
	}
	if use, _ := mc["token_use"].(string); use != wantUse {
		return nil, ErrTokenInvalid
	}

	c := &Claims{TokenUse: wantUse}
	c.Subject, _ = mc["sub"].(string)
	c.Role, _ = mc["role"].(string)
	if c.Subject == "" {
		return nil, ErrTokenInvalid
	}
	if v, err := mc.GetIssuedAt(); err == nil && v != nil {
		c.IssuedAt = v.Time
	}
	if v, err := mc.GetExpirationTime(); err == nil && v != nil {
		c.Expires = v.Time
	}
	return c, nil
}
