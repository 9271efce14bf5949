// Package google implementa el lado cliente del flujo OIDC de Google:
// URL de autorización, canje del code y verificación del id_token
// contra el JWKS publicado. El servicio solo consume la identidad ya
// verificada; el navegador hace el round-trip con Google.
package google

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

const (
	discoveryURL = "https://accounts.google.com/.well-known/openid-configuration"

	discoveryTTL = 24 * time.Hour
	jwksTTL      = time.Hour
)

var (
	ErrBadIDToken    = errors.New("google: invalid id_token")
	ErrEmailRequired = errors.New("google: id_token sin email verificado")
)

// Identity es lo que el resto del servicio necesita de un login con
// Google: el subject estable y el perfil mínimo.
type Identity struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

type discoveryDoc struct {
	Issuer        string `json:"issuer"`
	AuthEndpoint  string `json:"authorization_endpoint"`
	TokenEndpoint string `json:"token_endpoint"`
	JWKSURI       string `json:"jwks_uri"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// OIDC es el cliente del provider. Cachea discovery y JWKS en memoria
// con revalidación por ETag.
type OIDC struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	http *http.Client

	mu     sync.RWMutex
	disc   *discoveryDoc
	discAt time.Time

	keys     *jwks
	keysAt   time.Time
	keysETag string
}

// New crea el cliente. Los scopes son fijos: openid email profile.
func New(clientID, clientSecret, redirectURL string) *OIDC {
	return &OIDC{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthURL arma la URL de autorización con state y nonce del caller.
func (g *OIDC) AuthURL(ctx context.Context, state, nonce string) (string, error) {
	disc, err := g.discovery(ctx)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(disc.AuthEndpoint)
	if err != nil {
		return "", fmt.Errorf("google: auth endpoint: %w", err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", g.ClientID)
	q.Set("redirect_uri", g.RedirectURL)
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	q.Set("nonce", nonce)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Identity canjea el code, verifica el id_token (firma, iss, aud,
// nonce, exp) y retorna la identidad. Exige email verificado por
// Google: sin eso no hay base para vincular cuentas por email.
func (g *OIDC) Identity(ctx context.Context, code, nonce string) (*Identity, error) {
	idToken, err := g.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	claims, err := g.verifyIDToken(ctx, idToken, nonce)
	if err != nil {
		return nil, err
	}

	email, _ := claims["email"].(string)
	verified, _ := claims["email_verified"].(bool)
	if email == "" || !verified {
		return nil, ErrEmailRequired
	}
	sub, _ := claims["sub"].(string)
	given, _ := claims["given_name"].(string)
	family, _ := claims["family_name"].(string)

	return &Identity{
		Subject:   "google:" + sub,
		Email:     email,
		FirstName: given,
		LastName:  family,
	}, nil
}

func (g *OIDC) exchangeCode(ctx context.Context, code string) (string, error) {
	disc, err := g.discovery(ctx)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)
	form.Set("redirect_uri", g.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, disc.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("google: token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var body struct {
			Error string `json:"error"`
			Desc  string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return "", fmt.Errorf("google: token http %d: %s %s", resp.StatusCode, body.Error, body.Desc)
	}

	var tr struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", err
	}
	if tr.IDToken == "" {
		return "", errors.New("google: respuesta sin id_token")
	}
	return tr.IDToken, nil
}

func (g *OIDC) verifyIDToken(ctx context.Context, idToken, expectedNonce string) (jwtv5.MapClaims, error) {
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return nil, ErrBadIDToken
	}
	rawHeader, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrBadIDToken
	}
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(rawHeader, &header); err != nil {
		return nil, ErrBadIDToken
	}
	if header.Alg != "RS256" {
		return nil, fmt.Errorf("%w: alg %s", ErrBadIDToken, header.Alg)
	}

	key, err := g.keyForKid(ctx, header.Kid)
	if err != nil {
		return nil, err
	}

	tok, err := jwtv5.Parse(idToken,
		func(*jwtv5.Token) (any, error) { return key, nil },
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return nil, ErrBadIDToken
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrBadIDToken
	}

	if iss, _ := claims["iss"].(string); iss != "https://accounts.google.com" && iss != "accounts.google.com" {
		return nil, fmt.Errorf("%w: iss %q", ErrBadIDToken, iss)
	}
	if !audMatches(claims["aud"], g.ClientID) {
		return nil, fmt.Errorf("%w: aud", ErrBadIDToken)
	}
	if expectedNonce != "" {
		if got, _ := claims["nonce"].(string); got != expectedNonce {
			return nil, fmt.Errorf("%w: nonce", ErrBadIDToken)
		}
	}
	return claims, nil
}

func audMatches(aud any, clientID string) bool {
	switch a := aud.(type) {
	case string:
		return a == clientID
	case []any:
		for _, v := range a {
			if s, _ := v.(string); s == clientID {
				return true
			}
		}
	}
	return false
}

// ---- discovery + JWKS con cache ----

func (g *OIDC) discovery(ctx context.Context) (*discoveryDoc, error) {
	g.mu.RLock()
	disc, fresh := g.disc, time.Since(g.discAt) < discoveryTTL
	g.mu.RUnlock()
	if disc != nil && fresh {
		return disc, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google: discovery: %w", err)
	}
	defer resp.Body.Close()

	var dd discoveryDoc
	if err := json.NewDecoder(resp.Body).Decode(&dd); err != nil {
		return nil, fmt.Errorf("google: discovery: %w", err)
	}

	g.mu.Lock()
	g.disc, g.discAt = &dd, time.Now()
	g.mu.Unlock()
	return &dd, nil
}

func (g *OIDC) keyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	disc, err := g.discovery(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := g.getJWKS(ctx, disc.JWKSURI)
	if err != nil {
		return nil, err
	}
	for _, k := range keys.Keys {
		if k.Kid != kid || !strings.EqualFold(k.Kty, "RSA") {
			continue
		}
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, err
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, err
		}
		e := 65537
		if len(eb) > 0 {
			e = 0
			for _, b := range eb {
				e = e<<8 | int(b)
			}
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
	}
	return nil, fmt.Errorf("google: jwks sin kid %q", kid)
}

func (g *OIDC) getJWKS(ctx context.Context, uri string) (*jwks, error) {
	g.mu.RLock()
	keys, fresh := g.keys, time.Since(g.keysAt) < jwksTTL
	g.mu.RUnlock()
	if keys != nil && fresh {
		return keys, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	if g.keysETag != "" {
		req.Header.Set("If-None-Match", g.keysETag)
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google: jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		g.mu.Lock()
		out := g.keys
		g.keysAt = time.Now()
		g.mu.Unlock()
		return out, nil
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("google: jwks http %d", resp.StatusCode)
	}

	var jj jwks
	if err := json.NewDecoder(resp.Body).Decode(&jj); err != nil {
		return nil, fmt.Errorf("google: jwks: %w", err)
	}

	g.mu.Lock()
	g.keys, g.keysAt = &jj, time.Now()
	g.keysETag = resp.Header.Get("ETag")
	g.mu.Unlock()
	return &jj, nil
}
