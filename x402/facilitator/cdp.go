package facilitator

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MonetizedMCP/starter-kit-template/x402"
)

// CDPTokenLifetime is how long a CDP bearer token stays valid.
const CDPTokenLifetime = 2 * time.Minute

// CDPCredentials signs Coinbase Developer Platform bearer tokens.
type CDPCredentials struct {
	keyID  string
	method jwt.SigningMethod
	key    interface{}
	now    func() time.Time
}

// NewCDPCredentials parses a CDP API key secret. The secret is either a
// base64 Ed25519 key (64 byte private key or 32 byte seed) or a PEM EC key.
func NewCDPCredentials(keyID, secret string) (*CDPCredentials, error) {
	if keyID == "" {
		return nil, fmt.Errorf("%w: CDP key id is empty", x402.ErrInvalidKey)
	}
	secret = strings.TrimSpace(strings.ReplaceAll(secret, `\n`, "\n"))
	if secret == "" {
		return nil, fmt.Errorf("%w: CDP key secret is empty", x402.ErrInvalidKey)
	}

	creds := &CDPCredentials{keyID: keyID, now: time.Now}

	if strings.HasPrefix(secret, "-----BEGIN") {
		key, err := jwt.ParseECPrivateKeyFromPEM([]byte(secret))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", x402.ErrInvalidKey, err)
		}
		creds.method = jwt.SigningMethodES256
		creds.key = key
		return creds, nil
	}

	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: CDP secret is neither PEM nor base64: %v", x402.ErrInvalidKey, err)
	}
	switch len(raw) {
	case ed25519.PrivateKeySize:
		creds.key = ed25519.PrivateKey(raw)
	case ed25519.SeedSize:
		creds.key = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, fmt.Errorf("%w: Ed25519 key has %d bytes", x402.ErrInvalidKey, len(raw))
	}
	creds.method = jwt.SigningMethodEdDSA
	return creds, nil
}

// KeyID returns the CDP API key id.
func (c *CDPCredentials) KeyID() string {
	return c.keyID
}

// Token returns a signed JWT scoped to one request method, host and path.
func (c *CDPCredentials) Token(method, host, path string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := c.now()
	claims := jwt.MapClaims{
		"sub":  c.keyID,
		"iss":  "cdp",
		"nbf":  now.Unix(),
		"iat":  now.Unix(),
		"exp":  now.Add(CDPTokenLifetime).Unix(),
		"uris": []string{method + " " + host + path},
	}

	token := jwt.NewWithClaims(c.method, claims)
	token.Header["kid"] = c.keyID
	token.Header["nonce"] = hex.EncodeToString(nonce)

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign CDP token: %w", err)
	}
	return signed, nil
}

// PublicKey returns the verification key for issued tokens.
func (c *CDPCredentials) PublicKey() interface{} {
	switch k := c.key.(type) {
	case ed25519.PrivateKey:
		return k.Public()
	case *ecdsa.PrivateKey:
		return &k.PublicKey
	}
	return nil
}

// AuthorizationProvider returns a provider that signs a fresh bearer token for every request.
// Signing failures are logged and the request goes out unauthenticated.
func (c *CDPCredentials) AuthorizationProvider(logger *slog.Logger) AuthorizationProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return func(req *http.Request) string {
		token, err := c.Token(req.Method, req.URL.Host, req.URL.Path)
		if err != nil {
			logger.Error("failed to sign facilitator request", "error", err, "url", req.URL.String())
			return ""
		}
		return "Bearer " + token
	}
}
