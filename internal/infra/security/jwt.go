package security

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
)

// ErrKeyIDMissing indicates no kid is associated with the supplied key.
var ErrKeyIDMissing = errors.New("jwt: missing key identifier")

// ErrKeyNotRegistered indicates a supplied kid is unknown to the JWT manager.
var ErrKeyNotRegistered = errors.New("jwt: key not registered")

// JWK is a single RSA verification key in JSON Web Key form.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS is the key set document served to token consumers.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// keyEnumerator is implemented by providers that can list every public key
// up front, letting the manager pre-warm its registry.
type keyEnumerator interface {
	ListVerificationKeys() map[string]*rsa.PublicKey
}

// kidIdentifier is implemented by providers that know which kid signs.
type kidIdentifier interface {
	SigningKID() string
}

// JWTManager tracks verification keys by kid and renders the JWKS document.
type JWTManager struct {
	KeyProvider KeyProvider

	mu         sync.RWMutex
	publicKeys map[string]*rsa.PublicKey
	signingKID string
}

// NewJWTManager wraps a key provider, pre-registering whatever key material
// the provider can enumerate.
func NewJWTManager(provider KeyProvider) *JWTManager {
	mgr := &JWTManager{
		KeyProvider: provider,
		publicKeys:  make(map[string]*rsa.PublicKey),
	}

	if enumerator, ok := provider.(keyEnumerator); ok {
		for kid, key := range enumerator.ListVerificationKeys() {
			_ = mgr.RegisterPublicKey(kid, key)
		}
	}
	if identified, ok := provider.(kidIdentifier); ok {
		mgr.signingKID = identified.SigningKID()
	}

	return mgr
}

// SigningKID returns the kid stamped into token headers by this service.
func (m *JWTManager) SigningKID() string {
	return m.signingKID
}

// RegisterPublicKey adds a verification key under kid.
func (m *JWTManager) RegisterPublicKey(kid string, key *rsa.PublicKey) error {
	kid = strings.TrimSpace(kid)
	if kid == "" {
		return ErrKeyIDMissing
	}
	if key == nil {
		return fmt.Errorf("jwt: public key for %s is nil", kid)
	}

	m.mu.Lock()
	m.publicKeys[kid] = key
	m.mu.Unlock()
	return nil
}

// GetSigningKey returns the active private key.
func (m *JWTManager) GetSigningKey() (*rsa.PrivateKey, error) {
	if m.KeyProvider == nil {
		return nil, fmt.Errorf("jwt: key provider not configured")
	}
	return m.KeyProvider.GetSigningKey()
}

// GetVerificationKey resolves kid from the registry, falling back to the
// provider and caching whatever it returns.
func (m *JWTManager) GetVerificationKey(kid string) (*rsa.PublicKey, error) {
	kid = strings.TrimSpace(kid)
	if kid == "" {
		return nil, ErrKeyIDMissing
	}

	m.mu.RLock()
	key, ok := m.publicKeys[kid]
	m.mu.RUnlock()
	if ok {
		return key, nil
	}

	if m.KeyProvider != nil {
		if fetched, err := m.KeyProvider.GetVerificationKey(kid); err == nil {
			_ = m.RegisterPublicKey(kid, fetched)
			return fetched, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrKeyNotRegistered, kid)
}

// JWKS renders every registered key, ordered by kid so the document is
// stable across requests.
func (m *JWTManager) JWKS() JWKS {
	m.mu.RLock()
	defer m.mu.RUnlock()

	kids := make([]string, 0, len(m.publicKeys))
	for kid, key := range m.publicKeys {
		if key != nil {
			kids = append(kids, kid)
		}
	}
	sort.Strings(kids)

	doc := JWKS{Keys: make([]JWK, 0, len(kids))}
	for _, kid := range kids {
		doc.Keys = append(doc.Keys, newJWK(kid, m.publicKeys[kid]))
	}
	return doc
}

func newJWK(kid string, key *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: kid,
		N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}
}
