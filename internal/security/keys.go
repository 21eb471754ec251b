package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
)

// SigningKey is an RSA private key published under Kid.
type SigningKey struct {
	Kid     string
	Private *rsa.PrivateKey
}

func (k *SigningKey) jwk() JWK {
	pub := k.Private.PublicKey
	return JWK{
		Kty: "RSA",
		Kid: k.Kid,
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// KeyManager signs with Active and verifies with Active and Next, so a key
// can be rolled out before it starts signing.
type KeyManager struct {
	Active *SigningKey
	Next   *SigningKey
}

// LoadPrivateKeyPEM reads a PKCS#1 or PKCS#8 RSA key.
func LoadPrivateKeyPEM(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("no PEM block")
	}
	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("unsupported PEM type %q", block.Type)
	}
	k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rk, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("PKCS#8 key is not RSA")
	}
	return rk, nil
}

func loadSigningKey(kid, path string) (*SigningKey, error) {
	priv, err := LoadPrivateKeyPEM(path)
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", kid, err)
	}
	return &SigningKey{Kid: kid, Private: priv}, nil
}

// NewKeyManager loads the active key and, when nextKid is set, the next one.
func NewKeyManager(activeKid, activePath, nextKid, nextPath string) (*KeyManager, error) {
	active, err := loadSigningKey(activeKid, activePath)
	if err != nil {
		return nil, err
	}
	km := &KeyManager{Active: active}
	if nextKid != "" && nextPath != "" {
		if km.Next, err = loadSigningKey(nextKid, nextPath); err != nil {
			return nil, err
		}
	}
	return km, nil
}

// JWK is the RFC 7517 subset needed to publish an RSA verification key.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type JWKSet struct {
	Keys []JWK `json:"keys"`
}

func (km *KeyManager) JWKS() JWKSet {
	set := JWKSet{Keys: []JWK{km.Active.jwk()}}
	if km.Next != nil {
		set.Keys = append(set.Keys, km.Next.jwk())
	}
	return set
}

func (km *KeyManager) PublicByKid(kid string) (*rsa.PublicKey, bool) {
	for _, k := range []*SigningKey{km.Active, km.Next} {
		if k != nil && k.Kid == kid {
			return &k.Private.PublicKey, true
		}
	}
	return nil, false
}
