// Package auth provides challenge/response wallet authentication for the
// trade feed client.
//
// The client proves control of a wallet address by signing a server-issued,
// timestamped challenge. The signing capability is injected: a browser or
// hardware wallet implements Signer externally, and LocalSigner backs it with
// an ed25519 key loaded from a PEM file for headless use.
package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"time"
)

// Signer signs an exact message string on behalf of a wallet address.
// SignMessage may suspend for a long time awaiting user approval in an
// external wallet; implementations must honor ctx cancellation.
type Signer interface {
	SignMessage(ctx context.Context, message string) (signature string, err error)
}

// Credentials are the last-used authentication inputs, remembered for silent
// re-authentication after reconnects or server-side session expiry.
type Credentials struct {
	Address string
	Signer  Signer
}

// Challenge builds the human-readable challenge string for an address. The
// embedded timestamp prevents replay across sessions.
func Challenge(address string, at time.Time) string {
	return fmt.Sprintf(
		"Sign in to the trade feed\n\nAddress: %s\nIssued at: %d",
		address, at.UnixMilli(),
	)
}

// LocalSigner signs challenges with an ed25519 private key held in memory.
type LocalSigner struct {
	key ed25519.PrivateKey
}

// NewLocalSigner wraps an ed25519 private key.
func NewLocalSigner(key ed25519.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key}
}

// LoadLocalSigner loads an ed25519 private key from a PKCS#8 PEM file.
func LoadLocalSigner(path string) (*LocalSigner, error) {
	key, err := LoadPrivateKey(path)
	if err != nil {
		return nil, err
	}
	return NewLocalSigner(key), nil
}

// LoadPrivateKey loads an ed25519 private key from a PEM file.
func LoadPrivateKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	edKey, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is not an ed25519 private key")
	}
	return edKey, nil
}

// SignMessage signs the message and returns the signature base64-encoded.
func (s *LocalSigner) SignMessage(_ context.Context, message string) (string, error) {
	if s == nil || s.key == nil {
		return "", ErrNoSigner
	}
	sig := ed25519.Sign(s.key, []byte(message))
	return base64.StdEncoding.EncodeToString(sig), nil
}
