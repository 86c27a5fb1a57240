// Package exchange implements the signed REST transport to the binary
// options exchange: request signing, DNS pre-resolution, connection-pool
// warm-up, periodic keepalive, and the handful of endpoints the pipeline
// actually calls.
package exchange

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Header names for the signed-request contract.
const (
	HeaderAccessKey       = "GB-ACCESS-KEY"
	HeaderAccessTimestamp = "GB-ACCESS-TIMESTAMP"
	HeaderAccessSignature = "GB-ACCESS-SIGNATURE"
)

// Auth signs requests with the key loaded from a PEM file. The signature
// algorithm is selected once, at load time, from the PEM key's concrete
// type: Ed25519 keys sign natively; RSA keys (PKCS#8 or PKCS#1) sign with
// RSA-PSS/SHA-256. Any other key type is rejected at load time.
type Auth struct {
	accessKeyID string
	ed25519Key  ed25519.PrivateKey
	rsaKey      *rsa.PrivateKey
}

// NewAuth loads a PEM-encoded private key and binds it to accessKeyID.
func NewAuth(accessKeyID, privateKeyPath string) (*Auth, error) {
	data, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("decode pem: no block found in %s", privateKeyPath)
	}

	auth := &Auth{accessKeyID: accessKeyID}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		switch k := key.(type) {
		case ed25519.PrivateKey:
			auth.ed25519Key = k
			return auth, nil
		case *rsa.PrivateKey:
			auth.rsaKey = k
			return auth, nil
		default:
			return nil, fmt.Errorf("unsupported pkcs8 key type %T in %s", key, privateKeyPath)
		}
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		auth.rsaKey = key
		return auth, nil
	}

	return nil, fmt.Errorf("parse private key in %s: unrecognized PEM key format", privateKeyPath)
}

// Headers builds the three signed-request headers for method+path. path may
// include a query string; only the portion before "?" is signed.
func (a *Auth) Headers(method, path string) (map[string]string, error) {
	signPath := path
	if idx := strings.IndexByte(signPath, '?'); idx >= 0 {
		signPath = signPath[:idx]
	}
	timestampMs := strconv.FormatInt(time.Now().UnixMilli(), 10)
	message := []byte(timestampMs + strings.ToUpper(method) + signPath)

	sig, err := a.sign(message)
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	return map[string]string{
		HeaderAccessKey:       a.accessKeyID,
		HeaderAccessTimestamp: timestampMs,
		HeaderAccessSignature: base64.StdEncoding.EncodeToString(sig),
	}, nil
}

func (a *Auth) sign(message []byte) ([]byte, error) {
	if a.ed25519Key != nil {
		return ed25519.Sign(a.ed25519Key, message), nil
	}
	digest := sha256.Sum256(message)
	return rsa.SignPSS(rand.Reader, a.rsaKey, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	})
}

// PathFromURL returns the path component of a full URL, for signing the
// WebSocket handshake request the same way a REST request is signed.
func PathFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	return u.Path, nil
}
