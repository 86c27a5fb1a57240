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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeEd25519Key(t *testing.T) (string, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("marshal pkcs8: %v", err)
	}
	return writePEM(t, der), pub
}

func writeRSAKey(t *testing.T) (string, *rsa.PublicKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("marshal pkcs8: %v", err)
	}
	return writePEM(t, der), &priv.PublicKey
}

func writePEM(t *testing.T, der []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "key.pem")
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	return path
}

func TestAuthHeadersEd25519RoundTrip(t *testing.T) {
	t.Parallel()
	path, pub := writeEd25519Key(t)

	auth, err := NewAuth("key-1", path)
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}

	headers, err := auth.Headers("GET", "/markets?limit=10")
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}
	if headers[HeaderAccessKey] != "key-1" {
		t.Errorf("access key header = %q, want key-1", headers[HeaderAccessKey])
	}

	sig, err := base64.StdEncoding.DecodeString(headers[HeaderAccessSignature])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	message := []byte(headers[HeaderAccessTimestamp] + "GET" + "/markets")
	if !ed25519.Verify(pub, message, sig) {
		t.Error("signature does not verify against signed message (query string must be excluded)")
	}
}

func TestAuthHeadersRSARoundTrip(t *testing.T) {
	t.Parallel()
	path, pub := writeRSAKey(t)

	auth, err := NewAuth("key-2", path)
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}

	headers, err := auth.Headers("POST", "/portfolio/orders")
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}

	sig, err := base64.StdEncoding.DecodeString(headers[HeaderAccessSignature])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	digest := sha256.Sum256([]byte(headers[HeaderAccessTimestamp] + "POST" + "/portfolio/orders"))
	opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: crypto.SHA256}
	if err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, opts); err != nil {
		t.Errorf("RSA-PSS signature does not verify: %v", err)
	}
}

func TestPathFromURLStripsSchemeAndHost(t *testing.T) {
	t.Parallel()
	path, err := PathFromURL("wss://exchange.example/trade-api/ws/v2")
	if err != nil {
		t.Fatalf("PathFromURL: %v", err)
	}
	if path != "/trade-api/ws/v2" {
		t.Errorf("path = %q, want /trade-api/ws/v2", path)
	}
}

func TestHeadersExcludeQueryString(t *testing.T) {
	t.Parallel()
	path, pub := writeEd25519Key(t)
	auth, err := NewAuth("key-3", path)
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}
	full, err := auth.Headers("GET", "/markets?series_ticker=KXNCAAMBTOTAL&limit=5")
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}
	bare, err := auth.Headers("GET", "/markets")
	if err != nil {
		t.Fatalf("Headers: %v", err)
	}
	if strings.Contains(full[HeaderAccessSignature], "?") || strings.Contains(bare[HeaderAccessSignature], "?") {
		t.Error("signature must never embed a literal query string")
	}
	sig, err := base64.StdEncoding.DecodeString(full[HeaderAccessSignature])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	if !ed25519.Verify(pub, []byte(full[HeaderAccessTimestamp]+"GET"+"/markets"), sig) {
		t.Error("signature over a path with a query string must cover only the bare path")
	}
}
