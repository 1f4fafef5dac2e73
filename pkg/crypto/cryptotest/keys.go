// Package cryptotest writes throwaway RSA key files for tests.
package cryptotest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
)

// KeyFiles holds the paths of a PEM key pair written by WriteKeyPair.
type KeyFiles struct {
	PrivateKey string
	PublicKey  string
}

// WriteKeyPair generates an RSA key pair and writes it under dir as a PKCS#1
// private key and a PKIX public key, the layout openssl produces.
func WriteKeyPair(t testing.TB, dir string) KeyFiles {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("Failed to marshal public key: %v", err)
	}

	files := KeyFiles{
		PrivateKey: filepath.Join(dir, "ca.pem"),
		PublicKey:  filepath.Join(dir, "ca_public.pem"),
	}
	writePEM(t, files.PrivateKey, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key))
	writePEM(t, files.PublicKey, "PUBLIC KEY", pubDER)
	return files
}

func writePEM(t testing.TB, path, blockType string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}
