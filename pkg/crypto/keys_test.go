// pkg/crypto/keys_test.go
package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/busybox42/beacon/pkg/crypto/cryptotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	keys := cryptotest.WriteKeyPair(t, t.TempDir())
	auth := NewAuthenticator(keys.PrivateKey, keys.PublicKey)

	commands := []string{"START", "STOP", "", "add-node 192.168.1.20", "재시작 ✓"}
	for _, command := range commands {
		signature, err := auth.Sign(command)
		require.NoError(t, err)
		assert.True(t, auth.Verify(command, signature), "round trip failed for %q", command)
	}
}

func TestVerifyRejectsTamperedCommand(t *testing.T) {
	keys := cryptotest.WriteKeyPair(t, t.TempDir())
	auth := NewAuthenticator(keys.PrivateKey, keys.PublicKey)

	signature, err := auth.Sign("START")
	require.NoError(t, err)

	assert.True(t, auth.Verify("START", signature))
	assert.False(t, auth.Verify("STOP", signature))
	assert.False(t, auth.Verify("START ", signature))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	keysA := cryptotest.WriteKeyPair(t, t.TempDir())
	keysB := cryptotest.WriteKeyPair(t, t.TempDir())

	signer := NewAuthenticator(keysA.PrivateKey, keysA.PublicKey)
	verifier := NewAuthenticator(keysB.PrivateKey, keysB.PublicKey)

	signature, err := signer.Sign("START")
	require.NoError(t, err)
	assert.False(t, verifier.Verify("START", signature))
}

func TestVerifyNeverFails(t *testing.T) {
	dir := t.TempDir()
	keys := cryptotest.WriteKeyPair(t, dir)
	auth := NewAuthenticator(keys.PrivateKey, keys.PublicKey)

	signature, err := auth.Sign("START")
	require.NoError(t, err)

	tests := []struct {
		name      string
		auth      *Authenticator
		signature []byte
	}{
		{"empty signature", auth, nil},
		{"truncated signature", auth, signature[:10]},
		{"garbage signature", auth, []byte("not a signature")},
		{"missing public key", NewAuthenticator(keys.PrivateKey, filepath.Join(dir, "missing.pem")), signature},
		{"private key as public key", NewAuthenticator(keys.PrivateKey, keys.PrivateKey), signature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.auth.Verify("START", tt.signature))
		})
	}
}

func TestSignWithoutKey(t *testing.T) {
	dir := t.TempDir()

	auth := NewAuthenticator(filepath.Join(dir, "missing.pem"), filepath.Join(dir, "missing_public.pem"))
	_, err := auth.Sign("START")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("hello"), 0600))
	auth = NewAuthenticator(garbage, garbage)
	_, err = auth.Sign("START")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestLoadPKCS8AndPKCS1Keys(t *testing.T) {
	dir := t.TempDir()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	privPath := filepath.Join(dir, "pkcs8.pem")
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8}), 0600))

	pubPath := filepath.Join(dir, "pkcs1_public.pem")
	pkcs1Pub := x509.MarshalPKCS1PublicKey(&key.PublicKey)
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: pkcs1Pub}), 0600))

	loaded, err := LoadPrivateKey(privPath)
	require.NoError(t, err)
	assert.True(t, loaded.Equal(key))

	pub, err := LoadPublicKey(pubPath)
	require.NoError(t, err)
	assert.True(t, pub.Equal(&key.PublicKey))

	auth := NewAuthenticator(privPath, pubPath)
	signature, err := auth.Sign("START")
	require.NoError(t, err)
	assert.True(t, auth.Verify("START", signature))
}
