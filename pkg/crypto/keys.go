// pkg/crypto/keys.go
package crypto

import (
	gocrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var (
	ErrKeyNotFound = errors.New("key file not found")
	ErrInvalidKey  = errors.New("invalid key material")
)

// Authenticator signs outgoing commands and verifies incoming ones with
// RSA PKCS#1 v1.5 over SHA-256. Key files are read on every call.
type Authenticator struct {
	privateKeyPath string
	publicKeyPath  string
}

func NewAuthenticator(privateKeyPath, publicKeyPath string) *Authenticator {
	return &Authenticator{
		privateKeyPath: privateKeyPath,
		publicKeyPath:  publicKeyPath,
	}
}

// Sign returns the signature over the UTF-8 bytes of command. A missing or
// malformed private key is an error the caller cannot recover from.
func (a *Authenticator) Sign(command string) ([]byte, error) {
	key, err := LoadPrivateKey(a.privateKeyPath)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256([]byte(command))
	signature, err := rsa.SignPKCS1v15(rand.Reader, key, gocrypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign command: %w", err)
	}
	return signature, nil
}

// Verify reports whether signature was produced over command by the private
// key matching the configured public key. Every failure reads as false.
func (a *Authenticator) Verify(command string, signature []byte) bool {
	if len(signature) == 0 {
		return false
	}

	key, err := LoadPublicKey(a.publicKeyPath)
	if err != nil {
		return false
	}

	digest := sha256.Sum256([]byte(command))
	return rsa.VerifyPKCS1v15(key, gocrypto.SHA256, digest[:], signature) == nil
}

// LoadPrivateKey reads a PEM encoded RSA private key in PKCS#1 or PKCS#8 form.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not an RSA key", ErrInvalidKey, path)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q in %s", ErrInvalidKey, block.Type, path)
	}
}

// LoadPublicKey reads a PEM encoded RSA public key. PKIX, PKCS#1 and
// certificate blocks are accepted.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	var parsed interface{}
	switch block.Type {
	case "PUBLIC KEY":
		parsed, err = x509.ParsePKIXPublicKey(block.Bytes)
	case "RSA PUBLIC KEY":
		parsed, err = x509.ParsePKCS1PublicKey(block.Bytes)
	case "CERTIFICATE":
		var cert *x509.Certificate
		cert, err = x509.ParseCertificate(block.Bytes)
		if err == nil {
			parsed = cert.PublicKey
		}
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q in %s", ErrInvalidKey, block.Type, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an RSA key", ErrInvalidKey, path)
	}
	return key, nil
}

func readPEM(path string) (*pem.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, path)
		}
		return nil, fmt.Errorf("failed to read key %s: %w", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM data in %s", ErrInvalidKey, path)
	}
	return block, nil
}
