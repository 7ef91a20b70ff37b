package identity

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
)

var (
	// ErrBadPublicKey is returned when a claimed key cannot be parsed.
	ErrBadPublicKey = errors.New("identity: malformed public key")
	// ErrBadSignature is returned when a signature does not verify.
	ErrBadSignature = errors.New("identity: signature verification failed")
)

// VerifySignature checks that sig is a valid signature over data for the
// claimed public key. Browser clients present a base64 SPKI DER Ed25519
// key (the platform key-import path); headless clients present a PEM
// PKCS#1 RSA key and sign with PKCS#1 v1.5 over SHA-256.
func VerifySignature(publicKey string, sig []byte, data string, browser bool) error {
	if browser {
		return verifyBrowser(publicKey, sig, data)
	}
	return verifyHeadless(publicKey, sig, data)
}

func verifyBrowser(publicKey string, sig []byte, data string) error {
	der, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return ErrBadPublicKey
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return ErrBadPublicKey
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return ErrBadPublicKey
	}
	if !ed25519.Verify(edKey, []byte(data), sig) {
		return ErrBadSignature
	}
	return nil
}

func verifyHeadless(publicKey string, sig []byte, data string) error {
	block, _ := pem.Decode([]byte(publicKey))
	if block == nil {
		return ErrBadPublicKey
	}
	rsaKey, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return ErrBadPublicKey
	}
	digest := sha256.Sum256([]byte(data))
	if err := rsa.VerifyPKCS1v15(rsaKey, crypto.SHA256, digest[:], sig); err != nil {
		return ErrBadSignature
	}
	return nil
}

// EncodeBrowserKey renders an Ed25519 public key in the browser wire form.
// Used by headless test drivers simulating browser clients.
func EncodeBrowserKey(key ed25519.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// EncodeHeadlessKey renders an RSA public key in the headless wire form.
func EncodeHeadlessKey(key *rsa.PublicKey) string {
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(key),
	}))
}

// SignHeadless signs data the way a headless client does. Exported for
// test drivers and the bot harness.
func SignHeadless(key *rsa.PrivateKey, data string) ([]byte, error) {
	digest := sha256.Sum256([]byte(data))
	return rsa.SignPKCS1v15(nil, key, crypto.SHA256, digest[:])
}
