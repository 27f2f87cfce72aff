package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"

	base64_ "portal/internal/utils/base64"
	"portal/internal/utils/logger"

	"golang.org/x/crypto/ssh"
)

var log = logger.New("crypto")

// Keys holds the RSA key pair used to protect secrets in the environment.
type Keys struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
}

// LoadKeys parses a base64 encoded PEM private key (PKCS#1, PKCS#8 or
// OpenSSH format).
func LoadKeys(privateKeyEnv string) (*Keys, error) {
	log.Info("Initializing keys")

	if privateKeyEnv == "" {
		return nil, errors.New("private key not found")
	}

	pemData, err := base64_.DecodeFromBase64(privateKeyEnv)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}

	key, err := ssh.ParseRawPrivateKey([]byte(pemData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	var private *rsa.PrivateKey
	switch k := key.(type) {
	case *rsa.PrivateKey:
		private = k
	default:
		return nil, fmt.Errorf("unsupported private key type %T", key)
	}

	return &Keys{private: private, public: &private.PublicKey}, nil
}

// Encrypt returns base64(RSA-OAEP-SHA256(plaintext)).
func (k *Keys) Encrypt(plaintext string) (string, error) {
	if k == nil || k.public == nil {
		return "", errors.New("public key not initialized")
	}

	ciphertext, err := rsa.EncryptOAEP(
		sha256.New(),
		rand.Reader,
		k.public,
		[]byte(plaintext),
		nil,
	)
	if err != nil {
		return "", err
	}

	return base64_.EncodeToBase64(string(ciphertext)), nil
}

func (k *Keys) Decrypt(ciphertext string) (string, error) {
	if k == nil || k.private == nil {
		return "", errors.New("private key not initialized")
	}

	decodedCiphertext, err := base64_.DecodeFromBase64(ciphertext)
	if err != nil {
		return "", err
	}

	plaintext, err := rsa.DecryptOAEP(
		sha256.New(),
		rand.Reader,
		k.private,
		[]byte(decodedCiphertext),
		nil,
	)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
