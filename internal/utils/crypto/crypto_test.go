package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodedTestKey(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	block := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return base64.StdEncoding.EncodeToString(block)
}

func TestKeys_RoundTrip(t *testing.T) {
	keys, err := LoadKeys(encodedTestKey(t))
	require.NoError(t, err)

	ciphertext, err := keys.Encrypt("airtable-api-key")
	require.NoError(t, err)
	assert.NotEqual(t, "airtable-api-key", ciphertext)

	plain, err := keys.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "airtable-api-key", plain)
}

func TestLoadKeys_Errors(t *testing.T) {
	_, err := LoadKeys("")
	assert.Error(t, err)

	_, err = LoadKeys("!!!")
	assert.Error(t, err)

	_, err = LoadKeys(base64.StdEncoding.EncodeToString([]byte("not a pem")))
	assert.Error(t, err)
}

func TestNilKeys(t *testing.T) {
	var k *Keys
	_, err := k.Encrypt("x")
	assert.Error(t, err)
	_, err = k.Decrypt("x")
	assert.Error(t, err)
}
