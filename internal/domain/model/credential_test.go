package model_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/wunschliste/internal/domain/model"
)

func testPrivateKeyPEM(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func validCredentials(t *testing.T) model.FirebaseCredentials {
	t.Helper()

	return model.FirebaseCredentials{
		ProjectID:   "wunschliste-test",
		PrivateKey:  testPrivateKeyPEM(t),
		ClientEmail: "svc@wunschliste-test.iam.gserviceaccount.com",
	}
}

func TestFirebaseCredentials_IsZero(t *testing.T) {
	assert.True(t, model.FirebaseCredentials{}.IsZero())
	assert.False(t, model.FirebaseCredentials{ClientID: "123"}.IsZero())
}

func TestFirebaseCredentials_NormalizeExpandsEscapedNewlines(t *testing.T) {
	pemKey := testPrivateKeyPEM(t)
	escaped := strings.ReplaceAll(strings.TrimSpace(pemKey), "\n", `\n`)

	creds := model.FirebaseCredentials{
		ProjectID:   " wunschliste-test ",
		PrivateKey:  escaped,
		ClientEmail: "svc@wunschliste-test.iam.gserviceaccount.com",
	}.Normalize()

	assert.Equal(t, pemKey, creds.PrivateKey)
	assert.Equal(t, "wunschliste-test", creds.ProjectID)
	assert.Equal(t, model.DefaultCredentialType, creds.Type)
	assert.Equal(t, model.DefaultAuthURI, creds.AuthURI)
	assert.Equal(t, model.DefaultTokenURI, creds.TokenURI)
	require.NoError(t, creds.Validate())
}

func TestFirebaseCredentials_NormalizeKeepsExplicitEndpoints(t *testing.T) {
	creds := model.FirebaseCredentials{TokenURI: "https://example.test/token"}.Normalize()

	assert.Equal(t, "https://example.test/token", creds.TokenURI)
	assert.Empty(t, creds.PrivateKey)
}

func TestFirebaseCredentials_ValidateMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.FirebaseCredentials)
		missing string
	}{
		{"project id", func(c *model.FirebaseCredentials) { c.ProjectID = "" }, "project_id"},
		{"private key", func(c *model.FirebaseCredentials) { c.PrivateKey = "  " }, "private_key"},
		{"client email", func(c *model.FirebaseCredentials) { c.ClientEmail = "" }, "client_email"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			creds := validCredentials(t)
			tc.mutate(&creds)

			err := creds.Validate()

			require.ErrorIs(t, err, model.ErrMissingCredentialField)
			assert.Contains(t, err.Error(), tc.missing)
		})
	}
}

func TestFirebaseCredentials_ValidateMalformedKey(t *testing.T) {
	creds := validCredentials(t)
	creds.PrivateKey = "not a key"

	err := creds.Validate()
	require.ErrorIs(t, err, model.ErrMalformedPrivateKey)

	creds.PrivateKey = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte("garbage")}))
	err = creds.Validate()
	require.ErrorIs(t, err, model.ErrMalformedPrivateKey)
}

func TestFirebaseCredentials_ValidateAcceptsPKCS1(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	creds := validCredentials(t)
	creds.PrivateKey = string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))

	assert.NoError(t, creds.Validate())
}
