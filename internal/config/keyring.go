package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/ericfisherdev/wunschliste/internal/domain/model"
)

// Service/keys for OS keyring.
const (
	keyringService     = "wunschliste"
	keyringCredentials = "firebase_credentials"
)

// ErrNoKeyringCredentials indicates that the keyring holds no credentials.
var ErrNoKeyringCredentials = errors.New("no firebase credentials in keyring")

// serviceAccountFile is the service-account JSON key file downloaded from the
// Firebase console. The same document is stored in the keyring.
type serviceAccountFile struct {
	Type                string `json:"type"`
	ProjectID           string `json:"project_id"`
	PrivateKeyID        string `json:"private_key_id,omitempty"`
	PrivateKey          string `json:"private_key"`
	ClientEmail         string `json:"client_email"`
	ClientID            string `json:"client_id,omitempty"`
	AuthURI             string `json:"auth_uri,omitempty"`
	TokenURI            string `json:"token_uri,omitempty"`
	AuthProviderCertURL string `json:"auth_provider_x509_cert_url,omitempty"`
	ClientCertURL       string `json:"client_x509_cert_url,omitempty"`
	UniverseDomain      string `json:"universe_domain,omitempty"`
}

// ParseServiceAccountJSON decodes a service-account key file.
func ParseServiceAccountJSON(data []byte) (model.FirebaseCredentials, error) {
	var f serviceAccountFile
	if err := json.Unmarshal(data, &f); err != nil {
		return model.FirebaseCredentials{}, fmt.Errorf("parsing service account JSON: %w", err)
	}
	return model.FirebaseCredentials{
		Type:                f.Type,
		ProjectID:           f.ProjectID,
		PrivateKeyID:        f.PrivateKeyID,
		PrivateKey:          f.PrivateKey,
		ClientEmail:         f.ClientEmail,
		ClientID:            f.ClientID,
		AuthURI:             f.AuthURI,
		TokenURI:            f.TokenURI,
		AuthProviderCertURL: f.AuthProviderCertURL,
		ClientCertURL:       f.ClientCertURL,
		UniverseDomain:      f.UniverseDomain,
	}, nil
}

func encodeServiceAccountJSON(c model.FirebaseCredentials) ([]byte, error) {
	return json.Marshal(serviceAccountFile{
		Type:                c.Type,
		ProjectID:           c.ProjectID,
		PrivateKeyID:        c.PrivateKeyID,
		PrivateKey:          c.PrivateKey,
		ClientEmail:         c.ClientEmail,
		ClientID:            c.ClientID,
		AuthURI:             c.AuthURI,
		TokenURI:            c.TokenURI,
		AuthProviderCertURL: c.AuthProviderCertURL,
		ClientCertURL:       c.ClientCertURL,
		UniverseDomain:      c.UniverseDomain,
	})
}

// LoadKeyringCredentials reads the credentials stored by SaveKeyringCredentials.
// Returns ErrNoKeyringCredentials if none are stored.
func LoadKeyringCredentials() (model.FirebaseCredentials, error) {
	secret, err := keyring.Get(keyringService, keyringCredentials)
	if errors.Is(err, keyring.ErrNotFound) {
		return model.FirebaseCredentials{}, ErrNoKeyringCredentials
	}
	if err != nil {
		return model.FirebaseCredentials{}, fmt.Errorf("reading keyring: %w", err)
	}
	return ParseServiceAccountJSON([]byte(secret))
}

// SaveKeyringCredentials normalizes and validates creds, then stores them in
// the OS keyring, replacing any previous entry.
func SaveKeyringCredentials(creds model.FirebaseCredentials) error {
	creds = creds.Normalize()
	if err := creds.Validate(); err != nil {
		return err
	}

	data, err := encodeServiceAccountJSON(creds)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := keyring.Set(keyringService, keyringCredentials, string(data)); err != nil {
		return fmt.Errorf("writing keyring: %w", err)
	}
	return nil
}

// DeleteKeyringCredentials removes stored credentials. Deleting absent
// credentials is not an error.
func DeleteKeyringCredentials() error {
	err := keyring.Delete(keyringService, keyringCredentials)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("deleting keyring entry: %w", err)
	}
	return nil
}
