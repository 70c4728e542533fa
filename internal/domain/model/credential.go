package model

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

// Default endpoint values written by the Firebase console into service-account keys.
const (
	DefaultCredentialType = "service_account"
	DefaultAuthURI        = "https://accounts.google.com/o/oauth2/auth"
	DefaultTokenURI       = "https://oauth2.googleapis.com/token"
)

var (
	// ErrMissingCredentialField indicates that a required service-account field is empty.
	ErrMissingCredentialField = errors.New("missing firebase credential field")

	// ErrMalformedPrivateKey indicates that the private key is not a usable PEM key.
	ErrMalformedPrivateKey = errors.New("malformed firebase private key")
)

// FirebaseCredentials holds the service-account fields of the "firebase"
// configuration section. All fields are optional at load time; Validate decides
// whether the set is complete enough to initialise the remote store.
type FirebaseCredentials struct {
	Type                string
	ProjectID           string
	PrivateKeyID        string
	PrivateKey          string // PEM, possibly with escaped "\n" sequences.
	ClientEmail         string
	ClientID            string
	AuthURI             string
	TokenURI            string
	AuthProviderCertURL string
	ClientCertURL       string
	UniverseDomain      string
}

// IsZero returns true when no credential field was supplied at all.
func (c FirebaseCredentials) IsZero() bool {
	return c == FirebaseCredentials{}
}

// Normalize returns a copy with escaped newlines in the private key expanded,
// surrounding whitespace trimmed, and endpoint defaults filled in.
func (c FirebaseCredentials) Normalize() FirebaseCredentials {
	n := FirebaseCredentials{
		Type:                strings.TrimSpace(c.Type),
		ProjectID:           strings.TrimSpace(c.ProjectID),
		PrivateKeyID:        strings.TrimSpace(c.PrivateKeyID),
		PrivateKey:          strings.TrimSpace(strings.ReplaceAll(c.PrivateKey, `\n`, "\n")),
		ClientEmail:         strings.TrimSpace(c.ClientEmail),
		ClientID:            strings.TrimSpace(c.ClientID),
		AuthURI:             strings.TrimSpace(c.AuthURI),
		TokenURI:            strings.TrimSpace(c.TokenURI),
		AuthProviderCertURL: strings.TrimSpace(c.AuthProviderCertURL),
		ClientCertURL:       strings.TrimSpace(c.ClientCertURL),
		UniverseDomain:      strings.TrimSpace(c.UniverseDomain),
	}
	if n.PrivateKey != "" {
		n.PrivateKey += "\n"
	}
	if n.Type == "" {
		n.Type = DefaultCredentialType
	}
	if n.AuthURI == "" {
		n.AuthURI = DefaultAuthURI
	}
	if n.TokenURI == "" {
		n.TokenURI = DefaultTokenURI
	}
	return n
}

// Validate checks that the fields required to build a service-account token
// source are present and that the private key parses. Call Normalize first when
// the key may contain escaped newlines.
func (c FirebaseCredentials) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"project_id", c.ProjectID},
		{"private_key", c.PrivateKey},
		{"client_email", c.ClientEmail},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingCredentialField, f.name)
		}
	}

	block, _ := pem.Decode([]byte(c.PrivateKey))
	if block == nil {
		return fmt.Errorf("%w: no PEM block found", ErrMalformedPrivateKey)
	}
	if _, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return nil
	}
	if _, err := x509.ParsePKCS1PrivateKey(block.Bytes); err != nil {
		return fmt.Errorf("%w: %s block is neither PKCS#8 nor PKCS#1", ErrMalformedPrivateKey, block.Type)
	}
	return nil
}
