// Package config loads application configuration from the secrets file, the
// environment and the OS keyring.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ericfisherdev/wunschliste/internal/domain/model"
)

// EnvPrefix is prepended to every environment variable, with "." in keys
// replaced by "_": firebase.private_key is WUNSCHLISTE_FIREBASE_PRIVATE_KEY.
const EnvPrefix = "WUNSCHLISTE"

// EnvCredentialsBase64 holds a base64-encoded service-account JSON document.
const EnvCredentialsBase64 = EnvPrefix + "_FIREBASE_CREDENTIALS_BASE64"

// DefaultPath is where the secrets file is looked up when no path is given.
const DefaultPath = ".streamlit/secrets.toml"

// Credential sources reported in Config.CredentialSource.
const (
	SourceNone     = ""
	SourceSettings = "settings"
	SourceBase64   = "base64"
	SourceKeyring  = "keyring"
)

// Config holds the application configuration.
type Config struct {
	ListenAddr string
	DataFile   string
	Firestore  FirestoreConfig
	Log        LogConfig

	// Firebase is nil when no credential field was supplied by any source.
	Firebase         *model.FirebaseCredentials
	CredentialSource string
}

// FirestoreConfig tunes the remote store and its selection.
type FirestoreConfig struct {
	Collection      string
	ConnectTimeout  time.Duration
	ConnectAttempts int
	RecheckInterval time.Duration
}

// LogConfig configures the slog handlers.
type LogConfig struct {
	Level  string
	Format string
	File   string
}

// HasFirebaseCredentials returns true when some credential source supplied at
// least one field. The fields may still be incomplete.
func (c *Config) HasFirebaseCredentials() bool {
	return c.Firebase != nil
}

type rawConfig struct {
	ListenAddr string          `mapstructure:"listen_addr"`
	DataFile   string          `mapstructure:"data_file"`
	Firestore  rawFirestore    `mapstructure:"firestore"`
	Log        rawLog          `mapstructure:"log"`
	Firebase   firebaseSection `mapstructure:"firebase"`
}

type rawFirestore struct {
	Collection      string        `mapstructure:"collection"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	ConnectAttempts int           `mapstructure:"connect_attempts"`
	RecheckInterval time.Duration `mapstructure:"recheck_interval"`
}

type rawLog struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// firebaseSection is the [firebase] table of the secrets file.
type firebaseSection struct {
	Type                string `mapstructure:"type"`
	ProjectID           string `mapstructure:"project_id"`
	PrivateKeyID        string `mapstructure:"private_key_id"`
	PrivateKey          string `mapstructure:"private_key"`
	ClientEmail         string `mapstructure:"client_email"`
	ClientID            string `mapstructure:"client_id"`
	AuthURI             string `mapstructure:"auth_uri"`
	TokenURI            string `mapstructure:"token_uri"`
	AuthProviderCertURL string `mapstructure:"auth_provider_x509_cert_url"`
	ClientCertURL       string `mapstructure:"client_x509_cert_url"`
	UniverseDomain      string `mapstructure:"universe_domain"`
}

func (f firebaseSection) toModel() model.FirebaseCredentials {
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
	}
}

var firebaseKeys = []string{
	"type", "project_id", "private_key_id", "private_key", "client_email", "client_id",
	"auth_uri", "token_uri", "auth_provider_x509_cert_url", "client_x509_cert_url",
	"universe_domain",
}

var defaults = map[string]any{
	"listen_addr":                "127.0.0.1:8080",
	"data_file":                  "wunschliste.json",
	"firestore.collection":       "wunschliste",
	"firestore.connect_timeout":  "10s",
	"firestore.connect_attempts": 3,
	"firestore.recheck_interval": "0s",
	"log.level":                  "info",
	"log.format":                 "text",
	"log.file":                   "",
}

// EnvVars returns the name of every environment variable Load reads, sorted.
func EnvVars() []string {
	keys := make([]string, 0, len(defaults)+len(firebaseKeys))
	for key := range defaults {
		keys = append(keys, key)
	}
	for _, key := range firebaseKeys {
		keys = append(keys, "firebase."+key)
	}

	vars := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		vars = append(vars, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}
	vars = append(vars, EnvCredentialsBase64)
	slices.Sort(vars)
	return vars
}

// Load reads configuration from path (TOML, YAML or JSON by extension), the
// WUNSCHLISTE_* environment and, for credentials only, the OS keyring.
// Environment values override the file. A missing file is not an error; an
// unparsable file or invalid durations and numbers are. Problems with the
// credentials themselves never fail Load.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key := range defaults {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}
	for _, key := range firebaseKeys {
		if err := v.BindEnv("firebase." + key); err != nil {
			return nil, fmt.Errorf("binding env for firebase.%s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
			slog.Debug("config file not found, using environment and defaults", "path", path)
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if raw.Firestore.ConnectAttempts < 1 {
		return nil, fmt.Errorf("firestore.connect_attempts must be at least 1, got %d", raw.Firestore.ConnectAttempts)
	}
	if raw.Firestore.ConnectTimeout <= 0 {
		return nil, fmt.Errorf("firestore.connect_timeout must be positive, got %s", raw.Firestore.ConnectTimeout)
	}

	cfg := &Config{
		ListenAddr: raw.ListenAddr,
		DataFile:   raw.DataFile,
		Firestore: FirestoreConfig{
			Collection:      raw.Firestore.Collection,
			ConnectTimeout:  raw.Firestore.ConnectTimeout,
			ConnectAttempts: raw.Firestore.ConnectAttempts,
			RecheckInterval: raw.Firestore.RecheckInterval,
		},
		Log: LogConfig{
			Level:  raw.Log.Level,
			Format: raw.Log.Format,
			File:   raw.Log.File,
		},
	}

	cfg.Firebase, cfg.CredentialSource = resolveCredentials(raw.Firebase)
	return cfg, nil
}

// resolveCredentials picks the first credential source that supplied anything:
// the base64 environment variable, then the settings (environment over file),
// then the OS keyring.
func resolveCredentials(section firebaseSection) (*model.FirebaseCredentials, string) {
	if encoded := strings.TrimSpace(os.Getenv(EnvCredentialsBase64)); encoded != "" {
		creds, err := decodeBase64Credentials(encoded)
		if err == nil {
			return &creds, SourceBase64
		}
		slog.Warn("ignoring unreadable base64 firebase credentials", "variable", EnvCredentialsBase64, "error", err)
	}

	if creds := section.toModel(); !creds.IsZero() {
		return &creds, SourceSettings
	}

	creds, err := LoadKeyringCredentials()
	if err != nil {
		if !errors.Is(err, ErrNoKeyringCredentials) {
			slog.Debug("keyring credentials unavailable", "error", err)
		}
		return nil, SourceNone
	}
	return &creds, SourceKeyring
}

func decodeBase64Credentials(encoded string) (model.FirebaseCredentials, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return model.FirebaseCredentials{}, fmt.Errorf("decoding base64: %w", err)
		}
	}
	return ParseServiceAccountJSON(data)
}
