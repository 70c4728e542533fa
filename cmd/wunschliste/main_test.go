package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/ericfisherdev/wunschliste/internal/config"
)

// isolateEnv blanks every setting that could point the CLI at real
// credentials and keeps the data file inside a temp dir.
func isolateEnv(t *testing.T) string {
	t.Helper()

	for _, key := range config.EnvVars() {
		t.Setenv(key, "")
	}
	keyring.MockInit()

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	t.Setenv("WUNSCHLISTE_DATA_FILE", filepath.Join(dir, "wunschliste.json"))
	t.Setenv("WUNSCHLISTE_LOG_LEVEL", "error")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStatus_FallsBackWithoutCredentials(t *testing.T) {
	dir := isolateEnv(t)

	out, err := execute(t, "status", "--config", filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)

	assert.Contains(t, out, "backend:           local_file")
	assert.Contains(t, out, "fallback reason:   no firebase credentials configured")
	assert.Contains(t, out, "credential source: none")

	data, err := os.ReadFile(filepath.Join(dir, "wunschliste.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestList_PrintsOwnerWishes(t *testing.T) {
	dir := isolateEnv(t)

	data := `[
    {"id": "a", "owner_user": "anna", "wish_name": "Buch", "description": "Krimi", "price": 12.5},
    {"id": "b", "owner_user": "ben", "wish_name": "Ball", "description": "Rot", "price": 5}
]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wunschliste.json"), []byte(data), 0o600))

	out, err := execute(t, "list", "--owner", "anna", "--config", filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)

	var wishes []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &wishes))
	require.Len(t, wishes, 1)
	assert.Equal(t, "Buch", wishes[0]["wish_name"])
	assert.Nil(t, wishes[0]["claimed_by"])
}

func TestCredentials_SetAndDelete(t *testing.T) {
	dir := isolateEnv(t)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	sa, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"project_id":   "wunschliste-test",
		"private_key":  string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email": "svc@wunschliste-test.iam.gserviceaccount.com",
	})
	require.NoError(t, err)
	file := filepath.Join(dir, "sa.json")
	require.NoError(t, os.WriteFile(file, sa, 0o600))

	out, err := execute(t, "credentials", "set", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, `"wunschliste-test"`)

	stored, err := config.LoadKeyringCredentials()
	require.NoError(t, err)
	assert.Equal(t, "svc@wunschliste-test.iam.gserviceaccount.com", stored.ClientEmail)

	_, err = execute(t, "credentials", "delete")
	require.NoError(t, err)

	_, err = config.LoadKeyringCredentials()
	assert.ErrorIs(t, err, config.ErrNoKeyringCredentials)
}

func TestCredentials_SetRejectsIncompleteKey(t *testing.T) {
	dir := isolateEnv(t)

	file := filepath.Join(dir, "sa.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"project_id": "p"}`), 0o600))

	_, err := execute(t, "credentials", "set", "--file", file)
	require.Error(t, err)

	_, err = config.LoadKeyringCredentials()
	assert.ErrorIs(t, err, config.ErrNoKeyringCredentials)
}
