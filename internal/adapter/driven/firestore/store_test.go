package firestore

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ericfisherdev/wunschliste/internal/domain/model"
	"github.com/ericfisherdev/wunschliste/internal/domain/port/driven"
)

func testCredentials(t *testing.T) model.FirebaseCredentials {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	return model.FirebaseCredentials{
		ProjectID:   "wunschliste-test",
		PrivateKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		ClientEmail: "svc@wunschliste-test.iam.gserviceaccount.com",
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"not found", status.Error(codes.NotFound, "no doc"), driven.ErrWishNotFound},
		{"already exists", status.Error(codes.AlreadyExists, "dup"), driven.ErrWishAlreadyExists},
		{"unauthenticated", status.Error(codes.Unauthenticated, "bad token"), driven.ErrRemoteUnauthorized},
		{"permission denied", status.Error(codes.PermissionDenied, "rules"), driven.ErrRemoteUnauthorized},
		{"wrapped not found", fmt.Errorf("tx: %w", status.Error(codes.NotFound, "no doc")), driven.ErrWishNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tc.in), tc.want)
		})
	}
}

func TestMapError_PassesThroughOtherErrors(t *testing.T) {
	unavailable := status.Error(codes.Unavailable, "dns")
	assert.Same(t, unavailable, mapError(unavailable))

	plain := errors.New("boom")
	assert.Same(t, plain, mapError(plain))

	assert.NoError(t, mapError(nil))
}

func TestServiceAccountJSON(t *testing.T) {
	creds := testCredentials(t).Normalize()
	creds.PrivateKeyID = "abc123"

	data, err := serviceAccountJSON(creds)
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "service_account", got["type"])
	assert.Equal(t, "wunschliste-test", got["project_id"])
	assert.Equal(t, "abc123", got["private_key_id"])
	assert.Equal(t, creds.PrivateKey, got["private_key"])
	assert.Equal(t, creds.ClientEmail, got["client_email"])
	assert.Equal(t, model.DefaultTokenURI, got["token_uri"])
	assert.NotContains(t, got, "client_id", "empty optional fields are omitted")
}

func TestOpen_RejectsInvalidCredentialsWithoutConnecting(t *testing.T) {
	tests := []struct {
		name  string
		creds model.FirebaseCredentials
		want  error
	}{
		{"empty", model.FirebaseCredentials{}, model.ErrMissingCredentialField},
		{
			"missing email",
			model.FirebaseCredentials{ProjectID: "p", PrivateKey: testCredentials(t).PrivateKey},
			model.ErrMissingCredentialField,
		},
		{
			"garbage key",
			model.FirebaseCredentials{ProjectID: "p", PrivateKey: "not a key", ClientEmail: "a@b.c"},
			model.ErrMalformedPrivateKey,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Open(context.Background(), tc.creds, Options{})
			assert.Nil(t, s)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestWishDataRoundTrip(t *testing.T) {
	claimed := time.Date(2026, 12, 2, 8, 15, 0, 0, time.UTC)
	w := model.Wish{
		ID:           "w1",
		Owner:        "Gudrun",
		Name:         "Schal",
		Description:  "Warm",
		Price:        19.5,
		OthersCanBuy: true,
		Images:       []string{"a.png"},
		ClaimedBy:    "Lukas",
		ClaimedAt:    &claimed,
		CreatedAt:    claimed.Add(-time.Hour),
		UpdatedAt:    claimed,
	}

	data := wishToData(w)
	assert.Nil(t, data[fieldResponsiblePerson])
	assert.Equal(t, "Lukas", data[fieldClaimedBy])

	got := wishFromData("w1", data)
	assert.Equal(t, w, got)
}

func TestWishFromData_LegacyDocument(t *testing.T) {
	data := map[string]any{
		fieldOwner:             "Pia",
		fieldName:              "Buch",
		fieldPrice:             int64(12),
		fieldImages:            []any{"x.png", 3},
		fieldResponsiblePerson: nil,
		fieldClaimedBy:         nil,
		fieldClaimedAt:         "2024-12-01T18:30:12.123456",
		fieldPurchased:         "no",
	}

	w := wishFromData("doc-1", data)

	assert.Equal(t, "doc-1", w.ID)
	assert.Equal(t, "Pia", w.Owner)
	assert.InDelta(t, 12.0, w.Price, 0.0001)
	assert.Equal(t, []string{"x.png"}, w.Images)
	assert.Empty(t, w.ClaimedBy)
	require.NotNil(t, w.ClaimedAt)
	assert.Equal(t, 18, w.ClaimedAt.Hour())
	assert.False(t, w.Purchased, "wrong type reads as absent")
	assert.True(t, w.CreatedAt.IsZero())
}

// openEmulatorStore connects to the Firestore emulator named by
// FIRESTORE_EMULATOR_HOST, skipping the test when it is not set.
func openEmulatorStore(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	s, err := Open(context.Background(), testCredentials(t), Options{
		Collection:     "wishes-" + uuid.NewString(),
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEmulator_CRUD(t *testing.T) {
	s := openEmulatorStore(t)
	ctx := context.Background()

	assert.Equal(t, model.BackendFirestore, s.Backend())

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := model.Wish{ID: "b", Owner: "Tim", Name: "Rad", Description: "rot", CreatedAt: base, UpdatedAt: base}
	second := model.Wish{ID: "a", Owner: "Tim", Name: "Ball", Description: "blau", CreatedAt: base.Add(time.Minute), UpdatedAt: base}

	require.NoError(t, s.Add(ctx, first))
	require.NoError(t, s.Add(ctx, second))
	require.ErrorIs(t, s.Add(ctx, first), driven.ErrWishAlreadyExists)

	wishes, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, wishes, 2)
	assert.Equal(t, "b", wishes[0].ID, "ordered by created_at")

	first.Note = "mit Klingel"
	require.NoError(t, s.Update(ctx, first))

	got, err := s.Get(ctx, "b")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "mit Klingel", got.Note)

	require.ErrorIs(t, s.Update(ctx, model.Wish{ID: "ghost"}), driven.ErrWishNotFound)

	require.NoError(t, s.Remove(ctx, "b"))
	require.ErrorIs(t, s.Remove(ctx, "b"), driven.ErrWishNotFound)

	got, err = s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, got)
}
