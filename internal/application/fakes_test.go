package application_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/wunschliste/internal/domain/model"
	"github.com/ericfisherdev/wunschliste/internal/domain/port/driven"
)

// memoryStore is an in-memory driven.WishStore.
type memoryStore struct {
	mu      sync.Mutex
	backend model.Backend
	wishes  []model.Wish
	closed  bool
	listErr error
}

func newMemoryStore(backend model.Backend) *memoryStore {
	return &memoryStore{backend: backend}
}

func (m *memoryStore) List(_ context.Context) ([]model.Wish, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]model.Wish{}, m.wishes...), nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*model.Wish, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.wishes {
		if w.ID == id {
			return &w, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) Add(_ context.Context, wish model.Wish) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.wishes {
		if w.ID == wish.ID {
			return fmt.Errorf("add: %w", driven.ErrWishAlreadyExists)
		}
	}
	m.wishes = append(m.wishes, wish)
	return nil
}

func (m *memoryStore) Update(_ context.Context, wish model.Wish) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.wishes {
		if w.ID == wish.ID {
			m.wishes[i] = wish
			return nil
		}
	}
	return fmt.Errorf("update: %w", driven.ErrWishNotFound)
}

func (m *memoryStore) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.wishes {
		if w.ID == id {
			m.wishes = append(m.wishes[:i], m.wishes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove: %w", driven.ErrWishNotFound)
}

func (m *memoryStore) Backend() model.Backend {
	return m.backend
}

func (m *memoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memoryStore) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// staticSelection implements application.SelectionReporter.
type staticSelection model.Selection

func (s staticSelection) Selection() model.Selection {
	return model.Selection(s)
}

func validCredentials(t *testing.T) *model.FirebaseCredentials {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	return &model.FirebaseCredentials{
		ProjectID:   "wunschliste-test",
		PrivateKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		ClientEmail: "svc@wunschliste-test.iam.gserviceaccount.com",
	}
}
