package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/wunschliste/internal/domain/model"
	"github.com/ericfisherdev/wunschliste/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.WishStore = (*StoreProvider)(nil)

// StoreProvider holds the selected WishStore behind a mutex and delegates every
// port call to it, so the store can be swapped at runtime without the rest of
// the process noticing.
type StoreProvider struct {
	mu        sync.RWMutex
	store     driven.WishStore
	selection model.Selection

	selector *StoreSelector
	creds    *model.FirebaseCredentials
}

// NewStoreProvider creates a provider around the initially selected store.
// selector and creds are only used by Recheck and may be nil.
func NewStoreProvider(store driven.WishStore, selection model.Selection, selector *StoreSelector, creds *model.FirebaseCredentials) *StoreProvider {
	return &StoreProvider{
		store:     store,
		selection: selection,
		selector:  selector,
		creds:     creds,
	}
}

// Current returns the current store.
func (p *StoreProvider) Current() driven.WishStore {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store
}

// Selection returns the decision behind the current store.
func (p *StoreProvider) Selection() model.Selection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selection
}

// Replace swaps in a new store and closes the previous one.
func (p *StoreProvider) Replace(store driven.WishStore, selection model.Selection) {
	p.mu.Lock()
	old := p.store
	p.store = store
	p.selection = selection
	p.mu.Unlock()

	if old != nil && old != store {
		if err := old.Close(); err != nil {
			slog.Error("failed to close replaced store", "backend", old.Backend(), "error", err)
		}
	}
}

// Recheck tries the remote store once while the local fallback is active and
// swaps it in on success. It reports whether a switch happened.
func (p *StoreProvider) Recheck(ctx context.Context) bool {
	if p.Selection().Backend != model.BackendLocalFile || p.selector == nil || p.creds == nil {
		return false
	}

	store, err := p.selector.TryRemote(ctx, p.creds)
	if err != nil {
		slog.Debug("remote store still unavailable", "error", err)
		return false
	}

	p.Replace(store, model.Selection{
		Backend:    store.Backend(),
		SelectedAt: time.Now(),
	})
	slog.Info("switched to remote storage backend", "backend", store.Backend())
	return true
}

// Start re-checks the remote store on the given interval until the context is
// canceled or the remote store has been adopted. A non-positive interval keeps
// the initial selection for the lifetime of the process. Start blocks.
func (p *StoreProvider) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("store re-check stopped")
			return
		case <-ticker.C:
			if p.Recheck(ctx) {
				return
			}
		}
	}
}

// List delegates to the current store.
func (p *StoreProvider) List(ctx context.Context) ([]model.Wish, error) {
	return p.Current().List(ctx)
}

// Get delegates to the current store.
func (p *StoreProvider) Get(ctx context.Context, id string) (*model.Wish, error) {
	return p.Current().Get(ctx, id)
}

// Add delegates to the current store.
func (p *StoreProvider) Add(ctx context.Context, wish model.Wish) error {
	return p.Current().Add(ctx, wish)
}

// Update delegates to the current store.
func (p *StoreProvider) Update(ctx context.Context, wish model.Wish) error {
	return p.Current().Update(ctx, wish)
}

// Remove delegates to the current store.
func (p *StoreProvider) Remove(ctx context.Context, id string) error {
	return p.Current().Remove(ctx, id)
}

// Backend reports the backend of the current store.
func (p *StoreProvider) Backend() model.Backend {
	return p.Current().Backend()
}

// Close closes the current store.
func (p *StoreProvider) Close() error {
	return p.Current().Close()
}
