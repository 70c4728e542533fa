package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ericfisherdev/wunschliste/internal/domain/model"
	"github.com/ericfisherdev/wunschliste/internal/domain/port/driven"
)

// Fallback reasons recorded in model.Selection.
const (
	ReasonNoCredentials = "no firebase credentials configured"
)

// RemoteOpener connects to the remote store with the given credentials.
type RemoteOpener func(ctx context.Context, creds model.FirebaseCredentials) (driven.WishStore, error)

// LocalOpener opens the local file store.
type LocalOpener func() (driven.WishStore, error)

// RetryPolicy bounds the remote connection attempts made during selection.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

// StoreSelector decides once, at startup, which store backs the process:
// the remote store when credentials are usable and it is reachable, the
// local file otherwise.
type StoreSelector struct {
	openRemote RemoteOpener
	openLocal  LocalOpener
	retry      RetryPolicy
}

// NewStoreSelector creates a selector. openRemote may be nil, in which case the
// local store is always chosen.
func NewStoreSelector(openRemote RemoteOpener, openLocal LocalOpener, retry RetryPolicy) *StoreSelector {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = 500 * time.Millisecond
	}
	return &StoreSelector{
		openRemote: openRemote,
		openLocal:  openLocal,
		retry:      retry,
	}
}

// Select returns exactly one usable store and a description of the decision.
// Missing, invalid or rejected credentials and an unreachable remote all fall
// back to the local store and are not errors. Select fails only when the local
// store cannot be opened either; the error then carries both causes.
func (s *StoreSelector) Select(ctx context.Context, creds *model.FirebaseCredentials) (driven.WishStore, model.Selection, error) {
	remote, remoteErr := s.TryRemote(ctx, creds)
	if remoteErr == nil {
		slog.Info("storage backend selected", "backend", remote.Backend())
		return remote, model.Selection{
			Backend:    remote.Backend(),
			SelectedAt: time.Now(),
		}, nil
	}

	local, localErr := s.openLocal()
	if localErr != nil {
		return nil, model.Selection{}, fmt.Errorf("no usable storage backend: %w", errors.Join(remoteErr, localErr))
	}

	reason := remoteErr.Error()
	slog.Warn("using local storage fallback", "backend", local.Backend(), "reason", reason)

	return local, model.Selection{
		Backend:        local.Backend(),
		FallbackReason: reason,
		SelectedAt:     time.Now(),
	}, nil
}

// TryRemote validates creds and opens the remote store, retrying transient
// failures with exponential backoff. Credential problems and rejections by the
// remote are not retried.
func (s *StoreSelector) TryRemote(ctx context.Context, creds *model.FirebaseCredentials) (driven.WishStore, error) {
	if creds == nil || creds.IsZero() {
		return nil, errors.New(ReasonNoCredentials)
	}
	if s.openRemote == nil {
		return nil, errors.New("remote store not available")
	}

	normalized := creds.Normalize()
	if err := normalized.Validate(); err != nil {
		return nil, fmt.Errorf("invalid firebase credentials: %w", err)
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.retry.InitialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(s.retry.MaxAttempts-1)), ctx)

	attempt := 0
	op := func() (driven.WishStore, error) {
		attempt++
		store, err := s.openRemote(ctx, normalized)
		if err == nil {
			return store, nil
		}
		if isPermanent(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	notify := func(err error, wait time.Duration) {
		slog.Debug("remote store not reachable, retrying", "attempt", attempt, "wait", wait, "error", err)
	}

	store, err := backoff.RetryNotifyWithData(op, policy, notify)
	if err != nil {
		return nil, fmt.Errorf("remote store unavailable after %d attempt(s): %w", attempt, err)
	}
	return store, nil
}

func isPermanent(err error) bool {
	return errors.Is(err, driven.ErrRemoteUnauthorized) ||
		errors.Is(err, model.ErrMissingCredentialField) ||
		errors.Is(err, model.ErrMalformedPrivateKey)
}
