// Package driven defines secondary port interfaces for storage adapters.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/wunschliste/internal/domain/model"
)

// Sentinel errors returned by WishStore implementations.
var (
	// ErrWishNotFound indicates the requested wish does not exist.
	ErrWishNotFound = errors.New("wish not found")

	// ErrWishAlreadyExists indicates a wish with the same ID already exists.
	ErrWishAlreadyExists = errors.New("wish already exists")

	// ErrRemoteUnauthorized indicates the remote backend rejected the supplied
	// credentials. Retrying with the same credentials cannot succeed.
	ErrRemoteUnauthorized = errors.New("remote store rejected credentials")

	// ErrStoreCorrupt indicates the persisted data cannot be read as a wishlist.
	// Implementations must not overwrite corrupt data.
	ErrStoreCorrupt = errors.New("wishlist data is corrupt")
)

// WishStore defines the driven port for wishlist persistence. Exactly one
// implementation is active per process; callers never know which one.
// Get returns (nil, nil) if the wish does not exist.
// Add returns ErrWishAlreadyExists if the ID is taken.
// Update and Remove return ErrWishNotFound if the wish does not exist.
type WishStore interface {
	List(ctx context.Context) ([]model.Wish, error)
	Get(ctx context.Context, id string) (*model.Wish, error)
	Add(ctx context.Context, wish model.Wish) error
	Update(ctx context.Context, wish model.Wish) error
	Remove(ctx context.Context, id string) error

	// Backend reports which storage implementation serves this store.
	Backend() model.Backend

	// Close releases connections or file handles held by the store.
	Close() error
}
