// Package firestore implements the WishStore port on Google Cloud Firestore,
// reached through the Firebase Admin SDK with service-account credentials.
package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	gcfs "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ericfisherdev/wunschliste/internal/domain/model"
	"github.com/ericfisherdev/wunschliste/internal/domain/port/driven"
)

// DefaultCollection holds one document per wish.
const DefaultCollection = "wunschliste"

const defaultConnectTimeout = 10 * time.Second

// Compile-time interface satisfaction check.
var _ driven.WishStore = (*Store)(nil)

// Options configures the remote store. Zero values select the defaults.
type Options struct {
	Collection     string
	ConnectTimeout time.Duration
}

// Store implements driven.WishStore on a Firestore collection.
type Store struct {
	client     *gcfs.Client
	collection string
}

// Open validates creds, connects to Firestore and probes the collection with
// a single read bounded by opts.ConnectTimeout. Nothing is written. On any
// failure the client is closed and the error returned.
func Open(ctx context.Context, creds model.FirebaseCredentials, opts Options) (*Store, error) {
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}

	creds = creds.Normalize()
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("validating firebase credentials: %w", err)
	}

	saJSON, err := serviceAccountJSON(creds)
	if err != nil {
		return nil, fmt.Errorf("encoding service account: %w", err)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: creds.ProjectID}, option.WithCredentialsJSON(saJSON))
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	s := &Store{client: client, collection: opts.Collection}

	if err := s.probe(ctx, opts.ConnectTimeout); err != nil {
		if cerr := client.Close(); cerr != nil {
			slog.Debug("closing firestore client after failed probe", "error", cerr)
		}
		return nil, err
	}

	slog.Debug("firestore reachable", "project_id", creds.ProjectID, "collection", opts.Collection)
	return s, nil
}

// probe reads at most one document to prove the credentials and network path.
func (s *Store) probe(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	iter := s.client.Collection(s.collection).Limit(1).Documents(ctx)
	defer iter.Stop()

	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("probing collection %s: %w", s.collection, mapError(err))
	}
	return nil
}

// Backend reports model.BackendFirestore.
func (s *Store) Backend() model.Backend {
	return model.BackendFirestore
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// List returns all wishes ordered by creation time, then ID. Wishes without a
// creation time sort first.
func (s *Store) List(ctx context.Context) ([]model.Wish, error) {
	iter := s.client.Collection(s.collection).Documents(ctx)
	defer iter.Stop()

	wishes := []model.Wish{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing wishes: %w", mapError(err))
		}
		wishes = append(wishes, wishFromData(snap.Ref.ID, snap.Data()))
	}

	sort.SliceStable(wishes, func(i, j int) bool {
		a, b := wishes[i], wishes[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return wishes, nil
}

// Get returns the wish with the given ID, or (nil, nil) if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*model.Wish, error) {
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting wish %q: %w", id, mapError(err))
	}

	w := wishFromData(snap.Ref.ID, snap.Data())
	return &w, nil
}

// Add creates the wish document. Returns driven.ErrWishAlreadyExists if the ID
// is taken.
func (s *Store) Add(ctx context.Context, wish model.Wish) error {
	ref := s.client.Collection(s.collection).Doc(wish.ID)
	if _, err := ref.Create(ctx, wishToData(wish)); err != nil {
		return fmt.Errorf("adding wish %q: %w", wish.ID, mapError(err))
	}
	return nil
}

// Update overwrites the known fields of an existing wish document inside a
// transaction. Fields unknown to this version are kept. Returns
// driven.ErrWishNotFound if the document does not exist.
func (s *Store) Update(ctx context.Context, wish model.Wish) error {
	ref := s.client.Collection(s.collection).Doc(wish.ID)

	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *gcfs.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, wishToData(wish), gcfs.MergeAll)
	})
	if err != nil {
		return fmt.Errorf("updating wish %q: %w", wish.ID, mapError(err))
	}
	return nil
}

// Remove deletes the wish document. Returns driven.ErrWishNotFound if it does
// not exist.
func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.client.Collection(s.collection).Doc(id).Delete(ctx, gcfs.Exists); err != nil {
		return fmt.Errorf("removing wish %q: %w", id, mapError(err))
	}
	return nil
}

// mapError translates gRPC status codes into port sentinels. Other errors are
// returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var sentinel error
	switch status.Code(err) {
	case codes.NotFound:
		sentinel = driven.ErrWishNotFound
	case codes.AlreadyExists:
		sentinel = driven.ErrWishAlreadyExists
	case codes.Unauthenticated, codes.PermissionDenied:
		sentinel = driven.ErrRemoteUnauthorized
	default:
		return err
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

// serviceAccount is the JSON document Google client libraries accept as
// service-account credentials.
type serviceAccount struct {
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

func serviceAccountJSON(c model.FirebaseCredentials) ([]byte, error) {
	return json.Marshal(serviceAccount{
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
