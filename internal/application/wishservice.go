// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/wunschliste/internal/domain/model"
	"github.com/ericfisherdev/wunschliste/internal/domain/port/driven"
)

// ErrInvalidWish indicates that a wish input failed validation.
var ErrInvalidWish = errors.New("invalid wish")

// SelectionReporter exposes the current storage selection.
type SelectionReporter interface {
	Selection() model.Selection
}

// WishInput carries the user-editable fields of a wish.
type WishInput struct {
	Owner             string
	Name              string
	Link              string
	Description       string
	Note              string
	Color             string
	Price             float64
	BuySelf           bool
	OthersCanBuy      bool
	Images            []string
	ResponsiblePerson string
}

// WishService validates wish input and persists it through the selected store.
// It never knows which backend is active.
type WishService struct {
	store    driven.WishStore
	selected SelectionReporter
	now      func() time.Time
}

// NewWishService creates a new WishService with the required dependencies.
func NewWishService(store driven.WishStore, selected SelectionReporter) *WishService {
	return &WishService{
		store:    store,
		selected: selected,
		now:      time.Now,
	}
}

// List returns all wishes, or only those of owner when owner is not empty.
func (s *WishService) List(ctx context.Context, owner string) ([]model.Wish, error) {
	wishes, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	owner = strings.TrimSpace(owner)
	if owner == "" {
		return wishes, nil
	}

	filtered := make([]model.Wish, 0, len(wishes))
	for _, w := range wishes {
		if w.Owner == owner {
			filtered = append(filtered, w)
		}
	}
	return filtered, nil
}

// Get returns the wish with the given ID or driven.ErrWishNotFound.
func (s *WishService) Get(ctx context.Context, id string) (*model.Wish, error) {
	w, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("wish %q: %w", id, driven.ErrWishNotFound)
	}
	return w, nil
}

// Add validates in and stores it as a new, unclaimed wish with a fresh ID.
func (s *WishService) Add(ctx context.Context, in WishInput) (*model.Wish, error) {
	in = in.trimmed()
	if err := in.validate(true); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	w := model.Wish{
		ID:        uuid.NewString(),
		Owner:     in.Owner,
		CreatedAt: now,
	}
	in.applyTo(&w, now)

	if err := s.store.Add(ctx, w); err != nil {
		return nil, err
	}

	slog.Info("wish added", "id", w.ID, "owner", w.Owner, "backend", s.store.Backend())
	return &w, nil
}

// Update replaces the editable fields of an existing wish. Owner, claim and
// purchase state and the creation time are kept. Images are kept when in has
// none.
func (s *WishService) Update(ctx context.Context, id string, in WishInput) (*model.Wish, error) {
	in = in.trimmed()
	if err := in.validate(false); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	w := *existing
	in.applyTo(&w, s.now().UTC())

	if err := s.store.Update(ctx, w); err != nil {
		return nil, err
	}

	slog.Info("wish updated", "id", w.ID, "owner", w.Owner)
	return &w, nil
}

// Remove deletes the wish with the given ID.
func (s *WishService) Remove(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	slog.Info("wish removed", "id", id)
	return nil
}

// Status reports which backend serves the wishes and why.
func (s *WishService) Status() model.Selection {
	return s.selected.Selection()
}

func (in WishInput) trimmed() WishInput {
	in.Owner = strings.TrimSpace(in.Owner)
	in.Name = strings.TrimSpace(in.Name)
	in.Link = strings.TrimSpace(in.Link)
	in.Description = strings.TrimSpace(in.Description)
	in.Note = strings.TrimSpace(in.Note)
	in.Color = strings.TrimSpace(in.Color)
	in.ResponsiblePerson = strings.TrimSpace(in.ResponsiblePerson)

	images := make([]string, 0, len(in.Images))
	for _, img := range in.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	in.Images = images
	return in
}

// validate checks the input. Owner and images for gifts are only required
// when the wish is created.
func (in WishInput) validate(creating bool) error {
	if creating && in.Owner == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidWish)
	}
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidWish)
	}
	if in.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidWish)
	}
	if in.Price < 0 || math.IsNaN(in.Price) || math.IsInf(in.Price, 0) {
		return fmt.Errorf("%w: price must be a non-negative number", ErrInvalidWish)
	}
	if in.Link != "" {
		u, err := url.Parse(in.Link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: link must be an absolute http(s) URL", ErrInvalidWish)
		}
	}
	if creating && in.OthersCanBuy && len(in.Images) == 0 {
		return fmt.Errorf("%w: images are required when others may buy the wish", ErrInvalidWish)
	}
	return nil
}

func (in WishInput) applyTo(w *model.Wish, now time.Time) {
	w.Name = in.Name
	w.Link = in.Link
	w.Description = in.Description
	w.Note = in.Note
	w.Color = in.Color
	w.Price = in.Price
	w.BuySelf = in.BuySelf
	w.OthersCanBuy = in.OthersCanBuy
	w.ResponsiblePerson = in.ResponsiblePerson
	if len(in.Images) > 0 || w.Images == nil {
		w.Images = in.Images
	}
	w.UpdatedAt = now
}
