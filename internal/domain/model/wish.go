package model

import "time"

// Wish is a single wishlist entry. Field semantics follow the records stored in
// wunschliste.json so that existing files and remote documents stay compatible.
type Wish struct {
	ID                string
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
	ClaimedBy         string     // Empty when nobody has claimed the wish.
	ClaimedAt         *time.Time // Nil when unclaimed.
	Purchased         bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsClaimed returns true if another user has taken over buying the wish.
func (w Wish) IsClaimed() bool {
	return w.ClaimedBy != ""
}
