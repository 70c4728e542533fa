package firestore

import (
	"strings"
	"time"

	"github.com/ericfisherdev/wunschliste/internal/domain/model"
)

// Document field names, shared with the local file format.
const (
	fieldOwner             = "owner_user"
	fieldName              = "wish_name"
	fieldLink              = "link"
	fieldDescription       = "description"
	fieldNote              = "note"
	fieldColor             = "color"
	fieldPrice             = "price"
	fieldBuySelf           = "buy_self"
	fieldOthersCanBuy      = "others_can_buy"
	fieldImages            = "images"
	fieldResponsiblePerson = "responsible_person"
	fieldClaimedBy         = "claimed_by"
	fieldClaimedAt         = "claimed_at"
	fieldPurchased         = "purchased"
	fieldCreatedAt         = "created_at"
	fieldUpdatedAt         = "updated_at"
)

// Older writers stored timestamps as naive ISO strings.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// wishToData builds the document for w. Optional strings and the claim time
// are written as null when unset. The wish ID is the document ID and is also
// stored as a field so exported documents match the local file.
func wishToData(w model.Wish) map[string]any {
	images := w.Images
	if images == nil {
		images = []string{}
	}

	data := map[string]any{
		"id":                   w.ID,
		fieldOwner:             w.Owner,
		fieldName:              w.Name,
		fieldLink:              w.Link,
		fieldDescription:       w.Description,
		fieldNote:              w.Note,
		fieldColor:             w.Color,
		fieldPrice:             w.Price,
		fieldBuySelf:           w.BuySelf,
		fieldOthersCanBuy:      w.OthersCanBuy,
		fieldImages:            images,
		fieldResponsiblePerson: nullable(w.ResponsiblePerson),
		fieldClaimedBy:         nullable(w.ClaimedBy),
		fieldClaimedAt:         nil,
		fieldPurchased:         w.Purchased,
		fieldCreatedAt:         nil,
		fieldUpdatedAt:         nil,
	}
	if w.ClaimedAt != nil {
		data[fieldClaimedAt] = w.ClaimedAt.UTC()
	}
	if !w.CreatedAt.IsZero() {
		data[fieldCreatedAt] = w.CreatedAt.UTC()
	}
	if !w.UpdatedAt.IsZero() {
		data[fieldUpdatedAt] = w.UpdatedAt.UTC()
	}
	return data
}

// wishFromData converts a document into a wish. Values of an unexpected type
// are treated as absent.
func wishFromData(id string, data map[string]any) model.Wish {
	w := model.Wish{
		ID:                id,
		Owner:             asString(data[fieldOwner]),
		Name:              asString(data[fieldName]),
		Link:              asString(data[fieldLink]),
		Description:       asString(data[fieldDescription]),
		Note:              asString(data[fieldNote]),
		Color:             asString(data[fieldColor]),
		Price:             asFloat(data[fieldPrice]),
		BuySelf:           asBool(data[fieldBuySelf]),
		OthersCanBuy:      asBool(data[fieldOthersCanBuy]),
		Images:            asStrings(data[fieldImages]),
		ResponsiblePerson: asString(data[fieldResponsiblePerson]),
		ClaimedBy:         asString(data[fieldClaimedBy]),
		Purchased:         asBool(data[fieldPurchased]),
	}
	if t, ok := asTime(data[fieldClaimedAt]); ok {
		w.ClaimedAt = &t
	}
	if t, ok := asTime(data[fieldCreatedAt]); ok {
		w.CreatedAt = t
	}
	if t, ok := asTime(data[fieldUpdatedAt]); ok {
		w.UpdatedAt = t
	}
	return w
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func asStrings(v any) []string {
	out := []string{}
	switch items := v.(type) {
	case []string:
		out = append(out, items...)
	case []any:
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		t = strings.TrimSpace(t)
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
