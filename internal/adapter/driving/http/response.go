package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/wunschliste/internal/application"
	"github.com/ericfisherdev/wunschliste/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// WishRequest is the JSON body for creating or updating a wish. Field names
// follow the stored record.
type WishRequest struct {
	Owner             string   `json:"owner_user"`
	Name              string   `json:"wish_name"`
	Link              string   `json:"link"`
	Description       string   `json:"description"`
	Note              string   `json:"note"`
	Color             string   `json:"color"`
	Price             float64  `json:"price"`
	BuySelf           bool     `json:"buy_self"`
	OthersCanBuy      bool     `json:"others_can_buy"`
	Images            []string `json:"images"`
	ResponsiblePerson string   `json:"responsible_person"`
}

func (r WishRequest) toInput() application.WishInput {
	return application.WishInput{
		Owner:             r.Owner,
		Name:              r.Name,
		Link:              r.Link,
		Description:       r.Description,
		Note:              r.Note,
		Color:             r.Color,
		Price:             r.Price,
		BuySelf:           r.BuySelf,
		OthersCanBuy:      r.OthersCanBuy,
		Images:            r.Images,
		ResponsiblePerson: r.ResponsiblePerson,
	}
}

// WishResponse is the JSON representation of a wish.
type WishResponse struct {
	ID                string   `json:"id"`
	Owner             string   `json:"owner_user"`
	Name              string   `json:"wish_name"`
	Link              string   `json:"link"`
	Description       string   `json:"description"`
	DescriptionHTML   string   `json:"description_html"`
	Note              string   `json:"note"`
	Color             string   `json:"color"`
	Price             float64  `json:"price"`
	BuySelf           bool     `json:"buy_self"`
	OthersCanBuy      bool     `json:"others_can_buy"`
	Images            []string `json:"images"`
	ResponsiblePerson *string  `json:"responsible_person"`
	ClaimedBy         *string  `json:"claimed_by"`
	ClaimedAt         *string  `json:"claimed_at"`
	Purchased         bool     `json:"purchased"`
	CreatedAt         string   `json:"created_at,omitempty"`
	UpdatedAt         string   `json:"updated_at,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status         string `json:"status"`
	Time           string `json:"time"`
	Backend        string `json:"backend"`
	Fallback       bool   `json:"fallback"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// NewWishResponses converts wishes to their JSON representation. The result is
// never nil.
func NewWishResponses(wishes []model.Wish) []WishResponse {
	resp := make([]WishResponse, 0, len(wishes))
	for _, w := range wishes {
		resp = append(resp, toWishResponse(w))
	}
	return resp
}

// toWishResponse converts a domain Wish to its JSON response representation.
// Empty optional strings become null, as in the stored record.
func toWishResponse(w model.Wish) WishResponse {
	images := w.Images
	if images == nil {
		images = []string{}
	}

	resp := WishResponse{
		ID:                w.ID,
		Owner:             w.Owner,
		Name:              w.Name,
		Link:              w.Link,
		Description:       w.Description,
		DescriptionHTML:   RenderMarkdown(w.Description),
		Note:              w.Note,
		Color:             w.Color,
		Price:             w.Price,
		BuySelf:           w.BuySelf,
		OthersCanBuy:      w.OthersCanBuy,
		Images:            images,
		ResponsiblePerson: optional(w.ResponsiblePerson),
		ClaimedBy:         optional(w.ClaimedBy),
		Purchased:         w.Purchased,
		CreatedAt:         formatTime(w.CreatedAt),
		UpdatedAt:         formatTime(w.UpdatedAt),
	}
	if w.ClaimedAt != nil {
		s := formatTime(*w.ClaimedAt)
		resp.ClaimedAt = &s
	}
	return resp
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
