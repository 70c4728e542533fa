package jsonfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/ericfisherdev/wunschliste/internal/domain/model"
)

// recordKeys lists the JSON keys owned by wishRecord, in field order. Any other
// key found in the file is carried through rewrites untouched.
var recordKeys = []string{
	"id", "owner_user", "wish_name", "link", "description", "note", "color", "price",
	"buy_self", "others_can_buy", "images", "responsible_person", "claimed_by",
	"claimed_at", "purchased", "created_at", "updated_at",
}

// naiveLayouts match datetime.isoformat() output without a zone. Such
// timestamps were written in the host's local time.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// timestampKeys hold ISO timestamps. Their stored text is kept when it still
// denotes the same instant.
var timestampKeys = map[string]bool{"claimed_at": true, "created_at": true, "updated_at": true}

// wishRecord is the on-disk representation of a wish.
type wishRecord struct {
	ID                string   `json:"id"`
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
	ResponsiblePerson *string  `json:"responsible_person"`
	ClaimedBy         *string  `json:"claimed_by"`
	ClaimedAt         *string  `json:"claimed_at"`
	Purchased         bool     `json:"purchased"`
	CreatedAt         string   `json:"created_at,omitempty"`
	UpdatedAt         string   `json:"updated_at,omitempty"`

	// raw and order hold the object as read from the file. Nil for records
	// created in this process.
	raw   map[string]json.RawMessage
	order []string
}

// plainRecord has wishRecord's fields without its JSON methods.
type plainRecord wishRecord

// UnmarshalJSON decodes the known fields and remembers the original object.
func (r *wishRecord) UnmarshalJSON(data []byte) error {
	var p plainRecord
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	order, err := objectKeys(data)
	if err != nil {
		return err
	}

	*r = wishRecord(p)
	r.raw = raw
	r.order = order
	return nil
}

// MarshalJSON encodes a new record in field order. A record read from the
// file keeps its key order, its unknown keys, and the stored text of every
// value that did not change, so null stays null and absent keys stay absent.
func (r wishRecord) MarshalJSON() ([]byte, error) {
	current, err := marshalNoEscape(plainRecord(r))
	if err != nil {
		return nil, err
	}
	if r.raw == nil {
		return current, nil
	}

	var fresh map[string]json.RawMessage
	if err := json.Unmarshal(current, &fresh); err != nil {
		return nil, err
	}

	var out objectWriter
	seen := make(map[string]bool, len(r.order))
	for _, k := range r.order {
		seen[k] = true
		old := r.raw[k]
		if !isRecordKey(k) {
			out.add(k, old)
			continue
		}
		nv, ok := fresh[k]
		switch {
		case sameValue(k, old, nv):
			out.add(k, old)
		case ok:
			out.add(k, nv)
		}
	}
	for _, k := range recordKeys {
		if seen[k] {
			continue
		}
		if nv, ok := fresh[k]; ok && !isEmptyValue(nv) {
			out.add(k, nv)
		}
	}
	return out.bytes()
}

// objectWriter builds a JSON object with keys in insertion order.
type objectWriter struct {
	buf bytes.Buffer
	n   int
}

func (w *objectWriter) add(key string, value json.RawMessage) {
	if w.n == 0 {
		w.buf.WriteByte('{')
	} else {
		w.buf.WriteByte(',')
	}
	k, _ := marshalNoEscape(key)
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(value)
	w.n++
}

func (w *objectWriter) bytes() ([]byte, error) {
	if w.n == 0 {
		return []byte("{}"), nil
	}
	w.buf.WriteByte('}')
	return w.buf.Bytes(), nil
}

// objectKeys returns the top-level keys of a JSON object in document order,
// without duplicates.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var keys []string
	seen := map[string]bool{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func isRecordKey(k string) bool {
	return slices.Contains(recordKeys, k)
}

// sameValue reports whether two encodings of key k mean the same thing. A
// missing value, null and the type's zero value are all equivalent.
func sameValue(k string, a, b json.RawMessage) bool {
	if timestampKeys[k] {
		sa, sb := decodeString(a), decodeString(b)
		if sa == sb {
			return true
		}
		ta, okA := parseTimestamp(sa)
		tb, okB := parseTimestamp(sb)
		return okA && okB && ta.Equal(tb)
	}

	va, errA := decodeAny(a)
	vb, errB := decodeAny(b)
	if errA != nil || errB != nil {
		return false
	}
	if isZero(va) && isZero(vb) {
		return true
	}
	return reflect.DeepEqual(va, vb)
}

func isEmptyValue(v json.RawMessage) bool {
	x, err := decodeAny(v)
	return err == nil && isZero(x)
}

func decodeAny(v json.RawMessage) (any, error) {
	if len(v) == 0 {
		return nil, nil
	}
	var x any
	err := json.Unmarshal(v, &x)
	return x, err
}

func decodeString(v json.RawMessage) string {
	var s string
	if len(v) > 0 {
		_ = json.Unmarshal(v, &s)
	}
	return s
}

func isZero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case float64:
		return x == 0
	case bool:
		return !x
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

// marshalNoEscape encodes v without HTML escaping so umlauts and markup are
// stored verbatim.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// toModel converts a record into the domain type. Unparsable timestamps are
// treated as absent rather than failing the whole file.
func (r wishRecord) toModel() model.Wish {
	w := model.Wish{
		ID:           r.ID,
		Owner:        r.Owner,
		Name:         r.Name,
		Link:         r.Link,
		Description:  r.Description,
		Note:         r.Note,
		Color:        r.Color,
		Price:        r.Price,
		BuySelf:      r.BuySelf,
		OthersCanBuy: r.OthersCanBuy,
		Images:       append([]string(nil), r.Images...),
		Purchased:    r.Purchased,
	}
	if w.Images == nil {
		w.Images = []string{}
	}
	if r.ResponsiblePerson != nil {
		w.ResponsiblePerson = *r.ResponsiblePerson
	}
	if r.ClaimedBy != nil {
		w.ClaimedBy = *r.ClaimedBy
	}
	if r.ClaimedAt != nil {
		if t, ok := parseTimestamp(*r.ClaimedAt); ok {
			w.ClaimedAt = &t
		}
	}
	if t, ok := parseTimestamp(r.CreatedAt); ok {
		w.CreatedAt = t
	}
	if t, ok := parseTimestamp(r.UpdatedAt); ok {
		w.UpdatedAt = t
	}
	return w
}

// fromModel builds the record for w on top of prev, so that extra keys and
// unparsable claim timestamps of an existing record survive an update.
func fromModel(w model.Wish, prev *wishRecord) wishRecord {
	var r wishRecord
	if prev != nil {
		r = *prev
	}

	r.ID = w.ID
	r.Owner = w.Owner
	r.Name = w.Name
	r.Link = w.Link
	r.Description = w.Description
	r.Note = w.Note
	r.Color = w.Color
	r.Price = w.Price
	r.BuySelf = w.BuySelf
	r.OthersCanBuy = w.OthersCanBuy
	r.Images = append([]string{}, w.Images...)
	r.Purchased = w.Purchased
	r.ResponsiblePerson = optionalString(w.ResponsiblePerson)
	r.ClaimedBy = optionalString(w.ClaimedBy)
	r.CreatedAt = formatTimestamp(w.CreatedAt)
	r.UpdatedAt = formatTimestamp(w.UpdatedAt)

	switch {
	case w.ClaimedAt != nil:
		s := w.ClaimedAt.Format(time.RFC3339Nano)
		r.ClaimedAt = &s
	case prev != nil && prev.ClaimedAt != nil && w.ClaimedBy != "":
		if _, ok := parseTimestamp(*prev.ClaimedAt); ok {
			r.ClaimedAt = nil
		}
	default:
		r.ClaimedAt = nil
	}

	return r
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
