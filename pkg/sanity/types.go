package sanity

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Category is a category document as returned by the categories query.
type Category struct {
	ID    string `json:"_id"`
	Slug  Slug   `json:"slug"`
	Title Text   `json:"title"`
	Order *int   `json:"order,omitempty"`
}

// Product is a product document as returned by the products query.
type Product struct {
	ID          string           `json:"_id"`
	Slug        Slug             `json:"slug"`
	Name        Text             `json:"name"`
	Category    Slug             `json:"category"`
	Subcategory Slug             `json:"subcategory"`
	Price       *decimal.Decimal `json:"price"`
}

// Slug accepts either a plain string or a Sanity slug object {"current": "..."}.
type Slug string

func (s *Slug) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var plain string
		if err := json.Unmarshal(data, &plain); err != nil {
			return err
		}
		*s = Slug(strings.TrimSpace(plain))
		return nil
	}
	var obj struct {
		Current string `json:"current"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*s = Slug(strings.TrimSpace(obj.Current))
	return nil
}

func (s Slug) String() string { return string(s) }

// Text is a display string that may be localized. A plain string is stored
// under the empty locale.
type Text map[string]string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}
	if data[0] == '"' {
		var plain string
		if err := json.Unmarshal(data, &plain); err != nil {
			return err
		}
		*t = Text{"": plain}
		return nil
	}
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Text{}
	for key, value := range raw {
		if str, ok := value.(string); ok && !strings.HasPrefix(key, "_") {
			out[key] = str
		}
	}
	*t = out
	return nil
}

// Resolve picks the text for locale, falling back through the given locales in order.
func (t Text) Resolve(locales ...string) string {
	if plain := strings.TrimSpace(t[""]); plain != "" {
		return plain
	}
	for _, locale := range locales {
		if value := strings.TrimSpace(t[locale]); value != "" {
			return value
		}
	}
	return ""
}
