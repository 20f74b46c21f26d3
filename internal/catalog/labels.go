package catalog

import "strings"

// OtherLabel is shown for the uncategorized bucket of a grouped category.
const OtherLabel = "Other"

// Labels maps lower-case category and subcategory slugs to display labels.
type Labels map[string]string

// DefaultLabels is the built-in label table used when no override is configured.
func DefaultLabels() Labels {
	return Labels{
		"sets":          "📦 Sets",
		"rolls":         "🍣 Rolls",
		"sushi":         "🍣 Sushi",
		"tempura":       "🍤 Tempura",
		"ramen":         "🍜 Ramen",
		"wok":           "🥢 WOK",
		"burgers":       "🍔 Burgers",
		"mochi":         "🍡 Mochi",
		"pasta-risotto": "🍝 Pasta & risotto",
		"hot-dishes":    "🍗 Hot dishes",
		"pizza":         "🍕 Pizza",
		"utensils":      "🍴 Utensils",
		"sushi-burger":  "🍔 Sushi burger",
		"philadelphia":  "🧀 Philadelphia",
		"california":    "🥑 California",
		"maki":          "🍙 Maki",
		"futo-maki":     "🍣 Futo maki",
		"nigiri":        "🍥 Nigiri",
		"baked-rolls":   "🔥 Baked rolls",
	}
}

// Merge returns a copy of l with overrides applied on top.
func (l Labels) Merge(overrides map[string]string) Labels {
	out := make(Labels, len(l)+len(overrides))
	for k, v := range l {
		out[k] = v
	}
	for k, v := range overrides {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" || strings.TrimSpace(v) == "" {
			continue
		}
		out[key] = strings.TrimSpace(v)
	}
	return out
}

// Lookup returns the label for slug, or slug unchanged.
func (l Labels) Lookup(slug string) string {
	key := strings.ToLower(strings.TrimSpace(slug))
	if key == "" {
		return slug
	}
	if label, ok := l[key]; ok {
		return label
	}
	return slug
}

// Category prefers the label supplied by the feed.
func (l Labels) Category(slug, feedLabel string) string {
	if trimmed := strings.TrimSpace(feedLabel); trimmed != "" {
		return trimmed
	}
	return l.Lookup(slug)
}

func (l Labels) Subcategory(slug string) string {
	if slug == Uncategorized {
		return OtherLabel
	}
	return l.Lookup(slug)
}

// Fallback locales tried after the configured one.
var fallbackLocales = []string{"ru", "en"}

// LocalizedName is a product name keyed by locale. A plain string name is stored
// under the empty key.
type LocalizedName map[string]string

// PlainName wraps a non-localized name.
func PlainName(name string) LocalizedName {
	return LocalizedName{"": name}
}

// Resolve picks the display name: plain string, configured locale, the fallback
// locales, then slug.
func (n LocalizedName) Resolve(locale, slug string) string {
	if plain := strings.TrimSpace(n[""]); plain != "" {
		return plain
	}
	candidates := append([]string{locale}, fallbackLocales...)
	for _, loc := range candidates {
		if loc == "" {
			continue
		}
		if value := strings.TrimSpace(n[loc]); value != "" {
			return value
		}
	}
	return slug
}
