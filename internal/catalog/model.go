package catalog

import "time"

// Uncategorized is the reserved subcategory id for products without a subcategory
// inside a grouped category.
const Uncategorized = ""

// NoSubcategory is the subcategory index used to address products of a flat category.
const NoSubcategory = -1

// Product is an immutable catalog entry. Price is in minor currency units.
type Product struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type ContentKind int

const (
	ContentFlat ContentKind = iota
	ContentGrouped
)

func (k ContentKind) String() string {
	if k == ContentGrouped {
		return "grouped"
	}
	return "flat"
}

// Group is one subcategory bucket of a grouped category.
type Group struct {
	ID    string
	Items []Product
}

// Content is either a flat product list or an ordered list of subcategory groups.
type Content struct {
	Kind   ContentKind
	Items  []Product
	Groups []Group
}

func (c Content) HasSubcategories() bool {
	return c.Kind == ContentGrouped
}

// ProductCount counts products across every group.
func (c Content) ProductCount() int {
	if c.Kind == ContentFlat {
		return len(c.Items)
	}
	n := 0
	for _, g := range c.Groups {
		n += len(g.Items)
	}
	return n
}

type Category struct {
	ID      string
	Label   string
	Content Content
}

// Snapshot is one fully built catalog. It is never mutated after it is published.
type Snapshot struct {
	categories []Category
	index      *Index
	prices     map[string]int64
	names      map[string]string
	labels     Labels
	layout     string
	builtAt    time.Time
	generation int64
}

func (s *Snapshot) Categories() []Category {
	if s == nil {
		return nil
	}
	return s.categories
}

func (s *Snapshot) Index() *Index {
	if s == nil {
		return emptyIndex
	}
	return s.index
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.categories)
}

func (s *Snapshot) BuiltAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.builtAt
}

// Generation increases by one on every successful rebuild.
func (s *Snapshot) Generation() int64 {
	if s == nil {
		return 0
	}
	return s.generation
}

// Layout is a short fingerprint of the addressable shape. It only changes when a
// rebuild moves, adds or removes an entry.
func (s *Snapshot) Layout() string {
	if s == nil {
		return ""
	}
	return s.layout
}

// ProductCount is the number of priced products, placed or not.
func (s *Snapshot) ProductCount() int {
	if s == nil {
		return 0
	}
	return len(s.prices)
}

func (s *Snapshot) Price(slug string) (int64, bool) {
	if s == nil {
		return 0, false
	}
	price, ok := s.prices[slug]
	return price, ok
}

// ProductName returns the display name for slug, or the slug itself when unknown.
func (s *Snapshot) ProductName(slug string) string {
	if s == nil {
		return slug
	}
	if name, ok := s.names[slug]; ok {
		return name
	}
	return slug
}

// SubcategoryLabel renders a subcategory id for display.
func (s *Snapshot) SubcategoryLabel(id string) string {
	if s == nil {
		return DefaultLabels().Subcategory(id)
	}
	return s.labels.Subcategory(id)
}
