package catalog

import (
	"sort"
	"strings"
	"time"
)

// CategoryRecord is a raw category as delivered by the catalog source.
type CategoryRecord struct {
	ID    string
	Label string
	// Title is the localized feed title, used when Label is empty.
	Title LocalizedName
	// Order is the feed's explicit ordering hint. Records without one keep
	// their feed position after all hinted records.
	Order *int
}

func (r CategoryRecord) label(locale string) string {
	if r.Label != "" {
		return r.Label
	}
	return r.Title.Resolve(locale, "")
}

// ProductRecord is a raw product as delivered by the catalog source.
type ProductRecord struct {
	ID          string
	Slug        string
	Category    string
	Subcategory string
	Price       int64
	Name        LocalizedName
}

type BuildOptions struct {
	Locale     string
	Labels     Labels
	Now        time.Time
	Generation int64
}

// SkippedProduct records a product record that could not be indexed.
type SkippedProduct struct {
	Ref    string
	Reason string
}

const (
	SkipMissingSlug   = "missing slug"
	SkipDuplicateSlug = "duplicate slug"
	SkipNegativePrice = "negative price"
)

// BuildReport lists what the build dropped or repaired.
type BuildReport struct {
	Skipped []SkippedProduct
	// Unplaced are slugs that are priced and named but belong to no category.
	Unplaced []string
	// Appended are category ids that only products referenced.
	Appended []string
}

type workGroup struct {
	id    string
	items []Product
}

type workCategory struct {
	id       string
	label    string
	grouped  bool
	items    []Product
	groups   []*workGroup
	groupPos map[string]int
}

func (w *workCategory) group(id string) *workGroup {
	if pos, ok := w.groupPos[id]; ok {
		return w.groups[pos]
	}
	g := &workGroup{id: id}
	w.groupPos[id] = len(w.groups)
	w.groups = append(w.groups, g)
	return g
}

// toGrouped switches a flat category to groups, moving prior items into the
// uncategorized bucket in their original order.
func (w *workCategory) toGrouped() {
	if w.grouped {
		return
	}
	w.grouped = true
	w.groupPos = map[string]int{}
	if len(w.items) > 0 {
		w.group(Uncategorized).items = w.items
	}
	w.items = nil
}

func (w *workCategory) add(sub string, product Product) {
	if sub != "" {
		w.toGrouped()
		g := w.group(sub)
		g.items = append(g.items, product)
		return
	}
	if w.grouped {
		g := w.group(Uncategorized)
		g.items = append(g.items, product)
		return
	}
	w.items = append(w.items, product)
}

func (w *workCategory) finalize() Category {
	category := Category{ID: w.id, Label: w.label}
	if w.grouped && len(w.groups) == 1 && w.groups[0].id == Uncategorized {
		category.Content = Content{Kind: ContentFlat, Items: w.groups[0].items}
		return category
	}
	if !w.grouped {
		category.Content = Content{Kind: ContentFlat, Items: w.items}
		return category
	}
	groups := make([]Group, len(w.groups))
	for i, g := range w.groups {
		groups[i] = Group{ID: g.id, Items: g.items}
	}
	category.Content = Content{Kind: ContentGrouped, Groups: groups}
	return category
}

// Build normalizes raw records into a snapshot. It never fails; records that
// cannot be placed are reported instead.
func Build(categories []CategoryRecord, products []ProductRecord, opts BuildOptions) (*Snapshot, BuildReport) {
	labels := opts.Labels
	if labels == nil {
		labels = DefaultLabels()
	}
	var report BuildReport

	order := make([]*workCategory, 0, len(categories))
	byID := make(map[string]*workCategory, len(categories))
	for _, record := range sortedCategories(categories) {
		id := strings.TrimSpace(record.ID)
		if id == "" {
			continue
		}
		if _, exists := byID[id]; exists {
			continue
		}
		wc := &workCategory{id: id, label: labels.Category(id, record.label(opts.Locale))}
		byID[id] = wc
		order = append(order, wc)
	}

	prices := make(map[string]int64, len(products))
	names := make(map[string]string, len(products))
	for _, record := range products {
		slug := strings.TrimSpace(record.Slug)
		if slug == "" {
			slug = strings.TrimSpace(record.ID)
		}
		if slug == "" {
			report.Skipped = append(report.Skipped, SkippedProduct{Ref: record.ID, Reason: SkipMissingSlug})
			continue
		}
		if _, dup := prices[slug]; dup {
			report.Skipped = append(report.Skipped, SkippedProduct{Ref: slug, Reason: SkipDuplicateSlug})
			continue
		}
		if record.Price < 0 {
			report.Skipped = append(report.Skipped, SkippedProduct{Ref: slug, Reason: SkipNegativePrice})
			continue
		}

		product := Product{
			Slug:  slug,
			Name:  record.Name.Resolve(opts.Locale, slug),
			Price: record.Price,
		}
		prices[slug] = product.Price
		names[slug] = product.Name

		categoryID := strings.TrimSpace(record.Category)
		if categoryID == "" {
			report.Unplaced = append(report.Unplaced, slug)
			continue
		}
		wc, ok := byID[categoryID]
		if !ok {
			wc = &workCategory{id: categoryID, label: labels.Category(categoryID, "")}
			byID[categoryID] = wc
			order = append(order, wc)
			report.Appended = append(report.Appended, categoryID)
		}
		wc.add(strings.TrimSpace(record.Subcategory), product)
	}

	built := make([]Category, len(order))
	for i, wc := range order {
		built[i] = wc.finalize()
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return &Snapshot{
		categories: built,
		index:      buildIndex(built),
		prices:     prices,
		names:      names,
		labels:     labels,
		layout:     layoutOf(built),
		builtAt:    now,
		generation: opts.Generation,
	}, report
}

func sortedCategories(records []CategoryRecord) []CategoryRecord {
	out := make([]CategoryRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Order, out[j].Order
		switch {
		case a != nil && b != nil:
			return *a < *b
		case a != nil:
			return true
		default:
			return false
		}
	})
	return out
}
