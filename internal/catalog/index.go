package catalog

import (
	"hash/fnv"
	"strconv"
)

// Index holds the category and subcategory position bijections of one build.
type Index struct {
	categoryIDs []string
	categoryPos map[string]int
	subIDs      [][]string
	subPos      []map[string]int
}

var emptyIndex = &Index{categoryPos: map[string]int{}}

func buildIndex(categories []Category) *Index {
	idx := &Index{
		categoryIDs: make([]string, len(categories)),
		categoryPos: make(map[string]int, len(categories)),
		subIDs:      make([][]string, len(categories)),
		subPos:      make([]map[string]int, len(categories)),
	}
	for ci, category := range categories {
		idx.categoryIDs[ci] = category.ID
		idx.categoryPos[category.ID] = ci
		if category.Content.Kind != ContentGrouped {
			continue
		}
		ids := make([]string, len(category.Content.Groups))
		pos := make(map[string]int, len(category.Content.Groups))
		for si, group := range category.Content.Groups {
			ids[si] = group.ID
			pos[group.ID] = si
		}
		idx.subIDs[ci] = ids
		idx.subPos[ci] = pos
	}
	return idx
}

func (x *Index) Len() int {
	return len(x.categoryIDs)
}

func (x *Index) CategoryID(ci int) (string, bool) {
	if ci < 0 || ci >= len(x.categoryIDs) {
		return "", false
	}
	return x.categoryIDs[ci], true
}

func (x *Index) CategoryIndex(id string) (int, bool) {
	ci, ok := x.categoryPos[id]
	return ci, ok
}

// SubcategoryLen is zero for flat categories and unknown indices.
func (x *Index) SubcategoryLen(ci int) int {
	if ci < 0 || ci >= len(x.subIDs) {
		return 0
	}
	return len(x.subIDs[ci])
}

func (x *Index) SubcategoryID(ci, si int) (string, bool) {
	if ci < 0 || ci >= len(x.subIDs) {
		return "", false
	}
	ids := x.subIDs[ci]
	if si < 0 || si >= len(ids) {
		return "", false
	}
	return ids[si], true
}

func (x *Index) SubcategoryIndex(ci int, id string) (int, bool) {
	if ci < 0 || ci >= len(x.subPos) || x.subPos[ci] == nil {
		return 0, false
	}
	si, ok := x.subPos[ci][id]
	return si, ok
}

// layoutOf fingerprints the addressable shape of a hierarchy: category ids,
// subcategory ids and product slugs in order. Two builds with equal layouts
// resolve every index token to the same entry.
func layoutOf(categories []Category) string {
	h := fnv.New64a()
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = h.Write([]byte(p))
			_, _ = h.Write([]byte{0})
		}
	}
	for _, category := range categories {
		write("c", category.ID)
		if category.Content.Kind == ContentFlat {
			for _, item := range category.Content.Items {
				write("p", item.Slug)
			}
			continue
		}
		for _, group := range category.Content.Groups {
			write("s", group.ID)
			for _, item := range group.Items {
				write("p", item.Slug)
			}
		}
	}
	layout := strconv.FormatUint(h.Sum64(), 36)
	if len(layout) > 6 {
		layout = layout[:6]
	}
	return layout
}
