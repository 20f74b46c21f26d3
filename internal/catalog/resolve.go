package catalog

import (
	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
)

const (
	msgStaleCategory    = "This category is no longer available. Please pick one from the menu again."
	msgStaleSubcategory = "This section is no longer available. Please pick one from the menu again."
	msgStaleProduct     = "This item is no longer available. Please pick one from the list again."
)

// ResolveCategory validates ci against this snapshot's index.
func (s *Snapshot) ResolveCategory(ci int) (Category, error) {
	if _, ok := s.Index().CategoryID(ci); !ok {
		return Category{}, pkgerrors.New(pkgerrors.CodeValidation, msgStaleCategory).
			WithDetails(map[string]any{"category_index": ci})
	}
	return s.categories[ci], nil
}

// ResolveGroup validates a subcategory position inside a grouped category.
func (s *Snapshot) ResolveGroup(ci, si int) (Group, error) {
	category, err := s.ResolveCategory(ci)
	if err != nil {
		return Group{}, err
	}
	if category.Content.Kind != ContentGrouped {
		return Group{}, pkgerrors.New(pkgerrors.CodeValidation, msgStaleSubcategory).
			WithDetails(map[string]any{"category_index": ci, "subcategory_index": si})
	}
	if _, ok := s.index.SubcategoryID(ci, si); !ok {
		return Group{}, pkgerrors.New(pkgerrors.CodeValidation, msgStaleSubcategory).
			WithDetails(map[string]any{"category_index": ci, "subcategory_index": si})
	}
	return category.Content.Groups[si], nil
}

// ResolveProducts returns the live product list for a (category, subcategory) context.
// Flat categories are addressed with NoSubcategory.
func (s *Snapshot) ResolveProducts(ci, si int) ([]Product, error) {
	category, err := s.ResolveCategory(ci)
	if err != nil {
		return nil, err
	}
	if category.Content.Kind == ContentFlat {
		if si != NoSubcategory {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, msgStaleSubcategory).
				WithDetails(map[string]any{"category_index": ci, "subcategory_index": si})
		}
		return category.Content.Items, nil
	}
	group, err := s.ResolveGroup(ci, si)
	if err != nil {
		return nil, err
	}
	return group.Items, nil
}

func (s *Snapshot) ResolveProduct(ci, si, pi int) (Product, error) {
	items, err := s.ResolveProducts(ci, si)
	if err != nil {
		return Product{}, err
	}
	if pi < 0 || pi >= len(items) {
		return Product{}, pkgerrors.New(pkgerrors.CodeValidation, msgStaleProduct).
			WithDetails(map[string]any{"category_index": ci, "subcategory_index": si, "product_index": pi})
	}
	return items[pi], nil
}
