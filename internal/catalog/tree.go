package catalog

import "time"

// TreeProduct is one addressable product with its positional coordinates.
type TreeProduct struct {
	Index int    `json:"index"`
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type TreeGroup struct {
	Index    int           `json:"index"`
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Products []TreeProduct `json:"products"`
}

type TreeCategory struct {
	Index    int           `json:"index"`
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Kind     string        `json:"kind"`
	Groups   []TreeGroup   `json:"groups,omitempty"`
	Products []TreeProduct `json:"products,omitempty"`
}

// Tree is a serializable view of a snapshot in display order.
type Tree struct {
	Generation int64          `json:"generation"`
	Layout     string         `json:"layout"`
	BuiltAt    time.Time      `json:"built_at"`
	Categories []TreeCategory `json:"categories"`
}

func (s *Snapshot) Tree() Tree {
	tree := Tree{
		Generation: s.Generation(),
		Layout:     s.Layout(),
		BuiltAt:    s.BuiltAt(),
		Categories: make([]TreeCategory, 0, s.Len()),
	}
	for ci, category := range s.Categories() {
		node := TreeCategory{
			Index: ci,
			ID:    category.ID,
			Label: category.Label,
			Kind:  category.Content.Kind.String(),
		}
		if category.Content.HasSubcategories() {
			for si, group := range category.Content.Groups {
				node.Groups = append(node.Groups, TreeGroup{
					Index:    si,
					ID:       group.ID,
					Label:    s.SubcategoryLabel(group.ID),
					Products: treeProducts(group.Items),
				})
			}
		} else {
			node.Products = treeProducts(category.Content.Items)
		}
		tree.Categories = append(tree.Categories, node)
	}
	return tree
}

func treeProducts(items []Product) []TreeProduct {
	out := make([]TreeProduct, 0, len(items))
	for pi, p := range items {
		out = append(out, TreeProduct{Index: pi, Slug: p.Slug, Name: p.Name, Price: p.Price})
	}
	return out
}
