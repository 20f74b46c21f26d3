package cart

// Catalog supplies live prices and display names.
type Catalog interface {
	Price(slug string) (int64, bool)
	ProductName(slug string) string
}
