package cart

import (
	"fmt"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
)

// Line is one cart row priced at read time.
type Line struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

// Summary is a consistent view of a cart: lines and total from one pass.
// Slugs the live catalog no longer prices are listed in Unavailable and left
// out of Lines and Total.
type Summary struct {
	Lines       []Line   `json:"lines"`
	Total       int64    `json:"total"`
	Unavailable []string `json:"unavailable,omitempty"`
}

// Orderable reports whether every line in the cart can still be ordered.
func (s Summary) Orderable() bool {
	return len(s.Lines) > 0 && len(s.Unavailable) == 0
}

type userCart struct {
	order      []string
	quantities map[string]int
}

// Store keeps carts in memory, keyed by user id.
type Store struct {
	catalog Catalog

	mu    sync.Mutex
	carts map[int64]*userCart
}

func NewStore(catalog Catalog) (*Store, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	return &Store{catalog: catalog, carts: map[int64]*userCart{}}, nil
}

// Add increments the quantity of slug and returns the new quantity.
func (s *Store) Add(userID int64, slug string) (int, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[userID]
	if !ok {
		c = &userCart{quantities: map[string]int{}}
		s.carts[userID] = c
	}
	if _, exists := c.quantities[slug]; !exists {
		c.order = append(c.order, slug)
	}
	c.quantities[slug]++
	return c.quantities[slug], nil
}

// Items prices every line against the live catalog.
func (s *Store) Items(userID int64) []Line {
	return s.Snapshot(userID).Lines
}

func (s *Store) Total(userID int64) int64 {
	return s.Snapshot(userID).Total
}

func (s *Store) Snapshot(userID int64) Summary {
	s.mu.Lock()
	c, ok := s.carts[userID]
	var order []string
	var quantities map[string]int
	if ok {
		order = append([]string(nil), c.order...)
		quantities = make(map[string]int, len(c.quantities))
		for k, v := range c.quantities {
			quantities[k] = v
		}
	}
	s.mu.Unlock()

	summary := Summary{Lines: make([]Line, 0, len(order))}
	for _, slug := range order {
		qty := quantities[slug]
		price, ok := s.catalog.Price(slug)
		if !ok {
			summary.Unavailable = append(summary.Unavailable, slug)
			continue
		}
		line := Line{
			Slug:      slug,
			Name:      s.catalog.ProductName(slug),
			Quantity:  qty,
			UnitPrice: price,
			LineTotal: price * int64(qty),
		}
		summary.Lines = append(summary.Lines, line)
		summary.Total += line.LineTotal
	}
	return summary
}

func (s *Store) Quantity(userID int64, slug string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[userID]; ok {
		return c.quantities[slug]
	}
	return 0
}

// Clear drops the user's cart entirely.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
}

func (s *Store) IsEmpty(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	return !ok || len(c.order) == 0
}
