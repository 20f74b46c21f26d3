package catalog

import (
	"context"

	"github.com/angelmondragon/menubot/pkg/money"
	"github.com/angelmondragon/menubot/pkg/sanity"
)

// Source fetches raw catalog records from the remote feed.
type Source interface {
	FetchCategories(ctx context.Context) ([]CategoryRecord, error)
	FetchProducts(ctx context.Context) ([]ProductRecord, error)
}

type sanityClient interface {
	Categories(ctx context.Context) ([]sanity.Category, error)
	Products(ctx context.Context) ([]sanity.Product, error)
}

// SanitySource adapts the CMS client to Source, converting prices to minor units.
type SanitySource struct {
	client     sanityClient
	minorUnits int32
}

func NewSanitySource(client sanityClient, minorUnits int32) *SanitySource {
	return &SanitySource{client: client, minorUnits: minorUnits}
}

func (s *SanitySource) FetchCategories(ctx context.Context) ([]CategoryRecord, error) {
	docs, err := s.client.Categories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryRecord, 0, len(docs))
	for _, doc := range docs {
		id := doc.Slug.String()
		if id == "" {
			id = doc.ID
		}
		out = append(out, CategoryRecord{
			ID:    id,
			Title: LocalizedName(doc.Title),
			Order: doc.Order,
		})
	}
	return out, nil
}

func (s *SanitySource) FetchProducts(ctx context.Context) ([]ProductRecord, error) {
	docs, err := s.client.Products(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProductRecord, 0, len(docs))
	for _, doc := range docs {
		var price int64
		if doc.Price != nil {
			price = money.ToMinor(*doc.Price, s.minorUnits)
		}
		out = append(out, ProductRecord{
			ID:          doc.ID,
			Slug:        doc.Slug.String(),
			Category:    doc.Category.String(),
			Subcategory: doc.Subcategory.String(),
			Price:       price,
			Name:        LocalizedName(doc.Name),
		})
	}
	return out, nil
}
