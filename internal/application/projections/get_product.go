package projections

import (
	"context"

	"storefront/internal/domain/catalog"
	"storefront/internal/domain/pricing"
)

// MaxRelated is the number of related products on a product page.
const MaxRelated = 4

// ProductDetail is everything the product page shows.
type ProductDetail struct {
	ProductCard
	Services []catalog.ServiceOption `json:"services"`
	Rentals  []catalog.RentOption    `json:"rentals"`
	Shipping pricing.ShippingQuote   `json:"shipping"`
	Related  []ProductCard           `json:"related"`
}

// QueryGetProduct looks a product up by slug.
// PRE: deps.Catalog is indexed
// POST: returns catalog.ErrProductNotFound for unknown slugs
func QueryGetProduct(_ context.Context, slug string, deps ListProductsDeps) (ProductDetail, error) {
	c := deps.Catalog
	p, err := c.ProductBySlug(slug)
	if err != nil {
		return ProductDetail{}, err
	}

	related := []ProductCard{}
	for _, other := range c.Products {
		if len(related) == MaxRelated {
			break
		}
		if other.ID != p.ID && other.CategorySlug == p.CategorySlug {
			related = append(related, NewProductCard(other, deps.Rules))
		}
	}

	return ProductDetail{
		ProductCard: NewProductCard(p, deps.Rules),
		Services:    c.ServicesFor(p.CategorySlug),
		Rentals:     c.RentalsFor(p.ID),
		Shipping:    deps.Rules.QuoteShipping(p.Price),
		Related:     related,
	}, nil
}
