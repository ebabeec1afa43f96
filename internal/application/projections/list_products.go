package projections

import (
	"context"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"storefront/internal/application/listutil"
	"storefront/internal/domain/catalog"
	"storefront/internal/domain/pricing"
)

// Sort keys accepted by QueryListProducts.
const (
	SortRelevance = "relevancia"
	SortPriceAsc  = "menor-preco"
	SortPriceDesc = "maior-preco"
	SortDiscount  = "maior-desconto"
	SortRating    = "melhor-avaliacao"
	SortName      = "nome"
)

var productSorts = []string{SortRelevance, SortPriceAsc, SortPriceDesc, SortDiscount, SortRating, SortName}

var productFilters = []string{"category", "brand", "condition", "price_min", "price_max", "in_stock", "free_shipping", "rating"}

// ListProductsQuery carries the browse parameters.
type ListProductsQuery struct {
	listutil.ListParams
	PriceMin     float64
	PriceMax     float64 // 0 means no upper bound
	InStock      bool
	FreeShipping bool
	MinRating    float64
}

// ParseListProductsQuery reads browse parameters from a query string.
// Malformed numbers are ignored rather than rejected.
func ParseListProductsQuery(q url.Values) ListProductsQuery {
	lp := listutil.ParseListParams(q, productSorts, productFilters)
	query := ListProductsQuery{ListParams: lp}
	query.PriceMin = parseAmount(lp.First("price_min"))
	query.PriceMax = parseAmount(lp.First("price_max"))
	query.InStock, _ = strconv.ParseBool(lp.First("in_stock"))
	query.FreeShipping, _ = strconv.ParseBool(lp.First("free_shipping"))
	if r, err := strconv.ParseFloat(lp.First("rating"), 64); err == nil && r > 0 && r <= 5 {
		query.MinRating = r
	}
	return query
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return min(v, catalog.MaxPrice)
}

// ProductCard is a product with its derived prices.
type ProductCard struct {
	catalog.Product
	DiscountPercent int                 `json:"discountPercent"`
	PixPrice        float64             `json:"pixPrice"`
	Installment     pricing.Installment `json:"installment"`
}

// ListProductsResult is one page of matching products.
type ListProductsResult struct {
	Products []ProductCard     `json:"products"`
	Page     listutil.PageInfo `json:"page"`
	Brands   []string          `json:"brands"` // brands among all matches, for filter facets
}

// ListProductsDeps holds dependencies for ListProducts.
type ListProductsDeps struct {
	Catalog *catalog.Catalog
	Rules   pricing.Rules
}

// QueryListProducts filters, sorts and paginates the catalog.
// PRE: deps.Catalog is indexed
// POST: Products holds at most PerPage entries; Page.Total counts every match
// INVARIANT: the catalog is not mutated
func QueryListProducts(_ context.Context, query ListProductsQuery, deps ListProductsDeps) (ListProductsResult, error) {
	c := deps.Catalog

	var categories map[string]bool
	if query.Has("category") {
		categories = make(map[string]bool)
		for _, slug := range query.Filters["category"] {
			for _, s := range c.CategorySlugs(slug) {
				categories[s] = true
			}
		}
	}

	var matches []catalog.Product
	for _, p := range c.Products {
		if !p.Matches(query.Search) {
			continue
		}
		if categories != nil && !categories[p.CategorySlug] {
			continue
		}
		if query.Has("brand") && !containsFold(query.Filters["brand"], p.Brand) {
			continue
		}
		if query.Has("condition") && !containsFold(query.Filters["condition"], p.Condition) {
			continue
		}
		if p.Price < query.PriceMin || (query.PriceMax > 0 && p.Price > query.PriceMax) {
			continue
		}
		if (query.InStock && !p.InStock()) || (query.FreeShipping && !p.FreeShipping) {
			continue
		}
		if query.MinRating > 0 && p.Rating < query.MinRating {
			continue
		}
		matches = append(matches, p)
	}

	sortProducts(matches, query.Sort)

	page := listutil.NewPageInfo(query.Page, query.PerPage, len(matches))
	start, end := page.Window()
	cards := make([]ProductCard, 0, end-start)
	for _, p := range matches[start:end] {
		cards = append(cards, NewProductCard(p, deps.Rules))
	}
	return ListProductsResult{Products: cards, Page: page, Brands: brandsOf(matches)}, nil
}

// NewProductCard derives the display prices of p.
func NewProductCard(p catalog.Product, rules pricing.Rules) ProductCard {
	return ProductCard{
		Product:         p,
		DiscountPercent: p.DiscountPercent(),
		PixPrice:        rules.PixPrice(p.Price),
		Installment:     rules.Installments(p.Price),
	}
}

// sortProducts orders in place. Ties keep catalog order.
func sortProducts(ps []catalog.Product, key string) {
	var cmp func(a, b catalog.Product) int
	switch key {
	case SortPriceAsc:
		cmp = func(a, b catalog.Product) int { return compareFloat(a.Price, b.Price) }
	case SortPriceDesc:
		cmp = func(a, b catalog.Product) int { return compareFloat(b.Price, a.Price) }
	case SortDiscount:
		cmp = func(a, b catalog.Product) int { return b.DiscountPercent() - a.DiscountPercent() }
	case SortRating:
		cmp = func(a, b catalog.Product) int { return compareFloat(b.Rating, a.Rating) }
	case SortName:
		cmp = func(a, b catalog.Product) int { return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) }
	default:
		return
	}
	slices.SortStableFunc(ps, cmp)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func brandsOf(ps []catalog.Product) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, p := range ps {
		if p.Brand != "" && !seen[p.Brand] {
			seen[p.Brand] = true
			out = append(out, p.Brand)
		}
	}
	slices.Sort(out)
	return out
}
