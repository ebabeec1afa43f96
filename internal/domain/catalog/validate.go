package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// reservedSlugs collide with application routes and may not be used by catalog entries.
var reservedSlugs = map[string]bool{
	"admin": true, "api": true, "login": true, "logout": true, "register": true,
	"dashboard": true, "static": true, "public": true, "_next": true,
	"favicon": true, "robots": true,
}

var productIDPattern = regexp.MustCompile(`^p\d{3}$`)

// MaxPrice is the upper bound accepted by price range filters.
const MaxPrice = 100000

// Report is the outcome of Validate. Errors make the catalog unusable;
// warnings point at data that will silently never show up.
type Report struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the catalog has no errors.
func (r Report) OK() bool {
	return len(r.Errors) == 0
}

// Summary returns a one-line description of the report.
func (r Report) Summary() string {
	if r.OK() {
		return fmt.Sprintf("catalog ok, %d warning(s)", len(r.Warnings))
	}
	return fmt.Sprintf("%d error(s), %d warning(s)", len(r.Errors), len(r.Warnings))
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks the integrity of catalog data.
// PRE: none (Index is not required)
// POST: Returns every violation found; c is not mutated
func (c *Catalog) Validate() Report {
	var r Report

	categoryNames := make(map[string]string)
	var allSlugs []string
	for _, cat := range c.Categories {
		if reservedSlugs[cat.Slug] {
			r.errorf("category: reserved slug in use: %q", cat.Slug)
		}
		allSlugs = append(allSlugs, cat.Slug)
		categoryNames[cat.Slug] = cat.Name
		for _, sub := range cat.Subcategories {
			if reservedSlugs[sub.Slug] {
				r.errorf("subcategory: reserved slug in use: %q (parent %s)", sub.Slug, cat.Slug)
			}
			allSlugs = append(allSlugs, sub.Slug)
			categoryNames[sub.Slug] = sub.Name
		}
	}
	for _, dup := range duplicates(allSlugs) {
		r.errorf("category: duplicate slug %q", dup)
	}

	var productSlugs, productIDs []string
	for _, p := range c.Products {
		if reservedSlugs[p.Slug] {
			r.errorf("product: reserved slug in use: %q (id %s)", p.Slug, p.ID)
		}
		if !productIDPattern.MatchString(p.ID) {
			r.errorf("product: malformed id %q", p.ID)
		}
		if p.Price < 0 || p.Price > MaxPrice {
			r.errorf("product: price out of range for %q: %.2f", p.Slug, p.Price)
		}
		if p.Rating < 0 || p.Rating > 5 {
			r.errorf("product: rating out of range for %q: %.1f", p.Slug, p.Rating)
		}
		if _, ok := categoryNames[p.CategorySlug]; !ok {
			r.errorf("product: %q has unknown category_slug %q", p.Slug, p.CategorySlug)
		}
		productSlugs = append(productSlugs, p.Slug)
		productIDs = append(productIDs, p.ID)
	}
	for _, dup := range duplicates(productSlugs) {
		r.errorf("product: duplicate slug %q", dup)
	}
	for _, dup := range duplicates(productIDs) {
		r.errorf("product: duplicate id %q", dup)
	}

	var serviceIDs []string
	for _, s := range c.Services {
		if !s.Type.Valid() {
			r.errorf("service: %q has unknown type %q", s.ID, s.Type)
		}
		for _, slug := range s.Categories {
			if _, ok := categoryNames[slug]; !ok {
				r.warnf("service: %q references unknown category %q and may never be offered", s.ID, slug)
			}
		}
		serviceIDs = append(serviceIDs, s.ID)
	}
	for _, dup := range duplicates(serviceIDs) {
		r.errorf("service: duplicate id %q", dup)
	}

	knownProducts := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		knownProducts[id] = true
	}
	for _, rent := range c.Rentals {
		if !knownProducts[rent.ProductID] {
			r.warnf("rental: %q references unknown product %q", rent.ID, rent.ProductID)
		}
	}

	for _, cat := range c.Categories {
		family := map[string]bool{cat.Slug: true}
		for _, sub := range cat.Subcategories {
			family[sub.Slug] = true
		}
		hasProducts := false
		for _, p := range c.Products {
			if family[p.CategorySlug] {
				hasProducts = true
				break
			}
		}
		switch {
		case len(cat.Subcategories) == 0 && !hasProducts:
			r.warnf("category: %q has no subcategories and no products", cat.Slug)
		case len(cat.Subcategories) > 0 && !hasProducts:
			r.warnf("category: parent %q has subcategories but no products", cat.Slug)
		}
	}

	// One warning per category slug is enough to point at stale display names.
	flagged := make(map[string]bool)
	for _, p := range c.Products {
		expected, ok := categoryNames[p.CategorySlug]
		if !ok || flagged[p.CategorySlug] {
			continue
		}
		if p.Category != p.CategorySlug && !strings.EqualFold(p.Category, expected) {
			flagged[p.CategorySlug] = true
			r.warnf("product: category %q may be stale for category_slug %q (expected %q)", p.Category, p.CategorySlug, expected)
		}
	}

	return r
}

// duplicates returns each value that appears more than once, in first-seen order.
func duplicates(values []string) []string {
	counts := make(map[string]int, len(values))
	var out []string
	for _, v := range values {
		counts[v]++
		if counts[v] == 2 {
			out = append(out, v)
		}
	}
	return out
}
