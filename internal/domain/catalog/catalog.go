package catalog

// Catalog is the static product, category and service data of the store.
// Build indexes with Index before serving lookups.
type Catalog struct {
	Categories []Category      `yaml:"categories" json:"categories"`
	Products   []Product       `yaml:"products" json:"products"`
	Services   []ServiceOption `yaml:"services" json:"services"`
	Rentals    []RentOption    `yaml:"rentals" json:"rentals"`

	byID       map[string]int
	bySlug     map[string]int
	serviceIdx map[string]int
	rentalIdx  map[string]int
	children   map[string][]string
}

// Index builds the lookup tables. Later duplicates do not shadow earlier entries.
// PRE: none
// POST: ProductByID, ProductBySlug, Service, Rental and CategorySlugs are usable
func (c *Catalog) Index() {
	c.byID = make(map[string]int, len(c.Products))
	c.bySlug = make(map[string]int, len(c.Products))
	for i, p := range c.Products {
		if _, ok := c.byID[p.ID]; !ok {
			c.byID[p.ID] = i
		}
		if _, ok := c.bySlug[p.Slug]; !ok {
			c.bySlug[p.Slug] = i
		}
	}
	c.serviceIdx = make(map[string]int, len(c.Services))
	for i, s := range c.Services {
		if _, ok := c.serviceIdx[s.ID]; !ok {
			c.serviceIdx[s.ID] = i
		}
	}
	c.rentalIdx = make(map[string]int, len(c.Rentals))
	for i, r := range c.Rentals {
		if _, ok := c.rentalIdx[r.ID]; !ok {
			c.rentalIdx[r.ID] = i
		}
	}
	c.children = make(map[string][]string, len(c.Categories))
	for _, cat := range c.Categories {
		slugs := []string{cat.Slug}
		for _, sub := range cat.Subcategories {
			slugs = append(slugs, sub.Slug)
		}
		c.children[cat.Slug] = slugs
	}
}

// ProductByID looks up a product by id.
func (c *Catalog) ProductByID(id string) (Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return c.Products[i], nil
}

// ProductBySlug looks up a product by slug.
func (c *Catalog) ProductBySlug(slug string) (Product, error) {
	i, ok := c.bySlug[slug]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return c.Products[i], nil
}

// Service looks up a service option by id.
func (c *Catalog) Service(id string) (ServiceOption, bool) {
	i, ok := c.serviceIdx[id]
	if !ok {
		return ServiceOption{}, false
	}
	return c.Services[i], true
}

// Rental looks up a rental option by id.
func (c *Catalog) Rental(id string) (RentOption, bool) {
	i, ok := c.rentalIdx[id]
	if !ok {
		return RentOption{}, false
	}
	return c.Rentals[i], true
}

// CategorySlugs returns the slug itself plus its subcategory slugs.
// A subcategory or unknown slug yields just itself.
func (c *Catalog) CategorySlugs(slug string) []string {
	if slugs, ok := c.children[slug]; ok {
		return slugs
	}
	return []string{slug}
}

// ServicesFor returns the service options offered for a category slug.
func (c *Catalog) ServicesFor(categorySlug string) []ServiceOption {
	out := []ServiceOption{}
	for _, s := range c.Services {
		if s.AppliesTo(categorySlug) {
			out = append(out, s)
		}
	}
	return out
}

// RentalsFor returns the rental options offered for a product id.
func (c *Catalog) RentalsFor(productID string) []RentOption {
	out := []RentOption{}
	for _, r := range c.Rentals {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out
}

// Brands returns the distinct brands in catalog order.
func (c *Catalog) Brands() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range c.Products {
		if p.Brand == "" || seen[p.Brand] {
			continue
		}
		seen[p.Brand] = true
		out = append(out, p.Brand)
	}
	return out
}
