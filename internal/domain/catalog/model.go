package catalog

import (
	"errors"
	"math"
	"strings"
)

// Product conditions as shown on product cards.
const (
	ConditionNew           = "novo"
	ConditionRepackaged    = "reembalado"
	ConditionRemanufatured = "remanufaturado"
)

// ServiceType classifies an add-on service.
type ServiceType string

// Supported add-on service types.
const (
	ServiceInstallation ServiceType = "installation"
	ServiceRental       ServiceType = "rental"
	ServiceMaintenance  ServiceType = "maintenance"
	ServiceWarranty     ServiceType = "warranty"
	ServiceProtection   ServiceType = "protection"
)

// Valid reports whether t is one of the supported service types.
func (t ServiceType) Valid() bool {
	switch t {
	case ServiceInstallation, ServiceRental, ServiceMaintenance, ServiceWarranty, ServiceProtection:
		return true
	}
	return false
}

var (
	ErrProductNotFound = errors.New("product not found")
	ErrServiceNotFound = errors.New("service option not found")
)

// Product is a catalog entry as consumed by the storefront.
type Product struct {
	ID              string            `yaml:"id" json:"id"`
	Slug            string            `yaml:"slug" json:"slug"`
	Name            string            `yaml:"name" json:"name"`
	Price           float64           `yaml:"price" json:"price"`
	OriginalPrice   float64           `yaml:"original_price" json:"originalPrice"`
	Brand           string            `yaml:"brand" json:"brand"`
	Category        string            `yaml:"category" json:"category"`
	CategorySlug    string            `yaml:"category_slug" json:"categorySlug"`
	Rating          float64           `yaml:"rating" json:"rating"`
	Reviews         int               `yaml:"reviews" json:"reviews"`
	Stock           int               `yaml:"stock" json:"stock"`
	Condition       string            `yaml:"condition" json:"condition"`
	FreeShipping    bool              `yaml:"free_shipping" json:"freeShipping,omitempty"`
	Images          []string          `yaml:"images" json:"images"`
	Tags            []string          `yaml:"tags" json:"tags"`
	Description     string            `yaml:"description" json:"description"`
	Specs           map[string]string `yaml:"specs" json:"specs,omitempty"`
	PickupAvailable bool              `yaml:"pickup_available" json:"pickupAvailable,omitempty"`
}

// PrimaryImage returns the first image reference, or "" when the product has none.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// DiscountPercent returns the rounded discount against OriginalPrice.
// Returns 0 when there is no original price or no discount.
func (p Product) DiscountPercent() int {
	if p.OriginalPrice <= 0 || p.OriginalPrice <= p.Price {
		return 0
	}
	return int(math.Round((p.OriginalPrice - p.Price) / p.OriginalPrice * 100))
}

// Matches reports whether the product name, brand or tags contain the query.
// INVARIANT: p is not mutated
func (p Product) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Brand), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// Category groups products; parents may carry one level of subcategories.
type Category struct {
	ID            string     `yaml:"id" json:"id"`
	Slug          string     `yaml:"slug" json:"slug"`
	Name          string     `yaml:"name" json:"name"`
	Description   string     `yaml:"description" json:"description"`
	Icon          string     `yaml:"icon" json:"icon,omitempty"`
	Subcategories []Category `yaml:"subcategories" json:"subcategories,omitempty"`
}

// ServiceOption is an add-on service offered for products of given categories.
type ServiceOption struct {
	ID          string      `yaml:"id" json:"id"`
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description" json:"description"`
	Price       float64     `yaml:"price" json:"price"`
	Duration    string      `yaml:"duration" json:"duration,omitempty"`
	Categories  []string    `yaml:"categories" json:"categories"`
	Type        ServiceType `yaml:"type" json:"type"`
}

// AppliesTo reports whether the option is offered for the category slug.
func (s ServiceOption) AppliesTo(categorySlug string) bool {
	for _, c := range s.Categories {
		if c == categorySlug {
			return true
		}
	}
	return false
}

// Rental periods for RentOption.Duration.
const (
	RentDaily     = "diaria"
	RentWeekly    = "semanal"
	RentMonthly   = "mensal"
	RentQuarterly = "trimestral"
)

// RentOption is a product-specific rental offer.
type RentOption struct {
	ID               string  `yaml:"id" json:"id"`
	ProductID        string  `yaml:"product_id" json:"productId"`
	Duration         string  `yaml:"duration" json:"duration"`
	Price            float64 `yaml:"price" json:"price"`
	MinDays          int     `yaml:"min_days" json:"minDays,omitempty"`
	MaxDays          int     `yaml:"max_days" json:"maxDays,omitempty"`
	DeliveryIncluded bool    `yaml:"delivery_included" json:"deliveryIncluded"`
	DepositRequired  bool    `yaml:"deposit_required" json:"depositRequired"`
	DepositAmount    float64 `yaml:"deposit_amount" json:"depositAmount,omitempty"`
}

var rentLabels = map[string]string{
	RentDaily:     "Aluguel diário",
	RentWeekly:    "Aluguel semanal",
	RentMonthly:   "Aluguel mensal",
	RentQuarterly: "Aluguel trimestral",
}

// Name returns the display name used when the rental is selected as a service.
func (r RentOption) Name() string {
	if label, ok := rentLabels[r.Duration]; ok {
		return label
	}
	return "Aluguel"
}
