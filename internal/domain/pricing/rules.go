// Package pricing holds the storefront's payment and shipping rules.
package pricing

import (
	"fmt"
	"math"
	"strings"
)

// Rules are the configurable payment and shipping parameters.
type Rules struct {
	PixDiscountPercent  float64 `toml:"pix_discount_percent" json:"pixDiscountPercent"`
	MaxInstallments     int     `toml:"max_installments" json:"maxInstallments"`
	MinInstallmentValue float64 `toml:"min_installment_value" json:"minInstallmentValue"`
	FreeShippingMinimum float64 `toml:"free_shipping_minimum" json:"freeShippingMinimum"`
	StandardShipping    float64 `toml:"standard_shipping" json:"standardShipping"`
	ExpressShipping     float64 `toml:"express_shipping" json:"expressShipping"`
	StandardDays        string  `toml:"standard_days" json:"standardDays"`
	ExpressDays         string  `toml:"express_days" json:"expressDays"`
}

func DefaultRules() Rules {
	return Rules{
		PixDiscountPercent:  10,
		MaxInstallments:     6,
		MinInstallmentValue: 50,
		FreeShippingMinimum: 299,
		StandardShipping:    19.90,
		ExpressShipping:     29.90,
		StandardDays:        "3-5 dias úteis",
		ExpressDays:         "1-2 dias úteis",
	}
}

// PixPrice applies the Pix discount.
func (r Rules) PixPrice(price float64) float64 {
	return price * (1 - r.PixDiscountPercent/100)
}

// PixDiscount returns the amount taken off price when paying by Pix.
func (r Rules) PixDiscount(price float64) float64 {
	return price - r.PixPrice(price)
}

type Installment struct {
	Count int     `json:"installments"`
	Value float64 `json:"value"`
}

// Installments starts at the maximum count and lowers it while one
// installment would be below the minimum value. Never fewer than 1.
func (r Rules) Installments(price float64) Installment {
	n := max(r.MaxInstallments, 1)
	value := price / float64(n)
	for value < r.MinInstallmentValue && n > 1 {
		n--
		value = price / float64(n)
	}
	return Installment{Count: n, Value: value}
}

func (r Rules) HasFreeShipping(total float64) bool {
	return total >= r.FreeShippingMinimum
}

type ShippingOption struct {
	Price float64 `json:"price"`
	Days  string  `json:"days"`
}

type ShippingQuote struct {
	Standard ShippingOption `json:"standard"`
	Express  ShippingOption `json:"express"`
	Free     bool           `json:"free"`
}

// QuoteShipping prices standard and express delivery for a cart total.
func (r Rules) QuoteShipping(total float64) ShippingQuote {
	free := r.HasFreeShipping(total)
	q := ShippingQuote{
		Standard: ShippingOption{Price: r.StandardShipping, Days: r.StandardDays},
		Express:  ShippingOption{Price: r.ExpressShipping, Days: r.ExpressDays},
		Free:     free,
	}
	if free {
		q.Standard.Price = 0
		q.Express.Price = 0
	}
	return q
}

// FormatBRL renders an amount as Brazilian reais, e.g. "R$ 1.299,90".
func FormatBRL(amount float64) string {
	neg := amount < 0
	cents := int64(math.Round(math.Abs(amount) * 100))
	whole := fmt.Sprintf("%d", cents/100)

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	s := fmt.Sprintf("R$ %s,%02d", b.String(), cents%100)
	if neg {
		return "-" + s
	}
	return s
}
