package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain/address"
	"storefront/internal/domain/cart"
)

var (
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrOrderNotFound   = errors.New("order not found")
	ErrInvalidPayment  = errors.New("invalid payment method")
	ErrInvalidShipping = errors.New("invalid shipping method")
)

type Status string

const (
	StatusConfirmed Status = "confirmado"
	StatusPicking   Status = "separando"
	StatusShipped   Status = "enviado"
	StatusDelivered Status = "entregue"
)

func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusPicking, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentPix    PaymentMethod = "pix"
	PaymentCredit PaymentMethod = "credito"
	PaymentBoleto PaymentMethod = "boleto"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentPix || p == PaymentCredit || p == PaymentBoleto
}

type ShippingMethod string

const (
	ShippingDelivery ShippingMethod = "frete"
	ShippingPickup   ShippingMethod = "retirada"
)

func (s ShippingMethod) Valid() bool {
	return s == ShippingDelivery || s == ShippingPickup
}

// Order is a placed order. Items are copied from the cart at checkout time.
type Order struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	Items             []cart.Item     `json:"items"`
	Subtotal          float64         `json:"subtotal"`
	Discount          float64         `json:"discount"`
	Shipping          float64         `json:"shipping"`
	Total             float64         `json:"total"`
	PaymentMethod     PaymentMethod   `json:"paymentMethod"`
	ShippingMethod    ShippingMethod  `json:"shippingMethod"`
	Address           address.Address `json:"address"`
	Status            Status          `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
	EstimatedDelivery string          `json:"estimatedDelivery,omitempty"`
}

// Validate checks the enumerated fields.
func (o Order) Validate() error {
	if !o.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, o.Status)
	}
	if !o.PaymentMethod.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPayment, o.PaymentMethod)
	}
	if !o.ShippingMethod.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidShipping, o.ShippingMethod)
	}
	return nil
}

// NewID returns an order id of the form ORD-<unix ms>-<8 hex chars>.
func NewID(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// History is the persisted order list, oldest first.
type History struct {
	Orders []Order `json:"orders"`
}

func (h History) Clone() History {
	orders := make([]Order, len(h.Orders))
	for i, o := range h.Orders {
		o.Items = cart.Cart{Items: o.Items}.Clone().Items
		orders[i] = o
	}
	return History{Orders: orders}
}

// Create appends o with the given id and creation time.
// PRE: o.Validate() == nil, id is unique
// POST: Get(id) returns the stored order
func (h *History) Create(o Order, id string, now time.Time) {
	o.ID = id
	o.CreatedAt = now.UTC()
	h.Orders = append(h.Orders, o)
}

// Get returns the order with the given id.
func (h History) Get(id string) (Order, bool) {
	for _, o := range h.Orders {
		if o.ID == id {
			return o, true
		}
	}
	return Order{}, false
}

// ForUser returns the orders placed by userID, oldest first.
func (h History) ForUser(userID string) []Order {
	out := []Order{}
	for _, o := range h.Orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out
}

// UpdateStatus moves an order to status.
func (h *History) UpdateStatus(id string, status Status) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	for i := range h.Orders {
		if h.Orders[i].ID != id {
			continue
		}
		if h.Orders[i].Status == status {
			return false, nil
		}
		h.Orders[i].Status = status
		return true, nil
	}
	return false, ErrOrderNotFound
}
