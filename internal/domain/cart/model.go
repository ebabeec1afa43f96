package cart

import (
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain/catalog"
)

var ErrEmptyCart = errors.New("cart is empty")

// ItemService is a service attached to one cart line.
type ItemService struct {
	ServiceID    string              `json:"serviceId"`
	ServiceName  string              `json:"serviceName"`
	ServicePrice float64             `json:"servicePrice"`
	ServiceType  catalog.ServiceType `json:"serviceType"`
}

// Item is one cart line.
type Item struct {
	ID        string        `json:"id"`
	ProductID string        `json:"productId"`
	Name      string        `json:"name"`
	Price     float64       `json:"price"`
	Quantity  int           `json:"quantity"`
	Image     string        `json:"image"`
	Services  []ItemService `json:"services,omitempty"`
}

// Total returns the line total: price × quantity plus attached services.
func (i Item) Total() float64 {
	total := i.Price * float64(i.Quantity)
	for _, s := range i.Services {
		total += s.ServicePrice
	}
	return total
}

// NewItem builds a cart line for a product. The id is assigned by Cart.Add.
func NewItem(p catalog.Product, quantity int) Item {
	return Item{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  quantity,
		Image:     p.PrimaryImage(),
	}
}

// Cart is the persisted cart state.
// INVARIANT: at most one line per product id
type Cart struct {
	Items []Item `json:"items"`
}

// Clone returns a deep copy of c.
func (c Cart) Clone() Cart {
	items := make([]Item, len(c.Items))
	for i, it := range c.Items {
		if it.Services != nil {
			it.Services = append([]ItemService{}, it.Services...)
		}
		items[i] = it
	}
	return Cart{Items: items}
}

func (c Cart) index(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// Add merges item into the cart: an existing line for the product gains the
// quantity, otherwise a new line is appended with id "<productId>-<unix ms>".
// PRE: item.ProductID is non-empty, item.Quantity > 0
// POST: exactly one line exists for item.ProductID
func (c *Cart) Add(item Item, now time.Time) {
	if i := c.index(item.ProductID); i >= 0 {
		c.Items[i].Quantity += item.Quantity
		return
	}
	item.ID = fmt.Sprintf("%s-%d", item.ProductID, now.UnixMilli())
	c.Items = append(c.Items, item)
}

// Remove deletes the line for productID.
func (c *Cart) Remove(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

// UpdateQuantity sets the quantity of a line, clamped at zero.
func (c *Cart) UpdateQuantity(productID string, quantity int) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	if quantity < 0 {
		quantity = 0
	}
	if c.Items[i].Quantity == quantity {
		return false
	}
	c.Items[i].Quantity = quantity
	return true
}

// AddService attaches a service to a line. A service already attached is not duplicated.
func (c *Cart) AddService(productID string, svc ItemService) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	for _, s := range c.Items[i].Services {
		if s.ServiceID == svc.ServiceID {
			return false
		}
	}
	c.Items[i].Services = append(c.Items[i].Services, svc)
	return true
}

// RemoveService detaches a service from a line.
func (c *Cart) RemoveService(productID, serviceID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	services := c.Items[i].Services
	for j, s := range services {
		if s.ServiceID == serviceID {
			c.Items[i].Services = append(services[:j], services[j+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (c *Cart) Clear() bool {
	if len(c.Items) == 0 {
		return false
	}
	c.Items = []Item{}
	return true
}

// Subtract takes the lines of ordered out of the cart. A line keeps whatever
// quantity exceeds the ordered one, minus the services that were ordered with it;
// lines absent from ordered are untouched.
func (c *Cart) Subtract(ordered Cart) bool {
	changed := false
	for _, o := range ordered.Items {
		i := c.index(o.ProductID)
		if i < 0 {
			continue
		}
		changed = true
		if c.Items[i].Quantity <= o.Quantity {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			continue
		}
		c.Items[i].Quantity -= o.Quantity
		for _, svc := range o.Services {
			c.RemoveService(o.ProductID, svc.ServiceID)
		}
	}
	return changed
}

// TotalPrice sums all line totals.
func (c Cart) TotalPrice() float64 {
	var total float64
	for _, it := range c.Items {
		total += it.Total()
	}
	return total
}

// TotalItems sums all quantities.
func (c Cart) TotalItems() int {
	var n int
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}
