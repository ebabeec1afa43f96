package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/adapters/email"
	"storefront/internal/domain/address"
	"storefront/internal/domain/cart"
	"storefront/internal/domain/order"
	domainOutbox "storefront/internal/domain/outbox"
	"storefront/internal/domain/pricing"
	"storefront/internal/domain/user"
	"storefront/internal/state"
)

// OutboxWriter records side effects for later delivery.
type OutboxWriter interface {
	Save(ctx context.Context, e domainOutbox.Entry) error
}

// PlaceOrderInput carries the checkout choices.
type PlaceOrderInput struct {
	PaymentMethod  order.PaymentMethod
	ShippingMethod order.ShippingMethod
	AddressID      string // empty uses the default address
}

// PlaceOrderDeps holds dependencies for PlaceOrder.
type PlaceOrderDeps struct {
	Session *state.Session
	Outbox  OutboxWriter
	Rules   pricing.Rules
	Now     func() time.Time
}

// PlaceOrderResult is the created order and whether its confirmation email was queued.
type PlaceOrderResult struct {
	Order       order.Order
	EmailQueued bool
}

// OrderEmailPayload is the outbox payload of an order confirmation.
type OrderEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
	RefID   string `json:"refId"`
}

// ExecutePlaceOrder turns the session cart into an order.
// PRE: user logged in; cart non-empty; an address is selected or a default exists
// POST: order stored with status confirmado; ordered lines removed from the cart; confirmation email queued
// INVARIANT: a failure to queue the email never rolls back the order
// INVARIANT: one checkout per session at a time; cart lines added meanwhile stay in the cart
func ExecutePlaceOrder(ctx context.Context, input PlaceOrderInput, deps PlaceOrderDeps) (PlaceOrderResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := deps.Session
	unlock := s.LockCheckout()
	defer unlock()

	profile := s.User.User()
	if profile == nil {
		return PlaceOrderResult{}, user.ErrNotLoggedIn
	}
	c := s.Cart.Items()
	if len(c.Items) == 0 {
		return PlaceOrderResult{}, cart.ErrEmptyCart
	}
	addr, err := resolveAddress(s, input.AddressID)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	o := quoteOrder(profile.ID, c, addr, input, deps.Rules)
	if err := o.Validate(); err != nil {
		return PlaceOrderResult{}, err
	}
	id, err := s.Orders.CreateOrder(ctx, o)
	if err != nil {
		return PlaceOrderResult{}, fmt.Errorf("create order: %w", err)
	}
	s.Cart.RemoveOrdered(ctx, c)

	placed, err := s.Orders.GetOrder(id)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	slog.Info("order_placed", "order_id", id, "user_id", profile.ID, "total", placed.Total, "payment", placed.PaymentMethod)

	result := PlaceOrderResult{Order: placed}
	if deps.Outbox == nil {
		return result, nil
	}
	entry, err := confirmationEntry(*profile, placed, deps.Now())
	if err == nil {
		err = deps.Outbox.Save(ctx, entry)
	}
	if err != nil {
		slog.Error("order_email_enqueue_failed", "order_id", id, "error", err)
		return result, nil
	}
	result.EmailQueued = true
	return result, nil
}

func resolveAddress(s *state.Session, id string) (address.Address, error) {
	if id != "" {
		if a, ok := s.Addresses.Get(id); ok {
			return a, nil
		}
		return address.Address{}, address.ErrNoAddress
	}
	if a, ok := s.Addresses.DefaultAddress(); ok {
		return a, nil
	}
	return address.Address{}, address.ErrNoAddress
}

// quoteOrder prices the cart. Pix takes the Pix discount off the subtotal;
// home delivery below the free-shipping minimum pays standard shipping.
func quoteOrder(userID string, c cart.Cart, addr address.Address, input PlaceOrderInput, rules pricing.Rules) order.Order {
	subtotal := c.TotalPrice()
	var discount float64
	if input.PaymentMethod == order.PaymentPix {
		discount = rules.PixDiscount(subtotal)
	}
	var shipping float64
	var eta string
	if input.ShippingMethod == order.ShippingDelivery {
		eta = rules.StandardDays
		if !rules.HasFreeShipping(subtotal) {
			shipping = rules.StandardShipping
		}
	}
	return order.Order{
		UserID:            userID,
		Items:             c.Items,
		Subtotal:          subtotal,
		Discount:          discount,
		Shipping:          shipping,
		Total:             subtotal - discount + shipping,
		PaymentMethod:     input.PaymentMethod,
		ShippingMethod:    input.ShippingMethod,
		Address:           addr,
		Status:            order.StatusConfirmed,
		EstimatedDelivery: eta,
	}
}

func confirmationEntry(p user.Profile, o order.Order, now time.Time) (domainOutbox.Entry, error) {
	md := confirmationMarkdown(p, o)
	html, err := email.RenderMarkdown(md)
	if err != nil {
		return domainOutbox.Entry{}, err
	}
	id := uuid.NewString()
	payload, err := json.Marshal(OrderEmailPayload{
		To:      p.Email,
		Subject: fmt.Sprintf("Pedido %s confirmado", o.ID),
		HTML:    html,
		Text:    md,
		RefID:   id,
	})
	if err != nil {
		return domainOutbox.Entry{}, fmt.Errorf("marshal email payload: %w", err)
	}
	return domainOutbox.NewEntry(id, domainOutbox.ActionTypeOrderConfirmation, string(payload), now), nil
}

var paymentLabels = map[order.PaymentMethod]string{
	order.PaymentPix:    "Pix",
	order.PaymentCredit: "Cartão de crédito",
	order.PaymentBoleto: "Boleto bancário",
}

// mdEscaper neutralizes characters that would change the table or emphasis layout.
var mdEscaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`)

func confirmationMarkdown(p user.Profile, o order.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Pedido confirmado\n\nOlá, %s! Recebemos o seu pedido **%s**.\n\n", mdEscaper.Replace(p.Name), o.ID)
	b.WriteString("| Produto | Qtd | Valor |\n|---|---:|---:|\n")
	for _, it := range o.Items {
		fmt.Fprintf(&b, "| %s | %d | %s |\n", mdEscaper.Replace(it.Name), it.Quantity, pricing.FormatBRL(it.Total()))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", pricing.FormatBRL(o.Subtotal))
	if o.Discount > 0 {
		fmt.Fprintf(&b, "Desconto: -%s\n", pricing.FormatBRL(o.Discount))
	}
	if o.ShippingMethod == order.ShippingDelivery {
		fmt.Fprintf(&b, "Frete: %s\n", pricing.FormatBRL(o.Shipping))
	}
	fmt.Fprintf(&b, "**Total: %s**\n\nPagamento: %s\n\n", pricing.FormatBRL(o.Total), paymentLabels[o.PaymentMethod])
	if o.ShippingMethod == order.ShippingPickup {
		b.WriteString("Retirada na loja.\n")
	} else {
		a := o.Address
		fmt.Fprintf(&b, "Entrega em %s, %s - %s, %s/%s. Prazo: %s.\n",
			mdEscaper.Replace(a.Street), mdEscaper.Replace(a.Number), mdEscaper.Replace(a.Neighborhood),
			mdEscaper.Replace(a.City), mdEscaper.Replace(a.State), o.EstimatedDelivery)
	}
	return b.String()
}
