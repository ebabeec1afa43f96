package web

import (
	"net/http"

	"storefront/internal/application/orchestrators"
	"storefront/internal/domain/addon"
	"storefront/internal/domain/address"
	"storefront/internal/domain/cart"
	"storefront/internal/domain/catalog"
	"storefront/internal/domain/order"
	"storefront/internal/domain/user"
)

type productRequest struct {
	ProductID string `json:"productId" validate:"required,max=64"`
	Image     string `json:"image" validate:"omitempty,max=2048"` // overrides the product's first image
}

type serviceRequest struct {
	ServiceID string `json:"serviceId" validate:"required,max=64"`
	ProductID string `json:"productId" validate:"omitempty,max=64"`
}

type loginRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name" validate:"required,max=120"`
}

type cartAddRequest struct {
	ProductID string `json:"productId" validate:"required,max=64"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1,max=99"`
}

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=99"`
}

type cartServiceRequest struct {
	ServiceID string `json:"serviceId" validate:"required,max=64"`
}

type checkoutRequest struct {
	PaymentMethod  order.PaymentMethod  `json:"paymentMethod" validate:"required"`
	ShippingMethod order.ShippingMethod `json:"shippingMethod" validate:"required"`
	AddressID      string               `json:"addressId" validate:"omitempty,max=64"`
}

type statusRequest struct {
	Status order.Status `json:"status" validate:"required"`
}

type cartView struct {
	cart.Cart
	TotalPrice float64 `json:"totalPrice"`
	TotalItems int     `json:"totalItems"`
}

func newCartView(c cart.Cart) cartView {
	return cartView{Cart: c, TotalPrice: c.TotalPrice(), TotalItems: c.TotalItems()}
}

type servicesView struct {
	addon.Selection
	Total float64 `json:"total"`
}

// lookupProduct resolves a request's product against the live catalog.
func (s *Server) lookupProduct(w http.ResponseWriter, r *http.Request) (productRequest, catalog.Product, bool) {
	var req productRequest
	if !decodeRequest(w, r, &req) {
		return req, catalog.Product{}, false
	}
	p, err := s.catalog().ProductByID(req.ProductID)
	if err != nil {
		writeError(w, err)
		return req, catalog.Product{}, false
	}
	if req.Image == "" {
		req.Image = p.PrimaryImage()
	}
	return req, p, true
}

// --- compare ---

func (s *Server) handleCompareList(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Compare.Items())
}

func (s *Server) handleCompareAdd(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	req, p, ok := s.lookupProduct(w, r)
	if !ok {
		return
	}
	list, err := sess.Compare.AddItem(r.Context(), p, req.Image)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCompareToggle(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	req, p, ok := s.lookupProduct(w, r)
	if !ok {
		return
	}
	list, err := sess.Compare.ToggleItem(r.Context(), p, req.Image)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCompareStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        id,
		"comparing": sess.Compare.IsComparing(id),
		"count":     sess.Compare.Count(),
	})
}

func (s *Server) handleCompareRemove(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Compare.RemoveItem(r.Context(), r.PathValue("id")))
}

func (s *Server) handleCompareClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Compare.ClearAll(r.Context()))
}

// --- favorites ---

func (s *Server) handleFavoritesList(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Favorites.Items())
}

func (s *Server) handleFavoritesAdd(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	_, p, ok := s.lookupProduct(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Favorites.AddFavorite(r.Context(), p))
}

func (s *Server) handleFavoritesToggle(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	_, p, ok := s.lookupProduct(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Favorites.ToggleFavorite(r.Context(), p))
}

func (s *Server) handleFavoriteStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       id,
		"favorite": sess.Favorites.IsFavorite(id),
		"count":    sess.Favorites.Count(),
	})
}

func (s *Server) handleFavoritesRemove(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Favorites.RemoveFavorite(r.Context(), r.PathValue("id")))
}

func (s *Server) handleFavoritesClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Favorites.ClearFavorites(r.Context()))
}

// --- services ---

func (s *Server) handleServicesList(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sel := sess.Services.Items()
	writeJSON(w, http.StatusOK, servicesView{Selection: sel, Total: sel.Total()})
}

func (s *Server) handleServicesTotal(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"total": sess.Services.GetTotal()})
}

// handleServicesAdd selects a catalog service option or rental offer by id.
// Selecting an id again increments its quantity.
func (s *Server) handleServicesAdd(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req serviceRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	c := s.catalog()
	var selected addon.Selected
	if opt, found := c.Service(req.ServiceID); found {
		selected = addon.FromOption(opt)
		selected.ProductID = req.ProductID
	} else if rent, found := c.Rental(req.ServiceID); found {
		selected = addon.FromRental(rent)
	} else {
		writeError(w, catalog.ErrServiceNotFound)
		return
	}
	sel := sess.Services.AddService(r.Context(), selected)
	writeJSON(w, http.StatusOK, servicesView{Selection: sel, Total: sel.Total()})
}

func (s *Server) handleServicesRemove(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sel := sess.Services.RemoveService(r.Context(), r.PathValue("id"))
	writeJSON(w, http.StatusOK, servicesView{Selection: sel, Total: sel.Total()})
}

func (s *Server) handleServicesClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sel := sess.Services.ClearServices(r.Context())
	writeJSON(w, http.StatusOK, servicesView{Selection: sel, Total: sel.Total()})
}

// --- user ---

func (s *Server) handleUserGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.User.State())
}

// handleUserLogin records the shopper's identity. There are no credentials:
// the storefront trusts what the visitor types, as the browser version did.
func (s *Server) handleUserLogin(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req loginRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, sess.User.Login(r.Context(), req.Email, req.Name))
}

func (s *Server) handleUserLogout(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.User.Logout(r.Context()))
}

func (s *Server) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var patch user.Patch
	if !decodeRequest(w, r, &patch) {
		return
	}
	if !sess.User.IsLoggedIn() {
		writeError(w, user.ErrNotLoggedIn)
		return
	}
	writeJSON(w, http.StatusOK, sess.User.UpdateProfile(r.Context(), patch))
}

// --- cart ---

func (s *Server) handleCartGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newCartView(sess.Cart.Items()))
}

func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req cartAddRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	p, err := s.catalog().ProductByID(req.ProductID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !p.InStock() {
		writeError(w, errOutOfStock)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	c := sess.Cart.AddItem(r.Context(), cart.NewItem(p, req.Quantity))
	writeJSON(w, http.StatusOK, newCartView(c))
}

func (s *Server) handleCartQuantity(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	c := sess.Cart.UpdateQuantity(r.Context(), r.PathValue("productId"), req.Quantity)
	writeJSON(w, http.StatusOK, newCartView(c))
}

func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newCartView(sess.Cart.RemoveItem(r.Context(), r.PathValue("productId"))))
}

func (s *Server) handleCartClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newCartView(sess.Cart.ClearCart(r.Context())))
}

func (s *Server) handleCartAddService(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req cartServiceRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	opt, found := s.catalog().Service(req.ServiceID)
	if !found {
		writeError(w, catalog.ErrServiceNotFound)
		return
	}
	c := sess.Cart.AddServiceToProduct(r.Context(), r.PathValue("productId"), cart.ItemService{
		ServiceID:    opt.ID,
		ServiceName:  opt.Name,
		ServicePrice: opt.Price,
		ServiceType:  opt.Type,
	})
	writeJSON(w, http.StatusOK, newCartView(c))
}

func (s *Server) handleCartRemoveService(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	c := sess.Cart.RemoveServiceFromProduct(r.Context(), r.PathValue("productId"), r.PathValue("serviceId"))
	writeJSON(w, http.StatusOK, newCartView(c))
}

// --- addresses ---

func (s *Server) handleAddressList(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Addresses.Items())
}

func (s *Server) handleAddressAdd(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var a address.Address
	if !decodeRequest(w, r, &a) {
		return
	}
	book, id := sess.Addresses.AddAddress(r.Context(), a)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "addresses": book.Addresses})
}

func (s *Server) handleAddressUpdate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var patch address.Patch
	if !decodeRequest(w, r, &patch) {
		return
	}
	book, found := sess.Addresses.UpdateAddress(r.Context(), r.PathValue("id"), patch)
	if !found {
		writeError(w, errAddressNotFound)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleAddressDelete(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Addresses.DeleteAddress(r.Context(), r.PathValue("id")))
}

func (s *Server) handleAddressDefault(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if _, found := sess.Addresses.Get(id); !found {
		writeError(w, errAddressNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.Addresses.SetDefaultAddress(r.Context(), id))
}

// --- orders ---

// handleOrderList serves the logged-in shopper's orders, oldest first.
func (s *Server) handleOrderList(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	profile := sess.User.User()
	if profile == nil {
		writeError(w, user.ErrNotLoggedIn)
		return
	}
	orders := sess.Orders.UserOrders(profile.ID)
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *Server) handleOrderGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	o, err := sess.Orders.GetOrder(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// handleCheckout serves POST /api/orders: the session cart becomes an order.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	deps := orchestrators.PlaceOrderDeps{
		Session: sess,
		Outbox:  s.deps.Outbox,
		Rules:   s.deps.Rules,
		Now:     s.deps.Now,
	}
	result, err := orchestrators.ExecutePlaceOrder(r.Context(), orchestrators.PlaceOrderInput{
		PaymentMethod:  req.PaymentMethod,
		ShippingMethod: req.ShippingMethod,
		AddressID:      req.AddressID,
	}, deps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"order": result.Order, "emailQueued": result.EmailQueued})
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	o, err := sess.Orders.UpdateOrderStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
