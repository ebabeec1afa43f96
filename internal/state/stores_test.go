package state

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"storefront/internal/domain/addon"
	"storefront/internal/domain/address"
	"storefront/internal/domain/cart"
	"storefront/internal/domain/catalog"
	"storefront/internal/domain/compare"
	"storefront/internal/domain/order"
	"storefront/internal/domain/user"
)

// TestCompareStore_CapAndUniqueness adds many products, some repeatedly.
func TestCompareStore_CapAndUniqueness(t *testing.T) {
	s := openSession(t, newTestRegistry(newMemStore()), "tok")
	ctx := context.Background()

	ids := []string{"p001", "p002", "p001", "p003", "p004", "p005", "p002", "p006"}
	for _, id := range ids {
		l, err := s.Compare.AddItem(ctx, product(id, 100), "/img/"+id+".jpg")
		if err != nil {
			t.Fatalf("AddItem(%s): %v", id, err)
		}
		if l.Count() > compare.MaxItems {
			t.Fatalf("count = %d exceeds cap", l.Count())
		}
		seen := map[string]bool{}
		for _, e := range l.Items {
			if seen[e.ID] {
				t.Fatalf("duplicate id %s", e.ID)
			}
			seen[e.ID] = true
		}
	}
	if s.Compare.IsComparing("p005") || !s.Compare.IsComparing("p004") {
		t.Errorf("ignore policy should keep the first four, got %+v", s.Compare.Items())
	}
}

// TestCompareStore_RejectPolicy reports a full comparison.
func TestCompareStore_RejectPolicy(t *testing.T) {
	r := NewRegistry(newMemStore(), Options{ComparePolicy: compare.PolicyReject, Now: fixedClock})
	s := openSession(t, r, "tok")
	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		s.Compare.AddItem(ctx, product("p00"+string(rune('0'+i)), 1), "")
	}
	if _, err := s.Compare.AddItem(ctx, product("p009", 1), ""); !errors.Is(err, compare.ErrComparisonFull) {
		t.Errorf("err = %v, want ErrComparisonFull", err)
	}
	if s.Compare.Count() != 4 {
		t.Errorf("count = %d, want 4", s.Compare.Count())
	}
}

// TestCompareStore_ToggleIsInverse restores the prior collection.
func TestCompareStore_ToggleIsInverse(t *testing.T) {
	s := openSession(t, newTestRegistry(newMemStore()), "tok")
	ctx := context.Background()
	s.Compare.AddItem(ctx, product("p001", 10), "")
	before := s.Compare.Items()

	s.Compare.ToggleItem(ctx, product("p002", 20), "")
	after, _ := s.Compare.ToggleItem(ctx, product("p002", 20), "")

	if diff := cmp.Diff(before, after, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("toggle twice changed state (-before +after):\n%s", diff)
	}
}

// TestFavoritesStore_SetSemantics covers duplicates and absent removals.
func TestFavoritesStore_SetSemantics(t *testing.T) {
	s := openSession(t, newTestRegistry(newMemStore()), "tok")
	ctx := context.Background()
	s.Favorites.AddFavorite(ctx, product("p001", 10))
	s.Favorites.AddFavorite(ctx, product("p001", 10))
	before := s.Favorites.Items()
	after := s.Favorites.RemoveFavorite(ctx, "p999")

	if s.Favorites.Count() != 1 {
		t.Errorf("count = %d, want 1", s.Favorites.Count())
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("removing an absent id changed state:\n%s", diff)
	}
	s.Favorites.ToggleFavorite(ctx, product("p001", 10))
	if s.Favorites.IsFavorite("p001") {
		t.Error("toggle should remove")
	}
}

// TestServiceStore_QuantityAndTotal covers repeated adds and removal.
func TestServiceStore_QuantityAndTotal(t *testing.T) {
	s := openSession(t, newTestRegistry(newMemStore()), "tok")
	ctx := context.Background()
	install := addon.Selected{ID: "inst-001", Name: "Instalação", Price: 299, Type: catalog.ServiceInstallation}
	warranty := addon.Selected{ID: "war-001", Name: "Garantia", Price: 99, Type: catalog.ServiceWarranty}

	s.Services.AddService(ctx, install)
	s.Services.AddService(ctx, install)
	sel := s.Services.AddService(ctx, warranty)

	if len(sel.SelectedServices) != 2 || sel.SelectedServices[0].Quantity != 2 {
		t.Fatalf("unexpected selection %+v", sel)
	}
	if got := s.Services.GetTotal(); got != 299*2+99 {
		t.Errorf("total = %v", got)
	}
	s.Services.RemoveService(ctx, "inst-001")
	if got := s.Services.GetTotal(); got != 99 {
		t.Errorf("total after remove = %v, want 99", got)
	}
}

// TestUserStore_LoginLogoutUpdate follows the profile lifecycle.
func TestUserStore_LoginLogoutUpdate(t *testing.T) {
	s := openSession(t, newTestRegistry(newMemStore()), "tok")
	ctx := context.Background()

	s.User.Login(ctx, "a@x.com", "Ana")
	if !s.User.IsLoggedIn() || s.User.User().Email != "a@x.com" || s.User.User().ID != "user-1" {
		t.Fatalf("unexpected state %+v", s.User.State())
	}
	phone := "123"
	st := s.User.UpdateProfile(ctx, user.Patch{Phone: &phone})
	if st.User.Phone != "123" || st.User.Name != "Ana" || st.User.Email != "a@x.com" {
		t.Errorf("merge lost fields: %+v", st.User)
	}
	s.User.Logout(ctx)
	if s.User.IsLoggedIn() || s.User.User() != nil {
		t.Error("expected logged out")
	}
}

// TestUserStore_DefaultIssuerIsUnique issues distinct ids for rapid logins.
func TestUserStore_DefaultIssuerIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for range 100 {
		id := DefaultIDIssuer()
		if !strings.HasPrefix(id, "user-") || seen[id] {
			t.Fatalf("bad or repeated id %q", id)
		}
		seen[id] = true
	}
}

// TestCartStore_MergeAndTotals uses the session clock for line ids.
func TestCartStore_MergeAndTotals(t *testing.T) {
	s := openSession(t, newTestRegistry(newMemStore()), "tok")
	ctx := context.Background()
	s.Cart.AddItem(ctx, cart.NewItem(product("p001", 100), 1))
	s.Cart.AddItem(ctx, cart.NewItem(product("p001", 100), 2))
	c := s.Cart.AddServiceToProduct(ctx, "p001", cart.ItemService{ServiceID: "inst-001", ServicePrice: 50})

	if len(c.Items) != 1 || c.Items[0].ID != "p001-1772366400000" {
		t.Fatalf("unexpected cart %+v", c)
	}
	if s.Cart.TotalPrice() != 350 || s.Cart.TotalItems() != 3 {
		t.Errorf("totals = %v/%d", s.Cart.TotalPrice(), s.Cart.TotalItems())
	}
	s.Cart.ClearCart(ctx)
	if s.Cart.TotalItems() != 0 {
		t.Error("expected empty cart")
	}
}

// TestCartStore_RemoveOrdered keeps lines added after the ordered snapshot.
func TestCartStore_RemoveOrdered(t *testing.T) {
	s := openSession(t, newTestRegistry(newMemStore()), "tok")
	ctx := context.Background()
	ordered := s.Cart.AddItem(ctx, cart.NewItem(product("p001", 100), 1))
	s.Cart.AddItem(ctx, cart.NewItem(product("p002", 30), 1))

	left := s.Cart.RemoveOrdered(ctx, ordered)
	if len(left.Items) != 1 || left.Items[0].ProductID != "p002" {
		t.Errorf("cart after removal = %+v, want only p002", left.Items)
	}
}

// TestAddressStore_DefaultAndUpdate keeps a single default.
func TestAddressStore_DefaultAndUpdate(t *testing.T) {
	s := openSession(t, newTestRegistry(newMemStore()), "tok")
	ctx := context.Background()
	_, first := s.Addresses.AddAddress(ctx, address.Address{Name: "Casa", IsDefault: true})
	_, second := s.Addresses.AddAddress(ctx, address.Address{Name: "Trabalho"})
	if !strings.HasPrefix(first, "addr-1772366400000-") || first == second {
		t.Fatalf("ids %q %q", first, second)
	}

	s.Addresses.SetDefaultAddress(ctx, second)
	d, ok := s.Addresses.DefaultAddress()
	if !ok || d.ID != second {
		t.Errorf("default = %+v", d)
	}
	if _, found := s.Addresses.UpdateAddress(ctx, "missing", address.Patch{}); found {
		t.Error("unknown id should not be found")
	}
}

// TestOrderStore_CreateAndFilter assigns ids and filters by user.
func TestOrderStore_CreateAndFilter(t *testing.T) {
	s := openSession(t, newTestRegistry(newMemStore()), "tok")
	ctx := context.Background()
	base := order.Order{PaymentMethod: order.PaymentPix, ShippingMethod: order.ShippingDelivery, Status: order.StatusConfirmed}

	a := base
	a.UserID = "user-a"
	idA, err := s.Orders.CreateOrder(ctx, a)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	b := base
	b.UserID = "user-b"
	s.Orders.CreateOrder(ctx, b)

	if got := s.Orders.UserOrders("user-a"); len(got) != 1 || got[0].ID != idA {
		t.Errorf("user-a orders = %+v", got)
	}
	o, err := s.Orders.UpdateOrderStatus(ctx, idA, order.StatusShipped)
	if err != nil || o.Status != order.StatusShipped {
		t.Errorf("update: %+v %v", o, err)
	}
	if _, err := s.Orders.UpdateOrderStatus(ctx, idA, "perdido"); !errors.Is(err, order.ErrInvalidStatus) {
		t.Errorf("err = %v, want ErrInvalidStatus", err)
	}
	if _, err := s.Orders.GetOrder("ORD-0"); !errors.Is(err, order.ErrOrderNotFound) {
		t.Errorf("err = %v, want ErrOrderNotFound", err)
	}
	bad := base
	bad.PaymentMethod = "cheque"
	if _, err := s.Orders.CreateOrder(ctx, bad); err == nil {
		t.Error("expected validation error")
	}
}

// TestPersisted_RoundTrip reloads every container from storage.
func TestPersisted_RoundTrip(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	s := openSession(t, newTestRegistry(store), "tok")
	s.Compare.AddItem(ctx, product("p001", 10), "/img/p001.jpg")
	s.Favorites.AddFavorite(ctx, catalog.Product{ID: "p002", Name: "TV", Specs: map[string]string{"Tela": "55"}})
	s.Services.AddService(ctx, addon.Selected{ID: "rent-p001-m", Price: 189, Type: catalog.ServiceRental, Duration: catalog.RentMonthly, ProductID: "p001"})
	s.User.Login(ctx, "a@x.com", "Ana")
	s.Cart.AddItem(ctx, cart.NewItem(product("p003", 30), 2))
	s.Addresses.AddAddress(ctx, address.Address{Name: "Casa", City: "Juiz de Fora", IsDefault: true})
	s.Orders.CreateOrder(ctx, order.Order{UserID: "user-1", PaymentMethod: order.PaymentBoleto, ShippingMethod: order.ShippingPickup, Status: order.StatusConfirmed})

	reloaded := openSession(t, newTestRegistry(store), "tok")

	opts := cmpopts.EquateEmpty()
	checks := []struct {
		name      string
		want, got any
	}{
		{"compare", s.Compare.Items(), reloaded.Compare.Items()},
		{"favorites", s.Favorites.Items(), reloaded.Favorites.Items()},
		{"services", s.Services.Items(), reloaded.Services.Items()},
		{"user", s.User.State(), reloaded.User.State()},
		{"cart", s.Cart.Items(), reloaded.Cart.Items()},
		{"addresses", s.Addresses.Items(), reloaded.Addresses.Items()},
		{"orders", s.Orders.p.Snapshot(), reloaded.Orders.p.Snapshot()},
	}
	for _, c := range checks {
		if diff := cmp.Diff(c.want, c.got, opts); diff != "" {
			t.Errorf("%s round trip mismatch (-want +got):\n%s", c.name, diff)
		}
	}
}

// TestPersisted_EnvelopeFormat writes the browser-compatible envelope.
func TestPersisted_EnvelopeFormat(t *testing.T) {
	store := newMemStore()
	s := openSession(t, newTestRegistry(store), "tok")
	s.Compare.AddItem(context.Background(), product("p001", 10), "/i.jpg")

	var env struct {
		State struct {
			Items []map[string]any `json:"items"`
		} `json:"state"`
		Version *int `json:"version"`
	}
	if err := json.Unmarshal([]byte(store.raw("tok", NamespaceCompare)), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Version == nil || *env.Version != 0 || len(env.State.Items) != 1 || env.State.Items[0]["image"] != "/i.jpg" {
		t.Errorf("unexpected envelope %+v", env)
	}
}

// TestPersisted_MalformedFallsBackToDefault never surfaces decode errors.
func TestPersisted_MalformedFallsBackToDefault(t *testing.T) {
	store := newMemStore()
	store.seed("tok", NamespaceFavorites, `{"state": [1, 2`)
	store.seed("tok", NamespaceUser, `"just a string"`)
	store.seed("tok", NamespaceCompare, `{"state":{"items":[{"id":"p001"},{"id":"p001"},{"id":"p002"},{"id":"p003"},{"id":"p004"},{"id":"p005"}]},"version":0}`)

	s := openSession(t, newTestRegistry(store), "tok")
	if s.Favorites.Count() != 0 || s.User.IsLoggedIn() {
		t.Error("malformed namespaces should load as empty")
	}
	if s.Compare.Count() != 4 || s.Compare.IsComparing("p005") {
		t.Errorf("loaded compare list must be normalized, got %+v", s.Compare.Items())
	}
}

// TestPersisted_ReadFailureFallsBack opens empty containers when the store is down.
func TestPersisted_ReadFailureFallsBack(t *testing.T) {
	store := newMemStore()
	store.failList = errDisk
	s := openSession(t, newTestRegistry(store), "tok")
	if s.Cart.TotalItems() != 0 {
		t.Error("expected empty cart")
	}
}

// TestPersisted_WriteFailureIsNotSurfaced keeps the in-memory state authoritative.
func TestPersisted_WriteFailureIsNotSurfaced(t *testing.T) {
	store := newMemStore()
	store.failPut = errDisk
	s := openSession(t, newTestRegistry(store), "tok")

	l, err := s.Compare.AddItem(context.Background(), product("p001", 10), "")
	if err != nil {
		t.Fatalf("write failure leaked to caller: %v", err)
	}
	if l.Count() != 1 || !s.Compare.IsComparing("p001") {
		t.Error("mutation must apply despite the failed write")
	}
}

// TestPersisted_OneEventPerCommittedMutation publishes nothing for no-ops.
func TestPersisted_OneEventPerCommittedMutation(t *testing.T) {
	store := newMemStore()
	s := openSession(t, newTestRegistry(store), "tok")
	ctx := context.Background()

	var events []Change
	unsub := s.Hub.Subscribe(func(c Change) { events = append(events, c) })
	defer unsub()

	s.Favorites.AddFavorite(ctx, product("p001", 10))
	s.Favorites.AddFavorite(ctx, product("p001", 10))
	s.Favorites.RemoveFavorite(ctx, "p999")
	s.Compare.ClearAll(ctx)
	s.User.UpdateProfile(ctx, user.Patch{})
	s.Favorites.RemoveFavorite(ctx, "p001")

	if len(events) != 2 {
		t.Fatalf("events = %d, want 2: %+v", len(events), events)
	}
	if events[0].Namespace != NamespaceFavorites || events[0].Seq != 1 || events[1].Seq != 2 {
		t.Errorf("unexpected events %+v", events)
	}
	if !strings.Contains(string(events[0].State), `"p001"`) || string(events[1].State) != `{"favorites":[]}` {
		t.Errorf("event payloads %s / %s", events[0].State, events[1].State)
	}
	if puts := store.putCalls.Load(); puts != 2 {
		t.Errorf("puts = %d, want 2", puts)
	}
}

// TestPersisted_SnapshotIsolation verifies callers cannot mutate container state.
func TestPersisted_SnapshotIsolation(t *testing.T) {
	s := openSession(t, newTestRegistry(newMemStore()), "tok")
	l, _ := s.Compare.AddItem(context.Background(), product("p001", 10), "")
	l.Items[0].Name = "tampered"
	if s.Compare.Items().Items[0].Name == "tampered" {
		t.Error("returned snapshot aliases container state")
	}
}

// TestSession_ImportBrowserSnapshot accepts enveloped and bare JSON.
func TestSession_ImportBrowserSnapshot(t *testing.T) {
	store := newMemStore()
	s := openSession(t, newTestRegistry(store), "tok")
	ctx := context.Background()

	var events int
	s.Hub.Subscribe(func(Change) { events++ })

	enveloped := `{"state":{"user":{"id":"user-9","email":"b@x.com","name":"Bia","phone":""},"isLoggedIn":true},"version":0}`
	if err := s.Import(ctx, NamespaceUser, []byte(enveloped)); err != nil {
		t.Fatalf("Import enveloped: %v", err)
	}
	if s.User.User() == nil || s.User.User().Email != "b@x.com" {
		t.Errorf("user not imported: %+v", s.User.State())
	}

	bare := `{"selectedServices":[{"id":"war-001","name":"Garantia","price":99,"type":"warranty"}]}`
	if err := s.Import(ctx, NamespaceServices, []byte(bare)); err != nil {
		t.Fatalf("Import bare: %v", err)
	}
	if s.Services.GetTotal() != 99 {
		t.Errorf("total = %v", s.Services.GetTotal())
	}

	if err := s.Import(ctx, NamespaceServices, []byte(bare)); err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if events != 2 {
		t.Errorf("events = %d, want 2 (identical import publishes nothing)", events)
	}

	if err := s.Import(ctx, "theme-storage", []byte(bare)); !errors.Is(err, ErrUnknownNamespace) {
		t.Errorf("err = %v, want ErrUnknownNamespace", err)
	}
	if err := s.Import(ctx, NamespaceCart, []byte(`[1,2]`)); !errors.Is(err, ErrMalformedSnapshot) {
		t.Errorf("err = %v, want ErrMalformedSnapshot", err)
	}

	exported := s.Export()
	if len(exported) != len(Namespaces) {
		t.Errorf("export has %d namespaces", len(exported))
	}
	if !strings.Contains(string(exported[NamespaceUser]), "b@x.com") {
		t.Errorf("export user = %s", exported[NamespaceUser])
	}
}

// TestSession_ImportAllIsAtomic leaves every container untouched when any
// snapshot fails typed decoding, even one ordered after a valid snapshot.
func TestSession_ImportAllIsAtomic(t *testing.T) {
	s := openSession(t, newTestRegistry(newMemStore()), "tok")
	ctx := context.Background()

	var events int
	s.Hub.Subscribe(func(Change) { events++ })

	_, err := s.ImportAll(ctx, map[string][]byte{
		NamespaceCompare:   []byte(`{"state":{"items":[{"id":"p001","name":"Geladeira"}]}}`),
		NamespaceFavorites: []byte(`{"state":{"favorites":5}}`),
	})
	if !errors.Is(err, ErrMalformedSnapshot) {
		t.Fatalf("err = %v, want ErrMalformedSnapshot", err)
	}
	if n := s.Compare.Count(); n != 0 {
		t.Errorf("compare count = %d after rejected import, want 0", n)
	}
	if events != 0 {
		t.Errorf("events = %d after rejected import, want 0", events)
	}

	if _, err := s.ImportAll(ctx, map[string][]byte{"theme-storage": []byte(`{}`)}); !errors.Is(err, ErrUnknownNamespace) {
		t.Errorf("err = %v, want ErrUnknownNamespace", err)
	}

	imported, err := s.ImportAll(ctx, map[string][]byte{
		NamespaceFavorites: []byte(`{"favorites":[{"id":"p002","name":"Fogao"}]}`),
		NamespaceCompare:   []byte(`{"state":{"items":[{"id":"p001","name":"Geladeira"}]}}`),
	})
	if err != nil {
		t.Fatalf("ImportAll: %v", err)
	}
	if diff := cmp.Diff([]string{NamespaceCompare, NamespaceFavorites}, imported); diff != "" {
		t.Errorf("imported namespaces (-want +got):\n%s", diff)
	}
	if !s.Compare.IsComparing("p001") || !s.Favorites.IsFavorite("p002") {
		t.Error("valid import was not applied")
	}
}

func TestDecodeSnapshot(t *testing.T) {
	type snap struct {
		Items []string `json:"items"`
	}
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{`{"state":{"items":["a"]},"version":0}`, []string{"a"}, false},
		{`{"items":["b"]}`, []string{"b"}, false},
		{`{"state":"oops"}`, nil, true},
		{`not json`, nil, true},
		{`[]`, nil, true},
		{`{"items":"wrong type"}`, nil, true},
	}
	for _, tc := range tests {
		got, err := DecodeSnapshot[snap]([]byte(tc.in))
		if (err != nil) != tc.wantErr {
			t.Errorf("DecodeSnapshot(%s) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrMalformedSnapshot) {
			t.Errorf("error %v does not wrap ErrMalformedSnapshot", err)
		}
		if !tc.wantErr && !cmp.Equal(got.Items, tc.want) {
			t.Errorf("DecodeSnapshot(%s) = %v, want %v", tc.in, got.Items, tc.want)
		}
	}
}

func cartItem(productID string) cart.Item {
	return cart.NewItem(product(productID, 10), 1)
}
