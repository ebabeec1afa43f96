package web

import (
	"net/http"
	"testing"
)

// TestRoutes_Registered checks every route resolves to a handler: neither the
// mux's 404 nor its 405. Bodies are empty, so mutating routes answer 400.
func TestRoutes_Registered(t *testing.T) {
	env := newTestEnv(t, nil)

	routes := []struct {
		method, path string
		want         int
	}{
		{"GET", "/api/products", http.StatusOK},
		{"GET", "/api/categories", http.StatusOK},
		{"GET", "/api/service-options", http.StatusOK},
		{"GET", "/api/pricing", http.StatusOK},
		{"GET", "/api/compare", http.StatusOK},
		{"POST", "/api/compare", http.StatusBadRequest},
		{"POST", "/api/compare/toggle", http.StatusBadRequest},
		{"GET", "/api/compare/p001", http.StatusOK},
		{"DELETE", "/api/compare/p001", http.StatusOK},
		{"GET", "/api/favorites", http.StatusOK},
		{"POST", "/api/favorites/toggle", http.StatusBadRequest},
		{"DELETE", "/api/favorites", http.StatusOK},
		{"GET", "/api/services", http.StatusOK},
		{"GET", "/api/services/total", http.StatusOK},
		{"DELETE", "/api/services/inst-001", http.StatusOK},
		{"DELETE", "/api/services", http.StatusOK},
		{"GET", "/api/user", http.StatusOK},
		{"POST", "/api/user/login", http.StatusBadRequest},
		{"POST", "/api/user/logout", http.StatusOK},
		{"GET", "/api/cart", http.StatusOK},
		{"POST", "/api/cart", http.StatusBadRequest},
		{"DELETE", "/api/cart/p001", http.StatusOK},
		{"GET", "/api/addresses", http.StatusOK},
		{"POST", "/api/addresses", http.StatusBadRequest},
		{"DELETE", "/api/addresses/a1", http.StatusOK},
		{"POST", "/api/orders", http.StatusBadRequest},
		{"GET", "/api/orders/ORD-1", http.StatusNotFound},
		{"GET", "/api/state", http.StatusOK},
		{"GET", "/api/csrf", http.StatusOK},
		{"GET", "/healthz", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			resp, body := env.do(t, rt.method, rt.path, nil)
			if resp.StatusCode != rt.want {
				t.Errorf("status %d, want %d (body %s)", resp.StatusCode, rt.want, body)
			}
		})
	}
}

func TestRoutes_UnknownAndWrongMethod(t *testing.T) {
	env := newTestEnv(t, nil)

	if resp, _ := env.do(t, "GET", "/api/nowhere", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path: status %d, want 404", resp.StatusCode)
	}
	if resp, _ := env.do(t, "PUT", "/api/cart", nil); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("wrong method: status %d, want 405", resp.StatusCode)
	}
}
