package state

// Storage namespaces, one per container. The names match the keys the
// browser storefront used in local storage so exported snapshots import as-is.
const (
	NamespaceCompare   = "compare-storage"
	NamespaceFavorites = "favorites-storage"
	NamespaceServices  = "services-storage"
	NamespaceUser      = "user-storage"
	NamespaceCart      = "cart-storage"
	NamespaceAddress   = "address-storage"
	NamespaceOrder     = "order-storage"
)

// Namespaces lists every container namespace in load order.
var Namespaces = []string{
	NamespaceCompare,
	NamespaceFavorites,
	NamespaceServices,
	NamespaceUser,
	NamespaceCart,
	NamespaceAddress,
	NamespaceOrder,
}
