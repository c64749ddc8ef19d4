package port

import "context"

// Keys under which the engine's collections are persisted. Each
// collection is written independently; there is no multi-key
// transaction guarantee.
const (
	KeySKUs           = "skus"
	KeyStores         = "stores"
	KeyInventory      = "inventory"
	KeySales          = "sales"
	KeyPurchaseOrders = "purchaseOrders"
	KeyAlerts         = "alerts"
)

// Gateway is the namespaced key/value persistence contract. Values are
// JSON-serializable aggregates. The gateway holds a durable mirror of
// the in-memory state: it is written after every mutation and read only
// at startup or explicit reload.
type Gateway interface {
	// Get unmarshals the value stored under key into out. It returns
	// false when the key has never been written; out is left untouched.
	Get(ctx context.Context, key string, out any) (bool, error)

	// Set marshals value and stores it under key, replacing any
	// previous value.
	Set(ctx context.Context, key string, value any) error
}
