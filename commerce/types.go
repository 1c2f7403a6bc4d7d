package commerce

import "time"

// Sync type names, one outbox partition each.
const (
	SyncTypeOrders         = "orders"
	SyncTypeSubscriptions  = "subscriptions"
	SyncTypeContacts       = "contacts"
	SyncTypeProducts       = "products"
	SyncTypeAbandonedCarts = "abandoned_carts"
)

// SyncTypes lists every sync type in scheduling order.
func SyncTypes() []string {
	return []string{
		SyncTypeOrders,
		SyncTypeSubscriptions,
		SyncTypeContacts,
		SyncTypeProducts,
		SyncTypeAbandonedCarts,
	}
}

// OrderItem is one line of an order or cart.
type OrderItem struct {
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// Order is the source commerce order as fetched at serialization time.
type Order struct {
	ID        int64
	Email     string
	Status    string
	Currency  string
	Total     string
	Items     []OrderItem
	CreatedAt time.Time
	// Trashed marks soft-deleted source records; they never sync.
	Trashed bool
}

// Subscription is a recurring payment record.
type Subscription struct {
	ID          int64
	Email       string
	Status      string
	Currency    string
	Amount      string
	Interval    string
	NextPayment time.Time
	CreatedAt   time.Time
	Trashed     bool
}

// Contact is a customer profile.
type Contact struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Trashed   bool
}

// Product is a catalog entry.
type Product struct {
	ID          int64
	Name        string
	SKU         string
	Price       string
	Description string
	URL         string
	Trashed     bool
}

// CartSnapshot is the denormalized abandoned-cart state captured by the
// cart-change path and stored on the outbox row, so the payload can be
// rebuilt without re-querying a session that may be gone.
type CartSnapshot struct {
	Email       string      `json:"email"`
	SessionKey  string      `json:"session_key"`
	Currency    string      `json:"currency"`
	Total       string      `json:"total"`
	Items       []OrderItem `json:"items"`
	AbandonedAt time.Time   `json:"abandoned_at"`
}
