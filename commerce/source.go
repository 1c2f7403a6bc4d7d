package commerce

import "context"

// Source fetches full records from the commerce platform's data store.
// Fetches happen only at serialization time so unreferenced records are
// never loaded.
type Source interface {
	// Order returns the order, or nil when it does not exist.
	Order(ctx context.Context, id int64) (*Order, error)
	// Subscription returns the subscription, or nil when it does not exist.
	Subscription(ctx context.Context, id int64) (*Subscription, error)
	// Contact returns the contact, or nil when it does not exist.
	Contact(ctx context.Context, id int64) (*Contact, error)
	// Product returns the product, or nil when it does not exist.
	Product(ctx context.Context, id int64) (*Product, error)
}
