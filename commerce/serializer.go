package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopsync/syncpump"
)

// Remote first_key groupings, one per entity type.
const (
	firstKeyOrders         = "storeOrders"
	firstKeySubscriptions  = "storeRecurringPayments"
	firstKeyContacts       = "contacts"
	firstKeyProducts       = "storeProducts"
	firstKeyAbandonedCarts = "storeAbandonedCarts"
)

func incompatible(format string, args ...any) error {
	return fmt.Errorf("%w: %s", syncpump.ErrIncompatibleRecord, fmt.Sprintf(format, args...))
}

func marshalPayload(foreignID int64, body any) (syncpump.Payload, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return syncpump.Payload{}, fmt.Errorf("commerce: marshal payload failed: %w", err)
	}

	return syncpump.Payload{
		ForeignID: foreignID,
		Body:      raw,
		Weight:    syncpump.PayloadWeight(raw),
	}, nil
}

// OrderSerializer shapes order wire payloads.
type OrderSerializer struct {
	source Source
}

// NewOrderSerializer constructs an order serializer over the source.
func NewOrderSerializer(source Source) OrderSerializer {
	return OrderSerializer{source: source}
}

var _ syncpump.Serializer = OrderSerializer{}

type orderPayload struct {
	StoreOrderID int64       `json:"storeOrderId"`
	Email        string      `json:"email"`
	Status       string      `json:"status"`
	Currency     string      `json:"currency"`
	Total        string      `json:"total"`
	Items        []OrderItem `json:"items"`
	OrderDate    time.Time   `json:"orderDate"`
}

// FirstKey implements syncpump.Serializer.
func (OrderSerializer) FirstKey() string {
	return firstKeyOrders
}

// Serialize implements syncpump.Serializer.
func (s OrderSerializer) Serialize(ctx context.Context, row syncpump.Row) (syncpump.Payload, error) {
	order, err := s.source.Order(ctx, row.ForeignID)
	if err != nil {
		return syncpump.Payload{}, fmt.Errorf("commerce: fetch order %d failed: %w", row.ForeignID, err)
	}
	if order == nil || order.Trashed {
		return syncpump.Payload{}, incompatible("order %d is missing or trashed", row.ForeignID)
	}
	if !validEmail(order.Email) {
		return syncpump.Payload{}, incompatible("order %d has invalid email", row.ForeignID)
	}
	if order.Total == "" || order.Currency == "" {
		return syncpump.Payload{}, incompatible("order %d is missing totals", row.ForeignID)
	}

	return marshalPayload(order.ID, orderPayload{
		StoreOrderID: order.ID,
		Email:        order.Email,
		Status:       order.Status,
		Currency:     order.Currency,
		Total:        order.Total,
		Items:        order.Items,
		OrderDate:    order.CreatedAt,
	})
}

// SubscriptionSerializer shapes recurring-payment wire payloads.
type SubscriptionSerializer struct {
	source Source
}

// NewSubscriptionSerializer constructs a subscription serializer over the source.
func NewSubscriptionSerializer(source Source) SubscriptionSerializer {
	return SubscriptionSerializer{source: source}
}

var _ syncpump.Serializer = SubscriptionSerializer{}

type subscriptionPayload struct {
	StoreRecurringPaymentID int64     `json:"storeRecurringPaymentId"`
	Email                   string    `json:"email"`
	Status                  string    `json:"status"`
	Currency                string    `json:"currency"`
	Amount                  string    `json:"amount"`
	Interval                string    `json:"interval"`
	NextPaymentDate         time.Time `json:"nextPaymentDate"`
	StartDate               time.Time `json:"startDate"`
}

// FirstKey implements syncpump.Serializer.
func (SubscriptionSerializer) FirstKey() string {
	return firstKeySubscriptions
}

// Serialize implements syncpump.Serializer.
func (s SubscriptionSerializer) Serialize(ctx context.Context, row syncpump.Row) (syncpump.Payload, error) {
	sub, err := s.source.Subscription(ctx, row.ForeignID)
	if err != nil {
		return syncpump.Payload{}, fmt.Errorf("commerce: fetch subscription %d failed: %w", row.ForeignID, err)
	}
	if sub == nil || sub.Trashed {
		return syncpump.Payload{}, incompatible("subscription %d is missing or trashed", row.ForeignID)
	}
	if !validEmail(sub.Email) {
		return syncpump.Payload{}, incompatible("subscription %d has invalid email", row.ForeignID)
	}

	return marshalPayload(sub.ID, subscriptionPayload{
		StoreRecurringPaymentID: sub.ID,
		Email:                   sub.Email,
		Status:                  sub.Status,
		Currency:                sub.Currency,
		Amount:                  sub.Amount,
		Interval:                sub.Interval,
		NextPaymentDate:         sub.NextPayment,
		StartDate:               sub.CreatedAt,
	})
}

// ContactSerializer shapes contact wire payloads.
type ContactSerializer struct {
	source Source
}

// NewContactSerializer constructs a contact serializer over the source.
func NewContactSerializer(source Source) ContactSerializer {
	return ContactSerializer{source: source}
}

var _ syncpump.Serializer = ContactSerializer{}

type contactPayload struct {
	StoreContactID int64  `json:"storeContactId"`
	Email          string `json:"email"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Phone          string `json:"phone"`
}

// FirstKey implements syncpump.Serializer.
func (ContactSerializer) FirstKey() string {
	return firstKeyContacts
}

// Serialize implements syncpump.Serializer.
func (s ContactSerializer) Serialize(ctx context.Context, row syncpump.Row) (syncpump.Payload, error) {
	contact, err := s.source.Contact(ctx, row.ForeignID)
	if err != nil {
		return syncpump.Payload{}, fmt.Errorf("commerce: fetch contact %d failed: %w", row.ForeignID, err)
	}
	if contact == nil || contact.Trashed {
		return syncpump.Payload{}, incompatible("contact %d is missing or trashed", row.ForeignID)
	}
	if !validEmail(contact.Email) {
		return syncpump.Payload{}, incompatible("contact %d has invalid email", row.ForeignID)
	}

	return marshalPayload(contact.ID, contactPayload{
		StoreContactID: contact.ID,
		Email:          contact.Email,
		FirstName:      contact.FirstName,
		LastName:       contact.LastName,
		Phone:          contact.Phone,
	})
}

// ProductSerializer shapes product wire payloads.
type ProductSerializer struct {
	source Source
}

// NewProductSerializer constructs a product serializer over the source.
func NewProductSerializer(source Source) ProductSerializer {
	return ProductSerializer{source: source}
}

var _ syncpump.Serializer = ProductSerializer{}

type productPayload struct {
	StoreProductID int64  `json:"storeProductId"`
	Name           string `json:"name"`
	SKU            string `json:"sku"`
	Price          string `json:"price"`
	Description    string `json:"description"`
	URL            string `json:"url"`
}

// FirstKey implements syncpump.Serializer.
func (ProductSerializer) FirstKey() string {
	return firstKeyProducts
}

// Serialize implements syncpump.Serializer.
func (s ProductSerializer) Serialize(ctx context.Context, row syncpump.Row) (syncpump.Payload, error) {
	product, err := s.source.Product(ctx, row.ForeignID)
	if err != nil {
		return syncpump.Payload{}, fmt.Errorf("commerce: fetch product %d failed: %w", row.ForeignID, err)
	}
	if product == nil || product.Trashed {
		return syncpump.Payload{}, incompatible("product %d is missing or trashed", row.ForeignID)
	}
	if product.Name == "" || product.SKU == "" {
		return syncpump.Payload{}, incompatible("product %d is missing name or sku", row.ForeignID)
	}

	return marshalPayload(product.ID, productPayload{
		StoreProductID: product.ID,
		Name:           product.Name,
		SKU:            product.SKU,
		Price:          product.Price,
		Description:    product.Description,
		URL:            product.URL,
	})
}

// CartSerializer shapes abandoned-cart payloads from the snapshot captured
// on the outbox row; the cart session itself may no longer exist.
type CartSerializer struct{}

// NewCartSerializer constructs an abandoned-cart serializer.
func NewCartSerializer() CartSerializer {
	return CartSerializer{}
}

var _ syncpump.Serializer = CartSerializer{}

type cartPayload struct {
	StoreCartID int64       `json:"storeCartId"`
	Email       string      `json:"email"`
	Currency    string      `json:"currency"`
	Total       string      `json:"total"`
	Items       []OrderItem `json:"items"`
	AbandonedAt time.Time   `json:"abandonedDate"`
}

// FirstKey implements syncpump.Serializer.
func (CartSerializer) FirstKey() string {
	return firstKeyAbandonedCarts
}

// Serialize implements syncpump.Serializer.
func (CartSerializer) Serialize(_ context.Context, row syncpump.Row) (syncpump.Payload, error) {
	if len(row.Snapshot) == 0 {
		return syncpump.Payload{}, incompatible("cart %d has no snapshot", row.ForeignID)
	}

	var snapshot CartSnapshot
	if err := json.Unmarshal(row.Snapshot, &snapshot); err != nil {
		return syncpump.Payload{}, incompatible("cart %d snapshot is unreadable: %v", row.ForeignID, err)
	}
	if !validEmail(snapshot.Email) {
		return syncpump.Payload{}, incompatible("cart %d has invalid email", row.ForeignID)
	}
	if len(snapshot.Items) == 0 {
		return syncpump.Payload{}, incompatible("cart %d is empty", row.ForeignID)
	}

	abandonedAt := snapshot.AbandonedAt
	if abandonedAt.IsZero() {
		abandonedAt = row.AbandonedAt
	}

	return marshalPayload(row.ForeignID, cartPayload{
		StoreCartID: row.ForeignID,
		Email:       snapshot.Email,
		Currency:    snapshot.Currency,
		Total:       snapshot.Total,
		Items:       snapshot.Items,
		AbandonedAt: abandonedAt,
	})
}
