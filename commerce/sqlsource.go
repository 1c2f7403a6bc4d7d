package commerce

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopsync/syncpump"
)

// SQLTables names the commerce platform tables read by SQLSource.
type SQLTables struct {
	Orders        string
	Subscriptions string
	Contacts      string
	Products      string
}

func (t SQLTables) withDefaults() SQLTables {
	if t.Orders == "" {
		t.Orders = "shop_orders"
	}
	if t.Subscriptions == "" {
		t.Subscriptions = "shop_subscriptions"
	}
	if t.Contacts == "" {
		t.Contacts = "shop_customers"
	}
	if t.Products == "" {
		t.Products = "shop_products"
	}

	return t
}

// SQLSource reads source records from the commerce platform's relational
// store. It is read-only: candidate selection and record fetches never
// mutate platform data.
type SQLSource struct {
	db     *sql.DB
	tables SQLTables
}

var _ Source = (*SQLSource)(nil)

// NewSQLSource constructs a source over the platform database.
func NewSQLSource(db *sql.DB, tables SQLTables) (*SQLSource, error) {
	if db == nil {
		return nil, errors.New("commerce: db is required")
	}

	return &SQLSource{db: db, tables: tables.withDefaults()}, nil
}

// Selector returns the candidate selector for a sync type. Abandoned
// carts have no selector: their rows are captured on cart change, not
// selected by pagination.
func (s *SQLSource) Selector(syncType string) (syncpump.Selector, error) {
	table, err := s.tableFor(syncType)
	if err != nil {
		return nil, err
	}
	if table == "" {
		return syncpump.SelectorFunc(
			func(context.Context, syncpump.Page, map[int64]struct{}) ([]int64, error) {
				return nil, nil
			},
		), nil
	}

	// #nosec G201 -- table names come from operator configuration, not request input.
	query := fmt.Sprintf("SELECT id FROM %s WHERE id > ? ORDER BY id ASC LIMIT ?", table)

	return syncpump.SelectorFunc(
		func(ctx context.Context, page syncpump.Page, exclude map[int64]struct{}) ([]int64, error) {
			if page.Limit <= 0 {
				return nil, nil
			}

			// The scan keeps advancing past pages whose ids are all
			// excluded; an empty result means end of data, not an
			// exhausted page.
			ids := make([]int64, 0, page.Limit)
			cursor := page.Cursor
			for len(ids) < page.Limit {
				scanned, err := s.scanIDs(ctx, query, syncType, cursor, page.Limit)
				if err != nil {
					return nil, err
				}
				if len(scanned) == 0 {
					break
				}
				cursor = scanned[len(scanned)-1]
				for _, id := range scanned {
					if _, skip := exclude[id]; skip {
						continue
					}
					ids = append(ids, id)
					if len(ids) == page.Limit {
						break
					}
				}
				if len(scanned) < page.Limit {
					break
				}
			}

			return ids, nil
		},
	), nil
}

func (s *SQLSource) scanIDs(ctx context.Context, query, syncType string, cursor int64, limit int) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("commerce: select %s candidates failed: %w", syncType, err)
	}
	defer rows.Close()

	ids := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("commerce: scan candidate failed: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("commerce: candidate rows failed: %w", err)
	}

	return ids, nil
}

func (s *SQLSource) tableFor(syncType string) (string, error) {
	switch syncType {
	case SyncTypeOrders:
		return s.tables.Orders, nil
	case SyncTypeSubscriptions:
		return s.tables.Subscriptions, nil
	case SyncTypeContacts:
		return s.tables.Contacts, nil
	case SyncTypeProducts:
		return s.tables.Products, nil
	case SyncTypeAbandonedCarts:
		return "", nil
	default:
		return "", fmt.Errorf("commerce: unknown sync type %q", syncType)
	}
}

// Order implements Source.
func (s *SQLSource) Order(ctx context.Context, id int64) (*Order, error) {
	// #nosec G201 -- table names come from operator configuration.
	query := fmt.Sprintf(
		"SELECT id, email, status, currency, total, items, created_at, trashed FROM %s WHERE id = ?",
		s.tables.Orders,
	)

	var (
		order Order
		items []byte
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.Email, &order.Status, &order.Currency, &order.Total,
		&items, &order.CreatedAt, &order.Trashed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("commerce: fetch order failed: %w", err)
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &order.Items); err != nil {
			return nil, fmt.Errorf("commerce: decode order items failed: %w", err)
		}
	}

	return &order, nil
}

// Subscription implements Source.
func (s *SQLSource) Subscription(ctx context.Context, id int64) (*Subscription, error) {
	// #nosec G201 -- table names come from operator configuration.
	query := fmt.Sprintf(
		"SELECT id, email, status, currency, amount, billing_interval, next_payment_at, created_at, trashed "+
			"FROM %s WHERE id = ?",
		s.tables.Subscriptions,
	)

	var sub Subscription
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.Email, &sub.Status, &sub.Currency, &sub.Amount,
		&sub.Interval, &sub.NextPayment, &sub.CreatedAt, &sub.Trashed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("commerce: fetch subscription failed: %w", err)
	}

	return &sub, nil
}

// Contact implements Source.
func (s *SQLSource) Contact(ctx context.Context, id int64) (*Contact, error) {
	// #nosec G201 -- table names come from operator configuration.
	query := fmt.Sprintf(
		"SELECT id, email, first_name, last_name, phone, trashed FROM %s WHERE id = ?",
		s.tables.Contacts,
	)

	var contact Contact
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&contact.ID, &contact.Email, &contact.FirstName, &contact.LastName,
		&contact.Phone, &contact.Trashed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("commerce: fetch contact failed: %w", err)
	}

	return &contact, nil
}

// Product implements Source.
func (s *SQLSource) Product(ctx context.Context, id int64) (*Product, error) {
	// #nosec G201 -- table names come from operator configuration.
	query := fmt.Sprintf(
		"SELECT id, name, sku, price, description, url, trashed FROM %s WHERE id = ?",
		s.tables.Products,
	)

	var product Product
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID, &product.Name, &product.SKU, &product.Price,
		&product.Description, &product.URL, &product.Trashed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("commerce: fetch product failed: %w", err)
	}

	return &product, nil
}

// SerializerFor returns the serializer for a sync type.
func (s *SQLSource) SerializerFor(syncType string) (syncpump.Serializer, error) {
	switch syncType {
	case SyncTypeOrders:
		return NewOrderSerializer(s), nil
	case SyncTypeSubscriptions:
		return NewSubscriptionSerializer(s), nil
	case SyncTypeContacts:
		return NewContactSerializer(s), nil
	case SyncTypeProducts:
		return NewProductSerializer(s), nil
	case SyncTypeAbandonedCarts:
		return NewCartSerializer(), nil
	default:
		return nil, fmt.Errorf("commerce: unknown sync type %q", syncType)
	}
}
