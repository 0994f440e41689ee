package orders

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/CSCI-GA-2820-SP24-003/orders/pkg/models"
)

// Store persists Orders and Items in PostgreSQL. Every write runs in its own
// transaction; storage failures are surfaced as ValidationError so callers see
// one error vocabulary regardless of transport failure mode.
type Store struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewStore(db *sql.DB, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// CreateTables creates the schema if it does not exist. Items reference their
// owning order with ON DELETE CASCADE so deleting an Order deletes its Items.
func (s *Store) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id SERIAL PRIMARY KEY,
			customer_id INTEGER NOT NULL,
			order_date DATE NOT NULL,
			status VARCHAR(32) NOT NULL,
			shipping_address VARCHAR(256),
			total_amount DECIMAL(10,2),
			payment_method VARCHAR(64),
			shipping_cost DECIMAL(10,2),
			expected_date DATE,
			order_notes VARCHAR(1024)
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id SERIAL PRIMARY KEY,
			order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id INTEGER NOT NULL,
			name VARCHAR(64),
			quantity INTEGER,
			unit_price DECIMAL(10,2),
			total_price DECIMAL(10,2),
			description VARCHAR(1024)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_order_id ON items(order_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}
	s.logger.Info("Database tables ready")
	return nil
}

// CreateOrder inserts the order and its items in one transaction and assigns
// their server-generated ids.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.NewValidationError("failed to save order", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (customer_id, order_date, status, shipping_address, total_amount,
			payment_method, shipping_cost, expected_date, order_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, query,
		order.CustomerID, order.OrderDate, string(order.Status), order.ShippingAddress,
		order.TotalAmount, order.PaymentMethod, order.ShippingCost, order.ExpectedDate,
		order.OrderNotes,
	).Scan(&order.ID)
	if err != nil {
		return models.NewValidationError("failed to save order", err)
	}

	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		if err := insertItem(ctx, tx, &order.Items[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.NewValidationError("failed to save order", err)
	}
	return nil
}

// GetOrder returns a single order with its items, or NotFoundError.
func (s *Store) GetOrder(ctx context.Context, id int) (*models.Order, error) {
	order := &models.Order{}
	var status string

	query := `
		SELECT id, customer_id, order_date, status, shipping_address, total_amount,
			payment_method, shipping_cost, expected_date, order_notes
		FROM orders WHERE id = $1
	`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.CustomerID, &order.OrderDate, &status, &order.ShippingAddress,
		&order.TotalAmount, &order.PaymentMethod, &order.ShippingCost, &order.ExpectedDate,
		&order.OrderNotes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "Order", ID: id}
	}
	if err != nil {
		return nil, models.NewValidationError("failed to read order", err)
	}
	order.Status = models.OrderStatus(status)

	order.Items, err = s.itemsForOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns all orders with their items.
func (s *Store) ListOrders(ctx context.Context) ([]*models.Order, error) {
	query := `
		SELECT id, customer_id, order_date, status, shipping_address, total_amount,
			payment_method, shipping_cost, expected_date, order_notes
		FROM orders
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, models.NewValidationError("failed to list orders", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		var status string
		err := rows.Scan(
			&order.ID, &order.CustomerID, &order.OrderDate, &status, &order.ShippingAddress,
			&order.TotalAmount, &order.PaymentMethod, &order.ShippingCost, &order.ExpectedDate,
			&order.OrderNotes,
		)
		if err != nil {
			return nil, models.NewValidationError("failed to list orders", err)
		}
		order.Status = models.OrderStatus(status)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewValidationError("failed to list orders", err)
	}

	for _, order := range orders {
		order.Items, err = s.itemsForOrder(ctx, order.ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// UpdateOrder persists the mutated order columns. Items are managed through
// the item sub-resource and are not touched here.
func (s *Store) UpdateOrder(ctx context.Context, order *models.Order) error {
	query := `
		UPDATE orders
		SET customer_id = $2, order_date = $3, status = $4, shipping_address = $5,
			total_amount = $6, payment_method = $7, shipping_cost = $8,
			expected_date = $9, order_notes = $10
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		order.ID, order.CustomerID, order.OrderDate, string(order.Status),
		order.ShippingAddress, order.TotalAmount, order.PaymentMethod,
		order.ShippingCost, order.ExpectedDate, order.OrderNotes,
	)
	if err != nil {
		return models.NewValidationError("failed to update order", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.NewValidationError("failed to update order", err)
	}
	if affected == 0 {
		return &models.NotFoundError{Resource: "Order", ID: order.ID}
	}
	return nil
}

// DeleteOrder removes the order and, through the cascade constraint, its
// items. Deleting an absent order is not an error.
func (s *Store) DeleteOrder(ctx context.Context, id int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return models.NewValidationError("failed to delete order", err)
	}
	return nil
}

// CreateItem inserts an item under its order and assigns its id.
func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.NewValidationError("failed to save item", err)
	}
	defer tx.Rollback()

	if err := insertItem(ctx, tx, item); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return models.NewValidationError("failed to save item", err)
	}
	return nil
}

// GetItem returns an item scoped to its owning order, or NotFoundError.
func (s *Store) GetItem(ctx context.Context, orderID, itemID int) (*models.Item, error) {
	item := &models.Item{}
	query := `
		SELECT id, order_id, product_id, name, quantity, unit_price, total_price, description
		FROM items WHERE id = $1 AND order_id = $2
	`
	err := s.db.QueryRowContext(ctx, query, itemID, orderID).Scan(
		&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Quantity,
		&item.UnitPrice, &item.TotalPrice, &item.Description,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "Item", ID: itemID}
	}
	if err != nil {
		return nil, models.NewValidationError("failed to read item", err)
	}
	return item, nil
}

// UpdateItem persists the mutated item columns.
func (s *Store) UpdateItem(ctx context.Context, item *models.Item) error {
	query := `
		UPDATE items
		SET product_id = $3, name = $4, quantity = $5, unit_price = $6,
			total_price = $7, description = $8
		WHERE id = $1 AND order_id = $2
	`
	result, err := s.db.ExecContext(ctx, query,
		item.ID, item.OrderID, item.ProductID, item.Name, item.Quantity,
		item.UnitPrice, item.TotalPrice, item.Description,
	)
	if err != nil {
		return models.NewValidationError("failed to update item", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.NewValidationError("failed to update item", err)
	}
	if affected == 0 {
		return &models.NotFoundError{Resource: "Item", ID: item.ID}
	}
	return nil
}

// DeleteItem removes an item. Deleting an absent item is not an error.
func (s *Store) DeleteItem(ctx context.Context, orderID, itemID int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1 AND order_id = $2`, itemID, orderID); err != nil {
		return models.NewValidationError("failed to delete item", err)
	}
	return nil
}

func (s *Store) itemsForOrder(ctx context.Context, orderID int) ([]models.Item, error) {
	query := `
		SELECT id, order_id, product_id, name, quantity, unit_price, total_price, description
		FROM items WHERE order_id = $1 ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, models.NewValidationError("failed to read items", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var item models.Item
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Quantity,
			&item.UnitPrice, &item.TotalPrice, &item.Description,
		)
		if err != nil {
			return nil, models.NewValidationError("failed to read items", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewValidationError("failed to read items", err)
	}
	return items, nil
}

func insertItem(ctx context.Context, tx *sql.Tx, item *models.Item) error {
	query := `
		INSERT INTO items (order_id, product_id, name, quantity, unit_price, total_price, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := tx.QueryRowContext(ctx, query,
		item.OrderID, item.ProductID, item.Name, item.Quantity,
		item.UnitPrice, item.TotalPrice, item.Description,
	).Scan(&item.ID)
	if err != nil {
		return models.NewValidationError("failed to save item", err)
	}
	return nil
}
