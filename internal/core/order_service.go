package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"restaurant-backoffice/internal/db"
)

// OrderStore owns order headers, order lines and the status history.
// Status changes go through OrderStatusMachine, never through this interface.
type OrderStore interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error)
	// AddLines appends lines to a PENDING, uninvoiced order. Existing lines are untouched.
	AddLines(ctx context.Context, orderID int, lines []OrderLineInput) (*Order, error)

	GetOrder(ctx context.Context, orderID int) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
	History(ctx context.Context, orderID int) ([]StatusHistoryEntry, error)
	// ListPendingInvoice returns DELIVERED orders that have no invoice yet.
	ListPendingInvoice(ctx context.Context) ([]Order, error)
}

type orderStore struct {
	pool   *pgxpool.Pool
	events notifier
	logger *zap.Logger
}

func NewOrderStore(pool *pgxpool.Pool, publisher EventPublisher, logger *zap.Logger) OrderStore {
	n := newNotifier(publisher, logger)
	return &orderStore{pool: pool, events: n, logger: n.logger}
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxRowQuerier extends pgxQuerier with multi-row queries.
type pgxRowQuerier interface {
	pgxQuerier
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// actorRef maps actor id 0 (system) to SQL NULL.
func actorRef(actorID int) *int {
	if actorID <= 0 {
		return nil
	}
	return &actorID
}

func (s *orderStore) CreateOrder(ctx context.Context, in CreateOrderInput) (_ *Order, err error) {
	ctx, span := startSpan(ctx, "OrderStore.CreateOrder",
		attribute.Int("customer.id", in.CustomerID),
		attribute.Int("order.lines", len(in.Lines)),
	)
	defer func() { endSpan(span, err) }()

	if in.CustomerID <= 0 {
		return nil, &ValidationError{Field: "customer_id", Reason: "is required"}
	}
	if in.DeliveryTypeID <= 0 {
		return nil, &ValidationError{Field: "delivery_type_id", Reason: "is required"}
	}
	if err := validateLineInputs(in.Lines); err != nil {
		return nil, err
	}

	var (
		orderID int
		order   *Order
	)
	err = db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := requireActive(ctx, tx, "customer", "customers", in.CustomerID); err != nil {
			return err
		}
		if err := requireActive(ctx, tx, "delivery type", "delivery_types", in.DeliveryTypeID); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO orders (order_date, customer_id, delivery_type_id, status)
			VALUES (CURRENT_DATE, $1, $2, $3)
			RETURNING id
		`, in.CustomerID, in.DeliveryTypeID, OrderPending).Scan(&orderID); err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		if err := insertOrderLines(ctx, tx, orderID, in.Lines); err != nil {
			return err
		}

		if err := appendHistory(ctx, tx, orderID, OrderPending, "Order created", in.ActorID); err != nil {
			return err
		}
		var rerr error
		order, rerr = getOrderQ(ctx, tx, orderID)
		return rerr
	})
	if err != nil {
		return nil, txFailure("create order", err)
	}

	s.logger.Info("order created",
		zap.Int("order_id", order.ID),
		zap.Int("customer_id", order.CustomerID),
		zap.Int("lines", len(order.Lines)),
	)
	s.events.notify(ctx, EventOrderCreated, order)
	return order, nil
}

func (s *orderStore) AddLines(ctx context.Context, orderID int, lines []OrderLineInput) (_ *Order, err error) {
	ctx, span := startSpan(ctx, "OrderStore.AddLines", attribute.Int("order.id", orderID))
	defer func() { endSpan(span, err) }()

	if orderID <= 0 {
		return nil, &ValidationError{Field: "order_id", Reason: "is required"}
	}
	if len(lines) == 0 {
		return nil, &ValidationError{Field: "lines", Reason: "at least one line is required"}
	}
	if err := validateLineInputs(lines); err != nil {
		return nil, err
	}

	var order *Order
	err = db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		var status OrderStatus
		var invoiceID *int
		err := tx.QueryRow(ctx,
			"SELECT status, invoice_id FROM orders WHERE id = $1 FOR UPDATE", orderID,
		).Scan(&status, &invoiceID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &NotFoundError{Entity: "order", ID: orderID}
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if status != OrderPending || invoiceID != nil {
			return &ValidationError{Field: "order", Reason: fmt.Sprintf("lines can only be added while PENDING (order is %s)", status)}
		}
		if err := insertOrderLines(ctx, tx, orderID, lines); err != nil {
			return err
		}
		order, err = getOrderQ(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, txFailure("add order lines", err)
	}
	return order, nil
}

// requireActive returns NotFoundError unless table has an active row with id.
// table is always a package constant.
func requireActive(ctx context.Context, q pgxQuerier, entity, table string, id int) error {
	var exists bool
	err := q.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1 AND is_active)", id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up %s %d: %w", entity, id, err)
	}
	if !exists {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

// insertOrderLines captures each menu item's current price on the new line.
func insertOrderLines(ctx context.Context, tx pgx.Tx, orderID int, lines []OrderLineInput) error {
	for _, l := range lines {
		var lineID int
		err := tx.QueryRow(ctx, `
			INSERT INTO order_lines (order_id, menu_item_id, quantity, unit_price)
			SELECT $1, id, $2, unit_price FROM menu_items WHERE id = $3 AND is_active
			RETURNING id
		`, orderID, l.Quantity, l.MenuItemID).Scan(&lineID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &NotFoundError{Entity: "menu item", ID: l.MenuItemID}
			}
			return fmt.Errorf("failed to insert order line for menu item %d: %w", l.MenuItemID, err)
		}
	}
	return nil
}

func appendHistory(ctx context.Context, tx pgx.Tx, orderID int, status OrderStatus, comment string, actorID int) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_history (order_id, status, changed_at, comment, actor_id)
		VALUES ($1, $2, NOW(), $3, $4)
	`, orderID, status, comment, actorRef(actorID)); err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

const orderSelect = `
	SELECT o.id, o.order_date::text, o.customer_id, c.name, o.delivery_type_id, d.name,
	       o.status, o.invoice_id, o.created_at
	FROM orders o
	JOIN customers c ON c.id = o.customer_id
	JOIN delivery_types d ON d.id = o.delivery_type_id`

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(&o.ID, &o.OrderDate, &o.CustomerID, &o.CustomerName,
		&o.DeliveryTypeID, &o.DeliveryType, &o.Status, &o.InvoiceID, &o.CreatedAt)
}

func (s *orderStore) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	return getOrderQ(ctx, s.pool, orderID)
}

// getOrderQ loads an order with its lines through q, which may be a transaction.
func getOrderQ(ctx context.Context, q pgxRowQuerier, orderID int) (*Order, error) {
	var o Order
	if err := scanOrder(q.QueryRow(ctx, orderSelect+" WHERE o.id = $1", orderID), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "order", ID: orderID}
		}
		return nil, fmt.Errorf("failed to get order %d: %w", orderID, err)
	}

	lines, err := fetchOrderLinesQ(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return &o, nil
}

func fetchOrderLinesQ(ctx context.Context, q pgxRowQuerier, orderID int) ([]OrderLine, error) {
	rows, err := q.Query(ctx, `
		SELECT l.id, l.order_id, l.menu_item_id, m.name, l.quantity, l.unit_price
		FROM order_lines l
		JOIN menu_items m ON m.id = l.menu_item_id
		WHERE l.order_id = $1
		ORDER BY l.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	lines := []OrderLine{}
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.MenuItemID, &l.MenuItemName, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *orderStore) ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("o.status = $%d", len(args)))
	}
	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		where = append(where, fmt.Sprintf("o.customer_id = $%d", len(args)))
	}

	query := orderSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.created_at DESC, o.id DESC"

	return s.queryOrders(ctx, query, args...)
}

func (s *orderStore) ListPendingInvoice(ctx context.Context) ([]Order, error) {
	return s.queryOrders(ctx,
		orderSelect+" WHERE o.status = $1 AND o.invoice_id IS NULL ORDER BY o.created_at, o.id",
		OrderDelivered)
}

// queryOrders returns headers only; Lines is left nil.
func (s *orderStore) queryOrders(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *orderStore) History(ctx context.Context, orderID int) ([]StatusHistoryEntry, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)", orderID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up order %d: %w", orderID, err)
	}
	if !exists {
		return nil, &NotFoundError{Entity: "order", ID: orderID}
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, status, changed_at, comment, actor_id
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY changed_at, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	history := []StatusHistoryEntry{}
	for rows.Next() {
		var h StatusHistoryEntry
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.ChangedAt, &h.Comment, &h.ActorID); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
