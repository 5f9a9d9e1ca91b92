package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"restaurant-backoffice/internal/db"
)

// InvoiceGenerator derives an invoice from a delivered order.
type InvoiceGenerator interface {
	// GenerateFromOrder writes the invoice header, one line per order line and
	// the order's invoice back-reference in a single transaction. customerID
	// must match the order's customer; 0 means "the order's customer".
	GenerateFromOrder(ctx context.Context, orderID, customerID int) (int, error)
}

// InvoiceVoider moves an ACTIVE invoice to VOID. Voiding neither restocks
// inventory nor reopens the originating order.
type InvoiceVoider interface {
	Void(ctx context.Context, invoiceID int) error
}

// InvoiceStore reads invoice headers and lines.
type InvoiceStore interface {
	GetInvoice(ctx context.Context, invoiceID int) (*Invoice, error)
	// ListInvoices returns headers only; status nil means every status.
	ListInvoices(ctx context.Context, status *InvoiceStatus) ([]Invoice, error)
}

// InvoiceService bundles the three invoice components over one pool.
type InvoiceService interface {
	InvoiceGenerator
	InvoiceVoider
	InvoiceStore
}

type invoiceService struct {
	pool   *pgxpool.Pool
	events notifier
	logger *zap.Logger
}

func NewInvoiceService(pool *pgxpool.Pool, publisher EventPublisher, logger *zap.Logger) InvoiceService {
	n := newNotifier(publisher, logger)
	return &invoiceService{pool: pool, events: n, logger: n.logger}
}

func (s *invoiceService) GenerateFromOrder(ctx context.Context, orderID, customerID int) (_ int, err error) {
	ctx, span := startSpan(ctx, "InvoiceGenerator.GenerateFromOrder", attribute.Int("order.id", orderID))
	defer func() { endSpan(span, err) }()

	if orderID <= 0 {
		return 0, &ValidationError{Field: "order_id", Reason: "is required"}
	}
	if customerID < 0 {
		return 0, &ValidationError{Field: "customer_id", Reason: "must not be negative"}
	}

	var (
		invoiceID int
		totals    InvoiceTotals
	)
	err = db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		// Lock the order row first: a concurrent generation blocks here and
		// then observes the invoice_id written by the winner.
		var (
			orderCustomer int
			status        OrderStatus
			existing      *int
		)
		err := tx.QueryRow(ctx,
			"SELECT customer_id, status, invoice_id FROM orders WHERE id = $1 FOR UPDATE", orderID,
		).Scan(&orderCustomer, &status, &existing)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &NotFoundError{Entity: "order", ID: orderID}
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}

		if existing != nil {
			return &InvalidTransitionError{Entity: "order", ID: orderID, From: string(status), To: "INVOICED",
				Reason: fmt.Sprintf("already invoiced by invoice %d", *existing)}
		}
		if status != OrderDelivered {
			return &InvalidTransitionError{Entity: "order", ID: orderID, From: string(status), To: "INVOICED",
				Reason: "order must be DELIVERED"}
		}
		if customerID == 0 {
			customerID = orderCustomer
		} else if customerID != orderCustomer {
			return &ValidationError{Field: "customer_id",
				Reason: fmt.Sprintf("%d does not match the order's customer %d", customerID, orderCustomer)}
		}

		lines, err := fetchOrderLinesQ(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return &ValidationError{Field: "order", Reason: "has no lines to invoice"}
		}
		totals = ComputeInvoiceTotals(lines)

		if err := tx.QueryRow(ctx, `
			INSERT INTO invoices (order_id, invoice_date, customer_id, subtotal, tax, total, status)
			VALUES ($1, CURRENT_DATE, $2, $3, $4, $5, $6)
			RETURNING id
		`, orderID, customerID, totals.Subtotal, totals.Tax, totals.Total, InvoiceActive).Scan(&invoiceID); err != nil {
			return fmt.Errorf("failed to insert invoice: %w", err)
		}

		for _, l := range lines {
			if _, err := tx.Exec(ctx, `
				INSERT INTO invoice_lines (invoice_id, article_id, quantity, unit_price)
				VALUES ($1, $2, $3, $4)
			`, invoiceID, l.MenuItemID, l.Quantity, l.UnitPrice); err != nil {
				return fmt.Errorf("failed to insert invoice line: %w", err)
			}
		}

		tag, err := tx.Exec(ctx,
			"UPDATE orders SET invoice_id = $1 WHERE id = $2 AND invoice_id IS NULL", invoiceID, orderID)
		if err != nil {
			return fmt.Errorf("failed to link invoice to order: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("order %d was invoiced concurrently", orderID)
		}
		return nil
	})
	if err != nil {
		return 0, txFailure("invoice generation", err)
	}

	span.SetAttributes(attribute.Int("invoice.id", invoiceID))
	s.logger.Info("invoice generated",
		zap.Int("invoice_id", invoiceID),
		zap.Int("order_id", orderID),
		zap.String("total", totals.Total.StringFixed(2)),
	)
	s.events.notify(ctx, EventInvoiceGenerated, map[string]any{
		"invoice_id":  invoiceID,
		"order_id":    orderID,
		"customer_id": customerID,
		"subtotal":    totals.Subtotal,
		"tax":         totals.Tax,
		"total":       totals.Total,
	})
	return invoiceID, nil
}

func (s *invoiceService) Void(ctx context.Context, invoiceID int) (err error) {
	ctx, span := startSpan(ctx, "InvoiceVoider.Void", attribute.Int("invoice.id", invoiceID))
	defer func() { endSpan(span, err) }()

	if invoiceID <= 0 {
		return &ValidationError{Field: "invoice_id", Reason: "is required"}
	}

	var orderID int
	err = db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		var status InvoiceStatus
		err := tx.QueryRow(ctx,
			"SELECT status, order_id FROM invoices WHERE id = $1 FOR UPDATE", invoiceID,
		).Scan(&status, &orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &NotFoundError{Entity: "invoice", ID: invoiceID}
			}
			return fmt.Errorf("failed to lock invoice: %w", err)
		}
		if status != InvoiceActive {
			return &InvalidTransitionError{Entity: "invoice", ID: invoiceID, From: string(status), To: string(InvoiceVoid),
				Reason: "only ACTIVE invoices can be voided"}
		}

		if _, err := tx.Exec(ctx,
			"UPDATE invoices SET status = $1, voided_at = NOW() WHERE id = $2", InvoiceVoid, invoiceID,
		); err != nil {
			return fmt.Errorf("failed to void invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return txFailure("invoice void", err)
	}

	s.logger.Info("invoice voided", zap.Int("invoice_id", invoiceID), zap.Int("order_id", orderID))
	s.events.notify(ctx, EventInvoiceVoided, map[string]any{"invoice_id": invoiceID, "order_id": orderID})
	return nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

const invoiceSelect = `
	SELECT i.id, i.order_id, i.invoice_date::text, i.customer_id, c.name,
	       i.subtotal, i.tax, i.total, i.status, i.created_at, i.voided_at
	FROM invoices i
	JOIN customers c ON c.id = i.customer_id`

func scanInvoice(row pgx.Row, inv *Invoice) error {
	return row.Scan(&inv.ID, &inv.OrderID, &inv.InvoiceDate, &inv.CustomerID, &inv.CustomerName,
		&inv.Subtotal, &inv.Tax, &inv.Total, &inv.Status, &inv.CreatedAt, &inv.VoidedAt)
}

func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID int) (*Invoice, error) {
	var inv Invoice
	if err := scanInvoice(s.pool.QueryRow(ctx, invoiceSelect+" WHERE i.id = $1", invoiceID), &inv); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "invoice", ID: invoiceID}
		}
		return nil, fmt.Errorf("failed to get invoice %d: %w", invoiceID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT l.id, l.invoice_id, l.article_id, m.name, l.quantity, l.unit_price
		FROM invoice_lines l
		JOIN menu_items m ON m.id = l.article_id
		WHERE l.invoice_id = $1
		ORDER BY l.id
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice lines: %w", err)
	}
	defer rows.Close()

	inv.Lines = []InvoiceLine{}
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ArticleID, &l.ArticleName, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		inv.Lines = append(inv.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invoice lines: %w", err)
	}
	return &inv, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, status *InvoiceStatus) ([]Invoice, error) {
	query := invoiceSelect
	var args []any
	if status != nil {
		query += " WHERE i.status = $1"
		args = append(args, *status)
	}
	query += " ORDER BY i.created_at DESC, i.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	invoices := []Invoice{}
	for rows.Next() {
		var inv Invoice
		if err := scanInvoice(rows, &inv); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
