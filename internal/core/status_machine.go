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

// OrderStatusMachine is the only writer of Order.Status. Every accepted
// transition updates the order and appends one history entry atomically.
type OrderStatusMachine interface {
	Transition(ctx context.Context, orderID int, target OrderStatus, comment string, actorID int) (*Order, error)
	Cancel(ctx context.Context, orderID int, comment string, actorID int) (*Order, error)
}

type statusMachine struct {
	pool   *pgxpool.Pool
	events notifier
	logger *zap.Logger
}

func NewOrderStatusMachine(pool *pgxpool.Pool, publisher EventPublisher, logger *zap.Logger) OrderStatusMachine {
	n := newNotifier(publisher, logger)
	return &statusMachine{pool: pool, events: n, logger: n.logger}
}

func (m *statusMachine) Transition(ctx context.Context, orderID int, target OrderStatus, comment string, actorID int) (_ *Order, err error) {
	ctx, span := startSpan(ctx, "OrderStatusMachine.Transition",
		attribute.Int("order.id", orderID),
		attribute.String("order.target_status", string(target)),
	)
	defer func() { endSpan(span, err) }()

	if orderID <= 0 {
		return nil, &ValidationError{Field: "order_id", Reason: "is required"}
	}
	if !target.Valid() {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", target)}
	}
	comment, err = requireText("comment", comment, MaxCommentLength)
	if err != nil {
		return nil, err
	}

	var (
		from  OrderStatus
		order *Order
	)
	// The order is re-read inside the transaction so the returned value and
	// the committed state cannot diverge.
	err = db.InTx(ctx, m.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, "SELECT status FROM orders WHERE id = $1 FOR UPDATE", orderID).Scan(&from)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &NotFoundError{Entity: "order", ID: orderID}
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}

		if err := checkTransition(orderID, from, target); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, "UPDATE orders SET status = $1 WHERE id = $2", target, orderID); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		if err := appendHistory(ctx, tx, orderID, target, comment, actorID); err != nil {
			return err
		}
		order, err = getOrderQ(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, txFailure("order status transition", err)
	}

	m.logger.Info("order status changed",
		zap.Int("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.Int("actor_id", actorID),
	)
	m.events.notify(ctx, EventOrderStatusChanged, OrderStatusChanged{
		OrderID: orderID, From: from, To: target, Comment: comment, ActorID: actorID,
	})

	return order, nil
}

func (m *statusMachine) Cancel(ctx context.Context, orderID int, comment string, actorID int) (*Order, error) {
	return m.Transition(ctx, orderID, OrderCancelled, comment, actorID)
}
