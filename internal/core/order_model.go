package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the closed set of order lifecycle states.
//
//	PENDING → IN_PREPARATION → READY → DELIVERED
//	PENDING | IN_PREPARATION | READY → CANCELLED
//
// DELIVERED and CANCELLED are terminal.
type OrderStatus string

const (
	OrderPending       OrderStatus = "PENDING"
	OrderInPreparation OrderStatus = "IN_PREPARATION"
	OrderReady         OrderStatus = "READY"
	OrderDelivered     OrderStatus = "DELIVERED"
	OrderCancelled     OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:       {OrderInPreparation, OrderCancelled},
	OrderInPreparation: {OrderReady, OrderCancelled},
	OrderReady:         {OrderDelivered, OrderCancelled},
	OrderDelivered:     nil,
	OrderCancelled:     nil,
}

// ParseOrderStatus accepts the canonical upper-case names, case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", &ValidationError{Field: "status", Reason: "must be one of PENDING, IN_PREPARATION, READY, DELIVERED, CANCELLED"}
	}
	return status, nil
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether target is directly reachable from s.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the states directly reachable from s.
func AllowedTransitions(s OrderStatus) []OrderStatus {
	next := orderTransitions[s]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// checkTransition returns an InvalidTransitionError when from → to is not in the table.
func checkTransition(orderID int, from, to OrderStatus) error {
	if from.CanTransitionTo(to) {
		return nil
	}
	reason := ""
	if from.Terminal() {
		reason = string(from) + " is terminal"
	}
	return &InvalidTransitionError{Entity: "order", ID: orderID, From: string(from), To: string(to), Reason: reason}
}

// Order is an order header with its lines.
// InvoiceID is set once, by invoice generation, and never cleared.
type Order struct {
	ID             int         `json:"id"`
	OrderDate      string      `json:"order_date"` // YYYY-MM-DD
	CustomerID     int         `json:"customer_id"`
	CustomerName   string      `json:"customer_name"` // joined from customers
	DeliveryTypeID int         `json:"delivery_type_id"`
	DeliveryType   string      `json:"delivery_type"` // joined from delivery_types
	Status         OrderStatus `json:"status"`
	InvoiceID      *int        `json:"invoice_id,omitempty"`
	Lines          []OrderLine `json:"lines"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Invoiced reports whether an invoice has been generated from the order.
func (o *Order) Invoiced() bool { return o.InvoiceID != nil }

// Subtotal is the untaxed sum of the order's lines.
func (o *Order) Subtotal() decimal.Decimal {
	return ComputeInvoiceTotals(o.Lines).Subtotal
}

// OrderLine is immutable once written. UnitPrice is the menu price captured
// when the line was added.
type OrderLine struct {
	ID           int             `json:"id"`
	OrderID      int             `json:"order_id"`
	MenuItemID   int             `json:"menu_item_id"`
	MenuItemName string          `json:"menu_item_name"` // joined from menu_items
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// LineTotal is Quantity × UnitPrice.
func (l OrderLine) LineTotal() decimal.Decimal {
	return decimal.NewFromInt(int64(l.Quantity)).Mul(l.UnitPrice)
}

// StatusHistoryEntry is one row of the append-only status audit trail.
type StatusHistoryEntry struct {
	ID        int         `json:"id"`
	OrderID   int         `json:"order_id"`
	Status    OrderStatus `json:"status"`
	ChangedAt time.Time   `json:"changed_at"`
	Comment   string      `json:"comment"`
	ActorID   *int        `json:"actor_id,omitempty"`
}

// OrderLineInput is one requested line when creating or extending an order.
type OrderLineInput struct {
	MenuItemID int `json:"menu_item_id"`
	Quantity   int `json:"quantity"`
}

// CreateOrderInput carries everything needed to place an order.
// ActorID 0 means the system.
type CreateOrderInput struct {
	CustomerID     int
	DeliveryTypeID int
	Lines          []OrderLineInput
	ActorID        int
}

// OrderFilter narrows ListOrders. Zero values mean "any".
type OrderFilter struct {
	Status     *OrderStatus
	CustomerID int
}

// MaxCommentLength bounds a status history comment.
const MaxCommentLength = 500

func validateLineInputs(lines []OrderLineInput) error {
	for i, l := range lines {
		if l.MenuItemID <= 0 {
			return &ValidationError{Field: "lines", Reason: fmt.Sprintf("line %d has no menu item", i+1)}
		}
		if l.Quantity <= 0 {
			return &ValidationError{Field: "lines", Reason: fmt.Sprintf("line %d quantity must be positive", i+1)}
		}
		if l.Quantity > MaxQuantity {
			return &ValidationError{Field: "lines", Reason: fmt.Sprintf("line %d quantity must not exceed %d", i+1, MaxQuantity)}
		}
	}
	return nil
}
