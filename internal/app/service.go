package app

import (
	"context"

	"restaurant-backoffice/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// CreateOrder places a PENDING order, capturing current menu prices.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error)

	// AddOrderLines appends lines to a PENDING order.
	AddOrderLines(ctx context.Context, req AddOrderLinesRequest) (*OrderResult, error)

	// GetOrder returns an order with its lines, status history and next legal states.
	GetOrder(ctx context.Context, orderID int) (*OrderResult, error)

	// ListOrders returns order headers, optionally filtered by status name and customer.
	ListOrders(ctx context.Context, status string, customerID int) (*OrderListResult, error)

	// ListOrdersPendingInvoice returns DELIVERED orders that have not been invoiced.
	ListOrdersPendingInvoice(ctx context.Context) (*OrderListResult, error)

	// TransitionOrder moves an order to the requested status and records the change.
	TransitionOrder(ctx context.Context, req TransitionOrderRequest) (*OrderResult, error)

	// CancelOrder moves a non-terminal order to CANCELLED.
	CancelOrder(ctx context.Context, req CancelOrderRequest) (*OrderResult, error)

	// GenerateInvoice bills a DELIVERED order exactly once.
	GenerateInvoice(ctx context.Context, req GenerateInvoiceRequest) (*InvoiceResult, error)

	// VoidInvoice marks an ACTIVE invoice VOID. The order and stock are untouched.
	VoidInvoice(ctx context.Context, req VoidInvoiceRequest) (*InvoiceResult, error)

	GetInvoice(ctx context.Context, invoiceID int) (*InvoiceResult, error)

	// ListInvoices returns invoice headers; an empty status means all.
	ListInvoices(ctx context.Context, status string) (*InvoiceListResult, error)

	// CreateInventoryRecord starts tracking stock for an article.
	CreateInventoryRecord(ctx context.Context, req CreateInventoryRecordRequest) (*InventoryRecordResult, error)

	// GetInventoryRecord returns a record with its movement log.
	GetInventoryRecord(ctx context.Context, recordID int) (*InventoryRecordResult, error)

	// ListInventory returns records for view "all" (or empty), "critical" or "low".
	ListInventory(ctx context.Context, view string) (*InventoryListResult, error)

	// AdjustInventory applies one entry, exit or direct set to a record.
	AdjustInventory(ctx context.Context, req AdjustInventoryRequest) (*InventoryRecordResult, error)

	// ReconcileInventory compares a record's quantity with its movement log.
	ReconcileInventory(ctx context.Context, recordID int) (*core.ReconcileReport, error)
}
