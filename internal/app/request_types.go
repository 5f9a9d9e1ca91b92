package app

import "github.com/shopspring/decimal"

// Actor identifies who performs a mutating operation. It is built by the
// adapter from verified credentials and passed explicitly; UserID 0 is the
// system itself (CLI, migrations).
type Actor struct {
	UserID int
	Role   string
}

// System is the actor used by operator tooling.
var System = Actor{Role: "system"}

// CreateOrderRequest is the input for placing a new order.
type CreateOrderRequest struct {
	Actor          Actor
	CustomerID     int
	DeliveryTypeID int
	Lines          []OrderLineInput
}

// OrderLineInput is a single line within an order request.
type OrderLineInput struct {
	MenuItemID int `json:"menu_item_id"`
	Quantity   int `json:"quantity"`
}

// AddOrderLinesRequest is the input for AddOrderLines.
type AddOrderLinesRequest struct {
	Actor   Actor
	OrderID int
	Lines   []OrderLineInput
}

// TransitionOrderRequest is the input for TransitionOrder. Status is parsed
// case-insensitively.
type TransitionOrderRequest struct {
	Actor   Actor
	OrderID int
	Status  string
	Comment string
}

// CancelOrderRequest is the input for CancelOrder.
type CancelOrderRequest struct {
	Actor   Actor
	OrderID int
	Comment string
}

// GenerateInvoiceRequest is the input for GenerateInvoice. CustomerID 0
// bills the order's own customer.
type GenerateInvoiceRequest struct {
	Actor      Actor
	OrderID    int
	CustomerID int
}

// VoidInvoiceRequest is the input for VoidInvoice.
type VoidInvoiceRequest struct {
	Actor     Actor
	InvoiceID int
}

// CreateInventoryRecordRequest is the input for CreateInventoryRecord.
type CreateInventoryRecordRequest struct {
	Actor           Actor
	ArticleID       int
	Quantity        int
	QuantityMinimum int
	UnitPrice       decimal.Decimal
	ShelfID         *int
}

// AdjustInventoryRequest is the input for AdjustInventory. Mode is "entry",
// "exit" or "set"; for "set" Quantity is the new absolute quantity.
type AdjustInventoryRequest struct {
	Actor    Actor
	RecordID int
	Mode     string
	Quantity int
	Reason   string
}
