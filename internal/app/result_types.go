package app

import "restaurant-backoffice/internal/core"

// OrderResult is returned by order lifecycle operations.
type OrderResult struct {
	Order              *core.Order               `json:"order"`
	History            []core.StatusHistoryEntry `json:"history,omitempty"`
	AllowedTransitions []core.OrderStatus        `json:"allowed_transitions"`
}

// OrderListResult is returned by ListOrders and ListOrdersPendingInvoice.
type OrderListResult struct {
	Orders []core.Order `json:"orders"`
}

// InvoiceResult is returned by invoice operations.
type InvoiceResult struct {
	Invoice *core.Invoice `json:"invoice"`
}

// InvoiceListResult is returned by ListInvoices.
type InvoiceListResult struct {
	Invoices []core.Invoice `json:"invoices"`
}

// InventoryRecordResult is returned by inventory record operations.
type InventoryRecordResult struct {
	Record    *core.InventoryRecord    `json:"record"`
	Critical  bool                     `json:"critical"`
	Low       bool                     `json:"low"`
	Movements []core.InventoryMovement `json:"movements,omitempty"`
}

// InventoryListResult is returned by ListInventory.
type InventoryListResult struct {
	View    string                 `json:"view"`
	Records []core.InventoryRecord `json:"records"`
}
