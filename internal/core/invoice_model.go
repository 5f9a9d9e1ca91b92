package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate is the fixed IVA rate applied to every invoice.
var TaxRate = decimal.RequireFromString("0.13")

// InvoiceStatus is the closed set of invoice states. VOID is terminal.
type InvoiceStatus string

const (
	InvoiceActive InvoiceStatus = "ACTIVE"
	InvoiceVoid   InvoiceStatus = "VOID"
)

func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch status := InvoiceStatus(strings.ToUpper(strings.TrimSpace(s))); status {
	case InvoiceActive, InvoiceVoid:
		return status, nil
	}
	return "", &ValidationError{Field: "status", Reason: "must be ACTIVE or VOID"}
}

// Invoice is generated once from a delivered order and afterwards only
// changes by being voided.
type Invoice struct {
	ID           int             `json:"id"`
	OrderID      int             `json:"order_id"`
	InvoiceDate  string          `json:"invoice_date"` // YYYY-MM-DD
	CustomerID   int             `json:"customer_id"`
	CustomerName string          `json:"customer_name"` // joined from customers
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
	Status       InvoiceStatus   `json:"status"`
	Lines        []InvoiceLine   `json:"lines"`
	CreatedAt    time.Time       `json:"created_at"`
	VoidedAt     *time.Time      `json:"voided_at,omitempty"`
}

// InvoiceLine is a verbatim copy of an order line. ArticleID is the menu
// item that was billed.
type InvoiceLine struct {
	ID          int             `json:"id"`
	InvoiceID   int             `json:"invoice_id"`
	ArticleID   int             `json:"article_id"`
	ArticleName string          `json:"article_name"` // joined from menu_items
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// InvoiceTotals holds the three monetary figures of an invoice header.
type InvoiceTotals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeInvoiceTotals derives the invoice figures from order lines:
//
//	subtotal = Σ quantity × unit price
//	tax      = round(subtotal × TaxRate, 2)
//	total    = subtotal + tax
//
// Rounding is half away from zero. Since unit prices carry two decimals,
// total always equals round(Σ quantity × unit price × 1.13, 2).
func ComputeInvoiceTotals(lines []OrderLine) InvoiceTotals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(TaxRate).Round(2)
	return InvoiceTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax).Round(2),
	}
}
