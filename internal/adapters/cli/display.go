package cli

import (
	"fmt"
	"io"
	"strings"

	"restaurant-backoffice/internal/app"
)

func rule(out io.Writer, ch string, width int) {
	fmt.Fprintln(out, strings.Repeat(ch, width))
}

func printOrders(out io.Writer, title string, result *app.OrderListResult) {
	fmt.Fprintln(out)
	rule(out, "=", 80)
	fmt.Fprintf(out, "  %s\n", title)
	rule(out, "=", 80)
	if len(result.Orders) == 0 {
		fmt.Fprintln(out, "  No orders found.")
		rule(out, "=", 80)
		return
	}
	fmt.Fprintf(out, "  %-6s %-10s %-24s %-14s %-15s %s\n", "ID", "DATE", "CUSTOMER", "DELIVERY", "STATUS", "INVOICE")
	rule(out, "-", 80)
	for _, o := range result.Orders {
		invoice := "-"
		if o.InvoiceID != nil {
			invoice = fmt.Sprintf("%d", *o.InvoiceID)
		}
		fmt.Fprintf(out, "  %-6d %-10s %-24s %-14s %-15s %s\n",
			o.ID, o.OrderDate, o.CustomerName, o.DeliveryType, o.Status, invoice)
	}
	rule(out, "=", 80)
}

func printOrder(out io.Writer, result *app.OrderResult) {
	o := result.Order
	fmt.Fprintln(out)
	rule(out, "=", 72)
	fmt.Fprintf(out, "  ORDER %d  (%s)\n", o.ID, o.Status)
	fmt.Fprintf(out, "  Customer : %s\n", o.CustomerName)
	fmt.Fprintf(out, "  Delivery : %s\n", o.DeliveryType)
	fmt.Fprintf(out, "  Date     : %s\n", o.OrderDate)
	rule(out, "=", 72)
	fmt.Fprintf(out, "  %-30s %6s %14s %14s\n", "ITEM", "QTY", "UNIT PRICE", "TOTAL")
	rule(out, "-", 72)
	for _, l := range o.Lines {
		fmt.Fprintf(out, "  %-30s %6d %14s %14s\n",
			l.MenuItemName, l.Quantity, l.UnitPrice.StringFixed(2), l.LineTotal().StringFixed(2))
	}
	rule(out, "-", 72)
	fmt.Fprintf(out, "  %-52s %14s\n", "SUBTOTAL", o.Subtotal().StringFixed(2))
	if len(result.AllowedTransitions) > 0 {
		next := make([]string, len(result.AllowedTransitions))
		for i, s := range result.AllowedTransitions {
			next[i] = string(s)
		}
		fmt.Fprintf(out, "  Next     : %s\n", strings.Join(next, ", "))
	}
	rule(out, "=", 72)
}

func printHistory(out io.Writer, result *app.OrderResult) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  STATUS HISTORY: Order %d\n", result.Order.ID)
	rule(out, "-", 72)
	for _, h := range result.History {
		actor := "system"
		if h.ActorID != nil {
			actor = fmt.Sprintf("user %d", *h.ActorID)
		}
		fmt.Fprintf(out, "  %s  %-15s %-10s %s\n",
			h.ChangedAt.Format("2006-01-02 15:04"), h.Status, actor, h.Comment)
	}
}

func printInvoice(out io.Writer, result *app.InvoiceResult) {
	inv := result.Invoice
	fmt.Fprintln(out)
	rule(out, "=", 72)
	fmt.Fprintf(out, "  INVOICE %d  (%s)  Order %d\n", inv.ID, inv.Status, inv.OrderID)
	fmt.Fprintf(out, "  Customer : %s\n", inv.CustomerName)
	fmt.Fprintf(out, "  Date     : %s\n", inv.InvoiceDate)
	rule(out, "=", 72)
	for _, l := range inv.Lines {
		fmt.Fprintf(out, "  %-30s %6d %14s\n", l.ArticleName, l.Quantity, l.UnitPrice.StringFixed(2))
	}
	rule(out, "-", 72)
	fmt.Fprintf(out, "  %-37s %14s\n", "SUBTOTAL", inv.Subtotal.StringFixed(2))
	fmt.Fprintf(out, "  %-37s %14s\n", "TAX", inv.Tax.StringFixed(2))
	fmt.Fprintf(out, "  %-37s %14s\n", "TOTAL", inv.Total.StringFixed(2))
	rule(out, "=", 72)
}

func printInvoices(out io.Writer, result *app.InvoiceListResult) {
	fmt.Fprintln(out)
	rule(out, "=", 72)
	fmt.Fprintln(out, "  INVOICES")
	rule(out, "=", 72)
	if len(result.Invoices) == 0 {
		fmt.Fprintln(out, "  No invoices found.")
		rule(out, "=", 72)
		return
	}
	fmt.Fprintf(out, "  %-6s %-6s %-10s %-24s %-7s %12s\n", "ID", "ORDER", "DATE", "CUSTOMER", "STATUS", "TOTAL")
	rule(out, "-", 72)
	for _, inv := range result.Invoices {
		fmt.Fprintf(out, "  %-6d %-6d %-10s %-24s %-7s %12s\n",
			inv.ID, inv.OrderID, inv.InvoiceDate, inv.CustomerName, inv.Status, inv.Total.StringFixed(2))
	}
	rule(out, "=", 72)
}

func printInventory(out io.Writer, result *app.InventoryListResult) {
	fmt.Fprintln(out)
	rule(out, "=", 72)
	fmt.Fprintf(out, "  INVENTORY: %s\n", strings.ToUpper(result.View))
	rule(out, "=", 72)
	if len(result.Records) == 0 {
		fmt.Fprintln(out, "  No records found.")
		rule(out, "=", 72)
		return
	}
	fmt.Fprintf(out, "  %-6s %-28s %9s %9s %14s\n", "ID", "ARTICLE", "AVAILABLE", "MINIMUM", "VALUE")
	rule(out, "-", 72)
	for _, rec := range result.Records {
		flag := ""
		if rec.Critical() {
			flag = " !"
		}
		fmt.Fprintf(out, "  %-6d %-28s %9d %9d %14s%s\n",
			rec.ID, rec.ArticleName, rec.QuantityAvailable, rec.QuantityMinimum, rec.StockValue().StringFixed(2), flag)
	}
	rule(out, "=", 72)
}
