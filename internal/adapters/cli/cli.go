package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"restaurant-backoffice/internal/app"
)

const usage = `Available commands:
  orders [status]                     list orders, optionally by status
  pending                             delivered orders awaiting an invoice
  order <id>                          show an order with its lines
  history <id>                        show an order's status history
  transition <id> <status> <comment>  move an order to a new status
  cancel <id> <comment>               cancel an order
  invoice <orderID> [customerID]      invoice a delivered order
  void <invoiceID>                    void an active invoice
  invoices [status]                   list invoices
  stock                               list inventory records
  critical                            records at or below their minimum
  low                                 records approaching their minimum
  entry|exit|set <recordID> <qty> <reason>
                                      adjust a record's quantity
  reconcile <recordID>                compare a record with its movement log`

// Run executes a one-shot CLI command, writing its output to out.
// args is os.Args[1:]; the first element is the subcommand name.
// Mutations are attributed to app.System.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given\n%s", usage)
	}

	switch cmd := strings.ToLower(args[0]); cmd {
	case "orders":
		status := ""
		if len(args) > 1 {
			status = args[1]
		}
		result, err := svc.ListOrders(ctx, status, 0)
		if err != nil {
			return err
		}
		printOrders(out, "ORDERS", result)

	case "pending":
		result, err := svc.ListOrdersPendingInvoice(ctx)
		if err != nil {
			return err
		}
		printOrders(out, "ORDERS PENDING INVOICE", result)

	case "order", "history":
		id, err := intArg(args, 1, "id")
		if err != nil {
			return err
		}
		result, err := svc.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if cmd == "order" {
			printOrder(out, result)
		} else {
			printHistory(out, result)
		}

	case "transition":
		if len(args) < 4 {
			return fmt.Errorf("usage: app transition <id> <status> <comment>")
		}
		id, err := intArg(args, 1, "id")
		if err != nil {
			return err
		}
		result, err := svc.TransitionOrder(ctx, app.TransitionOrderRequest{
			Actor:   app.System,
			OrderID: id,
			Status:  args[2],
			Comment: strings.Join(args[3:], " "),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Order %d is now %s.\n", result.Order.ID, result.Order.Status)

	case "cancel":
		if len(args) < 3 {
			return fmt.Errorf("usage: app cancel <id> <comment>")
		}
		id, err := intArg(args, 1, "id")
		if err != nil {
			return err
		}
		result, err := svc.CancelOrder(ctx, app.CancelOrderRequest{
			Actor:   app.System,
			OrderID: id,
			Comment: strings.Join(args[2:], " "),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Order %d is now %s.\n", result.Order.ID, result.Order.Status)

	case "invoice":
		orderID, err := intArg(args, 1, "orderID")
		if err != nil {
			return err
		}
		customerID := 0
		if len(args) > 2 {
			if customerID, err = intArg(args, 2, "customerID"); err != nil {
				return err
			}
		}
		result, err := svc.GenerateInvoice(ctx, app.GenerateInvoiceRequest{
			Actor:      app.System,
			OrderID:    orderID,
			CustomerID: customerID,
		})
		if err != nil {
			return err
		}
		printInvoice(out, result)

	case "void":
		id, err := intArg(args, 1, "invoiceID")
		if err != nil {
			return err
		}
		result, err := svc.VoidInvoice(ctx, app.VoidInvoiceRequest{Actor: app.System, InvoiceID: id})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Invoice %d is now %s.\n", result.Invoice.ID, result.Invoice.Status)

	case "invoices":
		status := ""
		if len(args) > 1 {
			status = args[1]
		}
		result, err := svc.ListInvoices(ctx, status)
		if err != nil {
			return err
		}
		printInvoices(out, result)

	case "stock", "critical", "low":
		view := app.ViewAll
		if cmd != "stock" {
			view = cmd
		}
		result, err := svc.ListInventory(ctx, view)
		if err != nil {
			return err
		}
		printInventory(out, result)

	case "entry", "exit", "set":
		if len(args) < 4 {
			return fmt.Errorf("usage: app %s <recordID> <qty> <reason>", cmd)
		}
		id, err := intArg(args, 1, "recordID")
		if err != nil {
			return err
		}
		qty, err := intArg(args, 2, "qty")
		if err != nil {
			return err
		}
		result, err := svc.AdjustInventory(ctx, app.AdjustInventoryRequest{
			Actor:    app.System,
			RecordID: id,
			Mode:     cmd,
			Quantity: qty,
			Reason:   strings.Join(args[3:], " "),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Record %d: %d available (minimum %d).\n",
			result.Record.ID, result.Record.QuantityAvailable, result.Record.QuantityMinimum)
		if result.Critical {
			fmt.Fprintln(out, "WARNING: stock is at or below its minimum.")
		}

	case "reconcile":
		id, err := intArg(args, 1, "recordID")
		if err != nil {
			return err
		}
		report, err := svc.ReconcileInventory(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Record %d: quantity %d, movements %d (sum %d), drift %d.\n",
			report.RecordID, report.QuantityAvailable, report.MovementCount, report.MovementSum, report.Drift)
		if !report.Consistent {
			return fmt.Errorf("record %d is out of balance with its movement log", id)
		}

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
	return nil
}

func intArg(args []string, i int, name string) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing argument <%s>", name)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid <%s> %q: must be a positive integer", name, args[i])
	}
	return n, nil
}
