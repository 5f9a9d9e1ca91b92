package core_test

import (
	"context"
	"errors"
	"testing"

	"restaurant-backoffice/internal/core"
)

func TestInvoiceGenerator_RequiresDeliveredOrder(t *testing.T) {
	pool := setupTestDB(t)
	svc := newServices(t, pool)
	ctx := context.Background()

	order := createTwoLineOrder(t, svc)

	_, err := svc.invoices.GenerateFromOrder(ctx, order.ID, 0)
	var it *core.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("Expected InvalidTransitionError for a PENDING order, got %v", err)
	}

	_, err = svc.invoices.GenerateFromOrder(ctx, 9999, 0)
	var nf *core.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}

	if n := countRows(t, pool, "SELECT COUNT(*) FROM invoices"); n != 0 {
		t.Errorf("Expected no invoices, got %d", n)
	}
}

func TestInvoiceGenerator_CustomerMustMatchOrder(t *testing.T) {
	pool := setupTestDB(t)
	svc := newServices(t, pool)
	ctx := context.Background()

	order := createTwoLineOrder(t, svc)
	advanceToDelivered(t, svc, order.ID)

	_, err := svc.invoices.GenerateFromOrder(ctx, order.ID, 2)
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected ValidationError for mismatched customer, got %v", err)
	}

	invoiceID, err := svc.invoices.GenerateFromOrder(ctx, order.ID, 1)
	if err != nil {
		t.Fatalf("GenerateFromOrder with matching customer failed: %v", err)
	}
	if invoiceID <= 0 {
		t.Errorf("Expected a positive invoice id, got %d", invoiceID)
	}
}

func TestInvoiceGenerator_EmptyOrderIsRejected(t *testing.T) {
	pool := setupTestDB(t)
	svc := newServices(t, pool)
	ctx := context.Background()

	order, err := svc.orders.CreateOrder(ctx, core.CreateOrderInput{CustomerID: 1, DeliveryTypeID: 2})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	advanceToDelivered(t, svc, order.ID)

	_, err = svc.invoices.GenerateFromOrder(ctx, order.ID, 0)
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected ValidationError for an order without lines, got %v", err)
	}
}

func TestInvoiceGenerator_RollsBackOnWriteFailure(t *testing.T) {
	pool := setupTestDB(t)
	svc := newServices(t, pool)
	ctx := context.Background()

	order := createTwoLineOrder(t, svc)
	advanceToDelivered(t, svc, order.ID)

	// Make the second step of the transaction fail.
	rejectInserts(t, pool, "invoice_lines")

	_, err := svc.invoices.GenerateFromOrder(ctx, order.ID, 0)
	var te *core.TransactionError
	if !errors.As(err, &te) {
		t.Fatalf("Expected TransactionError, got %v", err)
	}

	if n := countRows(t, pool, "SELECT COUNT(*) FROM invoices"); n != 0 {
		t.Errorf("Rolled back generation left %d invoices", n)
	}
	if n := countRows(t, pool, "SELECT COUNT(*) FROM invoice_lines"); n != 0 {
		t.Errorf("Rolled back generation left %d invoice lines", n)
	}
	reloaded, err := svc.orders.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if reloaded.InvoiceID != nil {
		t.Errorf("Rolled back generation set invoice_id %d", *reloaded.InvoiceID)
	}
}

func TestInvoiceVoider_VoidIsOneWay(t *testing.T) {
	pool := setupTestDB(t)
	svc := newServices(t, pool)
	ctx := context.Background()

	order := createTwoLineOrder(t, svc)
	advanceToDelivered(t, svc, order.ID)
	invoiceID, err := svc.invoices.GenerateFromOrder(ctx, order.ID, 0)
	if err != nil {
		t.Fatalf("GenerateFromOrder failed: %v", err)
	}

	if err := svc.invoices.Void(ctx, invoiceID); err != nil {
		t.Fatalf("Void failed: %v", err)
	}
	voided, err := svc.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if voided.Status != core.InvoiceVoid || voided.VoidedAt == nil {
		t.Fatalf("Expected VOID with voided_at, got %s %v", voided.Status, voided.VoidedAt)
	}

	err = svc.invoices.Void(ctx, invoiceID)
	var it *core.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("Expected InvalidTransitionError on second void, got %v", err)
	}
	again, _ := svc.invoices.GetInvoice(ctx, invoiceID)
	if !again.VoidedAt.Equal(*voided.VoidedAt) {
		t.Errorf("Second void changed voided_at from %v to %v", voided.VoidedAt, again.VoidedAt)
	}

	// Voiding neither reopens the order nor clears its back-reference.
	reloaded, _ := svc.orders.GetOrder(ctx, order.ID)
	if reloaded.Status != core.OrderDelivered || reloaded.InvoiceID == nil {
		t.Errorf("Void touched the order: status=%s invoice=%v", reloaded.Status, reloaded.InvoiceID)
	}

	var nf *core.NotFoundError
	if err := svc.invoices.Void(ctx, 9999); !errors.As(err, &nf) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}

	status := core.InvoiceVoid
	list, err := svc.invoices.ListInvoices(ctx, &status)
	if err != nil {
		t.Fatalf("ListInvoices failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != invoiceID {
		t.Errorf("Expected voided invoice in list, got %+v", list)
	}
	active := core.InvoiceActive
	if list, _ := svc.invoices.ListInvoices(ctx, &active); len(list) != 0 {
		t.Errorf("Expected no active invoices, got %d", len(list))
	}
}
