package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"restaurant-backoffice/internal/core"
)

type appService struct {
	orders    core.OrderStore
	machine   core.OrderStatusMachine
	invoices  core.InvoiceService
	inventory core.InventoryService
	logger    *zap.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	orders core.OrderStore,
	machine core.OrderStatusMachine,
	invoices core.InvoiceService,
	inventory core.InventoryService,
	logger *zap.Logger,
) ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &appService{
		orders:    orders,
		machine:   machine,
		invoices:  invoices,
		inventory: inventory,
		logger:    logger,
	}
}

// ── Orders ───────────────────────────────────────────────────────────────────

func (s *appService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	order, err := s.orders.CreateOrder(ctx, core.CreateOrderInput{
		CustomerID:     req.CustomerID,
		DeliveryTypeID: req.DeliveryTypeID,
		Lines:          toCoreLines(req.Lines),
		ActorID:        req.Actor.UserID,
	})
	if err != nil {
		return nil, err
	}
	return s.orderResult(ctx, order)
}

func (s *appService) AddOrderLines(ctx context.Context, req AddOrderLinesRequest) (*OrderResult, error) {
	order, err := s.orders.AddLines(ctx, req.OrderID, toCoreLines(req.Lines))
	if err != nil {
		return nil, err
	}
	s.logger.Info("order lines added",
		zap.Int("order_id", req.OrderID),
		zap.Int("lines", len(req.Lines)),
		zap.Int("actor_id", req.Actor.UserID),
	)
	return s.orderResult(ctx, order)
}

func (s *appService) GetOrder(ctx context.Context, orderID int) (*OrderResult, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.orderResult(ctx, order)
}

func (s *appService) ListOrders(ctx context.Context, status string, customerID int) (*OrderListResult, error) {
	var filter core.OrderFilter
	if strings.TrimSpace(status) != "" {
		st, err := core.ParseOrderStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = &st
	}
	filter.CustomerID = customerID

	orders, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders}, nil
}

func (s *appService) ListOrdersPendingInvoice(ctx context.Context) (*OrderListResult, error) {
	orders, err := s.orders.ListPendingInvoice(ctx)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders}, nil
}

func (s *appService) TransitionOrder(ctx context.Context, req TransitionOrderRequest) (*OrderResult, error) {
	target, err := core.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, err
	}
	order, err := s.machine.Transition(ctx, req.OrderID, target, req.Comment, req.Actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.orderResult(ctx, order)
}

func (s *appService) CancelOrder(ctx context.Context, req CancelOrderRequest) (*OrderResult, error) {
	order, err := s.machine.Cancel(ctx, req.OrderID, req.Comment, req.Actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.orderResult(ctx, order)
}

// orderResult decorates an order with its history and next legal states.
// The order has already been read, and for writes committed, so a failed
// history lookup is logged and the result is returned without history.
func (s *appService) orderResult(ctx context.Context, order *core.Order) (*OrderResult, error) {
	history, err := s.orders.History(ctx, order.ID)
	if err != nil {
		s.logger.Warn("order history unavailable",
			zap.Int("order_id", order.ID),
			zap.Error(err),
		)
		history = nil
	}
	return &OrderResult{
		Order:              order,
		History:            history,
		AllowedTransitions: core.AllowedTransitions(order.Status),
	}, nil
}

func toCoreLines(lines []OrderLineInput) []core.OrderLineInput {
	out := make([]core.OrderLineInput, len(lines))
	for i, l := range lines {
		out[i] = core.OrderLineInput{MenuItemID: l.MenuItemID, Quantity: l.Quantity}
	}
	return out
}

// ── Invoices ─────────────────────────────────────────────────────────────────

func (s *appService) GenerateInvoice(ctx context.Context, req GenerateInvoiceRequest) (*InvoiceResult, error) {
	invoiceID, err := s.invoices.GenerateFromOrder(ctx, req.OrderID, req.CustomerID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice requested",
		zap.Int("invoice_id", invoiceID),
		zap.Int("order_id", req.OrderID),
		zap.Int("actor_id", req.Actor.UserID),
	)
	return s.committedInvoice(ctx, invoiceID, "generated")
}

func (s *appService) VoidInvoice(ctx context.Context, req VoidInvoiceRequest) (*InvoiceResult, error) {
	if err := s.invoices.Void(ctx, req.InvoiceID); err != nil {
		return nil, err
	}
	s.logger.Info("invoice void requested",
		zap.Int("invoice_id", req.InvoiceID),
		zap.Int("actor_id", req.Actor.UserID),
	)
	return s.committedInvoice(ctx, req.InvoiceID, "voided")
}

// committedInvoice loads an invoice after a committed write. A failed load
// does not undo the write, so the error names the invoice and what happened
// to it while keeping the underlying error type.
func (s *appService) committedInvoice(ctx context.Context, invoiceID int, action string) (*InvoiceResult, error) {
	res, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		s.logger.Warn("invoice reload failed after commit",
			zap.Int("invoice_id", invoiceID),
			zap.String("action", action),
			zap.Error(err),
		)
		return nil, fmt.Errorf("invoice %d was %s but could not be loaded: %w", invoiceID, action, err)
	}
	return res, nil
}

func (s *appService) GetInvoice(ctx context.Context, invoiceID int) (*InvoiceResult, error) {
	inv, err := s.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: inv}, nil
}

func (s *appService) ListInvoices(ctx context.Context, status string) (*InvoiceListResult, error) {
	var filter *core.InvoiceStatus
	if strings.TrimSpace(status) != "" {
		st, err := core.ParseInvoiceStatus(status)
		if err != nil {
			return nil, err
		}
		filter = &st
	}
	invoices, err := s.invoices.ListInvoices(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Invoices: invoices}, nil
}

// ── Inventory ────────────────────────────────────────────────────────────────

func (s *appService) CreateInventoryRecord(ctx context.Context, req CreateInventoryRecordRequest) (*InventoryRecordResult, error) {
	rec, err := s.inventory.CreateRecord(ctx, core.NewInventoryRecord{
		ArticleID:       req.ArticleID,
		Quantity:        req.Quantity,
		QuantityMinimum: req.QuantityMinimum,
		UnitPrice:       req.UnitPrice,
		ShelfID:         req.ShelfID,
		ActorID:         req.Actor.UserID,
	})
	if err != nil {
		return nil, err
	}
	return recordResult(rec, nil), nil
}

func (s *appService) GetInventoryRecord(ctx context.Context, recordID int) (*InventoryRecordResult, error) {
	rec, err := s.inventory.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	movements, err := s.inventory.Movements(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return recordResult(rec, movements), nil
}

const (
	ViewAll      = "all"
	ViewCritical = "critical"
	ViewLow      = "low"
)

func (s *appService) ListInventory(ctx context.Context, view string) (*InventoryListResult, error) {
	view = strings.ToLower(strings.TrimSpace(view))
	if view == "" {
		view = ViewAll
	}

	var (
		records []core.InventoryRecord
		err     error
	)
	switch view {
	case ViewAll:
		records, err = s.inventory.ListRecords(ctx)
	case ViewCritical:
		records, err = s.inventory.ListCritical(ctx)
	case ViewLow:
		records, err = s.inventory.ListLowStock(ctx)
	default:
		return nil, &core.ValidationError{Field: "view", Reason: "must be all, critical or low"}
	}
	if err != nil {
		return nil, err
	}
	return &InventoryListResult{View: view, Records: records}, nil
}

func (s *appService) AdjustInventory(ctx context.Context, req AdjustInventoryRequest) (*InventoryRecordResult, error) {
	mode, err := core.ParseMovementType(req.Mode)
	if err != nil {
		return nil, err
	}

	var rec *core.InventoryRecord
	switch mode {
	case core.MovementEntry:
		rec, err = s.inventory.Entry(ctx, req.RecordID, req.Quantity, req.Reason, req.Actor.UserID)
	case core.MovementExit:
		rec, err = s.inventory.Exit(ctx, req.RecordID, req.Quantity, req.Reason, req.Actor.UserID)
	default:
		rec, err = s.inventory.DirectSet(ctx, req.RecordID, req.Quantity, req.Reason, req.Actor.UserID)
	}
	if err != nil {
		return nil, err
	}
	return recordResult(rec, nil), nil
}

func (s *appService) ReconcileInventory(ctx context.Context, recordID int) (*core.ReconcileReport, error) {
	return s.inventory.Reconcile(ctx, recordID)
}

func recordResult(rec *core.InventoryRecord, movements []core.InventoryMovement) *InventoryRecordResult {
	return &InventoryRecordResult{
		Record:    rec,
		Critical:  rec.Critical(),
		Low:       rec.Low(),
		Movements: movements,
	}
}
