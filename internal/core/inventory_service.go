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

// InventoryLedger owns inventory records and their append-only movement log.
type InventoryLedger interface {
	// CreateRecord opens stock tracking for an article. A non-zero initial
	// quantity is booked as one ENTRY movement.
	CreateRecord(ctx context.Context, in NewInventoryRecord) (*InventoryRecord, error)
	GetRecord(ctx context.Context, recordID int) (*InventoryRecord, error)
	ListRecords(ctx context.Context) ([]InventoryRecord, error)
	// ListCritical returns records with available ≤ minimum.
	ListCritical(ctx context.Context) ([]InventoryRecord, error)
	// ListLowStock returns records with available ≤ 1.5 × minimum.
	ListLowStock(ctx context.Context) ([]InventoryRecord, error)
	Movements(ctx context.Context, recordID int) ([]InventoryMovement, error)
	// Reconcile compares the stored quantity with the sum of movement deltas.
	Reconcile(ctx context.Context, recordID int) (*ReconcileReport, error)
}

// InventoryAdjuster changes stock on one record per call. Each call updates
// the record and appends exactly one movement in the same transaction.
type InventoryAdjuster interface {
	DirectSet(ctx context.Context, recordID, newQuantity int, reason string, actorID int) (*InventoryRecord, error)
	Entry(ctx context.Context, recordID, amount int, reason string, actorID int) (*InventoryRecord, error)
	Exit(ctx context.Context, recordID, amount int, reason string, actorID int) (*InventoryRecord, error)
}

// InventoryService bundles ledger reads and adjustments over one pool.
type InventoryService interface {
	InventoryLedger
	InventoryAdjuster
}

type inventoryService struct {
	pool   *pgxpool.Pool
	events notifier
	logger *zap.Logger
}

func NewInventoryService(pool *pgxpool.Pool, publisher EventPublisher, logger *zap.Logger) InventoryService {
	n := newNotifier(publisher, logger)
	return &inventoryService{pool: pool, events: n, logger: n.logger}
}

const initialStockReason = "Initial stock"

func (s *inventoryService) CreateRecord(ctx context.Context, in NewInventoryRecord) (_ *InventoryRecord, err error) {
	ctx, span := startSpan(ctx, "InventoryLedger.CreateRecord", attribute.Int("article.id", in.ArticleID))
	defer func() { endSpan(span, err) }()

	switch {
	case in.ArticleID <= 0:
		return nil, &ValidationError{Field: "article_id", Reason: "is required"}
	case in.Quantity < 0:
		return nil, &ValidationError{Field: "quantity", Reason: "must not be negative"}
	case in.Quantity > MaxQuantity:
		return nil, &ValidationError{Field: "quantity", Reason: fmt.Sprintf("must not exceed %d", MaxQuantity)}
	case in.QuantityMinimum < 0:
		return nil, &ValidationError{Field: "quantity_minimum", Reason: "must not be negative"}
	case in.QuantityMinimum > MaxQuantity:
		return nil, &ValidationError{Field: "quantity_minimum", Reason: fmt.Sprintf("must not exceed %d", MaxQuantity)}
	case in.UnitPrice.IsNegative():
		return nil, &ValidationError{Field: "unit_price", Reason: "must not be negative"}
	}

	var recordID int
	err = db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := requireActive(ctx, tx, "article", "articles", in.ArticleID); err != nil {
			return err
		}
		if in.ShelfID != nil {
			var exists bool
			if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM shelves WHERE id = $1)", *in.ShelfID).Scan(&exists); err != nil {
				return fmt.Errorf("failed to look up shelf %d: %w", *in.ShelfID, err)
			}
			if !exists {
				return &NotFoundError{Entity: "shelf", ID: *in.ShelfID}
			}
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO inventory_records (article_id, qty_available, qty_minimum, unit_price, shelf_id, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			RETURNING id
		`, in.ArticleID, in.Quantity, in.QuantityMinimum, in.UnitPrice, in.ShelfID).Scan(&recordID); err != nil {
			return fmt.Errorf("failed to insert inventory record: %w", err)
		}

		if in.Quantity > 0 {
			return insertMovement(ctx, tx, recordID, MovementEntry, in.Quantity, initialStockReason, in.ActorID)
		}
		return nil
	})
	if err != nil {
		return nil, txFailure("create inventory record", err)
	}

	s.logger.Info("inventory record created",
		zap.Int("record_id", recordID),
		zap.Int("article_id", in.ArticleID),
		zap.Int("quantity", in.Quantity),
	)
	return s.GetRecord(ctx, recordID)
}

func insertMovement(ctx context.Context, tx pgx.Tx, recordID int, typ MovementType, delta int, reason string, actorID int) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO inventory_movements (inventory_record_id, movement_type, quantity_delta, movement_date, reason, actor_id)
		VALUES ($1, $2, $3, CURRENT_DATE, $4, $5)
	`, recordID, typ, delta, reason, actorRef(actorID)); err != nil {
		return fmt.Errorf("failed to insert inventory movement: %w", err)
	}
	return nil
}

// ── Adjustments ──────────────────────────────────────────────────────────────

func (s *inventoryService) DirectSet(ctx context.Context, recordID, newQuantity int, reason string, actorID int) (*InventoryRecord, error) {
	return s.adjust(ctx, "InventoryAdjuster.DirectSet", MovementAdjustment, recordID, newQuantity, reason, actorID)
}

func (s *inventoryService) Entry(ctx context.Context, recordID, amount int, reason string, actorID int) (*InventoryRecord, error) {
	return s.adjust(ctx, "InventoryAdjuster.Entry", MovementEntry, recordID, amount, reason, actorID)
}

func (s *inventoryService) Exit(ctx context.Context, recordID, amount int, reason string, actorID int) (*InventoryRecord, error) {
	return s.adjust(ctx, "InventoryAdjuster.Exit", MovementExit, recordID, amount, reason, actorID)
}

func (s *inventoryService) adjust(ctx context.Context, spanName string, mode MovementType, recordID, amount int, reason string, actorID int) (_ *InventoryRecord, err error) {
	ctx, span := startSpan(ctx, spanName,
		attribute.Int("inventory.record_id", recordID),
		attribute.Int("inventory.amount", amount),
	)
	defer func() { endSpan(span, err) }()

	if recordID <= 0 {
		return nil, &ValidationError{Field: "record_id", Reason: "is required"}
	}
	reason, err = requireText("reason", reason, MaxReasonLength)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(mode, amount); err != nil {
		return nil, err
	}

	var (
		rec  *InventoryRecord
		plan Adjustment
	)
	err = db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		rec, err = getRecordQ(ctx, tx, recordID, true)
		if err != nil {
			return err
		}

		plan, err = PlanAdjustment(*rec, mode, amount)
		if err != nil {
			return err
		}

		if err := tx.QueryRow(ctx, `
			UPDATE inventory_records SET qty_available = $1, updated_at = NOW()
			WHERE id = $2
			RETURNING updated_at
		`, plan.NewQuantity, recordID).Scan(&rec.UpdatedAt); err != nil {
			return fmt.Errorf("failed to update inventory record: %w", err)
		}
		rec.QuantityAvailable = plan.NewQuantity

		return insertMovement(ctx, tx, recordID, plan.Type, plan.Delta, reason, actorID)
	})
	if err != nil {
		return nil, txFailure("inventory adjustment", err)
	}

	s.logger.Info("inventory adjusted",
		zap.Int("record_id", recordID),
		zap.String("movement_type", string(plan.Type)),
		zap.Int("delta", plan.Delta),
		zap.Int("quantity_available", rec.QuantityAvailable),
	)

	payload := InventoryAdjusted{
		RecordID:          rec.ID,
		ArticleID:         rec.ArticleID,
		MovementType:      plan.Type,
		QuantityDelta:     plan.Delta,
		QuantityAvailable: rec.QuantityAvailable,
		QuantityMinimum:   rec.QuantityMinimum,
		Reason:            reason,
	}
	s.events.notify(ctx, EventInventoryAdjusted, payload)
	if rec.Critical() {
		s.logger.Warn("inventory record at or below minimum",
			zap.Int("record_id", rec.ID),
			zap.Int("quantity_available", rec.QuantityAvailable),
			zap.Int("quantity_minimum", rec.QuantityMinimum),
		)
		s.events.notify(ctx, EventInventoryCritical, payload)
	}
	return rec, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

const recordSelect = `
	SELECT r.id, r.article_id, a.name, r.qty_available, r.qty_minimum, r.unit_price, r.shelf_id, r.updated_at
	FROM inventory_records r
	JOIN articles a ON a.id = r.article_id`

func scanRecord(row pgx.Row, r *InventoryRecord) error {
	return row.Scan(&r.ID, &r.ArticleID, &r.ArticleName, &r.QuantityAvailable, &r.QuantityMinimum,
		&r.UnitPrice, &r.ShelfID, &r.UpdatedAt)
}

// getRecordQ loads one record, locking the row when forUpdate is set.
func getRecordQ(ctx context.Context, q pgxQuerier, recordID int, forUpdate bool) (*InventoryRecord, error) {
	query := recordSelect + " WHERE r.id = $1"
	if forUpdate {
		query += " FOR UPDATE OF r"
	}
	var r InventoryRecord
	if err := scanRecord(q.QueryRow(ctx, query, recordID), &r); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "inventory record", ID: recordID}
		}
		return nil, fmt.Errorf("failed to get inventory record %d: %w", recordID, err)
	}
	return &r, nil
}

func (s *inventoryService) GetRecord(ctx context.Context, recordID int) (*InventoryRecord, error) {
	return getRecordQ(ctx, s.pool, recordID, false)
}

func (s *inventoryService) ListRecords(ctx context.Context) ([]InventoryRecord, error) {
	return s.queryRecords(ctx, recordSelect+" ORDER BY a.name, r.id")
}

func (s *inventoryService) ListCritical(ctx context.Context) ([]InventoryRecord, error) {
	return s.queryRecords(ctx, recordSelect+" WHERE r.qty_available <= r.qty_minimum ORDER BY r.qty_available - r.qty_minimum, r.id")
}

func (s *inventoryService) ListLowStock(ctx context.Context) ([]InventoryRecord, error) {
	return s.queryRecords(ctx, recordSelect+" WHERE 2 * r.qty_available <= 3 * r.qty_minimum ORDER BY r.qty_available - r.qty_minimum, r.id")
}

func (s *inventoryService) queryRecords(ctx context.Context, query string) ([]InventoryRecord, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory records: %w", err)
	}
	defer rows.Close()

	records := []InventoryRecord{}
	for rows.Next() {
		var r InventoryRecord
		if err := scanRecord(rows, &r); err != nil {
			return nil, fmt.Errorf("failed to scan inventory record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *inventoryService) Movements(ctx context.Context, recordID int) ([]InventoryMovement, error) {
	if _, err := s.GetRecord(ctx, recordID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, inventory_record_id, movement_type, quantity_delta, movement_date::text, reason, actor_id, created_at
		FROM inventory_movements
		WHERE inventory_record_id = $1
		ORDER BY created_at, id
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory movements: %w", err)
	}
	defer rows.Close()

	movements := []InventoryMovement{}
	for rows.Next() {
		var m InventoryMovement
		if err := rows.Scan(&m.ID, &m.InventoryRecordID, &m.Type, &m.QuantityDelta, &m.MovementDate,
			&m.Reason, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inventory movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (s *inventoryService) Reconcile(ctx context.Context, recordID int) (_ *ReconcileReport, err error) {
	ctx, span := startSpan(ctx, "InventoryLedger.Reconcile", attribute.Int("inventory.record_id", recordID))
	defer func() { endSpan(span, err) }()

	r := ReconcileReport{RecordID: recordID}
	err = s.pool.QueryRow(ctx, `
		SELECT r.qty_available, COALESCE(SUM(m.quantity_delta), 0), COUNT(m.id)
		FROM inventory_records r
		LEFT JOIN inventory_movements m ON m.inventory_record_id = r.id
		WHERE r.id = $1
		GROUP BY r.id
	`, recordID).Scan(&r.QuantityAvailable, &r.MovementSum, &r.MovementCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "inventory record", ID: recordID}
		}
		return nil, fmt.Errorf("failed to reconcile inventory record %d: %w", recordID, err)
	}
	r.Drift = r.QuantityAvailable - r.MovementSum
	r.Consistent = r.Drift == 0
	if !r.Consistent {
		s.logger.Warn("inventory drift detected",
			zap.Int("record_id", recordID),
			zap.Int("drift", r.Drift),
		)
	}
	return &r, nil
}
