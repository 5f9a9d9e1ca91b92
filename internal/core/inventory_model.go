package core

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType is the closed set of stock movement kinds.
type MovementType string

const (
	MovementEntry      MovementType = "ENTRY"
	MovementExit       MovementType = "EXIT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// ParseMovementType accepts the canonical names plus the operator verbs
// "entry", "exit" and "set".
func ParseMovementType(s string) (MovementType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ENTRY", "IN":
		return MovementEntry, nil
	case "EXIT", "OUT":
		return MovementExit, nil
	case "ADJUSTMENT", "SET", "DIRECT":
		return MovementAdjustment, nil
	}
	return "", &ValidationError{Field: "mode", Reason: "must be entry, exit or set"}
}

// InventoryRecord tracks the stock of one article on one shelf.
// QuantityAvailable is never negative.
type InventoryRecord struct {
	ID                int             `json:"id"`
	ArticleID         int             `json:"article_id"`
	ArticleName       string          `json:"article_name"` // joined from articles
	QuantityAvailable int             `json:"quantity_available"`
	QuantityMinimum   int             `json:"quantity_minimum"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	ShelfID           *int            `json:"shelf_id,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Critical reports stock at or below the minimum. Derived, never stored.
func (r InventoryRecord) Critical() bool {
	return r.QuantityAvailable <= r.QuantityMinimum
}

// Low reports stock at or below 1.5 × the minimum.
func (r InventoryRecord) Low() bool {
	return 2*r.QuantityAvailable <= 3*r.QuantityMinimum
}

// StockValue is QuantityAvailable × UnitPrice.
func (r InventoryRecord) StockValue() decimal.Decimal {
	return decimal.NewFromInt(int64(r.QuantityAvailable)).Mul(r.UnitPrice)
}

// InventoryMovement is one append-only stock change. Summing QuantityDelta
// over a record's movements yields its QuantityAvailable.
type InventoryMovement struct {
	ID                int          `json:"id"`
	InventoryRecordID int          `json:"inventory_record_id"`
	Type              MovementType `json:"type"`
	QuantityDelta     int          `json:"quantity_delta"`
	MovementDate      string       `json:"movement_date"` // YYYY-MM-DD
	Reason            string       `json:"reason"`
	ActorID           *int         `json:"actor_id,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}

// NewInventoryRecord is the input to InventoryLedger.CreateRecord.
type NewInventoryRecord struct {
	ArticleID       int
	Quantity        int
	QuantityMinimum int
	UnitPrice       decimal.Decimal
	ShelfID         *int
	ActorID         int
}

// ReconcileReport compares a record's quantity with its movement log.
type ReconcileReport struct {
	RecordID          int  `json:"record_id"`
	QuantityAvailable int  `json:"quantity_available"`
	MovementSum       int  `json:"movement_sum"`
	MovementCount     int  `json:"movement_count"`
	Drift             int  `json:"drift"` // QuantityAvailable - MovementSum
	Consistent        bool `json:"consistent"`
}

// Adjustment is the planned outcome of one stock operation.
type Adjustment struct {
	Type        MovementType
	NewQuantity int
	Delta       int
}

// MaxReasonLength bounds a movement reason.
const MaxReasonLength = 300

// MaxQuantity is the largest quantity a record or movement can hold (INT column).
const MaxQuantity = math.MaxInt32

// validateAmount checks the sign and range of amount for mode. It does not
// need the stored quantity, so it runs before any transaction is opened.
func validateAmount(mode MovementType, amount int) error {
	if amount > MaxQuantity {
		return &ValidationError{Field: "quantity", Reason: fmt.Sprintf("must not exceed %d", MaxQuantity)}
	}
	switch mode {
	case MovementAdjustment:
		if amount < 0 {
			return &ValidationError{Field: "quantity", Reason: "must not be negative"}
		}
	case MovementEntry, MovementExit:
		if amount <= 0 {
			return &ValidationError{Field: "quantity", Reason: "must be positive"}
		}
	default:
		return &ValidationError{Field: "mode", Reason: "unknown movement type " + string(mode)}
	}
	return nil
}

// PlanAdjustment validates amount for mode against the record's current
// quantity and returns the new quantity and movement delta. For
// MovementAdjustment amount is the absolute target quantity.
func PlanAdjustment(rec InventoryRecord, mode MovementType, amount int) (Adjustment, error) {
	if err := validateAmount(mode, amount); err != nil {
		return Adjustment{}, err
	}
	current := rec.QuantityAvailable
	switch mode {
	case MovementEntry:
		if amount > MaxQuantity-current {
			return Adjustment{}, &ValidationError{Field: "quantity",
				Reason: fmt.Sprintf("entry of %d would take stock above %d", amount, MaxQuantity)}
		}
		return Adjustment{Type: mode, NewQuantity: current + amount, Delta: amount}, nil
	case MovementExit:
		if amount > current {
			return Adjustment{}, &InsufficientStockError{RecordID: rec.ID, Available: current, Requested: amount}
		}
		return Adjustment{Type: mode, NewQuantity: current - amount, Delta: -amount}, nil
	default:
		return Adjustment{Type: mode, NewQuantity: amount, Delta: amount - current}, nil
	}
}
