package core_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"restaurant-backoffice/internal/core"
	"restaurant-backoffice/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zaptest"
)

// setupTestDB migrates the test database, wipes every table and seeds
// reference data:
//
//	customers:      1 Ana López, 2 Bruno Díaz, 3 inactive
//	delivery types: 1 Dine-in, 2 Delivery
//	menu items:     1 Pupusa revuelta 1000.00, 2 Horchata 500.00, 3 inactive
//	articles:       1 Harina de maíz, 2 Queso
//	shelves:        1 A1
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	if err := migrations.Up(dbURL); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE inventory_movements, inventory_records, invoice_lines, invoices,
			order_status_history, order_lines, orders,
			shelves, articles, menu_items, delivery_types, customers
			RESTART IDENTITY CASCADE;

		INSERT INTO customers (national_id, name, is_active) VALUES
		('CF-001', 'Ana López',  true),
		('CF-002', 'Bruno Díaz', true),
		('CF-003', 'Old Client', false);

		INSERT INTO delivery_types (name) VALUES ('Dine-in'), ('Delivery');

		INSERT INTO menu_items (name, unit_price, is_active) VALUES
		('Pupusa revuelta', 1000.00, true),
		('Horchata',         500.00, true),
		('Retired dish',      10.00, false);

		INSERT INTO articles (name) VALUES ('Harina de maíz'), ('Queso');

		INSERT INTO shelves (name) VALUES ('A1');
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

// recordingPublisher keeps every published event for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []core.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e core.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type services struct {
	orders    core.OrderStore
	machine   core.OrderStatusMachine
	invoices  core.InvoiceService
	inventory core.InventoryService
	events    *recordingPublisher
}

func newServices(t *testing.T, pool *pgxpool.Pool) services {
	pub := &recordingPublisher{}
	logger := zaptest.NewLogger(t)
	orders := core.NewOrderStore(pool, pub, logger)
	return services{
		orders:    orders,
		machine:   core.NewOrderStatusMachine(pool, pub, logger),
		invoices:  core.NewInvoiceService(pool, pub, logger),
		inventory: core.NewInventoryService(pool, pub, logger),
		events:    pub,
	}
}

func countRows(t *testing.T, pool *pgxpool.Pool, query string, args ...any) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	return n
}

// rejectInserts installs a trigger that makes every INSERT into table fail,
// so a multi-step transaction breaks partway through. It is removed on cleanup.
func rejectInserts(t *testing.T, pool *pgxpool.Pool, table string) {
	t.Helper()
	fn := "test_reject_" + table
	_, err := pool.Exec(context.Background(), `
		CREATE OR REPLACE FUNCTION `+fn+`() RETURNS trigger AS $$
		BEGIN
			RAISE EXCEPTION '`+table+` insert rejected by test';
		END;
		$$ LANGUAGE plpgsql;

		DROP TRIGGER IF EXISTS `+fn+` ON `+table+`;
		CREATE TRIGGER `+fn+` BEFORE INSERT ON `+table+`
			FOR EACH ROW EXECUTE FUNCTION `+fn+`();
	`)
	if err != nil {
		t.Fatalf("Failed to install failing trigger on %s: %v", table, err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `
			DROP TRIGGER IF EXISTS `+fn+` ON `+table+`;
			DROP FUNCTION IF EXISTS `+fn+`();
		`)
	})
}
