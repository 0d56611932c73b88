package storage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expectedMigrationCount is the number of migrations we expect to have
// Update this when adding new migrations
// Note: goose adds a version 0 entry when initializing, so total count is migrations + 1
const expectedMigrationCount = 5
const gooseVersionCount = expectedMigrationCount + 1 // includes goose's version 0 entry

// TestMigrations_FreshDatabase tests running migrations on a fresh database
func TestMigrations_FreshDatabase(t *testing.T) {
	// Create temp database
	tmpDB := createTempDB(t)
	defer os.Remove(tmpDB)

	// Create storage (this runs migrations)
	store, err := NewStorage(tmpDB)
	require.NoError(t, err)
	defer store.Close()

	var count int
	err = store.db.QueryRow("SELECT COUNT(*) FROM goose_db_version WHERE is_applied = 1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, gooseVersionCount, count, "Should have %d version entries (including goose init)", gooseVersionCount)
}

// TestMigrations_Idempotency tests that migrations can be run multiple times
func TestMigrations_Idempotency(t *testing.T) {
	tmpDB := createTempDB(t)
	defer os.Remove(tmpDB)

	// Run migrations first time
	store, err := NewStorage(tmpDB)
	require.NoError(t, err)
	store.Close()

	// Run migrations second time (should be idempotent)
	store, err = NewStorage(tmpDB)
	require.NoError(t, err)
	defer store.Close()

	var count int
	err = store.db.QueryRow("SELECT COUNT(*) FROM goose_db_version WHERE is_applied = 1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, gooseVersionCount, count, "Should still have exactly %d version entries", gooseVersionCount)
}

// TestMigrations_Schema tests that the correct schema is created
func TestMigrations_Schema(t *testing.T) {
	tmpDB := createTempDB(t)
	defer os.Remove(tmpDB)

	store, err := NewStorage(tmpDB)
	require.NoError(t, err)
	defer store.Close()

	for _, table := range []string{"invoices", "transactions", "reconciliation_records", "reconciliation_runs", "goose_db_version"} {
		err = store.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(new(int))
		assert.NoError(t, err, "%s table should exist", table)
	}
}

// TestMigrations_ForeignKeyConstraints tests that foreign keys are enforced
func TestMigrations_ForeignKeyConstraints(t *testing.T) {
	tmpDB := createTempDB(t)
	defer os.Remove(tmpDB)

	store, err := NewStorage(tmpDB)
	require.NoError(t, err)
	defer store.Close()

	var fkEnabled int
	err = store.db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled)
	require.NoError(t, err)
	assert.Equal(t, 1, fkEnabled, "Foreign keys should be enabled")

	// A record pointing at rows that don't exist must be rejected
	_, err = store.db.Exec(`
		INSERT INTO reconciliation_records (invoice_id, transaction_id, confidence, method, confirmed_at)
		VALUES (99999, 99999, 0.9, 'manual', CURRENT_TIMESTAMP)
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOREIGN KEY constraint failed")
}

// TestMigrations_RecordConstraints tests the one-to-one and range checks
func TestMigrations_RecordConstraints(t *testing.T) {
	tmpDB := createTempDB(t)
	defer os.Remove(tmpDB)

	store, err := NewStorage(tmpDB)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.db.Exec(`INSERT INTO invoices (id, supplier, amount_gross) VALUES (1, 'a', '10'), (2, 'b', '10')`)
	require.NoError(t, err)
	_, err = store.db.Exec(`INSERT INTO transactions (id, tx_date, amount) VALUES (1, '2024-01-01', '-10')`)
	require.NoError(t, err)

	_, err = store.db.Exec(`INSERT INTO reconciliation_records (invoice_id, transaction_id, confidence, method, confirmed_at)
		VALUES (1, 1, 0.9, 'manual', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	_, err = store.db.Exec(`INSERT INTO reconciliation_records (invoice_id, transaction_id, confidence, method, confirmed_at)
		VALUES (2, 1, 0.9, 'manual', CURRENT_TIMESTAMP)`)
	assert.True(t, isUniqueViolation(err), "second record on the same transaction should violate UNIQUE, got %v", err)

	_, err = store.db.Exec(`INSERT INTO reconciliation_records (invoice_id, transaction_id, confidence, method, confirmed_at)
		VALUES (2, 1, 1.5, 'manual', CURRENT_TIMESTAMP)`)
	assert.Error(t, err)
}

// createTempDB returns the path of an empty temp file for a test database
func createTempDB(t *testing.T) string {
	tmpFile, err := os.CreateTemp("", "test_*.db")
	require.NoError(t, err)
	tmpFile.Close()
	return tmpFile.Name()
}
