package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/healthmate/server/internal/database"
	"gorm.io/gorm"
)

// OpenDB returns a migrated in-memory database with foreign keys enforced.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN("file::memory:")), database.GormConfig())
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	// One connection keeps every query on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed migrating models: %v", err)
	}
	return db
}
