// Package testutil opens throwaway catalog databases for tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mirzaik-wcc/contractorlens/internal/migration"
	"github.com/mirzaik-wcc/contractorlens/internal/seed"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewCatalogDB opens an isolated in-memory sqlite database with the catalog schema applied.
func NewCatalogDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.Run(db, "sqlite"))
	return db
}

// NewSeededCatalogDB is NewCatalogDB plus the demo catalog scraped relative to now.
func NewSeededCatalogDB(t *testing.T, now time.Time) *gorm.DB {
	t.Helper()
	db := NewCatalogDB(t)
	require.NoError(t, seed.EnsureDemoCatalogAt(context.Background(), db, now))
	return db
}
