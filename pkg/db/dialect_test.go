package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
)

func TestDialect(t *testing.T) {
	base := Config{
		Host:     "db.internal",
		Port:     "5432",
		Name:     "catalog",
		User:     "estimator",
		Password: "secret",
		SSLMode:  "require",
	}

	t.Run("postgres", func(t *testing.T) {
		cfg := base
		cfg.Type = "postgres"
		d, err := Dialect(cfg)
		require.NoError(t, err)
		assert.Equal(t, "postgres", d.Name())
		assert.Equal(t,
			"host=db.internal user=estimator password=secret dbname=catalog port=5432 sslmode=require TimeZone=UTC",
			d.(*postgres.Dialector).DSN)
	})

	t.Run("mysql", func(t *testing.T) {
		cfg := base
		cfg.Type = "mysql"
		cfg.Port = "3306"
		d, err := Dialect(cfg)
		require.NoError(t, err)
		assert.Equal(t, "mysql", d.Name())
		assert.Equal(t,
			"estimator:secret@tcp(db.internal:3306)/catalog?charset=utf8mb4&parseTime=True&loc=UTC",
			d.(*mysql.Dialector).DSN)
	})

	t.Run("sqlite default path", func(t *testing.T) {
		d, err := Dialect(Config{Type: "sqlite"})
		require.NoError(t, err)
		assert.Equal(t, "sqlite", d.Name())
		assert.Equal(t, "contractorlens.db", d.(*sqlite.Dialector).DSN)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := Dialect(Config{Type: "oracle"})
		assert.ErrorContains(t, err, "unsupported oracle type")
	})
}
