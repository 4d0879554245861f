package option

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// ApplyOrderBy orders by column; direction defaults to ASC.
func ApplyOrderBy(column, direction string) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if column == "" {
			return db
		}
		if direction != "DESC" && direction != "desc" {
			direction = "ASC"
		}
		return db.Order(fmt.Sprintf("%s %s", column, direction))
	})
}

func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

// WithWhere adds a raw condition alongside the struct filter.
func WithWhere(query string, args ...any) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}

// WithOrderExpr orders by a parameterised SQL expression.
func WithOrderExpr(sql string, args ...any) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Order(clause.OrderBy{Expression: clause.Expr{SQL: sql, Vars: args, WithoutParentheses: true}})
	})
}
