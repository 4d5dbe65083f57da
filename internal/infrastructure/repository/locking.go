package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds SELECT ... FOR UPDATE. SQLite has no row locks; its single
// writer already serialises transactions.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// applyLimit leaves the query unbounded for limit <= 0.
func applyLimit(tx *gorm.DB, limit int) *gorm.DB {
	if limit > 0 {
		return tx.Limit(limit)
	}
	return tx
}
