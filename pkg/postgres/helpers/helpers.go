package helpers

import "gorm.io/gorm"

// WrapTxAndCommit runs fn in tx, or in a new transaction that is committed on success and
// rolled back on failure when tx is nil.
func WrapTxAndCommit[T any](fn func(*gorm.DB) (T, error), db *gorm.DB, tx *gorm.DB) (T, error) {
	exists := tx != nil

	if !exists {
		tx = db.Begin()
		if tx.Error != nil {
			var zero T
			return zero, tx.Error
		}
	}

	res, err := fn(tx)

	if err != nil && !exists {
		tx.Rollback()
	}
	if err == nil && !exists {
		if commit := tx.Commit(); commit.Error != nil {
			return res, commit.Error
		}
	}
	return res, err
}
