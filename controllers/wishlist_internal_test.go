package controllers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyError(t *testing.T) {
	assert.True(t, isDuplicateKeyError(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateKeyError(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, isDuplicateKeyError(errors.New("UNIQUE constraint failed: wishlist_items.user_id, wishlist_items.stock_symbol")))
	assert.True(t, isDuplicateKeyError(errors.New(`ERROR: duplicate key value violates unique constraint "idx_user_symbol" (SQLSTATE 23505)`)))

	assert.False(t, isDuplicateKeyError(errors.New("database is locked")))
	assert.False(t, isDuplicateKeyError(gorm.ErrRecordNotFound))
}
