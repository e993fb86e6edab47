package models

import (
	"time"

	"gorm.io/gorm"
)

// WishlistItem represents a stock tracked by a user.
// A (user, symbol) pair is unique.
type WishlistItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;uniqueIndex:idx_user_symbol" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	StockSymbol string    `gorm:"uniqueIndex:idx_user_symbol;not null" json:"stock_symbol"`
	StockName   string    `json:"stock_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// MigrateWishlistModels runs database migrations for wishlist models
func MigrateWishlistModels(db *gorm.DB) error {
	return db.AutoMigrate(&WishlistItem{})
}
