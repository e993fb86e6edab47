package controllers

import (
	"errors"
	"net/http"
	"strings"

	"stockwatch_backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// WishlistController handles the per-user wishlist CRUD
type WishlistController struct {
	db *gorm.DB
}

// NewWishlistController creates a new wishlist controller
func NewWishlistController(db *gorm.DB) *WishlistController {
	return &WishlistController{db: db}
}

// GetWishlist returns all wishlist items for the calling user
// GET /get_wishlist
func (wc *WishlistController) GetWishlist(c *gin.Context) {
	user := CurrentUser(c)

	var items []models.WishlistItem
	if err := wc.db.Where("user_id = ?", user.ID).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wishlist"})
		return
	}

	c.JSON(http.StatusOK, items)
}

// AddToWishlist adds a stock to the calling user's wishlist
// POST /add_to_wishlist
func (wc *WishlistController) AddToWishlist(c *gin.Context) {
	user := CurrentUser(c)

	var request struct {
		Symbol string `json:"symbol" binding:"required"`
		Name   string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Symbol and name are required"})
		return
	}

	// Check if already in wishlist
	var existing models.WishlistItem
	if err := wc.db.Where("user_id = ? AND stock_symbol = ?", user.ID, request.Symbol).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Stock already in wishlist"})
		return
	}

	item := models.WishlistItem{
		UserID:      user.ID,
		StockSymbol: request.Symbol,
		StockName:   request.Name,
	}
	if err := wc.db.Create(&item).Error; err != nil {
		// Two concurrent adds can both pass the lookup; the unique
		// (user, symbol) index catches the loser on insert.
		if isDuplicateKeyError(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Stock already in wishlist"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add to wishlist"})
		return
	}

	c.JSON(http.StatusCreated, item)
}

// isDuplicateKeyError reports whether err came from a unique index firing
// on insert. Covers gorm's translated error plus the raw sqlite and
// postgres driver messages.
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// RemoveFromWishlist deletes a wishlist item owned by the calling user
// DELETE /remove_from_wishlist/:id
func (wc *WishlistController) RemoveFromWishlist(c *gin.Context) {
	user := CurrentUser(c)
	id := c.Param("id")

	var item models.WishlistItem
	if err := wc.db.First(&item, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wishlist item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wishlist item"})
		return
	}

	if item.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to remove this item"})
		return
	}

	if err := wc.db.Delete(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove from wishlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Removed from wishlist"})
}
