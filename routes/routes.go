package routes

import (
	"stockwatch_backend/controllers"
	"stockwatch_backend/middleware"
	"stockwatch_backend/services/marketdata"
	"stockwatch_backend/services/quotecache"
	"stockwatch_backend/services/stocklist"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the shared services handed to the route handlers.
type Deps struct {
	DB       *gorm.DB
	Stocks   *stocklist.Service
	Cache    *quotecache.Cache
	Provider marketdata.Provider
	Limiter  *middleware.RateLimiter
}

// SetupRoutes wires all pages and JSON endpoints
func SetupRoutes(router *gin.Engine, deps Deps) {
	authController := controllers.NewAuthController(deps.DB, deps.Limiter)
	stockController := controllers.NewStockController(deps.Stocks, deps.Cache, deps.Provider)
	wishlistController := controllers.NewWishlistController(deps.DB)

	// Rendered pages
	router.GET("/", authController.HomePage)
	router.GET("/register", authController.RegisterPage)
	router.POST("/register", authController.Register)
	router.GET("/login", authController.LoginPage)
	router.POST("/login", deps.Limiter.LimitLogins(), authController.Login)
	router.GET("/logout", authController.Logout)
	router.GET("/dashboard", authController.RequirePage(), authController.Dashboard)

	// Token issuance for programmatic clients
	router.POST("/api/token", deps.Limiter.LimitLogins(), authController.APIToken)

	// JSON endpoints used by the dashboard
	api := router.Group("/", authController.RequireAuth())
	{
		api.GET("/search_stocks", stockController.SearchStocks)
		api.GET("/get_stock_data", stockController.GetStockData)
		api.GET("/get_latest_price", stockController.GetLatestPrice)
		api.GET("/get_latest_candle", stockController.GetLatestCandle)

		api.GET("/get_wishlist", wishlistController.GetWishlist)
		api.POST("/add_to_wishlist", wishlistController.AddToWishlist)
		api.DELETE("/remove_from_wishlist/:id", wishlistController.RemoveFromWishlist)
	}
}
