package controllers

import (
	"log"
	"net/http"
	"time"

	"stockwatch_backend/services/marketdata"
	"stockwatch_backend/services/quotecache"
	"stockwatch_backend/services/stocklist"

	"github.com/gin-gonic/gin"
)

// StockController serves symbol search and candle data
type StockController struct {
	stocks   *stocklist.Service
	cache    *quotecache.Cache
	provider marketdata.Provider
}

// NewStockController creates a new stock controller
func NewStockController(stocks *stocklist.Service, cache *quotecache.Cache, provider marketdata.Provider) *StockController {
	return &StockController{stocks: stocks, cache: cache, provider: provider}
}

// SearchStocks searches the static listing by symbol or name
// GET /search_stocks?query=
func (sc *StockController) SearchStocks(c *gin.Context) {
	query := c.Query("query")
	c.JSON(http.StatusOK, sc.stocks.Search(query))
}

// GetStockData returns candle history for a symbol.
// The default one-year daily view is served through the quote cache;
// explicit period/interval or date-range requests go straight to the
// provider. Provider failures degrade to an empty list.
// GET /get_stock_data?symbol=&period=&interval=&start=&end=
func (sc *StockController) GetStockData(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusOK, []marketdata.CandleJSON{})
		return
	}

	period := c.DefaultQuery("period", "1y")
	interval := c.DefaultQuery("interval", "1d")
	start := c.Query("start")
	end := c.Query("end")

	var candles []marketdata.Candle
	var err error

	switch {
	case period == "None" && start != "" && end != "":
		candles, err = sc.fetchRange(c, symbol, interval, start, end)
	case period == "1y" && interval == "1d":
		candles, err = sc.cache.GetOrFetch(c.Request.Context(), symbol)
	default:
		candles, err = sc.provider.FetchCandles(c.Request.Context(), symbol, period, interval)
	}

	if err != nil {
		log.Printf("Failed to fetch stock data for %s: %v", symbol, err)
		c.JSON(http.StatusOK, []marketdata.CandleJSON{})
		return
	}

	c.JSON(http.StatusOK, marketdata.CandlesToJSON(candles, marketdata.IsIntraday(interval)))
}

func (sc *StockController) fetchRange(c *gin.Context, symbol, interval, start, end string) ([]marketdata.Candle, error) {
	startTime, err := time.Parse("2006-01-02", start)
	if err != nil {
		return nil, err
	}
	endTime, err := time.Parse("2006-01-02", end)
	if err != nil {
		return nil, err
	}
	return sc.provider.FetchCandlesBetween(c.Request.Context(), symbol, interval, startTime, endTime)
}

// GetLatestPrice returns the latest price summary for a symbol.
// Provider failures surface as an error field, not an HTTP error.
// GET /get_latest_price?symbol=
func (sc *StockController) GetLatestPrice(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	quote, err := sc.provider.FetchQuote(c.Request.Context(), symbol)
	if err != nil {
		log.Printf("Failed to fetch latest price for %s: %v", symbol, err)
		c.JSON(http.StatusOK, gin.H{"error": "Could not fetch latest price"})
		return
	}

	c.JSON(http.StatusOK, quote)
}

// GetLatestCandle returns the most recent candle at the given interval
// GET /get_latest_candle?symbol=&interval=
func (sc *StockController) GetLatestCandle(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	interval := c.DefaultQuery("interval", "1m")

	candles, err := sc.provider.FetchCandles(c.Request.Context(), symbol, "1d", interval)
	if err != nil {
		log.Printf("Failed to fetch latest candle for %s: %v", symbol, err)
		c.JSON(http.StatusOK, gin.H{"error": "Could not fetch latest candle"})
		return
	}
	if len(candles) == 0 {
		c.JSON(http.StatusOK, gin.H{"error": "No candle data available"})
		return
	}

	c.JSON(http.StatusOK, candles[len(candles)-1].ToJSON(marketdata.IsIntraday(interval)))
}
