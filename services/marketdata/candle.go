package marketdata

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents OHLCV data for a symbol at a specific time bucket.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// CandleJSON is the wire shape served to the chart frontend.
// Prices are rounded to 2 decimal places.
type CandleJSON struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Quote is the latest price summary for a symbol.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        int64   `json:"volume"`
	Time          string  `json:"time"`
}

const (
	dailyTimeLayout    = "2006-01-02"
	intradayTimeLayout = "2006-01-02 15:04"
)

// Round2 rounds a price to 2 decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// IsIntraday reports whether the interval denotes sub-daily buckets.
func IsIntraday(interval string) bool {
	switch interval {
	case "1m", "2m", "5m", "15m", "30m", "60m", "90m", "1h":
		return true
	}
	return false
}

// ToJSON reshapes a candle into its wire form. Intraday candles carry a
// minute-resolution label, daily and coarser candles a date label.
func (c Candle) ToJSON(intraday bool) CandleJSON {
	layout := dailyTimeLayout
	if intraday {
		layout = intradayTimeLayout
	}
	return CandleJSON{
		Time:   c.Time.Format(layout),
		Open:   Round2(c.Open),
		High:   Round2(c.High),
		Low:    Round2(c.Low),
		Close:  Round2(c.Close),
		Volume: c.Volume,
	}
}

// CandlesToJSON reshapes a candle series, preserving provider order.
func CandlesToJSON(candles []Candle, intraday bool) []CandleJSON {
	out := make([]CandleJSON, 0, len(candles))
	for _, c := range candles {
		out = append(out, c.ToJSON(intraday))
	}
	return out
}
