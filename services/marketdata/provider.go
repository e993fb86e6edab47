package marketdata

import (
	"context"
	"time"
)

// Provider abstracts the external market-data source.
type Provider interface {
	// FetchCandles returns candles for the given range (e.g. "1y", "1d")
	// and interval (e.g. "1d", "1m"), in chronological order.
	FetchCandles(ctx context.Context, symbol, rng, interval string) ([]Candle, error)

	// FetchCandlesBetween returns candles between start and end at the
	// given interval.
	FetchCandlesBetween(ctx context.Context, symbol, interval string, start, end time.Time) ([]Candle, error)

	// FetchQuote returns the latest price summary for a symbol.
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)
}
