package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"
)

// DefaultBaseURL is the Yahoo Finance chart API endpoint.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// YahooProvider implements Provider using the Yahoo Finance public chart API.
type YahooProvider struct {
	Client  *http.Client
	BaseURL string
}

// NewYahooProvider creates a new Yahoo Finance provider.
func NewYahooProvider() *YahooProvider {
	return &YahooProvider{
		Client:  &http.Client{Timeout: 30 * time.Second},
		BaseURL: DefaultBaseURL,
	}
}

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func (p *YahooProvider) fetchChart(ctx context.Context, symbol string, params url.Values) (*yahooChart, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.BaseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned for %s", symbol)
	}
	return &chart, nil
}

// chartCandles converts a chart result into candles, skipping null bars
// (holidays, halted minutes) and sorting chronologically.
func chartCandles(chart *yahooChart) []Candle {
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	quote := result.Indicators.Quote[0]
	candles := make([]Candle, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			break
		}
		o := toFloat(quote.Open[i])
		h := toFloat(quote.High[i])
		l := toFloat(quote.Low[i])
		c := toFloat(quote.Close[i])
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // null bar
		}
		var vol int64
		if i < len(quote.Volume) {
			vol = int64(toFloat(quote.Volume[i]))
		}
		candles = append(candles, Candle{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: vol,
		})
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	return candles
}

// FetchCandles fetches candles for a range/interval pair.
func (p *YahooProvider) FetchCandles(ctx context.Context, symbol, rng, interval string) ([]Candle, error) {
	params := url.Values{}
	params.Set("range", rng)
	params.Set("interval", interval)

	chart, err := p.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	return chartCandles(chart), nil
}

// FetchCandlesBetween fetches candles between two points in time.
func (p *YahooProvider) FetchCandlesBetween(ctx context.Context, symbol, interval string, start, end time.Time) ([]Candle, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", start.Unix()))
	params.Set("period2", fmt.Sprintf("%d", end.Unix()))
	params.Set("interval", interval)

	chart, err := p.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	return chartCandles(chart), nil
}

// FetchQuote fetches the latest price summary from the one-day minute chart.
func (p *YahooProvider) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	params := url.Values{}
	params.Set("range", "1d")
	params.Set("interval", "1m")

	chart, err := p.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	meta := chart.Chart.Result[0].Meta
	candles := chartCandles(chart)

	price := meta.RegularMarketPrice
	if price == 0 && len(candles) > 0 {
		price = candles[len(candles)-1].Close
	}
	if price == 0 {
		return nil, fmt.Errorf("yahoo: no price data for %s", symbol)
	}

	var change, changePct float64
	if meta.ChartPreviousClose != 0 {
		change = price - meta.ChartPreviousClose
		changePct = change / meta.ChartPreviousClose * 100
	}

	var volume int64
	for _, c := range candles {
		volume += c.Volume
	}

	quoteTime := time.Now().UTC()
	if meta.RegularMarketTime > 0 {
		quoteTime = time.Unix(meta.RegularMarketTime, 0).UTC()
	}

	return &Quote{
		Symbol:        symbol,
		Price:         Round2(price),
		Change:        Round2(change),
		ChangePercent: Round2(changePct),
		Volume:        volume,
		Time:          quoteTime.Format(intradayTimeLayout),
	}, nil
}
