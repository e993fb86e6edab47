package controllers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stockwatch_backend/config"
	"stockwatch_backend/middleware"
	"stockwatch_backend/models"
	"stockwatch_backend/routes"
	"stockwatch_backend/services/marketdata"
	"stockwatch_backend/services/quotecache"
	"stockwatch_backend/services/stocklist"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeProvider serves canned data and counts candle fetches per symbol.
type fakeProvider struct {
	candleCalls map[string]int
	candles     []marketdata.Candle
	quote       *marketdata.Quote
	err         error
}

func (f *fakeProvider) FetchCandles(_ context.Context, symbol, _, _ string) ([]marketdata.Candle, error) {
	f.candleCalls[symbol]++
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

func (f *fakeProvider) FetchCandlesBetween(_ context.Context, symbol, _ string, _, _ time.Time) ([]marketdata.Candle, error) {
	f.candleCalls[symbol]++
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

func (f *fakeProvider) FetchQuote(_ context.Context, _ string) (*marketdata.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.quote, nil
}

type testApp struct {
	router   *gin.Engine
	db       *gorm.DB
	provider *fakeProvider
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.AppConfig = &config.Config{
		JWTSecret:   "test-secret",
		Environment: "development",
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.MigrateUserModels(db))
	require.NoError(t, models.MigrateWishlistModels(db))

	listPath := filepath.Join(t.TempDir(), "stock_names.csv")
	require.NoError(t, os.WriteFile(listPath, []byte("name,tag,market\nApple Inc.,AAPL,NASDAQ\nMicrosoft Corporation,MSFT,NASDAQ\n"), 0644))

	provider := &fakeProvider{
		candleCalls: make(map[string]int),
		candles: []marketdata.Candle{
			{Time: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), Open: 180, High: 182, Low: 179, Close: 181.456, Volume: 500},
		},
		quote: &marketdata.Quote{Symbol: "AAPL", Price: 181.46, Change: 1.46, ChangePercent: 0.81, Volume: 500, Time: "2025-06-02 15:59"},
	}

	router := gin.New()
	router.SetHTMLTemplate(testTemplates())
	routes.SetupRoutes(router, routes.Deps{
		DB:       db,
		Stocks:   stocklist.NewService(listPath),
		Cache:    quotecache.New(provider),
		Provider: provider,
		Limiter:  middleware.NewLoginRateLimiter(),
	})

	return &testApp{router: router, db: db, provider: provider}
}

// testTemplates builds minimal stand-ins for the embedded pages.
func testTemplates() *template.Template {
	tmpl := template.New("")
	for _, name := range []string{"home.html", "register.html", "login.html", "dashboard.html"} {
		template.Must(tmpl.New(name).Parse(`{{ .error }}|{{ .flash }}|{{ .fullName }}`))
	}
	return tmpl
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return a.do(req)
}

func (a *testApp) register(t *testing.T, fullName, username, email, password string) {
	t.Helper()
	w := a.postForm("/register", url.Values{
		"full_name":        {fullName},
		"username":         {username},
		"email":            {email},
		"password":         {password},
		"confirm_password": {password},
	})
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))
}

// login performs a form login and returns the session cookie.
func (a *testApp) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	w := a.postForm("/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))

	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func (a *testApp) getJSON(t *testing.T, path string, out interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := a.do(req)
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

func TestRegisterLoginFlow(t *testing.T) {
	app := newTestApp(t)

	app.register(t, "Alice Smith", "alice", "alice@x.com", "pw1")

	// Wrong password
	w := app.postForm("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")

	// Unknown user gets the same message
	w = app.postForm("/login", url.Values{"username": {"nobody"}, "password": {"pw1"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")

	// Correct password redirects to the dashboard
	session := app.login(t, "alice", "pw1")

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(session)
	w = app.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alice Smith")
}

func TestRegisterDuplicates(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Alice Smith", "alice", "alice@x.com", "pw1")

	w := app.postForm("/register", url.Values{
		"username":         {"alice"},
		"email":            {"other@x.com"},
		"password":         {"pw2"},
		"confirm_password": {"pw2"},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Username already exists")

	w = app.postForm("/register", url.Values{
		"username":         {"alice2"},
		"email":            {"alice@x.com"},
		"password":         {"pw2"},
		"confirm_password": {"pw2"},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Email already registered")
}

func TestPasswordsStoredHashed(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Alice Smith", "alice", "alice@x.com", "pw1")

	var user models.User
	require.NoError(t, app.db.Where("username = ?", "alice").First(&user).Error)
	assert.NotEqual(t, "pw1", user.PasswordHash)
	assert.True(t, user.CheckPassword("pw1"))
	assert.False(t, user.CheckPassword("pw2"))
}

func TestDashboardRequiresLogin(t *testing.T) {
	app := newTestApp(t)

	w := app.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestLogoutClearsSession(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Alice Smith", "alice", "alice@x.com", "pw1")
	session := app.login(t, "alice", "pw1")

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(session)
	w := app.do(req)
	assert.Equal(t, http.StatusFound, w.Code)

	// The old session token no longer works
	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(session)
	w = app.do(req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestWishlistFlow(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Alice Smith", "alice", "alice@x.com", "pw1")
	session := app.login(t, "alice", "pw1")

	// Add AAPL
	body := `{"symbol":"AAPL","name":"Apple Inc."}`
	req := httptest.NewRequest(http.MethodPost, "/add_to_wishlist", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(session)
	w := app.do(req)
	require.Equal(t, http.StatusCreated, w.Code)

	var item models.WishlistItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.Equal(t, "AAPL", item.StockSymbol)
	assert.Equal(t, "Apple Inc.", item.StockName)

	// Adding the same symbol again conflicts and the count stays at one
	req = httptest.NewRequest(http.MethodPost, "/add_to_wishlist", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(session)
	w = app.do(req)
	assert.Equal(t, http.StatusConflict, w.Code)

	var items []models.WishlistItem
	app.getJSON(t, "/get_wishlist", &items, session)
	require.Len(t, items, 1)
	assert.Equal(t, "AAPL", items[0].StockSymbol)

	// Missing fields are a client error
	req = httptest.NewRequest(http.MethodPost, "/add_to_wishlist", strings.NewReader(`{"symbol":"MSFT"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(session)
	w = app.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWishlistRemoveAuthorization(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Alice Smith", "alice", "alice@x.com", "pw1")
	app.register(t, "Bob Jones", "bob", "bob@x.com", "pw2")
	aliceSession := app.login(t, "alice", "pw1")
	bobSession := app.login(t, "bob", "pw2")

	body := `{"symbol":"AAPL","name":"Apple Inc."}`
	req := httptest.NewRequest(http.MethodPost, "/add_to_wishlist", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(aliceSession)
	w := app.do(req)
	require.Equal(t, http.StatusCreated, w.Code)

	var item models.WishlistItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))

	// Bob cannot remove Alice's item
	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/remove_from_wishlist/%d", item.ID), nil)
	req.AddCookie(bobSession)
	w = app.do(req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The item is still in Alice's list
	var items []models.WishlistItem
	app.getJSON(t, "/get_wishlist", &items, aliceSession)
	require.Len(t, items, 1)

	// Unknown id is a 404
	req = httptest.NewRequest(http.MethodDelete, "/remove_from_wishlist/9999", nil)
	req.AddCookie(aliceSession)
	w = app.do(req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Alice can remove her own item
	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/remove_from_wishlist/%d", item.ID), nil)
	req.AddCookie(aliceSession)
	w = app.do(req)
	assert.Equal(t, http.StatusOK, w.Code)

	app.getJSON(t, "/get_wishlist", &items, aliceSession)
	assert.Empty(t, items)
}

func TestJSONEndpointsRequireAuth(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/get_wishlist", "/search_stocks?query=aapl", "/get_stock_data?symbol=AAPL", "/get_latest_price?symbol=AAPL"} {
		w := app.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "path %s", path)
	}
}

func TestAPITokenFlow(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Alice Smith", "alice", "alice@x.com", "pw1")

	// Bad credentials rejected
	req := httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(`{"username":"alice","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	w := app.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Good credentials yield a token
	req = httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(`{"username":"alice","password":"pw1"}`))
	req.Header.Set("Content-Type", "application/json")
	w = app.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var tokenResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokenResp))
	require.NotEmpty(t, tokenResp.Token)

	// The token authenticates JSON endpoints
	req = httptest.NewRequest(http.MethodGet, "/get_wishlist", nil)
	req.Header.Set("Authorization", "Bearer "+tokenResp.Token)
	w = app.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSearchStocks(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Alice Smith", "alice", "alice@x.com", "pw1")
	session := app.login(t, "alice", "pw1")

	var matches []stocklist.Match
	app.getJSON(t, "/search_stocks?query=aapl", &matches, session)
	require.Len(t, matches, 1)
	assert.Equal(t, "AAPL", matches[0].Symbol)

	// Single-character query matches nothing
	app.getJSON(t, "/search_stocks?query=a", &matches, session)
	assert.Empty(t, matches)
}

func TestGetStockDataUsesCache(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Alice Smith", "alice", "alice@x.com", "pw1")
	session := app.login(t, "alice", "pw1")

	var first []marketdata.CandleJSON
	w := app.getJSON(t, "/get_stock_data?symbol=AAPL", &first, session)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, first, 1)
	assert.Equal(t, "2025-06-02", first[0].Time)
	assert.Equal(t, 181.46, first[0].Close)

	// The second request inside the freshness window is served from cache
	var second []marketdata.CandleJSON
	app.getJSON(t, "/get_stock_data?symbol=AAPL", &second, session)
	assert.Equal(t, 1, app.provider.candleCalls["AAPL"])
	assert.Equal(t, first, second)
}

func TestGetStockDataProviderFailureDegradesToEmpty(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Alice Smith", "alice", "alice@x.com", "pw1")
	session := app.login(t, "alice", "pw1")

	app.provider.err = errors.New("provider down")

	var candles []marketdata.CandleJSON
	w := app.getJSON(t, "/get_stock_data?symbol=AAPL", &candles, session)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, candles)
}

func TestGetLatestPrice(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Alice Smith", "alice", "alice@x.com", "pw1")
	session := app.login(t, "alice", "pw1")

	var quote marketdata.Quote
	w := app.getJSON(t, "/get_latest_price?symbol=AAPL", &quote, session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 181.46, quote.Price)
	assert.Equal(t, 0.81, quote.ChangePercent)

	// Missing symbol is a client error
	req := httptest.NewRequest(http.MethodGet, "/get_latest_price", nil)
	req.AddCookie(session)
	w = app.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Provider failure degrades to an error field
	app.provider.err = errors.New("provider down")
	var resp map[string]interface{}
	w = app.getJSON(t, "/get_latest_price?symbol=AAPL", &resp, session)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, resp, "error")
}

func TestGetLatestCandle(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Alice Smith", "alice", "alice@x.com", "pw1")
	session := app.login(t, "alice", "pw1")

	var candle marketdata.CandleJSON
	w := app.getJSON(t, "/get_latest_candle?symbol=AAPL&interval=1m", &candle, session)
	require.Equal(t, http.StatusOK, w.Code)
	// Intraday interval means a minute-resolution label
	assert.Equal(t, "2025-06-02 00:00", candle.Time)
	assert.Equal(t, 181.46, candle.Close)
}
