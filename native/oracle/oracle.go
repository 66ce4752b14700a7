package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// USDScale is the fixed-point scale of every USD price handled by the module:
// prices carry six decimals.
var USDScale = big.NewInt(1_000_000)

// Quote captures an asset price in USD (6-decimal fixed point) together with
// the timestamp reported upstream and the feed identifier.
type Quote struct {
	PriceUSD  *big.Int
	Timestamp time.Time
	Source    string
}

// Clone returns a deep copy of the quote to prevent accidental mutations.
func (q Quote) Clone() Quote {
	clone := Quote{Timestamp: q.Timestamp, Source: q.Source}
	if q.PriceUSD != nil {
		clone.PriceUSD = new(big.Int).Set(q.PriceUSD)
	}
	return clone
}

// PriceOracle resolves the USD price for an asset symbol.
type PriceOracle interface {
	PriceUSD(asset string) (Quote, error)
}

// ErrNoFreshQuote indicates that no registered feed produced a quote within
// the configured freshness window.
var ErrNoFreshQuote = errors.New("oracle: no fresh quote available")

// Aggregator consults registered feeds in priority order until a fresh,
// positive quote is obtained.
type Aggregator struct {
	mu       sync.RWMutex
	priority []string
	oracles  map[string]PriceOracle
	maxAge   time.Duration
}

// NewAggregator constructs an aggregator with the provided priority ordering
// and freshness window. A zero maxAge disables freshness filtering.
func NewAggregator(priority []string, maxAge time.Duration) *Aggregator {
	return &Aggregator{
		priority: append([]string{}, priority...),
		oracles:  make(map[string]PriceOracle),
		maxAge:   maxAge,
	}
}

// SetMaxAge updates the freshness window used when filtering quotes.
func (a *Aggregator) SetMaxAge(maxAge time.Duration) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.maxAge = maxAge
	a.mu.Unlock()
}

// Register adds or replaces a feed under the supplied identifier. Identifiers
// are stored lowercase so lookups ignore configuration casing.
func (a *Aggregator) Register(name string, feed PriceOracle) {
	if a == nil {
		return
	}
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.oracles[trimmed] = feed
	for _, entry := range a.priority {
		if strings.EqualFold(entry, trimmed) {
			return
		}
	}
	a.priority = append(a.priority, trimmed)
}

// PriceUSD fetches a price respecting the priority ordering and freshness
// window. The returned quote is a defensive copy.
func (a *Aggregator) PriceUSD(asset string) (Quote, error) {
	if a == nil {
		return Quote{}, fmt.Errorf("oracle aggregator not configured")
	}
	symbol := normalizeSymbol(asset)
	if symbol == "" {
		return Quote{}, fmt.Errorf("oracle: asset required")
	}
	a.mu.RLock()
	priority := append([]string{}, a.priority...)
	maxAge := a.maxAge
	a.mu.RUnlock()

	var cutoff time.Time
	if maxAge > 0 {
		cutoff = time.Now().Add(-maxAge)
	}

	var lastErr error
	for _, name := range priority {
		a.mu.RLock()
		feed := a.oracles[strings.ToLower(name)]
		a.mu.RUnlock()
		if feed == nil {
			continue
		}
		quote, err := feed.PriceUSD(symbol)
		if err != nil {
			lastErr = err
			continue
		}
		if quote.PriceUSD == nil || quote.PriceUSD.Sign() <= 0 {
			lastErr = fmt.Errorf("oracle %s returned invalid price", name)
			continue
		}
		if maxAge > 0 && quote.Timestamp.Before(cutoff) {
			lastErr = ErrNoFreshQuote
			continue
		}
		result := quote.Clone()
		if strings.TrimSpace(result.Source) == "" {
			result.Source = strings.ToLower(name)
		}
		return result, nil
	}
	if lastErr == nil {
		lastErr = ErrNoFreshQuote
	}
	return Quote{}, lastErr
}

// Manual is an in-memory feed used for tests and operator overrides during
// incident response.
type Manual struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

// NewManual constructs an empty manual feed.
func NewManual() *Manual {
	return &Manual{quotes: make(map[string]Quote)}
}

// SetDecimal records the supplied decimal USD price for the asset.
func (m *Manual) SetDecimal(asset, price string, ts time.Time) error {
	if m == nil {
		return fmt.Errorf("manual oracle not configured")
	}
	trimmed := strings.TrimSpace(price)
	if trimmed == "" {
		return fmt.Errorf("manual oracle: price required")
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return fmt.Errorf("manual oracle: invalid price %q", price)
	}
	if rat.Sign() <= 0 {
		return fmt.Errorf("manual oracle: price must be positive")
	}
	m.Set(asset, ratToUSD(rat), ts)
	return nil
}

// Set stores the 6-decimal fixed-point USD price for the asset.
func (m *Manual) Set(asset string, priceUSD *big.Int, ts time.Time) {
	if m == nil || priceUSD == nil {
		return
	}
	symbol := normalizeSymbol(asset)
	if symbol == "" {
		return
	}
	m.mu.Lock()
	m.quotes[symbol] = Quote{PriceUSD: new(big.Int).Set(priceUSD), Timestamp: ts, Source: "manual"}
	m.mu.Unlock()
}

// PriceUSD retrieves the stored price for the asset.
func (m *Manual) PriceUSD(asset string) (Quote, error) {
	if m == nil {
		return Quote{}, fmt.Errorf("manual oracle not configured")
	}
	symbol := normalizeSymbol(asset)
	m.mu.RLock()
	stored, ok := m.quotes[symbol]
	m.mu.RUnlock()
	if !ok {
		return Quote{}, fmt.Errorf("manual oracle: quote for %s not found", symbol)
	}
	return stored.Clone(), nil
}

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CoinGecko adapts the public CoinGecko simple price API.
type CoinGecko struct {
	client   HTTPDoer
	endpoint string
	idMap    map[string]string
}

const defaultCoinGeckoEndpoint = "https://api.coingecko.com/api/v3/simple/price"

// NewCoinGecko constructs a new adapter. idMap maps ledger symbols to
// CoinGecko asset identifiers.
func NewCoinGecko(client HTTPDoer, endpoint string, idMap map[string]string) *CoinGecko {
	ep := strings.TrimSpace(endpoint)
	if ep == "" {
		ep = defaultCoinGeckoEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	mapped := make(map[string]string, len(idMap))
	for k, v := range idMap {
		mapped[normalizeSymbol(k)] = strings.TrimSpace(v)
	}
	return &CoinGecko{client: client, endpoint: ep, idMap: mapped}
}

func (o *CoinGecko) assetID(symbol string) string {
	if o == nil {
		return ""
	}
	if id, ok := o.idMap[normalizeSymbol(symbol)]; ok && id != "" {
		return id
	}
	return strings.ToLower(strings.TrimSpace(symbol))
}

func (o *CoinGecko) PriceUSD(asset string) (Quote, error) {
	if o == nil {
		return Quote{}, fmt.Errorf("coingecko oracle not configured")
	}
	id := o.assetID(asset)
	if id == "" {
		return Quote{}, fmt.Errorf("coingecko oracle: unmapped asset %s", asset)
	}
	req, err := http.NewRequest(http.MethodGet, o.endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	values := url.Values{}
	values.Set("ids", id)
	values.Set("vs_currencies", "usd")
	values.Set("include_last_updated_at", "true")
	req.URL.RawQuery = values.Encode()
	resp, err := o.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Quote{}, fmt.Errorf("coingecko oracle: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var payload map[string]map[string]json.Number
	if err := decoder.Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("coingecko oracle: decode: %w", err)
	}
	entry, ok := payload[id]
	if !ok {
		return Quote{}, fmt.Errorf("coingecko oracle: quote missing for %s", asset)
	}
	priceStr := strings.TrimSpace(entry["usd"].String())
	if priceStr == "" {
		return Quote{}, fmt.Errorf("coingecko oracle: empty price")
	}
	rat, ok := new(big.Rat).SetString(priceStr)
	if !ok || rat.Sign() <= 0 {
		return Quote{}, fmt.Errorf("coingecko oracle: invalid price %q", priceStr)
	}
	ts := time.Now().UTC()
	if raw, exists := entry["last_updated_at"]; exists {
		if parsed, err := strconv.ParseInt(raw.String(), 10, 64); err == nil && parsed > 0 {
			ts = time.Unix(parsed, 0)
		}
	}
	return Quote{PriceUSD: ratToUSD(rat), Timestamp: ts, Source: "coingecko"}, nil
}

func ratToUSD(r *big.Rat) *big.Int {
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(USDScale))
	return new(big.Int).Quo(scaled.Num(), scaled.Denom())
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
