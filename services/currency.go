package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"referdby-backend/models"

	"golang.org/x/text/currency"
	"gorm.io/gorm"
)

var (
	ErrRateUnavailable = errors.New("no exchange rate available for currency pair")
	ErrRateStale       = errors.New("exchange rate is stale")
	ErrBadCurrencyCode = errors.New("unknown ISO currency code")
)

const (
	rateCacheTTL   = 30 * time.Minute
	rateStaleAfter = 10 * 24 * time.Hour
)

// RateCache is an explicit in-memory cache for looked-up rates. TTL and clock
// are injectable so tests control time and no state leaks between tests.
type RateCache struct {
	mu      sync.RWMutex
	entries map[string]cachedRate
	TTL     time.Duration
	Now     func() time.Time
}

type cachedRate struct {
	rate      float64
	fetchedAt time.Time
	storedAt  time.Time
}

func NewRateCache(ttl time.Duration) *RateCache {
	return &RateCache{
		entries: make(map[string]cachedRate),
		TTL:     ttl,
		Now:     time.Now,
	}
}

func (c *RateCache) get(key string) (cachedRate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.Now().Sub(e.storedAt) >= c.TTL {
		return cachedRate{}, false
	}
	return e, true
}

func (c *RateCache) put(key string, e cachedRate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.storedAt = c.Now()
	c.entries[key] = e
}

// CurrencyService converts amounts between currencies using the persisted
// rate table. It never calls a live FX API; a background worker keeps the
// table fresh.
type CurrencyService struct {
	DB         *gorm.DB
	Cache      *RateCache
	Now        func() time.Time
	StaleAfter time.Duration
}

func NewCurrencyService(db *gorm.DB) *CurrencyService {
	return &CurrencyService{
		DB:         db,
		Cache:      NewRateCache(rateCacheTTL),
		Now:        time.Now,
		StaleAfter: rateStaleAfter,
	}
}

// Conversion is a completed currency conversion. Stale is true when the rate
// exceeded the staleness threshold and an allow-stale override accepted it;
// callers must surface that to the user.
type Conversion struct {
	Amount          float64   `json:"amount"`
	ConvertedAmount float64   `json:"converted_amount"`
	FromCurrency    string    `json:"from_currency"`
	ToCurrency      string    `json:"to_currency"`
	Rate            float64   `json:"rate"`
	FetchedAt       time.Time `json:"fetched_at"`
	Stale           bool      `json:"stale,omitempty"`
}

// Convert turns amount in `from` into `to`. Lookup order: in-memory cache,
// then the active rate row, then any row for the pair as a stale fallback.
// A rate past StaleAfter fails unless allowStale is set, in which case it is
// used and flagged. A missing rate is always a hard failure — never a silent
// rate of 1, because that would corrupt the points ledger.
func (s *CurrencyService) Convert(amount float64, from, to string, allowStale bool) (*Conversion, error) {
	from, to = strings.ToUpper(strings.TrimSpace(from)), strings.ToUpper(strings.TrimSpace(to))
	if _, err := currency.ParseISO(from); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadCurrencyCode, from)
	}
	if _, err := currency.ParseISO(to); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadCurrencyCode, to)
	}

	if from == to {
		return &Conversion{
			Amount: amount, ConvertedAmount: amount,
			FromCurrency: from, ToCurrency: to,
			Rate: 1, FetchedAt: s.Now(),
		}, nil
	}

	key := from + "/" + to
	if e, ok := s.Cache.get(key); ok {
		return s.finish(amount, from, to, e.rate, e.fetchedAt, allowStale)
	}

	var row models.ExchangeRate
	err := s.DB.
		Where("from_currency = ? AND to_currency = ? AND active = ?", from, to, true).
		Order("fetched_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// No active row; fall back to the freshest row of any age.
		err = s.DB.
			Where("from_currency = ? AND to_currency = ?", from, to).
			Order("fetched_at DESC").
			First(&row).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRateUnavailable, key)
	}
	if err != nil {
		return nil, fmt.Errorf("rate lookup failed: %w", err)
	}

	if s.Now().Sub(row.FetchedAt) < s.StaleAfter {
		s.Cache.put(key, cachedRate{rate: row.Rate, fetchedAt: row.FetchedAt})
	}
	return s.finish(amount, from, to, row.Rate, row.FetchedAt, allowStale)
}

func (s *CurrencyService) finish(amount float64, from, to string, rate float64, fetchedAt time.Time, allowStale bool) (*Conversion, error) {
	stale := s.Now().Sub(fetchedAt) >= s.StaleAfter
	if stale && !allowStale {
		return nil, fmt.Errorf("%w: %s/%s fetched %s", ErrRateStale, from, to, fetchedAt.Format("2 Jan 2006"))
	}
	return &Conversion{
		Amount:          amount,
		ConvertedAmount: Round2(amount * rate),
		FromCurrency:    from,
		ToCurrency:      to,
		Rate:            rate,
		FetchedAt:       fetchedAt,
		Stale:           stale,
	}, nil
}
