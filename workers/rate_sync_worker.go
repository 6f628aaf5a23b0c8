package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"referdby-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RateSyncClient refreshes the exchange_rates table from the FX feed. The
// conversion service only ever reads that table — this worker is the single
// writer.
type RateSyncClient struct {
	BaseURL    string
	HTTPClient *http.Client
	DB         *gorm.DB
	Pairs      [][2]string
}

// NewRateSyncClient returns nil when FX_FEED_URL is unset: the sync is an
// auxiliary refresher and conversion already hard-fails on missing rates, so
// a missing feed disables it rather than taking the service down.
func NewRateSyncClient(db *gorm.DB, pairs [][2]string) *RateSyncClient {
	baseURL := os.Getenv("FX_FEED_URL")
	if baseURL == "" {
		log.Println("⚠️  FX_FEED_URL not set — rate sync disabled, conversions use existing rows")
		return nil
	}

	return &RateSyncClient{
		BaseURL: baseURL,
		DB:      db,
		Pairs:   pairs,
		HTTPClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

func (c *RateSyncClient) fetchRate(ctx context.Context, from, to string) (float64, error) {
	u, err := url.Parse(fmt.Sprintf("%s/latest", c.BaseURL))
	if err != nil {
		return 0, fmt.Errorf("failed to parse feed URL: %w", err)
	}
	q := u.Query()
	q.Set("base", from)
	q.Set("symbols", to)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call FX feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("FX feed returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode FX feed response: %w", err)
	}
	rate, ok := response.Rates[to]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("FX feed has no usable rate for %s/%s", from, to)
	}
	return rate, nil
}

// SyncOnce refreshes every configured pair: insert the new row, flag it
// active and retire the previously active rows — in one transaction per
// pair, so readers never see a pair without an active row.
func (c *RateSyncClient) SyncOnce(ctx context.Context) error {
	var lastErr error
	for _, pair := range c.Pairs {
		from, to := pair[0], pair[1]
		rate, err := c.fetchRate(ctx, from, to)
		if err != nil {
			log.Printf("[RateSync] %s/%s fetch failed: %v", from, to, err)
			lastErr = err
			continue
		}

		err = c.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.ExchangeRate{}).
				Where("from_currency = ? AND to_currency = ? AND active = ?", from, to, true).
				Update("active", false).Error; err != nil {
				return err
			}
			return tx.Create(&models.ExchangeRate{
				ID:           uuid.NewString(),
				FromCurrency: from,
				ToCurrency:   to,
				Rate:         rate,
				FetchedAt:    time.Now(),
				Active:       true,
			}).Error
		})
		if err != nil {
			log.Printf("[RateSync] %s/%s store failed: %v", from, to, err)
			lastErr = err
			continue
		}
		log.Printf("✅ Rate synced: %s/%s = %.6f", from, to, rate)
	}
	return lastErr
}

// PollRates runs SyncOnce forever at the given interval until ctx cancels.
// A nil client (feed not configured) is a no-op.
func PollRates(ctx context.Context, client *RateSyncClient, interval time.Duration) {
	if client == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := client.SyncOnce(ctx); err != nil {
		log.Printf("[RateSync] initial sync incomplete: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("[RateSync] stopping")
			return
		case <-ticker.C:
			if err := client.SyncOnce(ctx); err != nil {
				log.Printf("[RateSync] sync incomplete: %v", err)
			}
		}
	}
}
