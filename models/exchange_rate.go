package models

import "time"

// ExchangeRate is one persisted FX rate row. A periodic worker refreshes the
// table and flags the freshest row per pair active; the conversion service
// only reads here and never calls a live FX API.
type ExchangeRate struct {
	ID           string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	FromCurrency string    `gorm:"size:3;not null;index:idx_rate_pair" json:"from_currency"`
	ToCurrency   string    `gorm:"size:3;not null;index:idx_rate_pair" json:"to_currency"`
	Rate         float64   `gorm:"not null" json:"rate"`
	FetchedAt    time.Time `gorm:"not null;index" json:"fetched_at"`
	Active       bool      `gorm:"not null;index" json:"active"`

	Timestamps
}
