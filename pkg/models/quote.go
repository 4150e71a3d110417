package models

import (
	"github.com/google/uuid"
)

// QuoteTag highlights a quote in the ranked list.
type QuoteTag string

const (
	TagCheapest QuoteTag = "CHEAPEST"
	TagPremium  QuoteTag = "PREMIUM"
	TagBest     QuoteTag = "BEST"
)

// QuoteCacheItem is the typed per-item cache record written under
// quote_item:<quoteID>. A booking created with that quote id reads it back
// to bind fare and provider.
type QuoteCacheItem struct {
	ProviderID    *uuid.UUID    `json:"provider_id,omitempty"`
	FarePaise     int64         `json:"fare_paise"`
	TransportMode TransportMode `json:"transport_mode"`
}
