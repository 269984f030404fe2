package types

import (
	"time"

	"github.com/google/uuid"
)

// Article is a single stored news article.
//
// Key is assigned once at insertion and never reused. Ordinal is the dense
// 0-based position of the article in the stored corpus; it is rewritten after
// every deduplication pass.
type Article struct {
	Key       string    `json:"key"`
	Ordinal   int       `json:"ordinal"`
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	Body      string    `json:"body"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
	Keywords  []string  `json:"keywords,omitempty"`
}

// NewKey returns a fresh article key.
func NewKey() string {
	return uuid.NewString()
}
