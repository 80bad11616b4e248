package synth

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE used to estimate prompt size.
const DefaultEncoding = "cl100k_base"

// TokenCounter measures prompt size.
type TokenCounter interface {
	Count(text string) int
}

// EstimateCounter approximates tokens as one per four runes.
type EstimateCounter struct{}

// Count implements TokenCounter.
func (EstimateCounter) Count(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// TiktokenCounter counts with a tiktoken encoding. The encoding is loaded
// on first use; if it cannot be loaded (for example offline, when the BPE
// file is not cached) the counter falls back to EstimateCounter.
type TiktokenCounter struct {
	encoding string

	once     sync.Once
	enc      *tiktoken.Tiktoken
	fallback EstimateCounter
}

// NewTiktokenCounter creates a counter for encoding ("" = cl100k_base).
func NewTiktokenCounter(encoding string) *TiktokenCounter {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	return &TiktokenCounter{encoding: encoding}
}

// Count implements TokenCounter.
func (c *TiktokenCounter) Count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			slog.Warn("tiktoken_unavailable",
				slog.String("encoding", c.encoding),
				slog.String("error", err.Error()))
			return
		}
		c.enc = enc
	})
	if c.enc == nil {
		return c.fallback.Count(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}
