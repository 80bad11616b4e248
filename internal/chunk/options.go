package chunk

import (
	"fmt"

	"github.com/Aman-CERP/choralmind/internal/errors"
)

// Size defaults, in runes.
const (
	DefaultSize    = 1000
	DefaultOverlap = 100
)

// Option configures a Splitter.
type Option func(*Splitter)

// WithSize sets the maximum chunk length in runes.
func WithSize(n int) Option {
	return func(s *Splitter) {
		s.size = n
	}
}

// WithOverlap sets how many runes consecutive chunks share.
func WithOverlap(n int) Option {
	return func(s *Splitter) {
		s.overlap = n
	}
}

func (s *Splitter) validate() error {
	if s.size <= 0 {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("chunk size must be positive, got %d", s.size), nil)
	}
	if s.overlap < 0 || s.overlap >= s.size {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("chunk overlap must be in [0, %d), got %d", s.size, s.overlap), nil)
	}
	return nil
}
