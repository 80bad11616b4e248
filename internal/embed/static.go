package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/Aman-CERP/choralmind/internal/errors"
)

// StaticEmbedder generates embeddings by hashing words and character
// trigrams into a fixed-size vector. It needs no network or model, is
// deterministic, and gives identical texts identical vectors. Semantic
// quality is far below a real model.
type StaticEmbedder struct {
	dims int

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*StaticEmbedder)(nil)

// Weights for vector generation
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// stopWords are high-frequency hymn words in both languages that carry
// little signal for matching a line.
var stopWords = map[string]bool{
	"the": true, "and": true, "of": true, "a": true, "to": true,
	"in": true, "my": true, "o": true, "is": true, "be": true,
	"ni": true, "ti": true, "si": true, "mi": true, "wa": true,
}

// NewStaticEmbedder creates a static embedder. dims <= 0 selects
// StaticDimensions.
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = StaticDimensions
	}
	return &StaticEmbedder{dims: dims}
}

// Embed generates embedding for a single text.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, errors.InternalError("embedder is closed", nil)
	}

	folded := fold(text)
	vector := make([]float32, e.dims)
	if folded == "" {
		return vector, nil
	}

	for _, token := range strings.Fields(folded) {
		if !stopWords[token] {
			vector[e.index(token)] += tokenWeight
		}
	}

	compact := []rune(strings.ReplaceAll(folded, " ", ""))
	for i := 0; i+ngramSize <= len(compact); i++ {
		vector[e.index(string(compact[i:i+ngramSize]))] += ngramWeight
	}

	return Normalize(vector), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *StaticEmbedder) Dimensions() int { return e.dims }

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string {
	return fmt.Sprintf("static-%d", e.dims)
}

// Available always reports true until closed.
func (e *StaticEmbedder) Available(context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close marks the embedder closed.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *StaticEmbedder) index(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(e.dims))
}

// fold lower-cases text, strips tone marks and under-dots so Yoruba lines
// typed without diacritics still match, and collapses everything that is
// not a letter or digit into single spaces.
func fold(text string) string {
	var sb strings.Builder
	space := true
	for _, r := range norm.NFD.String(strings.ToLower(text)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			space = false
		case !space:
			sb.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(sb.String())
}
