package synth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/llm"
)

// DefaultMaxPromptTokens bounds the prompt sent to the completer.
const DefaultMaxPromptTokens = 6000

// Synthesizer composes the final answer from retrieved excerpts.
// It never returns an error: failures become ApologyMessage.
type Synthesizer struct {
	completer llm.Completer
	breaker   *errors.CircuitBreaker
	counter   TokenCounter
	maxTokens int
	timeout   time.Duration
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithTokenCounter sets the prompt size counter.
func WithTokenCounter(c TokenCounter) Option {
	return func(s *Synthesizer) { s.counter = c }
}

// WithMaxPromptTokens sets the prompt budget (<= 0 disables trimming).
func WithMaxPromptTokens(n int) Option {
	return func(s *Synthesizer) { s.maxTokens = n }
}

// WithBreaker sets the circuit breaker guarding the completer.
func WithBreaker(cb *errors.CircuitBreaker) Option {
	return func(s *Synthesizer) { s.breaker = cb }
}

// WithTimeout bounds each completion call.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) { s.timeout = d }
}

// New creates a Synthesizer around completer.
func New(completer llm.Completer, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		completer: completer,
		breaker:   errors.NewCircuitBreaker("completion"),
		counter:   NewTiktokenCounter(""),
		maxTokens: DefaultMaxPromptTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize returns the hymn answer for results. Empty results yield
// NoMatchMessage without calling the completer; a failed, empty or
// rejected completion yields ApologyMessage.
func (s *Synthesizer) Synthesize(ctx context.Context, results []hymn.RetrievalResult, query string, lang hymn.Language) string {
	if len(results) == 0 {
		return NoMatchMessage(lang)
	}

	prompt, kept := s.fitPrompt(results, query, lang)
	if kept < len(results) {
		slog.Info("synthesis_prompt_trimmed",
			slog.Int("excerpts", len(results)),
			slog.Int("kept", kept),
			slog.Int("max_tokens", s.maxTokens))
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	answer, err := errors.CircuitExecute(s.breaker, func() (string, error) {
		out, err := s.completer.Complete(ctx, prompt)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(out) == "" {
			return "", errors.New(errors.ErrCodeSynthesisFailed, "completion was empty", nil)
		}
		return strings.TrimSpace(out), nil
	})
	if err != nil {
		attrs := append([]slog.Attr{
			slog.String("language", lang.String()),
			slog.String("model", s.completer.ModelName()),
		}, errors.LogAttrs(err)...)
		slog.LogAttrs(ctx, slog.LevelError, "synthesis_failed", attrs...)
		return ApologyMessage
	}

	slog.Debug("synthesis_complete",
		slog.String("language", lang.String()),
		slog.Int("excerpts", kept),
		slog.Int64("duration_ms", time.Since(started).Milliseconds()))
	return answer
}

// fitPrompt drops trailing excerpts until the prompt fits the budget.
// At least one excerpt is always kept and order is preserved.
func (s *Synthesizer) fitPrompt(results []hymn.RetrievalResult, query string, lang hymn.Language) (string, int) {
	n := len(results)
	prompt := BuildPrompt(results, query, lang)
	if s.maxTokens <= 0 || s.counter == nil {
		return prompt, n
	}
	for n > 1 && s.counter.Count(prompt) > s.maxTokens {
		n--
		prompt = BuildPrompt(results[:n], query, lang)
	}
	return prompt, n
}

// Breaker exposes the circuit breaker (status reporting).
func (s *Synthesizer) Breaker() *errors.CircuitBreaker {
	return s.breaker
}
