package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/retrieve"
	"github.com/Aman-CERP/choralmind/internal/service"
	"github.com/Aman-CERP/choralmind/internal/synth"
)

type fakeHymnal struct {
	results []hymn.RetrievalResult
	answer  string
	err     error
	lastK   int
}

func (f *fakeHymnal) Retrieve(_ context.Context, query string, _ hymn.Language, k int) ([]hymn.RetrievalResult, error) {
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	if _, err := retrieve.ValidateQuery(query); err != nil {
		return nil, err
	}
	return f.results, nil
}

func (f *fakeHymnal) Ask(ctx context.Context, query string, lang hymn.Language) (*service.Answer, error) {
	results, err := f.Retrieve(ctx, query, lang, 0)
	if err != nil {
		return nil, err
	}
	text := f.answer
	if len(results) == 0 {
		text = synth.NoMatchMessage(lang)
	}
	return &service.Answer{Query: query, Language: lang, Text: text, Matched: len(results) > 0, Results: results}, nil
}

func (f *fakeHymnal) Hymn(_ context.Context, lang hymn.Language, id int) (hymn.Record, error) {
	if id != 7 {
		return hymn.Record{}, errors.New(errors.ErrCodeInvalidInput, "hymn not found", nil)
	}
	return hymn.Record{ID: 7, Number: 12, Title: "JESU a feran mi", Text: "12 JESU a feran mi", Language: lang}, nil
}

func (f *fakeHymnal) Languages() []hymn.Language {
	return []hymn.Language{hymn.English, hymn.Yoruba}
}

func do(t *testing.T, s *Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestSearch_ReturnsResults(t *testing.T) {
	// Given: a hymnal with one result
	f := &fakeHymnal{results: []hymn.RetrievalResult{{Text: "Rock of ages", HymnID: 1, Score: 0.9}}}
	s := NewServer("", f)

	// When: searching with k
	status, body := do(t, s, http.MethodPost, "/api/v1/search", `{"query":"rock","language":"english","k":2}`)

	// Then: the results are returned
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "english", body["language"])
	require.Len(t, body["results"], 1)
	assert.Equal(t, 2, f.lastK)
}

func TestSearch_Validation(t *testing.T) {
	s := NewServer("", &fakeHymnal{})
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing query", `{"language":"english"}`, "query"},
		{"bad language", `{"query":"x","language":"french"}`, "language"},
		{"k too large", `{"query":"x","language":"english","k":50}`, "k"},
		{"query too long", `{"query":"` + strings.Repeat("a", 501) + `","language":"english"}`, "query"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, s, http.MethodPost, "/api/v1/search", tt.body)

			assert.Equal(t, http.StatusUnprocessableEntity, status)
			fields, ok := body["errors"].(map[string]any)
			require.True(t, ok)
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestSearch_MissingQueryMessage(t *testing.T) {
	s := NewServer("", &fakeHymnal{})

	_, body := do(t, s, http.MethodPost, "/api/v1/search", `{"language":"yoruba"}`)

	assert.Equal(t, synth.EmptyQueryMessage, body["errors"].(map[string]any)["query"])
}

func TestSearch_InvalidJSON(t *testing.T) {
	s := NewServer("", &fakeHymnal{})

	status, body := do(t, s, http.MethodPost, "/api/v1/search", `{not json`)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid JSON request", body["error"])
}

func TestSearch_IndexNotFound(t *testing.T) {
	s := NewServer("", &fakeHymnal{err: errors.IndexNotFound("yoruba")})

	status, body := do(t, s, http.MethodPost, "/api/v1/search", `{"query":"Jesu","language":"yoruba"}`)

	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, errors.ErrCodeIndexNotFound, body["code"])
	assert.NotEmpty(t, body["suggestion"])
}

func TestAsk_Answer(t *testing.T) {
	f := &fakeHymnal{results: []hymn.RetrievalResult{{Text: "Abide", HymnID: 0}}, answer: "1. Abide with me"}
	s := NewServer("", f)

	status, body := do(t, s, http.MethodPost, "/api/v1/ask", `{"query":"abide","language":"english"}`)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1. Abide with me", body["answer"])
	assert.Equal(t, true, body["matched"])
}

func TestAsk_NoMatch(t *testing.T) {
	s := NewServer("", &fakeHymnal{})

	status, body := do(t, s, http.MethodPost, "/api/v1/ask", `{"query":"zzz","language":"yoruba"}`)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "No matching hymns found in Yoruba. Try another line.", body["answer"])
	assert.Equal(t, false, body["matched"])
}

func TestAsk_BlankQuery(t *testing.T) {
	// Given: a query of only spaces, which passes the required tag
	s := NewServer("", &fakeHymnal{})

	// When: asking
	status, body := do(t, s, http.MethodPost, "/api/v1/ask", `{"query":"   ","language":"english"}`)

	// Then: the empty-query message is returned
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, synth.EmptyQueryMessage, body["errors"].(map[string]any)["query"])
}

func TestHymn(t *testing.T) {
	s := NewServer("", &fakeHymnal{})

	status, body := do(t, s, http.MethodGet, "/api/v1/hymns/yoruba/7", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(12), body["number"])

	status, _ = do(t, s, http.MethodGet, "/api/v1/hymns/yoruba/8", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, s, http.MethodGet, "/api/v1/hymns/latin/1", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLanguagesAndHealth(t *testing.T) {
	s := NewServer("", &fakeHymnal{})

	status, body := do(t, s, http.MethodGet, "/api/v1/languages", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["languages"], 2)

	status, body = do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["result"])
}
