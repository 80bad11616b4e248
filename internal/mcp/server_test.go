package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/index"
	"github.com/Aman-CERP/choralmind/internal/service"
)

type fakeHymnal struct {
	results  []hymn.RetrievalResult
	err      error
	gotK     int
	gotLang  hymn.Language
	gotQuery string
	records  map[int]hymn.Record
}

func (f *fakeHymnal) Retrieve(_ context.Context, query string, lang hymn.Language, k int) ([]hymn.RetrievalResult, error) {
	f.gotQuery, f.gotLang, f.gotK = query, lang, k
	return f.results, f.err
}

func (f *fakeHymnal) Ask(ctx context.Context, query string, lang hymn.Language) (*service.Answer, error) {
	results, err := f.Retrieve(ctx, query, lang, 0)
	if err != nil {
		return nil, err
	}
	text := "No match"
	if len(results) > 0 {
		text = "Hymn 4"
	}
	return &service.Answer{Query: query, Language: lang, Text: text, Matched: len(results) > 0, Results: results}, nil
}

func (f *fakeHymnal) Hymn(_ context.Context, lang hymn.Language, id int) (hymn.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return hymn.Record{}, apperrors.ValidationError("hymn not found", nil)
	}
	rec.Language = lang
	return rec, nil
}

func (f *fakeHymnal) Languages() []hymn.Language {
	return []hymn.Language{hymn.English}
}

type fakeManifests map[hymn.Language]*index.Manifest

func (f fakeManifests) Manifest(lang hymn.Language) (*index.Manifest, bool) {
	m, ok := f[lang]
	return m, ok
}

func sampleResults() []hymn.RetrievalResult {
	return []hymn.RetrievalResult{
		{HymnID: 4, ChunkID: 0, Text: "Abide with me", Score: 0.9},
		{HymnID: 9, ChunkID: 2, Text: "Fast falls the eventide", Score: 0.7},
	}
}

func TestNewServer_RequiresHymnal(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)
}

func TestServer_Info(t *testing.T) {
	srv, err := NewServer(&fakeHymnal{})
	require.NoError(t, err)

	name, _ := srv.Info()
	assert.Equal(t, "ChoralMind", name)
	assert.NotNil(t, srv.MCPServer())
}

func TestServer_ListTools_StatusNeedsManifests(t *testing.T) {
	// Given: one server without and one with a manifest source
	plain, err := NewServer(&fakeHymnal{})
	require.NoError(t, err)
	withStatus, err := NewServer(&fakeHymnal{}, WithManifests(fakeManifests{}))
	require.NoError(t, err)

	// Then: index_status is only listed when manifests are available
	assert.Len(t, plain.ListTools(), 3)
	assert.Len(t, withStatus.ListTools(), 4)
	assert.Equal(t, ToolIndexStatus, withStatus.ListTools()[3].Name)
}

func TestSearchTool_ReturnsRankedResults(t *testing.T) {
	// Given: a hymnal returning two excerpts
	h := &fakeHymnal{results: sampleResults()}
	srv, err := NewServer(h)
	require.NoError(t, err)

	// When: calling search_hymns
	result, err := srv.CallTool(context.Background(), ToolSearchHymns, map[string]any{
		"query":    "abide with me",
		"language": "english",
		"k":        2,
	})

	// Then: results keep the retriever's order and the request is passed through
	require.NoError(t, err)
	out, ok := result.(SearchOutput)
	require.True(t, ok, "expected SearchOutput, got %T", result)
	assert.Equal(t, "english", out.Language)
	require.Len(t, out.Results, 2)
	assert.Equal(t, 4, out.Results[0].HymnID)
	assert.InDelta(t, 0.9, out.Results[0].Score, 1e-6)
	assert.Equal(t, hymn.English, h.gotLang)
	assert.Equal(t, 2, h.gotK)
}

func TestSearchTool_ClampsK(t *testing.T) {
	h := &fakeHymnal{}
	srv, err := NewServer(h)
	require.NoError(t, err)

	_, err = srv.CallTool(context.Background(), ToolSearchHymns, map[string]any{
		"query": "x", "language": "yo", "k": 1000,
	})

	require.NoError(t, err)
	assert.Equal(t, MaxK, h.gotK)
	assert.Equal(t, hymn.Yoruba, h.gotLang)
}

func TestSearchTool_InvalidParams(t *testing.T) {
	srv, err := NewServer(&fakeHymnal{})
	require.NoError(t, err)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing everything", nil},
		{"unknown language", map[string]any{"query": "x", "language": "latin"}},
		{"blank query", map[string]any{"query": "   ", "language": "english"}},
		{"wrong type", map[string]any{"query": 12, "language": "english"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.CallTool(context.Background(), ToolSearchHymns, tt.args)

			require.Error(t, err)
			assert.Equal(t, ErrCodeInvalidParams, MapError(err).Code)
		})
	}
}

func TestSearchTool_MissingIndex(t *testing.T) {
	// Given: a hymnal whose language has no index
	srv, err := NewServer(&fakeHymnal{err: apperrors.IndexNotFound("english")})
	require.NoError(t, err)

	// When: searching
	_, err = srv.CallTool(context.Background(), ToolSearchHymns, map[string]any{
		"query": "x", "language": "english",
	})

	// Then: the index-not-found code is returned
	require.Error(t, err)
	assert.Equal(t, ErrCodeIndexNotFound, MapError(err).Code)
}

func TestFindTool_ReturnsAnswer(t *testing.T) {
	srv, err := NewServer(&fakeHymnal{results: sampleResults()})
	require.NoError(t, err)

	result, err := srv.CallTool(context.Background(), ToolFindHymn, map[string]any{
		"query": "abide", "language": "english",
	})

	require.NoError(t, err)
	out := result.(FindOutput)
	assert.Equal(t, "Hymn 4", out.Answer)
	assert.True(t, out.Matched)
	assert.Len(t, out.Sources, 2)
}

func TestFindTool_NoMatch(t *testing.T) {
	srv, err := NewServer(&fakeHymnal{})
	require.NoError(t, err)

	result, err := srv.CallTool(context.Background(), ToolFindHymn, map[string]any{
		"query": "abide", "language": "english",
	})

	require.NoError(t, err)
	out := result.(FindOutput)
	assert.False(t, out.Matched)
	assert.Empty(t, out.Sources)
}

func TestGetHymnTool(t *testing.T) {
	h := &fakeHymnal{records: map[int]hymn.Record{3: {ID: 3, Number: 12, Title: "ABIDE", Text: "Abide with me"}}}
	srv, err := NewServer(h)
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		result, err := srv.CallTool(context.Background(), ToolGetHymn, map[string]any{"language": "english", "id": 3})

		require.NoError(t, err)
		out := result.(HymnOutput)
		assert.Equal(t, 12, out.Number)
		assert.Equal(t, "Abide with me", out.Text)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := srv.CallTool(context.Background(), ToolGetHymn, map[string]any{"language": "english", "id": 99})

		require.Error(t, err)
		assert.Equal(t, ErrCodeHymnNotFound, MapError(err).Code)
	})
}

func TestIndexStatusTool(t *testing.T) {
	// Given: only English has a published index
	built := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	srv, err := NewServer(&fakeHymnal{}, WithManifests(fakeManifests{
		hymn.English: {Language: hymn.English, Generation: "gen-1", Model: "nomic-embed-text", Hymns: 40, Chunks: 55, BuiltAt: built},
	}))
	require.NoError(t, err)

	// When: calling index_status
	result, err := srv.CallTool(context.Background(), ToolIndexStatus, nil)

	// Then: both languages are reported and only English is ready
	require.NoError(t, err)
	out := result.(*IndexStatusOutput)
	require.Len(t, out.Languages, 2)
	assert.True(t, out.Languages[0].Ready)
	assert.Equal(t, 40, out.Languages[0].Hymns)
	assert.Equal(t, "2026-03-01T12:00:00Z", out.Languages[0].BuiltAt)
	assert.False(t, out.Languages[1].Ready)
	assert.Equal(t, "yoruba", out.Languages[1].Language)
}

func TestCallTool_Unknown(t *testing.T) {
	srv, err := NewServer(&fakeHymnal{})
	require.NoError(t, err)

	_, err = srv.CallTool(context.Background(), "nonexistent_tool", nil)
	require.Error(t, err)
	assert.Equal(t, ErrCodeMethodNotFound, MapError(err).Code)

	_, err = srv.CallTool(context.Background(), ToolIndexStatus, nil)
	require.Error(t, err)
}

func TestServer_OverInMemoryTransport(t *testing.T) {
	// Given: a server connected to a client through in-memory transports
	srv, err := NewServer(&fakeHymnal{results: sampleResults()})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer func() { _ = ss.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = cs.Close() }()

	// When: listing tools and calling search_hymns
	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolSearchHymns,
		Arguments: map[string]any{"query": "abide", "language": "english"},
	})

	// Then: the tools are advertised and the markdown text is returned
	require.NoError(t, err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{ToolSearchHymns, ToolFindHymn, ToolGetHymn}, names)
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Hymn 4, chunk 0")
}
