package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_DefaultDimensions(t *testing.T) {
	e := NewStaticEmbedder(0)
	assert.Equal(t, StaticDimensions, e.Dimensions())
	assert.Equal(t, "static-256", e.ModelName())
}

func TestStaticEmbedder_Deterministic(t *testing.T) {
	// Given: a static embedder
	e := NewStaticEmbedder(128)
	ctx := context.Background()

	// When: embedding the same line twice
	a, err := e.Embed(ctx, "Abide with me, fast falls the eventide")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Abide with me, fast falls the eventide")
	require.NoError(t, err)

	// Then: vectors are identical and unit length
	assert.Equal(t, a, b)
	assert.Len(t, a, 128)
	assert.InDelta(t, 1.0, vectorMagnitude(a), 1e-5)
}

func TestStaticEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e := NewStaticEmbedder(64)

	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)

	assert.Len(t, vec, 64)
	assert.Zero(t, vectorMagnitude(vec))
}

func TestStaticEmbedder_SimilarLinesScoreHigher(t *testing.T) {
	// Given: a hymn line, a fragment of it and an unrelated line
	e := NewStaticEmbedder(256)
	ctx := context.Background()
	full, _ := e.Embed(ctx, "Abide with me fast falls the eventide the darkness deepens")
	fragment, _ := e.Embed(ctx, "fast falls the eventide")
	other, _ := e.Embed(ctx, "Onward Christian soldiers marching as to war")

	// Then: the fragment is closer to its hymn than the unrelated line is
	assert.Greater(t, cosineSimilarity(full, fragment), cosineSimilarity(full, other))
}

func TestStaticEmbedder_FoldsYorubaDiacritics(t *testing.T) {
	// Given: the same Yoruba line with and without tone marks
	e := NewStaticEmbedder(256)
	ctx := context.Background()
	marked, _ := e.Embed(ctx, "Olúwa ni olùṣọ́ àgùntàn mi")
	plain, _ := e.Embed(ctx, "Oluwa ni oluso aguntan mi")

	// Then: both produce the same vector
	assert.InDelta(t, 1.0, cosineSimilarity(marked, plain), 1e-5)
}

func TestStaticEmbedder_EmbedBatchMatchesEmbed(t *testing.T) {
	e := NewStaticEmbedder(64)
	ctx := context.Background()
	texts := []string{"first line here", "second line there"}

	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	for i, text := range texts {
		single, _ := e.Embed(ctx, text)
		assert.Equal(t, single, batch[i])
	}
}

func TestStaticEmbedder_Closed(t *testing.T) {
	e := NewStaticEmbedder(64)
	require.NoError(t, e.Close())

	assert.False(t, e.Available(context.Background()))
	_, err := e.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello, World!", "hello world"},
		{"  ÈMI  ni  ", "emi ni"},
		{"Ọlọ́run", "olorun"},
		{"8.7.8.7", "8 7 8 7"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fold(tt.in), "fold(%q)", tt.in)
	}
}
