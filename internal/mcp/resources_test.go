package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

func TestParseHymnURI(t *testing.T) {
	tests := []struct {
		uri  string
		lang hymn.Language
		id   int
		ok   bool
	}{
		{"hymn://english/12", hymn.English, 12, true},
		{"hymn://yo/0", hymn.Yoruba, 0, true},
		{"hymn://latin/1", 0, 0, false},
		{"hymn://english/abc", 0, 0, false},
		{"hymn://english/-1", 0, 0, false},
		{"hymn://english", 0, 0, false},
		{"file://english/1", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			lang, id, ok := parseHymnURI(tt.uri)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.lang, lang)
				assert.Equal(t, tt.id, id)
			}
		})
	}
}
