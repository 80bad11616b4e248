package ui

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

type recordingAsk struct {
	calls atomic.Int32
	last  atomic.Value
}

func (r *recordingAsk) ask(_ context.Context, query string, lang hymn.Language) (string, error) {
	r.calls.Add(1)
	r.last.Store(lang.String() + ":" + query)
	if query == "fail" {
		return "", errors.New("index missing")
	}
	return "answer for " + query, nil
}

func newTestSearch(r *recordingAsk) *SearchModel {
	return NewSearchModel(SearchConfig{
		Ask:      r.ask,
		Language: hymn.English,
		Debounce: 10 * time.Millisecond,
		NoColor:  true,
		Intro:    "Find hymns in English or Yoruba instantly as you type.",
	})
}

func typeText(m *SearchModel, text string) []debounceMsg {
	var ticks []debounceMsg
	for _, r := range text {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		ticks = append(ticks, debounceMsg{seq: m.seq})
	}
	return ticks
}

func TestSearchModel_DebounceOnlyLatestSearches(t *testing.T) {
	// Given: a model with a typed query
	r := &recordingAsk{}
	m := newTestSearch(r)
	ticks := typeText(m, "abide")

	// When: every debounce tick fires, oldest first
	var cmds []tea.Cmd
	for _, tick := range ticks {
		_, cmd := m.Update(tick)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	// Then: only the final tick starts a search
	require.Len(t, cmds, 1)
	msg := cmds[0]()
	m.Update(msg)
	assert.Equal(t, int32(1), r.calls.Load())
	assert.Equal(t, "english:abide", r.last.Load())
	assert.Equal(t, "answer for abide", m.Answer())
}

func TestSearchModel_StaleAnswerIgnored(t *testing.T) {
	r := &recordingAsk{}
	m := newTestSearch(r)
	typeText(m, "rock")
	_, cmd := m.Update(debounceMsg{seq: m.seq})
	require.NotNil(t, cmd)
	stale := cmd()

	// When: the user keeps typing before the answer arrives
	typeText(m, "s")
	m.Update(stale)

	// Then: the older answer is discarded
	assert.Empty(t, m.Answer())
	assert.True(t, m.pending)
}

func TestSearchModel_TabTogglesLanguage(t *testing.T) {
	r := &recordingAsk{}
	m := newTestSearch(r)
	typeText(m, "ore")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, cmd)
	assert.Equal(t, hymn.Yoruba, m.Language())

	_, search := m.Update(debounceMsg{seq: m.seq})
	require.NotNil(t, search)
	m.Update(search())
	assert.Equal(t, "yoruba:ore", r.last.Load())
}

func TestSearchModel_EnterSearchesImmediately(t *testing.T) {
	r := &recordingAsk{}
	m := newTestSearch(r)
	typeText(m, "grace")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.Equal(t, "answer for grace", m.Answer())
}

func TestSearchModel_EmptyQueryShowsIntro(t *testing.T) {
	r := &recordingAsk{}
	m := newTestSearch(r)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Zero(t, r.calls.Load())
	assert.Contains(t, m.View(), "instantly as you type")
}

func TestSearchModel_ErrorShown(t *testing.T) {
	r := &recordingAsk{}
	m := newTestSearch(r)
	typeText(m, "fail")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(cmd())

	assert.Empty(t, m.Answer())
	assert.Contains(t, m.View(), "index missing")
}

func TestSearchModel_EscQuits(t *testing.T) {
	m := newTestSearch(&recordingAsk{})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
