package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

func TestDebouncer_SingleEvent_PassesThrough(t *testing.T) {
	// Given: a debouncer with short window
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	// When: a single event is added
	d.Add(Event{Language: hymn.English, Generation: "gen-a", Timestamp: time.Now()})

	// Then: the event passes through after the debounce window
	select {
	case events := <-d.Output():
		require.Len(t, events, 1)
		assert.Equal(t, hymn.English, events[0].Language)
		assert.Equal(t, "gen-a", events[0].Generation)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced event")
	}
}

func TestDebouncer_SameLanguage_KeepsLatest(t *testing.T) {
	// Given: a debouncer with short window
	d := NewDebouncer(100 * time.Millisecond)
	defer d.Stop()

	// When: several publications for one language arrive rapidly
	for _, gen := range []string{"gen-a", "gen-b", "gen-c"} {
		d.Add(Event{Language: hymn.Yoruba, Generation: gen})
		time.Sleep(10 * time.Millisecond)
	}

	// Then: one event with the latest generation comes out
	select {
	case events := <-d.Output():
		require.Len(t, events, 1)
		assert.Equal(t, "gen-c", events[0].Generation)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced events")
	}
}

func TestDebouncer_TwoLanguages_OrderedBatch(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	d.Add(Event{Language: hymn.Yoruba, Generation: "gen-y"})
	d.Add(Event{Language: hymn.English, Generation: "gen-e"})

	select {
	case events := <-d.Output():
		require.Len(t, events, 2)
		assert.Equal(t, hymn.English, events[0].Language)
		assert.Equal(t, hymn.Yoruba, events[1].Language)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced events")
	}
}

func TestDebouncer_Stop_ClosesOutputAndIgnoresAdds(t *testing.T) {
	// Given: a stopped debouncer
	d := NewDebouncer(20 * time.Millisecond)
	d.Stop()
	d.Stop()

	// When: an event is added after stopping
	d.Add(Event{Language: hymn.English})

	// Then: the output channel is closed and nothing is emitted
	_, ok := <-d.Output()
	assert.False(t, ok)
}
