package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

func TestProgressTracker_PerLanguageSnapshot(t *testing.T) {
	// Given: events for two languages
	p := NewProgressTracker()
	p.Update(ProgressEvent{Stage: StageEmbedding, Language: hymn.Yoruba, Current: 10, Total: 40})
	p.Update(ProgressEvent{Stage: StageLoading, Language: hymn.English, Message: "docs/English"})

	// When: taking a snapshot
	snap := p.Snapshot()

	// Then: languages appear in first-seen order with their own progress
	require.Len(t, snap, 2)
	assert.Equal(t, hymn.Yoruba, snap[0].Language)
	assert.InDelta(t, 0.25, snap[0].Progress, 1e-9)
	assert.Equal(t, hymn.English, snap[1].Language)
	assert.Equal(t, "docs/English", snap[1].Message)
	assert.Zero(t, snap[1].Progress)
}

func TestProgressTracker_ETA(t *testing.T) {
	now := time.Unix(1000, 0)
	p := NewProgressTracker()
	p.now = func() time.Time { return now }

	p.Update(ProgressEvent{Stage: StageEmbedding, Language: hymn.English, Current: 0, Total: 100})
	now = now.Add(10 * time.Second)
	p.Update(ProgressEvent{Stage: StageEmbedding, Language: hymn.English, Current: 50, Total: 100})

	snap := p.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 10*time.Second, snap[0].ETA)
}

func TestProgressTracker_StageChangeResetsClock(t *testing.T) {
	now := time.Unix(1000, 0)
	p := NewProgressTracker()
	p.now = func() time.Time { return now }

	p.Update(ProgressEvent{Stage: StageEmbedding, Language: hymn.English, Current: 1, Total: 2})
	now = now.Add(time.Minute)
	p.Update(ProgressEvent{Stage: StageIndexing, Language: hymn.English})

	snap := p.Snapshot()
	assert.Equal(t, StageIndexing, snap[0].Stage)
	assert.Zero(t, snap[0].ETA)
}

func TestProgressTracker_Errors(t *testing.T) {
	p := NewProgressTracker()
	p.Update(ProgressEvent{Stage: StageEmbedding, Language: hymn.English})

	p.AddError(ErrorEvent{Language: hymn.English, Err: errors.New("x")})
	p.AddError(ErrorEvent{Language: hymn.English, Err: errors.New("y"), IsWarn: true})

	errs, warns := p.Counts()
	assert.Equal(t, 1, errs)
	assert.Equal(t, 1, warns)
	assert.True(t, p.Snapshot()[0].Failed)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5s", FormatDuration(5*time.Second))
	assert.Equal(t, "2m", FormatDuration(2*time.Minute))
	assert.Equal(t, "2m 5s", FormatDuration(125*time.Second))
	assert.Equal(t, "1h 30m", FormatDuration(90*time.Minute))
}
