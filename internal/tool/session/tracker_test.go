package session

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Lifecycle(t *testing.T) {
	tr := NewTracker()
	assert.Nil(t, tr.Current())
	assert.Empty(t, tr.ActiveID())

	rec := tr.Start("refactor auth", "feature/auth")
	require.NotNil(t, rec)
	_, err := uuid.Parse(rec.ID)
	assert.NoError(t, err)
	assert.True(t, rec.Active)
	assert.Equal(t, "feature/auth", rec.Branch)
	assert.Empty(t, rec.CommitHashes)
	assert.Equal(t, rec.ID, tr.ActiveID())

	assert.True(t, tr.RecordCommit("aaa"))
	assert.True(t, tr.RecordCommit("bbb"))
	assert.Equal(t, []string{"aaa", "bbb"}, tr.Current().CommitHashes)

	ended := tr.End()
	require.NotNil(t, ended)
	assert.False(t, ended.Active)
	require.NotNil(t, ended.EndTime)
	assert.False(t, ended.EndTime.Before(ended.StartTime))
	assert.Empty(t, tr.ActiveID())

	// Ended sessions stay readable but take no more commits.
	assert.False(t, tr.RecordCommit("ccc"))
	assert.Equal(t, []string{"aaa", "bbb"}, tr.Current().CommitHashes)
	assert.Nil(t, tr.End())
}

func TestTracker_RecordCommitWithoutSession_NoOp(t *testing.T) {
	tr := NewTracker()

	assert.False(t, tr.RecordCommit("abc"))
	assert.Nil(t, tr.Current())
}

func TestTracker_StartReplacesActiveSession(t *testing.T) {
	tr := NewTracker()
	first := tr.Start("first", "")
	tr.RecordCommit("aaa")

	second := tr.Start("second", "")

	assert.NotEqual(t, first.ID, second.ID)
	cur := tr.Current()
	assert.Equal(t, "second", cur.Description)
	assert.Empty(t, cur.CommitHashes)
}

func TestTracker_ReturnsCopies(t *testing.T) {
	tr := NewTracker()
	tr.now = func() time.Time { return time.Unix(100, 0) }
	tr.Start("s", "main")
	tr.RecordCommit("aaa")

	cur := tr.Current()
	cur.CommitHashes[0] = "mutated"
	cur.Description = "mutated"

	fresh := tr.Current()
	assert.Equal(t, "aaa", fresh.CommitHashes[0])
	assert.Equal(t, "s", fresh.Description)
	assert.Equal(t, time.Unix(100, 0), fresh.StartTime)
}

func TestTracker_ConcurrentRecord(t *testing.T) {
	tr := NewTracker()
	tr.Start("busy", "")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.RecordCommit("h")
			_ = tr.Current()
		}()
	}
	wg.Wait()

	assert.Len(t, tr.Current().CommitHashes, 50)
}
