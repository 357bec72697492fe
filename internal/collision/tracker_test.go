package collision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/irstream/internal/hash"
)

func TestNewTracker(t *testing.T) {
	tracker := NewTracker()

	require.NotNil(t, tracker)
	require.Equal(t, 0, tracker.Count())
	require.False(t, tracker.HasCollision())
	require.Empty(t, tracker.Entries())
}

func TestTracker_Track(t *testing.T) {
	tracker := NewTracker()

	started := "\x11 service started on port \x11"
	refused := "\x11 connection refused by \x12"

	require.False(t, tracker.Track(hash.ID(started), started))
	require.False(t, tracker.Track(hash.ID(refused), refused))
	require.False(t, tracker.Track(hash.ID(started), started))

	require.Equal(t, 2, tracker.Count())
	require.False(t, tracker.HasCollision())
	require.Equal(t, []Entry{
		{ID: hash.ID(started), Logtype: started, Count: 2},
		{ID: hash.ID(refused), Logtype: refused, Count: 1},
	}, tracker.Entries())
}

func TestTracker_Collision(t *testing.T) {
	tracker := NewTracker()

	require.False(t, tracker.Track(0x1234567890abcdef, "first"))
	require.True(t, tracker.Track(0x1234567890abcdef, "second"))
	require.True(t, tracker.Track(0x1234567890abcdef, "second"))

	require.True(t, tracker.HasCollision())
	require.Equal(t, 2, tracker.Collisions())
	require.Equal(t, 1, tracker.Count())

	entries := tracker.Entries()
	require.Equal(t, "first", entries[0].Logtype)
	require.Equal(t, uint64(3), entries[0].Count)
}

func TestTracker_Top(t *testing.T) {
	tracker := NewTracker()
	for i, n := range []int{1, 3, 2, 3} {
		for range n {
			tracker.Track(uint64(10-i), "")
		}
	}

	top := tracker.Top(3)
	require.Len(t, top, 3)
	// Equal counts are ordered by ID.
	require.Equal(t, uint64(7), top[0].ID)
	require.Equal(t, uint64(9), top[1].ID)
	require.Equal(t, uint64(8), top[2].ID)

	require.Len(t, tracker.Top(0), 4)
}

func TestTracker_Reset(t *testing.T) {
	tracker := NewTracker()
	tracker.Track(1, "a")
	tracker.Track(1, "b")

	tracker.Reset()

	require.Equal(t, 0, tracker.Count())
	require.False(t, tracker.HasCollision())
	require.Empty(t, tracker.Entries())

	require.False(t, tracker.Track(1, "b"))
}
