package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const ttl = 5 * time.Second

func newTestTracker(start time.Time) (*Tracker, *time.Time) {
	tracker := NewTracker(ttl)
	now := start
	tracker.now = func() time.Time { return now }
	return tracker, &now
}

func Test_Set_Then_List(t *testing.T) {
	req := require.New(t)
	tracker, _ := newTestTracker(time.Now())

	tracker.Set("room-1", "alice")
	tracker.Set("room-1", "bob")
	tracker.Set("room-2", "clara")

	req.ElementsMatch([]string{"alice", "bob"}, tracker.List("room-1", ""))
	req.ElementsMatch([]string{"clara"}, tracker.List("room-2", ""))
}

func Test_List_Excludes_The_Caller(t *testing.T) {
	req := require.New(t)
	tracker, _ := newTestTracker(time.Now())

	tracker.Set("room-1", "alice")
	tracker.Set("room-1", "bob")

	req.ElementsMatch([]string{"bob"}, tracker.List("room-1", "alice"))
}

func Test_Indicator_Expires_Without_Explicit_Clear(t *testing.T) {
	req := require.New(t)
	tracker, now := newTestTracker(time.Now())

	tracker.Set("room-1", "alice")

	// One second before the deadline the indicator is still visible.
	*now = now.Add(ttl - time.Second)
	req.ElementsMatch([]string{"alice"}, tracker.List("room-1", ""))

	// Past the TTL it is gone, no clear event ever observed.
	*now = now.Add(2 * time.Second)
	req.Empty(tracker.List("room-1", ""))
}

func Test_Set_Refreshes_The_Deadline(t *testing.T) {
	req := require.New(t)
	tracker, now := newTestTracker(time.Now())

	tracker.Set("room-1", "alice")
	*now = now.Add(4 * time.Second)
	tracker.Set("room-1", "alice")
	*now = now.Add(4 * time.Second)

	// 8s after the first signal, 4s after the refresh: still typing.
	req.ElementsMatch([]string{"alice"}, tracker.List("room-1", ""))
}

func Test_Clear_Removes_Immediately(t *testing.T) {
	req := require.New(t)
	tracker, _ := newTestTracker(time.Now())

	tracker.Set("room-1", "alice")
	req.True(tracker.Clear("room-1", "alice"))
	req.Empty(tracker.List("room-1", ""))

	// A second clear is a no-op and reports nothing was present.
	req.False(tracker.Clear("room-1", "alice"))
}

func Test_Sweep_Only_Deletes_Expired_Entries(t *testing.T) {
	req := require.New(t)
	tracker, now := newTestTracker(time.Now())

	tracker.Set("room-1", "alice")
	*now = now.Add(ttl + time.Second)
	tracker.Set("room-1", "bob")

	req.Equal(1, tracker.Sweep())
	req.ElementsMatch([]string{"bob"}, tracker.List("room-1", ""))
}
