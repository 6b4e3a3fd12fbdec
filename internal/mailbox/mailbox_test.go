// ABOUTME: Tests for the single-slot status mailbox
// ABOUTME: Covers freshness flag transitions and blocking/non-blocking reads
package mailbox

import (
	"testing"
	"time"

	"mtcbridge/internal/status"
)

func TestWriteThenBlockingReadReturnsValue(t *testing.T) {
	m := New()
	v := status.Snapshot{State: status.Playing, SongID: 7}

	m.Write(v)
	got := m.Read(true)

	if got != v {
		t.Errorf("expected %+v, got %+v", v, got)
	}
}

func TestReadClearsFreshness(t *testing.T) {
	m := New()
	m.Write(status.Snapshot{State: status.Playing})
	m.Read(true)

	wasUnread := m.Write(status.Snapshot{State: status.Paused})
	if wasUnread {
		t.Error("expected previous slot to be clear (unread==false) after a read")
	}
}

func TestWriteOnUnreadSlotReturnsTrue(t *testing.T) {
	m := New()
	m.Write(status.Snapshot{State: status.Playing})
	wasUnread := m.Write(status.Snapshot{State: status.Paused})
	if !wasUnread {
		t.Error("expected true: the first write was never read")
	}
}

func TestNonBlockingReadNeverBlocks(t *testing.T) {
	m := New()
	done := make(chan status.Snapshot, 1)
	go func() { done <- m.Read(false) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("non-blocking read blocked")
	}
}

func TestBlockingReadWaitsForWrite(t *testing.T) {
	m := New()
	v := status.Snapshot{State: status.Playing, SongID: 3}

	result := make(chan status.Snapshot, 1)
	go func() { result <- m.Read(true) }()

	time.Sleep(20 * time.Millisecond)
	m.Write(v)

	select {
	case got := <-result:
		if got != v {
			t.Errorf("expected %+v, got %+v", v, got)
		}
	case <-time.After(time.Second):
		t.Fatal("blocking read never returned after write")
	}
}

func TestLatestWinsOverwritesUnread(t *testing.T) {
	m := New()
	a := status.Snapshot{State: status.Playing, SongID: 1}
	b := status.Snapshot{State: status.Playing, SongID: 2}

	m.Write(a)
	m.Write(b)

	got := m.Read(true)
	if got != b {
		t.Errorf("expected latest write %+v, got %+v", b, got)
	}
}
