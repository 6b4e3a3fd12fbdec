// ABOUTME: Tests for the player observer's publish and deferred-publish rules
package observer

import (
	"context"
	"testing"
	"time"

	"mtcbridge/internal/mailbox"
	"mtcbridge/internal/playerclient"
	"mtcbridge/internal/status"
)

type fakeClient struct {
	initialPT  playerclient.PlaytimeEvent
	initialID  playerclient.SongEvent
	initialSt  playerclient.StatusEvent
	initialErr error

	playtime chan playerclient.PlaytimeEvent
	song     chan playerclient.SongEvent
	stat     chan playerclient.StatusEvent

	runErr chan error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		playtime: make(chan playerclient.PlaytimeEvent, 4),
		song:     make(chan playerclient.SongEvent, 4),
		stat:     make(chan playerclient.StatusEvent, 4),
		runErr:   make(chan error, 1),
	}
}

func (f *fakeClient) Initial(ctx context.Context) (playerclient.PlaytimeEvent, playerclient.SongEvent, playerclient.StatusEvent, error) {
	return f.initialPT, f.initialID, f.initialSt, f.initialErr
}
func (f *fakeClient) Playtime() <-chan playerclient.PlaytimeEvent { return f.playtime }
func (f *fakeClient) Song() <-chan playerclient.SongEvent         { return f.song }
func (f *fakeClient) Status() <-chan playerclient.StatusEvent     { return f.stat }
func (f *fakeClient) Run(ctx context.Context) error {
	select {
	case err := <-f.runErr:
		return err
	case <-ctx.Done():
		return nil
	}
}

func TestInitialSnapshotIsPublished(t *testing.T) {
	fc := newFakeClient()
	fc.initialPT = playerclient.PlaytimeEvent{Xtime: 500}
	fc.initialID = playerclient.SongEvent{SongID: 7}
	fc.initialSt = playerclient.StatusEvent{State: playerclient.StatePlaying}

	box := mailbox.New()
	obs := New(fc, box, func() int64 { return 0 })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() { obs.Run(ctx); close(done) }()

	snap := box.Read(true)
	if snap.SongID != 7 || snap.State != status.Playing || snap.TimePoint.Xtime != 500 {
		t.Errorf("initial snapshot = %+v, want song=7 state=playing xtime=500", snap)
	}
	cancel()
	<-done
}

func TestPlaytimePublishesSnapshot(t *testing.T) {
	fc := newFakeClient()
	fc.initialSt = playerclient.StatusEvent{State: playerclient.StatePlaying}
	box := mailbox.New()
	obs := New(fc, box, func() int64 { return 0 })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go obs.Run(ctx)

	box.Read(true) // drain initial snapshot

	fc.playtime <- playerclient.PlaytimeEvent{Xtime: 1234}

	result := make(chan status.Snapshot, 1)
	go func() { result <- box.Read(true) }()

	select {
	case snap := <-result:
		if snap.TimePoint.Xtime != 1234 {
			t.Errorf("TimePoint.Xtime = %d, want 1234", snap.TimePoint.Xtime)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a snapshot after a playtime event")
	}
}

func TestSongIDChangeDoesNotPublishUntilNextPlaytime(t *testing.T) {
	fc := newFakeClient()
	fc.initialSt = playerclient.StatusEvent{State: playerclient.StatePlaying}
	fc.initialID = playerclient.SongEvent{SongID: 1}
	box := mailbox.New()
	obs := New(fc, box, func() int64 { return 0 })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go obs.Run(ctx)

	box.Read(true) // drain initial snapshot, clears freshness

	fc.song <- playerclient.SongEvent{SongID: 99}
	time.Sleep(50 * time.Millisecond)

	// No playtime followed the song change, so the slot must still be
	// unread: a write would have marked it fresh again.
	wasUnread := box.Write(status.Snapshot{})
	if wasUnread {
		t.Error("expected the slot to be unread: a song-id event must not publish")
	}
}

func TestStopToPlayTransitionDefersPublish(t *testing.T) {
	fc := newFakeClient()
	fc.initialSt = playerclient.StatusEvent{State: playerclient.StateStopped}
	box := mailbox.New()
	obs := New(fc, box, func() int64 { return 0 })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go obs.Run(ctx)

	box.Read(true) // drain initial (Stopped) snapshot

	fc.stat <- playerclient.StatusEvent{State: playerclient.StatePlaying}
	time.Sleep(50 * time.Millisecond)

	wasUnread := box.Write(status.Snapshot{})
	if wasUnread {
		t.Error("expected the slot to be unread: a bare stop->play status must defer publication")
	}
}
