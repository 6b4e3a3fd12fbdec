// ABOUTME: Subscribes to player events and publishes complete status snapshots
// ABOUTME: Owns its in-progress snapshot exclusively; the mailbox is its only output
package observer

import (
	"context"
	"log"

	"mtcbridge/internal/mailbox"
	"mtcbridge/internal/playerclient"
	"mtcbridge/internal/status"
)

// PlayerObserver bridges a PlayerClient's three event streams into
// status.Snapshot values published to a Mailbox.
type PlayerObserver struct {
	client playerclient.PlayerClient
	box    *mailbox.Mailbox
	nowMs  func() int64

	snapshot status.Snapshot
}

// New creates an observer for client, publishing into box. nowMs must share
// its epoch with the scheduler's MIDI output clock (midiout.Output.NowMs) —
// an independently-anchored clock here would bake a constant offset into
// every published Ltime.
func New(client playerclient.PlayerClient, box *mailbox.Mailbox, nowMs func() int64) *PlayerObserver {
	return &PlayerObserver{client: client, box: box, nowMs: nowMs, snapshot: status.Zero}
}

// Run fetches the initial snapshot and then drains the client's event
// streams until ctx is cancelled or the client's Run returns. Run itself
// drives the client's event loop in the background and returns once that
// loop exits.
func (o *PlayerObserver) Run(ctx context.Context) error {
	pt, song, st, err := o.client.Initial(ctx)
	if err != nil {
		return err
	}

	o.snapshot.TimePoint = status.TimePoint{Xtime: pt.Xtime, Ltime: o.nowMs(), Valid: true}
	o.snapshot.SongID = song.SongID
	o.snapshot.State = stateFrom(st.State)
	o.box.Write(o.snapshot)

	errCh := make(chan error, 1)
	go func() { errCh <- o.client.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-errCh:
			if err != nil {
				logError(err)
			}
			return err

		case ev := <-o.client.Playtime():
			o.snapshot.TimePoint = status.TimePoint{Xtime: ev.Xtime, Ltime: o.nowMs(), Valid: true}
			o.box.Write(o.snapshot)

		case ev := <-o.client.Song():
			// Out-of-order w.r.t. state transitions; wait for the next
			// playtime to publish a self-consistent snapshot.
			o.snapshot.SongID = ev.SongID

		case ev := <-o.client.Status():
			prev := o.snapshot.State
			next := stateFrom(ev.State)
			o.snapshot.State = next
			if prev == status.Stopped && next == status.Playing {
				// Defer: stop-to-play emits status, then id, then playtime;
				// publishing here would carry the previous song's id.
				continue
			}
			o.box.Write(o.snapshot)
		}
	}
}

func stateFrom(s playerclient.PlaybackState) status.PlaybackState {
	switch s {
	case playerclient.StateStopped:
		return status.Stopped
	case playerclient.StatePaused:
		return status.Paused
	case playerclient.StatePlaying:
		return status.Playing
	default:
		return status.Invalid
	}
}

func logError(err error) {
	log.Printf("observer: %v", err)
}
