// ABOUTME: Tests for MPD status-attribute parsing
package mpd

import (
	"testing"

	"github.com/fhs/gompd/v2/mpd"

	"mtcbridge/internal/playerclient"
)

func TestParsePlaytimeConvertsSecondsToMilliseconds(t *testing.T) {
	status := mpd.Attrs{"elapsed": "12.340"}
	got := parsePlaytime(status)
	if got.Xtime != 12340 {
		t.Errorf("Xtime = %d, want 12340", got.Xtime)
	}
}

func TestParseSongID(t *testing.T) {
	status := mpd.Attrs{"songid": "7"}
	got := parseSongID(status)
	if got.SongID != 7 {
		t.Errorf("SongID = %d, want 7", got.SongID)
	}
}

func TestParseStateMapping(t *testing.T) {
	cases := map[string]playerclient.PlaybackState{
		"play":  playerclient.StatePlaying,
		"pause": playerclient.StatePaused,
		"stop":  playerclient.StateStopped,
	}
	for raw, want := range cases {
		got := parseState(mpd.Attrs{"state": raw})
		if got.State != want {
			t.Errorf("parseState(%q) = %v, want %v", raw, got.State, want)
		}
	}
}

func TestParseStateUnknownIsInvalid(t *testing.T) {
	got := parseState(mpd.Attrs{"state": "bogus"})
	if got.State != playerclient.StateInvalid {
		t.Errorf("parseState(bogus) = %v, want Invalid", got.State)
	}
}

func TestEmitDiffOnlyEmitsOnChange(t *testing.T) {
	c := New("tcp", "127.0.0.1:6600", "")
	c.lastSongID = 7
	c.lastState = playerclient.StatePlaying

	c.emitDiff(mpd.Attrs{"elapsed": "1.0", "songid": "7", "state": "play"})

	select {
	case <-c.songCh:
		t.Error("unexpected song event: song id did not change")
	default:
	}
	select {
	case <-c.statusCh:
		t.Error("unexpected status event: state did not change")
	default:
	}
	select {
	case <-c.playtimeCh:
	default:
		t.Error("expected a playtime event on every poll")
	}
}
