// ABOUTME: PlayerClient adapter backed by github.com/fhs/gompd/v2/mpd
// ABOUTME: Polls playtime at ~1Hz and watches the player/mixer idle subsystems for diffs
package mpd

import (
	"context"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/fhs/gompd/v2/mpd"

	"mtcbridge/internal/bridgeerr"
	"mtcbridge/internal/playerclient"
)

const playtimePollInterval = time.Second

var stateByName = map[string]playerclient.PlaybackState{
	"play":  playerclient.StatePlaying,
	"pause": playerclient.StatePaused,
	"stop":  playerclient.StateStopped,
}

// Client talks to a single MPD server over two connections: a
// status/command link used for polling and on-demand queries, and an idle
// link used only to watch for "player"/"mixer" subsystem changes.
type Client struct {
	network string
	address string
	passwd  string

	playtimeCh chan playerclient.PlaytimeEvent
	songCh     chan playerclient.SongEvent
	statusCh   chan playerclient.StatusEvent

	lastSongID int
	lastState  playerclient.PlaybackState
}

// New creates an MPD-backed PlayerClient. address is "host:port".
func New(network, address, passwd string) *Client {
	return &Client{
		network:    network,
		address:    address,
		passwd:     passwd,
		playtimeCh: make(chan playerclient.PlaytimeEvent, 1),
		songCh:     make(chan playerclient.SongEvent, 1),
		statusCh:   make(chan playerclient.StatusEvent, 1),
		lastSongID: -1,
		lastState:  playerclient.StateInvalid,
	}
}

func (c *Client) dial() (*mpd.Client, error) {
	if c.passwd != "" {
		return mpd.DialAuthenticated(c.network, c.address, c.passwd)
	}
	return mpd.Dial(c.network, c.address)
}

// Initial implements playerclient.PlayerClient.
func (c *Client) Initial(ctx context.Context) (playerclient.PlaytimeEvent, playerclient.SongEvent, playerclient.StatusEvent, error) {
	conn, err := c.dial()
	if err != nil {
		return playerclient.PlaytimeEvent{}, playerclient.SongEvent{}, playerclient.StatusEvent{},
			bridgeerr.NewConnectError("dial MPD", err)
	}
	defer conn.Close()

	status, err := conn.Status()
	if err != nil {
		return playerclient.PlaytimeEvent{}, playerclient.SongEvent{}, playerclient.StatusEvent{},
			bridgeerr.NewConnectError("initial MPD status", err)
	}

	pt := parsePlaytime(status)
	song := parseSongID(status)
	st := parseState(status)

	c.lastSongID = song.SongID
	c.lastState = st.State

	return pt, song, st, nil
}

// Playtime implements playerclient.PlayerClient.
func (c *Client) Playtime() <-chan playerclient.PlaytimeEvent { return c.playtimeCh }

// Song implements playerclient.PlayerClient.
func (c *Client) Song() <-chan playerclient.SongEvent { return c.songCh }

// Status implements playerclient.PlayerClient.
func (c *Client) Status() <-chan playerclient.StatusEvent { return c.statusCh }

// Run implements playerclient.PlayerClient. It owns a status/command
// connection for polling and a separate idle-watching connection for
// player/mixer subsystem changes. A failed status poll is logged and the
// command link is reconnected at most once before Run gives up and
// returns; an error from the idle link ends Run at once.
func (c *Client) Run(ctx context.Context) error {
	conn, err := c.dial()
	if err != nil {
		return bridgeerr.NewConnectError("dial MPD command link", err)
	}
	defer conn.Close()

	watcher, err := mpd.NewWatcher(c.network, c.address, c.passwd, "player", "mixer")
	if err != nil {
		return bridgeerr.NewConnectError("dial MPD idle link", err)
	}
	defer watcher.Close()

	ticker := time.NewTicker(playtimePollInterval)
	defer ticker.Stop()

	reconnected := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			status, err := conn.Status()
			if err != nil {
				log.Printf("mpd: status poll: %v", err)
				if reconnected {
					return bridgeerr.NewConnectError("MPD status poll failed after reconnect", err)
				}
				reconnected = true
				conn.Close()
				conn, err = c.dial()
				if err != nil {
					return bridgeerr.NewConnectError("reconnect MPD command link", err)
				}
				continue
			}
			c.emitDiff(status)

		case <-watcher.Event:
			status, err := conn.Status()
			if err != nil {
				log.Printf("mpd: status after idle event: %v", err)
				continue
			}
			c.emitDiff(status)

		case <-watcher.Error:
			return bridgeerr.NewConnectError("MPD idle watcher error", nil)
		}
	}
}

func (c *Client) emitDiff(status mpd.Attrs) {
	pt := parsePlaytime(status)
	select {
	case c.playtimeCh <- pt:
	default:
	}

	song := parseSongID(status)
	if song.SongID != c.lastSongID {
		c.lastSongID = song.SongID
		select {
		case c.songCh <- song:
		default:
		}
	}

	st := parseState(status)
	if st.State != c.lastState {
		c.lastState = st.State
		select {
		case c.statusCh <- st:
		default:
		}
	}
}

func parsePlaytime(status mpd.Attrs) playerclient.PlaytimeEvent {
	elapsedf, _ := strconv.ParseFloat(status["elapsed"], 64)
	return playerclient.PlaytimeEvent{Xtime: int64(math.Round(elapsedf * 1000))}
}

func parseSongID(status mpd.Attrs) playerclient.SongEvent {
	id, _ := strconv.Atoi(status["songid"])
	return playerclient.SongEvent{SongID: id}
}

func parseState(status mpd.Attrs) playerclient.StatusEvent {
	state, ok := stateByName[status["state"]]
	if !ok {
		state = playerclient.StateInvalid
	}
	return playerclient.StatusEvent{State: state}
}
