// ABOUTME: Command-line and file-based option parsing
// ABOUTME: Resolves device, player connection, frame rate and notifier settings into a Config
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"mtcbridge/internal/bridgeerr"
	"mtcbridge/internal/mtc"
	"mtcbridge/internal/notifier"
)

// Config holds the fully resolved runtime configuration.
type Config struct {
	Device   int
	HasDevice bool
	XmmsPath string
	Rate     mtc.FrameRate

	Begin notifier.Notifier
	End   notifier.Notifier

	Verbose bool
	List    bool

	MonitorAddr string
	TUI         bool
	MonitorMDNS bool
}

// fileConfig is the shape of an optional TOML config file. Only Map is
// applied: its entries are added to the id-map for every key that no -map
// flag sets. The offset and notifier fields are decoded but not applied;
// those settings come from the command-line flags alone.
type fileConfig struct {
	Map             map[string]int `toml:"map"`
	Offset          int            `toml:"offset"`
	BeginStatus     string         `toml:"begin_status"`
	EndStatus       string         `toml:"end_status"`
	BeginChannel    int            `toml:"begin_channel"`
	EndChannel      int            `toml:"end_channel"`
	BeginLittleEnd  bool           `toml:"begin_littleendian"`
	EndLittleEnd    bool           `toml:"end_littleendian"`
}

// Parse builds a Config from argv (excluding the program name), expanding
// any "@path" response-file tokens first. It returns a *bridgeerr.ConfigError
// on any invalid option; the caller should print usage and exit 1.
func Parse(argv []string) (*Config, error) {
	expanded, err := expandResponseFiles(argv)
	if err != nil {
		return nil, bridgeerr.NewConfigError("response file: %v", err)
	}

	fs := flag.NewFlagSet("mtcbridge", flag.ContinueOnError)

	device := fs.Int("device", -1, "MIDI output device index (default: first listed output)")
	xmmsPath := fs.String("xmms-path", "", "player connection URI (default: $XMMS_PATH)")
	fps := fs.String("fps", "pal", "frame rate: pal (film, ntscd and ntsc are recognised but rejected)")
	maps := multiFlag{}
	fs.Var(&maps, "map", "repeatable K:V song-id mapping entry")
	offset := fs.Int("offset", 0, "fallback offset for unmapped song ids")
	beginStatus := fs.String("begin-status", "none", "begin notifier command: none, noteoff, noteon, pa, cc")
	endStatus := fs.String("end-status", "none", "end notifier command: none, noteoff, noteon, pa, cc")
	beginChannel := fs.Int("begin-channel", 1, "begin notifier channel, 1..16")
	endChannel := fs.Int("end-channel", 1, "end notifier channel, 1..16")
	beginLE := fs.Bool("begin-littleendian", true, "begin notifier byte order")
	endLE := fs.Bool("end-littleendian", true, "end notifier byte order")
	verbose := fs.Bool("verbose", false, "enable verbose logging")
	list := fs.Bool("list", false, "list available MIDI output ports and exit")
	configFile := fs.String("config-file", "", "optional TOML config file supplying id-map entries")
	monitorAddr := fs.String("monitor-addr", "", "address to serve a websocket status feed on, e.g. :7890")
	tuiFlag := fs.Bool("tui", false, "run an interactive terminal monitor")
	monitorMDNS := fs.Bool("monitor-mdns", false, "advertise the status feed over mDNS")

	if err := fs.Parse(expanded); err != nil {
		return nil, bridgeerr.NewConfigError("%v", err)
	}

	rate, ok := mtc.RateByName(*fps)
	if !ok {
		return nil, bridgeerr.NewConfigError("unknown fps %q", *fps)
	}
	if rate != mtc.PAL {
		return nil, bridgeerr.NewConfigError("fps %q is not supported; only pal (25) is verified end-to-end", *fps)
	}

	idMap, err := parseIDMap(maps)
	if err != nil {
		return nil, bridgeerr.NewConfigError("%v", err)
	}

	var fc fileConfig
	if *configFile != "" {
		if _, err := toml.DecodeFile(*configFile, &fc); err != nil {
			return nil, bridgeerr.NewConfigError("config file %s: %v", *configFile, err)
		}
		for k, v := range fc.Map {
			id, err := strconv.Atoi(k)
			if err != nil {
				return nil, bridgeerr.NewConfigError("config file map key %q: not an integer", k)
			}
			if _, explicit := idMap[id]; !explicit {
				idMap[id] = v
			}
		}
	}

	beginCmd, ok := notifier.CommandByName(*beginStatus)
	if !ok {
		return nil, bridgeerr.NewConfigError("unknown begin-status %q", *beginStatus)
	}
	endCmd, ok := notifier.CommandByName(*endStatus)
	if !ok {
		return nil, bridgeerr.NewConfigError("unknown end-status %q", *endStatus)
	}
	if *beginChannel < 1 || *beginChannel > 16 {
		return nil, bridgeerr.NewConfigError("begin-channel out of range: %d", *beginChannel)
	}
	if *endChannel < 1 || *endChannel > 16 {
		return nil, bridgeerr.NewConfigError("end-channel out of range: %d", *endChannel)
	}

	path := resolveXmmsPath(*xmmsPath)

	cfg := &Config{
		Device:    *device,
		HasDevice: *device >= 0,
		XmmsPath:  path,
		Rate:      rate,
		Begin: notifier.Notifier{
			Cmd:       beginCmd,
			Channel:   *beginChannel - 1,
			LittleEnd: *beginLE,
			IDMap:     idMap,
			Offset:    *offset,
		},
		End: notifier.Notifier{
			Cmd:       endCmd,
			Channel:   *endChannel - 1,
			LittleEnd: *endLE,
			IDMap:     idMap,
			Offset:    *offset,
		},
		Verbose:     *verbose,
		List:        *list,
		MonitorAddr: *monitorAddr,
		TUI:         *tuiFlag,
		MonitorMDNS: *monitorMDNS,
	}
	return cfg, nil
}

// resolveXmmsPath applies the documented fallback order: explicit flag,
// then $XMMS_PATH, then a .env file (if present), then empty (library
// default).
func resolveXmmsPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("XMMS_PATH"); v != "" {
		return v
	}
	_ = godotenv.Load()
	return os.Getenv("XMMS_PATH")
}

func parseIDMap(entries []string) (notifier.IDMap, error) {
	m := notifier.IDMap{}
	for _, e := range entries {
		parts := strings.SplitN(e, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed -map entry %q, want K:V", e)
		}
		k, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("malformed -map key %q: %v", parts[0], err)
		}
		v, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("malformed -map value %q: %v", parts[1], err)
		}
		m[k] = v
	}
	return m, nil
}

// multiFlag accumulates repeatable flag occurrences.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

// expandResponseFiles replaces any "@path" token with the whitespace-split
// contents of path, recursively.
func expandResponseFiles(argv []string) ([]string, error) {
	out := make([]string, 0, len(argv))
	for _, arg := range argv {
		if !strings.HasPrefix(arg, "@") {
			out = append(out, arg)
			continue
		}
		path := arg[1:]
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open response file %s: %w", path, err)
		}
		tokens, err := readTokens(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		nested, err := expandResponseFiles(tokens)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

func readTokens(f *os.File) ([]string, error) {
	var tokens []string
	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		tokens = append(tokens, scanner.Text())
	}
	return tokens, scanner.Err()
}
