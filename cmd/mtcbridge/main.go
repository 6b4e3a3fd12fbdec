// ABOUTME: Entry point for the MIDI timecode bridge
// ABOUTME: Wires configuration, player client, observer, scheduler and MIDI output together
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"mtcbridge/internal/config"
	"mtcbridge/internal/mailbox"
	"mtcbridge/internal/midiout"
	"mtcbridge/internal/midiout/gomidi"
	"mtcbridge/internal/monitor"
	"mtcbridge/internal/observer"
	"mtcbridge/internal/playerclient/mpd"
	"mtcbridge/internal/scheduler"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.Verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}

	driver := gomidi.NewDriver()

	if cfg.List {
		if err := listPorts(driver); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		return
	}

	out, err := openOutput(driver, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer out.Close()

	network, address := splitXmmsPath(cfg.XmmsPath)
	client := mpd.New(network, address, "")
	box := mailbox.New()
	obs := observer.New(client, box, out.NowMs)
	sched := scheduler.New(box, out, cfg.Rate, cfg.Begin, cfg.End)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := startMonitors(ctx, cfg, sched); err != nil {
		log.Printf("monitor: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("shutdown signal received")
		cancel()
		out.Close()
		os.Exit(0)
	}()

	go sched.Run()

	if err := obs.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func listPorts(driver midiout.Driver) error {
	ports, err := driver.ListPorts()
	if err != nil {
		return err
	}
	for _, p := range ports {
		fmt.Printf("%d: %s\n", p.ID, p.Name)
	}
	return nil
}

func openOutput(driver midiout.Driver, cfg *config.Config) (midiout.Output, error) {
	ports, err := driver.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("list MIDI outputs: %w", err)
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("no MIDI output ports available")
	}

	port := ports[0]
	if cfg.HasDevice {
		found := false
		for _, p := range ports {
			if p.ID == cfg.Device {
				port = p
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("device %d not found", cfg.Device)
		}
	}

	return driver.OpenOutput(port)
}

// splitXmmsPath accepts "host:port" or an empty string, in which case MPD's
// conventional default is used.
func splitXmmsPath(path string) (network, address string) {
	if path == "" {
		return "tcp", "127.0.0.1:6600"
	}
	if strings.HasPrefix(path, "unix:") {
		return "unix", strings.TrimPrefix(path, "unix:")
	}
	if host, port, err := net.SplitHostPort(path); err == nil {
		return "tcp", net.JoinHostPort(host, port)
	}
	return "tcp", path
}

func startMonitors(ctx context.Context, cfg *config.Config, sched *scheduler.TimecodeScheduler) error {
	if cfg.MonitorAddr == "" && !cfg.TUI {
		return nil
	}

	snapshots := sched.Monitor()

	if cfg.MonitorAddr != "" {
		hub := monitor.NewHub()
		hubFeed := snapshots
		if cfg.TUI {
			// Split the feed: one copy to the hub, one to the TUI.
			hubFeed, snapshots = splitSnapshots(ctx, snapshots)
		}

		go hub.Run(ctx, hubFeed)
		go func() {
			if err := monitor.ServeAddr(cfg.MonitorAddr, hub); err != nil {
				log.Printf("monitor: websocket server stopped: %v", err)
			}
		}()

		if cfg.MonitorMDNS {
			_, portStr, err := net.SplitHostPort(cfg.MonitorAddr)
			if err == nil {
				var port int
				fmt.Sscanf(portStr, "%d", &port)
				if err := monitor.Advertise(ctx, port); err != nil {
					log.Printf("monitor: mdns advertise failed: %v", err)
				}
			}
		}
	}

	if cfg.TUI {
		p := monitor.NewTUI()
		go monitor.PumpTUI(p, snapshots)
		go func() {
			if _, err := p.Run(); err != nil {
				log.Printf("monitor: tui exited: %v", err)
			}
		}()
	}
	return nil
}

func splitSnapshots(ctx context.Context, src <-chan scheduler.Snapshot) (a, b chan scheduler.Snapshot) {
	a = make(chan scheduler.Snapshot, 4)
	b = make(chan scheduler.Snapshot, 4)
	go func() {
		defer close(a)
		defer close(b)
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-src:
				if !ok {
					return
				}
				select {
				case a <- snap:
				default:
				}
				select {
				case b <- snap:
				default:
				}
			}
		}
	}()
	return a, b
}
