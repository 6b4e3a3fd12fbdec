// ABOUTME: Optional read-only taps of the scheduler's status snapshots
// ABOUTME: A websocket feed, an mDNS advertisement of it, and a terminal monitor; all off by default
package monitor

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/mdns"

	"mtcbridge/internal/scheduler"
)

// Hub fans a single scheduler Monitor channel out to any number of
// websocket subscribers.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan scheduler.Snapshot

	upgrader websocket.Upgrader
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]chan scheduler.Snapshot),
	}
}

// Run reads snapshots from src until ctx is cancelled, broadcasting each to
// every connected client. A slow client is dropped rather than allowed to
// block the fan-out.
func (h *Hub) Run(ctx context.Context, src <-chan scheduler.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-src:
			if !ok {
				return
			}
			h.broadcast(snap)
		}
	}
}

func (h *Hub) broadcast(snap scheduler.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- snap:
		default:
			delete(h.clients, conn)
			close(ch)
		}
	}
}

// ServeHTTP upgrades a request to a websocket and streams snapshots to it
// as JSON until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("monitor: upgrade failed: %v", err)
		return
	}

	ch := make(chan scheduler.Snapshot, 8)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for snap := range ch {
		if err := conn.WriteJSON(statusMessage(snap)); err != nil {
			return
		}
	}
}

type statusPayload struct {
	State     string `json:"state"`
	SongID    int    `json:"song_id"`
	NextFrame int64  `json:"next_frame"`
}

func statusMessage(snap scheduler.Snapshot) statusPayload {
	return statusPayload{
		State:     snap.State.String(),
		SongID:    snap.SongID,
		NextFrame: snap.NextFrame,
	}
}

// ServeAddr starts an HTTP server on addr serving the websocket feed at
// "/status". It returns once the server stops listening.
func ServeAddr(addr string, hub *Hub) error {
	mux := http.NewServeMux()
	mux.Handle("/status", hub)
	return http.ListenAndServe(addr, mux)
}

// Advertise announces the status feed over mDNS as
// "_mtcbridge-monitor._tcp" at the given port.
func Advertise(ctx context.Context, port int) error {
	ips, err := localIPs()
	if err != nil {
		return fmt.Errorf("local IPs: %w", err)
	}

	host, err := mdns.NewMDNSService("mtcbridge", "_mtcbridge-monitor._tcp", "", "", port, ips, nil)
	if err != nil {
		return fmt.Errorf("create mdns service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: host})
	if err != nil {
		return fmt.Errorf("start mdns server: %w", err)
	}

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.Printf("advertising monitor feed on port %d via mDNS", port)
	return nil
}

func localIPs() ([]net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
			ips = append(ips, ipNet.IP)
		}
	}
	return ips, nil
}
