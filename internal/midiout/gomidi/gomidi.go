// ABOUTME: MIDI output driver backed by gitlab.com/gomidi/midi/v2
// ABOUTME: Owns a delivery-timer goroutine since the underlying Send is immediate, not timestamped
package gomidi

import (
	"container/heap"
	"fmt"
	"log"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"mtcbridge/internal/bridgeerr"
	"mtcbridge/internal/midiout"
)

// Driver enumerates and opens ports via the rtmidi-backed gomidi driver.
type Driver struct{}

// NewDriver creates a gomidi-backed Driver.
func NewDriver() *Driver {
	return &Driver{}
}

// ListPorts implements midiout.Driver.
func (d *Driver) ListPorts() ([]midiout.Port, error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, fmt.Errorf("list MIDI outputs: %w", err)
	}

	ports := make([]midiout.Port, 0, len(outs))
	for _, out := range outs {
		ports = append(ports, midiout.Port{
			ID:       out.Number(),
			Name:     out.String(),
			IsOutput: true,
		})
	}
	return ports, nil
}

// OpenOutput implements midiout.Driver.
func (d *Driver) OpenOutput(port midiout.Port) (midiout.Output, error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, fmt.Errorf("list MIDI outputs: %w", err)
	}

	var sel drivers.Out
	for _, out := range outs {
		if out.Number() == port.ID {
			sel = out
			break
		}
	}
	if sel == nil {
		return nil, fmt.Errorf("output port %d not found", port.ID)
	}

	if err := sel.Open(); err != nil {
		return nil, bridgeerr.NewConnectError(fmt.Sprintf("open MIDI output %q", sel.String()), err)
	}

	o := &output{out: sel, start: time.Now(), wake: make(chan struct{}, 1), done: make(chan struct{})}
	go o.deliverLoop()
	return o, nil
}

// output is a single opened port plus its delivery-timer queue. gomidi's
// Send writes immediately; queued entries are released by deliverLoop once
// their deadline passes, which is how this adapter gives the underlying
// library the future-timestamp semantics the scheduler expects.
type output struct {
	out   drivers.Out
	start time.Time

	mu     sync.Mutex
	queue  pendingQueue
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

type pending struct {
	deadlineMs int64
	seq        uint64
	data       []byte
}

type pendingQueue []pending

func (q pendingQueue) Len() int { return len(q) }
func (q pendingQueue) Less(i, j int) bool {
	if q[i].deadlineMs != q[j].deadlineMs {
		return q[i].deadlineMs < q[j].deadlineMs
	}
	return q[i].seq < q[j].seq
}
func (q pendingQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *pendingQueue) Push(x interface{}) { *q = append(*q, x.(pending)) }
func (q *pendingQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func (o *output) NowMs() int64 {
	return time.Since(o.start).Milliseconds()
}

func (o *output) WriteShort(timestampMs int64, msg [3]byte) error {
	n := shortMessageLen(msg[0])
	return o.enqueue(timestampMs, msg[:n])
}

func (o *output) WriteSysEx(timestampMs int64, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	return o.enqueue(timestampMs, cp)
}

func (o *output) enqueue(timestampMs int64, data []byte) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return fmt.Errorf("output closed")
	}
	heap.Push(&o.queue, pending{deadlineMs: timestampMs, seq: o.nextSeq(), data: data})
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

var seqCounter uint64

func (o *output) nextSeq() uint64 {
	seqCounter++
	return seqCounter
}

// deliverLoop pops due entries and sends them immediately via the driver.
func (o *output) deliverLoop() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return
		}
		var wait time.Duration
		if o.queue.Len() == 0 {
			wait = time.Hour
		} else {
			deadline := o.queue[0].deadlineMs
			wait = time.Duration(deadline-o.NowMs()) * time.Millisecond
			if wait < 0 {
				wait = 0
			}
		}
		o.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-timer.C:
			o.drainDue()
		case <-o.wake:
			// re-evaluate the wait duration against the new head
		case <-o.done:
			return
		}
	}
}

func (o *output) drainDue() {
	now := o.NowMs()
	for {
		o.mu.Lock()
		if o.queue.Len() == 0 || o.queue[0].deadlineMs > now {
			o.mu.Unlock()
			return
		}
		item := heap.Pop(&o.queue).(pending)
		o.mu.Unlock()

		if err := o.out.Send(item.data); err != nil {
			log.Printf("midiout: %v", bridgeerr.NewTransientIOError("send MIDI message", err))
		}
	}
}

func (o *output) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.mu.Unlock()
	close(o.done)
	return o.out.Close()
}

func shortMessageLen(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 2
	case 0xF0:
		switch status {
		case 0xF1, 0xF3:
			return 2
		case 0xF6, 0xF8, 0xFA, 0xFB, 0xFC, 0xFE, 0xFF:
			return 1
		default:
			return 3
		}
	default:
		return 3
	}
}
