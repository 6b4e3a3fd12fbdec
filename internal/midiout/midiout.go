// ABOUTME: Collaborator interface the scheduler depends on for MIDI output
// ABOUTME: Concrete drivers (gomidi/rtmidi) live in subpackages; the scheduler only sees this
package midiout

// Port describes one MIDI port visible to a driver.
type Port struct {
	ID        int
	Name      string
	Interface string
	IsOutput  bool
}

// Output is a single opened MIDI output port. Writes are timestamped in
// monotonic milliseconds; it is the Output's responsibility to deliver the
// bytes at (or as close as practical after) that timestamp, since the
// scheduler pre-queues frames up to schedule_horizon into the future.
type Output interface {
	// NowMs returns the current time on the monotonic clock that
	// timestamps passed to WriteShort/WriteSysEx are measured against.
	NowMs() int64

	// WriteShort sends a 2- or 3-byte short MIDI message. msg[0] is always
	// the status byte; trailing zero bytes beyond the message's natural
	// length are ignored by the driver.
	WriteShort(timestampMs int64, msg [3]byte) error

	// WriteSysEx sends a complete SysEx message including the leading
	// 0xF0 and trailing 0xF7.
	WriteSysEx(timestampMs int64, data []byte) error

	// Close releases the port. Safe to call once.
	Close() error
}

// Driver enumerates and opens MIDI output ports.
type Driver interface {
	ListPorts() ([]Port, error)
	OpenOutput(port Port) (Output, error)
}
