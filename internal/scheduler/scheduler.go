// ABOUTME: Drives MIDI output from status snapshots: classifies transitions,
// ABOUTME: maintains extrapolation, enqueues timecode frames, emits song-boundary notifiers
package scheduler

import (
	"log"
	"time"

	"mtcbridge/internal/bridgeerr"
	"mtcbridge/internal/extrapolate"
	"mtcbridge/internal/mailbox"
	"mtcbridge/internal/midiout"
	"mtcbridge/internal/mtc"
	"mtcbridge/internal/notifier"
	"mtcbridge/internal/status"
)

// ScheduleHorizon is how far ahead of wall-clock frames are pre-queued.
const ScheduleHorizon = 150 * time.Millisecond

// Snapshot is a read-only view of the scheduler's visible state, published
// after each classified iteration to anyone subscribed via Monitor.
type Snapshot struct {
	State     status.PlaybackState
	SongID    int
	NextFrame int64
}

// TimecodeScheduler is the scheduler's main loop body: state classification,
// extrapolation, frame enqueueing and notifier dispatch.
type TimecodeScheduler struct {
	box    *mailbox.Mailbox
	out    midiout.Output
	rate   mtc.FrameRate
	begin  notifier.Notifier
	end    notifier.Notifier

	prev status.Snapshot
	curr status.Snapshot

	model      *extrapolate.Model
	nextFrame  int64
	nextSlot   int64
	validCount int

	monitors []chan Snapshot
}

// New creates a scheduler bound to box for input and out for MIDI output.
func New(box *mailbox.Mailbox, out midiout.Output, rate mtc.FrameRate, begin, end notifier.Notifier) *TimecodeScheduler {
	return &TimecodeScheduler{
		box:   box,
		out:   out,
		rate:  rate,
		begin: begin,
		end:   end,
		prev:  status.Zero,
		curr:  status.Zero,
		model: extrapolate.New(out.NowMs()),
	}
}

// Monitor returns a channel that receives a Snapshot after every classified
// iteration. Publication never blocks the scheduler loop: a full channel
// drops the update. The returned channel should be treated as read-only and
// is never closed.
func (s *TimecodeScheduler) Monitor() <-chan Snapshot {
	ch := make(chan Snapshot, 4)
	s.monitors = append(s.monitors, ch)
	return ch
}

// Run blocks forever, reading snapshots from the mailbox and driving MIDI
// output. It only returns if the caller's goroutine is torn down (process
// exit); there is no in-band cancellation per the concurrency model.
func (s *TimecodeScheduler) Run() {
	for {
		s.prev = s.curr
		s.curr = s.box.ReadBlocking()
		s.validCount++

		s.classify()
		s.publish()
	}
}

func (s *TimecodeScheduler) publish() {
	snap := Snapshot{State: s.curr.State, SongID: s.curr.SongID, NextFrame: s.nextFrame}
	for _, ch := range s.monitors {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *TimecodeScheduler) classify() {
	prevState, currState := s.prev.State, s.curr.State

	switch {
	case (prevState == status.Invalid) && (currState == status.Playing || currState == status.Paused):
		s.songStart()
		s.updateYIntercept()
		if currState == status.Playing {
			s.enqueueFrames()
		}

	case prevState == status.Playing && currState == status.Paused:
		// No MIDI output; extrapolation re-anchored on resume.

	case prevState == status.Paused && currState == status.Playing:
		s.updateYIntercept()

	case (prevState == status.Playing || prevState == status.Paused) && currState == status.Stopped:
		s.sendStopNotifier(s.prev.SongID)
		s.nextFrame = 0
		s.validCount = 0
		s.sendFullFrame(0)

	case prevState == status.Stopped && currState == status.Playing:
		s.songStart()
		s.updateYIntercept()
		s.enqueueFrames()
		s.validCount = 1

	case prevState == status.Playing && currState == status.Playing && s.curr.SongID == s.prev.SongID:
		s.handleSameSongPlaying()

	case prevState == status.Playing && currState == status.Playing && s.curr.SongID != s.prev.SongID:
		s.sendStopNotifier(s.prev.SongID)
		s.songStart()
		s.updateYIntercept()
	}
}

func (s *TimecodeScheduler) handleSameSongPlaying() {
	currFrame := s.frameAt(s.curr.TimePoint.Xtime)
	prevFrame := s.frameAt(s.prev.TimePoint.Xtime)

	if currFrame > s.nextFrame || currFrame < prevFrame {
		s.sendFullFrame(currFrame)
		s.nextFrame = currFrame
		s.updateYIntercept()
		s.validCount = 1
	}

	if s.validCount >= 2 {
		s.updateExtrapolation()
	}
	s.enqueueFrames()
}

func (s *TimecodeScheduler) songStart() {
	s.sendBeginNotifier(s.curr.SongID)
	s.nextFrame = s.frameAt(s.curr.TimePoint.Xtime)
	s.nextSlot = 0
	s.sendFullFrame(s.nextFrame)
}

func (s *TimecodeScheduler) updateExtrapolation() {
	t1, t2 := s.prev.TimePoint, s.curr.TimePoint
	if err := s.model.UpdateSlope(t1.Xtime, t1.Ltime, t1.Valid, t2.Xtime, t2.Ltime, t2.Valid); err != nil {
		logAbsorbed(err)
	}
}

func (s *TimecodeScheduler) updateYIntercept() {
	t := s.curr.TimePoint
	if !t.Valid {
		logAbsorbed(bridgeerr.NewInvariantViolation("update_y_intercept with invalid time pair"))
		return
	}
	s.model.UpdateIntercept(t.Xtime, t.Ltime)
}

func (s *TimecodeScheduler) frameAt(xtime int64) int64 {
	return extrapolate.FrameAt(xtime, s.rate.FPS)
}

// enqueueFrames is the hot loop: it pre-queues full groups of 8
// quarter-frame messages (two track frames each) until the next group's
// wall-clock time is more than ScheduleHorizon past now, then returns so
// the scheduler can suspend on the next mailbox read.
func (s *TimecodeScheduler) enqueueFrames() {
	fps := int64(s.rate.FPS)
	quarter := int64(1000) / fps / 4

	for {
		xtime := (s.nextFrame*1000 + fps/2) / fps
		deadline := s.model.At(xtime)
		if deadline-s.out.NowMs() > ScheduleHorizon.Milliseconds() {
			return
		}

		for s.model.At(xtime) < s.nextSlot {
			xtime++
		}

		pieces := mtc.QuarterFrames(s.nextFrame, s.rate)
		for i, piece := range pieces {
			ts := s.model.At(xtime + int64(i)*quarter)
			if err := s.out.WriteShort(ts, [3]byte{0xF1, piece, 0}); err != nil {
				logAbsorbed(err)
			}
		}

		s.nextFrame += 2
		s.nextSlot = s.model.At(xtime + 7*quarter)
	}
}

func (s *TimecodeScheduler) sendFullFrame(frameIndex int64) {
	ts := s.out.NowMs()
	if err := s.out.WriteSysEx(ts, mtc.FullFrame(frameIndex, s.rate)); err != nil {
		logAbsorbed(err)
	}
}

func (s *TimecodeScheduler) sendBeginNotifier(songID int) {
	msg := s.begin.Msg(songID)
	if msg == nil {
		return
	}
	if err := s.writeNotifier(msg); err != nil {
		logAbsorbed(err)
	}
}

func (s *TimecodeScheduler) sendStopNotifier(songID int) {
	msg := s.end.Msg(songID)
	if msg == nil {
		return
	}
	if err := s.writeNotifier(msg); err != nil {
		logAbsorbed(err)
	}
}

func (s *TimecodeScheduler) writeNotifier(msg []byte) error {
	var buf [3]byte
	copy(buf[:], msg)
	return s.out.WriteShort(s.out.NowMs(), buf)
}

func logAbsorbed(err error) {
	log.Printf("scheduler: %v", err)
}
