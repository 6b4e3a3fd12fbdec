// ABOUTME: Linear player-clock-to-wall-clock extrapolation
// ABOUTME: Maintains the affine map ltime = (dL*xtime + dX/2)/dX + n in integer milliseconds
package extrapolate

import "mtcbridge/internal/bridgeerr"

// Model holds the extrapolation parameters described in the timecode
// scheduler: a slope dL/dX and an intercept n, all integer milliseconds.
// The zero value is not usable; construct with New.
type Model struct {
	dL int64
	dX int64
	n  int64
}

// New creates a model anchored at the given wall-clock time with a 1:1
// slope, matching the scheduler's startup defaults (dL = dX = 1, n = now).
func New(nowMs int64) *Model {
	return &Model{dL: 1, dX: 1, n: nowMs}
}

// UpdateSlope recomputes dL/dX from two time pairs (player-clock-ordered,
// t1 before t2) and re-anchors the intercept from t2. Both pairs must be
// valid and t2.Xtime must exceed t1.Xtime; otherwise it returns an
// InvariantViolation and leaves the model (slope and intercept) unchanged.
func (m *Model) UpdateSlope(t1Xtime, t1Ltime int64, t1Valid bool, t2Xtime, t2Ltime int64, t2Valid bool) error {
	if !t1Valid || !t2Valid {
		return bridgeerr.NewInvariantViolation("invalid time pair in extrapolation update")
	}
	if t2Xtime <= t1Xtime {
		return bridgeerr.NewInvariantViolation("non-increasing xtime: %d <= %d", t2Xtime, t1Xtime)
	}

	dL := t2Ltime - t1Ltime
	dX := t2Xtime - t1Xtime
	if dX <= 0 {
		return bridgeerr.NewInvariantViolation("dX <= 0 after subtraction")
	}

	m.dL = dL
	m.dX = dX
	m.updateIntercept(t2Xtime, t2Ltime)
	return nil
}

// UpdateIntercept re-anchors n from a single (xtime, ltime) observation
// without touching the slope — used after a pause/resume, where the
// player-clock was frozen but wall-clock kept advancing.
func (m *Model) UpdateIntercept(xtime, ltime int64) {
	m.updateIntercept(xtime, ltime)
}

func (m *Model) updateIntercept(xtime, ltime int64) {
	m.n = ltime - roundDiv(m.dL*xtime, m.dX)
}

// At extrapolates the wall-clock time at which xtime (player-clock
// milliseconds) will occur.
func (m *Model) At(xtime int64) int64 {
	return m.n + roundDiv(m.dL*xtime, m.dX)
}

// FrameAt returns the MTC frame index (floor) at the given player-clock
// position for the given frame rate.
func FrameAt(xtime int64, fps int) int64 {
	return (xtime * int64(fps)) / 1000
}

// roundDiv computes (num + den/2) / den, the round-half-up trick used
// throughout the extrapolation math. den must be positive.
func roundDiv(num, den int64) int64 {
	return (num + den/2) / den
}
