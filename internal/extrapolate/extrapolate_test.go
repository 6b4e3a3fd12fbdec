// ABOUTME: Tests for the player-clock to wall-clock extrapolation model
package extrapolate

import "testing"

func TestUpdateSlopeAndExtrapolate(t *testing.T) {
	m := New(0)

	if err := m.UpdateSlope(1000, 10000, true, 2000, 11005, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// dL = 1005, dX = 1000, n = 11005 - round(1005*2000/1000) = 11005 - 2010 = 8995
	got := m.At(2500)
	want := int64(11508) // 8995 + round(1005*2500/1000) = 8995 + 2513 = 11508
	if got != want {
		t.Errorf("At(2500) = %d, want %d", got, want)
	}
}

func TestUpdateSlopeRejectsNonIncreasingXtime(t *testing.T) {
	m := New(0)
	if err := m.UpdateSlope(2000, 11005, true, 1000, 10000, true); err == nil {
		t.Error("expected an error for decreasing xtime")
	}
}

func TestUpdateSlopeRejectsInvalidPair(t *testing.T) {
	m := New(0)
	if err := m.UpdateSlope(1000, 10000, false, 2000, 11005, true); err == nil {
		t.Error("expected an error for an invalid time pair")
	}
}

func TestExtrapolateNonDecreasingOverMonotoneXtime(t *testing.T) {
	m := New(0)
	if err := m.UpdateSlope(0, 100000, true, 1000, 101000, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prev := m.At(0)
	for x := int64(1); x <= 10000; x += 37 {
		cur := m.At(x)
		if cur < prev {
			t.Fatalf("At(%d) = %d < previous %d: not non-decreasing", x, cur, prev)
		}
		prev = cur
	}
}

func TestUpdateInterceptReanchorsWithoutTouchingSlope(t *testing.T) {
	m := New(0)
	_ = m.UpdateSlope(0, 100000, true, 1000, 101000, true)

	before := m.dL
	m.UpdateIntercept(500, 103500)
	if m.dL != before {
		t.Errorf("UpdateIntercept changed the slope: %d -> %d", before, m.dL)
	}

	got := m.At(500)
	if got != 103500 {
		t.Errorf("At(500) after re-anchoring = %d, want 103500", got)
	}
}

func TestFrameAt(t *testing.T) {
	cases := []struct {
		xtime int64
		fps   int
		want  int64
	}{
		{1000, 25, 25},
		{999, 25, 24},
		{0, 25, 0},
	}
	for _, c := range cases {
		if got := FrameAt(c.xtime, c.fps); got != c.want {
			t.Errorf("FrameAt(%d, %d) = %d, want %d", c.xtime, c.fps, got, c.want)
		}
	}
}
