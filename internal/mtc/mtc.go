// ABOUTME: MIDI Timecode quarter-frame and full-frame (SysEx) message encoding
// ABOUTME: Pure encoding helpers with no knowledge of scheduling or time
package mtc

// FrameRate describes one of the four standard MTC frame rates and its
// 2-bit rate code (bits 5-6 of the hour byte, per the MTC spec).
type FrameRate struct {
	Name     string
	FPS      int // frames per second; 30 for 29.97 (ntscd)
	RateBits byte
}

var (
	Film  = FrameRate{Name: "film", FPS: 24, RateBits: 0x0}
	PAL   = FrameRate{Name: "pal", FPS: 25, RateBits: 0x1}
	NTSCD = FrameRate{Name: "ntscd", FPS: 30, RateBits: 0x2} // drop-frame semantics unimplemented, see Open Question
	NTSC  = FrameRate{Name: "ntsc", FPS: 30, RateBits: 0x3}
)

// RateByName resolves one of the four config-facing frame rate names.
func RateByName(name string) (FrameRate, bool) {
	switch name {
	case "film":
		return Film, true
	case "pal":
		return PAL, true
	case "ntscd":
		return NTSCD, true
	case "ntsc":
		return NTSC, true
	default:
		return FrameRate{}, false
	}
}

// BCD is a frame index split into hour/minute/second/frame, with the rate
// code folded into the high bits of Hour exactly as the wire format wants.
type BCD struct {
	Hour   byte // bits 0-4: hour 0..23; bits 5-6: rate code
	Minute byte
	Second byte
	Frame  byte
}

// Split decomposes an absolute frame index into hour/minute/second/frame
// for the given rate.
func Split(frameIndex int64, rate FrameRate) BCD {
	fps := int64(rate.FPS)
	frame := frameIndex % fps
	totalSeconds := frameIndex / fps
	second := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minute := totalMinutes % 60
	hour := (totalMinutes / 60) % 24

	return BCD{
		Hour:   byte(hour) | (rate.RateBits << 5),
		Minute: byte(minute),
		Second: byte(second),
		Frame:  byte(frame),
	}
}

// FullFrame builds the MTC full-frame SysEx message for an absolute frame
// index: F0 7F 7F 01 01 hh mm ss ff F7.
func FullFrame(frameIndex int64, rate FrameRate) []byte {
	b := Split(frameIndex, rate)
	return []byte{0xF0, 0x7F, 0x7F, 0x01, 0x01, b.Hour, b.Minute, b.Second, b.Frame, 0xF7}
}

// QuarterFrames builds the eight quarter-frame short messages (status byte
// 0xF1) that together encode the timecode for frameIndex. Piece i carries 4
// bits of the BCD payload; piece 7's top nibble additionally carries the
// rate code.
func QuarterFrames(frameIndex int64, rate FrameRate) [8]byte {
	b := Split(frameIndex, rate)

	var pieces [8]byte
	pieces[0] = 0x00 | (b.Frame & 0x0F)
	pieces[1] = 0x10 | (b.Frame >> 4)
	pieces[2] = 0x20 | (b.Second & 0x0F)
	pieces[3] = 0x30 | (b.Second >> 4)
	pieces[4] = 0x40 | (b.Minute & 0x0F)
	pieces[5] = 0x50 | (b.Minute >> 4)
	pieces[6] = 0x60 | (b.Hour & 0x0F)
	pieces[7] = 0x70 | ((b.Hour>>4)&0x01 | (rate.RateBits << 1))
	return pieces
}

// QuarterFrameMessage packs one quarter-frame piece into the two-byte
// short message {0xF1, piece}.
func QuarterFrameMessage(piece byte) []byte {
	return []byte{0xF1, piece}
}
