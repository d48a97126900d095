// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gdproto

// Framer splits a raw byte stream into candidate packets.
//
// The GD format has no length field and no end byte, so only types with a
// known size can be completed from the stream alone. Variable-length frames
// (set-thrusters, kill status) complete at MaxPacketSize or when the caller
// reports the end of a burst with Flush. Frames are not checksum-validated
// here; pass them to ParsePacket.
type Framer struct {
	state     int
	buffer    []byte
	want      int
	rawBuffer []byte // Bytes consumed since the last frame, including noise
}

// NewFramer creates a new stream framer
func NewFramer() *Framer {
	return &Framer{
		state:     stateSync,
		buffer:    make([]byte, 0, MaxPacketSize),
		rawBuffer: make([]byte, 0, MaxPacketSize*2),
	}
}

// Reset drops any partial frame and returns to marker search
func (f *Framer) Reset() {
	f.state = stateSync
	f.buffer = f.buffer[:0]
	f.want = 0
	f.rawBuffer = f.rawBuffer[:0]
}

// Raw returns the bytes consumed since the last completed frame
func (f *Framer) Raw() []byte {
	return f.rawBuffer
}

// Pending reports whether a partial frame is buffered
func (f *Framer) Pending() bool {
	return f.state != stateSync
}

// FeedByte processes a single byte through the framer state machine.
// Returns a complete frame, or nil if more bytes are needed.
func (f *Framer) FeedByte(b byte) []byte {
	f.rawBuffer = append(f.rawBuffer, b)

	switch f.state {
	case stateSync:
		if b == Marker0 {
			f.buffer = append(f.buffer[:0], b)
			f.state = stateMarker
		}
		return nil

	case stateMarker:
		switch b {
		case Marker1:
			f.buffer = append(f.buffer, b)
			f.state = stateType
		case Marker0:
			// "G G D": the second G may start the real marker
			f.buffer = append(f.buffer[:0], b)
		default:
			f.buffer = f.buffer[:0]
			f.state = stateSync
		}
		return nil

	case stateType:
		f.buffer = append(f.buffer, b)
		f.want = fixedLength(b)
		if f.want == 0 {
			f.want = MaxPacketSize
		}
		f.state = stateBody
		return nil

	case stateBody:
		f.buffer = append(f.buffer, b)
		if len(f.buffer) >= f.want {
			return f.complete()
		}
		return nil

	default:
		f.Reset()
		return nil
	}
}

// Feed processes a chunk of bytes and returns every frame completed by it.
func (f *Framer) Feed(data []byte) [][]byte {
	var frames [][]byte
	for _, b := range data {
		if frame := f.FeedByte(b); frame != nil {
			frames = append(frames, frame)
		}
	}
	return frames
}

// Flush completes a buffered variable-length frame at the end of a burst.
// Returns nil if nothing frame-like is buffered. Partial headers are dropped.
func (f *Framer) Flush() []byte {
	if f.state != stateBody || len(f.buffer) < MinPacketSize {
		f.state = stateSync
		f.buffer = f.buffer[:0]
		return nil
	}
	return f.complete()
}

func (f *Framer) complete() []byte {
	frame := make([]byte, len(f.buffer))
	copy(frame, f.buffer)
	f.state = stateSync
	f.buffer = f.buffer[:0]
	f.want = 0
	f.rawBuffer = f.rawBuffer[:0]
	return frame
}
