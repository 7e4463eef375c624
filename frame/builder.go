package frame

import (
	"github.com/twp-project/twp/twperr"
)

// FrameSize is the size in bytes of one TWP frame: 15 data/ID bytes plus
// one trailing AUX byte.
const FrameSize = 16

type lastOpKind int

const (
	lastOpNone lastOpKind = iota
	lastOpData
	lastOpID
)

type lastOp struct {
	kind lastOpKind
	data byte
}

// FrameBuilder packs (id, data) operations into a sequence of well-formed
// 16-byte frames (C1). It tracks a write offset measured in frame
// positions and transparently skips the AUX byte at position 15, which it
// maintains itself as data and ID bytes are written.
type FrameBuilder struct {
	frames []byte
	offset int
	last   lastOp
}

// NewFrameBuilder returns an empty builder with room pre-reserved for
// capacityFrames frames.
func NewFrameBuilder(capacityFrames int) *FrameBuilder {
	return &FrameBuilder{
		frames: make([]byte, 0, capacityFrames*FrameSize),
	}
}

func (b *FrameBuilder) checkFrame() {
	if b.offset == len(b.frames) {
		b.frames = append(b.frames, make([]byte, FrameSize)...)
	}
}

// incrementOffset advances the write offset, skipping the AUX byte.
func (b *FrameBuilder) incrementOffset() {
	if b.offset%FrameSize == 14 {
		b.offset += 2
	} else {
		b.offset++
	}
}

func setStreamData(frames []byte, offset int, value byte) error {
	if offset%FrameSize == 15 || offset >= len(frames) {
		return twperr.NewValue(twperr.KindInvalidStreamId, twperr.SevError, int64(offset), uint64(value))
	}
	if offset%2 == 0 {
		auxOffset := offset - offset%FrameSize + 15
		frames[offset] = value & 0xFE
		mask := byte(1) << ((offset % FrameSize) / 2)
		if value&0x01 == 0 {
			frames[auxOffset] &^= mask
		} else {
			frames[auxOffset] |= mask
		}
	} else {
		frames[offset] = value
	}
	return nil
}

func setStreamID(frames []byte, offset int, id StreamID, immediate bool) error {
	if offset%2 != 0 || offset >= len(frames) {
		return twperr.NewValue(twperr.KindInvalidStreamId, twperr.SevError, int64(offset), uint64(id))
	}
	if uint8(id) >= uint8(Reserved) {
		return twperr.NewValue(twperr.KindInvalidStreamId, twperr.SevError, int64(offset), uint64(id))
	}
	if !immediate && offset%FrameSize == 14 {
		return twperr.NewValue(twperr.KindInvalidStreamId, twperr.SevError, int64(offset), uint64(id))
	}

	auxOffset := (offset/FrameSize)*FrameSize + 15
	frames[offset] = byte(id)<<1 | 0x01

	mask := byte(1) << ((offset % FrameSize) / 2)
	if immediate {
		frames[auxOffset] &^= mask
	} else {
		frames[auxOffset] |= mask
	}
	return nil
}

// SetData writes value at the current position. On an even position this
// masks the LSB into the AUX byte per the frame encoding rule.
func (b *FrameBuilder) SetData(value byte) error {
	b.checkFrame()
	if err := setStreamData(b.frames, b.offset, value); err != nil {
		return err
	}
	b.incrementOffset()
	b.last = lastOp{kind: lastOpData, data: value}
	return nil
}

func (b *FrameBuilder) setIDDirect(id StreamID, immediate bool) error {
	b.checkFrame()
	if err := setStreamID(b.frames, b.offset, id, immediate); err != nil {
		return err
	}
	b.incrementOffset()
	b.last = lastOp{kind: lastOpID}
	return nil
}

// ImmediateID writes id as an immediate ID change. Must land on an even
// position (0,2,...,14); unlike a delayed change, position 14 is legal.
func (b *FrameBuilder) ImmediateID(id StreamID) error {
	return b.setIDDirect(id, true)
}

// DelayedID writes id as a delayed ID change. Fails at position 14, where
// a delayed change is ill-formed.
func (b *FrameBuilder) DelayedID(id StreamID) error {
	return b.setIDDirect(id, false)
}

// SetID is the high-level ID operation: on an even position it writes an
// immediate ID; on an odd position it rewrites the previous even byte as a
// delayed ID and re-emits the buffered data byte at the following odd
// position. It fails when the previous operation wrote an ID; that error,
// like the builder's other errors, is of kind KindInvalidStreamId (there
// is no separate missing-data kind).
func (b *FrameBuilder) SetID(id StreamID) error {
	if b.last.kind == lastOpID {
		return twperr.New(twperr.KindInvalidStreamId, twperr.SevError, int64(b.offset))
	}

	if b.offset%2 == 0 {
		return b.setIDDirect(id, true)
	}

	b.offset--
	if b.last.kind != lastOpData {
		return twperr.New(twperr.KindInvalidStreamId, twperr.SevError, int64(b.offset))
	}
	data := b.last.data
	if err := b.setIDDirect(id, false); err != nil {
		return err
	}
	if err := b.SetData(data); err != nil {
		return err
	}
	b.last = lastOp{kind: lastOpID}
	return nil
}

// DataSpanWith calls f span times, writing each result via SetData.
func (b *FrameBuilder) DataSpanWith(span int, f func() byte) error {
	for i := 0; i < span; i++ {
		if err := b.SetData(f()); err != nil {
			return err
		}
	}
	return nil
}

// DataSpan writes the same byte value span times.
func (b *FrameBuilder) DataSpan(span int, value byte) error {
	return b.DataSpanWith(span, func() byte { return value })
}

// Build returns the accumulated frame bytes: a whole multiple of
// FrameSize, plus four bytes for each Frame-Sync spliced in by
// InsertFrameSync.
func (b *FrameBuilder) Build() []byte {
	return b.frames
}

// fsync is the literal Frame-Sync (T2) byte sequence.
var fsync = [4]byte{0xFF, 0xFF, 0xFF, 0x7F}

// InsertFrameSync splices the literal Frame-Sync sequence into the
// builder's buffer at offset, ahead of whatever has already been written
// there.
func (b *FrameBuilder) InsertFrameSync(offset int) error {
	if offset > len(b.frames) {
		return twperr.New(twperr.KindInvalidStreamId, twperr.SevError, int64(offset))
	}
	out := make([]byte, 0, len(b.frames)+4)
	out = append(out, b.frames[:offset]...)
	out = append(out, fsync[:]...)
	out = append(out, b.frames[offset:]...)
	b.frames = out
	if offset <= b.offset {
		b.offset += 4
	}
	return nil
}
