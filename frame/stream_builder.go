package frame

import (
	"io"

	"github.com/twp-project/twp/twperr"
)

type evenSlot struct {
	valid   bool
	dataRaw byte
}

// StreamBuilder is the streaming inverse of FrameParser+LayerParser (C4):
// it accepts (id, data) and produces well-formed 16-byte frames written to
// a sink as soon as each frame completes. It buffers at most one even-slot
// byte at a time, which lets a later ID() request retroactively turn that
// buffered byte into a delayed ID byte before anything actually reaches
// the sink.
type StreamBuilder struct {
	w io.Writer

	pos     int // 0..14; odd iff evenBuf is the buffered first half of a pair
	auxAcc  byte
	evenBuf evenSlot

	pendingID Stream // queued by ID(), resolved when the next data byte arrives
	lastID    Stream // most recently requested ID, restored by PadFrame

	written int64
}

// NewStreamBuilder returns a builder that writes completed frames to w.
func NewStreamBuilder(w io.Writer) *StreamBuilder {
	return &StreamBuilder{w: w}
}

// Written reports the total number of bytes written to the sink so far.
func (sb *StreamBuilder) Written() int64 { return sb.written }

func (sb *StreamBuilder) writeByteToSink(b byte) error {
	if _, err := sb.w.Write([]byte{b}); err != nil {
		return err
	}
	sb.written++
	return nil
}

func (sb *StreamBuilder) setAuxBit(index int, bit byte) {
	mask := byte(1) << uint(index)
	if bit&1 != 0 {
		sb.auxAcc |= mask
	} else {
		sb.auxAcc &^= mask
	}
}

func (sb *StreamBuilder) flushAuxAndCloseFrame() error {
	if err := sb.writeByteToSink(sb.auxAcc); err != nil {
		return err
	}
	sb.auxAcc = 0
	sb.pos = 0
	return nil
}

// ID queues a stream ID change. It never writes immediately; the actual
// placement (immediate or delayed) is decided when the next data byte
// arrives.
func (sb *StreamBuilder) ID(id StreamID) error {
	if uint8(id) >= uint8(Reserved) {
		return twperr.NewValue(twperr.KindInvalidStreamId, twperr.SevError, sb.written, uint64(id))
	}
	sb.pendingID = Some(id)
	sb.lastID = Some(id)
	return nil
}

// resolvePendingID flushes a queued ID request, given that val is the data
// byte concurrently arriving from Data/IDData. Reports consumed=true when
// val was fully written as part of the flush (the immediate, non-boundary
// case); otherwise val still needs placing by the caller.
func (sb *StreamBuilder) resolvePendingID(val byte) (consumed bool, err error) {
	id, ok := sb.pendingID.ID()
	if !ok {
		return false, nil
	}
	sb.pendingID = NoStream
	idByte := byte(id)<<1 | 1

	if sb.pos == 14 {
		if err := sb.writeByteToSink(idByte); err != nil {
			return false, err
		}
		sb.setAuxBit(7, 0)
		if err := sb.flushAuxAndCloseFrame(); err != nil {
			return false, err
		}
		return false, nil
	}

	if sb.pos%2 == 0 {
		if err := sb.writeByteToSink(idByte); err != nil {
			return false, err
		}
		if err := sb.writeByteToSink(val); err != nil {
			return false, err
		}
		sb.setAuxBit(sb.pos/2, 0)
		sb.pos += 2
		return true, nil
	}

	// Odd position: evenBuf holds the byte buffered before this ID request
	// arrived. Swap that slot to hold the (delayed) ID byte and write the
	// buffered data out as its odd partner, unchanged.
	d := sb.evenBuf.dataRaw
	if err := sb.writeByteToSink(idByte); err != nil {
		return false, err
	}
	sb.setAuxBit((sb.pos-1)/2, 1)
	if err := sb.writeByteToSink(d); err != nil {
		return false, err
	}
	sb.evenBuf.valid = false
	sb.pos++
	return false, nil
}

// placeDataByte writes val as an ordinary data byte at the current
// position, with no pending ID in play.
func (sb *StreamBuilder) placeDataByte(val byte) error {
	if sb.pos == 14 {
		dataByte := val & 0xFE
		auxBit := val & 0x01
		if err := sb.writeByteToSink(dataByte); err != nil {
			return err
		}
		sb.setAuxBit(7, auxBit)
		return sb.flushAuxAndCloseFrame()
	}
	if sb.pos%2 == 0 {
		sb.evenBuf = evenSlot{valid: true, dataRaw: val}
		sb.pos++
		return nil
	}
	d := sb.evenBuf.dataRaw
	dataByte := d & 0xFE
	auxBit := d & 0x01
	if err := sb.writeByteToSink(dataByte); err != nil {
		return err
	}
	sb.setAuxBit((sb.pos-1)/2, auxBit)
	if err := sb.writeByteToSink(val); err != nil {
		return err
	}
	sb.evenBuf.valid = false
	sb.pos++
	return nil
}

func (sb *StreamBuilder) writeDataByte(val byte) error {
	consumed, err := sb.resolvePendingID(val)
	if err != nil {
		return err
	}
	if consumed {
		return nil
	}
	return sb.placeDataByte(val)
}

// Data writes a sequence of data bytes under whatever stream ID is
// currently in effect (or queued via ID).
func (sb *StreamBuilder) Data(data []byte) error {
	for _, b := range data {
		if err := sb.writeDataByte(b); err != nil {
			return err
		}
	}
	return nil
}

// IDData is a convenience combining ID and Data.
func (sb *StreamBuilder) IDData(id StreamID, data []byte) error {
	if err := sb.ID(id); err != nil {
		return err
	}
	return sb.Data(data)
}

// padOddSlot completes a dangling odd slot the same way ID()'s delayed
// path does, with Null as the new ID: the buffered even slot becomes a
// delayed Null ID byte and the buffered data byte is written unchanged as
// its odd partner, so that byte stays on its stream and everything after
// it in the frame is Null padding.
func (sb *StreamBuilder) padOddSlot() error {
	if sb.pos%2 != 1 {
		return nil
	}
	d := sb.evenBuf.dataRaw
	if err := sb.writeByteToSink(byte(Null)<<1 | 1); err != nil {
		return err
	}
	sb.setAuxBit((sb.pos-1)/2, 1)
	if err := sb.writeByteToSink(d); err != nil {
		return err
	}
	sb.evenBuf.valid = false
	sb.pos++
	return nil
}

// PadFrame completes a partially written frame by writing Null ID + zero
// data through position 14, then restores the previously active ID for
// subsequent frames. No-op when already aligned to a frame boundary (a
// queued ID then stays queued).
func (sb *StreamBuilder) PadFrame() error {
	if sb.pos == 0 {
		return nil
	}

	// A queued ID is always lastID, which is queued again below, so it is
	// not written into the padding.
	sb.pendingID = NoStream

	if sb.pos%2 == 1 {
		if err := sb.padOddSlot(); err != nil {
			return err
		}
	}

	for sb.pos > 0 && sb.pos < 14 {
		if err := sb.writeByteToSink(byte(Null)<<1 | 1); err != nil {
			return err
		}
		if err := sb.writeByteToSink(0); err != nil {
			return err
		}
		sb.setAuxBit(sb.pos/2, 0)
		sb.pos += 2
	}
	if sb.pos == 14 {
		if err := sb.writeByteToSink(byte(Null)<<1 | 1); err != nil {
			return err
		}
		sb.setAuxBit(7, 0)
		if err := sb.flushAuxAndCloseFrame(); err != nil {
			return err
		}
	}

	if id, ok := sb.lastID.ID(); ok {
		return sb.ID(id)
	}
	return nil
}

// Finish flushes any partially written frame (via PadFrame) so the sink
// always ends on a frame boundary.
func (sb *StreamBuilder) Finish() error {
	return sb.PadFrame()
}

// FrameSync writes the literal Frame-Sync byte sequence directly to the
// sink. This is a thin pass-through stub: the framing semantics of
// Frame-Sync (valid at any byte offset, realigning the following byte to
// a frame boundary) are a LayerParser concern on decode, not something
// StreamBuilder's position bookkeeping needs to model on encode.
func (sb *StreamBuilder) FrameSync() error {
	for _, b := range fsync {
		if err := sb.writeByteToSink(b); err != nil {
			return err
		}
	}
	return nil
}

// halfwordSyncBytes is the literal Padding (T1) byte sequence.
var halfwordSyncBytes = [2]byte{0xFF, 0x7F}

// HalfwordSync writes the literal Padding byte sequence directly to the
// sink, the FrameSync stub's halfword-granular counterpart.
func (sb *StreamBuilder) HalfwordSync() error {
	for _, b := range halfwordSyncBytes {
		if err := sb.writeByteToSink(b); err != nil {
			return err
		}
	}
	return nil
}
