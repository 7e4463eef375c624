package frame

import "github.com/twp-project/twp/twperr"

// ByteEvent is one (stream, data byte) event emitted while demultiplexing
// a frame.
type ByteEvent struct {
	Stream Stream
	Data   byte
	Offset int64
}

// ByteHandler is the extensibility point for frame demultiplexing: called
// with either a ByteEvent or an error, never both.
type ByteHandler func(ev ByteEvent, err *twperr.Error) error

// ParseFrame decodes one 16-byte frame (C3), honoring immediate and
// delayed ID transitions, and returns the stream ID in effect at the end
// of the frame (to seed the next call). baseOffset is the absolute
// stream offset of frame[0].
func ParseFrame(frame [FrameSize]byte, streamIn Stream, baseOffset int64, h ByteHandler) (Stream, error) {
	aux := frame[15]
	if aux&0x80 != 0 && frame[14]&0x01 != 0 {
		if err := h(ByteEvent{}, twperr.NewValue(twperr.KindInvalidAuxByte, twperr.SevError, baseOffset+15, uint64(aux))); err != nil {
			return streamIn, err
		}
		aux &= 0x7F
	}

	cur := streamIn
	var next Stream
	delayed := false

	for i := 0; i < 15; i++ {
		if i%2 == 0 {
			ab := (aux >> (i / 2)) & 1
			if frame[i]&1 == 1 {
				if frame[i] == 0xFF {
					if err := h(ByteEvent{}, twperr.NewValue(twperr.KindInvalidStreamId, twperr.SevError, baseOffset+int64(i), uint64(Reserved))); err != nil {
						return cur, err
					}
				}
				id := StreamID(frame[i] >> 1)
				if ab == 1 {
					next = Some(id)
					delayed = true
				} else {
					cur = Some(id)
				}
			} else {
				val := (frame[i] &^ byte(1)) | ab
				if err := h(ByteEvent{Stream: cur, Data: val, Offset: baseOffset + int64(i)}, nil); err != nil {
					return cur, err
				}
			}
		} else {
			if err := h(ByteEvent{Stream: cur, Data: frame[i], Offset: baseOffset + int64(i)}, nil); err != nil {
				return cur, err
			}
			if delayed {
				cur = next
				delayed = false
			}
		}
	}
	return cur, nil
}

// FrameParser carries the current stream ID across successive frames, so
// an ID change that is still pending at the end of one frame correctly
// seeds the next.
type FrameParser struct {
	cur Stream
}

// NewFrameParser starts a parser with the given initial stream ID (use
// NoStream if no ID has been established yet).
func NewFrameParser(initial Stream) *FrameParser {
	return &FrameParser{cur: initial}
}

// ParseFrame decodes one frame, updating the carried stream ID.
func (p *FrameParser) ParseFrame(frame [FrameSize]byte, baseOffset int64, h ByteHandler) error {
	next, err := ParseFrame(frame, p.cur, baseOffset, h)
	p.cur = next
	return err
}

// ParseFrames chunks data into 16-byte frames and decodes each in turn.
// A trailing partial chunk shorter than FrameSize is reported once as
// PartialFrame.
func (p *FrameParser) ParseFrames(data []byte, baseOffset int64, h ByteHandler) error {
	n := len(data) / FrameSize
	for i := 0; i < n; i++ {
		var f [FrameSize]byte
		copy(f[:], data[i*FrameSize:(i+1)*FrameSize])
		if err := p.ParseFrame(f, baseOffset+int64(i*FrameSize), h); err != nil {
			return err
		}
	}
	if rem := len(data) - n*FrameSize; rem > 0 {
		lastOffset := baseOffset + int64(n*FrameSize)
		if err := h(ByteEvent{}, twperr.NewValue(twperr.KindPartialFrame, twperr.SevWarning, lastOffset, uint64(rem))); err != nil {
			return err
		}
	}
	return nil
}

// Stream reports the stream ID currently in effect.
func (p *FrameParser) Stream() Stream {
	return p.cur
}
