package frame

import "github.com/twp-project/twp/twperr"

// EventKind discriminates the tagged-variant Layer events LayerParser
// produces: FrameSync, Padding, or a complete 16-byte Frame.
type EventKind int

const (
	EventFrameSync EventKind = iota
	EventPadding
	EventFrame
)

// Event is a single LayerParser output. Offset is valid for FrameSync and
// Padding; Bytes/ByteOffsets are valid for Frame.
type Event struct {
	Kind        EventKind
	Offset      int64
	Bytes       [FrameSize]byte
	ByteOffsets [FrameSize]int64
}

// Handler is the single extensibility point every decoder in this module
// uses: a function receiving either an event or an error (never both),
// returning an error to halt processing or nil to continue. Returning
// twperr.Stop is the sanctioned way to request cooperative early
// termination.
type Handler func(ev Event, err *twperr.Error) error

// LayerParser is a streaming detector (C2) that converts a raw byte
// stream into Frame-Sync, Padding, and Frame events, tolerating
// arbitrarily chunked input.
type LayerParser struct {
	cfg ParserConfig

	buf  [FrameSize]byte
	offs [FrameSize]int64
	n    int

	ffOffsets []int64 // buffered, not-yet-classified 0xFF bytes, oldest first
	synced    bool
}

// NewLayerParser returns a parser with no state: unsynchronized, empty
// frame buffer.
func NewLayerParser(cfg ParserConfig) *LayerParser {
	return &LayerParser{cfg: cfg, ffOffsets: make([]int64, 0, 3)}
}

func (p *LayerParser) pushFrameByte(b byte, offset int64, h Handler) error {
	p.buf[p.n] = b
	p.offs[p.n] = offset
	p.n++
	if p.n == FrameSize {
		ev := Event{Kind: EventFrame}
		copy(ev.Bytes[:], p.buf[:])
		copy(ev.ByteOffsets[:], p.offs[:])
		p.n = 0
		return h(ev, nil)
	}
	return nil
}

// ProcessByte feeds one byte at absolute offset into the state machine,
// invoking h for every event or error discovered.
func (p *LayerParser) ProcessByte(b byte, offset int64, h Handler) error {
	switch {
	case b == 0xFF && len(p.ffOffsets) < 3:
		p.ffOffsets = append(p.ffOffsets, offset)
		return nil

	case b == 0xFF && len(p.ffOffsets) == 3:
		oldest := p.ffOffsets[0]
		p.ffOffsets = append(p.ffOffsets[:0], p.ffOffsets[1], p.ffOffsets[2], offset)
		return p.pushFrameByte(0xFF, oldest, h)

	case b == 0x7F && len(p.ffOffsets) == 3:
		syncOffset := offset - 3
		p.ffOffsets = p.ffOffsets[:0]
		if p.n > 0 {
			if err := h(Event{}, twperr.New(twperr.KindInvalidFrames, twperr.SevError, offset)); err != nil {
				return err
			}
			p.n = 0
		}
		p.synced = true
		return h(Event{Kind: EventFrameSync, Offset: syncOffset}, nil)

	case p.cfg.PaddingEnabled && b == 0x7F && p.synced && len(p.ffOffsets) >= 1 &&
		(p.n+len(p.ffOffsets)+1)%2 == 0:
		if len(p.ffOffsets) == 2 {
			if err := p.pushFrameByte(0xFF, p.ffOffsets[0], h); err != nil {
				return err
			}
		}
		p.ffOffsets = p.ffOffsets[:0]
		return h(Event{Kind: EventPadding, Offset: offset - 1}, nil)

	case p.synced:
		for _, o := range p.ffOffsets {
			if err := p.pushFrameByte(0xFF, o, h); err != nil {
				return err
			}
		}
		p.ffOffsets = p.ffOffsets[:0]
		return p.pushFrameByte(b, offset, h)

	default:
		p.ffOffsets = p.ffOffsets[:0]
		return nil
	}
}

// ProcessBytes feeds a chunk of bytes whose first byte is at baseOffset.
// Input may be chunked arbitrarily across successive calls.
func (p *LayerParser) ProcessBytes(data []byte, baseOffset int64, h Handler) error {
	for i, b := range data {
		if err := p.ProcessByte(b, baseOffset+int64(i), h); err != nil {
			return err
		}
	}
	return nil
}

// Finish flushes trailing state: any buffered 0xFF bytes awaiting
// classification as AUX vs. frame-sync are emitted as frame bytes
// (best-effort), and a non-empty partial frame is reported as
// PartialFrame. Must be called once at end-of-input.
func (p *LayerParser) Finish(h Handler) error {
	pending := p.ffOffsets
	p.ffOffsets = p.ffOffsets[:0]
	for _, o := range pending {
		if err := p.pushFrameByte(0xFF, o, h); err != nil {
			return err
		}
	}
	if p.n > 0 {
		size := p.n
		lastOffset := p.offs[p.n-1]
		p.n = 0
		if err := h(Event{}, twperr.NewValue(twperr.KindPartialFrame, twperr.SevWarning, lastOffset, uint64(size))); err != nil {
			return err
		}
	}
	return nil
}
