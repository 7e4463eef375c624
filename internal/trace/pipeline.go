// Package trace wires the frame and stp decoders together into the single
// pipeline the CLI drives: raw bytes in, per-stream STP packets (and every
// diagnostic raised along the way) out. Individual decoders stay free of
// logging; the pipeline is where a Logger gets attached to the handler
// chain, following the teacher library's DecodeTree pattern of a small
// struct that owns and sequences a fixed set of stages.
package trace

import (
	"io"

	"github.com/twp-project/twp/frame"
	"github.com/twp-project/twp/stp"
	"github.com/twp-project/twp/twperr"
	"github.com/twp-project/twp/twplog"
)

// StreamEvent is one decoded STP packet (or a stream-level demux error)
// attributed to the stream it arrived on.
type StreamEvent struct {
	Stream frame.Stream
	Packet *stp.Packet
	Err    *twperr.Error
}

// StreamHandler receives every StreamEvent the pipeline produces. Returning
// twperr.Stop halts processing of the remaining input.
type StreamHandler func(StreamEvent) error

// Pipeline assembles the layer parser, frame parser, and one StpDecoder per
// observed stream ID into a single byte-stream-in, packet-stream-out
// component (what the CLI's packets subcommand drives; the streams
// subcommand uses the frame parsers directly).
type Pipeline struct {
	log twplog.Logger

	layer    *frame.LayerParser
	frames   *frame.FrameParser
	decCfg   stp.DecoderConfig
	decoders map[frame.Stream]*stp.StpDecoder

	bail bool // stop at the first error instead of continuing past it
}

// NewPipeline returns a pipeline using parserCfg for frame-layer detection
// and decCfg to seed every per-stream StpDecoder it creates on demand.
// log may be twplog.NewNoOpLogger() to silence diagnostics.
func NewPipeline(parserCfg frame.ParserConfig, decCfg stp.DecoderConfig, log twplog.Logger) *Pipeline {
	return &Pipeline{
		log:      log,
		layer:    frame.NewLayerParser(parserCfg),
		frames:   frame.NewFrameParser(frame.NoStream),
		decCfg:   decCfg,
		decoders: make(map[frame.Stream]*stp.StpDecoder),
	}
}

// SetBail controls whether the pipeline stops at the first reported error
// (mirroring the CLI's --bail flag) instead of logging it and continuing.
func (p *Pipeline) SetBail(bail bool) { p.bail = bail }

func (p *Pipeline) decoderFor(s frame.Stream) *stp.StpDecoder {
	d, ok := p.decoders[s]
	if !ok {
		d = stp.NewStpDecoder(p.decCfg)
		p.decoders[s] = d
	}
	return d
}

// handleFrame demultiplexes one Frame event into per-stream nibbles, which
// are in turn decoded through that stream's StpDecoder.
func (p *Pipeline) handleFrame(ev frame.Event, h StreamHandler) error {
	return p.frames.ParseFrame(ev.Bytes, ev.ByteOffsets[0], func(be frame.ByteEvent, errR *twperr.Error) error {
		if errR != nil {
			p.log.Warning(errR.Error())
			if err := h(StreamEvent{Err: errR}); err != nil {
				return err
			}
			if p.bail {
				return twperr.Stop
			}
			return nil
		}

		dec := p.decoderFor(be.Stream)
		hi, lo := be.Data>>4, be.Data&0x0F
		for _, nibble := range [2]byte{lo, hi} {
			decErr := dec.DecodeNibble(nibble, func(pkt *stp.Packet, nErr *twperr.Error) error {
				if nErr != nil {
					p.log.Warning(nErr.Error())
					if err := h(StreamEvent{Stream: be.Stream, Err: nErr}); err != nil {
						return err
					}
					if p.bail {
						return twperr.Stop
					}
					return nil
				}
				return h(StreamEvent{Stream: be.Stream, Packet: pkt})
			})
			if decErr != nil {
				return decErr
			}
		}
		return nil
	})
}

// ProcessBytes feeds a chunk of raw input (at absolute offset baseOffset)
// through the full pipeline. Input may be chunked arbitrarily across
// successive calls.
func (p *Pipeline) ProcessBytes(data []byte, baseOffset int64, h StreamHandler) error {
	return p.layer.ProcessBytes(data, baseOffset, func(ev frame.Event, errR *twperr.Error) error {
		if errR != nil {
			p.log.Warning(errR.Error())
			if err := h(StreamEvent{Err: errR}); err != nil {
				return err
			}
			if p.bail {
				return twperr.Stop
			}
			return nil
		}
		if ev.Kind != frame.EventFrame {
			return nil
		}
		return p.handleFrame(ev, h)
	})
}

// Finish flushes the layer parser's trailing state. Must be called once at
// end-of-input.
func (p *Pipeline) Finish(h StreamHandler) error {
	return p.layer.Finish(func(ev frame.Event, errR *twperr.Error) error {
		if errR == nil {
			return nil
		}
		p.log.Warning(errR.Error())
		return h(StreamEvent{Err: errR})
	})
}

// Run drains r to completion through the pipeline, reading in fixed-size
// chunks so arbitrarily large input never needs to be buffered whole.
func Run(r io.Reader, parserCfg frame.ParserConfig, decCfg stp.DecoderConfig, log twplog.Logger, bail bool, h StreamHandler) error {
	p := NewPipeline(parserCfg, decCfg, log)
	p.SetBail(bail)
	buf := make([]byte, 64*1024)
	var offset int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if perr := p.ProcessBytes(buf[:n], offset, h); perr != nil {
				if twperr.IsStop(perr) {
					return nil
				}
				return perr
			}
			offset += int64(n)
		}
		if err == io.EOF {
			return p.Finish(h)
		}
		if err != nil {
			return err
		}
	}
}
