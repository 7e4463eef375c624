package stp

import "github.com/twp-project/twp/twperr"

type decoderState int

const (
	stateUnsynced decoderState = iota
	stateOpCode
	stateVersion
	stateData
)

type tsState struct {
	active   bool
	tsType   TimestampType
	isLE     bool
	haveSize bool
	tsSz     int
	tsSpan   int
	ts       uint64
}

type dataState struct {
	active   bool
	opcode   OpCode
	isLE     bool
	hasTS    bool
	variable bool
	haveLen  bool
	dataSz   int
	dataSpan int
	data     uint64
	ts       tsState
}

// Handler is the single extensibility point StpDecoder uses: called with
// either a decoded Packet or an error, never both. Returning twperr.Stop
// cooperatively halts decoding.
type Handler func(pkt *Packet, err *twperr.Error) error

// StpDecoder is a streaming, nibble-granular decoder for one System Trace
// Protocol stream (C5). It is single-threaded and cooperative: every
// decoded unit is delivered synchronously to Handler before the next
// nibble is consumed.
type StpDecoder struct {
	cfg DecoderConfig

	state decoderState
	offset int64 // absolute nibble offset of the next nibble to consume
	fCount int   // consecutive 0xF nibbles buffered toward a possible ASYNC

	start     int64
	span      int
	opcodeAcc OpCode

	hasTsType bool
	tsType    TimestampType
	isLE      bool

	versionPhase       int // 0: reading the type/flag nibble, 1: first payload nibble, 2: second payload nibble
	versionByte        byte
	versionPendingType TimestampType

	data dataState
}

// NewStpDecoder returns a decoder starting Unsynced: no packets are
// reported until a valid ASYNC sequence is seen. When cfg.InitialTsType is
// set, the decoder instead starts synced, expecting an opcode, with that
// VERSION state already applied; the next ASYNC clears it as usual.
func NewStpDecoder(cfg DecoderConfig) *StpDecoder {
	d := &StpDecoder{state: stateUnsynced, cfg: cfg}
	if cfg.InitialTsType != nil {
		d.state = stateOpCode
		d.hasTsType = true
		d.tsType = *cfg.InitialTsType
		d.isLE = cfg.InitialIsLE
	}
	return d
}

// Offset reports the absolute nibble offset the decoder is positioned at.
func (d *StpDecoder) Offset() int64 { return d.offset }

// Synced reports whether the decoder has seen a valid ASYNC and is
// currently decoding packets (as opposed to discarding noise).
func (d *StpDecoder) Synced() bool { return d.state != stateUnsynced }

func (d *StpDecoder) resetPacketState() {
	d.state = stateOpCode
	d.span = 0
	d.opcodeAcc = 0
	d.data = dataState{}
	d.versionPhase = 0
}

func (d *StpDecoder) resetToUnsynced() {
	d.state = stateUnsynced
	d.span = 0
	d.opcodeAcc = 0
	d.data = dataState{}
	d.versionPhase = 0
}

// DecodeNibble feeds one 4-bit unit into the decoder.
func (d *StpDecoder) DecodeNibble(nibble byte, h Handler) error {
	nibble &= 0x0F

	if nibble == 0x0F {
		if d.fCount < 21 {
			d.fCount++
			d.offset++
			return nil
		}
		return d.doDecodeNibble(nibble, h)
	}

	if d.fCount == 21 {
		return d.handleAsync(nibble, h)
	}

	pending := d.fCount
	d.fCount = 0
	start := d.offset - int64(pending)
	d.offset = start
	for i := 0; i < pending; i++ {
		if err := d.doDecodeNibble(0x0F, h); err != nil {
			return err
		}
	}
	return d.doDecodeNibble(nibble, h)
}

// DecodeByte feeds one byte, low nibble first then high nibble, per the
// wire's nibble transmission order.
func (d *StpDecoder) DecodeByte(b byte, h Handler) error {
	low, high := splitByteNibbles(b)
	if err := d.DecodeNibble(low, h); err != nil {
		return err
	}
	return d.DecodeNibble(high, h)
}

// DecodeBytes feeds a sequence of bytes.
func (d *StpDecoder) DecodeBytes(data []byte, h Handler) error {
	for _, b := range data {
		if err := d.DecodeByte(b, h); err != nil {
			return err
		}
	}
	return nil
}

// DecodeNibbles feeds a sequence of already-split nibbles, each the low 4
// bits of its byte.
func (d *StpDecoder) DecodeNibbles(nibbles []byte, h Handler) error {
	for _, n := range nibbles {
		if err := d.DecodeNibble(n, h); err != nil {
			return err
		}
	}
	return nil
}

func (d *StpDecoder) handleAsync(nibble byte, h Handler) error {
	d.fCount = 0
	start := d.offset - 21

	if err := d.truncatedCheck(h); err != nil {
		return err
	}

	if nibble == 0x00 {
		d.hasTsType = false
		d.isLE = false
		d.resetPacketState()
		d.offset++
		return h(&Packet{Kind: PacketAsync, Start: start, Span: 22}, nil)
	}

	d.resetToUnsynced()
	errR := twperr.NewValue(twperr.KindInvalidAsync, twperr.SevError, start, uint64(nibble))
	d.offset++
	return h(nil, errR)
}

func (d *StpDecoder) truncatedCheck(h Handler) error {
	if d.state == stateUnsynced || d.span == 0 {
		return nil
	}
	errR := twperr.NewValue(twperr.KindTruncatedPacket, twperr.SevWarning, d.start, uint64(d.opcodeAcc))
	return h(nil, errR)
}

func (d *StpDecoder) doDecodeNibble(nibble byte, h Handler) error {
	if d.state == stateUnsynced {
		d.offset++
		return nil
	}
	if d.span == 0 {
		d.start = d.offset
	}
	d.span++

	var pkt *Packet
	var errR *twperr.Error
	switch d.state {
	case stateOpCode:
		pkt, errR = d.decodeOpcode(nibble)
	case stateVersion:
		pkt, errR = d.decodeVersion(nibble)
	case stateData:
		pkt, errR = d.decodeData(nibble)
	}

	var callErr error
	switch {
	case errR != nil:
		errR.Offset = d.start
		callErr = h(nil, errR)
		d.resetToUnsynced()
	case pkt != nil:
		pkt.Start = d.start
		pkt.Span = d.span
		callErr = h(pkt, nil)
		d.resetPacketState()
	}
	d.offset++
	return callErr
}

func (d *StpDecoder) decodeOpcode(nibble byte) (*Packet, *twperr.Error) {
	switch d.span {
	case 1:
		d.opcodeAcc = OpCode(nibble)
		return d.applyOpEntry(span1Table[nibble])
	case 2:
		d.opcodeAcc = 0xF0 | OpCode(nibble)
		return d.applyOpEntry(span2Table[nibble])
	case 3:
		d.opcodeAcc = 0xF00 | OpCode(nibble)
		return d.applyOpEntry(span3Entry(nibble))
	case 4:
		d.opcodeAcc = 0xF0F0 | OpCode(nibble)
		return d.applyOpEntry(span4Entry(nibble))
	}
	return nil, twperr.NewValue(twperr.KindInvalidOpCode, twperr.SevError, d.start, uint64(d.opcodeAcc))
}

func (d *StpDecoder) applyOpEntry(e opEntry) (*Packet, *twperr.Error) {
	switch e.action {
	case actContinue:
		return nil, nil

	case actEmitNull:
		return &Packet{Kind: PacketNull, Opcode: OpNull}, nil

	case actEmitFlag:
		return &Packet{Kind: PacketFlag, Opcode: OpFlag}, nil

	case actVersion:
		d.state = stateVersion
		d.versionPhase = 0
		return nil, nil

	case actData:
		if !d.hasTsType {
			return nil, twperr.New(twperr.KindMissingVersion, twperr.SevError, d.start)
		}
		d.state = stateData
		d.data = dataState{active: true, opcode: e.opcode, dataSz: e.dataSz, hasTS: e.hasTS, isLE: d.isLE}
		if e.dataSz == 0 {
			if e.hasTS {
				d.data.ts = tsState{active: true, tsType: d.tsType, isLE: d.isLE}
			} else {
				return d.finishData(), nil
			}
		}
		return nil, nil

	case actVariableData:
		if !d.hasTsType {
			return nil, twperr.New(twperr.KindMissingVersion, twperr.SevError, d.start)
		}
		d.state = stateData
		d.data = dataState{active: true, opcode: e.opcode, variable: true, hasTS: e.hasTS, isLE: d.isLE}
		return nil, nil

	case actInvalid:
		return nil, twperr.NewValue(twperr.KindInvalidOpCode, twperr.SevError, d.start, uint64(d.opcodeAcc))
	}
	return nil, nil
}

// decodeVersion implements the three-phase VERSION body that follows the
// span-3 VERSION opcode. Phase 0's nibble selects the timestamp type and,
// via its high bit, whether an STPv2-style two-nibble payload follows
// (phases 1 and 2); when it's clear, VERSION completes in a single nibble
// (STPv1 or a bare STPv2 marker with no LE flag).
func (d *StpDecoder) decodeVersion(nibble byte) (*Packet, *twperr.Error) {
	switch d.versionPhase {
	case 0:
		low3 := nibble & 0x7
		var tsType TimestampType
		switch low3 {
		case 0, 1:
			tsType = TSv1Legacy
		case 2:
			tsType = TSv2NatDelta
		case 3:
			tsType = TSv2Nat
		case 4:
			tsType = TSv2Gray
		default:
			return nil, twperr.NewValue(twperr.KindInvalidTimestampType, twperr.SevError, d.start, uint64(nibble))
		}

		if nibble&0x8 == 0 {
			d.hasTsType = true
			d.tsType = tsType
			d.isLE = false
			kind := VersionSTPv2_1
			if nibble == 0 {
				kind = VersionSTPv1
			}
			return &Packet{Kind: PacketVersion, Opcode: OpVersion, VersionKind: kind, TsType: tsType, IsLE: false}, nil
		}

		d.versionPendingType = tsType
		d.versionPhase = 1
		return nil, nil

	case 1:
		d.versionByte = nibble
		d.versionPhase = 2
		return nil, nil

	default: // phase 2
		payload := uint16(d.versionByte)<<4 | uint16(nibble)
		isLE := payload&0x80 == 0x80
		if payload&0x7F != 0x01 {
			return nil, twperr.NewValue(twperr.KindInvalidVersion, twperr.SevError, d.start, uint64(payload&0x7F))
		}
		d.hasTsType = true
		d.tsType = d.versionPendingType
		d.isLE = isLE
		return &Packet{Kind: PacketVersion, Opcode: OpVersion, VersionKind: VersionSTPv2_2, TsType: d.versionPendingType, IsLE: isLE}, nil
	}
}

func (d *StpDecoder) decodeData(nibble byte) (*Packet, *twperr.Error) {
	ds := &d.data

	if ds.ts.active {
		return d.decodeTimestamp(nibble)
	}

	if ds.variable && !ds.haveLen {
		ds.haveLen = true
		ds.dataSz = int(nibble) + 1
		return nil, nil
	}

	ds.data = ds.data<<4 | uint64(nibble)
	ds.dataSpan++
	if ds.dataSpan < ds.dataSz {
		return nil, nil
	}

	if ds.hasTS {
		ds.ts = tsState{active: true, tsType: d.tsType, isLE: d.isLE}
		return nil, nil
	}
	return d.finishData(), nil
}

func (d *StpDecoder) decodeTimestamp(nibble byte) (*Packet, *twperr.Error) {
	ts := &d.data.ts

	if ts.tsType == TSv1Legacy {
		ts.ts = ts.ts<<4 | uint64(nibble)
		ts.tsSpan++
		if ts.tsSpan < 2 {
			return nil, nil
		}
		return d.finishData(), nil
	}

	if !ts.haveSize {
		ts.haveSize = true
		switch {
		case nibble == 0x0:
			ts.tsSz = 0
			return d.finishData(), nil
		case nibble <= 0x0C:
			ts.tsSz = int(nibble)
		case nibble == 0x0D:
			ts.tsSz = 14
		case nibble == 0x0E:
			ts.tsSz = 16
		default:
			return nil, twperr.New(twperr.KindInvalidTimestampSize, twperr.SevError, d.start)
		}
		return nil, nil
	}

	ts.ts = ts.ts<<4 | uint64(nibble)
	ts.tsSpan++
	if ts.tsSpan < ts.tsSz {
		return nil, nil
	}
	return d.finishData(), nil
}

func (d *StpDecoder) finishData() *Packet {
	ds := d.data

	data := ds.data
	if ds.dataSz > 1 && ds.isLE {
		data = SwapNibbles(data, ds.dataSz)
	}

	var hasTS bool
	var tstamp Timestamp
	if ds.hasTS {
		hasTS = true
		tsSz := ds.ts.tsSz
		if ds.ts.tsType == TSv1Legacy {
			tsSz = 2
		}
		tsv := ds.ts.ts
		if tsSz > 1 && ds.ts.isLE {
			tsv = SwapNibbles(tsv, tsSz)
		}
		tstamp = Timestamp{Type: ds.ts.tsType, Length: tsSz, Value: tsv}
	}

	kind := opcodeKind[ds.opcode]
	pkt := &Packet{Kind: kind, Opcode: ds.opcode, HasTimestamp: hasTS, Timestamp: tstamp}
	switch kind {
	case PacketMaster:
		pkt.Master = uint16(data)
	case PacketChannel:
		pkt.Channel = uint16(data)
	case PacketError:
		pkt.ErrorData = uint8(data)
	case PacketFrequency:
		pkt.Frequency = data
	case PacketUser:
		pkt.Data = data
		pkt.UserLength = ds.dataSz
	default:
		pkt.Data = data
	}
	return pkt
}
