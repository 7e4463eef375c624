package stp

// opAction classifies what a table entry does once its nibble is seen.
type opAction int

const (
	actContinue     opAction = iota // not a complete opcode yet; advance to the next span
	actEmitNull                     // bare NULL: emits immediately, no VERSION required
	actEmitFlag                     // bare FLAG: emits immediately, no VERSION required
	actVersion                      // begin VERSION negotiation
	actData                         // fixed-size opcode; dataSz nibbles of payload follow
	actVariableData                 // USER/USER_TS; a length nibble precedes the payload
	actInvalid                      // not a defined opcode
)

type opEntry struct {
	action opAction
	opcode OpCode
	dataSz int // nibbles; meaningful only for actData
	hasTS  bool
}

// span1Table and span2Table are the dense per-nibble opcode dispatch
// tables for the first two opcode nibbles, built once at package init in
// the style of a jump table indexed by nibble value.
var span1Table [16]opEntry
var span2Table [16]opEntry

func init() {
	span1Table = [16]opEntry{
		0x0: {action: actEmitNull},
		0x1: {action: actData, opcode: OpM8, dataSz: 2},
		0x2: {action: actData, opcode: OpMERR, dataSz: 2},
		0x3: {action: actData, opcode: OpC8, dataSz: 2},
		0x4: {action: actData, opcode: OpD8, dataSz: 2},
		0x5: {action: actData, opcode: OpD16, dataSz: 4},
		0x6: {action: actData, opcode: OpD32, dataSz: 8},
		0x7: {action: actData, opcode: OpD64, dataSz: 16},
		0x8: {action: actData, opcode: OpD8MTS, dataSz: 2, hasTS: true},
		0x9: {action: actData, opcode: OpD16MTS, dataSz: 4, hasTS: true},
		0xA: {action: actData, opcode: OpD32MTS, dataSz: 8, hasTS: true},
		0xB: {action: actData, opcode: OpD64MTS, dataSz: 16, hasTS: true},
		0xC: {action: actData, opcode: OpD4, dataSz: 1},
		0xD: {action: actData, opcode: OpD4MTS, dataSz: 1, hasTS: true},
		0xE: {action: actData, opcode: OpFlagTS, dataSz: 0, hasTS: true},
		0xF: {action: actContinue},
	}
	span2Table = [16]opEntry{
		0x0: {action: actContinue},
		0x1: {action: actData, opcode: OpM16, dataSz: 4},
		0x2: {action: actData, opcode: OpGERR, dataSz: 2},
		0x3: {action: actData, opcode: OpC16, dataSz: 4},
		0x4: {action: actData, opcode: OpD8TS, dataSz: 2, hasTS: true},
		0x5: {action: actData, opcode: OpD16TS, dataSz: 4, hasTS: true},
		0x6: {action: actData, opcode: OpD32TS, dataSz: 8, hasTS: true},
		0x7: {action: actData, opcode: OpD64TS, dataSz: 16, hasTS: true},
		0x8: {action: actData, opcode: OpD8M, dataSz: 2},
		0x9: {action: actData, opcode: OpD16M, dataSz: 4},
		0xA: {action: actData, opcode: OpD32M, dataSz: 8},
		0xB: {action: actData, opcode: OpD64M, dataSz: 16},
		0xC: {action: actData, opcode: OpD4TS, dataSz: 1, hasTS: true},
		0xD: {action: actData, opcode: OpD4M, dataSz: 1},
		0xE: {action: actEmitFlag},
		0xF: {action: actInvalid},
	}
}

// span3Entry and span4Entry are sparse enough (a handful of defined nibbles
// out of sixteen) that a switch reads more clearly than a sixteen-slot
// table full of actInvalid.
func span3Entry(nibble byte) opEntry {
	switch nibble {
	case 0x0:
		return opEntry{action: actVersion}
	case 0x1:
		return opEntry{action: actData, opcode: OpNullTS, dataSz: 0, hasTS: true}
	case 0x2:
		return opEntry{action: actVariableData, opcode: OpUser}
	case 0x3:
		return opEntry{action: actVariableData, opcode: OpUserTS, hasTS: true}
	case 0x8:
		return opEntry{action: actData, opcode: OpFreq, dataSz: 8}
	case 0x9:
		return opEntry{action: actData, opcode: OpFreqTS, dataSz: 8, hasTS: true}
	case 0xF:
		return opEntry{action: actContinue}
	default:
		return opEntry{action: actInvalid}
	}
}

func span4Entry(nibble byte) opEntry {
	switch nibble {
	case 0x0:
		return opEntry{action: actData, opcode: OpFreq40, dataSz: 10}
	case 0x1:
		return opEntry{action: actData, opcode: OpFreq40TS, dataSz: 10, hasTS: true}
	default:
		return opEntry{action: actInvalid}
	}
}

// opcodeKind classifies a completed data opcode into the PacketKind its
// finished DataDecoder should be reported as, mirroring the lookup-table
// style twperr.kindDesc uses for error descriptions.
var opcodeKind = map[OpCode]PacketKind{
	OpM8:  PacketMaster,
	OpM16: PacketMaster,

	OpMERR: PacketError,
	OpGERR: PacketError,

	OpC8:  PacketChannel,
	OpC16: PacketChannel,

	OpD8:     PacketData,
	OpD16:    PacketData,
	OpD32:    PacketData,
	OpD64:    PacketData,
	OpD8MTS:  PacketData,
	OpD16MTS: PacketData,
	OpD32MTS: PacketData,
	OpD64MTS: PacketData,
	OpD4:     PacketData,
	OpD4MTS:  PacketData,
	OpD8TS:   PacketData,
	OpD16TS:  PacketData,
	OpD32TS:  PacketData,
	OpD64TS:  PacketData,
	OpD8M:    PacketData,
	OpD16M:   PacketData,
	OpD32M:   PacketData,
	OpD64M:   PacketData,
	OpD4TS:   PacketData,
	OpD4M:    PacketData,

	OpFlagTS: PacketFlag,

	OpFreq:     PacketFrequency,
	OpFreqTS:   PacketFrequency,
	OpFreq40:   PacketFrequency,
	OpFreq40TS: PacketFrequency,

	OpNullTS: PacketNull,

	OpUser:   PacketUser,
	OpUserTS: PacketUser,
}
