package stp

// OpCode identifies a decoded STP opcode. Values below 0x10 are span-1
// opcodes (encoded directly as a single nibble); values 0xF0-0xFF are
// span-2 opcodes (0xF followed by the low nibble); values 0xF00-0xF0F are
// span-3; 0xF0F0-0xF0F1 are span-4. This mirrors the nibble path actually
// walked to reach each opcode, not a flat enumeration.
type OpCode uint16

const (
	OpNull OpCode = 0x00
	OpM8   OpCode = 0x01
	OpMERR OpCode = 0x02
	OpC8   OpCode = 0x03
	OpD8   OpCode = 0x04
	OpD16  OpCode = 0x05
	OpD32  OpCode = 0x06
	OpD64  OpCode = 0x07

	OpD8MTS  OpCode = 0x08
	OpD16MTS OpCode = 0x09
	OpD32MTS OpCode = 0x0A
	OpD64MTS OpCode = 0x0B
	OpD4     OpCode = 0x0C
	OpD4MTS  OpCode = 0x0D
	OpFlagTS OpCode = 0x0E

	OpM16   OpCode = 0xF1
	OpGERR  OpCode = 0xF2
	OpC16   OpCode = 0xF3
	OpD8TS  OpCode = 0xF4
	OpD16TS OpCode = 0xF5
	OpD32TS OpCode = 0xF6
	OpD64TS OpCode = 0xF7
	OpD8M   OpCode = 0xF8
	OpD16M  OpCode = 0xF9
	OpD32M  OpCode = 0xFA
	OpD64M  OpCode = 0xFB
	OpD4TS  OpCode = 0xFC
	OpD4M   OpCode = 0xFD
	OpFlag  OpCode = 0xFE

	OpVersion OpCode = 0xF00
	OpNullTS  OpCode = 0xF01
	OpUser    OpCode = 0xF02
	OpUserTS  OpCode = 0xF03
	OpFreq    OpCode = 0xF08
	OpFreqTS  OpCode = 0xF09

	OpFreq40   OpCode = 0xF0F0
	OpFreq40TS OpCode = 0xF0F1
)

// TimestampType is the timestamp encoding negotiated by the most recent
// VERSION packet.
type TimestampType int

const (
	TSv1Legacy TimestampType = iota
	TSv2NatDelta
	TSv2Nat
	TSv2Gray
)

// VersionKind distinguishes the three wire forms VERSION can take: a bare
// single nibble with the type field zero (STPv1), a single nibble with a
// nonzero type and bit 3 clear (STPv2_1), or a three-nibble body with bit 3
// set and an 8-bit is_le/check payload (STPv2_2).
type VersionKind int

const (
	VersionSTPv1 VersionKind = iota
	VersionSTPv2_1
	VersionSTPv2_2
)

// Timestamp is a decoded timestamp value, its declared nibble length, and
// the type it was decoded under.
type Timestamp struct {
	Type   TimestampType
	Length int // nibble count; 2 for STPv1Legacy, 0 for an absent (size-0) STPv2 timestamp
	Value  uint64
}

// PacketKind discriminates the flavor of a decoded Packet.
type PacketKind int

const (
	PacketAsync PacketKind = iota
	PacketNull
	PacketVersion
	PacketMaster
	PacketChannel
	PacketError
	PacketData
	PacketFlag
	PacketFrequency
	PacketUser
)

// Packet is a single decoded STP packet. Only the fields relevant to Kind
// are meaningful; the rest are left at their zero value.
type Packet struct {
	Kind   PacketKind
	Opcode OpCode

	Master    uint16 // PacketMaster
	Channel   uint16 // PacketChannel
	ErrorData uint8  // PacketError

	Data uint64 // PacketData, PacketUser (payload)

	Frequency uint64 // PacketFrequency

	UserLength int // PacketUser: payload length in nibbles (1-16)

	HasTimestamp bool
	Timestamp    Timestamp

	VersionKind VersionKind   // PacketVersion
	TsType      TimestampType // PacketVersion
	IsLE        bool          // PacketVersion

	Start int64 // absolute nibble offset of the opcode's first nibble
	Span  int   // total nibbles consumed by this packet
}
