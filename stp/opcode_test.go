package stp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpan1TableKeyEntries(t *testing.T) {
	assert.Equal(t, actEmitNull, span1Table[0x0].action)
	assert.Equal(t, actContinue, span1Table[0xF].action)
	assert.Equal(t, actData, span1Table[0xC].action)
	assert.Equal(t, OpD4, span1Table[0xC].opcode)
}

func TestSpan2TableInvalidOpcode(t *testing.T) {
	assert.Equal(t, actInvalid, span2Table[0xF].action)
	assert.Equal(t, actEmitFlag, span2Table[0xE].action)
}

func TestSpan3EntryVersionAndUser(t *testing.T) {
	assert.Equal(t, actVersion, span3Entry(0x0).action)

	user := span3Entry(0x2)
	assert.Equal(t, actVariableData, user.action)
	assert.Equal(t, OpUser, user.opcode)
	assert.False(t, user.hasTS)

	userTS := span3Entry(0x3)
	assert.Equal(t, actVariableData, userTS.action)
	assert.Equal(t, OpUserTS, userTS.opcode)
	assert.True(t, userTS.hasTS)

	assert.Equal(t, actInvalid, span3Entry(0x5).action)
	assert.Equal(t, actContinue, span3Entry(0xF).action)
}

func TestSpan4EntryFrequency40(t *testing.T) {
	f40 := span4Entry(0x0)
	assert.Equal(t, actData, f40.action)
	assert.Equal(t, OpFreq40, f40.opcode)
	assert.Equal(t, 10, f40.dataSz)

	assert.Equal(t, actInvalid, span4Entry(0x2).action)
}

func TestOpcodeKindClassifiesEveryDataOpcode(t *testing.T) {
	tests := []struct {
		op   OpCode
		kind PacketKind
	}{
		{OpM8, PacketMaster},
		{OpM16, PacketMaster},
		{OpMERR, PacketError},
		{OpGERR, PacketError},
		{OpC8, PacketChannel},
		{OpC16, PacketChannel},
		{OpD8, PacketData},
		{OpD16, PacketData},
		{OpD32, PacketData},
		{OpD64, PacketData},
		{OpD8MTS, PacketData},
		{OpD16MTS, PacketData},
		{OpD32MTS, PacketData},
		{OpD64MTS, PacketData},
		{OpD4, PacketData},
		{OpD4MTS, PacketData},
		{OpD8TS, PacketData},
		{OpD16TS, PacketData},
		{OpD32TS, PacketData},
		{OpD64TS, PacketData},
		{OpD8M, PacketData},
		{OpD16M, PacketData},
		{OpD32M, PacketData},
		{OpD64M, PacketData},
		{OpD4TS, PacketData},
		{OpD4M, PacketData},
		{OpFlagTS, PacketFlag},
		{OpFreq, PacketFrequency},
		{OpFreqTS, PacketFrequency},
		{OpFreq40, PacketFrequency},
		{OpFreq40TS, PacketFrequency},
		{OpNullTS, PacketNull},
		{OpUser, PacketUser},
		{OpUserTS, PacketUser},
	}
	for _, tt := range tests {
		got, ok := opcodeKind[tt.op]
		assert.True(t, ok, "opcode %v missing from table", tt.op)
		assert.Equal(t, tt.kind, got)
	}
}
