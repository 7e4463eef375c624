package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twp-project/twp/twperr"
)

func runLayerParser(t *testing.T, cfg ParserConfig, data []byte) ([]Event, []*twperr.Error) {
	t.Helper()
	p := NewLayerParser(cfg)
	var events []Event
	var errs []*twperr.Error
	h := func(ev Event, err *twperr.Error) error {
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		events = append(events, ev)
		return nil
	}
	require.NoError(t, p.ProcessBytes(data, 0, h))
	require.NoError(t, p.Finish(h))
	return events, errs
}

// runLayerParserChunked feeds data in chunkSize-byte pieces, exercising the
// parser's tolerance for arbitrary chunking across ProcessBytes calls.
func runLayerParserChunked(t *testing.T, cfg ParserConfig, data []byte, chunkSize int) ([]Event, []*twperr.Error) {
	t.Helper()
	p := NewLayerParser(cfg)
	var events []Event
	var errs []*twperr.Error
	h := func(ev Event, err *twperr.Error) error {
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		events = append(events, ev)
		return nil
	}
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		require.NoError(t, p.ProcessBytes(data[off:end], int64(off), h))
	}
	require.NoError(t, p.Finish(h))
	return events, errs
}

func frameSyncThenFrame(payload byte) []byte {
	out := append([]byte{}, fsync[:]...)
	for i := 0; i < FrameSize; i++ {
		out = append(out, payload)
	}
	return out
}

func TestFrameSyncThenFrame(t *testing.T) {
	events, errs := runLayerParser(t, DefaultParserConfig(), frameSyncThenFrame(0xAA))

	require.Empty(t, errs)
	require.Len(t, events, 2)
	assert.Equal(t, EventFrameSync, events[0].Kind)
	assert.EqualValues(t, 0, events[0].Offset)

	assert.Equal(t, EventFrame, events[1].Kind)
	for _, b := range events[1].Bytes {
		assert.EqualValues(t, 0xAA, b)
	}
}

// TestInvalidAuxByte is scenario S3: the AUX high bit is set while byte 14
// is an ID byte, producing InvalidAuxByte before the frame is otherwise
// parsed normally.
func TestInvalidAuxByte(t *testing.T) {
	data := frameSyncThenFrame(0)
	frame := data[4:]
	// byte 14 (offset 14 within the frame) is an ID byte (LSB set).
	frame[14] = 0x03
	// AUX byte (offset 15) has the high bit set.
	frame[15] = 0x80

	p := NewFrameParser(NoStream)
	var errs []*twperr.Error
	var f [FrameSize]byte
	copy(f[:], frame)
	err := p.ParseFrame(f, 16, func(ev ByteEvent, errR *twperr.Error) error {
		if errR != nil {
			errs = append(errs, errR)
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, twperr.KindInvalidAuxByte, errs[0].Kind)
	assert.EqualValues(t, 0x80, errs[0].Value)
	assert.EqualValues(t, 16+15, errs[0].Offset)
}

// TestFrameSyncSplitAcrossChunks is scenario S4: a 14-byte run of filler,
// then a literal Frame-Sync sequence, then one full frame, fed to the
// parser in 16-byte chunks so the Frame-Sync sequence itself straddles a
// chunk boundary.
func TestFrameSyncSplitAcrossChunks(t *testing.T) {
	data := make([]byte, 0, 14+4+FrameSize)
	for i := 0; i < 14; i++ {
		data = append(data, 0x00)
	}
	data = append(data, fsync[:]...)
	for i := 0; i < FrameSize; i++ {
		data = append(data, byte(i))
	}

	events, errs := runLayerParserChunked(t, DefaultParserConfig(), data, 16)

	require.Empty(t, errs)
	require.Len(t, events, 2)
	assert.Equal(t, EventFrameSync, events[0].Kind)
	assert.EqualValues(t, 14, events[0].Offset)

	assert.Equal(t, EventFrame, events[1].Kind)
	assert.EqualValues(t, 18, events[1].ByteOffsets[0])
	assert.EqualValues(t, 33, events[1].ByteOffsets[15])
}

// TestPaddingOnHalfwordBoundary exercises the Padding (T1) recognition
// rule once synchronized: FF 7F on an even position within the frame
// accounting is padding, not frame content.
func TestPaddingOnHalfwordBoundary(t *testing.T) {
	data := append([]byte{}, fsync[:]...)
	// Two data bytes to land the next pair on an even boundary, then a
	// padding packet, then enough bytes to complete one frame.
	data = append(data, 0x01, 0x02)
	data = append(data, 0xFF, 0x7F)
	for i := 0; i < FrameSize-2; i++ {
		data = append(data, 0x03)
	}

	events, errs := runLayerParser(t, DefaultParserConfig(), data)

	require.Empty(t, errs)
	require.Len(t, events, 3)
	assert.Equal(t, EventFrameSync, events[0].Kind)
	assert.Equal(t, EventPadding, events[1].Kind)
	assert.Equal(t, EventFrame, events[2].Kind)
}

// TestPaddingDisabledTreatsItAsData confirms that with PaddingEnabled
// false, an FF 7F sequence on what would otherwise be a halfword boundary
// is consumed as ordinary frame bytes instead.
func TestPaddingDisabledTreatsItAsData(t *testing.T) {
	cfg := ParserConfig{PaddingEnabled: false}
	data := append([]byte{}, fsync[:]...)
	data = append(data, 0x01, 0x02, 0xFF, 0x7F)
	for i := 0; i < FrameSize-4; i++ {
		data = append(data, 0x03)
	}

	events, errs := runLayerParser(t, cfg, data)
	require.Empty(t, errs)
	require.Len(t, events, 2)
	assert.Equal(t, EventFrameSync, events[0].Kind)
	assert.Equal(t, EventFrame, events[1].Kind)
	assert.EqualValues(t, 0xFF, events[1].Bytes[2])
	assert.EqualValues(t, 0x7F, events[1].Bytes[3])
}

// TestUnsyncedBytesAreDiscarded confirms that before the first Frame-Sync
// is seen, ordinary bytes (including a lone 0x7F not preceded by three
// 0xFF) are silently dropped rather than buffered into a frame.
func TestUnsyncedBytesAreDiscarded(t *testing.T) {
	data := []byte{0x01, 0x02, 0x7F, 0x03}
	events, errs := runLayerParser(t, DefaultParserConfig(), data)
	assert.Empty(t, errs)
	assert.Empty(t, events)
}

// TestPartialFrameOnFinish confirms a trailing incomplete frame is
// reported once Finish is called.
func TestPartialFrameOnFinish(t *testing.T) {
	data := append([]byte{}, fsync[:]...)
	data = append(data, 0x01, 0x02, 0x03)

	_, errs := runLayerParser(t, DefaultParserConfig(), data)
	require.Len(t, errs, 1)
	assert.Equal(t, twperr.KindPartialFrame, errs[0].Kind)
	assert.EqualValues(t, 3, errs[0].Value)
}
