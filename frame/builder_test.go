package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twp-project/twp/twperr"
)

// demux runs a FrameParser over frames and groups emitted data bytes by
// the stream they were reported under, failing the test on any error.
func demux(t *testing.T, frames []byte) map[Stream][]byte {
	t.Helper()
	p := NewFrameParser(NoStream)
	out := map[Stream][]byte{}
	err := p.ParseFrames(frames, 0, func(ev ByteEvent, errR *twperr.Error) error {
		if errR != nil {
			t.Fatalf("unexpected error: %v", errR)
		}
		out[ev.Stream] = append(out[ev.Stream], ev.Data)
		return nil
	})
	require.NoError(t, err)
	return out
}

// TestImmediateIDChange is scenario S1: two immediate ID changes packed
// into a single 16-byte frame.
func TestImmediateIDChange(t *testing.T) {
	b := NewFrameBuilder(1)
	require.NoError(t, b.ImmediateID(1))
	require.NoError(t, b.SetData(1))
	require.NoError(t, b.ImmediateID(2))
	require.NoError(t, b.DataSpan(12, 2))

	frames := b.Build()
	require.Len(t, frames, FrameSize)

	got := demux(t, frames)
	assert.Equal(t, []byte{1}, got[Some(1)])
	assert.Equal(t, []byte{2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2}, got[Some(2)])
}

// TestDelayedIDChange is scenario S2: a delayed ID change, which takes
// effect one byte after the ID byte.
func TestDelayedIDChange(t *testing.T) {
	b := NewFrameBuilder(2)
	require.NoError(t, b.DataSpan(2, 1))
	require.NoError(t, b.DelayedID(4))
	require.NoError(t, b.SetData(1))
	require.NoError(t, b.DataSpan(4, 4))
	require.NoError(t, b.DelayedID(5))
	require.NoError(t, b.SetData(4))
	require.NoError(t, b.DataSpan(20, 5))

	frames := b.Build()
	require.Len(t, frames, 2*FrameSize)

	got := demux(t, frames)
	assert.Equal(t, []byte{1, 1, 1}, got[NoStream])
	assert.Equal(t, []byte{4, 4, 4, 4, 4}, got[Some(4)])
	assert.Equal(t, []byte{
		5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
		5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	}, got[Some(5)])
}

func TestSetIDOnOddPositionRewritesBufferedByte(t *testing.T) {
	b := NewFrameBuilder(1)
	require.NoError(t, b.SetData(0x42)) // lands at position 0 (even)
	require.NoError(t, b.SetID(7))      // odd position: the buffered byte becomes a delayed ID's odd partner
	require.NoError(t, b.SetData(0x43)) // first byte actually under the new ID

	frames := b.Build()
	got := demux(t, frames)
	// A delayed ID still reports the byte immediately after the ID byte
	// under the previous stream; 7 only takes effect from the next byte,
	// and the frame's 12 zero-filled trailing positions stay on stream 7.
	assert.Equal(t, []byte{0x42}, got[NoStream])
	assert.Equal(t, append([]byte{0x43}, make([]byte, 12)...), got[Some(7)])
}

func TestImmediateIDAtPosition14IsLegal(t *testing.T) {
	b := NewFrameBuilder(1)
	require.NoError(t, b.DataSpan(14, 0xAA))
	require.NoError(t, b.ImmediateID(9))

	frames := b.Build()
	require.Len(t, frames, FrameSize)
}

func TestDelayedIDAtPosition14IsRejected(t *testing.T) {
	b := NewFrameBuilder(1)
	require.NoError(t, b.DataSpan(14, 0xAA))
	err := b.DelayedID(9)
	require.Error(t, err)
}
