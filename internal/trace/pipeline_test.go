package trace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twp-project/twp/frame"
	"github.com/twp-project/twp/stp"
	"github.com/twp-project/twp/twplog"
)

// asyncVersionD4Frame packs the S5 nibble scenario (ASYNC, VERSION, D4)
// under stream 1 (immediate ID at position 0), low nibble first in each
// byte, behind a leading Frame-Sync. The 15 data bytes fill the first
// frame and spill one byte into a second one.
func asyncVersionD4Frame(t *testing.T) []byte {
	t.Helper()
	b := frame.NewFrameBuilder(1)
	require.NoError(t, b.ImmediateID(1))

	nibbles := []byte{}
	for i := 0; i < 21; i++ {
		nibbles = append(nibbles, 0xF)
	}
	nibbles = append(nibbles, 0x0, 0xF, 0x0, 0x0, 0xA, 0x0, 0x1, 0xC, 0x1)

	for i := 0; i+1 < len(nibbles); i += 2 {
		require.NoError(t, b.SetData(nibbles[i]|nibbles[i+1]<<4))
	}
	// Pad the final odd nibble out to a whole byte with a trailing zero.
	if len(nibbles)%2 == 1 {
		require.NoError(t, b.SetData(nibbles[len(nibbles)-1]))
	}
	require.NoError(t, b.InsertFrameSync(0))
	return b.Build()
}

func TestPipelineDecodesFramedStream(t *testing.T) {
	data := asyncVersionD4Frame(t)

	var events []StreamEvent
	err := Run(bytes.NewReader(data), frame.DefaultParserConfig(), stp.DefaultDecoderConfig(), twplog.NewNoOpLogger(), false, func(ev StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)

	var kinds []stp.PacketKind
	for _, ev := range events {
		if ev.Err == nil {
			kinds = append(kinds, ev.Packet.Kind)
		}
	}
	require.Contains(t, kinds, stp.PacketAsync)
	require.Contains(t, kinds, stp.PacketVersion)
	require.Contains(t, kinds, stp.PacketData)
}

func TestPipelineBailStopsOnFirstError(t *testing.T) {
	// Frame-Sync, then a frame whose byte 0 is an ID byte naming the
	// always-invalid Reserved (0x7F) stream.
	data := []byte{0xFF, 0xFF, 0xFF, 0x7F}
	data = append(data, 0xFF, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)

	var sawError bool
	assert.NoError(t, Run(bytes.NewReader(data), frame.DefaultParserConfig(), stp.DefaultDecoderConfig(), twplog.NewNoOpLogger(), true, func(ev StreamEvent) error {
		if ev.Err != nil {
			sawError = true
		}
		return nil
	}))
	assert.True(t, sawError)
}
