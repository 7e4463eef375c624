// Package twpprint formats decoded frame and STP events as single text
// lines, adapted from the teacher library's packet-line printer: one line
// per event, a fixed Idx/ID prefix, then a packet-specific description.
package twpprint

import (
	"fmt"
	"io"
	"strings"

	"github.com/twp-project/twp/frame"
	"github.com/twp-project/twp/internal/trace"
	"github.com/twp-project/twp/stp"
)

// Printer writes formatted event lines to an output writer.
type Printer struct {
	out         io.Writer
	fileOffsets bool
}

// NewPrinter returns a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{out: w}
}

// SetOutput redirects subsequent output to w.
func (p *Printer) SetOutput(w io.Writer) { p.out = w }

// SetFileOffsets records the CLI's --file-offsets setting. The line
// formatters do not read it: every line prints the offset its event
// carries, whatever this is set to.
func (p *Printer) SetFileOffsets(on bool) { p.fileOffsets = on }

// PrintLayerEvent formats one LayerParser event (FrameSync, Padding, or an
// error) as a single line.
func (p *Printer) PrintLayerEvent(ev frame.Event, errR error) error {
	line := FormatLayerEventLine(ev, errR)
	if line == "" {
		return nil
	}
	_, err := fmt.Fprintln(p.out, line)
	return err
}

// PrintStreamEvent formats one trace.StreamEvent (a decoded STP packet or
// an error) as a single line.
func (p *Printer) PrintStreamEvent(ev trace.StreamEvent) error {
	line := FormatStreamEventLine(ev)
	_, err := fmt.Fprintln(p.out, line)
	return err
}

// FormatLayerEventLine formats a single LayerParser event to match the
// "Idx:%d; [%s]" style the teacher library uses for raw packet lines.
func FormatLayerEventLine(ev frame.Event, errR error) string {
	if errR != nil {
		return fmt.Sprintf("Idx:?; [ERROR];\t%s", errR.Error())
	}
	switch ev.Kind {
	case frame.EventFrameSync:
		return fmt.Sprintf("Idx:%d; [FRAME_SYNC];\tFrame-Sync packet", ev.Offset)
	case frame.EventPadding:
		return fmt.Sprintf("Idx:%d; [PADDING];\tPadding packet", ev.Offset)
	case frame.EventFrame:
		return fmt.Sprintf("Idx:%d; [FRAME];\t%s", ev.ByteOffsets[0], formatHexBytes(ev.Bytes[:]))
	default:
		return ""
	}
}

// FormatStreamEventLine formats one decoded StreamEvent in the teacher
// library's packet-line shape, as "Idx:%d; ID:0x%02x; [%s];\t%s".
func FormatStreamEventLine(ev trace.StreamEvent) string {
	id, _ := ev.Stream.ID()
	if ev.Err != nil {
		return fmt.Sprintf("Idx:%d; ID:0x%02x; [ERROR];\t%s", ev.Err.Offset, uint8(id), ev.Err.Error())
	}
	pkt := ev.Packet
	return fmt.Sprintf("Idx:%d; ID:0x%02x; [%s];\t%s",
		pkt.Start, uint8(id), stpPacketTypeName(pkt.Kind), stpPacketDescription(pkt))
}

func formatHexBytes(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("0x%02x", b)
	}
	return strings.Join(parts, " ")
}

func stpPacketTypeName(kind stp.PacketKind) string {
	switch kind {
	case stp.PacketAsync:
		return "ASYNC"
	case stp.PacketNull:
		return "NULL"
	case stp.PacketVersion:
		return "VERSION"
	case stp.PacketMaster:
		return "MASTER"
	case stp.PacketChannel:
		return "CHANNEL"
	case stp.PacketError:
		return "ERROR_PKT"
	case stp.PacketData:
		return "DATA"
	case stp.PacketFlag:
		return "FLAG"
	case stp.PacketFrequency:
		return "FREQ"
	case stp.PacketUser:
		return "USER"
	default:
		return "UNKNOWN"
	}
}

func stpPacketDescription(pkt *stp.Packet) string {
	switch pkt.Kind {
	case stp.PacketAsync:
		return "Alignment synchronization packet; "
	case stp.PacketVersion:
		return fmt.Sprintf("ts_type=%d is_le=%v; ", pkt.TsType, pkt.IsLE)
	case stp.PacketMaster:
		return fmt.Sprintf("master=0x%x; ", pkt.Master)
	case stp.PacketChannel:
		return fmt.Sprintf("channel=0x%x; ", pkt.Channel)
	case stp.PacketError:
		return fmt.Sprintf("error_data=0x%x; ", pkt.ErrorData)
	case stp.PacketData:
		line := fmt.Sprintf("data=0x%x; ", pkt.Data)
		if pkt.HasTimestamp {
			line += fmt.Sprintf("ts=0x%x; ", pkt.Timestamp.Value)
		}
		return line
	case stp.PacketFlag:
		return "Flag packet; "
	case stp.PacketFrequency:
		return fmt.Sprintf("frequency=0x%x; ", pkt.Frequency)
	case stp.PacketUser:
		return fmt.Sprintf("len=%d payload=0x%x; ", pkt.UserLength, pkt.Data)
	default:
		return ""
	}
}
