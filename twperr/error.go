// Package twperr defines the structured error type shared by the frame and
// stp packages, following the severity/code/offset/message shape used
// throughout the CoreSight decoder this module was adapted from.
package twperr

import (
	"errors"
	"fmt"
	"strings"
)

// Severity classifies how a decoder should treat an error.
type Severity int

const (
	SevInfo Severity = iota
	SevWarning
	SevError
	SevFatal
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	case SevFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Kind enumerates the error taxonomy from the protocol specification plus
// the Stop sentinel used for cooperative early termination.
type Kind int

const (
	KindNone Kind = iota
	KindStop

	// frame package (C2/C3/C4)
	KindInvalidStreamId
	KindInvalidAuxByte
	KindPartialFrame
	KindInvalidFrames

	// stp package (C5)
	KindInvalidAsync
	KindTruncatedPacket
	KindMissingVersion
	KindInvalidOpCode
	KindInvalidTimestampType
	KindInvalidTimestampSize
	KindInvalidVersion
)

type desc struct {
	name string
	msg  string
}

var kindDesc = map[Kind]desc{
	KindNone:                 {"NONE", "no error"},
	KindStop:                 {"STOP", "cooperative early termination requested by handler"},
	KindInvalidStreamId:      {"INVALID_STREAM_ID", "stream ID value 0x7F is reserved"},
	KindInvalidAuxByte:       {"INVALID_AUX_BYTE", "AUX bit 7 set while byte 14 is an ID byte"},
	KindPartialFrame:         {"PARTIAL_FRAME", "trailing bytes shorter than a full frame"},
	KindInvalidFrames:        {"INVALID_FRAMES", "frame-sync arrived mid-frame"},
	KindInvalidAsync:         {"INVALID_ASYNC", "21 consecutive 0xF nibbles followed by a non-zero, non-F nibble"},
	KindTruncatedPacket:      {"TRUNCATED_PACKET", "ASYNC arrived while a packet was in progress"},
	KindMissingVersion:       {"MISSING_VERSION", "data packet seen before the first VERSION packet"},
	KindInvalidOpCode:        {"INVALID_OPCODE", "opcode nibble sequence not in the canonical opcode table"},
	KindInvalidTimestampType: {"INVALID_TIMESTAMP_TYPE", "low 3 bits of the VERSION nibble select an unknown timestamp type"},
	KindInvalidTimestampSize: {"INVALID_TIMESTAMP_SIZE", "timestamp size nibble is 0xF"},
	KindInvalidVersion:       {"INVALID_VERSION", "STPv2.2 version payload is not 0x01 (ignoring the LE bit)"},
}

// Error is the structured error type produced by every decoder in this
// module. Offset is a byte offset for frame-package errors and a nibble
// offset for stp-package errors.
type Error struct {
	Kind     Kind
	Sev      Severity
	Offset   int64
	HasValue bool
	Value    uint64
	Message  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var sb strings.Builder
	sb.WriteString(e.Sev.String())
	sb.WriteString(": ")

	d, ok := kindDesc[e.Kind]
	if !ok {
		sb.WriteString("unknown error kind")
	} else {
		fmt.Fprintf(&sb, "%s (%s)", d.name, d.msg)
	}

	if e.HasValue {
		fmt.Fprintf(&sb, " value=0x%x", e.Value)
	}
	fmt.Fprintf(&sb, " offset=%d", e.Offset)
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	return sb.String()
}

func New(kind Kind, sev Severity, offset int64) *Error {
	return &Error{Kind: kind, Sev: sev, Offset: offset}
}

func NewValue(kind Kind, sev Severity, offset int64, value uint64) *Error {
	return &Error{Kind: kind, Sev: sev, Offset: offset, HasValue: true, Value: value}
}

func NewMsg(kind Kind, sev Severity, offset int64, msg string) *Error {
	return &Error{Kind: kind, Sev: sev, Offset: offset, Message: msg}
}

// Stop is the distinguished sentinel a handler returns to halt decoding
// cooperatively without the caller mistaking it for a protocol failure.
var Stop = &Error{Kind: KindStop, Sev: SevInfo, Message: "stop requested by handler"}

// IsStop reports whether err is (or wraps) the Stop sentinel.
func IsStop(err error) bool {
	var e *Error
	return errors.As(err, &e) && e != nil && e.Kind == KindStop
}
