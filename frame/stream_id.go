package frame

import "fmt"

// StreamID is the 7-bit value identifying one logical byte stream
// multiplexed into a TWP frame. Values 1..=0x7C and 0x7E name ordinary
// data streams; 0 is the reserved Null stream; 0x7D is the Trigger
// stream; 0x7F is never a legal value and is always an error if observed.
type StreamID uint8

const (
	// Null is the reserved zero stream ID.
	Null StreamID = 0
	// Trigger is the reserved trigger stream ID.
	Trigger StreamID = 0x7D
	// Reserved is the always-invalid stream ID (0x7F after the 7-bit shift).
	Reserved StreamID = 0x7F
)

// IsNull reports whether id is the reserved Null stream.
func (id StreamID) IsNull() bool { return id == Null }

// IsTrigger reports whether id is the reserved Trigger stream.
func (id StreamID) IsTrigger() bool { return id == Trigger }

// IsReserved reports whether id is the always-invalid 0x7F value.
func (id StreamID) IsReserved() bool { return id == Reserved }

// IsData reports whether id names an ordinary data stream: 1..=0x7C or 0x7E.
func (id StreamID) IsData() bool {
	return (id >= 1 && id <= 0x7C) || id == 0x7E
}

func (id StreamID) String() string {
	switch {
	case id.IsNull():
		return "Null"
	case id.IsTrigger():
		return "Trigger"
	case id.IsReserved():
		return "Reserved(0x7F)"
	default:
		return fmt.Sprintf("Data(0x%02x)", uint8(id))
	}
}

// Stream is an optional StreamID: the zero value represents "no stream ID
// has been established yet", distinct from Null (a defined ID whose value
// happens to be zero). FrameParser's cur_stream and StreamBuilder's
// pending-ID bookkeeping both need this distinction (see scenario S2 in
// the specification, where bytes emitted before the first ID change are
// keyed by the absence of an ID, not by Null).
type Stream struct {
	set bool
	id  StreamID
}

// NoStream is the zero value of Stream: no ID established yet.
var NoStream = Stream{}

// Some wraps id as an established Stream.
func Some(id StreamID) Stream { return Stream{set: true, id: id} }

// IsSet reports whether an ID has been established.
func (s Stream) IsSet() bool { return s.set }

// ID returns the wrapped StreamID and whether it was set.
func (s Stream) ID() (StreamID, bool) { return s.id, s.set }

func (s Stream) String() string {
	if !s.set {
		return "None"
	}
	return s.id.String()
}
