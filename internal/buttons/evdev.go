package buttons

import "encoding/binary"

const (
	evKey = 0x01

	// Linux input-event-codes.h
	keyEnter = 28
	keySpace = 57
	keyF4    = 62

	keyPressed = 1
)

// DefaultKeyMap binds Space, Enter and F4.
var DefaultKeyMap = map[uint16]Event{
	keySpace: Toggle,
	keyEnter: Burst,
	keyF4:    Exit,
}

// decodeEvents parses a buffer of input_event records and returns the mapped
// key presses in order. tvSize is the size of struct timeval on the running
// architecture; repeats and releases are skipped.
func decodeEvents(buf []byte, tvSize int, keys map[uint16]Event) []Event {
	// input_event = timeval + u16 type + u16 code + s32 value.
	eventSize := tvSize + 2 + 2 + 4
	var out []Event
	for off := 0; off+eventSize <= len(buf); off += eventSize {
		rec := buf[off : off+eventSize]
		typ := binary.LittleEndian.Uint16(rec[tvSize : tvSize+2])
		code := binary.LittleEndian.Uint16(rec[tvSize+2 : tvSize+4])
		value := int32(binary.LittleEndian.Uint32(rec[tvSize+4 : tvSize+8]))
		if typ != evKey || value != keyPressed {
			continue
		}
		if ev, ok := keys[code]; ok {
			out = append(out, ev)
		}
	}
	return out
}
