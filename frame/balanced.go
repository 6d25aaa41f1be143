package frame

import (
	"bytes"
	"encoding/json"
)

const (
	openMarker  = "["
	closeMarker = "]"
)

type balanced struct {
	started bool
}

// BalancedArray returns a Strategy for a top-level JSON array streamed in
// pretty-printed form. It emits "[" once when the stream opens with it, each
// element as a compact JSON value, and "]" when the array closes.
//
// An element that is still incomplete when the transport ends is dropped
// unless it is itself a complete value or exactly "]".
func BalancedArray() Strategy {
	return &balanced{}
}

func (b *balanced) Scan(buf []byte) []Frame {
	var frames []Frame
	cur := 0
	if !b.started {
		i := skipSpace(buf, 0)
		if i == len(buf) {
			return nil
		}
		b.started = true
		if buf[i] == '[' {
			cur = i + 1
			frames = append(frames, Frame{Data: openMarker, End: cur})
		}
	}
	for {
		i := skipSeparators(buf, cur)
		if i == len(buf) {
			// Only separators left; keep them with the partial.
			return frames
		}
		if n, val, ok := parseValue(buf[i:]); ok {
			cur = i + n
			frames = append(frames, Frame{Data: val, End: cur})
			continue
		}
		if buf[i] == ']' {
			cur = i + 1
			frames = append(frames, Frame{Data: closeMarker, End: cur})
			continue
		}
		return frames
	}
}

func (b *balanced) Flush(rest []byte) (Frame, bool) {
	tail := bytes.Trim(rest, ", \t\r\n")
	switch {
	case len(tail) == 0:
		return Frame{}, false
	case string(tail) == closeMarker:
		return Frame{Data: closeMarker, End: len(rest)}, true
	case json.Valid(tail):
		var out bytes.Buffer
		if err := json.Compact(&out, tail); err != nil {
			return Frame{}, false
		}
		return Frame{Data: out.String(), End: len(rest)}, true
	default:
		return Frame{}, false
	}
}

// parseValue decodes one JSON value at the start of b. It reports the number
// of bytes consumed and the value in compact form.
func parseValue(b []byte) (int, string, bool) {
	dec := json.NewDecoder(bytes.NewReader(b))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return 0, "", false
	}
	n := int(dec.InputOffset())
	// A number running to the end of the buffer may continue in the next
	// delivery.
	if n == len(b) && isNumberStart(raw[0]) {
		return 0, "", false
	}
	var out bytes.Buffer
	if err := json.Compact(&out, raw); err != nil {
		return 0, "", false
	}
	return n, out.String(), true
}

func isNumberStart(c byte) bool {
	return c == '-' || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func skipSpace(b []byte, i int) int {
	for i < len(b) && isSpace(b[i]) {
		i++
	}
	return i
}

func skipSeparators(b []byte, i int) int {
	for i < len(b) && (isSpace(b[i]) || b[i] == ',') {
		i++
	}
	return i
}
