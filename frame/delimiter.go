package frame

import "bytes"

type delimiter struct {
	sep []byte
}

// Delimiter returns a Strategy that splits messages on sep. Empty messages
// between doubled separators are dropped. A non-empty tail without a trailing
// separator is emitted when the transport ends.
func Delimiter(sep string) Strategy {
	if sep == "" {
		panic("frame: empty delimiter")
	}
	return &delimiter{sep: []byte(sep)}
}

func (d *delimiter) Scan(buf []byte) []Frame {
	var frames []Frame
	start := 0
	for {
		i := bytes.Index(buf[start:], d.sep)
		if i < 0 {
			return frames
		}
		seg := buf[start : start+i]
		start += i + len(d.sep)
		if len(seg) == 0 {
			continue
		}
		frames = append(frames, Frame{Data: string(seg), End: start})
	}
}

func (d *delimiter) Flush(rest []byte) (Frame, bool) {
	tail := rest
	for bytes.HasPrefix(tail, d.sep) {
		tail = tail[len(d.sep):]
	}
	if len(tail) == 0 {
		return Frame{}, false
	}
	return Frame{Data: string(tail), End: len(rest)}, true
}
