package mock

import "io"

// Deliveries is an io.ReadCloser that returns one scripted chunk per Read,
// as a network connection would. After the last chunk it returns Err, or
// io.EOF when Err is nil.
type Deliveries struct {
	Chunks []string
	Err    error

	i      int
	off    int
	Closed bool
}

// NewDeliveries returns Deliveries for the given chunks.
func NewDeliveries(chunks ...string) *Deliveries {
	return &Deliveries{Chunks: chunks}
}

// Read copies as much of the current chunk as fits in p. A chunk larger than
// p is returned over several reads; chunks are never merged.
func (d *Deliveries) Read(p []byte) (int, error) {
	if d.Closed {
		return 0, io.ErrClosedPipe
	}
	for d.i < len(d.Chunks) && d.off == len(d.Chunks[d.i]) {
		d.i++
		d.off = 0
	}
	if d.i >= len(d.Chunks) {
		if d.Err != nil {
			return 0, d.Err
		}
		return 0, io.EOF
	}
	n := copy(p, d.Chunks[d.i][d.off:])
	d.off += n
	return n, nil
}

// Close marks the deliveries closed.
func (d *Deliveries) Close() error {
	d.Closed = true
	return nil
}
