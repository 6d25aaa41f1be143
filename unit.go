package genstream

import "encoding/json"

// Signal marks in-band stream boundaries carried by a decoded message.
type Signal int

const (
	SignalNone  Signal = iota // Ordinary message.
	SignalStart               // The upstream marked the start of the stream.
	SignalEnd                 // The upstream marked the end of the stream.
)

// Unit is the provider-agnostic result of decoding one Message.
//
// Parts keep the provider's order. Reasoning is empty when the message
// carried none. Usage, when non-nil, is a cumulative snapshot.
type Unit struct {
	Parts     []Part
	Reasoning string
	Usage     *Usage
	Signal    Signal
}

// Part is a sealed interface for one piece of decoded content.
// The unexported marker method prevents external implementations.
type Part interface {
	part()
}

// TextPart contains main answer text.
type TextPart struct {
	Text string
}

func (TextPart) part() {}

// MediaPart contains inline binary content such as an image.
type MediaPart struct {
	MimeType string
	Data     []byte
}

func (MediaPart) part() {}

// ToolCall is a complete tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

func (ToolCall) part() {}

// Interface compliance checks.
var (
	_ Part = TextPart{}
	_ Part = MediaPart{}
	_ Part = ToolCall{}
)

// Decoder turns one complete Message into a Unit. It is the only
// provider-specific piece of a stream.
type Decoder interface {
	Decode(msg Message) (Unit, error)
}

// Flusher is implemented by decoders that hold partial state across
// messages. Flush is called once when the transport ends without an in-band
// end marker and returns whatever the decoder still holds.
type Flusher interface {
	Flush() Unit
}

// DecoderFunc adapts an ordinary function to the Decoder interface.
type DecoderFunc func(msg Message) (Unit, error)

// Decode calls f(msg).
func (f DecoderFunc) Decode(msg Message) (Unit, error) {
	return f(msg)
}
