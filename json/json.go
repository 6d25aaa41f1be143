// Package json serializes genstream events and transcripts.
//
// Events use a flat object with a "type" discriminator, one object per line
// when written with an [Encoder]. Transcripts are stored in a versioned
// envelope that embeds the same event objects.
package json
