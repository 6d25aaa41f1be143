package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/genstream"
	gsjson "github.com/fwojciec/genstream/json"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// printer renders stream events to a writer.
type printer interface {
	Print(genstream.Event)
	// Err reports the first write failure, if any.
	Err() error
}

// printOptions tune text output.
type printOptions struct {
	ShowReasoning bool
	// Markdown buffers content and renders it as markdown once the reply or
	// a tool call completes it.
	Markdown bool
	Width    int
}

func newPrinter(w io.Writer, format string, o printOptions) printer {
	if format == formatJSON {
		return &jsonPrinter{enc: gsjson.NewEncoder(w)}
	}
	return &textPrinter{w: w, st: newStyles(w, defaultTheme()), opts: o}
}

// jsonPrinter writes one JSON object per event.
type jsonPrinter struct {
	enc *gsjson.Encoder
	err error
}

func (p *jsonPrinter) Print(e genstream.Event) {
	if p.err != nil {
		return
	}
	p.err = p.enc.Encode(e)
}

func (p *jsonPrinter) Err() error { return p.err }

// textPrinter writes content as it arrives. Reasoning is shown only when
// enabled and is separated from content by a blank line. Model text is
// sanitized before it reaches the terminal.
type textPrinter struct {
	w           io.Writer
	st          styles
	opts        printOptions
	inReasoning bool
	wrote       bool
	content     strings.Builder // pending markdown
	err         error
}

func (p *textPrinter) Print(e genstream.Event) {
	switch v := e.(type) {
	case genstream.EventReasoningChunk:
		if !p.opts.ShowReasoning {
			return
		}
		p.inReasoning = true
		p.write(p.st.Reasoning.Render(sanitize(v.Text)))
	case genstream.EventContentChunk:
		p.leaveReasoning()
		if p.opts.Markdown {
			p.content.WriteString(sanitize(v.Text))
			return
		}
		p.write(sanitize(v.Text))
	case genstream.EventToolCall:
		p.leaveReasoning()
		p.flushMarkdown()
		p.newline()
		p.write(p.st.ToolCall.Render("→ "+v.Call.Name) + " " + string(v.Call.Arguments) + "\n")
	case genstream.EventEnd:
		p.leaveReasoning()
		p.flushMarkdown()
		p.newline()
		if footer := usageFooter(v.Aggregates.Usage); footer != "" {
			p.write(p.st.Muted.Render(footer) + "\n")
		}
	}
}

func (p *textPrinter) Err() error { return p.err }

func (p *textPrinter) leaveReasoning() {
	if p.inReasoning {
		p.inReasoning = false
		p.write("\n\n")
	}
}

func (p *textPrinter) flushMarkdown() {
	if p.content.Len() == 0 {
		return
	}
	p.write(renderMarkdown(p.content.String(), p.opts.Width, p.st))
	p.content.Reset()
}

// newline ends a partially written line.
func (p *textPrinter) newline() {
	if p.wrote {
		p.write("\n")
	}
}

func (p *textPrinter) write(s string) {
	if p.err != nil || s == "" {
		return
	}
	_, p.err = io.WriteString(p.w, s)
	p.wrote = !strings.HasSuffix(s, "\n")
}

func usageFooter(u *genstream.Usage) string {
	if u == nil {
		return ""
	}
	s := fmt.Sprintf("tokens: %d in, %d out, %d total", u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	if u.ReasoningTokens > 0 {
		s += fmt.Sprintf(" (%d reasoning)", u.ReasoningTokens)
	}
	if u.CachedTokens > 0 {
		s += fmt.Sprintf(", %d cached", u.CachedTokens)
	}
	return s
}
