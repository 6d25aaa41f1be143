package main

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	defaultWidth = 80
	minWidth     = 20
)

// renderMarkdown renders a completed reply as styled terminal text wrapped
// to width. The result ends with a newline unless it is empty.
func renderMarkdown(src string, width int, st styles) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}
	source := []byte(src)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))
	m := &mdWriter{src: source, st: st, width: width}
	m.blocks(doc)
	return strings.TrimRight(m.buf.String(), "\n") + "\n"
}

// mdWriter renders block nodes line by line. Nested content (list items,
// block quotes) is rendered by a narrower writer and then prefixed.
type mdWriter struct {
	src   []byte
	st    styles
	width int
	buf   strings.Builder
}

func (m *mdWriter) sub(indent int) *mdWriter {
	return &mdWriter{src: m.src, st: m.st, width: max(m.width-indent, minWidth)}
}

// blocks renders the children of parent separated by blank lines.
func (m *mdWriter) blocks(parent ast.Node) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		m.block(n)
		if n.NextSibling() != nil {
			m.buf.WriteByte('\n')
		}
	}
}

func (m *mdWriter) block(n ast.Node) {
	switch n := n.(type) {
	case *ast.Heading:
		m.line(ansi.Wordwrap(m.st.Heading.Render(m.inline(n)), m.width, ""))
	case *ast.Paragraph, *ast.TextBlock:
		m.line(ansi.Wordwrap(m.inline(n), m.width, ""))
	case *ast.FencedCodeBlock:
		if lang := n.Language(m.src); len(lang) > 0 {
			m.line(m.st.Muted.Render(string(lang)))
		}
		m.raw(n, m.st.Muted.Render("│")+" ")
	case *ast.CodeBlock:
		m.raw(n, m.st.Muted.Render("│")+" ")
	case *ast.HTMLBlock:
		m.raw(n, "")
	case *ast.ThematicBreak:
		m.line(m.st.Muted.Render(strings.Repeat("─", min(m.width, 40))))
	case *ast.List:
		m.list(n)
	case *ast.Blockquote:
		q := m.sub(2)
		q.blocks(n)
		m.prefixed(q, m.st.Muted.Render("│")+" ", m.st.Muted.Render("│")+" ")
	default:
		m.blocks(n)
	}
}

func (m *mdWriter) list(l *ast.List) {
	num := l.Start
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "- "
		if l.IsOrdered() {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		pad := strings.Repeat(" ", len(marker))
		first := marker
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			s := m.sub(len(marker))
			s.block(c)
			m.prefixed(s, first, pad)
			first = pad
		}
	}
}

// prefixed copies the lines of s, putting first before the first line and
// rest before every following non-empty line.
func (m *mdWriter) prefixed(s *mdWriter, first, rest string) {
	out := strings.TrimRight(s.buf.String(), "\n")
	for i, ln := range strings.Split(out, "\n") {
		switch {
		case i == 0:
			m.line(first + ln)
		case ln == "":
			m.line("")
		default:
			m.line(rest + ln)
		}
	}
}

// raw writes the literal lines of a code or HTML block.
func (m *mdWriter) raw(n ast.Node, prefix string) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		m.line(prefix + strings.TrimRight(string(seg.Value(m.src)), "\n"))
	}
}

func (m *mdWriter) line(s string) {
	m.buf.WriteString(s)
	m.buf.WriteByte('\n')
}

func (m *mdWriter) inline(n ast.Node) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(m.src))
			switch {
			case c.HardLineBreak():
				b.WriteByte('\n')
			case c.SoftLineBreak():
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.CodeSpan:
			b.WriteString(m.st.Code.Render(m.inline(c)))
		case *ast.Emphasis:
			if c.Level == 1 {
				b.WriteString(m.st.Italic.Render(m.inline(c)))
			} else {
				b.WriteString(m.st.Bold.Render(m.inline(c)))
			}
		case *ast.Link:
			b.WriteString(m.st.Link.Render(m.inline(c)) + " " + m.st.Muted.Render("("+string(c.Destination)+")"))
		case *ast.Image:
			b.WriteString(m.st.Link.Render(m.inline(c)) + " " + m.st.Muted.Render("("+string(c.Destination)+")"))
		case *ast.AutoLink:
			b.WriteString(m.st.Link.Render(string(c.URL(m.src))))
		case *ast.RawHTML:
			for i := 0; i < c.Segments.Len(); i++ {
				seg := c.Segments.At(i)
				b.Write(seg.Value(m.src))
			}
		default:
			b.WriteString(m.inline(c))
		}
	}
	return b.String()
}
