// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/ref"
)

// TranscriptOptions configures a [Transcript].
type TranscriptOptions struct {
	// Color enables ANSI styling. Without it the output is plain
	// text, suitable for files and pipes.
	Color bool
	// Width is the wrap width of message bodies. Zero means 80.
	Width int
	// Self is the bot's own atom; its messages are styled apart from
	// the counterpart's.
	Self ref.AtomID
}

// Transcript renders conversation messages for a terminal. Message
// text is treated as markdown: the bot's usage listing is a heading
// followed by a bullet list. Safe for concurrent use.
type Transcript struct {
	mu       sync.Mutex
	out      io.Writer
	width    int
	self     ref.AtomID
	renderer *lipgloss.Renderer
	markdown goldmark.Markdown
}

// NewTranscript returns a Transcript writing to out.
func NewTranscript(out io.Writer, options TranscriptOptions) *Transcript {
	profile := termenv.Ascii
	if options.Color {
		profile = termenv.ANSI256
	}
	// SetColorProfile pins the profile; lipgloss otherwise re-detects
	// it from the environment.
	renderer := lipgloss.NewRenderer(out, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	if options.Width <= 0 {
		options.Width = 80
	}
	return &Transcript{
		out:      out,
		width:    options.Width,
		self:     options.Self,
		renderer: renderer,
		markdown: goldmark.New(),
	}
}

// Write renders message and writes it followed by a newline.
func (t *Transcript) Write(message convlog.Message) error {
	rendered := t.Render(message)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := io.WriteString(t.out, rendered+"\n"); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	return nil
}

// Render returns the styled form of message: a header line with time,
// sender, speech act and targets, then the indented body.
func (t *Transcript) Render(message convlog.Message) string {
	senderStyle := t.renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	if message.Sender == t.self {
		senderStyle = t.renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	}
	faint := t.renderer.NewStyle().Faint(true)

	var header strings.Builder
	header.WriteString(faint.Render(message.Timestamp.UTC().Format("15:04:05")))
	header.WriteString(" ")
	header.WriteString(senderStyle.Render(message.Sender.String()))
	if message.Act != convlog.Plain {
		targets := make([]string, 0, len(message.Effects))
		for _, effect := range message.Effects {
			targets = append(targets, effect.String())
		}
		act := t.renderer.NewStyle().Foreground(lipgloss.Color("170")).Render(message.Act.String())
		header.WriteString(" " + act)
		if len(targets) > 0 {
			header.WriteString(faint.Render(" → " + strings.Join(targets, ", ")))
		}
	}
	header.WriteString(faint.Render(" (" + message.ID.String() + ")"))

	body := t.renderMarkdown(message.Text)
	if body == "" {
		return header.String()
	}
	lines := strings.Split(body, "\n")
	for index, line := range lines {
		lines[index] = "  " + line
	}
	return header.String() + "\n" + strings.Join(lines, "\n")
}

func (t *Transcript) renderMarkdown(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	source := []byte(input)
	document := t.markdown.Parser().Parse(text.NewReader(source))
	walker := &markdownWalker{
		source:   source,
		width:    t.width - 2,
		renderer: t.renderer,
	}
	_ = ast.Walk(document, walker.walk)
	return strings.TrimRight(walker.output.String(), "\n")
}

// markdownWalker turns the small markdown subset bot messages use
// into styled lines: headings, paragraphs, lists, emphasis and code
// spans. Anything else renders as its plain text.
type markdownWalker struct {
	source   []byte
	width    int
	renderer *lipgloss.Renderer

	output strings.Builder
	inline strings.Builder

	boldCount   int
	italicCount int

	// bullets holds the marker of each open list; counters the next
	// number of ordered ones.
	bullets       []string
	counters      []int
	pendingBullet string
}

func (walker *markdownWalker) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {
	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			walker.inline.Reset()
		} else {
			walker.flush(walker.inline.String())
		}

	case ast.KindHeading:
		if entering {
			walker.inline.Reset()
		} else {
			content := ansi.Strip(walker.inline.String())
			walker.inline.Reset()
			walker.flush(walker.renderer.NewStyle().Bold(true).Underline(true).Render(content))
		}

	case ast.KindList:
		list := node.(*ast.List)
		if entering {
			marker := "• "
			if list.IsOrdered() {
				marker = ""
			}
			walker.bullets = append(walker.bullets, marker)
			walker.counters = append(walker.counters, list.Start)
		} else {
			walker.bullets = walker.bullets[:len(walker.bullets)-1]
			walker.counters = walker.counters[:len(walker.counters)-1]
		}

	case ast.KindListItem:
		if entering {
			depth := len(walker.bullets) - 1
			marker := walker.bullets[depth]
			if marker == "" {
				marker = fmt.Sprintf("%d. ", walker.counters[depth])
				walker.counters[depth]++
			}
			walker.pendingBullet = strings.Repeat("  ", depth) + marker
		}

	case ast.KindText:
		if entering {
			segment := node.(*ast.Text)
			walker.inline.WriteString(walker.styled(string(segment.Segment.Value(walker.source))))
			switch {
			case segment.HardLineBreak():
				walker.inline.WriteString("\n")
			case segment.SoftLineBreak():
				walker.inline.WriteString(" ")
			}
		}

	case ast.KindString:
		if entering {
			walker.inline.WriteString(walker.styled(string(node.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		emphasis := node.(*ast.Emphasis)
		delta := -1
		if entering {
			delta = 1
		}
		if emphasis.Level >= 2 {
			walker.boldCount += delta
		} else {
			walker.italicCount += delta
		}

	case ast.KindCodeSpan:
		if entering {
			var code strings.Builder
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				if segment, ok := child.(*ast.Text); ok {
					code.Write(segment.Segment.Value(walker.source))
				}
			}
			walker.inline.WriteString(walker.renderer.NewStyle().Foreground(lipgloss.Color("114")).Render(code.String()))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		if entering {
			var code strings.Builder
			lines := node.Lines()
			for index := 0; index < lines.Len(); index++ {
				segment := lines.At(index)
				code.Write(segment.Value(walker.source))
			}
			faint := walker.renderer.NewStyle().Faint(true)
			for _, line := range strings.Split(strings.TrimRight(code.String(), "\n"), "\n") {
				walker.output.WriteString(faint.Render(line) + "\n")
			}
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (walker *markdownWalker) styled(content string) string {
	if walker.boldCount == 0 && walker.italicCount == 0 {
		return content
	}
	return walker.renderer.NewStyle().
		Bold(walker.boldCount > 0).
		Italic(walker.italicCount > 0).
		Render(content)
}

// flush wraps content, prefixes it with the pending list bullet, and
// appends it to the output as one block.
func (walker *markdownWalker) flush(content string) {
	walker.inline.Reset()
	content = strings.TrimRight(content, " \n")
	if content == "" {
		return
	}
	bullet := walker.pendingBullet
	walker.pendingBullet = ""
	indent := ""
	if depth := len(walker.bullets); depth > 0 {
		indent = strings.Repeat("  ", depth)
	}
	width := walker.width - len(indent)
	if width < 10 {
		width = 10
	}
	wrapped := ansi.Wrap(content, width, " ,.;-+|")
	for index, line := range strings.Split(wrapped, "\n") {
		switch {
		case index == 0 && bullet != "":
			walker.output.WriteString(bullet)
		default:
			walker.output.WriteString(indent)
		}
		walker.output.WriteString(line + "\n")
	}
}
