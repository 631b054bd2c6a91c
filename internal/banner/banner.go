// Package banner prints the startup summary for a pipeline run.
package banner

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/specloop/specloop/internal/config"
)

// ANSI color codes
const (
	reset    = "\033[0m"
	bold     = "\033[1m"
	dim      = "\033[2m"
	blue     = "\033[34m"
	green    = "\033[32m"
	yellow   = "\033[33m"
	boldBlue = "\033[1;34m"
)

// Box drawing characters
const (
	topLeft     = "╭"
	topRight    = "╮"
	bottomLeft  = "╰"
	bottomRight = "╯"
	horizontal  = "─"
	vertical    = "│"
	bullet      = "●"
)

// Banner handles pretty startup output
type Banner struct {
	writer io.Writer
	width  int
}

// New creates a new Banner that writes to stdout
func New() *Banner {
	return &Banner{
		writer: os.Stdout,
		width:  60,
	}
}

// NewWithWriter creates a Banner with a custom writer (for testing)
func NewWithWriter(w io.Writer) *Banner {
	return &Banner{
		writer: w,
		width:  60,
	}
}

// Print displays the pipeline summary: spec, steps, and fix-loop
// settings.
func (b *Banner) Print(p *config.Pipeline) {
	b.printTop()
	b.line(fmt.Sprintf("%s%s%s%s", bold, boldBlue, p.Name, reset), len(p.Name))
	b.line(fmt.Sprintf("%sspec: %s%s", dim, p.Spec, reset), len("spec: ")+len(p.Spec))
	b.separator()

	for _, step := range p.Steps {
		marker := green + bullet + reset
		label := step.Name
		if step.Name == p.FixStep && p.MaxFixIterations > 0 {
			marker = yellow + bullet + reset
			label = fmt.Sprintf("%s (fix loop, up to %d attempt%s)", step.Name, p.MaxFixIterations, pluralize(p.MaxFixIterations))
		}
		b.line(fmt.Sprintf("%s %s", marker, label), 2+len(label))
	}

	b.printBottom()
}

func (b *Banner) printTop() {
	fmt.Fprintf(b.writer, "\n%s%s%s%s%s\n", dim, topLeft, strings.Repeat(horizontal, b.width-2), topRight, reset)
}

func (b *Banner) separator() {
	fmt.Fprintf(b.writer, "%s%s%s%s%s\n", dim, vertical, strings.Repeat(horizontal, b.width-2), vertical, reset)
}

func (b *Banner) printBottom() {
	fmt.Fprintf(b.writer, "%s%s%s%s%s\n\n", dim, bottomLeft, strings.Repeat(horizontal, b.width-2), bottomRight, reset)
}

// line prints one padded row; visual is the printable width of text
// excluding ANSI codes.
func (b *Banner) line(text string, visual int) {
	padding := b.width - visual - 4
	if padding < 0 {
		padding = 0
	}
	fmt.Fprintf(b.writer, "%s%s%s  %s%s%s\n", dim, vertical, reset, text, strings.Repeat(" ", padding), dim+vertical+reset)
}

func pluralize(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
