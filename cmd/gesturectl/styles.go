package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)
)

// printer renders styled lines when w is a terminal and plain text otherwise.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) *printer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &printer{w: w, color: color}
}

func (p *printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *printer) title(format string, args ...any) {
	fmt.Fprintln(p.w, p.style(titleStyle, fmt.Sprintf(format, args...)))
}

func (p *printer) line(name, format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.style(nameStyle, fmt.Sprintf("%-6s", name)), fmt.Sprintf(format, args...))
}

func (p *printer) muted(format string, args ...any) {
	fmt.Fprintln(p.w, p.style(mutedStyle, fmt.Sprintf(format, args...)))
}

func (p *printer) fault(format string, args ...any) {
	fmt.Fprintln(p.w, p.style(errorStyle, fmt.Sprintf(format, args...)))
}
