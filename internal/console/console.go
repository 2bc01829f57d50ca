// Package console provides the bridge.Console implementations used by the
// host: a styled terminal writer and a zap-backed sink.
package console

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// Writer prints guest output verbatim and bridge messages styled, one record
// per line.
type Writer struct {
	mu       sync.Mutex
	out      io.Writer
	logStyle lipgloss.Style
}

// NewWriter creates a console writing to out. Styling degrades to plain text
// when out is not a color terminal.
func NewWriter(out io.Writer) *Writer {
	r := lipgloss.NewRenderer(out)
	return &Writer{
		out:      out,
		logStyle: r.NewStyle().Foreground(lipgloss.Color("6")).Faint(true),
	}
}

// Print writes one flushed block of guest output.
func (w *Writer) Print(text string) {
	w.writeLine(text)
}

// Log writes one bridge message.
func (w *Writer) Log(message string) {
	w.writeLine(w.logStyle.Render(message))
}

func (w *Writer) writeLine(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, _ = io.WriteString(w.out, s)
}

// Zap routes console records to a zap logger. Guest output is logged at info
// level with source=guest, bridge messages with source=bridge.
type Zap struct {
	logger *zap.Logger
}

// NewZap creates a zap-backed console.
func NewZap(logger *zap.Logger) *Zap {
	return &Zap{logger: logger.With(zap.String("component", "console"))}
}

// Print logs one flushed block of guest output.
func (z *Zap) Print(text string) {
	z.logger.Info(text, zap.String("source", "guest"))
}

// Log logs one bridge message.
func (z *Zap) Log(message string) {
	z.logger.Info(message, zap.String("source", "bridge"))
}
