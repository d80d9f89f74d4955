package conversation

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*CLINotifier)(nil)

// ANSI escape codes for the plain writer fallback.
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	red   = "\033[31m"
	cyan  = "\033[36m"
)

// Printer renders coach lines. display.UI implements it.
type Printer interface {
	PrintChat(text string)
	PrintUrgent(text string)
}

// CLINotifier prints coach messages to the terminal.
type CLINotifier struct {
	log     *logger.Logger
	printer Printer
}

// NewCLINotifier creates a terminal notifier. If printer is nil, messages
// are written to stdout with ANSI formatting.
func NewCLINotifier(log *logger.Logger, printer Printer) *CLINotifier {
	if printer == nil {
		printer = writerPrinter{w: os.Stdout}
	}
	return &CLINotifier{log: log, printer: printer}
}

// Notify prints a normal notification.
func (n *CLINotifier) Notify(ctx context.Context, message string) error {
	n.log.Debug("notify: %s", message)
	n.printer.PrintChat(message)
	return nil
}

// NotifyUrgent prints an urgent notification.
func (n *CLINotifier) NotifyUrgent(ctx context.Context, message string) error {
	n.log.Debug("notify-urgent: %s", message)
	n.printer.PrintUrgent(message)
	return nil
}

type writerPrinter struct{ w io.Writer }

func (p writerPrinter) PrintChat(text string) {
	fmt.Fprintf(p.w, "%s%s%s%s\n", cyan, bold, text, reset)
}

func (p writerPrinter) PrintUrgent(text string) {
	fmt.Fprintf(p.w, "%s%s%s%s\n", red, bold, text, reset)
}
