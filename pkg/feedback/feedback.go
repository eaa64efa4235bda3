// Package feedback reports short status messages to the user.
package feedback

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/erdide/nodedebug/pkg/logflags"
)

const (
	terminalHighlightEscapeCode string = "\033[%2dm"
	terminalResetEscapeCode     string = "\033[0m"

	ansiRed  = 31
	ansiCyan = 36
)

// Sink receives user facing notifications. Implementations must not block.
type Sink interface {
	Info(msg string)
	Error(msg string)
}

// Console is a Sink writing informational messages to Out and errors to
// Err. Messages are highlighted when the destination is a terminal.
type Console struct {
	Out io.Writer
	Err io.Writer

	mu     sync.Mutex
	color  bool
	logger logflags.Logger
}

// NewConsole returns a Console writing to the standard output and error.
func NewConsole() *Console {
	return &Console{
		Out:    os.Stdout,
		Err:    os.Stderr,
		color:  isTerminal(os.Stdout) && strings.ToLower(os.Getenv("TERM")) != "dumb",
		logger: logflags.ControllerLogger(),
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd())
}

// Info implements Sink.
func (c *Console) Info(msg string) {
	c.write(c.Out, ansiCyan, msg)
	if c.logger != nil {
		c.logger.WithField("feedback", "info").Debug(msg)
	}
}

// Error implements Sink.
func (c *Console) Error(msg string) {
	c.write(c.Err, ansiRed, msg)
	if c.logger != nil {
		c.logger.WithField("feedback", "error").Debug(msg)
	}
}

func (c *Console) write(w io.Writer, color int, msg string) {
	if w == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.color {
		fmt.Fprintf(w, "%s%s%s\n", fmt.Sprintf(terminalHighlightEscapeCode, color), msg, terminalResetEscapeCode)
		return
	}
	fmt.Fprintln(w, msg)
}
