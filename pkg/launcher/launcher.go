// Package launcher runs external tools and relays their output.
package launcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/execabs"

	"github.com/erdide/nodedebug/pkg/logflags"
)

// drainDelay is how long the output of a cancelled command is still
// relayed before its pipes are closed.
const drainDelay = 500 * time.Millisecond

// Command describes one invocation of an external program.
type Command struct {
	Program string
	// Dir is the working directory, the current one if empty.
	Dir  string
	Args []string
	// Tag prefixes every line of output relayed to the user.
	Tag string
	// Channels are the output channels the process output belongs to, they
	// are attached to the log entries of the process.
	Channels []string
}

func (c *Command) String() string {
	return strings.Join(append([]string{c.Program}, c.Args...), " ")
}

// Launcher executes commands.
type Launcher interface {
	// Execute runs cmd and returns once it has exited. A non-zero exit
	// status or a failure to spawn the process is returned as an error.
	Execute(ctx context.Context, cmd *Command) error
}

// Exec is a Launcher backed by os/exec.
type Exec struct {
	// Stdout and Stderr receive the output of the process, prefixed by the
	// command tag. Nil writers default to the standard streams.
	Stdout io.Writer
	Stderr io.Writer
	// PTY runs the process inside a pseudo-terminal, its output is then
	// relayed entirely through Stdout.
	PTY bool

	mu sync.Mutex
}

// Execute implements Launcher.
func (e *Exec) Execute(ctx context.Context, cmd *Command) error {
	logger := logflags.LauncherLogger().WithFields(logflags.Fields{"tag": cmd.Tag, "channels": strings.Join(cmd.Channels, ",")})
	logger.Debugf("executing %s (dir %q)", cmd, cmd.Dir)

	c := execabs.CommandContext(ctx, cmd.Program, cmd.Args...)
	c.Dir = cmd.Dir
	// Cancelling kills the whole process group, the programs started by
	// the tool would otherwise keep the output open.
	killGroupOnCancel(c, !e.PTY)

	var err error
	if e.PTY {
		err = e.runPTY(ctx, c, cmd, logger)
	} else {
		err = e.run(ctx, c, cmd, logger)
	}
	if err != nil {
		logger.WithError(err).Debugf("%s failed", cmd.Program)
		return fmt.Errorf("%s: %w", cmd, err)
	}
	logger.Debugf("%s exited", cmd.Program)
	return nil
}

func (e *Exec) run(ctx context.Context, c *execabs.Cmd, cmd *Command, logger logflags.Logger) error {
	stdout, err := c.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		return err
	}
	if err := c.Start(); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.relay(stdout, e.stdout(), cmd.Tag, logger)
	}()
	go func() {
		defer wg.Done()
		e.relay(stderr, e.stderr(), cmd.Tag, logger)
	}()
	relayed := make(chan struct{})
	go func() {
		wg.Wait()
		close(relayed)
	}()
	// Pipes must be drained before Wait closes them.
	waitRelay(ctx, relayed)
	err = c.Wait()
	<-relayed
	return err
}

// waitRelay returns once done is closed. After ctx is done the relay is
// given drainDelay to finish.
func waitRelay(ctx context.Context, done <-chan struct{}) {
	select {
	case <-done:
		return
	case <-ctx.Done():
	}
	t := time.NewTimer(drainDelay)
	defer t.Stop()
	select {
	case <-done:
	case <-t.C:
	}
}

// relay copies r to w line by line.
func (e *Exec) relay(r io.Reader, w io.Writer, tag string, logger logflags.Logger) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		line := s.Text()
		logger.Debug(line)
		e.mu.Lock()
		if tag != "" {
			fmt.Fprintf(w, "[%s] %s\n", tag, line)
		} else {
			fmt.Fprintln(w, line)
		}
		e.mu.Unlock()
	}
}

func (e *Exec) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Exec) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}
