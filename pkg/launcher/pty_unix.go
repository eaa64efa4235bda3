//go:build !windows
// +build !windows

package launcher

import (
	"context"

	"github.com/creack/pty"
	"golang.org/x/sys/execabs"

	"github.com/erdide/nodedebug/pkg/logflags"
)

func (e *Exec) runPTY(ctx context.Context, c *execabs.Cmd, cmd *Command, logger logflags.Logger) error {
	f, err := pty.Start(c)
	if err != nil {
		return err
	}
	relayed := make(chan struct{})
	go func() {
		defer close(relayed)
		// Reading the master side fails with EIO once the process exits
		// and the slave side is closed, which ends the relay.
		e.relay(f, e.stdout(), cmd.Tag, logger)
	}()
	waitRelay(ctx, relayed)
	err = c.Wait()
	f.Close()
	<-relayed
	return err
}
