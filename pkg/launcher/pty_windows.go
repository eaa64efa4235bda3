package launcher

import (
	"context"

	"golang.org/x/sys/execabs"

	"github.com/erdide/nodedebug/pkg/logflags"
)

// runPTY falls back to plain pipes, pseudo-terminals are not available.
func (e *Exec) runPTY(ctx context.Context, c *execabs.Cmd, cmd *Command, logger logflags.Logger) error {
	logger.Warn("pseudo-terminals are not supported on windows, using pipes")
	return e.run(ctx, c, cmd, logger)
}
