// Package nodedebug controls the lifecycle of the local debug server
// started with "erdpy nodedebug".
package nodedebug

import (
	"context"
	"sync"

	"github.com/erdide/nodedebug/pkg/config"
	"github.com/erdide/nodedebug/pkg/events"
	"github.com/erdide/nodedebug/pkg/feedback"
	"github.com/erdide/nodedebug/pkg/launcher"
	"github.com/erdide/nodedebug/pkg/logflags"
	"github.com/erdide/nodedebug/pkg/toolchain"
)

const debuggerTag = "debugger"

// Settings provides the configuration read when the debug server is
// started or stopped.
type Settings interface {
	Config() *config.Config
}

// Config carries the collaborators of a Controller.
type Config struct {
	// WorkingDir is the workspace folder the debug server runs in.
	WorkingDir string

	Settings Settings
	Launcher launcher.Launcher
	Ensurer  toolchain.Ensurer
	Emitter  events.Emitter
	Feedback feedback.Sink
}

// Controller starts and stops the debug server. The running state is
// optimistic: it is set as soon as a start has been requested and cleared
// by a successful stop, the process itself is not tracked.
type Controller struct {
	config *Config
	log    logflags.Logger

	mu      sync.Mutex
	running bool
}

// New returns a Controller for cfg.
func New(cfg *Config) *Controller {
	return &Controller{
		config: cfg,
		log:    logflags.ControllerLogger(),
	}
}

// Start launches the debug server in the workspace folder and returns
// without waiting for it. The returned channel receives the outcome of
// the process once it exits and is then closed. A failure of the process
// is only logged, the user is told the server stopped in every case.
//
// Start returns an error if the erdpy tool is not available. The extra
// arguments are checked when the configuration is loaded or changed, a
// Config built by hand with unparsable arguments also makes Start fail.
func (c *Controller) Start(ctx context.Context) (<-chan error, error) {
	if err := c.config.Ensurer.Require(ctx); err != nil {
		return nil, err
	}
	conf := c.config.Settings.Config()
	extra, err := conf.ExtraArgs()
	if err != nil {
		return nil, err
	}

	cmd := &launcher.Command{
		Program:  conf.ErdpyPath,
		Dir:      c.config.WorkingDir,
		Args:     append([]string{"nodedebug"}, extra...),
		Tag:      debuggerTag,
		Channels: []string{debuggerTag},
	}

	done := make(chan error, 1)
	go func() {
		// The server outlives the request that started it.
		err := c.config.Launcher.Execute(context.Background(), cmd)
		if err != nil {
			c.log.WithError(err).Warn("debug server exited")
		}
		c.config.Feedback.Info("node-debug stopped.")
		done <- err
		close(done)
	}()

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	c.config.Emitter.Emit(events.DebuggerStarted)
	c.config.Feedback.Info("node-debug started.")
	return done, nil
}

// Stop asks the debug server to shut down and waits for the request to
// complete.
func (c *Controller) Stop(ctx context.Context) error {
	if err := c.config.Ensurer.Require(ctx); err != nil {
		return err
	}
	conf := c.config.Settings.Config()
	err := c.config.Launcher.Execute(ctx, &launcher.Command{
		Program:  conf.ErdpyPath,
		Args:     []string{"nodedebug", "--stop"},
		Tag:      debuggerTag,
		Channels: []string{debuggerTag},
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	return nil
}

// Running reports whether a start was requested since the last
// successful stop.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// ToolFolder returns the folder of the nodedebug tool inside the SDK.
func (c *Controller) ToolFolder() string {
	return c.config.Settings.Config().ToolFolder()
}

// ToolPath returns the path of the nodedebug executable inside the SDK.
func (c *Controller) ToolPath() string {
	return c.config.Settings.Config().ToolPath()
}
