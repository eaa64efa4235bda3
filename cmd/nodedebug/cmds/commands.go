package cmds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/erdide/nodedebug/pkg/config"
	"github.com/erdide/nodedebug/pkg/events"
	"github.com/erdide/nodedebug/pkg/feedback"
	"github.com/erdide/nodedebug/pkg/gateway"
	"github.com/erdide/nodedebug/pkg/launcher"
	"github.com/erdide/nodedebug/pkg/logflags"
	"github.com/erdide/nodedebug/pkg/nodedebug"
	"github.com/erdide/nodedebug/pkg/terminal"
	"github.com/erdide/nodedebug/pkg/toolchain"
	"github.com/erdide/nodedebug/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string
	// workingDir is the workspace folder the debug server runs in.
	workingDir string
	// port overrides the rest-debugger-port configuration key.
	port int
	// testnetURL overrides the testnet-url configuration key.
	testnetURL string
	// requestTimeout bounds contract calls, zero means no limit.
	requestTimeout time.Duration

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	deployRequest gateway.DeployRequest
	runRequest    gateway.RunRequest
	queryRequest  gateway.QueryRequest

	conf *config.Config
)

const nodedebugCommandLongDesc = `nodedebug drives the local smart contract debug server.

It starts and stops the server through erdpy and sends deploy, run and query
calls to its REST API. Outputs of local runs are decoded: return data and
storage updates are shown as hex, decimal and text next to the raw base64.

Run 'nodedebug session' for an interactive terminal.`

// New returns an initialized command tree.
func New() *cobra.Command {
	// Config setup and load.
	conf = config.LoadConfig()
	deployRequest, runRequest, queryRequest = gateway.DeployRequest{}, gateway.RunRequest{}, gateway.QueryRequest{}

	// Main nodedebug root command.
	rootCommand = &cobra.Command{
		Use:   "nodedebug",
		Short: "nodedebug controls the smart contract debug server.",
		Long:  nodedebugCommandLongDesc,
	}

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", `Comma separated list of components that should produce debug output (see 'nodedebug help log')`)
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor (see 'nodedebug help log').")
	rootCommand.PersistentFlags().StringVar(&workingDir, "wd", ".", "Workspace folder the debug server runs in.")
	rootCommand.PersistentFlags().IntVar(&port, "port", 0, "Port of the debug server REST API, overrides rest-debugger-port.")
	rootCommand.PersistentFlags().StringVar(&testnetURL, "testnet-url", "", "Test network endpoint, overrides testnet-url.")

	// 'start' subcommand.
	startCommand := &cobra.Command{
		Use:   "start",
		Short: "Starts the debug server and waits for it to exit.",
		Long: `Starts the debug server in the workspace folder.

The command returns when the server exits. Ctrl-C stops the server.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(execute(cmd, startCmd))
		},
	}
	rootCommand.AddCommand(startCommand)

	// 'stop' subcommand.
	stopCommand := &cobra.Command{
		Use:   "stop",
		Short: "Stops the debug server.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(execute(cmd, stopCmd))
		},
	}
	rootCommand.AddCommand(stopCommand)

	// 'deploy' subcommand.
	deployCommand := &cobra.Command{
		Use:   "deploy",
		Short: "Deploys a smart contract.",
		Long: `Deploys a smart contract and prints the VM output as JSON.

The transaction data holds the contract code followed by the deployment
arguments, for example --data 0061736d...@0500@0100.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(execute(cmd, deployCmd))
		},
	}
	deployRequest.BindFlags(deployCommand.Flags())
	deployCommand.Flags().DurationVar(&requestTimeout, "timeout", 0, "Abort the call after the given duration.")
	rootCommand.AddCommand(deployCommand)

	// 'run' subcommand.
	runCommand := &cobra.Command{
		Use:   "run",
		Short: "Calls a function of a deployed contract.",
		Long: `Calls a function of a deployed contract and prints the VM output as JSON.

Outputs of calls executed on the local debug server are decoded, outputs from
the test network (--testnet) are printed as received.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(execute(cmd, runCmd))
		},
	}
	runRequest.BindFlags(runCommand.Flags())
	runCommand.Flags().DurationVar(&requestTimeout, "timeout", 0, "Abort the call after the given duration.")
	rootCommand.AddCommand(runCommand)

	// 'query' subcommand.
	queryCommand := &cobra.Command{
		Use:   "query",
		Short: "Calls a read-only function of a deployed contract.",
		Long: `Calls a read-only function of a deployed contract and prints the result as
returned by the server.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(execute(cmd, queryCmd))
		},
	}
	queryRequest.BindFlags(queryCommand.Flags())
	queryCommand.Flags().DurationVar(&requestTimeout, "timeout", 0, "Abort the call after the given duration.")
	rootCommand.AddCommand(queryCommand)

	// 'session' subcommand.
	sessionCommand := &cobra.Command{
		Use:   "session",
		Short: "Starts an interactive terminal.",
		Long: `Starts an interactive terminal to start and stop the debug server and call
contracts. Type 'help' in the terminal for the list of commands.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(execute(cmd, sessionCmd))
		},
	}
	rootCommand.AddCommand(sessionCommand)

	// 'config' subcommand.
	configCommand := &cobra.Command{
		Use:   "config",
		Short: "Prints the effective configuration.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(execute(cmd, configCmd))
		},
	}
	rootCommand.AddCommand(configCommand)

	// 'version' subcommand.
	var versionVerbose = false
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nodedebug\n%s\n", version.NodeDebugVersion)
			if versionVerbose {
				fmt.Fprintf(cmd.OutOrStdout(), "Build Details: %s\n", version.BuildInfo())
			}
		},
	}
	versionCommand.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "print verbose version info")
	rootCommand.AddCommand(versionCommand)

	rootCommand.AddCommand(&cobra.Command{
		Use:   "log",
		Short: "Help about logging flags.",
		Long: `Logging can be enabled by specifying the --log flag and using the
--log-output flag to select which components should produce logs.

The argument of --log-output must be a comma separated list of component
names selected from this list:


	controller	Log debug server lifecycle and configuration reloads (default)
	gateway		Log requests and responses exchanged with the debug server
	launcher	Log external commands and copy their output
	toolchain	Log erdpy lookups and version checks

Additionally --log-dest can be used to specify where the logs should be
written.
If the argument is a number it will be interpreted as a file descriptor,
otherwise as a file path.

Private keys are never written to the logs.
`,
	})

	rootCommand.DisableAutoGenTag = true

	return rootCommand
}

// app holds the components shared by the subcommands.
type app struct {
	store      *config.Store
	sink       feedback.Sink
	bus        *events.Bus
	controller *nodedebug.Controller
	gateway    *gateway.Gateway
	out        io.Writer
}

func newApp(cmd *cobra.Command, conf *config.Config) (*app, error) {
	path, err := config.ConfigFilePath()
	if err != nil {
		return nil, err
	}
	store := config.NewStore(path, conf)
	flags := cmd.Flags()
	store.SetOverrides(func(c *config.Config) {
		if flags.Changed("port") {
			c.RestDebuggerPort = port
		}
		if flags.Changed("testnet-url") {
			c.TestnetURL = testnetURL
		}
	})

	wd, err := filepath.Abs(workingDir)
	if err != nil {
		return nil, err
	}

	current := store.Config()
	sink := feedback.NewConsole()
	bus := events.NewBus()
	a := &app{
		store: store,
		sink:  sink,
		bus:   bus,
		out:   cmd.OutOrStdout(),
	}
	a.controller = nodedebug.New(&nodedebug.Config{
		WorkingDir: wd,
		Settings:   store,
		Launcher:   &launcher.Exec{PTY: current.UsePTY},
		Ensurer:    toolchain.NewErdpy(current.ErdpyPath, current.ErdpyMinVersion),
		Emitter:    bus,
		Feedback:   sink,
	})
	a.gateway = gateway.New(store, gateway.NewHTTPPoster(&http.Client{}), sink)
	return a, nil
}

type cmdfunc func(ctx context.Context, a *app) int

func execute(cmd *cobra.Command, fn cmdfunc) int {
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer logflags.Close()

	a, err := newApp(cmd, conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return fn(context.Background(), a)
}

func startCmd(ctx context.Context, a *app) int {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.watchConfig(watchCtx)

	exited, err := a.controller.Start(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)

	select {
	case err := <-exited:
		if err != nil {
			return 1
		}
		return 0
	case <-ch:
	}

	if err := a.controller.Stop(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "could not stop the debug server: %v\n", err)
		return 1
	}
	<-exited
	return 0
}

func stopCmd(ctx context.Context, a *app) int {
	if err := a.controller.Stop(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if requestTimeout > 0 {
		return context.WithTimeout(ctx, requestTimeout)
	}
	return context.WithCancel(ctx)
}

func deployCmd(ctx context.Context, a *app) int {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	out, err := a.gateway.Deploy(ctx, &deployRequest)
	return a.printResult(out, err)
}

func runCmd(ctx context.Context, a *app) int {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	out, err := a.gateway.Run(ctx, &runRequest)
	return a.printResult(out, err)
}

func queryCmd(ctx context.Context, a *app) int {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	res, err := a.gateway.Query(ctx, &queryRequest)
	return a.printResult(res, err)
}

// printResult prints v as indented JSON. Application and decoding errors
// were already reported through the feedback sink, the details of the
// others are printed.
func (a *app) printResult(v interface{}, err error) int {
	if err != nil {
		var (
			reqErr       *gateway.RequestError
			transportErr *gateway.TransportError
		)
		if errors.As(err, &reqErr) || errors.As(err, &transportErr) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		return 1
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	fmt.Fprintf(a.out, "%s\n", b)
	return 0
}

func sessionCmd(ctx context.Context, a *app) int {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.watchConfig(watchCtx)

	term := terminal.New(a.controller, a.gateway, a.store)
	status, err := term.Run(ctx)
	if err != nil {
		fmt.Println(err)
	}
	return status
}

func configCmd(ctx context.Context, a *app) int {
	b, err := yaml.Marshal(a.store.Config())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	fmt.Fprintf(a.out, "# %s\n%s", a.store.Path(), b)
	return 0
}

func (a *app) watchConfig(ctx context.Context) {
	if err := a.store.Watch(ctx); err != nil {
		logflags.ControllerLogger().Warnf("configuration changes will not be applied: %v", err)
	}
}
