// Package terminal implements functions for responding to user
// input and dispatching to the debug server.
package terminal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/derekparker/trie"
	"github.com/spf13/pflag"

	"github.com/erdide/nodedebug/pkg/config"
	"github.com/erdide/nodedebug/pkg/gateway"
)

type cmdfunc func(t *Term, ctx context.Context, args string) error

type command struct {
	aliases        []string
	builtinAliases []string
	group          commandGroup
	helpMsg        string
	cmdFn          cmdfunc
}

// Returns true if the command string matches one of the aliases for this command
func (c command) match(cmdstr string) bool {
	for _, v := range c.aliases {
		if v == cmdstr {
			return true
		}
	}
	return false
}

// Commands represents the commands for the nodedebug terminal.
type Commands struct {
	cmds []command
	trie *trie.Trie
}

// DebugCommands returns a Commands struct with default commands defined.
func DebugCommands() *Commands {
	c := &Commands{}

	c.cmds = []command{
		{aliases: []string{"help", "h"}, cmdFn: c.help, helpMsg: `Prints the help message.

	help [command]

Type "help" followed by the name of a command for more information about it.`},
		{aliases: []string{"start"}, group: serverCmds, cmdFn: start, helpMsg: `Starts the debug server.

	start

The server runs in the workspace folder until it is stopped. Its output is relayed with the [debugger] prefix.`},
		{aliases: []string{"stop"}, group: serverCmds, cmdFn: stop, helpMsg: `Stops the debug server.

	stop`},
		{aliases: []string{"status"}, group: serverCmds, cmdFn: status, helpMsg: `Prints whether the debug server was started.

	status

The server is considered running from the moment it is started until it is stopped with "stop".`},
		{aliases: []string{"deploy"}, group: contractCmds, cmdFn: deploy, helpMsg: `Deploys a smart contract.

	deploy --sender <address> --data <code@args> [--value n] [--gas-limit n] [--gas-price n] [--private-key key] [--testnet]

Prints the VM output as JSON.`},
		{aliases: []string{"run", "r"}, group: contractCmds, cmdFn: run, helpMsg: `Calls a function of a deployed contract.

	run --sender <address> --contract <address> --data <function@args> [--value n] [--gas-limit n] [--gas-price n] [--private-key key] [--testnet]

Prints the VM output as JSON. Outputs of local calls include the return data and the storage updates decoded as hex, decimal and text.`},
		{aliases: []string{"query"}, group: contractCmds, cmdFn: query, helpMsg: `Calls a read-only function of a deployed contract.

	query --contract <address> --function <name> [--arg value]... [--testnet]

Prints the result as returned by the server.`},
		{aliases: []string{"config"}, cmdFn: configureCmd, helpMsg: `Changes configuration parameters.

	config -list

Show all configuration parameters.

	config -save

Saves the configuration file to disk, overwriting the current configuration file.

	config <parameter> <value>

Changes the value of a configuration parameter.

	config alias <command> <alias>
	config alias <alias>

Defines <alias> as an alias to <command> or removes an alias.`},
		{aliases: []string{"exit", "quit", "q"}, cmdFn: exitCommand, helpMsg: `Exit the terminal.

	exit

If the debug server was started you will be asked whether to stop it.`},
	}

	c.buildTrie()
	return c
}

func (c *Commands) buildTrie() {
	c.trie = trie.New()
	for _, cmd := range c.cmds {
		for _, alias := range cmd.aliases {
			c.trie.Add(alias, nil)
		}
	}
}

// Find will look up the command function for the given command input.
// If it cannot find the command it will default to noCmdAvailable().
func (c *Commands) Find(cmdstr string) cmdfunc {
	if cmdstr == "" {
		return nullCommand
	}

	for _, v := range c.cmds {
		if v.match(cmdstr) {
			return v.cmdFn
		}
	}

	return noCmdAvailable
}

// Call takes a command to execute.
func (c *Commands) Call(ctx context.Context, cmdstr string, t *Term) error {
	vals := strings.SplitN(strings.TrimSpace(cmdstr), " ", 2)
	cmdname := vals[0]
	var args string
	if len(vals) > 1 {
		args = strings.TrimSpace(vals[1])
	}
	return c.Find(cmdname)(t, ctx, args)
}

// Merge takes aliases defined in the config struct and merges them with the default aliases.
func (c *Commands) Merge(allAliases map[string][]string) {
	for i := range c.cmds {
		if c.cmds[i].builtinAliases != nil {
			c.cmds[i].aliases = append(c.cmds[i].aliases[:0], c.cmds[i].builtinAliases...)
		}
	}
	for i := range c.cmds {
		if aliases, ok := allAliases[c.cmds[i].aliases[0]]; ok {
			if c.cmds[i].builtinAliases == nil {
				c.cmds[i].builtinAliases = make([]string, len(c.cmds[i].aliases))
				copy(c.cmds[i].builtinAliases, c.cmds[i].aliases)
			}
			c.cmds[i].aliases = append(c.cmds[i].aliases, aliases...)
		}
	}
	c.buildTrie()
}

var noCmdError = errors.New("command not available")

func noCmdAvailable(t *Term, ctx context.Context, args string) error {
	return noCmdError
}

func nullCommand(t *Term, ctx context.Context, args string) error {
	return nil
}

func (c *Commands) help(t *Term, ctx context.Context, args string) error {
	if args != "" {
		for _, cmd := range c.cmds {
			for _, alias := range cmd.aliases {
				if alias == args {
					fmt.Fprintln(t.stdout, cmd.helpMsg)
					return nil
				}
			}
		}
		return noCmdError
	}

	fmt.Fprintln(t.stdout, "The following commands are available:")

	for _, cgd := range commandGroupDescriptions {
		fmt.Fprintf(t.stdout, "\n%s:\n", cgd.description)
		w := new(tabwriter.Writer)
		w.Init(t.stdout, 0, 8, 0, '-', 0)
		for _, cmd := range c.cmds {
			if cmd.group != cgd.group {
				continue
			}
			h := cmd.helpMsg
			if idx := strings.Index(h, "\n"); idx >= 0 {
				h = h[:idx]
			}
			if len(cmd.aliases) > 1 {
				fmt.Fprintf(w, "    %s (alias: %s) \t %s\n", cmd.aliases[0], strings.Join(cmd.aliases[1:], " | "), h)
			} else {
				fmt.Fprintf(w, "    %s \t %s\n", cmd.aliases[0], h)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(t.stdout)
	fmt.Fprintln(t.stdout, "Type help followed by a command for full documentation.")
	return nil
}

func start(t *Term, ctx context.Context, args string) error {
	exited, err := t.session.Start(ctx)
	if err != nil {
		return err
	}
	t.exited = exited
	return nil
}

func stop(t *Term, ctx context.Context, args string) error {
	return t.session.Stop(ctx)
}

func status(t *Term, ctx context.Context, args string) error {
	if t.session.Running() {
		fmt.Fprintf(t.stdout, "debug server running, REST API on port %d\n", t.conf.RestDebuggerPort())
	} else {
		fmt.Fprintln(t.stdout, "debug server stopped")
	}
	return nil
}

// parseFlags parses the arguments of a contract command with the flags
// defined by bind.
func parseFlags(t *Term, name, args string, bind func(*pflag.FlagSet)) error {
	argv, err := config.SplitArgs(args)
	if err != nil {
		return err
	}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(t.stdout)
	bind(fs)
	if err := fs.Parse(argv); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments to %q: %s", name, strings.Join(fs.Args(), " "))
	}
	return nil
}

func deploy(t *Term, ctx context.Context, args string) error {
	var req gateway.DeployRequest
	if err := parseFlags(t, "deploy", args, req.BindFlags); err != nil {
		return err
	}
	out, err := t.contracts.Deploy(ctx, &req)
	if err != nil {
		return err
	}
	return t.printJSON(out)
}

func run(t *Term, ctx context.Context, args string) error {
	var req gateway.RunRequest
	if err := parseFlags(t, "run", args, req.BindFlags); err != nil {
		return err
	}
	out, err := t.contracts.Run(ctx, &req)
	if err != nil {
		return err
	}
	return t.printJSON(out)
}

func query(t *Term, ctx context.Context, args string) error {
	var req gateway.QueryRequest
	if err := parseFlags(t, "query", args, req.BindFlags); err != nil {
		return err
	}
	res, err := t.contracts.Query(ctx, &req)
	if err != nil {
		return err
	}
	return t.printJSON(res)
}

func (t *Term) printJSON(v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(t.stdout)
	return err
}

// ExitRequestError is returned when the user
// exits the terminal.
type ExitRequestError struct{}

func (ere ExitRequestError) Error() string {
	return ""
}

func exitCommand(t *Term, ctx context.Context, args string) error {
	return ExitRequestError{}
}
