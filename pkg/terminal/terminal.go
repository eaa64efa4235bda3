package terminal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-delve/liner"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/erdide/nodedebug/pkg/config"
	"github.com/erdide/nodedebug/pkg/gateway"
)

const (
	historyFile string = ".nodedebug_history"
	prompt      string = "(nodedebug) "

	stopTimeout = 10 * time.Second
)

// Session starts and stops the debug server.
type Session interface {
	Start(ctx context.Context) (<-chan error, error)
	Stop(ctx context.Context) error
	Running() bool
}

// Contracts sends contract calls to the debug server.
type Contracts interface {
	Deploy(ctx context.Context, req *gateway.DeployRequest) (*gateway.Result, error)
	Run(ctx context.Context, req *gateway.RunRequest) (*gateway.Result, error)
	Query(ctx context.Context, req *gateway.QueryRequest) (json.RawMessage, error)
}

// Term represents the terminal running nodedebug.
type Term struct {
	session   Session
	contracts Contracts
	conf      *config.Store
	cmds      *Commands

	prompt string
	line   *liner.State
	stdin  io.Reader
	stdout io.Writer
	dumb   bool

	// exited receives the outcome of the debug server started from this
	// terminal.
	exited <-chan error
}

// New returns a new Term.
func New(session Session, contracts Contracts, conf *config.Store) *Term {
	cmds := DebugCommands()
	if conf == nil {
		conf = config.NewStore("", nil)
	}
	if aliases := conf.Config().Aliases; aliases != nil {
		cmds.Merge(aliases)
	}

	var w io.Writer
	dumb := strings.ToLower(os.Getenv("TERM")) == "dumb"
	if dumb {
		w = os.Stdout
	} else {
		w = colorable.NewColorableStdout()
	}

	return &Term{
		session:   session,
		contracts: contracts,
		conf:      conf,
		cmds:      cmds,
		prompt:    prompt,
		stdin:     os.Stdin,
		stdout:    w,
		dumb:      dumb,
	}
}

// Close returns the terminal to its previous mode.
func (t *Term) Close() {
	if t.line != nil {
		t.line.Close()
	}
}

// Run reads commands until the user exits, then returns the exit status.
func (t *Term) Run(ctx context.Context) (int, error) {
	defer t.Close()

	interactive := false
	if f, ok := t.stdin.(*os.File); ok && !t.dumb {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	var next func() (string, error)
	if interactive {
		t.line = liner.NewLiner()
		t.line.SetCtrlCAborts(true)
		t.line.SetCompleter(t.complete)
		t.readHistory()
		next = t.promptForInput
	} else {
		s := bufio.NewScanner(t.stdin)
		next = func() (string, error) {
			if !s.Scan() {
				if err := s.Err(); err != nil {
					return "", err
				}
				return "", io.EOF
			}
			return s.Text(), nil
		}
	}

	fmt.Fprintln(t.stdout, "Type 'help' for list of commands.")

	for {
		cmdstr, err := next()
		if err != nil {
			if err == liner.ErrPromptAborted {
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(t.stdout, "exit")
				return t.handleExit(ctx, interactive)
			}
			return 1, fmt.Errorf("Prompt for input failed.\n")
		}

		if err := t.cmds.Call(ctx, cmdstr, t); err != nil {
			if _, ok := err.(ExitRequestError); ok {
				return t.handleExit(ctx, interactive)
			}
			fmt.Fprintf(os.Stderr, "Command failed: %s\n", err)
		}
	}
}

func (t *Term) complete(line string) (c []string) {
	if strings.Contains(line, " ") {
		return nil
	}
	return t.cmds.trie.PrefixSearch(strings.ToLower(line))
}

func (t *Term) readHistory() {
	fullHistoryFile, err := config.GetConfigFilePath(historyFile)
	if err != nil {
		fmt.Printf("Unable to load history file: %v.", err)
		return
	}

	f, err := os.Open(fullHistoryFile)
	if err != nil {
		f, err = os.Create(fullHistoryFile)
		if err != nil {
			fmt.Printf("Unable to open history file: %v. History will not be saved for this session.", err)
			return
		}
	}
	t.line.ReadHistory(f)
	f.Close()
}

func (t *Term) writeHistory() {
	fullHistoryFile, err := config.GetConfigFilePath(historyFile)
	if err != nil {
		fmt.Println("Error saving history file:", err)
		return
	}
	if f, err := os.OpenFile(fullHistoryFile, os.O_RDWR|os.O_TRUNC, 0666); err == nil {
		_, err = t.line.WriteHistory(f)
		if err != nil {
			fmt.Println("readline history error:", err)
		}
		f.Close()
	}
}

func (t *Term) promptForInput() (string, error) {
	l, err := t.line.Prompt(t.prompt)
	if err != nil {
		return "", err
	}

	l = strings.TrimSuffix(l, "\n")
	if l != "" {
		t.line.AppendHistory(l)
	}

	return l, nil
}

func yesno(line *liner.State, question string) (bool, error) {
	for {
		answer, err := line.Prompt(question)
		if err != nil {
			return false, err
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		switch answer {
		case "n", "no":
			return false, nil
		case "", "y", "yes":
			return true, nil
		}
	}
}

// handleExit stops the debug server if it was left running. Interactive
// users are asked first.
func (t *Term) handleExit(ctx context.Context, interactive bool) (int, error) {
	if t.line != nil {
		t.writeHistory()
	}

	if !t.session.Running() {
		return 0, nil
	}

	stop := true
	if interactive {
		answer, err := yesno(t.line, "Would you like to stop the debug server? [Y/n] ")
		if err != nil {
			return 2, io.EOF
		}
		stop = answer
	}
	if !stop {
		return 0, nil
	}
	if err := t.session.Stop(ctx); err != nil {
		return 1, err
	}
	if t.exited != nil {
		select {
		case <-t.exited:
		case <-time.After(stopTimeout):
			fmt.Fprintln(os.Stderr, "debug server did not exit")
		}
	}
	return 0, nil
}
