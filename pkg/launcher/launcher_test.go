package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"
)

// TestHelperProcess is not a real test, it is the program run by the
// other tests of this file.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("NODEDEBUG_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) > 0 {
		args = args[1:]
	}
	switch {
	case len(args) > 0 && args[0] == "fail":
		fmt.Fprintln(os.Stderr, "something went wrong")
		os.Exit(3)
	case len(args) > 0 && args[0] == "pwd":
		wd, _ := os.Getwd()
		fmt.Println(wd)
	default:
		fmt.Println(strings.Join(args, " "))
	}
	os.Exit(0)
}

func helperCommand(t *testing.T, args ...string) *Command {
	t.Setenv("NODEDEBUG_HELPER_PROCESS", "1")
	return &Command{
		Program:  os.Args[0],
		Args:     append([]string{"-test.run=TestHelperProcess", "--"}, args...),
		Tag:      "debugger",
		Channels: []string{"debugger"},
	}
}

func TestExecRelaysOutput(t *testing.T) {
	var out, errb bytes.Buffer
	e := &Exec{Stdout: &out, Stderr: &errb}

	err := e.Execute(context.Background(), helperCommand(t, "nodedebug", "--stop"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "[debugger] nodedebug --stop\n" {
		t.Fatalf("unexpected output %q", got)
	}
	if errb.Len() != 0 {
		t.Fatalf("unexpected stderr %q", errb.String())
	}
}

func TestExecWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	e := &Exec{Stdout: &out, Stderr: &out}
	cmd := helperCommand(t, "pwd")
	cmd.Dir = dir
	cmd.Tag = ""

	if err := e.Execute(context.Background(), cmd); err != nil {
		t.Fatal(err)
	}
	got := strings.TrimSpace(out.String())
	if fi1, err1 := os.Stat(got); err1 != nil {
		t.Fatalf("helper reported %q: %v", got, err1)
	} else if fi2, _ := os.Stat(dir); !os.SameFile(fi1, fi2) {
		t.Fatalf("expected working directory %q, got %q", dir, got)
	}
}

func TestExecFailure(t *testing.T) {
	var out, errb bytes.Buffer
	e := &Exec{Stdout: &out, Stderr: &errb}

	err := e.Execute(context.Background(), helperCommand(t, "fail"))
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected an exit error, got %v", err)
	}
	if exitErr.ExitCode() != 3 {
		t.Fatalf("expected exit code 3, got %d", exitErr.ExitCode())
	}
	if got := errb.String(); got != "[debugger] something went wrong\n" {
		t.Fatalf("unexpected stderr %q", got)
	}
}

func TestExecMissingProgram(t *testing.T) {
	e := &Exec{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	err := e.Execute(context.Background(), &Command{Program: "nodedebug-does-not-exist-anywhere"})
	if err == nil {
		t.Fatal("expected an error for a missing program")
	}
}

func TestExecCancelKillsChildren(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("process groups are not supported on windows")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	e := &Exec{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// The background sleep inherits the output pipes of the shell.
	start := time.Now()
	err = e.Execute(ctx, &Command{Program: sh, Args: []string{"-c", "sleep 5 & wait"}})
	if err == nil {
		t.Fatal("expected an error for a cancelled command")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("Execute returned after %v, the deadline was not honoured", elapsed)
	}
}

func TestCommandString(t *testing.T) {
	c := &Command{Program: "erdpy", Args: []string{"nodedebug", "--stop"}}
	if c.String() != "erdpy nodedebug --stop" {
		t.Fatalf("unexpected %q", c.String())
	}
}
