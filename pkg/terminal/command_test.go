package terminal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/erdide/nodedebug/pkg/config"
	"github.com/erdide/nodedebug/pkg/gateway"
	"github.com/erdide/nodedebug/pkg/vmoutput"
)

type fakeSession struct {
	running bool
	starts  int
	stops   int
	stopErr error
}

func (s *fakeSession) Start(ctx context.Context) (<-chan error, error) {
	s.starts++
	s.running = true
	ch := make(chan error, 1)
	ch <- nil
	close(ch)
	return ch, nil
}

func (s *fakeSession) Stop(ctx context.Context) error {
	s.stops++
	if s.stopErr != nil {
		return s.stopErr
	}
	s.running = false
	return nil
}

func (s *fakeSession) Running() bool { return s.running }

type fakeContracts struct {
	deploy *gateway.DeployRequest
	run    *gateway.RunRequest
	query  *gateway.QueryRequest

	out *gateway.Result
	res json.RawMessage
	err error
}

func (c *fakeContracts) Deploy(ctx context.Context, req *gateway.DeployRequest) (*gateway.Result, error) {
	c.deploy = req
	return c.out, c.err
}

func (c *fakeContracts) Run(ctx context.Context, req *gateway.RunRequest) (*gateway.Result, error) {
	c.run = req
	return c.out, c.err
}

func (c *fakeContracts) Query(ctx context.Context, req *gateway.QueryRequest) (json.RawMessage, error) {
	c.query = req
	return c.res, c.err
}

type FakeTerminal struct {
	*Term
	t         testing.TB
	session   *fakeSession
	contracts *fakeContracts
	out       *bytes.Buffer
}

func newFakeTerminal(t testing.TB, conf *config.Config) *FakeTerminal {
	if conf == nil {
		conf = &config.Config{RestDebuggerPort: 8080}
	}
	ft := &FakeTerminal{
		t:         t,
		session:   &fakeSession{},
		contracts: &fakeContracts{},
		out:       new(bytes.Buffer),
	}
	ft.Term = New(ft.session, ft.contracts, config.NewStore(filepath.Join(t.TempDir(), "config.yml"), conf))
	ft.Term.stdout = ft.out
	return ft
}

func (ft *FakeTerminal) Exec(cmdstr string) (string, error) {
	ft.out.Reset()
	err := ft.cmds.Call(context.Background(), cmdstr, ft.Term)
	return ft.out.String(), err
}

func (ft *FakeTerminal) AssertExec(cmdstr, tgt string) {
	ft.t.Helper()
	out, err := ft.Exec(cmdstr)
	if err != nil {
		ft.t.Fatalf("error executing %q: %v", cmdstr, err)
	}
	if out != tgt {
		ft.t.Fatalf("%q output %q, expected %q", cmdstr, out, tgt)
	}
}

func (ft *FakeTerminal) AssertExecError(cmdstr, tgterr string) {
	ft.t.Helper()
	_, err := ft.Exec(cmdstr)
	if err == nil {
		ft.t.Fatalf("expected error executing %q", cmdstr)
	}
	if !strings.Contains(err.Error(), tgterr) {
		ft.t.Fatalf("expected error %q executing %q, got %q", tgterr, cmdstr, err.Error())
	}
}

func TestCommandDefault(t *testing.T) {
	var (
		cmds = Commands{}
		cmd  = cmds.Find("non-existent-command")
	)

	err := cmd(nil, context.Background(), "")
	if err == nil {
		t.Fatal("cmd() did not default")
	}

	if err.Error() != "command not available" {
		t.Fatal("wrong command output")
	}
}

func TestEmptyLineIsNoop(t *testing.T) {
	var (
		cmds = DebugCommands()
		cmd  = cmds.Find("")
		err  = cmd(nil, context.Background(), "")
	)

	if err != nil {
		t.Error("Null command not returned", err)
	}

	ft := newFakeTerminal(t, nil)
	ft.AssertExec("", "")
	if ft.session.starts != 0 || ft.session.stops != 0 {
		t.Fatal("empty line reached the session")
	}
}

func TestUnknownCommand(t *testing.T) {
	ft := newFakeTerminal(t, nil)
	ft.AssertExecError("break main.go:10", "command not available")
}

func TestHelp(t *testing.T) {
	ft := newFakeTerminal(t, nil)
	out, err := ft.Exec("help")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"Managing the debug server:", "Calling contracts:", "run (alias: r)", "exit (alias: quit | q)"} {
		if !strings.Contains(out, s) {
			t.Errorf("help output does not contain %q:\n%s", s, out)
		}
	}

	out, err = ft.Exec("help query")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Calls a read-only function") {
		t.Errorf("unexpected help for query: %q", out)
	}
	ft.AssertExecError("help nothing", "command not available")
}

func TestStartStopStatus(t *testing.T) {
	ft := newFakeTerminal(t, &config.Config{RestDebuggerPort: 9191})
	ft.AssertExec("status", "debug server stopped\n")
	ft.AssertExec("start", "")
	if ft.exited == nil {
		t.Fatal("completion channel not kept")
	}
	ft.AssertExec("status", "debug server running, REST API on port 9191\n")
	ft.AssertExec("stop", "")
	ft.AssertExec("status", "debug server stopped\n")

	ft.session.stopErr = errors.New("exit status 1")
	ft.AssertExecError("stop", "exit status 1")
}

func TestDeployCommand(t *testing.T) {
	ft := newFakeTerminal(t, nil)
	ft.contracts.out = &gateway.Result{Raw: json.RawMessage(`{"ReturnData": ["AQ=="]}`)}

	out, err := ft.Exec(`deploy --sender erd1sender --value 10 --gas-limit 500000 --data "0061736d@0500"`)
	if err != nil {
		t.Fatal(err)
	}
	req := ft.contracts.deploy
	if req.SenderAddress != "erd1sender" || req.Value.Cmp(big.NewInt(10)) != 0 || req.GasLimit != 500000 || req.TransactionData != "0061736d@0500" || req.OnTestnet {
		t.Fatalf("unexpected request %#v", req)
	}
	if out != "{\n  \"ReturnData\": [\n    \"AQ==\"\n  ]\n}\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunCommand(t *testing.T) {
	ft := newFakeTerminal(t, nil)
	decoded, err := vmoutput.Decode(&vmoutput.VMOutput{ReturnData: []string{"AQ=="}})
	if err != nil {
		t.Fatal(err)
	}
	ft.contracts.out = &gateway.Result{Output: decoded}

	out, err := ft.Exec("r --sender erd1sender --contract erd1contract --data add@01 --testnet")
	if err != nil {
		t.Fatal(err)
	}
	req := ft.contracts.run
	if req.ContractAddress != "erd1contract" || !req.OnTestnet || req.TransactionData != "add@01" {
		t.Fatalf("unexpected request %#v", req)
	}
	var printed map[string]interface{}
	if err := json.Unmarshal([]byte(out), &printed); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if !reflect.DeepEqual(printed["ReturnDataHex"], []interface{}{"01"}) {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestQueryCommand(t *testing.T) {
	ft := newFakeTerminal(t, nil)
	ft.contracts.res = json.RawMessage(`{"ReturnData":["AQ=="]}`)

	out, err := ft.Exec(`query --contract erd1contract --function getSum --arg 1 --arg "a b"`)
	if err != nil {
		t.Fatal(err)
	}
	req := ft.contracts.query
	if req.FunctionName != "getSum" || !reflect.DeepEqual(req.Arguments, []string{"1", "a b"}) {
		t.Fatalf("unexpected request %#v", req)
	}
	if out != "{\n  \"ReturnData\": [\n    \"AQ==\"\n  ]\n}\n" {
		t.Fatalf("unexpected output %q", out)
	}

	ft.contracts.err = &gateway.ApplicationError{Op: "query", Message: "no such function"}
	ft.AssertExecError("query --contract erd1contract --function nope", "no such function")
}

func TestContractCommandArguments(t *testing.T) {
	ft := newFakeTerminal(t, nil)
	ft.AssertExecError("deploy --nonexistent", "unknown flag")
	ft.AssertExecError("deploy --sender erd1 stray", "unexpected arguments")
	ft.AssertExecError("deploy --value -5", "invalid value")
	ft.AssertExecError("run --sender `whoami`", "backtick")
	if ft.contracts.deploy != nil || ft.contracts.run != nil {
		t.Fatal("request sent with invalid arguments")
	}
}

func TestConfig(t *testing.T) {
	ft := newFakeTerminal(t, &config.Config{RestDebuggerPort: 8080, TestnetURL: "http://one"})

	ft.AssertExec("config rest-debugger-port 9090", "")
	if ft.conf.RestDebuggerPort() != 9090 {
		t.Fatalf("port not changed: %d", ft.conf.RestDebuggerPort())
	}
	ft.AssertExec("config testnet-url http://two", "")
	if ft.conf.TestnetURL() != "http://two" {
		t.Fatalf("testnet url not changed: %q", ft.conf.TestnetURL())
	}
	ft.AssertExec("config use-pty true", "")
	if !ft.conf.Config().UsePTY {
		t.Fatal("use-pty not changed")
	}

	ft.AssertExecError("config rest-debugger-port abc", "must be a number")
	ft.AssertExecError("config rest-debugger-port 0", "greater than zero")
	ft.AssertExecError("config nonexistent 1", "not a configuration parameter")
	ft.AssertExecError("config", "wrong number of arguments")

	out, err := ft.Exec("config -list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "rest-debugger-port 9090") || !strings.Contains(out, "testnet-url        http://two") {
		t.Fatalf("unexpected list output:\n%s", out)
	}

	ft.AssertExec("config -save", "")
	saved, err := config.LoadConfigFile(ft.conf.Path())
	if err != nil {
		t.Fatal(err)
	}
	if saved.RestDebuggerPort != 9090 {
		t.Fatalf("saved port %d", saved.RestDebuggerPort)
	}
}

func TestConfigRejectsInvalidNodeDebugArgs(t *testing.T) {
	ft := newFakeTerminal(t, &config.Config{NodeDebugArgs: "--port 8080"})
	ft.AssertExecError("config nodedebug-args --verbose | tee log", `invalid nodedebug-args "--verbose | tee log"`)
	if got := ft.conf.Config().NodeDebugArgs; got != "--port 8080" {
		t.Fatalf("invalid arguments stored: %q", got)
	}
	ft.AssertExec("config nodedebug-args --port 9090", "")
	if got := ft.conf.Config().NodeDebugArgs; got != "--port 9090" {
		t.Fatalf("arguments not stored: %q", got)
	}
}

func TestConfigAlias(t *testing.T) {
	ft := newFakeTerminal(t, nil)
	ft.AssertExecError("launch", "command not available")
	ft.AssertExec("config alias start launch", "")
	ft.AssertExec("launch", "")
	if ft.session.starts != 1 {
		t.Fatal("alias did not start the server")
	}
	ft.AssertExec("config alias launch", "")
	ft.AssertExecError("launch", "command not available")
}

func TestAliasesFromConfig(t *testing.T) {
	ft := newFakeTerminal(t, &config.Config{Aliases: map[string][]string{"status": {"st"}}})
	ft.AssertExec("st", "debug server stopped\n")
}

func TestComplete(t *testing.T) {
	ft := newFakeTerminal(t, nil)
	got := ft.complete("st")
	sort.Strings(got)
	if want := []string{"start", "status", "stop"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("complete(st) = %v, want %v", got, want)
	}
	if got := ft.complete("run --s"); got != nil {
		t.Fatalf("completed arguments: %v", got)
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	DebugCommands().WriteMarkdown(&buf)
	out := buf.String()
	for _, s := range []string{"## Calling contracts", "[deploy](#deploy) | Deploys a smart contract.", "## exit\n", "Aliases: quit q"} {
		if !strings.Contains(out, s) {
			t.Errorf("markdown does not contain %q", s)
		}
	}
}
