// Package gateway issues deploy, run and query calls to the REST API of
// a running debug server.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/erdide/nodedebug/pkg/feedback"
	"github.com/erdide/nodedebug/pkg/logflags"
	"github.com/erdide/nodedebug/pkg/vmoutput"
)

const dialogueTag = "debugger-dialogue"

// Settings provides the configuration values the gateway reads on every
// call.
type Settings interface {
	TestnetURL() string
	RestDebuggerPort() int
}

// Gateway sends contract calls to the debug server listening on
// localhost. Calls are independent, a Gateway can be used concurrently.
type Gateway struct {
	settings Settings
	poster   Poster
	feedback feedback.Sink
	log      logflags.Logger
}

// New returns a Gateway. A nil poster defaults to an HTTPPoster over
// http.DefaultClient.
func New(settings Settings, poster Poster, sink feedback.Sink) *Gateway {
	if poster == nil {
		poster = NewHTTPPoster(nil)
	}
	return &Gateway{
		settings: settings,
		poster:   poster,
		feedback: sink,
		log:      logflags.GatewayLogger(),
	}
}

func (g *Gateway) buildURL(relative string) string {
	return fmt.Sprintf("http://localhost:%d/%s", g.settings.RestDebuggerPort(), relative)
}

// Result is the output of a deploy or run call. Raw holds the data
// exactly as the server sent it. Output is only set for run outputs
// decoded locally.
type Result struct {
	Raw    json.RawMessage
	Output *vmoutput.VMOutput
}

// Decoded reports whether the output was decoded.
func (r *Result) Decoded() bool {
	return r != nil && r.Output != nil
}

// MarshalJSON emits the decoded output when there is one and the raw data
// otherwise. A result without data is an empty object.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Output != nil {
		return json.Marshal(r.Output)
	}
	if len(bytes.TrimSpace(r.Raw)) == 0 {
		return []byte("{}"), nil
	}
	return r.Raw, nil
}

// Deploy deploys a contract. The output is returned as received. An error
// reported by the server is shown to the user and an empty result is
// returned. Failing to reach the server returns a *TransportError.
func (g *Gateway) Deploy(ctx context.Context, req *DeployRequest) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	resp, err := g.poster.Post(ctx, g.buildURL("vm-values/deploy"), req.body(g.settings.TestnetURL()), dialogueTag)
	if err != nil {
		g.feedback.Error("Cannot deploy. Please see output channels.")
		return nil, &TransportError{Op: "deploy", Err: err}
	}
	if resp.Error != "" {
		g.log.Debugf("deploy rejected: %s", resp.Error)
		g.feedback.Error(fmt.Sprintf("Deploy error: %s", resp.Error))
		return &Result{}, nil
	}
	return &Result{Raw: resp.Data}, nil
}

// Run calls a contract function. It behaves like Deploy, and the output
// of a call executed on the local debug node is decoded with
// vmoutput.Decode. Outputs from the test network are returned as
// received.
func (g *Gateway) Run(ctx context.Context, req *RunRequest) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	resp, err := g.poster.Post(ctx, g.buildURL("vm-values/run"), req.body(g.settings.TestnetURL()), dialogueTag)
	if err != nil {
		g.feedback.Error("Cannot run. Please see output channels.")
		return nil, &TransportError{Op: "run", Err: err}
	}
	if resp.Error != "" {
		g.log.Debugf("run rejected: %s", resp.Error)
		g.feedback.Error(fmt.Sprintf("Run error: %s", resp.Error))
		return &Result{}, nil
	}
	if req.OnTestnet {
		g.log.Debugf("output of %s received from the test network, not decoding", req.ContractAddress)
		return &Result{Raw: resp.Data}, nil
	}
	out, err := parseOutput(resp.Data)
	if err != nil {
		g.feedback.Error("Cannot run. Please see output channels.")
		return nil, &TransportError{Op: "run", Err: err}
	}
	decoded, err := vmoutput.Decode(out)
	if err != nil {
		g.feedback.Error(fmt.Sprintf("Run error: %v", err))
		return nil, err
	}
	return &Result{Raw: resp.Data, Output: decoded}, nil
}

// Query calls a read-only contract function. The result is returned as
// received, it is not decoded. Both server errors (*ApplicationError) and
// transport errors (*TransportError) are shown to the user and returned.
func (g *Gateway) Query(ctx context.Context, req *QueryRequest) (json.RawMessage, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	resp, err := g.poster.Post(ctx, g.buildURL("vm-values/query"), req.body(g.settings.TestnetURL()), dialogueTag)
	if err != nil {
		g.feedback.Error("Cannot query. Please see output channels.")
		return nil, &TransportError{Op: "query", Err: err}
	}
	if resp.Error != "" {
		g.feedback.Error(fmt.Sprintf("Query error: %s", resp.Error))
		return nil, &ApplicationError{Op: "query", Message: resp.Error}
	}
	return resp.Data, nil
}

func parseOutput(data json.RawMessage) (*vmoutput.VMOutput, error) {
	out := &vmoutput.VMOutput{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("invalid vm output: %v", err)
	}
	return out, nil
}
