package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/erdide/nodedebug/pkg/logflags"
)

// Response is the envelope returned by the debug server.
type Response struct {
	// Data is the payload of a successful call.
	Data json.RawMessage
	// Error, when not empty, is the error reported by the server.
	Error string
}

// Poster sends a JSON request and returns the decoded envelope. Failing to
// reach the server or to read its answer is reported as an error,
// application errors are reported in Response.Error.
type Poster interface {
	Post(ctx context.Context, url string, body interface{}, tag string) (*Response, error)
}

// HTTPPoster is a Poster over net/http.
type HTTPPoster struct {
	httpClient *http.Client
}

// NewHTTPPoster returns a Poster using client, http.DefaultClient if nil.
func NewHTTPPoster(client *http.Client) *HTTPPoster {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPoster{httpClient: client}
}

// Post implements Poster.
func (p *HTTPPoster) Post(ctx context.Context, url string, body interface{}, tag string) (*Response, error) {
	logger := logflags.GatewayLogger().WithField("tag", tag)

	jsonString, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	if logflags.Gateway() {
		logger.Debugf("-> POST %s %s", url, redact(jsonString))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonString))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contents, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	logger.Debugf("<- %s %s", resp.Status, contents)

	return parseResponse(resp.StatusCode, resp.Status, contents)
}

// parseResponse reads the envelope of a response. An object with a
// non-empty "error" member is an application error whatever the status,
// its "data" member, when present, is the payload. Otherwise the whole
// body is the payload.
func parseResponse(statusCode int, status string, contents []byte) (*Response, error) {
	if gjson.ValidBytes(contents) {
		r := gjson.ParseBytes(contents)
		if r.IsObject() {
			if e := r.Get("error"); e.Exists() && e.Type != gjson.Null && e.String() != "" {
				msg := e.Raw
				if e.Type == gjson.String {
					msg = e.String()
				}
				return &Response{Error: msg}, nil
			}
		}
	}

	if statusCode < 200 || statusCode > 299 {
		return nil, &ClientError{Message: string(bytes.TrimSpace(contents)), Status: status}
	}

	if len(bytes.TrimSpace(contents)) == 0 {
		return &Response{}, nil
	}
	if !gjson.ValidBytes(contents) {
		return nil, &ClientError{Message: "response is not valid JSON: " + string(contents), Status: status}
	}
	if data := gjson.GetBytes(contents, "data"); data.Exists() {
		return &Response{Data: json.RawMessage(data.Raw)}, nil
	}
	return &Response{Data: json.RawMessage(contents)}, nil
}

// redact removes secrets from a request body before it is logged.
func redact(body []byte) []byte {
	out, err := sjson.DeleteBytes(body, "PrivateKey")
	if err != nil {
		return body
	}
	return out
}
