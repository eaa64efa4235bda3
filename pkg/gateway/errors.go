package gateway

import "fmt"

// ApplicationError is an error reported by the debug server in the body
// of an otherwise successful response.
type ApplicationError struct {
	Op      string
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Op, e.Message)
}

// TransportError wraps a failure to reach the debug server or to read its
// response. The original error is available through errors.Unwrap.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cannot %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ClientError is returned by HTTPPoster for responses with an error
// status that do not carry an error member.
type ClientError struct {
	// Message is the body of the response.
	Message string
	// Status is the HTTP status of the response.
	Status string
}

func (e *ClientError) Error() string {
	if e.Message == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

// RequestError is returned before anything is sent when a required
// request field is missing.
type RequestError struct {
	Field string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("missing required field %s", e.Field)
}
