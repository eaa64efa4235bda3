// Package toolchain makes sure the external SDK tools nodedebug relies on
// are installed.
package toolchain

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sys/execabs"

	"github.com/erdide/nodedebug/pkg/logflags"
)

// Ensurer checks that a dependency is available.
type Ensurer interface {
	Require(ctx context.Context) error
}

// MissingError is returned when a required tool is not installed or is
// too old.
type MissingError struct {
	Program string
	Reason  string
	Err     error
}

func (e *MissingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s is required: %s: %v", e.Program, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s is required: %s", e.Program, e.Reason)
}

func (e *MissingError) Unwrap() error { return e.Err }

// Erdpy is the Ensurer for the erdpy command line tool.
// A successful check is remembered, failures are retried on the next call.
type Erdpy struct {
	// Program is the erdpy executable name or path.
	Program string
	// MinVersion, if not empty, is the lowest accepted version.
	MinVersion string

	lookPath      func(file string) (string, error)
	versionOutput func(ctx context.Context, program string) ([]byte, error)

	mu sync.Mutex
	ok bool
}

// NewErdpy returns an Ensurer for the given erdpy executable.
func NewErdpy(program, minVersion string) *Erdpy {
	return &Erdpy{
		Program:       program,
		MinVersion:    minVersion,
		lookPath:      execabs.LookPath,
		versionOutput: runVersion,
	}
}

func runVersion(ctx context.Context, program string) ([]byte, error) {
	return execabs.CommandContext(ctx, program, "--version").CombinedOutput()
}

var versionRegexp = regexp.MustCompile(`\d+\.\d+(\.\d+)?(-[0-9A-Za-z.-]+)?`)

// Require implements Ensurer.
func (e *Erdpy) Require(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ok {
		return nil
	}

	logger := logflags.ToolchainLogger()

	path, err := e.lookPath(e.Program)
	if err != nil {
		return &MissingError{Program: e.Program, Reason: "not found, please install it", Err: err}
	}
	logger.Debugf("found %s at %s", e.Program, path)

	if e.MinVersion != "" {
		constraint, err := semver.NewConstraint(">= " + e.MinVersion)
		if err != nil {
			return fmt.Errorf("invalid minimum version %q: %v", e.MinVersion, err)
		}
		out, err := e.versionOutput(ctx, path)
		if err != nil {
			return &MissingError{Program: e.Program, Reason: "could not determine version", Err: err}
		}
		m := versionRegexp.Find(out)
		if m == nil {
			return &MissingError{Program: e.Program, Reason: fmt.Sprintf("could not determine version from %q", out)}
		}
		v, err := semver.NewVersion(string(m))
		if err != nil {
			return &MissingError{Program: e.Program, Reason: "could not determine version", Err: err}
		}
		if !constraint.Check(v) {
			return &MissingError{Program: e.Program, Reason: fmt.Sprintf("version %s installed, %s or later needed", v, e.MinVersion)}
		}
		logger.Debugf("%s version %s", e.Program, v)
	}

	e.ok = true
	return nil
}
