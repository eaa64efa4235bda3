package logflags

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
)

var controller = false
var gateway = false
var launcher = false
var toolchain = false

var logOut io.WriteCloser

func makeLogger(level logrus.Level, fields Fields) Logger {
	if lf := loggerFactory; lf != nil {
		return lf(level, fields, logOut)
	}
	logger := logrus.New().WithFields(logrus.Fields(fields))
	logger.Logger.Formatter = DefaultFormatter()
	if logOut != nil {
		logger.Logger.Out = logOut
	} else {
		logger.Logger.Out = colorable.NewColorableStderr()
	}
	logger.Logger.Level = level
	return &logrusLogger{logger}
}

func makeFlaggableLogger(flag bool, fields Fields) Logger {
	if !flag {
		return makeLogger(logrus.ErrorLevel, fields)
	}
	return makeLogger(logrus.DebugLevel, fields)
}

// Controller returns true if the session controller should log.
func Controller() bool {
	return controller
}

// ControllerLogger returns a logger for the session controller.
func ControllerLogger() Logger {
	return makeFlaggableLogger(controller, Fields{"layer": "controller"})
}

// Gateway returns true if requests sent to the debug server should be
// logged.
func Gateway() bool {
	return gateway
}

// GatewayLogger returns a logger for the contract call gateway.
func GatewayLogger() Logger {
	return makeFlaggableLogger(gateway, Fields{"layer": "gateway"})
}

// Launcher returns true if the output of spawned processes should be logged.
func Launcher() bool {
	return launcher
}

// LauncherLogger returns a logger for spawned processes.
func LauncherLogger() Logger {
	return makeFlaggableLogger(launcher, Fields{"layer": "launcher"})
}

// Toolchain returns true if dependency checks should be logged.
func Toolchain() bool {
	return toolchain
}

// ToolchainLogger returns a logger for dependency checks.
func ToolchainLogger() Logger {
	return makeFlaggableLogger(toolchain, Fields{"layer": "toolchain"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets debugger flags based on the contents of logstr.
// If logDest is not empty logs will be redirected to the file descriptor or
// file path specified by logDest.
func Setup(logFlag bool, logstr, logDest string) error {
	if logDest != "" {
		n, err := strconv.Atoi(logDest)
		if err == nil {
			logOut = os.NewFile(uintptr(n), "nodedebug-logs")
		} else {
			fh, err := os.Create(logDest)
			if err != nil {
				return fmt.Errorf("could not create log file: %v", err)
			}
			logOut = fh
		}
	}
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(ioutil.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "controller"
	}
	v := strings.Split(logstr, ",")
	for _, logcmd := range v {
		// If adding another value, do make sure to
		// update "Help about logging flags" in commands.go.
		switch logcmd {
		case "controller":
			controller = true
		case "gateway":
			gateway = true
		case "launcher":
			launcher = true
		case "toolchain":
			toolchain = true
		default:
			fmt.Fprintf(os.Stderr, "Warning: unknown log output value %q, run 'nodedebug help log' for usage.\n", logcmd)
		}
	}
	return nil
}

// Close closes the logger output.
func Close() {
	if logOut != nil {
		logOut.Close()
	}
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case error:
		return s.Error()
	}
	return fmt.Sprintf("%v", v)
}
