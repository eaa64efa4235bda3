package main

import (
	"github.com/erdide/nodedebug/cmd/nodedebug/cmds"
	"github.com/erdide/nodedebug/pkg/version"
)

// Build is the git sha of this binaries build.
var Build string

func main() {
	if Build != "" {
		version.NodeDebugVersion.Build = Build
	}
	cmds.New().Execute()
}
