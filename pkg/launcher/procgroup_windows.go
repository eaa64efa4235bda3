package launcher

import "golang.org/x/sys/execabs"

// killGroupOnCancel keeps the default cancellation, which kills the
// process only.
func killGroupOnCancel(c *execabs.Cmd, newGroup bool) {}
