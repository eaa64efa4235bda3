package terminal

type commandGroup uint8

const (
	otherCmds commandGroup = iota
	serverCmds
	contractCmds
)

type commandGroupDescription struct {
	description string
	group       commandGroup
}

var commandGroupDescriptions = []commandGroupDescription{
	{"Managing the debug server", serverCmds},
	{"Calling contracts", contractCmds},
	{"Other commands", otherCmds},
}
