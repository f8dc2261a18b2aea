package engine

import (
	"time"

	"github.com/deploymenttheory/go-fastboot/fastboot/pkg/sparse"
)

// Op selects how the engine dispatches an action.
type Op int

const (
	OpDownload Op = iota + 1
	OpCommand
	OpQuery
	OpNotice
	OpDownloadSparse
	OpWaitForDisconnect
)

// CmdSize is the command slot size, terminator included. Formatting a
// command at or past this length is a programmer error.
const CmdSize = 64

// Callback observes the device's response to an action. The status it
// returns is the engine's decision: nil continues the walk, anything
// else aborts it. Callbacks may append further actions to the session
// and may request a transport restart.
type Callback func(a *Action, status error, resp string) error

// Action is one queued unit of work. Download payloads are borrowed
// from the caller and must stay alive until Execute returns.
type Action struct {
	Op  Op
	Cmd string

	Data   []byte
	Sparse sparse.File

	// Values holds the acceptable (or rejected) getvar responses for a
	// require/reject query.
	Values []string

	// Product gates a require check to one device model. When set and
	// different from the session's product the check reports IGNORE.
	Product string

	Msg  string
	Func Callback

	start time.Time
}
