package engine

import (
	"fmt"
	"time"

	"github.com/deploymenttheory/go-fastboot/fastboot/pkg/sparse"
)

// Transport is the capability set the walk needs from the device side.
// Each method returns the terminal response payload (the OKAY payload
// on success, the FAIL reason on failure) together with the error.
// protocol.Client satisfies this interface.
type Transport interface {
	SendCommand(cmd string) (string, error)
	Download(data []byte) (string, error)
	DownloadSparse(s sparse.File) (string, error)
	WaitForDisconnect() error
}

// ReopenFunc produces a fresh Transport after the device re-enumerated.
type ReopenFunc func() (Transport, error)

// Execute drains the action queue head to tail against t. Actions
// appended by callbacks during the walk are visited in order after the
// tail they were appended to. The first non-nil callback result aborts
// the walk and is returned; the remaining actions are left queued but
// never dispatched.
func (s *Session) Execute(t Transport) error {
	if len(s.actions) == 0 {
		return nil
	}

	var start time.Time
	var status error

	for i := 0; i < len(s.actions); i++ {
		a := s.actions[i]

		if s.restart {
			if s.reopen == nil {
				return fmt.Errorf("device requested a transport restart but no reopen factory is configured")
			}
			s.log.Debugw("reopening transport after device restart")
			nt, err := s.reopen()
			if err != nil {
				return fmt.Errorf("reopen transport: %w", err)
			}
			t = nt
			s.restart = false
		}

		a.start = s.now()
		if start.IsZero() {
			start = a.start
		}
		if a.Msg != "" {
			fmt.Fprintf(s.out, "%s...\n", a.Msg)
		}

		switch a.Op {
		case OpDownload:
			resp, err := t.Download(a.Data)
			status = a.Func(a, err, failText(err, resp))
		case OpCommand:
			resp, err := t.SendCommand(a.Cmd)
			status = a.Func(a, err, failText(err, resp))
		case OpQuery:
			resp, err := t.SendCommand(a.Cmd)
			status = a.Func(a, err, queryText(err, resp))
		case OpNotice:
			fmt.Fprintf(s.out, "%s\n", a.Data)
			status = nil
		case OpDownloadSparse:
			resp, err := t.DownloadSparse(a.Sparse)
			status = a.Func(a, err, failText(err, resp))
		case OpWaitForDisconnect:
			if err := t.WaitForDisconnect(); err != nil {
				s.log.Debugw("wait for disconnect", "error", err)
			}
			status = nil
		default:
			panic("bogus action")
		}

		if status != nil {
			break
		}
	}

	fmt.Fprintf(s.out, "finished. total time: %.3fs\n", s.now().Sub(start).Seconds())
	return status
}

// failText is the response handed to Download/Command callbacks: the
// failure description on error, "" on success.
func failText(err error, resp string) string {
	if err == nil {
		return ""
	}
	if resp != "" {
		return resp
	}
	return err.Error()
}

// queryText is the response handed to Query callbacks: the response
// payload on success, the failure description otherwise.
func queryText(err error, resp string) string {
	if err != nil {
		return failText(err, resp)
	}
	return resp
}
