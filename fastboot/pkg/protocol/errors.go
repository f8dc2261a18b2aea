package protocol

import "fmt"

// RemoteError is a terminal FAIL response from the device. Reason holds
// the payload text exactly as received, which callbacks inspect for the
// pre-update re-enumeration marker.
type RemoteError struct {
	Reason string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote failure: %s", e.Reason)
}
