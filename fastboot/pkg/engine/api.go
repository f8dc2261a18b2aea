package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/deploymenttheory/go-fastboot/fastboot/pkg/sparse"
)

// MaxPayload is the largest binary payload one download action can
// carry; the wire protocol only has 32-bit lengths, so anything larger
// must be split before it is queued.
const MaxPayload = math.MaxUint32

// QueueFlash queues a download of data followed by a flash of the named
// partition. The buffer is borrowed and must stay alive until Execute
// returns.
func (s *Session) QueueFlash(partition string, data []byte) error {
	if err := checkPayload(len(data)); err != nil {
		return err
	}
	a := s.queueAction(OpDownload, "")
	a.Data = data
	a.Msg = fmt.Sprintf("sending '%s' (%d KB)", partition, len(data)/1024)

	a = s.queueAction(OpCommand, "flash:%s", partition)
	a.Msg = fmt.Sprintf("writing '%s'", partition)
	return nil
}

// QueueFlashSparse queues one chunk of a sparse flash, annotated with
// its position in the chunk sequence.
func (s *Session) QueueFlashSparse(partition string, sf sparse.File, size uint32, current, total int) {
	a := s.queueAction(OpDownloadSparse, "")
	a.Sparse = sf
	a.Msg = fmt.Sprintf("sending sparse '%s' %d/%d (%d KB)", partition, current, total, size/1024)

	a = s.queueAction(OpCommand, "flash:%s", partition)
	a.Msg = fmt.Sprintf("writing '%s' %d/%d", partition, current, total)
}

// QueueFlashZip queues a download plus a "flash:zip" command whose
// result is routed to cb. Used by the compound-image drivers, which
// chain the next sub-image from cb.
func (s *Session) QueueFlashZip(name string, data []byte, cb Callback) error {
	if err := checkPayload(len(data)); err != nil {
		return err
	}
	a := s.queueAction(OpDownload, "")
	a.Data = data
	a.Msg = fmt.Sprintf("sending '%s' (%d KB)", name, len(data)/1024)

	a = s.queueAction(OpCommand, "flash:%s", "zip")
	a.Func = cb
	a.Msg = fmt.Sprintf("writing '%s'", name)
	return nil
}

// QueueDownload queues a bare named download with no flash command.
func (s *Session) QueueDownload(name string, data []byte) error {
	if err := checkPayload(len(data)); err != nil {
		return err
	}
	a := s.queueAction(OpDownload, "")
	a.Data = data
	a.Msg = fmt.Sprintf("downloading '%s'", name)
	return nil
}

// QueueRequire queues a getvar check. The action succeeds when the
// device's value matches any entry of values (prefix match for entries
// ending in '*'), or, when the getvar itself succeeded, whenever product
// is set and differs from the session's product. A failed getvar fails
// the action either way. With invert the verdict is negated, turning the
// value set into a reject list.
func (s *Session) QueueRequire(product, variable string, invert bool, values []string) {
	a := s.queueAction(OpQuery, "getvar:%s", variable)
	a.Product = product
	a.Values = values
	a.Msg = fmt.Sprintf("checking %s", variable)
	if invert {
		a.Func = s.cbReject
	} else {
		a.Func = s.cbRequire
	}
}

// QueueDisplay queues a getvar whose value is printed as
// "<pretty>: <value>".
func (s *Session) QueueDisplay(variable, pretty string) {
	a := s.queueAction(OpQuery, "getvar:%s", variable)
	a.Func = func(a *Action, status error, resp string) error {
		if status != nil {
			fmt.Fprintf(s.out, "%s FAILED (%s)\n", a.Cmd, resp)
			return status
		}
		fmt.Fprintf(s.out, "%s: %s\n", pretty, resp)
		return nil
	}
}

// QueueQuerySave queues a getvar whose value is copied into dest. At
// most len(dest) bytes are copied; a response that fills the buffer is
// not terminated or otherwise marked.
func (s *Session) QueueQuerySave(variable string, dest []byte) {
	a := s.queueAction(OpQuery, "getvar:%s", variable)
	a.Func = func(a *Action, status error, resp string) error {
		if status != nil {
			fmt.Fprintf(s.out, "%s FAILED (%s)\n", a.Cmd, resp)
			return status
		}
		copy(dest, resp)
		return nil
	}
}

// QueueReboot queues the reboot command. The device usually drops the
// connection instead of answering, so the result is ignored.
func (s *Session) QueueReboot() {
	a := s.queueAction(OpCommand, "reboot")
	a.Msg = "rebooting"
	a.Func = func(*Action, error, string) error {
		fmt.Fprintf(s.out, "\n")
		return nil
	}
}

// QueueSetActive queues selection of the active slot.
func (s *Session) QueueSetActive(slot string) {
	a := s.queueAction(OpCommand, "set_active:%s", slot)
	a.Msg = fmt.Sprintf("Setting current slot to '%s'", slot)
}

// QueueErase queues erasure of a partition.
func (s *Session) QueueErase(partition string) {
	a := s.queueAction(OpCommand, "erase:%s", partition)
	a.Msg = fmt.Sprintf("erasing '%s'", partition)
}

// QueueCommand queues a raw command with a caller-supplied message.
func (s *Session) QueueCommand(cmd, msg string) {
	a := s.queueAction(OpCommand, cmd)
	a.Msg = msg
}

// QueueNotice queues a text line printed between device operations.
func (s *Session) QueueNotice(text string) {
	a := s.queueAction(OpNotice, "")
	a.Data = []byte(text)
}

// QueueWaitForDisconnect queues a block on the transport's disconnect
// observer.
func (s *Session) QueueWaitForDisconnect() {
	s.queueAction(OpWaitForDisconnect, "")
}

func checkPayload(n int) error {
	if uint64(n) > MaxPayload {
		return fmt.Errorf("payload size %d exceeds the 32-bit protocol limit", n)
	}
	return nil
}

func (s *Session) cbRequire(a *Action, status error, resp string) error {
	return s.cbCheck(a, status, resp, false)
}

func (s *Session) cbReject(a *Action, status error, resp string) error {
	return s.cbCheck(a, status, resp, true)
}

func (s *Session) cbCheck(a *Action, status error, resp string, invert bool) error {
	if status != nil {
		s.Fail(resp)
		return status
	}

	if a.Product != "" && a.Product != s.product {
		split := s.now()
		fmt.Fprintf(s.out, "IGNORE, product is %s required only for %s [%7.3fs]\n",
			s.product, a.Product, split.Sub(a.start).Seconds())
		a.start = split
		return nil
	}

	yes := match(resp, a.Values)
	if invert {
		yes = !yes
	}
	if yes {
		s.Okay(a)
		return nil
	}

	variable := strings.TrimPrefix(a.Cmd, "getvar:")
	verb := "requires"
	if invert {
		verb = "rejects"
	}
	fmt.Fprintf(s.out, "FAILED\n\n")
	fmt.Fprintf(s.out, "Device %s is '%s'.\n", variable, resp)
	fmt.Fprintf(s.out, "Update %s '%s'", verb, a.Values[0])
	for _, v := range a.Values[1:] {
		fmt.Fprintf(s.out, " or '%s'", v)
	}
	fmt.Fprintf(s.out, ".\n\n")

	return &RequirementError{
		Variable:   variable,
		Actual:     resp,
		Acceptable: a.Values,
		Reject:     invert,
	}
}
