package htczip

import (
	"errors"
	"fmt"
	"os"

	"github.com/deploymenttheory/go-fastboot/fastboot/pkg/engine"
	"github.com/deploymenttheory/go-fastboot/fastboot/pkg/protocol"
)

// MultiZipFlasher iterates the zip_<n>.zip entries of a multizip
// container. Iteration halts at the first absent index.
type MultiZipFlasher struct {
	s   *engine.Session
	cfg flasherConfig

	ar    Archive
	index int
	buf   []byte
}

// OpenMultiZip opens a multizip container from disk for session s.
func OpenMultiZip(s *engine.Session, path string, opts ...FlasherOption) (*MultiZipFlasher, error) {
	ar, err := OpenArchive(path)
	if err != nil {
		return nil, err
	}
	return NewMultiZipFlasher(s, ar, opts...), nil
}

// NewMultiZipFlasher drives an already-open Archive.
func NewMultiZipFlasher(s *engine.Session, ar Archive, opts ...FlasherOption) *MultiZipFlasher {
	return &MultiZipFlasher{s: s, cfg: newFlasherConfig(opts), ar: ar}
}

// Index returns the zero-based cursor into the sub-image stream.
func (z *MultiZipFlasher) Index() int { return z.index }

// QueueNext extracts the current sub-image and queues its flash. When
// the entry for the current index is absent the archive is closed and
// nothing is queued.
func (z *MultiZipFlasher) QueueNext() error {
	name := fmt.Sprintf("zip_%d.zip", z.index)
	z.s.Logger().Debugw("unzipping sub-image", "entry", name)

	data, err := z.ar.Extract(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return z.Close()
		}
		z.Close()
		return err
	}
	z.buf = data

	return z.s.QueueFlashZip(name, data, z.check)
}

func (z *MultiZipFlasher) check(a *engine.Action, status error, resp string) error {
	if status != nil {
		if protocol.IsPreUpdate(resp) {
			z.s.Logger().Debugw("got hboot pre-update, flashing again after restart", "index", z.index)
			z.s.QueueWaitForDisconnect()
			z.cfg.sleep(z.cfg.settle)
			z.s.RequestRestart()
			return z.QueueNext()
		}
		z.s.Fail(resp)
		return status
	}

	z.s.Okay(a)
	z.index++
	return z.QueueNext()
}

// Close releases the archive and the current sub-image buffer.
func (z *MultiZipFlasher) Close() error {
	z.buf = nil
	if z.ar == nil {
		return nil
	}
	ar := z.ar
	z.ar = nil
	return ar.Close()
}
