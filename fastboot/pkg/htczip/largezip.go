package htczip

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/deploymenttheory/go-fastboot/fastboot/pkg/engine"
	"github.com/deploymenttheory/go-fastboot/fastboot/pkg/protocol"
)

// defaultSettle is how long to pause after a pre-update response before
// the transport is reopened. The bootloader needs a moment to
// re-enumerate.
const defaultSettle = 5 * time.Second

// FlasherOption configures a compound-image flasher.
type FlasherOption func(*flasherConfig)

type flasherConfig struct {
	settle time.Duration
	sleep  func(time.Duration)
}

// WithSettle overrides the restart settle interval.
func WithSettle(d time.Duration) FlasherOption {
	return func(c *flasherConfig) { c.settle = d }
}

// WithSleep overrides the sleep function used for the settle interval.
func WithSleep(f func(time.Duration)) FlasherOption {
	return func(c *flasherConfig) { c.sleep = f }
}

func newFlasherConfig(opts []FlasherOption) flasherConfig {
	c := flasherConfig{settle: defaultSettle, sleep: time.Sleep}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LargeZipFlasher iterates the sub-zips of a largezip container,
// queueing a download plus flash for one sub-image at a time. Each
// flashed sub-image chains the next from its callback, so a single
// QueueNext call followed by Execute flashes the whole container.
type LargeZipFlasher struct {
	s   *engine.Session
	cfg flasherConfig

	f     *os.File
	hdr   *Header
	index int

	// buf owns the current sub-image; replaced on each advance.
	buf []byte
}

// OpenLargeZip opens and validates a largezip container for session s.
func OpenLargeZip(s *engine.Session, path string, opts ...FlasherOption) (*LargeZipFlasher, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("htczip: open largezip: %w", err)
	}
	hdr, err := ReadHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &LargeZipFlasher{
		s:   s,
		cfg: newFlasherConfig(opts),
		f:   f,
		hdr: hdr,
	}, nil
}

// Index returns the zero-based cursor into the sub-image stream.
func (z *LargeZipFlasher) Index() int { return z.index }

// QueueNext reads the current sub-image and queues its flash. Once the
// sub-image table is exhausted the container is closed and nothing is
// queued. Callbacks call this again after each successful flash, and
// with an unchanged index after a restart-recovery retry.
func (z *LargeZipFlasher) QueueNext() error {
	c := z.index
	if c >= MaxSubImages || terminal(z.hdr.Lengths[c]) {
		return z.Close()
	}

	start, length := z.hdr.Starts[c], z.hdr.Lengths[c]
	z.s.Logger().Debugw("flashing largezip sub-image",
		"index", c, "start", start, "length", length)

	if _, err := z.f.Seek(int64(start), io.SeekStart); err != nil {
		return fmt.Errorf("htczip: seek to sub-zip at 0x%08X: %w", start, err)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(z.f, buf); err != nil {
		return fmt.Errorf("htczip: read sub-zip %d: %w", c, err)
	}
	z.buf = buf

	return z.s.QueueFlashZip(fmt.Sprintf("%d-zip", c), buf, z.check)
}

func (z *LargeZipFlasher) check(a *engine.Action, status error, resp string) error {
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

// Close releases the container file and the current sub-image buffer.
func (z *LargeZipFlasher) Close() error {
	z.buf = nil
	if z.f == nil {
		return nil
	}
	f := z.f
	z.f = nil
	return f.Close()
}
