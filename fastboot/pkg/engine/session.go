// Package engine holds the deferred flashing pipeline: a FIFO of typed
// actions built through the Queue* API and drained by Execute against a
// device transport. Callbacks run synchronously as each response
// arrives and may extend the queue mid-walk, which is how the compound
// image drivers chain one sub-image after another.
package engine

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session owns one action queue and the state shared between the walk
// and its callbacks. It is single-threaded: build the queue, then call
// Execute once; callbacks run on the executing goroutine.
type Session struct {
	id      uuid.UUID
	actions []*Action

	product string
	out     io.Writer
	log     *zap.SugaredLogger
	reopen  ReopenFunc
	now     func() time.Time

	// restart is the side channel from callbacks to the walk: when set,
	// the next iteration replaces the transport via reopen.
	restart bool
}

// Option configures a Session.
type Option func(*Session)

// WithProduct sets the current device product name, consulted by
// product-scoped require checks.
func WithProduct(product string) Option {
	return func(s *Session) { s.product = product }
}

// WithOutput redirects the human-readable progress lines. Default is
// os.Stderr.
func WithOutput(w io.Writer) Option {
	return func(s *Session) { s.out = w }
}

// WithLogger sets the structured debug logger. Default is a nop logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Session) { s.log = log }
}

// WithReopen sets the factory that produces a fresh transport after the
// device re-enumerates. Required for restart recovery.
func WithReopen(reopen ReopenFunc) Option {
	return func(s *Session) { s.reopen = reopen }
}

// WithClock overrides the monotonic time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession creates an empty flashing session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		id:  uuid.New(),
		out: os.Stderr,
		log: zap.NewNop().Sugar(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("flash_session", s.id.String())
	return s
}

// ID returns the session identifier carried on every log line.
func (s *Session) ID() uuid.UUID { return s.id }

// Product returns the current device product name.
func (s *Session) Product() string { return s.product }

// Logger returns the session's structured logger for collaborators
// whose callbacks want the same context fields.
func (s *Session) Logger() *zap.SugaredLogger { return s.log }

// RequestRestart tells the walk to replace the transport before the
// next action. Called by callbacks that recognized a device-initiated
// re-enumeration.
func (s *Session) RequestRestart() {
	s.restart = true
}

// Actions returns the queued actions for post-hoc inspection. The walk
// never removes entries.
func (s *Session) Actions() []*Action { return s.actions }

// queueAction formats a command into the 64-byte slot and appends a new
// action with the default callback. An oversized command is a
// programmer error and panics.
func (s *Session) queueAction(op Op, format string, args ...any) *Action {
	cmd := format
	if len(args) > 0 {
		cmd = fmt.Sprintf(format, args...)
	}
	if len(cmd) >= CmdSize {
		panic(fmt.Sprintf("command length (%d) exceeds maximum size (%d)", len(cmd), CmdSize))
	}
	a := &Action{Op: op, Cmd: cmd, Func: s.cbDefault}
	s.actions = append(s.actions, a)
	return a
}

// Okay prints the standard success line with the split since the action
// was dispatched and restamps the action's start time.
func (s *Session) Okay(a *Action) {
	split := s.now()
	fmt.Fprintf(s.out, "OKAY [%7.3fs]\n", split.Sub(a.start).Seconds())
	a.start = split
}

// Fail prints the standard failure line.
func (s *Session) Fail(resp string) {
	fmt.Fprintf(s.out, "FAILED (%s)\n", resp)
}

func (s *Session) cbDefault(a *Action, status error, resp string) error {
	if status != nil {
		s.Fail(resp)
		return status
	}
	s.Okay(a)
	return nil
}
