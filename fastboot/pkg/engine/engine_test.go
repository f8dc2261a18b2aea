package engine

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-fastboot/fastboot/pkg/protocol"
	"github.com/deploymenttheory/go-fastboot/fastboot/pkg/sparse"
)

// fakeReply scripts one transport response. resp carries the FAIL
// reason alongside the error, matching the Transport contract.
type fakeReply struct {
	resp string
	err  error
}

type fakeTransport struct {
	t        *testing.T
	replies  []fakeReply
	commands []string
	payloads [][]byte
	waits    int
}

func (f *fakeTransport) next(kind string) fakeReply {
	if len(f.replies) == 0 {
		f.t.Fatalf("unexpected %s: reply script exhausted", kind)
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r
}

func (f *fakeTransport) SendCommand(cmd string) (string, error) {
	f.commands = append(f.commands, cmd)
	r := f.next("command")
	return r.resp, r.err
}

func (f *fakeTransport) Download(data []byte) (string, error) {
	f.payloads = append(f.payloads, data)
	r := f.next("download")
	return r.resp, r.err
}

func (f *fakeTransport) DownloadSparse(s sparse.File) (string, error) {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		f.t.Fatalf("sparse stream: %v", err)
	}
	f.payloads = append(f.payloads, buf.Bytes())
	r := f.next("sparse download")
	return r.resp, r.err
}

func (f *fakeTransport) WaitForDisconnect() error {
	f.waits++
	return nil
}

func okay() fakeReply { return fakeReply{} }

func remoteFail(reason string) fakeReply {
	return fakeReply{resp: reason, err: &protocol.RemoteError{Reason: reason}}
}

func newTestSession(opts ...Option) (*Session, *bytes.Buffer) {
	out := &bytes.Buffer{}
	opts = append([]Option{WithOutput(out)}, opts...)
	return NewSession(opts...), out
}

func TestExecuteFIFO(t *testing.T) {
	s, out := newTestSession()
	s.QueueCommand("first", "")
	s.QueueCommand("second", "")
	s.QueueCommand("third", "")

	ft := &fakeTransport{t: t, replies: []fakeReply{okay(), okay(), okay()}}
	require.NoError(t, s.Execute(ft))

	assert.Equal(t, []string{"first", "second", "third"}, ft.commands)
	assert.Contains(t, out.String(), "finished. total time:")
}

func TestCallbackAppendsAfterTail(t *testing.T) {
	s, _ := newTestSession()
	s.QueueCommand("first", "")
	s.Actions()[0].Func = func(a *Action, status error, resp string) error {
		s.QueueCommand("third", "")
		return status
	}
	s.QueueCommand("second", "")

	ft := &fakeTransport{t: t, replies: []fakeReply{okay(), okay(), okay()}}
	require.NoError(t, s.Execute(ft))

	// The callback ran while "second" was already the tail, so its
	// action lands after it.
	assert.Equal(t, []string{"first", "second", "third"}, ft.commands)
}

func TestAbortOnFailure(t *testing.T) {
	s, out := newTestSession()
	s.QueueCommand("first", "")
	s.QueueCommand("second", "")
	s.QueueCommand("third", "")

	ft := &fakeTransport{t: t, replies: []fakeReply{okay(), remoteFail("flash write failure")}}
	err := s.Execute(ft)

	require.Error(t, err)
	assert.Equal(t, []string{"first", "second"}, ft.commands)
	assert.Contains(t, out.String(), "FAILED (flash write failure)")
}

func TestReboot(t *testing.T) {
	s, out := newTestSession()
	s.QueueReboot()

	ft := &fakeTransport{t: t, replies: []fakeReply{okay()}}
	require.NoError(t, s.Execute(ft))

	assert.Equal(t, []string{"reboot"}, ft.commands)
	assert.Contains(t, out.String(), "rebooting...")
}

func TestRebootSwallowsFailure(t *testing.T) {
	// The device usually drops the connection instead of acking reboot.
	s, _ := newTestSession()
	s.QueueReboot()

	ft := &fakeTransport{t: t, replies: []fakeReply{remoteFail("device gone")}}
	require.NoError(t, s.Execute(ft))
}

func TestRequireOK(t *testing.T) {
	s, out := newTestSession(WithProduct("angler"))
	s.QueueRequire("angler", "product", false, []string{"angler", "bullhead"})

	ft := &fakeTransport{t: t, replies: []fakeReply{{resp: "angler"}}}
	require.NoError(t, s.Execute(ft))

	assert.Equal(t, []string{"getvar:product"}, ft.commands)
	assert.Contains(t, out.String(), "OKAY")
	assert.NotContains(t, out.String(), "FAILED")
}

func TestRequireMismatch(t *testing.T) {
	s, out := newTestSession(WithProduct("angler"))
	s.QueueRequire("angler", "product", false, []string{"angler", "bullhead"})
	s.QueueCommand("never", "")

	ft := &fakeTransport{t: t, replies: []fakeReply{{resp: "foo"}}}
	err := s.Execute(ft)

	var reqErr *RequirementError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "product", reqErr.Variable)
	assert.Equal(t, "foo", reqErr.Actual)
	assert.False(t, reqErr.Reject)

	assert.Contains(t, out.String(), "Device product is 'foo'.")
	assert.Contains(t, out.String(), "Update requires 'angler' or 'bullhead'.")
	// The walk aborted before the trailing command.
	assert.Equal(t, []string{"getvar:product"}, ft.commands)
}

func TestRequireWildcard(t *testing.T) {
	s, _ := newTestSession()
	s.QueueRequire("", "version-bootloader", false, []string{"1.0*"})

	ft := &fakeTransport{t: t, replies: []fakeReply{{resp: "1.04.2"}}}
	require.NoError(t, s.Execute(ft))
}

func TestRejectInverted(t *testing.T) {
	cases := []struct {
		name    string
		resp    string
		wantErr bool
	}{
		{name: "mismatch passes", resp: "good", wantErr: false},
		{name: "match fails", resp: "banned", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, out := newTestSession()
			s.QueueRequire("", "version", true, []string{"banned"})

			ft := &fakeTransport{t: t, replies: []fakeReply{{resp: tc.resp}}}
			err := s.Execute(ft)
			if tc.wantErr {
				var reqErr *RequirementError
				require.ErrorAs(t, err, &reqErr)
				assert.True(t, reqErr.Reject)
				assert.Contains(t, out.String(), "Update rejects 'banned'.")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRequireProductScope(t *testing.T) {
	s, out := newTestSession(WithProduct("angler"))
	// Scoped to a different product; the values would never match, so
	// a pass proves the matcher was not consulted.
	s.QueueRequire("shooter", "mainver", false, []string{"nope"})

	ft := &fakeTransport{t: t, replies: []fakeReply{{resp: "whatever"}}}
	require.NoError(t, s.Execute(ft))
	assert.Contains(t, out.String(), "IGNORE, product is angler required only for shooter")
}

func TestQueueFlash(t *testing.T) {
	s, out := newTestSession()
	data := bytes.Repeat([]byte{0xAB}, 4096)
	require.NoError(t, s.QueueFlash("boot", data))

	ft := &fakeTransport{t: t, replies: []fakeReply{okay(), okay()}}
	require.NoError(t, s.Execute(ft))

	require.Len(t, ft.payloads, 1)
	assert.Equal(t, data, ft.payloads[0])
	assert.Equal(t, []string{"flash:boot"}, ft.commands)
	assert.Contains(t, out.String(), "sending 'boot' (4 KB)...")
	assert.Contains(t, out.String(), "writing 'boot'...")
}

func TestQueueFlashSparse(t *testing.T) {
	s, out := newTestSession()
	sf := &memSparse{data: []byte("sparse-chunk")}
	s.QueueFlashSparse("system", sf, 8192, 2, 3)

	ft := &fakeTransport{t: t, replies: []fakeReply{okay(), okay()}}
	require.NoError(t, s.Execute(ft))

	require.Len(t, ft.payloads, 1)
	assert.Equal(t, []byte("sparse-chunk"), ft.payloads[0])
	assert.Contains(t, out.String(), "sending sparse 'system' 2/3 (8 KB)...")
	assert.Contains(t, out.String(), "writing 'system' 2/3...")
}

func TestQueueDisplay(t *testing.T) {
	s, out := newTestSession()
	s.QueueDisplay("version-bootloader", "Bootloader Version")

	ft := &fakeTransport{t: t, replies: []fakeReply{{resp: "1.04"}}}
	require.NoError(t, s.Execute(ft))
	assert.Contains(t, out.String(), "Bootloader Version: 1.04")
}

func TestQueueQuerySave(t *testing.T) {
	s, _ := newTestSession()
	dest := make([]byte, 4)
	s.QueueQuerySave("serialno", dest)

	ft := &fakeTransport{t: t, replies: []fakeReply{{resp: "HT123456"}}}
	require.NoError(t, s.Execute(ft))

	// Copy is bounded by the destination and not terminated.
	assert.Equal(t, []byte("HT12"), dest)
}

func TestQueueNotice(t *testing.T) {
	s, out := newTestSession()
	s.QueueNotice("update complete")

	ft := &fakeTransport{t: t}
	require.NoError(t, s.Execute(ft))
	assert.Contains(t, out.String(), "update complete\n")
}

func TestQueueWaitForDisconnect(t *testing.T) {
	s, _ := newTestSession()
	s.QueueWaitForDisconnect()

	ft := &fakeTransport{t: t}
	require.NoError(t, s.Execute(ft))
	assert.Equal(t, 1, ft.waits)
}

func TestRestartReplacesTransport(t *testing.T) {
	second := &fakeTransport{replies: []fakeReply{okay()}}
	reopens := 0

	s, _ := newTestSession(WithReopen(func() (Transport, error) {
		reopens++
		return second, nil
	}))
	second.t = t

	s.QueueCommand("first", "")
	s.Actions()[0].Func = func(a *Action, status error, resp string) error {
		s.RequestRestart()
		return status
	}
	s.QueueCommand("second", "")

	first := &fakeTransport{t: t, replies: []fakeReply{okay()}}
	require.NoError(t, s.Execute(first))

	assert.Equal(t, 1, reopens)
	assert.Equal(t, []string{"first"}, first.commands)
	assert.Equal(t, []string{"second"}, second.commands)
}

func TestRestartWithoutReopenFails(t *testing.T) {
	s, _ := newTestSession()
	s.QueueCommand("first", "")
	s.Actions()[0].Func = func(a *Action, status error, resp string) error {
		s.RequestRestart()
		return status
	}
	s.QueueCommand("second", "")

	ft := &fakeTransport{t: t, replies: []fakeReply{okay()}}
	err := s.Execute(ft)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reopen factory")
}

func TestOversizedCommandPanics(t *testing.T) {
	s, _ := newTestSession()
	cmd := strings.Repeat("x", CmdSize)
	require.PanicsWithValue(t,
		"command length (64) exceeds maximum size (64)",
		func() { s.QueueCommand(cmd, "") })
}

func TestEmptyQueue(t *testing.T) {
	s, out := newTestSession()
	require.NoError(t, s.Execute(&fakeTransport{t: t}))
	assert.Empty(t, out.String())
}

func TestQueryFailurePassesErrorText(t *testing.T) {
	s, out := newTestSession()
	s.QueueDisplay("product", "Product")

	ft := &fakeTransport{t: t, replies: []fakeReply{remoteFail("unknown variable")}}
	err := s.Execute(ft)
	require.Error(t, err)
	assert.Contains(t, out.String(), "getvar:product FAILED (unknown variable)")
}

// memSparse is a trivial sparse.File over an in-memory payload.
type memSparse struct {
	data []byte
}

func (m *memSparse) Size() int64 { return int64(len(m.data)) }

func (m *memSparse) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(m.data)
	return int64(n), err
}
