// Package protocol implements the device-facing wire codec: ASCII
// command frames of at most 64 bytes, and four-byte-prefixed responses
// (OKAY, FAIL, INFO, DATA) read from a 256-byte window.
package protocol

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/deploymenttheory/go-fastboot/fastboot/pkg/sparse"
	"github.com/deploymenttheory/go-fastboot/fastboot/pkg/transport"
)

const (
	// MaxCommandSize is the longest command frame the protocol allows.
	// Frames are sent without a terminator.
	MaxCommandSize = 64

	// ResponseSize is the response window: a 4-byte header followed by
	// up to 252 payload bytes. A longer response is cut at the tail to
	// the window when read and returned as-is.
	ResponseSize = 256

	// MaxPayload is the largest binary payload a single download can
	// carry; the wire protocol only has 32-bit lengths.
	MaxPayload = math.MaxUint32
)

// preUpdateMarker is the FAIL substring with which the device announces
// it will re-enumerate mid-flash.
const preUpdateMarker = "hboot pre-update"

// IsPreUpdate reports whether a FAIL response announces a device
// re-enumeration. Callers must wait for disconnect, reopen the
// transport, and retry the same sub-image.
func IsPreUpdate(resp string) bool {
	return strings.Contains(resp, preUpdateMarker)
}

// streamChunk bounds single bulk writes so the progress sink sees
// increments rather than one jump.
const streamChunk = 256 * 1024

// Client frames commands and responses over a Transport. It is not safe
// for concurrent use; the protocol is strictly request/response.
type Client struct {
	t        transport.Transport
	progress io.Writer
	info     func(string)
	lastErr  string
}

// Option configures a Client.
type Option func(*Client)

// WithProgress sets a sink that receives every payload byte as it is
// streamed to the device during bulk downloads.
func WithProgress(w io.Writer) Option {
	return func(c *Client) { c.progress = w }
}

// WithInfo sets the handler for INFO response lines. The default prints
// them to stderr prefixed with "(bootloader)".
func WithInfo(f func(string)) Option {
	return func(c *Client) { c.info = f }
}

// NewClient wraps a transport in a protocol client.
func NewClient(t transport.Transport, opts ...Option) *Client {
	c := &Client{
		t: t,
		info: func(line string) {
			fmt.Fprintf(os.Stderr, "(bootloader) %s\n", line)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LastError returns the most recent failure description, or "".
func (c *Client) LastError() string { return c.lastErr }

// SendCommand writes a command and reads responses until a terminal
// OKAY or FAIL arrives. It returns the terminal payload in both cases;
// on FAIL the error is a *RemoteError carrying the same reason text.
func (c *Client) SendCommand(cmd string) (string, error) {
	if err := c.writeCommand(cmd); err != nil {
		return "", err
	}
	return c.finalResponse()
}

// Download runs the bulk transfer handshake: "download:<hex-size>",
// a DATA acknowledgement, the payload bytes, then a terminal response.
func (c *Client) Download(data []byte) (string, error) {
	if uint64(len(data)) > MaxPayload {
		return "", c.fail(fmt.Errorf("payload size %d exceeds the 32-bit protocol limit", len(data)))
	}
	if err := c.writeCommand(fmt.Sprintf("download:%08x", len(data))); err != nil {
		return "", err
	}
	size, resp, err := c.dataResponse()
	if err != nil {
		return resp, err
	}
	if size != uint32(len(data)) {
		return "", c.fail(fmt.Errorf("device expects %d bytes, have %d", size, len(data)))
	}
	if err := c.stream(data); err != nil {
		return "", err
	}
	return c.finalResponse()
}

// DownloadSparse is Download with a lazily produced payload.
func (c *Client) DownloadSparse(s sparse.File) (string, error) {
	size := s.Size()
	if size < 0 || uint64(size) > MaxPayload {
		return "", c.fail(fmt.Errorf("sparse image size %d exceeds the 32-bit protocol limit", size))
	}
	if err := c.writeCommand(fmt.Sprintf("download:%08x", size)); err != nil {
		return "", err
	}
	ack, resp, err := c.dataResponse()
	if err != nil {
		return resp, err
	}
	if ack != uint32(size) {
		return "", c.fail(fmt.Errorf("device expects %d bytes, sparse image has %d", ack, size))
	}
	w := io.Writer(c.t)
	if c.progress != nil {
		w = io.MultiWriter(c.t, c.progress)
	}
	if _, err := s.WriteTo(w); err != nil {
		return "", c.fail(fmt.Errorf("stream sparse image: %w", err))
	}
	return c.finalResponse()
}

// WaitForDisconnect blocks on the transport's disconnect observer.
func (c *Client) WaitForDisconnect() error {
	return c.t.WaitForDisconnect()
}

func (c *Client) Close() error { return c.t.Close() }

func (c *Client) writeCommand(cmd string) error {
	if len(cmd) > MaxCommandSize {
		return c.fail(fmt.Errorf("command %q is %d bytes, protocol maximum is %d", cmd, len(cmd), MaxCommandSize))
	}
	if _, err := c.t.Write([]byte(cmd)); err != nil {
		return c.fail(fmt.Errorf("write command: %w", err))
	}
	return nil
}

func (c *Client) stream(data []byte) error {
	w := io.Writer(c.t)
	if c.progress != nil {
		w = io.MultiWriter(c.t, c.progress)
	}
	for off := 0; off < len(data); off += streamChunk {
		end := off + streamChunk
		if end > len(data) {
			end = len(data)
		}
		if _, err := w.Write(data[off:end]); err != nil {
			return c.fail(fmt.Errorf("stream payload: %w", err))
		}
	}
	return nil
}

// finalResponse reads packets until OKAY or FAIL. INFO lines go to the
// info handler; a DATA packet here is a protocol violation.
func (c *Client) finalResponse() (string, error) {
	for {
		header, payload, err := c.readPacket()
		if err != nil {
			return "", err
		}
		switch header {
		case "INFO":
			c.info(payload)
		case "OKAY":
			return payload, nil
		case "FAIL":
			c.lastErr = payload
			return payload, &RemoteError{Reason: payload}
		case "DATA":
			return "", c.fail(fmt.Errorf("unexpected DATA response outside a download"))
		default:
			return "", c.fail(fmt.Errorf("unknown response header %q", header))
		}
	}
}

// dataResponse reads packets until the DATA acknowledgement of a
// download. The returned string is the terminal payload when the device
// replies FAIL instead.
func (c *Client) dataResponse() (uint32, string, error) {
	for {
		header, payload, err := c.readPacket()
		if err != nil {
			return 0, "", err
		}
		switch header {
		case "INFO":
			c.info(payload)
		case "DATA":
			size, err := strconv.ParseUint(payload, 16, 32)
			if err != nil {
				return 0, "", c.fail(fmt.Errorf("malformed DATA size %q", payload))
			}
			return uint32(size), "", nil
		case "FAIL":
			c.lastErr = payload
			return 0, payload, &RemoteError{Reason: payload}
		default:
			return 0, "", c.fail(fmt.Errorf("expected DATA acknowledgement, got %q", header))
		}
	}
}

func (c *Client) readPacket() (string, string, error) {
	buf := make([]byte, ResponseSize)
	n, err := c.t.Read(buf)
	if err != nil {
		return "", "", c.fail(fmt.Errorf("read response: %w", err))
	}
	if n < 4 {
		return "", "", c.fail(fmt.Errorf("response too short: %d bytes", n))
	}
	return string(buf[:4]), string(buf[4:n]), nil
}

func (c *Client) fail(err error) error {
	c.lastErr = err.Error()
	return err
}

// GetVar queries a single bootloader variable.
func GetVar(c *Client, key string) (string, error) {
	resp, err := c.SendCommand("getvar:" + key)
	if err != nil {
		return "", err
	}
	return resp, nil
}
