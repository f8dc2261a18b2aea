// Package htczip reads the two HTC compound update containers — the
// largezip concatenated-blobs file and the multizip ZIP-of-ZIPs — and
// drives the flashing engine through them one sub-image at a time,
// including the mid-flash disconnect/reconnect cycle the bootloader
// triggers between sub-images.
package htczip

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderMagic identifies a largezip container.
const HeaderMagic = "LaR@eZip"

// MaxSubImages is the fixed size of the largezip offset tables. The
// header carries no count; a zero length terminates the sequence.
const MaxSubImages = 8

// headerSize is the fixed on-disk header length: the magic, then eight
// little-endian uint32 start offsets and eight lengths.
const headerSize = len(HeaderMagic) + MaxSubImages*4 + MaxSubImages*4

// ErrBadMagic reports that a file does not start with the largezip
// magic.
var ErrBadMagic = errors.New("htczip: not a largezip container")

// Header is the largezip index: byte offsets and lengths of up to
// eight embedded sub-zips within the same file.
type Header struct {
	Starts  [MaxSubImages]uint32
	Lengths [MaxSubImages]uint32
}

// ReadHeader reads and validates a largezip header at the reader's
// current position. On any failure the reader is rewound to its
// pre-call position.
func ReadHeader(r io.ReadSeeker) (*Header, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("htczip: tell: %w", err)
	}

	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		rewind(r, pos)
		return nil, fmt.Errorf("htczip: read largezip header: %w", err)
	}

	if string(buf[:len(HeaderMagic)]) != HeaderMagic {
		rewind(r, pos)
		return nil, ErrBadMagic
	}

	var h Header
	le := binary.LittleEndian
	off := len(HeaderMagic)
	for i := range h.Starts {
		h.Starts[i] = le.Uint32(buf[off : off+4])
		off += 4
	}
	for i := range h.Lengths {
		h.Lengths[i] = le.Uint32(buf[off : off+4])
		off += 4
	}
	return &h, nil
}

func rewind(r io.Seeker, pos int64) {
	_, _ = r.Seek(pos, io.SeekStart)
}

// terminal reports whether a length entry ends the sub-image sequence.
// A zero length is the terminator; the sign bit counts as one because
// the on-disk field was historically read as a signed value.
func terminal(length uint32) bool {
	return length == 0 || length&0x80000000 != 0
}
