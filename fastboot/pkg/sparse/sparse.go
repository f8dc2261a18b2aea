// Package sparse declares the contract for externally produced sparse
// images. Encoding and decoding of the sparse format itself happens
// outside this module; the flashing engine only needs a size and a way
// to stream the encoded bytes.
package sparse

import "io"

// File is a lazily streamed sparse image.
type File interface {
	// Size returns the number of bytes WriteTo will produce. The wire
	// protocol carries sizes as 32-bit values, so images larger than
	// 2^32-1 bytes must be split by the producer before they get here.
	Size() int64

	io.WriterTo
}
