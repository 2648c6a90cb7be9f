package s3m

import (
	"io"
)

// Chunker reads fixed-size slices from an underlying stream, yielding
// partSize bytes per call to Next except for the final, shorter tail
// chunk (spec §4.3, C5 "part_size" framing). It is the last stage of the
// transform pipeline: whatever ordering compression/encryption/digest/
// throttle imposed upstream, Chunker only sees the resulting byte stream.
type Chunker struct {
	src      io.Reader
	partSize int64
	buf      []byte
	done     bool
}

// NewChunker wraps src, framing it into partSize-sized buffers.
func NewChunker(src io.Reader, partSize int64) *Chunker {
	return &Chunker{
		src:      src,
		partSize: partSize,
		buf:      make([]byte, partSize),
	}
}

// Next returns the next chunk of up to partSize bytes, or io.EOF once the
// stream is exhausted. The returned slice aliases the Chunker's internal
// buffer and is only valid until the next call to Next.
func (c *Chunker) Next() ([]byte, error) {
	if c.done {
		return nil, io.EOF
	}
	n, err := io.ReadFull(c.src, c.buf)
	switch {
	case err == nil:
		return c.buf[:n], nil
	case err == io.ErrUnexpectedEOF:
		c.done = true
		return c.buf[:n], nil
	case err == io.EOF:
		c.done = true
		return nil, io.EOF
	default:
		return nil, NewKindError(KindIoError, "reading chunk", err)
	}
}
