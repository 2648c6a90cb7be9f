package s3m

import (
	"bytes"
	"os"
)

// byteSeeker adapts an in-memory buffer to BodySource: a ReadSeeker that
// also reports its total length, so the executor can set Content-Length
// and rewind on retry without re-reading the original source.
type byteSeeker struct {
	r     *bytes.Reader
	total int64
}

func newByteSeeker(b []byte) *byteSeeker {
	return &byteSeeker{r: bytes.NewReader(b), total: int64(len(b))}
}

func (s *byteSeeker) Read(p []byte) (int, error)                { return s.r.Read(p) }
func (s *byteSeeker) Seek(off int64, whence int) (int64, error) { return s.r.Seek(off, whence) }
func (s *byteSeeker) Len() int64                                { return s.total }

// fileSeeker adapts a SpooledPart's backing file to BodySource.
type fileSeeker struct {
	f     *os.File
	total int64
}

// NewSpooledBody wraps a SpooledPart as a retryable body backed by its
// temp file rather than an in-memory copy, avoiding a second buffer for
// large unknown-size uploads.
func NewSpooledBody(p *SpooledPart) (BodySource, error) {
	f, err := p.Open()
	if err != nil {
		return nil, err
	}
	return &fileSeeker{f: f, total: p.Len()}, nil
}

func (s *fileSeeker) Read(p []byte) (int, error)                { return s.f.Read(p) }
func (s *fileSeeker) Seek(off int64, whence int) (int64, error) { return s.f.Seek(off, whence) }
func (s *fileSeeker) Len() int64                                { return s.total }
