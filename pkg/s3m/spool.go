package s3m

import (
	"io"
	"os"

	"github.com/google/uuid"
)

// Spool buffers an unknown-size source (stdin, or any transformed
// reader) to a rolling set of temp files sized at the plan's part size,
// so the multipart coordinator can retry a part without re-reading a
// pipe that cannot be rewound (spec §4.8, C8). Spool files are not
// tracked in the resumption store: spooling is purely a local retry aid,
// and a process restart always starts the spool over from the source.
type Spool struct {
	dir      string
	partSize int64
}

// NewSpool builds a Spool that writes temp files under dir (os.TempDir()
// if empty), each holding up to partSize bytes.
func NewSpool(dir string, partSize int64) *Spool {
	if partSize <= 0 {
		partSize = defaultMinPartSize
	}
	return &Spool{dir: dir, partSize: partSize}
}

// SpooledPart is one on-disk buffered chunk, retained until its
// UploadPart call is acknowledged.
type SpooledPart struct {
	PartNumber int
	file       *os.File
	size       int64
}

// Open returns a ReadSeeker over the spooled bytes, rewound to the
// start, so the executor's retry path can resend it.
func (p *SpooledPart) Open() (*os.File, error) {
	if _, err := p.file.Seek(0, io.SeekStart); err != nil {
		return nil, NewKindError(KindIoError, "rewinding spooled part", err)
	}
	return p.file, nil
}

// Len reports the spooled part's size.
func (p *SpooledPart) Len() int64 { return p.size }

// Body adapts the spooled part to a BodySource, so the executor's retry
// path (C2) can Seek it back to the start exactly like an in-memory body.
func (p *SpooledPart) Body() BodySource { return spooledBody{p} }

// spooledBody implements BodySource by reading straight from the spool
// file; Seek rewinds the same *os.File rather than re-reading the source.
type spooledBody struct {
	part *SpooledPart
}

func (b spooledBody) Read(p []byte) (int, error) { return b.part.file.Read(p) }

func (b spooledBody) Seek(offset int64, whence int) (int64, error) {
	return b.part.file.Seek(offset, whence)
}

func (b spooledBody) Len() int64 { return b.part.size }

// Release closes and removes the underlying temp file. Callers must call
// this once a part's UploadPart response has been durably recorded.
func (p *SpooledPart) Release() error {
	name := p.file.Name()
	if err := p.file.Close(); err != nil {
		return NewKindError(KindIoError, "closing spooled part", err)
	}
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return NewKindError(KindIoError, "removing spooled part", err)
	}
	return nil
}

// Spill reads up to the Spool's part size from src into a fresh temp
// file and returns it as partNumber's spooled part. io.EOF with n == 0
// signals the source is exhausted.
func (s *Spool) Spill(src io.Reader, partNumber int) (*SpooledPart, error) {
	f, err := os.CreateTemp(s.dir, "s3m-spool-"+uuid.NewString()+"-*.part")
	if err != nil {
		return nil, NewKindError(KindIoError, "creating spool file", err)
	}

	n, err := io.CopyN(f, src, s.partSize)
	if err != nil && err != io.EOF {
		f.Close()
		os.Remove(f.Name())
		return nil, NewKindError(KindIoError, "reading stdin into spool file", err)
	}
	if n == 0 {
		f.Close()
		os.Remove(f.Name())
		return nil, io.EOF
	}

	return &SpooledPart{PartNumber: partNumber, file: f, size: n}, nil
}

// SpillBytes writes an already-chunked part (e.g. from the C3 pipeline's
// Chunker, which has already applied compression/encryption/throttling)
// to a fresh temp file, rather than reading raw bytes off a source.
func (s *Spool) SpillBytes(data []byte, partNumber int) (*SpooledPart, error) {
	f, err := os.CreateTemp(s.dir, "s3m-spool-"+uuid.NewString()+"-*.part")
	if err != nil {
		return nil, NewKindError(KindIoError, "creating spool file", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, NewKindError(KindIoError, "writing spool file", err)
	}
	return &SpooledPart{PartNumber: partNumber, file: f, size: int64(len(data))}, nil
}
