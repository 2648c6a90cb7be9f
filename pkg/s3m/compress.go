package s3m

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// CompressReader wraps src with a zstd encoder at the default
// compression level (spec §4.3). The compressed length is unknown a
// priori, which is why the planner (C5) falls back to the unknown-size
// spooling path whenever compression is enabled.
//
// zstd.Encoder is a Writer, so a streaming Reader->Reader transform is
// built with an io.Pipe: a goroutine pulls from src and pushes compressed
// bytes into the pipe, and the returned Reader is the pipe's read side.
func CompressReader(src io.Reader) io.ReadCloser {
	pr, pw := io.Pipe()

	go func() {
		enc, err := zstd.NewWriter(pw)
		if err != nil {
			pw.CloseWithError(&PipelineError{Stage: "compress", Cause: err})
			return
		}
		if _, err := io.Copy(enc, src); err != nil {
			enc.Close()
			pw.CloseWithError(&PipelineError{Stage: "compress", Cause: err})
			return
		}
		if err := enc.Close(); err != nil {
			pw.CloseWithError(&PipelineError{Stage: "compress", Cause: err})
			return
		}
		pw.Close()
	}()

	return pr
}

// DecompressReader wraps src with a zstd decoder, the inverse of
// CompressReader, used on download when the object was uploaded with
// --compress.
func DecompressReader(src io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, &PipelineError{Stage: "decompress", Cause: err}
	}
	return dec.IOReadCloser(), nil
}
