package s3m

import (
	"context"
	"io"
)

// PipelineOptions configures the C3 transform pipeline. Stages are
// applied in a fixed order per spec §4.3/§4.9: compression, then
// encryption, then the digester tee, then throttling, then chunking.
// Each stage is optional except the digester and chunker, which always
// run so every upload has a checksum and a consistent framing.
type PipelineOptions struct {
	Compress      bool
	EncryptionKey []byte // nil disables encryption
	ThrottleKiBps int    // 0 disables throttling
	ChecksumAlg   ExtraChecksumAlg
	Fingerprint   bool // include blake3 in the digester (false for stdin sources)
	PartSize      int64
}

// Pipeline is the built transform chain for a single upload: Chunker
// yields part-sized slices of the final wire bytes, and Digester reports
// the running hashes over those same bytes once the source is fully
// drained.
type Pipeline struct {
	Chunker  *Chunker
	Digester *Digester
}

// BuildPipeline wires src through the enabled stages in order:
// compress -> encrypt -> digest (tee) -> throttle -> chunk. The returned
// Chunker must be drained to completion (Next until io.EOF) before the
// Digester's sums are final, since hashing happens as bytes are read
// downstream, not eagerly.
func BuildPipeline(ctx context.Context, src io.Reader, opts PipelineOptions) (*Pipeline, error) {
	stream := src

	if opts.Compress {
		stream = CompressReader(stream)
	}

	if opts.EncryptionKey != nil {
		// Align STREAM segments with the chosen part size so the encrypted
		// object's internal framing matches how it will later be chunked
		// into S3 parts; EncryptReader falls back to a fixed 64 KiB only
		// when no part size was planned yet (spec §4.3).
		enc, err := EncryptReader(stream, opts.EncryptionKey, opts.PartSize)
		if err != nil {
			return nil, err
		}
		stream = enc
	}

	digester := NewDigester(opts.Fingerprint, opts.ChecksumAlg)
	stream = io.TeeReader(stream, digester)

	stream = ThrottledReader(ctx, stream, opts.ThrottleKiBps)

	partSize := opts.PartSize
	if partSize <= 0 {
		partSize = 5 * 1024 * 1024
	}

	return &Pipeline{
		Chunker:  NewChunker(stream, partSize),
		Digester: digester,
	}, nil
}
