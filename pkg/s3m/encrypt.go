package s3m

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"io"
	"math"

	"golang.org/x/crypto/chacha20poly1305"
)

// encryptMagic tags the start of an encrypted object so Download can tell
// an encrypted body from a plain one without consulting metadata (spec
// §4.3, GLOSSARY "STREAM").
var encryptMagic = [7]byte{'s', '3', 'm', 'e', 'n', 'c', '1'}

// defaultStreamSegmentSize is the plaintext segment size used when the
// source size is unknown at encryption time (spec §4.3): compressed or
// stdin sources, which lose a fixed part size before they reach the
// pipeline.
const defaultStreamSegmentSize = 64 * 1024

const (
	noncePrefixLen = 19 // 24-byte XChaCha20 nonce minus 4-byte counter minus 1-byte last flag
	nonceLen       = chacha20poly1305.NonceSizeX
	segSizeLen     = 4 // big-endian uint32 segment size, part of the wire header
)

// EncryptReader wraps src in an XChaCha20-Poly1305 STREAM construction
// (spec §4.3): the message is split into segmentSize plaintext segments,
// each sealed with a 24-byte nonce built from a random 19-byte prefix, a
// 4-byte big-endian segment counter, and a 1-byte flag that is 1 on the
// final segment and 0 otherwise. The wire format is
// MAGIC(7) || segment_size(4) || nonce_prefix(19) || segment_0 || ...
// Every sealed segment carries a 16-byte Poly1305 tag, so ciphertext is
// always 16 bytes longer than its plaintext segment. The segment size is
// carried on the wire because a download can decrypt an object uploaded
// under a different --buffer-size than the one currently configured.
//
// segmentSize is normally the chosen S3 part size; callers pass 0 when
// the source size — and therefore the part size — isn't known yet
// (compression, stdin), which falls back to defaultStreamSegmentSize.
//
// key must be chacha20poly1305.KeySize (32) bytes, produced by the
// caller's KDF of choice; EncryptReader performs no key derivation.
func EncryptReader(src io.Reader, key []byte, segmentSize int64) (io.ReadCloser, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, &PipelineError{Stage: "encrypt", Cause: err}
	}
	if segmentSize <= 0 || segmentSize > math.MaxUint32 {
		segmentSize = defaultStreamSegmentSize
	}

	var noncePrefix [noncePrefixLen]byte
	if _, err := io.ReadFull(rand.Reader, noncePrefix[:]); err != nil {
		return nil, &PipelineError{Stage: "encrypt", Cause: err}
	}

	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		if err := runEncrypt(pw, src, aead, noncePrefix, uint32(segmentSize)); err != nil {
			pw.CloseWithError(err)
		}
	}()

	return pr, nil
}

// runEncrypt writes the header and then streams sealed segments, using a
// one-segment lookahead to know whether the segment it is about to write
// is the last one.
func runEncrypt(w io.Writer, src io.Reader, aead cipher.AEAD, noncePrefix [noncePrefixLen]byte, segmentSize uint32) error {
	if _, err := w.Write(encryptMagic[:]); err != nil {
		return err
	}
	var sizeBuf [segSizeLen]byte
	binary.BigEndian.PutUint32(sizeBuf[:], segmentSize)
	if _, err := w.Write(sizeBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(noncePrefix[:]); err != nil {
		return err
	}

	nonce := make([]byte, nonceLen)
	copy(nonce, noncePrefix[:])

	cur := make([]byte, segmentSize)
	curN, curErr := io.ReadFull(src, cur)
	if curErr != nil && curErr != io.ErrUnexpectedEOF && curErr != io.EOF {
		return &PipelineError{Stage: "encrypt", Cause: curErr}
	}

	var counter uint32
	for {
		next := make([]byte, segmentSize)
		nextN, nextErr := io.ReadFull(src, next)
		if nextErr != nil && nextErr != io.ErrUnexpectedEOF && nextErr != io.EOF {
			return &PipelineError{Stage: "encrypt", Cause: nextErr}
		}
		last := nextN == 0

		binary.BigEndian.PutUint32(nonce[noncePrefixLen:noncePrefixLen+4], counter)
		if last {
			nonce[noncePrefixLen+4] = 1
		} else {
			nonce[noncePrefixLen+4] = 0
		}
		sealed := aead.Seal(nil, nonce, cur[:curN], nil)
		if _, err := w.Write(sealed); err != nil {
			return err
		}
		if last {
			return nil
		}

		counter++
		cur, curN = next, nextN
	}
}

// DecryptReader is the inverse of EncryptReader: it reads the magic and
// nonce prefix from src, then authenticates and emits each segment's
// plaintext in order. A forged or truncated segment, or the wrong key,
// surfaces as a CryptoError from the returned Reader's first failing
// Read.
func DecryptReader(src io.Reader, key []byte) (io.ReadCloser, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, &PipelineError{Stage: "decrypt", Cause: err}
	}

	var magic [7]byte
	if _, err := io.ReadFull(src, magic[:]); err != nil {
		return nil, NewKindError(KindCryptoError, "reading encryption header", err)
	}
	if magic != encryptMagic {
		return nil, NewKindError(KindCryptoError, "not an s3m-encrypted object", nil)
	}

	var sizeBuf [segSizeLen]byte
	if _, err := io.ReadFull(src, sizeBuf[:]); err != nil {
		return nil, NewKindError(KindCryptoError, "reading segment size", err)
	}
	segmentSize := binary.BigEndian.Uint32(sizeBuf[:])

	var noncePrefix [noncePrefixLen]byte
	if _, err := io.ReadFull(src, noncePrefix[:]); err != nil {
		return nil, NewKindError(KindCryptoError, "reading nonce prefix", err)
	}

	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		if err := runDecrypt(pw, src, aead, noncePrefix, segmentSize); err != nil {
			pw.CloseWithError(err)
		}
	}()

	return pr, nil
}

func runDecrypt(w io.Writer, src io.Reader, aead cipher.AEAD, noncePrefix [noncePrefixLen]byte, segmentSize uint32) error {
	nonce := make([]byte, nonceLen)
	copy(nonce, noncePrefix[:])

	sealedSegmentSize := int(segmentSize) + chacha20poly1305.Overhead
	cur := make([]byte, sealedSegmentSize)
	curN, curErr := io.ReadFull(src, cur)
	if curErr == io.EOF {
		return nil // empty plaintext
	}
	if curErr != nil && curErr != io.ErrUnexpectedEOF {
		return NewKindError(KindCryptoError, "reading ciphertext segment", curErr)
	}

	var counter uint32
	for {
		next := make([]byte, sealedSegmentSize)
		nextN, nextErr := io.ReadFull(src, next)
		if nextErr != nil && nextErr != io.ErrUnexpectedEOF && nextErr != io.EOF {
			return NewKindError(KindCryptoError, "reading ciphertext segment", nextErr)
		}
		last := nextN == 0

		binary.BigEndian.PutUint32(nonce[noncePrefixLen:noncePrefixLen+4], counter)
		if last {
			nonce[noncePrefixLen+4] = 1
		} else {
			nonce[noncePrefixLen+4] = 0
		}
		plain, err := aead.Open(nil, nonce, cur[:curN], nil)
		if err != nil {
			return NewKindError(KindCryptoError, "authentication failed (wrong key or corrupt data)", err)
		}
		if _, err := w.Write(plain); err != nil {
			return err
		}
		if last {
			return nil
		}

		counter++
		cur, curN = next, nextN
	}
}
