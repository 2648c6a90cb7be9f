package s3m

import (
	"encoding/binary"
	"encoding/hex"

	"lukechampine.com/blake3"
)

// UploadFingerprint identifies a resumable multipart upload, per spec §3.
// It is the blake3-256 digest of every input that, if changed, must force
// a fresh upload: the file's mtime, the access key, the host, the
// bucket, the key, and the chosen part size.
type UploadFingerprint [32]byte

// String returns the hex encoding of the fingerprint, used as the
// resumption store's key and in diagnostic output.
func (f UploadFingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// IsZero reports whether the fingerprint was never computed (stdin
// sources, where fingerprinting is intentionally disabled per spec §3).
func (f UploadFingerprint) IsZero() bool {
	return f == UploadFingerprint{}
}

// ComputeFingerprint derives a file upload's fingerprint. Callers for
// stdin sources must not call this; they use the zero fingerprint to
// signal "no resume" (spec §4.8).
func ComputeFingerprint(mtimeNS int64, accessKeyID, host, bucket, key string, partSize int64) UploadFingerprint {
	h := blake3.New(32, nil)

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(mtimeNS))
	h.Write(buf[:])
	h.Write([]byte(accessKeyID))
	h.Write([]byte(host))
	h.Write([]byte(bucket))
	h.Write([]byte(key))
	binary.BigEndian.PutUint64(buf[:], uint64(partSize))
	h.Write(buf[:])

	var out UploadFingerprint
	copy(out[:], h.Sum(nil))
	return out
}
