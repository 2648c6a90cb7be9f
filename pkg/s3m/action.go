package s3m

import "io"

// Action is the tagged union of operations the engine facade (C9) can
// dispatch, per spec §3. Each concrete type implements isAction so the
// set is closed to this package.
type Action interface {
	isAction()
}

// PutObjectAction uploads source to bucket/key, choosing single-PUT or
// multipart via the planner (C5).
type PutObjectAction struct {
	Source        io.Reader
	SourceSize    int64 // -1 when unknown (stdin, compressed stream)
	SourceMTimeNS int64 // 0 when the source has no mtime (stdin)
	Bucket        string
	Key           string
	ACL           string
	Metadata      map[string]string
	ChecksumAlg   string // "", "crc32", "crc32c", "sha1", "sha256"
	Compress      bool
	Encrypt       bool
	Clean         bool // wipe the resumption store before starting
	BufferSize    int64
	Workers       int
	ThrottleKiBps int

	// TmpDir overrides the directory C8 spools parts into (os.TempDir
	// when empty). Spooling itself is driven by the planner: any
	// source with an unknown size — stdin, or a compressed/encrypted
	// stream — is spooled to disk a part at a time rather than held in
	// memory (spec §4.5, §4.8).
	TmpDir string
}

func (PutObjectAction) isAction() {}

// GetObjectAction downloads bucket/key. Versions, when true, lists the
// object's version history instead of downloading a body; Dest is unused
// in that mode.
type GetObjectAction struct {
	Bucket     string
	Key        string
	Version    string
	Versions   bool
	Force      bool
	Decrypt    bool
	Decompress bool
	Dest       io.Writer
}

func (GetObjectAction) isAction() {}

// ListBucketsAction lists the buckets visible to the credentials.
type ListBucketsAction struct{}

func (ListBucketsAction) isAction() {}

// ListObjectsAction lists objects in a bucket.
type ListObjectsAction struct {
	Bucket     string
	Prefix     string
	StartAfter string
	Limit      int
}

func (ListObjectsAction) isAction() {}

// ListMultipartAction lists in-progress multipart uploads on the server.
type ListMultipartAction struct {
	Bucket string
	Prefix string
}

func (ListMultipartAction) isAction() {}

// DeleteObjectAction deletes a single object version.
type DeleteObjectAction struct {
	Bucket  string
	Key     string
	Version string
}

func (DeleteObjectAction) isAction() {}

// DeleteBucketAction removes an empty bucket.
type DeleteBucketAction struct {
	Bucket string
}

func (DeleteBucketAction) isAction() {}

// AbortMultipartAction aborts an in-progress multipart upload and
// removes any matching local ResumeRecord.
type AbortMultipartAction struct {
	Bucket   string
	Key      string
	UploadID string
}

func (AbortMultipartAction) isAction() {}

// CreateBucketAction creates a bucket.
type CreateBucketAction struct {
	Bucket string
	ACL    string
}

func (CreateBucketAction) isAction() {}

// HeadObjectAction retrieves object metadata without downloading the body.
type HeadObjectAction struct {
	Bucket string
	Key    string
}

func (HeadObjectAction) isAction() {}

// ShareAction produces a presigned URL.
type ShareAction struct {
	Bucket  string
	Key     string
	Expires int // seconds, 1..604800
}

func (ShareAction) isAction() {}

// GetAclAction retrieves the canned ACL of an object.
type GetAclAction struct {
	Bucket string
	Key    string
}

func (GetAclAction) isAction() {}

// PutAclAction sets a canned ACL on an object.
type PutAclAction struct {
	Bucket string
	Key    string
	ACL    string
}

func (PutAclAction) isAction() {}
