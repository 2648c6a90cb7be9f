package s3m

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Engine is the C9 facade: it dispatches one validated Action to the
// signer/executor/planner/coordinator/store/pipeline stack, the same
// role the original package's top-level New/Uploader/Downloader
// constructors played, now generalized across every Action kind rather
// than one upload-shaped entry point.
type Engine struct {
	Host       *HostProfile
	Store      *Store
	Log        *logrus.Entry
	MaxRetries int // per-request retry budget passed to the executor (C2); 0 = default of 3
}

// NewEngine builds an Engine bound to one host profile and an optional
// resumption store (nil disables resumption entirely).
func NewEngine(host *HostProfile, store *Store, log *logrus.Entry) *Engine {
	return &Engine{Host: host, Store: store, Log: log}
}

// Run dispatches a, returning an action-specific result value (an ETag
// string for puts, a byte count for downloads, a slice of listings,
// etc.) as interface{}; callers type-assert based on the concrete Action
// they passed in.
func (e *Engine) Run(ctx context.Context, a Action) (interface{}, error) {
	switch act := a.(type) {
	case *PutObjectAction:
		return e.runPut(ctx, act)
	case *GetObjectAction:
		if act.Versions {
			return e.client().ListObjectVersions(ctx, e.bucketOr(act.Bucket), act.Key)
		}
		return e.runGet(ctx, act)
	case *ListObjectsAction:
		return e.runListObjects(ctx, act)
	case *ListBucketsAction:
		return e.client().ListBuckets(ctx)
	case *ListMultipartAction:
		lister := &Lister{host: e.Host, client: e.client()}
		return lister.ListMultipart(ctx, e.bucketOr(act.Bucket))
	case *DeleteObjectAction:
		return nil, e.client().DeleteObject(ctx, e.bucketOr(act.Bucket), act.Key, act.Version)
	case *AbortMultipartAction:
		return nil, e.runAbort(ctx, act)
	case *CreateBucketAction:
		return nil, e.client().CreateBucket(ctx, act.Bucket)
	case *DeleteBucketAction:
		return nil, e.client().DeleteBucket(ctx, act.Bucket)
	case *HeadObjectAction:
		return e.client().HeadObject(ctx, e.bucketOr(act.Bucket), act.Key)
	case *ShareAction:
		signer := NewSigner(e.Host)
		u := e.client().objectURL(e.bucketOr(act.Bucket), act.Key, nil)
		return signer.PresignURL(http.MethodGet, u, act.Expires, time.Now())
	case *GetAclAction:
		owner, grants, err := e.client().GetObjectACL(ctx, e.bucketOr(act.Bucket), act.Key)
		if err != nil {
			return nil, err
		}
		return struct {
			Owner  string
			Grants []ObjectGrant
		}{owner, grants}, nil
	case *PutAclAction:
		return nil, e.client().PutObjectACL(ctx, e.bucketOr(act.Bucket), act.Key, act.ACL)
	default:
		return nil, NewKindError(KindBadRequest, "unsupported action", nil)
	}
}

// runAbort cancels the upload server-side and, when a resumption store is
// attached, removes the matching local ResumeRecord (spec §4.6, §4.7): an
// UploadID alone doesn't carry the fingerprint Store.Remove needs, so it
// scans ListInProgress for the record naming this upload, mirroring what
// Coordinator.Abort does in-process via its own fingerprint.
func (e *Engine) runAbort(ctx context.Context, act *AbortMultipartAction) error {
	bucket := e.bucketOr(act.Bucket)
	if err := e.client().AbortMultipartUpload(ctx, bucket, act.Key, act.UploadID); err != nil {
		return err
	}
	if e.Store == nil {
		return nil
	}
	recs, err := e.Store.ListInProgress(e.Host.Name)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if rec.UploadID == act.UploadID {
			return e.Store.Remove(e.Host.Name, rec.Fingerprint)
		}
	}
	return nil
}

func (e *Engine) client() *Client {
	retries := e.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	return NewClient(e.Host, retries, e.Log)
}

func (e *Engine) bucketOr(bucket string) string {
	if bucket != "" {
		return bucket
	}
	return e.Host.Bucket
}

// runPut implements the full upload path: plan (C5), then either a
// single PUT or a coordinated multipart upload driven through the C3
// transform pipeline.
func (e *Engine) runPut(ctx context.Context, act *PutObjectAction) (interface{}, error) {
	client := e.client()
	bucket := e.bucketOr(act.Bucket)

	limits := DefaultS3Limits()
	baseSize := act.BufferSize

	// A source run through compression or encryption loses its known
	// size, so the planner must treat it like stdin even when the
	// original file size was known (spec §4.5).
	planSize := act.SourceSize
	if act.Compress || act.Encrypt {
		planSize = -1
	}
	plan, err := PlanUpload(planSize, baseSize, limits)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	for k, v := range act.Metadata {
		headers.Set("X-Amz-Meta-"+k, v)
	}
	if act.ACL != "" {
		headers.Set("X-Amz-Acl", act.ACL)
	}
	contentType := DetectContentType(act.Key)
	headers.Set("Content-Type", contentType)
	if enc := GetContentEncoding(act.Key); enc != "" {
		headers.Set("Content-Encoding", enc)
	}

	var encKey []byte
	if act.Encrypt {
		encKey = e.Host.EncryptionKey
	}
	// Requesting --compress on a key that already carries a compressed
	// extension (.gz, .br, .zst) would waste a pass over an already-compressed
	// stream; defer to what the extension already tells us.
	compress := act.Compress && GetContentEncoding(act.Key) == ""
	pipeOpts := PipelineOptions{
		Compress:      compress,
		EncryptionKey: encKey,
		ChecksumAlg:   ExtraChecksumAlg(act.ChecksumAlg),
		Fingerprint:   planSize >= 0,
		PartSize:      plan.PartSize,
		ThrottleKiBps: act.ThrottleKiBps,
	}

	if plan.Kind == PlanSinglePut {
		return e.putSingle(ctx, client, bucket, act.Key, act.Source, headers, pipeOpts)
	}
	return e.putMultipart(ctx, client, bucket, act, plan, headers, pipeOpts)
}

func (e *Engine) putSingle(ctx context.Context, client *Client, bucket, key string, src io.Reader, headers http.Header, pipeOpts PipelineOptions) (interface{}, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, NewKindError(KindIoError, "reading source for single PUT", err)
	}

	pl, err := BuildPipeline(ctx, &staticReader{data: data}, pipeOpts)
	if err != nil {
		return nil, err
	}
	var out []byte
	for {
		chunk, err := pl.Chunker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}

	headers.Set("Content-MD5", pl.Digester.ContentMD5())
	if name, value := pl.Digester.ExtraChecksumHeader(); name != "" {
		headers.Set(name, value)
	}

	body := NewBytesBody(out)
	etag, err := client.PutObject(ctx, bucket, key, body, pl.Digester.SHA256Hex(), headers)
	if err != nil {
		return nil, err
	}
	return etag, nil
}

func (e *Engine) putMultipart(ctx context.Context, client *Client, bucket string, act *PutObjectAction, plan PartPlan, headers http.Header, pipeOpts PipelineOptions) (interface{}, error) {
	var fp UploadFingerprint
	if act.SourceSize >= 0 {
		fp = ComputeFingerprint(act.SourceMTimeNS, e.Host.AccessKeyID, e.Host.Host, bucket, act.Key, plan.PartSize)
	}

	if act.Clean && e.Store != nil && !fp.IsZero() {
		if err := e.Store.Remove(e.Host.Name, fp); err != nil {
			return nil, err
		}
	}

	coord := NewCoordinator(client, e.Store, e.Host.Name, bucket, act.Key, act.Workers)
	existingParts, err := coord.Initiate(ctx, fp, plan.PartSize, headers)
	if err != nil {
		return nil, err
	}
	alreadyDone := make(map[int]PartReceipt, len(existingParts))
	for _, p := range existingParts {
		alreadyDone[p.PartNumber] = p
	}

	pl, err := BuildPipeline(ctx, act.Source, pipeOpts)
	if err != nil {
		return nil, err
	}

	partsCh := make(chan PartSource)
	var readErr error
	if plan.Spool {
		spool := NewSpool(act.TmpDir, plan.PartSize)
		go func() {
			defer close(partsCh)
			n := 1
			for {
				chunk, err := pl.Chunker.Next()
				if err == io.EOF {
					return
				}
				if err != nil {
					readErr = err
					return
				}
				sum := hexSHA256(chunk)
				contentMD5, _, extraValue := PartChecksums(chunk, pipeOpts.ChecksumAlg)
				part, err := spool.SpillBytes(chunk, n)
				if err != nil {
					readErr = err
					return
				}
				if _, err := part.Open(); err != nil {
					readErr = err
					part.Release()
					return
				}
				partsCh <- PartSource{
					PartNumber:    n,
					SHA256Hex:     sum,
					ContentMD5:    contentMD5,
					ChecksumAlg:   pipeOpts.ChecksumAlg,
					ChecksumValue: extraValue,
					Body:          part.Body(),
					Release:       part.Release,
				}
				n++
			}
		}()
	} else {
		go func() {
			defer close(partsCh)
			n := 1
			for {
				chunk, err := pl.Chunker.Next()
				if err == io.EOF {
					return
				}
				if err != nil {
					readErr = err
					return
				}
				data := append([]byte(nil), chunk...)
				contentMD5, _, extraValue := PartChecksums(data, pipeOpts.ChecksumAlg)
				partsCh <- PartSource{
					PartNumber:    n,
					Data:          data,
					SHA256Hex:     hexSHA256(data),
					ContentMD5:    contentMD5,
					ChecksumAlg:   pipeOpts.ChecksumAlg,
					ChecksumValue: extraValue,
				}
				n++
			}
		}()
	}

	receipts, err := coord.UploadParts(ctx, partsCh, alreadyDone)
	if err != nil {
		_ = coord.Abort(ctx)
		return nil, err
	}
	if readErr != nil {
		_ = coord.Abort(ctx)
		return nil, readErr
	}

	return coord.Complete(ctx, receipts)
}

// runListObjects lists bucket/prefix via the Lister (C-lister), then
// applies StartAfter/Limit client-side: the wire protocol this server
// speaks (ListObjectsV2-shaped, without a continuation token) gives us
// no cheaper way to resume a listing than filtering the full page.
func (e *Engine) runListObjects(ctx context.Context, act *ListObjectsAction) (interface{}, error) {
	lister := &Lister{host: e.Host, client: e.client()}
	objects, err := lister.List(ctx, e.bucketOr(act.Bucket), act.Prefix)
	if err != nil {
		return nil, err
	}
	if act.StartAfter != "" {
		filtered := objects[:0]
		past := false
		for _, o := range objects {
			if past {
				filtered = append(filtered, o)
			} else if o.Key == act.StartAfter {
				past = true
			}
		}
		objects = filtered
	}
	if act.Limit > 0 && len(objects) > act.Limit {
		objects = objects[:act.Limit]
	}
	return objects, nil
}

func (e *Engine) runGet(ctx context.Context, act *GetObjectAction) (interface{}, error) {
	client := e.client()
	bucket := e.bucketOr(act.Bucket)

	body, _, err := client.GetObject(ctx, bucket, act.Key, act.Version)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var stream io.Reader = body
	if act.Decrypt && e.Host.EncryptionKey != nil {
		dec, err := DecryptReader(stream, e.Host.EncryptionKey)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		stream = dec
	}
	if act.Decompress {
		dec, err := DecompressReader(stream)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		stream = dec
	}

	n, err := io.Copy(act.Dest, stream)
	if err != nil {
		return n, NewKindError(KindIoError, "writing downloaded object", err)
	}
	return n, nil
}

// staticReader adapts a byte slice to io.Reader for BuildPipeline's
// single-PUT path, where the full body is already materialized.
type staticReader struct {
	data []byte
	pos  int
}

func (r *staticReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
