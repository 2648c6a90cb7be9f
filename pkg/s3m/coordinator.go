package s3m

import (
	"context"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// CoordinatorState tracks the multipart upload lifecycle (spec §4.7):
// Planned -> InProgress -> Completing -> Done, or -> Aborting -> Aborted
// on failure, or straight to SinglePut -> Done for small objects.
type CoordinatorState int

const (
	StatePlanned CoordinatorState = iota
	StateInProgress
	StateCompleting
	StateDone
	StateAborting
	StateAborted
	StateSinglePut
)

// Coordinator drives one multipart upload end to end: initiating (with
// resume-aware reconciliation via ListParts), a bounded-concurrency
// worker pool for UploadPart, and Complete/Abort (C7).
type Coordinator struct {
	Client  *Client
	Store   *Store
	Bucket  string
	Key     string
	Workers int

	state       atomic.Int32
	uploadID    string
	fingerprint UploadFingerprint
	hostProfile string
}

// clampWorkers bounds the requested worker count to [1, 255], defaulting
// to the host's CPU count when n <= 0 (spec §4.7).
func clampWorkers(n int) int {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n < 1 {
		n = 1
	}
	if n > 255 {
		n = 255
	}
	return n
}

// NewCoordinator builds a Coordinator for one upload.
func NewCoordinator(client *Client, store *Store, hostProfile, bucket, key string, workers int) *Coordinator {
	c := &Coordinator{
		Client:      client,
		Store:       store,
		Bucket:      bucket,
		Key:         key,
		Workers:     clampWorkers(workers),
		hostProfile: hostProfile,
	}
	c.state.Store(int32(StatePlanned))
	return c
}

func (c *Coordinator) State() CoordinatorState {
	return CoordinatorState(c.state.Load())
}

// Initiate starts (or resumes) the multipart upload identified by fp. If
// a resumption record exists, its UploadId is reconciled against the
// server via ListParts before any new part is sent; a mismatch between
// the store and the server is an InconsistentState error, since resuming
// against a server that has forgotten the upload would silently produce
// a corrupt object.
func (c *Coordinator) Initiate(ctx context.Context, fp UploadFingerprint, partSize int64, headers http.Header) ([]PartReceipt, error) {
	c.fingerprint = fp

	if c.Store != nil {
		rec, found, err := c.Store.Lookup(c.hostProfile, fp)
		if err != nil {
			return nil, err
		}
		if found && rec.UploadID != "" {
			serverParts, err := c.Client.ListParts(ctx, c.Bucket, c.Key, rec.UploadID)
			if err != nil {
				return nil, NewKindError(KindInconsistentState, "resuming upload: server no longer recognizes the upload id", err)
			}
			c.uploadID = rec.UploadID
			c.state.Store(int32(StateInProgress))
			return serverParts, nil
		}
	}

	uploadID, err := c.Client.CreateMultipartUpload(ctx, c.Bucket, c.Key, headers)
	if err != nil {
		return nil, err
	}
	c.uploadID = uploadID
	c.state.Store(int32(StateInProgress))

	if c.Store != nil {
		now := time.Now()
		if err := c.Store.Put(ResumeRecord{
			Fingerprint: fp,
			HostProfile: c.hostProfile,
			Bucket:      c.Bucket,
			Key:         c.Key,
			UploadID:    uploadID,
			PartSize:    partSize,
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// PartSource supplies a payload hash and a body for one part number,
// produced by the engine from the C3 pipeline's Chunker+Digester. Data
// holds the in-memory default; Body overrides it (e.g. a spooled, disk-
// backed part from C8) when set, and Release, if non-nil, is called once
// the part's upload has been durably recorded. ContentMD5 and the
// ChecksumAlg/ChecksumValue pair carry the per-chunk digests computed by
// PartChecksums, forwarded as request headers and then onto the part's
// PartReceipt for the Complete manifest (spec §4.4, §4.7).
type PartSource struct {
	PartNumber    int
	Data          []byte
	SHA256Hex     string
	ContentMD5    string
	ChecksumAlg   ExtraChecksumAlg
	ChecksumValue string
	Body          BodySource
	Release       func() error
}

// headers builds the Content-MD5/x-amz-checksum-* request headers for
// this part's UploadPart call.
func (p PartSource) headers() http.Header {
	h := http.Header{}
	if p.ContentMD5 != "" {
		h.Set("Content-MD5", p.ContentMD5)
	}
	if name := checksumHeaderName(p.ChecksumAlg); name != "" {
		h.Set(name, p.ChecksumValue)
	}
	return h
}

func (p PartSource) body() BodySource {
	if p.Body != nil {
		return p.Body
	}
	return NewBytesBody(p.Data)
}

func (p PartSource) size() int64 {
	if p.Body != nil {
		return p.Body.Len()
	}
	return int64(len(p.Data))
}

// UploadParts drains parts, uploading up to Workers of them concurrently,
// skipping any part number already present in alreadyDone (the resume
// path). It returns once every part has either succeeded or the group
// has failed, per spec §4.7's bounded worker pool using
// golang.org/x/sync's errgroup+semaphore (replacing the channel pool the
// original uploader used, in the same producer/worker/collector shape).
func (c *Coordinator) UploadParts(ctx context.Context, parts <-chan PartSource, alreadyDone map[int]PartReceipt) ([]PartReceipt, error) {
	sem := semaphore.NewWeighted(int64(c.Workers))
	g, gctx := errgroup.WithContext(ctx)

	results := make([]PartReceipt, 0)
	resultsCh := make(chan PartReceipt, c.Workers*2)
	done := make(chan struct{})
	go func() {
		for r := range resultsCh {
			results = append(results, r)
		}
		close(done)
	}()

	for p := range parts {
		p := p
		if existing, ok := alreadyDone[p.PartNumber]; ok {
			resultsCh <- existing
			continue
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			if p.Release != nil {
				defer p.Release()
			}
			etag, err := c.Client.UploadPart(gctx, c.Bucket, c.Key, c.uploadID, p.PartNumber, p.body(), p.SHA256Hex, p.headers())
			if err != nil {
				return err
			}
			receipt := PartReceipt{PartNumber: p.PartNumber, ETag: etag, Size: p.size()}
			switch p.ChecksumAlg {
			case ChecksumCRC32:
				receipt.CRC32 = p.ChecksumValue
			case ChecksumCRC32C:
				receipt.CRC32C = p.ChecksumValue
			case ChecksumSHA1:
				receipt.SHA1 = p.ChecksumValue
			case ChecksumSHA256:
				receipt.SHA256 = p.ChecksumValue
			}
			if c.Store != nil {
				if err := c.Store.UpdatePart(c.hostProfile, c.fingerprint, receipt, time.Now()); err != nil {
					return err
				}
			}
			resultsCh <- receipt
			return nil
		})
	}

	err := g.Wait()
	close(resultsCh)
	<-done

	if err != nil {
		return nil, err
	}
	return results, nil
}

// Complete finalizes the upload, given every part's receipt.
func (c *Coordinator) Complete(ctx context.Context, parts []PartReceipt) (string, error) {
	c.state.Store(int32(StateCompleting))
	etag, err := c.Client.CompleteMultipartUpload(ctx, c.Bucket, c.Key, c.uploadID, parts)
	if err != nil {
		return "", err
	}
	c.state.Store(int32(StateDone))
	if c.Store != nil {
		return etag, c.Store.Remove(c.hostProfile, c.fingerprint)
	}
	return etag, nil
}

// Abort cancels the upload and clears any resumption record, since a
// fresh attempt must start over.
func (c *Coordinator) Abort(ctx context.Context) error {
	c.state.Store(int32(StateAborting))
	if c.uploadID != "" {
		if err := c.Client.AbortMultipartUpload(ctx, c.Bucket, c.Key, c.uploadID); err != nil {
			return err
		}
	}
	c.state.Store(int32(StateAborted))
	if c.Store != nil {
		return c.Store.Remove(c.hostProfile, c.fingerprint)
	}
	return nil
}
