package s3m

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// IncompleteUpload represents an incomplete multipart upload discovered
// server-side, independent of whatever local ResumeRecord (if any)
// tracks the same upload.
type IncompleteUpload struct {
	Key       string
	UploadID  string
	Initiated time.Time
}

// CleanupOptions filters which incomplete uploads ListIncompleteUploads
// and CleanupIncompleteUploads act on.
type CleanupOptions struct {
	Prefix     string        // only uploads with this prefix
	OlderThan  time.Duration // only uploads initiated before now-OlderThan
	MaxResults int           // 0 = all
	DryRun     bool          // list only, never abort
}

// CleanupResult summarizes one cleanup pass.
type CleanupResult struct {
	TotalFound   int
	TotalAborted int
	Errors       []error
	Uploads      []IncompleteUpload
}

// ListIncompleteUploads lists every multipart upload in bucket that
// matches opts.
func ListIncompleteUploads(ctx context.Context, host *HostProfile, bucket string, opts CleanupOptions, log *logrus.Entry) ([]IncompleteUpload, error) {
	client := NewClient(host, 3, log)
	raw, err := client.ListMultipartUploads(ctx, bucket)
	if err != nil {
		return nil, err
	}

	cutoff := time.Time{}
	if opts.OlderThan > 0 {
		cutoff = time.Now().Add(-opts.OlderThan)
	}

	var uploads []IncompleteUpload
	for _, u := range raw {
		if opts.Prefix != "" && !hasPrefix(u.Key, opts.Prefix) {
			continue
		}
		initiated, _ := time.Parse(time.RFC3339, u.Initiated)
		if opts.OlderThan > 0 && initiated.After(cutoff) {
			continue
		}
		uploads = append(uploads, IncompleteUpload{Key: u.Key, UploadID: u.UploadID, Initiated: initiated})
		if opts.MaxResults > 0 && len(uploads) >= opts.MaxResults {
			break
		}
	}
	return uploads, nil
}

// CleanupIncompleteUploads aborts the uploads ListIncompleteUploads
// would return, unless opts.DryRun is set.
func CleanupIncompleteUploads(ctx context.Context, host *HostProfile, store *Store, bucket string, opts CleanupOptions, log *logrus.Entry) (*CleanupResult, error) {
	uploads, err := ListIncompleteUploads(ctx, host, bucket, opts, log)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{TotalFound: len(uploads), Uploads: uploads}
	if opts.DryRun {
		return result, nil
	}

	client := NewClient(host, 3, log)
	for _, u := range uploads {
		if err := client.AbortMultipartUpload(ctx, bucket, u.Key, u.UploadID); err != nil {
			result.Errors = append(result.Errors, &UploadError{
				Operation: "aborting " + u.Key + " (upload id " + u.UploadID + ")",
				Err:       err,
			})
			continue
		}
		result.TotalAborted++
	}

	if store != nil {
		recs, err := store.ListInProgress(host.Name)
		if err == nil {
			for _, r := range recs {
				_ = store.Remove(host.Name, r.Fingerprint)
			}
		}
	}

	return result, nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
