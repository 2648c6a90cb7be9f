package s3m

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Object represents an S3 object with metadata, independent of any wire
// format (it's populated from listBucketResult's XML entries).
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// MultipartUploadSummary describes one in-progress server-side multipart
// upload, for `s3m ls --multipart`.
type MultipartUploadSummary struct {
	Key       string
	UploadID  string
	Initiated time.Time
}

// Lister handles listing objects and in-progress multipart uploads in
// S3-compatible storage, via the hand-rolled Client.
type Lister struct {
	host   *HostProfile
	client *Client
}

// NewLister creates a new lister bound to host.
func NewLister(host *HostProfile, log *logrus.Entry) *Lister {
	return &Lister{host: host, client: NewClient(host, 3, log)}
}

// List retrieves objects from bucket matching prefix.
func (l *Lister) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	entries, err := l.client.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}
	objects := make([]Object, 0, len(entries))
	for _, e := range entries {
		lastModified, _ := time.Parse(time.RFC3339, e.LastModified)
		objects = append(objects, Object{
			Key:          e.Key,
			Size:         e.Size,
			LastModified: lastModified,
		})
	}
	return objects, nil
}

// ListMultipart retrieves in-progress multipart uploads in bucket.
func (l *Lister) ListMultipart(ctx context.Context, bucket string) ([]MultipartUploadSummary, error) {
	uploads, err := l.client.ListMultipartUploads(ctx, bucket)
	if err != nil {
		return nil, err
	}
	out := make([]MultipartUploadSummary, 0, len(uploads))
	for _, u := range uploads {
		initiated, _ := time.Parse(time.RFC3339, u.Initiated)
		out = append(out, MultipartUploadSummary{
			Key:       u.Key,
			UploadID:  u.UploadID,
			Initiated: initiated,
		})
	}
	return out, nil
}
