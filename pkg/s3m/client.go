package s3m

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Client is the low-level hand-rolled S3 REST client (C1+C2 composed):
// every operation builds a request, signs it, and executes it with
// retry. Higher-level operations (uploader, downloader, lister, ...)
// are thin wrappers over Client's methods.
type Client struct {
	Host     *HostProfile
	Executor *Executor
}

// NewClient builds a Client for host, wiring a fresh Signer and Executor.
// When host.NoSignRequest is set, the Executor skips SignRequest entirely
// (spec §4.1 "No-sign mode", for public buckets that reject signed GETs).
func NewClient(host *HostProfile, maxRetries int, log *logrus.Entry) *Client {
	signer := NewSigner(host)
	executor := NewExecutor(signer, maxRetries, log)
	executor.NoSign = host.NoSignRequest
	return &Client{
		Host:     host,
		Executor: executor,
	}
}

func (c *Client) objectURL(bucket, key string, query url.Values) string {
	u := url.URL{Scheme: c.scheme(), Host: c.Host.Host}
	if c.Host.PathStyle || bucket == "" {
		if bucket != "" {
			u.Path = "/" + bucket + "/" + key
		} else {
			u.Path = "/"
		}
	} else {
		u.Host = bucket + "." + c.Host.Host
		u.Path = "/" + key
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) scheme() string {
	if c.Host.Scheme != "" {
		return c.Host.Scheme
	}
	return "https"
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body BodySource, extraHeaders http.Header) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = io.NopCloser(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, NewKindError(KindBadRequest, "building request", err)
	}
	for k, vv := range extraHeaders {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.ContentLength = body.Len()
	}
	return req, nil
}

// decodeXML reads and parses resp.Body as the given XML type, translating
// a non-2xx response into an apiErrorXML-derived KindError first.
func decodeXML(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewKindError(KindIoError, "reading response body", err)
	}
	if resp.StatusCode >= 300 {
		return apiErrorFromBody(resp.StatusCode, data)
	}
	if v == nil || len(data) == 0 {
		return nil
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return NewKindError(KindServerError, "decoding XML response", err)
	}
	return nil
}

func apiErrorFromBody(status int, data []byte) error {
	var apiErr apiErrorXML
	kind := KindServerError
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuthError
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusTooManyRequests:
		kind = KindThrottled
	case status >= 400 && status < 500:
		kind = KindBadRequest
	}
	if xml.Unmarshal(data, &apiErr) == nil && apiErr.Code != "" {
		return NewKindError(kind, fmt.Sprintf("%s: %s", apiErr.Code, apiErr.Message), nil)
	}
	return NewKindError(kind, httpStatusMsg(status), nil)
}

// CreateMultipartUpload issues POST /{key}?uploads.
func (c *Client) CreateMultipartUpload(ctx context.Context, bucket, key string, headers http.Header) (string, error) {
	u := c.objectURL(bucket, key, url.Values{"uploads": {""}})
	req, err := c.newRequest(ctx, http.MethodPost, u, nil, headers)
	if err != nil {
		return "", err
	}
	resp, err := c.Executor.Execute(ctx, req, nil, UnsignedPayload)
	if err != nil {
		return "", err
	}
	var result initiateMultipartResult
	if err := decodeXML(resp, &result); err != nil {
		return "", err
	}
	return result.UploadID, nil
}

// UploadPart issues PUT /{key}?partNumber=N&uploadId=..., carrying the
// part's Content-MD5 and optional x-amz-checksum-* header (spec §4.4,
// §4.7), and returns the ETag S3 assigned the part.
func (c *Client) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, body BodySource, payloadHash string, headers http.Header) (string, error) {
	q := url.Values{
		"partNumber": {strconv.Itoa(partNumber)},
		"uploadId":   {uploadID},
	}
	u := c.objectURL(bucket, key, q)
	req, err := c.newRequest(ctx, http.MethodPut, u, body, headers)
	if err != nil {
		return "", err
	}
	resp, err := c.Executor.Execute(ctx, req, body, payloadHash)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	etag := strings.Trim(resp.Header.Get("ETag"), `"`)
	if etag == "" {
		return "", NewKindError(KindInconsistentState, "server accepted part without returning an ETag", nil)
	}
	return etag, nil
}

// CompleteMultipartUpload issues POST /{key}?uploadId=... with the final
// part manifest, sorted ascending by part number (S3 requires this).
func (c *Client) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []PartReceipt) (string, error) {
	sorted := append([]PartReceipt(nil), parts...)
	sortPartReceipts(sorted)

	body := completeMultipartUploadXML{}
	for _, p := range sorted {
		body.Parts = append(body.Parts, completedPartXML{
			PartNumber:     p.PartNumber,
			ETag:           p.ETag,
			ChecksumCRC32:  p.CRC32,
			ChecksumCRC32C: p.CRC32C,
			ChecksumSHA1:   p.SHA1,
			ChecksumSHA256: p.SHA256,
		})
	}
	payload, err := xml.Marshal(body)
	if err != nil {
		return "", NewKindError(KindBadRequest, "encoding complete-multipart body", err)
	}

	u := c.objectURL(bucket, key, url.Values{"uploadId": {uploadID}})
	bs := NewBytesBody(payload)
	hash := hexSHA256(payload)
	req, err := c.newRequest(ctx, http.MethodPost, u, bs, http.Header{"Content-Type": {"application/xml"}})
	if err != nil {
		return "", err
	}
	resp, err := c.Executor.Execute(ctx, req, bs, hash)
	if err != nil {
		return "", err
	}
	var result completeMultipartResult
	if err := decodeXML(resp, &result); err != nil {
		return "", err
	}
	return result.ETag, nil
}

// AbortMultipartUpload issues DELETE /{key}?uploadId=....
func (c *Client) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	u := c.objectURL(bucket, key, url.Values{"uploadId": {uploadID}})
	req, err := c.newRequest(ctx, http.MethodDelete, u, nil, nil)
	if err != nil {
		return err
	}
	resp, err := c.Executor.Execute(ctx, req, nil, hexSHA256(nil))
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// ListParts issues GET /{key}?uploadId=... to reconcile a resumed
// upload's server-side state.
func (c *Client) ListParts(ctx context.Context, bucket, key, uploadID string) ([]PartReceipt, error) {
	u := c.objectURL(bucket, key, url.Values{"uploadId": {uploadID}})
	req, err := c.newRequest(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Executor.Execute(ctx, req, nil, hexSHA256(nil))
	if err != nil {
		return nil, err
	}
	var result listPartsResult
	if err := decodeXML(resp, &result); err != nil {
		return nil, err
	}
	out := make([]PartReceipt, 0, len(result.Parts))
	for _, p := range result.Parts {
		out = append(out, PartReceipt{PartNumber: p.PartNumber, ETag: strings.Trim(p.ETag, `"`), Size: p.Size})
	}
	return out, nil
}

// PutObject issues a single, non-multipart PUT /{key}.
func (c *Client) PutObject(ctx context.Context, bucket, key string, body BodySource, payloadHash string, headers http.Header) (string, error) {
	u := c.objectURL(bucket, key, nil)
	req, err := c.newRequest(ctx, http.MethodPut, u, body, headers)
	if err != nil {
		return "", err
	}
	resp, err := c.Executor.Execute(ctx, req, body, payloadHash)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return strings.Trim(resp.Header.Get("ETag"), `"`), nil
}

// GetObject issues GET /{key} (optionally GET /{key}?versionId=...) and
// returns the response body for the caller to stream through the
// decrypt/decompress pipeline.
func (c *Client) GetObject(ctx context.Context, bucket, key, version string) (io.ReadCloser, http.Header, error) {
	var query url.Values
	if version != "" {
		query = url.Values{"versionId": {version}}
	}
	u := c.objectURL(bucket, key, query)
	req, err := c.newRequest(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.Executor.Execute(ctx, req, nil, UnsignedPayload)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, nil, apiErrorFromBody(resp.StatusCode, data)
	}
	return resp.Body, resp.Header, nil
}

// HeadObject issues HEAD /{key} and returns the response headers only.
func (c *Client) HeadObject(ctx context.Context, bucket, key string) (http.Header, error) {
	u := c.objectURL(bucket, key, nil)
	req, err := c.newRequest(ctx, http.MethodHead, u, nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Executor.Execute(ctx, req, nil, hexSHA256(nil))
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	return resp.Header, nil
}

// DeleteObject issues DELETE /{key} (optionally DELETE
// /{key}?versionId=... to remove one specific version).
func (c *Client) DeleteObject(ctx context.Context, bucket, key, version string) error {
	var query url.Values
	if version != "" {
		query = url.Values{"versionId": {version}}
	}
	u := c.objectURL(bucket, key, query)
	req, err := c.newRequest(ctx, http.MethodDelete, u, nil, nil)
	if err != nil {
		return err
	}
	resp, err := c.Executor.Execute(ctx, req, nil, hexSHA256(nil))
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// CreateBucket issues PUT / against the bucket vhost/path.
func (c *Client) CreateBucket(ctx context.Context, bucket string) error {
	u := c.objectURL(bucket, "", nil)
	req, err := c.newRequest(ctx, http.MethodPut, u, nil, nil)
	if err != nil {
		return err
	}
	resp, err := c.Executor.Execute(ctx, req, nil, hexSHA256(nil))
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// DeleteBucket issues DELETE / against the bucket vhost/path.
func (c *Client) DeleteBucket(ctx context.Context, bucket string) error {
	u := c.objectURL(bucket, "", nil)
	req, err := c.newRequest(ctx, http.MethodDelete, u, nil, nil)
	if err != nil {
		return err
	}
	resp, err := c.Executor.Execute(ctx, req, nil, hexSHA256(nil))
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// ListBuckets issues GET / against the service endpoint.
func (c *Client) ListBuckets(ctx context.Context) ([]string, error) {
	u := c.objectURL("", "", nil)
	req, err := c.newRequest(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Executor.Execute(ctx, req, nil, hexSHA256(nil))
	if err != nil {
		return nil, err
	}
	var result listAllMyBucketsResult
	if err := decodeXML(resp, &result); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(result.Buckets))
	for _, b := range result.Buckets {
		names = append(names, b.Name)
	}
	return names, nil
}

// ListObjects issues GET /?prefix=... (ListObjectsV2-style, no
// continuation token handling beyond a single page, adequate for `s3m ls`).
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]objectEntry, error) {
	q := url.Values{"list-type": {"2"}}
	if prefix != "" {
		q.Set("prefix", prefix)
	}
	u := c.objectURL(bucket, "", q)
	req, err := c.newRequest(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Executor.Execute(ctx, req, nil, hexSHA256(nil))
	if err != nil {
		return nil, err
	}
	var result listBucketResult
	if err := decodeXML(resp, &result); err != nil {
		return nil, err
	}
	return result.Contents, nil
}

// ObjectVersion is one entry in an object's version history.
type ObjectVersion struct {
	VersionID    string
	IsLatest     bool
	LastModified string
	Size         int64
}

// ListObjectVersions issues GET /?versions&prefix={key}, for `s3m get
// --versions` to show an object's version history before a caller picks
// a versionId to fetch.
func (c *Client) ListObjectVersions(ctx context.Context, bucket, key string) ([]ObjectVersion, error) {
	u := c.objectURL(bucket, "", url.Values{"versions": {""}, "prefix": {key}})
	req, err := c.newRequest(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Executor.Execute(ctx, req, nil, hexSHA256(nil))
	if err != nil {
		return nil, err
	}
	var result listVersionsResult
	if err := decodeXML(resp, &result); err != nil {
		return nil, err
	}
	out := make([]ObjectVersion, 0, len(result.Versions))
	for _, v := range result.Versions {
		if v.Key != key {
			continue
		}
		out = append(out, ObjectVersion{
			VersionID:    v.VersionID,
			IsLatest:     v.IsLatest,
			LastModified: v.LastModified,
			Size:         v.Size,
		})
	}
	return out, nil
}

// ListMultipartUploads issues GET /?uploads, for `s3m ls --multipart`.
func (c *Client) ListMultipartUploads(ctx context.Context, bucket string) ([]multipartUploadXML, error) {
	u := c.objectURL(bucket, "", url.Values{"uploads": {""}})
	req, err := c.newRequest(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Executor.Execute(ctx, req, nil, hexSHA256(nil))
	if err != nil {
		return nil, err
	}
	var result listMultipartUploadsResult
	if err := decodeXML(resp, &result); err != nil {
		return nil, err
	}
	return result.Uploads, nil
}

// ObjectGrant is one grantee/permission pair from an object's ACL.
type ObjectGrant struct {
	Grantee    string // display name, or the grantee URI for group grants
	Permission string
}

// GetObjectACL issues GET /{key}?acl and returns the object owner's display
// name and grant list.
func (c *Client) GetObjectACL(ctx context.Context, bucket, key string) (owner string, grants []ObjectGrant, err error) {
	u := c.objectURL(bucket, key, url.Values{"acl": {""}})
	req, err := c.newRequest(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := c.Executor.Execute(ctx, req, nil, hexSHA256(nil))
	if err != nil {
		return "", nil, err
	}
	var result accessControlPolicyXML
	if err := decodeXML(resp, &result); err != nil {
		return "", nil, err
	}
	out := make([]ObjectGrant, 0, len(result.Grants))
	for _, g := range result.Grants {
		grantee := g.Grantee.DisplayName
		if grantee == "" {
			grantee = g.Grantee.URI
		}
		out = append(out, ObjectGrant{Grantee: grantee, Permission: g.Permission})
	}
	return result.Owner.DisplayName, out, nil
}

// PutObjectACL issues PUT /{key}?acl with the given canned ACL name in
// the X-Amz-Acl header. S3 does not validate canned ACL names beyond
// non-emptiness, and neither does s3m (spec's Open Question on ACL
// passthrough).
func (c *Client) PutObjectACL(ctx context.Context, bucket, key, canned string) error {
	u := c.objectURL(bucket, key, url.Values{"acl": {""}})
	headers := http.Header{"X-Amz-Acl": {canned}}
	req, err := c.newRequest(ctx, http.MethodPut, u, nil, headers)
	if err != nil {
		return err
	}
	resp, err := c.Executor.Execute(ctx, req, nil, hexSHA256(nil))
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

func sortPartReceipts(parts []PartReceipt) {
	for i := 1; i < len(parts); i++ {
		for j := i; j > 0 && parts[j-1].PartNumber > parts[j].PartNumber; j-- {
			parts[j-1], parts[j] = parts[j], parts[j-1]
		}
	}
}
