// Copyright 2025 Matthew Gall <me@matthewgall.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package s3m

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

func testHost(t *testing.T, srv *httptest.Server) *HostProfile {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing test server URL: %v", err)
	}
	return &HostProfile{
		Name:        "test",
		Region:      "us-east-1",
		Scheme:      "http",
		Host:        u.Host,
		AccessKeyID: "AKIATEST",
		SecretKey:   NewSecretString("secret"),
		Bucket:      "test-bucket",
		PathStyle:   true,
	}
}

func discardLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(discardWriter{})
	return logrus.NewEntry(log)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		host    *HostProfile
		action  *PutObjectAction
		wantErr bool
	}{
		{
			name:    "missing bucket everywhere",
			host:    &HostProfile{},
			action:  &PutObjectAction{Key: "k", Source: bytes.NewReader(nil)},
			wantErr: true,
		},
		{
			name:    "missing key",
			host:    &HostProfile{Bucket: "b"},
			action:  &PutObjectAction{Source: bytes.NewReader(nil)},
			wantErr: true,
		},
		{
			name:    "missing source",
			host:    &HostProfile{Bucket: "b"},
			action:  &PutObjectAction{Key: "k"},
			wantErr: true,
		},
		{
			name:    "bucket from action covers empty host bucket",
			host:    &HostProfile{},
			action:  &PutObjectAction{Bucket: "b", Key: "k", Source: bytes.NewReader(nil)},
			wantErr: false,
		},
		{
			name:    "valid",
			host:    &HostProfile{Bucket: "b"},
			action:  &PutObjectAction{Key: "k", Source: bytes.NewReader(nil)},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.host, nil, tt.action, discardLog())
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// fakeS3 is a minimal in-memory S3 REST fake, just enough surface to
// drive a single PUT and a full multipart upload through Client.
type fakeS3 struct {
	mu           sync.Mutex
	uploadID     string
	parts        map[int][]byte
	partHeaders  map[int]http.Header
	completeBody []byte
	objects      map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{parts: map[int][]byte{}, partHeaders: map[int]http.Header{}, objects: map[string][]byte{}}
}

func (f *fakeS3) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		key := strings.TrimPrefix(r.URL.Path, "/test-bucket/")

		body := new(bytes.Buffer)
		body.ReadFrom(r.Body)

		switch {
		case r.Method == http.MethodPost && q.Has("uploads"):
			f.mu.Lock()
			f.uploadID = "upload-1"
			f.mu.Unlock()
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprintf(w, `<InitiateMultipartUploadResult><Bucket>test-bucket</Bucket><Key>%s</Key><UploadId>%s</UploadId></InitiateMultipartUploadResult>`, key, f.uploadID)

		case r.Method == http.MethodPut && q.Has("partNumber"):
			n, _ := strconv.Atoi(q.Get("partNumber"))
			f.mu.Lock()
			f.parts[n] = body.Bytes()
			f.partHeaders[n] = r.Header.Clone()
			f.mu.Unlock()
			w.Header().Set("ETag", fmt.Sprintf(`"etag-part-%d"`, n))

		case r.Method == http.MethodPost && q.Has("uploadId"):
			f.mu.Lock()
			f.completeBody = body.Bytes()
			f.mu.Unlock()
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprintf(w, `<CompleteMultipartUploadResult><Bucket>test-bucket</Bucket><Key>%s</Key><ETag>"final-etag"</ETag></CompleteMultipartUploadResult>`, key)

		case r.Method == http.MethodDelete && q.Has("uploadId"):
			w.WriteHeader(http.StatusNoContent)

		case r.Method == http.MethodPut:
			f.mu.Lock()
			f.objects[key] = body.Bytes()
			f.mu.Unlock()
			w.Header().Set("ETag", `"single-put-etag"`)

		default:
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.String())
		}
	}
}

func TestUploader_Upload_SinglePut(t *testing.T) {
	fake := newFakeS3()
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	host := testHost(t, srv)
	data := []byte("small object body")
	act := &PutObjectAction{
		Source:     bytes.NewReader(data),
		SourceSize: int64(len(data)),
		Key:        "objects/small.txt",
		BufferSize: 5 * 1024 * 1024,
	}

	u, err := New(host, nil, act, discardLog())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	etag, err := u.Upload(t.Context())
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if etag != "single-put-etag" {
		t.Errorf("Upload() etag = %q, want %q", etag, "single-put-etag")
	}
	if got := fake.objects["objects/small.txt"]; string(got) != string(data) {
		t.Errorf("uploaded body = %q, want %q", got, data)
	}
}

func TestUploader_Upload_Multipart(t *testing.T) {
	fake := newFakeS3()
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	host := testHost(t, srv)
	// Large enough, relative to BufferSize, that the planner (C5) picks
	// multipart over a single PUT (spec §4.5).
	size := int64(12 * 1024 * 1024)
	act := &PutObjectAction{
		Source:     bytes.NewReader(make([]byte, size)),
		SourceSize: size,
		Key:        "objects/big.bin",
		BufferSize: 5 * 1024 * 1024,
		Workers:    2,
	}

	storePath := filepath.Join(t.TempDir(), "resume.db")
	store, err := OpenStore(storePath)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer store.Close()

	u, err := New(host, store, act, discardLog())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	etag, err := u.Upload(t.Context())
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if etag != "final-etag" {
		t.Errorf("Upload() etag = %q, want %q", etag, "final-etag")
	}
	if len(fake.parts) < 2 {
		t.Errorf("expected at least 2 parts uploaded, got %d", len(fake.parts))
	}
}

func TestUploader_Upload_Multipart_PartChecksums(t *testing.T) {
	fake := newFakeS3()
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	host := testHost(t, srv)
	size := int64(12 * 1024 * 1024)
	act := &PutObjectAction{
		Source:      bytes.NewReader(make([]byte, size)),
		SourceSize:  size,
		Key:         "objects/big.bin",
		BufferSize:  5 * 1024 * 1024,
		Workers:     2,
		ChecksumAlg: "sha256",
	}

	storePath := filepath.Join(t.TempDir(), "resume.db")
	store, err := OpenStore(storePath)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer store.Close()

	u, err := New(host, store, act, discardLog())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := u.Upload(t.Context()); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if len(fake.partHeaders) < 2 {
		t.Fatalf("expected at least 2 parts uploaded, got %d", len(fake.partHeaders))
	}
	for n, h := range fake.partHeaders {
		if h.Get("Content-MD5") == "" {
			t.Errorf("part %d: missing Content-MD5 header", n)
		}
		if h.Get("x-amz-checksum-sha256") == "" {
			t.Errorf("part %d: missing x-amz-checksum-sha256 header", n)
		}
	}
	if !bytes.Contains(fake.completeBody, []byte("<ChecksumSHA256>")) {
		t.Errorf("CompleteMultipartUpload body missing <ChecksumSHA256> element: %s", fake.completeBody)
	}
}

func TestUploader_Abort(t *testing.T) {
	fake := newFakeS3()
	var aborted bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && r.URL.Query().Has("uploadId") {
			aborted = true
			w.WriteHeader(http.StatusNoContent)
			return
		}
		fake.handler(t)(w, r)
	}))
	defer srv.Close()

	host := testHost(t, srv)
	storePath := filepath.Join(t.TempDir(), "resume.db")
	store, err := OpenStore(storePath)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer store.Close()

	act := &PutObjectAction{
		Source:        bytes.NewReader(nil),
		SourceSize:    1024,
		SourceMTimeNS: 1000,
		Key:           "objects/abort-me.bin",
		BufferSize:    5 * 1024 * 1024,
	}
	fp := ComputeFingerprint(act.SourceMTimeNS, host.AccessKeyID, host.Host, host.Bucket, act.Key, act.BufferSize)
	if err := store.Put(ResumeRecord{
		Fingerprint: fp,
		HostProfile: host.Name,
		Bucket:      host.Bucket,
		Key:         act.Key,
		UploadID:    "upload-to-abort",
		PartSize:    act.BufferSize,
	}); err != nil {
		t.Fatalf("Store.Put() error = %v", err)
	}

	u, err := New(host, store, act, discardLog())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := u.Abort(t.Context()); err != nil {
		t.Fatalf("Abort() error = %v", err)
	}
	if !aborted {
		t.Error("Abort() did not issue an AbortMultipartUpload request")
	}
	if _, found, _ := store.Lookup(host.Name, fp); found {
		t.Error("Abort() left a resumption record behind")
	}
}

func TestUploader_Abort_NoRecordIsNoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request: %s %s", r.Method, r.URL.String())
	}))
	defer srv.Close()

	host := testHost(t, srv)
	storePath := filepath.Join(t.TempDir(), "resume.db")
	store, err := OpenStore(storePath)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer store.Close()

	act := &PutObjectAction{
		Source:        bytes.NewReader(nil),
		SourceSize:    1024,
		SourceMTimeNS: 1000,
		Key:           "objects/never-started.bin",
		BufferSize:    5 * 1024 * 1024,
	}
	u, err := New(host, store, act, discardLog())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := u.Abort(t.Context()); err != nil {
		t.Fatalf("Abort() error = %v", err)
	}
}
