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
	"context"

	"github.com/sirupsen/logrus"
)

// Uploader is the high-level entry point for one PutObjectAction: it
// validates options, builds an Engine bound to host, and runs the
// upload. Where the original Uploader drove a raw channel-based worker
// pool directly against aws-sdk-go-v2, this one simply dispatches
// through the Engine facade (C9), which owns the planner/coordinator/
// pipeline wiring.
type Uploader struct {
	host   *HostProfile
	store  *Store
	engine *Engine
	action *PutObjectAction
}

// New creates a new Uploader for host and act. act.SourceSize and
// act.Key must already be populated by the caller (the CLI layer
// resolves these from the command line before constructing the action);
// act.Bucket may be empty when host carries a default bucket.
func New(host *HostProfile, store *Store, act *PutObjectAction, log *logrus.Entry) (*Uploader, error) {
	if host.Bucket == "" && act.Bucket == "" {
		return nil, &ValidationError{Field: "Bucket", Message: "required"}
	}
	if act.Key == "" {
		return nil, &ValidationError{Field: "Key", Message: "required"}
	}
	if act.Source == nil {
		return nil, &ValidationError{Field: "Source", Message: "required"}
	}

	return &Uploader{
		host:   host,
		store:  store,
		engine: NewEngine(host, store, log),
		action: act,
	}, nil
}

// Upload runs the action to completion and returns the resulting ETag.
func (u *Uploader) Upload(ctx context.Context) (string, error) {
	result, err := u.engine.Run(ctx, u.action)
	if err != nil {
		return "", err
	}
	etag, _ := result.(string)
	return etag, nil
}

// Abort cancels any in-progress multipart upload tracked for this
// action's fingerprint and removes its resumption record, if one
// exists.
func (u *Uploader) Abort(ctx context.Context) error {
	if u.store == nil || u.action.SourceSize < 0 {
		return nil
	}
	bucket := u.engine.bucketOr(u.action.Bucket)
	fp := ComputeFingerprint(u.action.SourceMTimeNS, u.host.AccessKeyID, u.host.Host, bucket, u.action.Key, u.action.BufferSize)
	rec, found, err := u.store.Lookup(u.host.Name, fp)
	if err != nil || !found {
		return err
	}
	client := NewClient(u.host, 3, nil)
	if err := client.AbortMultipartUpload(ctx, bucket, u.action.Key, rec.UploadID); err != nil {
		return err
	}
	return u.store.Remove(u.host.Name, fp)
}
