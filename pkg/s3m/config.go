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
	"fmt"
)

// ProgressCallback is called periodically during upload to report progress.
// bytesUploaded: total bytes uploaded so far
// partsUploaded: number of parts successfully uploaded
type ProgressCallback func(bytesUploaded int64, partsUploaded int32)

// UploadOptions holds the tuning knobs for one PutObjectAction, separate
// from the HostProfile credentials/endpoint (spec §4.5/§4.7). Host
// identity moved out of this struct entirely: one HostProfile is shared
// across every action run against it, where the old aws-sdk-go-v2-backed
// Config folded credentials and per-upload tuning together.
type UploadOptions struct {
	// FileSize is the total size in bytes, or -1 when unknown (stdin or
	// a transformed source whose final size can't be predicted).
	FileSize int64

	// Upload Tuning
	BasePartSize  int64          // user-requested part size B (0 = default)
	Workers       int            // concurrent UploadPart workers (default: NumCPU)
	QueueSize     int            // size of the internal part queue buffer
	MaxMemoryMB   int            // optional memory limit in MB (0 = no limit)
	ServiceLimits *ServiceLimits // nil = DefaultS3Limits()

	// Retry Configuration
	MaxRetries int // maximum retry attempts per part (default: 3)

	// Object Metadata
	ContentType        string
	ContentDisposition string
	ContentEncoding    string
	ContentLanguage    string
	CacheControl       string
	Metadata           map[string]string

	// Transform pipeline (C3)
	Compress      bool
	EncryptionKey []byte
	ThrottleKiBps int
	ChecksumAlg   ExtraChecksumAlg

	// Progress Tracking
	ProgressCallback ProgressCallback

	// Context
	Context context.Context
}

// Validate checks the options and fills in defaults, mirroring the
// original Config.Validate's default-filling shape.
func (o *UploadOptions) Validate() error {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}

	if o.ServiceLimits == nil {
		limits := DefaultS3Limits()
		o.ServiceLimits = &limits
	} else if err := o.ServiceLimits.Validate(); err != nil {
		return err
	}

	if o.FileSize > 0 {
		maxFileSize := o.ServiceLimits.MaxFileSize()
		if o.FileSize > maxFileSize {
			return &ValidationError{
				Field: "FileSize",
				Message: fmt.Sprintf("exceeds service limit of %d bytes (%d GB)",
					maxFileSize, maxFileSize/(1024*1024*1024)),
			}
		}
	}

	if o.Context == nil {
		o.Context = context.Background()
	}

	return nil
}
