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
	"fmt"
	"runtime"
)

// Version information - overridden by cmd/s3m at build time via ldflags,
// by assigning into these vars from main's init.
var (
	// Version is the semantic version number
	Version = "dev"

	// GitCommit is the git commit hash (injected at build time)
	GitCommit = "none"

	// BuildDate is the build timestamp (injected at build time)
	BuildDate = "unknown"
)

// UserAgent returns the HTTP User-Agent string the executor (C2) sends
// with every request: "s3m/<version> (<os>; <arch>)", followed by
// " git-<commit>" when a commit is known.
func UserAgent() string {
	agent := fmt.Sprintf("s3m/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH)

	if GitCommit != "" && GitCommit != "none" {
		agent += fmt.Sprintf(" git-%s", GitCommit)
	}

	return agent
}

// VersionString returns a human-readable version string.
func VersionString() string {
	if GitCommit != "" && GitCommit != "none" {
		return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate)
	}
	return Version
}
