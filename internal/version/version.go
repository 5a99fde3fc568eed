// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package version holds the version of the linearize utility.
package version

import (
	"fmt"
	"strings"
)

// semanticAlphabet defines the allowed characters for the pre-release and
// build metadata portions of a semantic version string.  The build portion
// additionally allows dots.
const semanticAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"

// These constants define the application version and follow the semantic
// versioning 2.0.0 spec (http://semver.org/).
const (
	Major uint = 0
	Minor uint = 1
	Patch uint = 0
)

var (
	// PreRelease can be overridden at link time with
	// '-ldflags "-X github.com/btcsuite/clusterlin/internal/version.PreRelease=foo"'.
	PreRelease = "beta"

	// BuildMetadata can be overridden at link time in the same way.
	BuildMetadata = ""
)

// String returns the application version as a properly formed string per the
// semantic versioning 2.0.0 spec.  Invalid characters in the pre-release and
// build parts are dropped.
func String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", Major, Minor, Patch)

	if pre := normalize(PreRelease, false); pre != "" {
		b.WriteByte('-')
		b.WriteString(pre)
	}
	if build := normalize(BuildMetadata, true); build != "" {
		b.WriteByte('+')
		b.WriteString(build)
	}

	return b.String()
}

// normalize strips characters outside the semantic alphabet.
func normalize(str string, allowDots bool) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(semanticAlphabet, r) ||
			(allowDots && r == '.') {

			return r
		}
		return -1
	}, str)
}
