// Copyright (c) 2026 NERSC
// sshproxy - MFA-backed SSH key and certificate issuance client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars contains variables injected at build time.
package buildvars

// Version is set at link time via `-ldflags -X github.com/sleak-lbl/NERSC-MFA/buildvars.Version=...`.
// It will be empty for local or development builds.
var Version string

// Commit is the short git commit SHA, set at link time.
var Commit string

// Date is the build timestamp (RFC3339), set at link time.
var Date string

// VersionOrDefault returns `Version` if set, otherwise returns the provided default.
func VersionOrDefault(def string) string {
	if len(Version) > 0 {
		return Version
	}
	return def
}
