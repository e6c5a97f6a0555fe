// Copyright (c) 2026 NERSC
// sshproxy - MFA-backed SSH key and certificate issuance client
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for sshproxy.
//
// Usage:
//
//	go run . [flags]
//	./sshproxy [flags]
//
// This runs a single credential-issuance request. See --help for options and
// the documented exit codes.
package main

import (
	"os"

	"github.com/sleak-lbl/NERSC-MFA/ui/cli"
)

// main is the entrypoint for the sshproxy CLI. All failure classification
// happens below; main only forwards the exit code so calling scripts can
// branch on cause.
func main() {
	os.Exit(cli.Execute())
}
