// Copyright (c) 2026 NERSC
// sshproxy - MFA-backed SSH key and certificate issuance client
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/sleak-lbl/NERSC-MFA/internal/install"
	"github.com/sleak-lbl/NERSC-MFA/internal/issuance"
)

// Process exit codes. Calling scripts branch on these, so each failure class
// gets its own code and the assignments are part of the CLI contract.
const (
	ExitOK         = 0 // success
	ExitAborted    = 1 // interrupted, signalled, or unclassified failure
	ExitTransport  = 2 // network or HTTP failure, request never classified
	ExitAuthFailed = 3 // server rejected the password+OTP
	ExitMalformed  = 4 // server returned something that is not a key
	ExitInstall    = 5 // key issued but local installation failed
)

// AuthenticationError means the server rejected the password+OTP. The
// remediation is user-side (retype the password, wait for the next OTP), so
// it is kept distinct from protocol errors.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// ProtocolError means the server answered with something that is neither a
// private key nor a login failure. There is no structured error schema, so
// the full response is carried for diagnosis.
type ProtocolError struct {
	Content string
}

func (e *ProtocolError) Error() string {
	return "unexpected response from server"
}

// ExitCode maps an error from Run to its process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	// Interruption wins over whatever operation it happened to land in: a
	// cancelled network wait is a user abort, not a transport failure.
	if errors.Is(err, context.Canceled) {
		return ExitAborted
	}
	var (
		transportErr *issuance.TransportError
		authErr      *AuthenticationError
		protocolErr  *ProtocolError
		installErr   *install.InstallationError
	)
	switch {
	case errors.As(err, &transportErr):
		return ExitTransport
	case errors.As(err, &authErr):
		return ExitAuthFailed
	case errors.As(err, &protocolErr):
		return ExitMalformed
	case errors.As(err, &installErr):
		return ExitInstall
	}
	return ExitAborted
}
