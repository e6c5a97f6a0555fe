// Copyright (c) 2026 NERSC
// sshproxy - MFA-backed SSH key and certificate issuance client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core sequences a credential-issuance run: capture the secret,
// request the key pair, classify the response, install the artifact pair,
// and describe the certificate. All failures are classified here and mapped
// to exit codes by ExitCode; lower packages never retry or recover.
package core

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sleak-lbl/NERSC-MFA/internal/certinfo"
	"github.com/sleak-lbl/NERSC-MFA/internal/install"
	"github.com/sleak-lbl/NERSC-MFA/internal/issuance"
	"github.com/sleak-lbl/NERSC-MFA/internal/logging"
	"github.com/sleak-lbl/NERSC-MFA/internal/prompt"
	"github.com/sleak-lbl/NERSC-MFA/internal/scratch"
)

// readSecret is a seam for tests; the default prompts interactively.
var readSecret = prompt.ReadSecret

// DefaultKeyName names the installed key when neither an output path nor a
// scope is given.
const DefaultKeyName = "nersc"

// CertSuffix is appended to the key path to name the certificate file.
const CertSuffix = "-cert.pub"

// Options carries the already-resolved configuration for one run.
type Options struct {
	Username   string
	Scope      string
	OutputPath string
	ServerURL  string
	SSHDir     string

	// Client overrides the issuance client, for tests. Nil uses a default
	// client with no timeout.
	Client *issuance.Client
}

// Result describes a successful run.
type Result struct {
	KeyPath         string
	CertPath        string
	ValiditySummary string
}

// TargetPaths derives the final key and certificate paths from the options:
// the explicit output path wins, else the scope names the key, else the
// default identifier; the certificate always sits next to the key with the
// fixed suffix.
func TargetPaths(opts Options) (keyPath, certPath string, err error) {
	switch {
	case opts.OutputPath != "":
		keyPath = opts.OutputPath
	default:
		dir := opts.SSHDir
		if dir == "" {
			home, herr := os.UserHomeDir()
			if herr != nil {
				return "", "", fmt.Errorf("could not determine home directory: %w", herr)
			}
			dir = filepath.Join(home, ".ssh")
		}
		name := opts.Scope
		if name == "" {
			name = DefaultKeyName
		}
		keyPath = filepath.Join(dir, name)
	}
	return keyPath, keyPath + CertSuffix, nil
}

// Run drives the issuance state machine:
//
//	Start → SecretCaptured → Requested → Authenticated → Installed → Described
//
// with AuthFailed, Malformed, and installation failure as classified
// terminal errors, and cancellation (Ctrl-C, SIGTERM) honored at the prompt
// and the network wait. Scratch files are released and the terminal restored
// on every path out of this function.
func Run(ctx context.Context, opts Options) (*Result, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	keyPath, certPath, err := TargetPaths(opts)
	if err != nil {
		return nil, err
	}
	targetDir := filepath.Dir(keyPath)
	if err := os.MkdirAll(targetDir, 0700); err != nil {
		return nil, fmt.Errorf("could not create %s: %w", targetDir, err)
	}
	logging.Debugf("target key %s, certificate %s", keyPath, certPath)

	arena := scratch.NewArena()
	defer arena.ReleaseAll()
	defer prompt.RestoreTerminal()

	secret, err := readSecret(ctx, opts.Username)
	if err != nil {
		return nil, err
	}
	defer secret.Zero()

	// Scratch files are colocated with the target so the final move is a
	// same-filesystem rename.
	hidden := "." + filepath.Base(keyPath)
	rawPath, err := arena.Allocate(targetDir, hidden+".key")
	if err != nil {
		return nil, fmt.Errorf("could not create scratch file: %w", err)
	}
	certScratch, err := arena.Allocate(targetDir, hidden+".cert")
	if err != nil {
		return nil, fmt.Errorf("could not create scratch file: %w", err)
	}

	client := opts.Client
	if client == nil {
		client = &issuance.Client{}
	}
	if err := client.Request(ctx, opts.ServerURL, opts.Scope, opts.Username, secret, rawPath); err != nil {
		return nil, err
	}
	secret.Zero()

	validation, err := issuance.Validate(rawPath)
	if err != nil {
		return nil, fmt.Errorf("could not inspect server response: %w", err)
	}
	switch validation.Outcome {
	case issuance.OutcomeAuthFailed:
		return nil, &AuthenticationError{Message: validation.FirstLine}
	case issuance.OutcomeMalformed:
		return nil, &ProtocolError{Content: validation.Content}
	}

	if err := install.Split(rawPath, certScratch, keyPath, certPath); err != nil {
		return nil, err
	}

	// Best effort from here on: the credential is installed, a missing
	// summary never turns the run into a failure.
	return &Result{
		KeyPath:         keyPath,
		CertPath:        certPath,
		ValiditySummary: certinfo.Describe(certPath),
	}, nil
}
