// Copyright (c) 2026 NERSC
// sshproxy - MFA-backed SSH key and certificate issuance client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package install splits a validated response into the private key and its
// certificate and moves both into place atomically.
package install

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sleak-lbl/NERSC-MFA/internal/logging"
)

// certMarker identifies public-key material lines in the multiplexed
// response; the certificate line type (ssh-rsa-cert-v01@openssh.com)
// contains it as well.
const certMarker = "ssh-rsa"

// InstallationError reports a filesystem failure that happened after a valid
// credential was already retrieved. It is kept distinct from earlier failure
// classes: the download succeeded, only the install did not, and the issued
// key may be stranded in a scratch file.
type InstallationError struct {
	Op  string
	Err error
}

func (e *InstallationError) Error() string {
	return fmt.Sprintf("credential retrieved but installation failed (%s): %v", e.Op, e.Err)
}

func (e *InstallationError) Unwrap() error { return e.Err }

// Split extracts every line carrying public-key material from the raw
// response at rawPath into certScratch, tightens both scratch files to
// owner read/write, and renames them to their final paths. The two renames
// run back to back with no yield point between them; any failure from here
// on is an InstallationError.
func Split(rawPath, certScratch, keyTarget, certTarget string) error {
	if err := extractCertificate(rawPath, certScratch); err != nil {
		return &InstallationError{Op: "extract certificate", Err: err}
	}

	// Scratch files are created owner-only; re-assert before the move so the
	// final artifacts are never observable with loose permissions.
	if err := os.Chmod(rawPath, 0600); err != nil {
		return &InstallationError{Op: "restrict key permissions", Err: err}
	}
	if err := os.Chmod(certScratch, 0600); err != nil {
		return &InstallationError{Op: "restrict certificate permissions", Err: err}
	}

	if err := os.Rename(rawPath, keyTarget); err != nil {
		return &InstallationError{Op: "install key", Err: err}
	}
	if err := os.Rename(certScratch, certTarget); err != nil {
		return &InstallationError{Op: "install certificate", Err: err}
	}

	logging.Debugf("installed %s and %s", keyTarget, certTarget)
	return nil
}

func extractCertificate(rawPath, certScratch string) error {
	raw, err := os.Open(rawPath)
	if err != nil {
		return err
	}
	defer raw.Close()

	cert, err := os.OpenFile(certScratch, os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(cert)
	scanner := bufio.NewScanner(raw)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	found := false
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, certMarker) {
			continue
		}
		found = true
		if _, err := fmt.Fprintln(w, line); err != nil {
			cert.Close()
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		cert.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		cert.Close()
		return err
	}
	if err := cert.Close(); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no certificate material in response")
	}
	return nil
}
