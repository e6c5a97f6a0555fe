// Copyright (c) 2026 NERSC
// sshproxy - MFA-backed SSH key and certificate issuance client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package certinfo reports the validity window of an installed certificate.
// It is purely informational: callers degrade to omitting the summary when a
// certificate cannot be read, since the credential is installed by then.
package certinfo

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/sleak-lbl/NERSC-MFA/internal/i18n"
	"github.com/sleak-lbl/NERSC-MFA/internal/logging"
)

// Validity is a certificate's validity window.
type Validity struct {
	ValidAfter  time.Time
	ValidBefore time.Time
}

// Inspect parses the certificate file at certPath and returns its validity
// window.
func Inspect(certPath string) (*Validity, error) {
	data, err := os.ReadFile(certPath)
	if err != nil {
		return nil, err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			continue
		}
		cert, ok := pub.(*ssh.Certificate)
		if !ok {
			continue
		}
		return &Validity{
			ValidAfter:  time.Unix(int64(cert.ValidAfter), 0),
			ValidBefore: time.Unix(int64(cert.ValidBefore), 0),
		}, nil
	}
	return nil, fmt.Errorf("no certificate found in %s", certPath)
}

// Describe returns a localized, human-readable validity summary for the
// certificate at certPath. Parse failures degrade to a placeholder rather
// than an error.
func Describe(certPath string) string {
	v, err := Inspect(certPath)
	if err != nil {
		logging.Debugf("certificate introspection failed: %v", err)
		return i18n.T("cert.validity_unknown")
	}
	const layout = "2006-01-02 15:04:05 MST"
	return i18n.T("cert.validity", v.ValidAfter.Local().Format(layout), v.ValidBefore.Local().Format(layout))
}
