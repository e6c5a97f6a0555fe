// Copyright (c) 2026 NERSC
// sshproxy - MFA-backed SSH key and certificate issuance client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package issuance talks to the key-issuing service and classifies what it
// sent back. It never retries: the captured password+OTP factor is submitted
// at most once per process.
package issuance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/sleak-lbl/NERSC-MFA/internal/logging"
	"github.com/sleak-lbl/NERSC-MFA/internal/security"
)

// TransportError wraps any network or HTTP level failure: DNS, TLS,
// connection refused, or a non-success status with an empty body. It is
// fatal; the orchestrator maps it to a dedicated exit code.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client performs the credential request against the issuance endpoint.
type Client struct {
	// HTTPClient is used for the single request. Nil means a fresh client
	// with no timeout: the call blocks until the server answers or the
	// context is cancelled, and is never retried.
	HTTPClient *http.Client
}

// EndpointURL builds the issuance URL for a server and scope. The scope
// selects the server-side issuance policy; an empty scope requests the
// default policy.
func EndpointURL(server, scope string) string {
	server = strings.TrimSuffix(server, "/")
	if !strings.Contains(server, "://") {
		server = "https://" + server
	}
	if scope == "" {
		scope = "default"
	}
	return fmt.Sprintf("%s/create_pair/%s/", server, scope)
}

// Request POSTs to the issuance endpoint with basic-auth credentials and
// streams the response body into dstPath. The secret travels only in the
// Authorization header, never in the URL, so it cannot leak via process
// listings or server access logs.
func (c *Client) Request(ctx context.Context, server, scope, username string, secret security.Secret, dstPath string) error {
	endpoint := EndpointURL(server, scope)
	logging.Debugf("requesting key pair from %s", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return &TransportError{URL: endpoint, Err: err}
	}
	if err := secret.Use(func(b []byte) error {
		req.SetBasicAuth(username, string(b))
		return nil
	}); err != nil {
		return &TransportError{URL: endpoint, Err: err}
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return &TransportError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return &TransportError{URL: endpoint, Err: err}
	}
	written, err := io.Copy(dst, resp.Body)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return &TransportError{URL: endpoint, Err: err}
	}

	// A failed login still arrives as a readable body; classification of the
	// content belongs to Validate. Only a status with nothing to classify is
	// a transport failure.
	if resp.StatusCode >= 400 && written == 0 {
		return &TransportError{URL: endpoint, Err: fmt.Errorf("server returned %s with empty body", resp.Status)}
	}

	logging.Debugf("received %d bytes from issuance endpoint", written)
	return nil
}
