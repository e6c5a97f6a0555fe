// Copyright (c) 2026 NERSC
// sshproxy - MFA-backed SSH key and certificate issuance client
// This source code is licensed under the MIT license found in the LICENSE file.
package security

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

func TestSecretRedactionAndJSON(t *testing.T) {
	s := FromString("hunter2-123456")
	if fmt.Sprintf("%v", s) != "[SECRET]" {
		t.Fatalf("unexpected fmt output: %q", fmt.Sprintf("%v", s))
	}
	if fmt.Sprintf("%s", s) != "[SECRET]" {
		t.Fatalf("unexpected fmt %%s output: %q", fmt.Sprintf("%s", s))
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	if string(b) != "\"[SECRET]\"" {
		t.Fatalf("unexpected json marshal: %s", string(b))
	}
}

func TestSecretZero(t *testing.T) {
	s := FromString("abc123")
	(&s).Zero()
	// Inspect the underlying bytes using Use to avoid creating copies.
	if err := s.Use(func(b []byte) error {
		for i := range b {
			if b[i] != 0 {
				t.Fatalf("expected zeroed byte at index %d, got %d", i, b[i])
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("s.Use failed: %v", err)
	}
}

func TestSecretBytesIsACopy(t *testing.T) {
	s := FromBytes([]byte("sensitive"))
	c := s.Bytes()
	if !bytes.Equal(c, []byte("sensitive")) {
		t.Fatalf("copy doesn't match original: %v", c)
	}
	c[0] = 'X'
	if s[0] != 's' {
		t.Fatalf("modifying copy affected original: %v", []byte(s))
	}
}

func TestSecretZeroNilReceiver(t *testing.T) {
	var s Secret
	(&s).Zero() // must not panic on a nil slice
	var sp *Secret
	sp.Zero() // nil receiver is a no-op
}
