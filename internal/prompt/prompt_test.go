// Copyright (c) 2026 NERSC
// sshproxy - MFA-backed SSH key and certificate issuance client
// This source code is licensed under the MIT license found in the LICENSE file.
package prompt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"golang.org/x/term"

	"github.com/sleak-lbl/NERSC-MFA/internal/i18n"
)

// stubIO replaces the terminal seams for the duration of a test.
func stubIO(t *testing.T, input io.Reader, tty bool) *bytes.Buffer {
	t.Helper()
	out := &bytes.Buffer{}
	prevStdin, prevStdout, prevIsTerminal, prevReadPassword, prevGetState := stdin, stdout, isTerminal, readPassword, getState
	stdin = input
	stdout = out
	isTerminal = func(int) bool { return tty }
	getState = func(int) (*term.State, error) { return &term.State{}, nil }
	t.Cleanup(func() {
		stdin, stdout, isTerminal, readPassword, getState = prevStdin, prevStdout, prevIsTerminal, prevReadPassword, prevGetState
	})
	return out
}

func TestReadSecretNonTerminal(t *testing.T) {
	i18n.Init("en")
	out := stubIO(t, strings.NewReader("hunter2-123456\n"), false)

	s, err := ReadSecret(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ReadSecret failed: %v", err)
	}
	if err := s.Use(func(b []byte) error {
		if string(b) != "hunter2-123456" {
			t.Fatalf("unexpected secret: %q", string(b))
		}
		return nil
	}); err != nil {
		t.Fatalf("Use failed: %v", err)
	}
	if !strings.Contains(out.String(), "alice") {
		t.Fatalf("prompt does not name the user: %q", out.String())
	}
	if strings.Contains(out.String(), "hunter2") {
		t.Fatalf("secret echoed to output: %q", out.String())
	}
}

func TestReadSecretStripsCRLF(t *testing.T) {
	stubIO(t, strings.NewReader("pw+otp\r\n"), false)
	s, err := ReadSecret(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ReadSecret failed: %v", err)
	}
	_ = s.Use(func(b []byte) error {
		if string(b) != "pw+otp" {
			t.Fatalf("line ending not stripped: %q", string(b))
		}
		return nil
	})
}

func TestReadSecretLastLineWithoutNewline(t *testing.T) {
	stubIO(t, strings.NewReader("pw+otp"), false)
	s, err := ReadSecret(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ReadSecret failed on EOF-terminated input: %v", err)
	}
	_ = s.Use(func(b []byte) error {
		if string(b) != "pw+otp" {
			t.Fatalf("unexpected secret: %q", string(b))
		}
		return nil
	})
}

func TestReadSecretEmptyInputFails(t *testing.T) {
	stubIO(t, strings.NewReader(""), false)
	if _, err := ReadSecret(context.Background(), "alice"); err == nil {
		t.Fatal("expected an error for empty input")
	}
}

// blockingReader never returns; it stands in for a user who walks away.
type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}

func TestReadSecretCancellation(t *testing.T) {
	stubIO(t, blockingReader{}, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := ReadSecret(ctx, "alice")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ReadSecret did not honor cancellation")
	}
}

func TestReadSecretTerminalPathStubbed(t *testing.T) {
	out := stubIO(t, strings.NewReader(""), true)
	readPassword = func(int) ([]byte, error) { return []byte("tty-secret"), nil }

	s, err := ReadSecret(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ReadSecret failed: %v", err)
	}
	_ = s.Use(func(b []byte) error {
		if string(b) != "tty-secret" {
			t.Fatalf("unexpected secret: %q", string(b))
		}
		return nil
	})
	// The read leaves the cursor after the prompt; a newline must follow.
	if !strings.HasSuffix(out.String(), "\n") {
		t.Fatalf("missing trailing newline after masked read: %q", out.String())
	}
}

func TestRestoreTerminalIdempotent(t *testing.T) {
	RestoreTerminal()
	RestoreTerminal() // no prompt in flight, must be a no-op
}
