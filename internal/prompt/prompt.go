// Copyright (c) 2026 NERSC
// sshproxy - MFA-backed SSH key and certificate issuance client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package prompt captures the password+OTP secret from the user without
// echoing it. The terminal's original mode is treated as a scoped resource:
// it is saved before the read and restored on every exit path, including
// interrupts, so a cancelled prompt never leaves the shell with echo off.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/sleak-lbl/NERSC-MFA/internal/i18n"
	"github.com/sleak-lbl/NERSC-MFA/internal/logging"
	"github.com/sleak-lbl/NERSC-MFA/internal/security"
)

// Seams for tests; the defaults talk to the real terminal.
var (
	stdinFd      = int(os.Stdin.Fd())
	stdin        io.Reader = os.Stdin
	stdout       io.Writer = os.Stdout
	isTerminal             = term.IsTerminal
	readPassword           = term.ReadPassword
	getState               = term.GetState
)

var (
	stateMu    sync.Mutex
	savedState *term.State
	savedFd    int
)

// ReadSecret prompts for the password+OTP factor of username and returns the
// captured secret. Echo is disabled for the read when stdin is a terminal;
// otherwise one line is read as-is, which keeps the tool scriptable. The
// context cancels the wait: on cancellation the terminal is restored and the
// secret, if any was typed, is discarded.
func ReadSecret(ctx context.Context, username string) (security.Secret, error) {
	fmt.Fprint(stdout, i18n.T("prompt.enter_secret", username))

	if !isTerminal(stdinFd) {
		logging.Debugf("%s", i18n.T("prompt.not_a_terminal"))
		return readLine(ctx)
	}

	stateMu.Lock()
	state, err := getState(stdinFd)
	if err != nil {
		stateMu.Unlock()
		return nil, fmt.Errorf("could not save terminal state: %w", err)
	}
	savedState = state
	savedFd = stdinFd
	stateMu.Unlock()

	type result struct {
		secret []byte
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		b, err := readPassword(stdinFd)
		ch <- result{secret: b, err: err}
	}()

	select {
	case r := <-ch:
		clearSavedState()
		fmt.Fprintln(stdout)
		if r.err != nil {
			return nil, fmt.Errorf("could not read secret: %w", r.err)
		}
		s := security.FromBytes(r.secret)
		for i := range r.secret {
			r.secret[i] = 0
		}
		return s, nil
	case <-ctx.Done():
		RestoreTerminal()
		fmt.Fprintln(stdout)
		return nil, ctx.Err()
	}
}

// readLine is the non-terminal fallback: one line, trailing newline removed.
func readLine(ctx context.Context) (security.Secret, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && r.line == "" {
			return nil, fmt.Errorf("could not read secret: %w", r.err)
		}
		return security.FromString(strings.TrimRight(r.line, "\r\n")), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RestoreTerminal puts the terminal back into the mode saved before the
// prompt. Idempotent and safe to call when no prompt is in flight; the
// orchestrator calls it unconditionally on every exit path.
func RestoreTerminal() {
	stateMu.Lock()
	defer stateMu.Unlock()
	if savedState == nil {
		return
	}
	if err := term.Restore(savedFd, savedState); err != nil {
		logging.Warnf("could not restore terminal state: %v", err)
	}
	savedState = nil
}

func clearSavedState() {
	stateMu.Lock()
	savedState = nil
	stateMu.Unlock()
}
