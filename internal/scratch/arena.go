// Copyright (c) 2026 NERSC
// sshproxy - MFA-backed SSH key and certificate issuance client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package scratch manages the ephemeral staging files for a run. Scratch
// files live in the same directory as the final artifacts so the install
// step is a same-filesystem rename, which is atomic for concurrent readers.
package scratch

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/sleak-lbl/NERSC-MFA/internal/logging"
)

// Arena tracks every scratch file allocated during a run so that all of them
// can be removed on any exit path. Naming is collision resistant: concurrent
// invocations by the same user in the same directory never share a file.
type Arena struct {
	mu    sync.Mutex
	paths []string
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Allocate creates a uniquely named, initially empty file in targetDir with
// owner-only permissions and registers it for release. The restrictive mode
// is set at creation, before any data can land in the file.
func (a *Arena) Allocate(targetDir, namePrefix string) (string, error) {
	f, err := os.CreateTemp(targetDir, namePrefix+".*")
	if err != nil {
		return "", err
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}

	a.mu.Lock()
	a.paths = append(a.paths, path)
	a.mu.Unlock()

	logging.Debugf("allocated scratch file %s", path)
	return path, nil
}

// ReleaseAll removes every allocated scratch file. It is idempotent and safe
// to call on a partially populated arena; files already renamed away or
// removed do not count as errors.
func (a *Arena) ReleaseAll() {
	a.mu.Lock()
	paths := a.paths
	a.paths = nil
	a.mu.Unlock()

	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.Warnf("could not remove scratch file %s: %v", p, err)
		}
	}
}
