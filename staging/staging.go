/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Authors:
 *   Sendu Bala <sb10@sanger.ac.uk>
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

// Package staging manages the ephemeral working directories that datasets
// are fetched, verified and extracted in before being published.
//
// Staging areas live directly under the destination root so that the final
// publish step is a metadata-only rename on the same filesystem. Each area
// is owned by exactly one in-flight acquisition and is removed on every exit
// path: success renames it away (ownership transfers to the snapshot),
// anything else deletes it.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/inconshreveable/log15"
	"github.com/moby/sys/mountinfo"
)

const (
	dirPrefix = ".staging-"
	dirPerms  = 0700
)

// Error is the custom error type for the staging package.
type Error string

const (
	// ErrRootNotDir is returned when the destination root is missing or not
	// a directory.
	ErrRootNotDir = Error("destination root is not a directory")
	// ErrRootReadOnly is returned when the destination root is on a
	// read-only mount.
	ErrRootReadOnly = Error("destination root is on a read-only mount")
)

func (e Error) Error() string { return string(e) }

// Manager allocates staging areas under a destination root and tracks the
// live ones so they can all be removed if the process is told to terminate.
type Manager struct {
	root   string
	logger log15.Logger

	mu   sync.Mutex
	live map[string]bool
}

// NewManager returns a Manager for the given destination root, which must be
// an existing, writable directory. If the mount table can be read, a root on
// a read-only mount is rejected up front rather than failing at publish
// time.
func NewManager(root string, logger log15.Logger) (*Manager, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(root)
	if err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, ErrRootNotDir)
	}

	if err := checkWritableMount(root); err != nil {
		return nil, err
	}

	return &Manager{
		root:   root,
		logger: logger,
		live:   make(map[string]bool),
	}, nil
}

// checkWritableMount finds the longest mount point prefix of root and checks
// its options for "ro". Inability to read the mount table is not an error;
// the check is then skipped.
func checkWritableMount(root string) error {
	mounts, err := mountinfo.GetMounts(nil)
	if err != nil {
		return nil //nolint:nilerr
	}

	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].Mountpoint) > len(mounts[j].Mountpoint)
	})

	rootSlash := strings.TrimSuffix(root, "/") + "/"

	for _, mount := range mounts {
		mp := strings.TrimSuffix(mount.Mountpoint, "/") + "/"
		if !strings.HasPrefix(rootSlash, mp) {
			continue
		}

		for _, opt := range strings.Split(mount.Options, ",") {
			if opt == "ro" {
				return fmt.Errorf("%s: %w", root, ErrRootReadOnly)
			}
		}

		return nil
	}

	return nil
}

// Root returns the absolute destination root this Manager allocates under.
func (m *Manager) Root() string {
	return m.root
}

// Create allocates a uniquely named staging directory directly under the
// destination root, guaranteeing same-filesystem rename semantics for the
// eventual publish.
func (m *Manager) Create() (*Area, error) {
	dir := filepath.Join(m.root, dirPrefix+uuid.NewString())

	if err := os.Mkdir(dir, dirPerms); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.live[dir] = true
	m.mu.Unlock()

	return &Area{dir: dir, manager: m}, nil
}

// ReleaseAll removes every live staging area. It is called by the signal
// handler installed via CleanupOnTermination, but is also safe to call
// directly.
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	dirs := make([]string, 0, len(m.live))

	for dir := range m.live {
		dirs = append(dirs, dir)
	}
	m.mu.Unlock()

	for _, dir := range dirs {
		if err := m.release(dir); err != nil {
			m.logger.Error("failed to remove staging directory", "dir", dir, "err", err)
		}
	}
}

func (m *Manager) release(dir string) error {
	m.mu.Lock()
	delete(m.live, dir)
	m.mu.Unlock()

	return os.RemoveAll(dir)
}

// Area is one ephemeral staging directory, owned exclusively by one
// in-flight dataset acquisition.
type Area struct {
	dir     string
	manager *Manager
}

// Dir returns the staging directory path.
func (a *Area) Dir() string {
	return a.dir
}

// Release removes the staging directory and everything in it. After a
// successful publish the directory has already been renamed away, making
// Release a no-op, so it is safe (and intended) to defer this at creation.
func (a *Area) Release() error {
	return a.manager.release(a.dir)
}
