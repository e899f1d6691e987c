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

package remotedata

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrMirrorFailed is what a failing Mirror pass returns.
var ErrMirrorFailed = errors.New("mirror failed")

// Call records the arguments of one Mirror invocation.
type Call struct {
	RemoteDir string
	LocalDir  string
	Include   []string
	Exclude   []string
	Parallel  int
}

// Mirror implements the fetcher's Mirror interface by copying glob-matched
// files between local directories, recording each pass so tests can assert
// the manifests-before-payloads ordering.
type Mirror struct {
	// Calls holds one entry per Mirror invocation, in order.
	Calls []Call

	// FailPass, if non-zero, makes that (1-based) invocation fail without
	// copying anything.
	FailPass int

	// Mutate, if set, is run against the remote tree between passes,
	// simulating a provider that rewrites files in place mid-transfer.
	Mutate func() error
}

// Mirror copies every file under remoteDir (a local path here) matching one
// of the include globs, and no exclude glob, into localDir, preserving
// relative paths. Globs are matched against both the file's basename and its
// slash-separated relative path.
func (m *Mirror) Mirror(remoteDir, localDir string, include, exclude []string, parallel int) error {
	m.Calls = append(m.Calls, Call{
		RemoteDir: remoteDir,
		LocalDir:  localDir,
		Include:   include,
		Exclude:   exclude,
		Parallel:  parallel,
	})

	if m.FailPass == len(m.Calls) {
		return ErrMirrorFailed
	}

	if len(m.Calls) > 1 && m.Mutate != nil {
		if err := m.Mutate(); err != nil {
			return err
		}
	}

	return filepath.WalkDir(remoteDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}

		rel, err := filepath.Rel(remoteDir, path)
		if err != nil {
			return err
		}

		rel = filepath.ToSlash(rel)

		if !matchesAny(rel, include) || matchesAny(rel, exclude) {
			return nil
		}

		return copyFile(path, filepath.Join(localDir, filepath.FromSlash(rel)))
	})
}

func matchesAny(rel string, globs []string) bool {
	base := rel
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		base = rel[i+1:]
	}

	for _, glob := range globs {
		if ok, _ := filepath.Match(glob, base); ok { //nolint:errcheck
			return true
		}

		if ok, _ := filepath.Match(glob, rel); ok { //nolint:errcheck
			return true
		}
	}

	return false
}

func copyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return err
	}

	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(to), dirPerms); err != nil {
		return err
	}

	dst, err := os.Create(to)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()

		return err
	}

	return dst.Close()
}
