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

// Package publish atomically renames a staging directory into its final
// snapshot path and freezes the published tree read-only.
package publish

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

const dirPerms = 0755

// Error is the custom error type for the publish package.
type Error string

// ErrSnapshotExists is returned when the snapshot path gained an entry
// between the guard check and the rename; the existing snapshot is never
// clobbered and the loser of such a race must discard its staging area.
const ErrSnapshotExists = Error("snapshot already exists")

func (e Error) Error() string { return string(e) }

// Publish renames the staging directory to the snapshot path, creating
// parent directories as needed, then strips write permission from the
// published tree while preserving read and execute bits.
//
// The rename is atomic on the same filesystem, which the staging package
// guarantees by allocating under the destination root. Publish never
// overwrites: a pre-existing snapshot results in ErrSnapshotExists.
func Publish(stagingDir, snapshotPath string) error {
	if err := os.MkdirAll(filepath.Dir(snapshotPath), dirPerms); err != nil {
		return err
	}

	if _, err := os.Lstat(snapshotPath); err == nil {
		return fmt.Errorf("%s: %w", snapshotPath, ErrSnapshotExists)
	}

	if err := os.Rename(stagingDir, snapshotPath); err != nil {
		if errors.Is(err, fs.ErrExist) || errors.Is(err, syscall.ENOTEMPTY) {
			return fmt.Errorf("%s: %w", snapshotPath, ErrSnapshotExists)
		}

		return err
	}

	return freeze(snapshotPath)
}

// freeze removes the write bits from every file and directory under path,
// a defence against later accidental mutation of published data.
func freeze(path string) error {
	return filepath.WalkDir(path, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		fi, err := entry.Info()
		if err != nil {
			return err
		}

		return os.Chmod(path, fi.Mode().Perm()&^0222)
	})
}
