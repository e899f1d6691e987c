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

// Package snapshot computes the canonical paths of published dataset
// snapshots and decides skip-vs-fetch for a (source, dataset, date) triple.
//
// A snapshot directory, once published, is never overwritten, mutated or
// removed by refmirror: its existence alone is the idempotence marker.
package snapshot

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DateFormat is the layout of the date component of snapshot paths.
const DateFormat = "2006-01-02"

// Path returns the canonical snapshot directory for the given destination
// root, source name, dataset path and acquisition date:
//
//	<root>/<source>/<dataset>/<YYYY-MM-DD>
func Path(root, source, dataset string, date time.Time) string {
	return filepath.Join(root, source, filepath.FromSlash(strings.Trim(dataset, "/")), date.Format(DateFormat))
}

// Exists reports whether the given snapshot path already has any entry on
// disk. Partial contents are not inspected: existence alone is trusted, so a
// re-run on the same day is a no-op for this dataset.
func Exists(path string) bool {
	_, err := os.Lstat(path)

	return err == nil
}

// Info summarises one published snapshot found under a destination root.
type Info struct {
	Source  string
	Dataset string
	Date    string
	Files   int
	Size    uint64
}

// List walks the destination root and returns an Info for every published
// snapshot found, in walk (lexical) order. Dot-directories, including
// in-flight staging areas, are skipped.
func List(root string) ([]Info, error) {
	var infos []Info

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.IsDir() || path == root {
			return nil
		}

		if strings.HasPrefix(entry.Name(), ".") {
			return fs.SkipDir
		}

		if _, errt := time.Parse(DateFormat, entry.Name()); errt != nil {
			return nil
		}

		info, errs := summarise(root, path)
		if errs != nil {
			return errs
		}

		infos = append(infos, info)

		return fs.SkipDir
	})

	return infos, err
}

func summarise(root, path string) (Info, error) {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil {
		return Info{}, err
	}

	source, dataset, _ := strings.Cut(filepath.ToSlash(rel), "/")

	info := Info{
		Source:  source,
		Dataset: dataset,
		Date:    filepath.Base(path),
	}

	err = filepath.WalkDir(path, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}

		fi, err := entry.Info()
		if err != nil {
			return err
		}

		info.Files++
		info.Size += uint64(fi.Size()) //nolint:gosec

		return nil
	})

	return info, err
}
