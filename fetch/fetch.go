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

// Package fetch populates a staging directory with a dataset's checksum
// manifests and payload files, driving an external mirroring subprocess with
// a bounded number of parallel transfer streams.
package fetch

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/refmirror/source"
)

// Mirror is the pattern-filtered, parallel, recursive mirroring operation
// the fetcher delegates transfers to. It is synchronous and must have
// completed (or failed) before the next pipeline stage begins.
type Mirror interface {
	Mirror(remoteDir, localDir string, include, exclude []string, parallel int) error
}

// Fetcher fetches one dataset at a time into a staging directory.
type Fetcher struct {
	mirror   Mirror
	parallel int
	logger   log15.Logger
}

// New returns a Fetcher that uses the given Mirror with up to parallel
// concurrent transfer streams; zero or negative means one per available CPU.
func New(mirror Mirror, parallel int, logger log15.Logger) *Fetcher {
	if parallel < 1 {
		parallel = runtime.NumCPU()
	}

	return &Fetcher{mirror: mirror, parallel: parallel, logger: logger}
}

// Fetch transfers the dataset's files from the source into stagingDir, in
// two passes: all checksum manifest files first, then the payload files.
//
// The ordering narrows the window in which the remote can rewrite a payload
// after its recorded digest was captured; it does not close it. A remote
// that rewrites both manifest and payload between the passes is still caught
// by verification, but one that rewrites only the payload after the manifest
// pass is not.
func (f *Fetcher) Fetch(src source.Source, dataset, stagingDir string) error {
	remote := src.RemoteDir(dataset)
	manifests := src.ManifestGlobs(dataset)

	if len(manifests) > 0 {
		f.logger.Info("fetching checksum manifests", "source", src.Name, "dataset", dataset)

		if err := f.mirror.Mirror(remote, stagingDir, manifests, src.Exclude, f.parallel); err != nil {
			return fmt.Errorf("%s: %w", dataset, err)
		}
	}

	f.logger.Info("fetching payload files", "source", src.Name, "dataset", dataset,
		"parallel", f.parallel)

	exclude := append(append([]string{}, manifests...), src.Exclude...)

	if err := f.mirror.Mirror(remote, stagingDir, src.PayloadGlobs(dataset), exclude, f.parallel); err != nil {
		return fmt.Errorf("%s: %w", dataset, err)
	}

	f.logStaged(dataset, stagingDir)

	return nil
}

func (f *Fetcher) logStaged(dataset, stagingDir string) {
	var (
		files int
		size  uint64
	)

	filepath.WalkDir(stagingDir, func(_ string, entry fs.DirEntry, err error) error { //nolint:errcheck
		if err != nil || entry.IsDir() {
			return err
		}

		if fi, erri := entry.Info(); erri == nil {
			files++
			size += uint64(fi.Size()) //nolint:gosec
		}

		return nil
	})

	f.logger.Info("transfer complete", "dataset", dataset, "files", files, "size", humanize.IBytes(size))
}
