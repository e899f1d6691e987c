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

// Package extract unpacks verified payload files in a staging directory,
// dispatching on filename suffix: tarballs are untarred and removed, gzipped
// files are inflated in place, and anything else is either passed through
// unchanged or treated as fatal, depending on the source's policy.
package extract

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/inconshreveable/log15"
	"github.com/klauspost/pgzip"
	"github.com/wtsi-hgi/refmirror/verify"
)

const (
	tarGzSuffix = ".tar.gz"
	gzSuffix    = ".gz"

	dirPerms  = 0750
	filePerms = 0640
)

// Error is the custom error type for the extract package.
type Error string

const (
	// ErrUnknownFormat is returned (wrapped with the filename) when a strict
	// source stages a file with a suffix the extractor has never seen for
	// that source; it refuses to guess.
	ErrUnknownFormat = Error("unrecognised payload file format")
	// ErrUnsafePath is returned when a tar entry would escape the staging
	// directory.
	ErrUnsafePath = Error("archive entry escapes extraction directory")
	// ErrBadEntryType is returned for tar entries that are not plain files
	// or directories.
	ErrBadEntryType = Error("unsupported archive entry type")
)

func (e Error) Error() string { return string(e) }

// Dir extracts every payload file under the staging directory dir.
// keepUnknown selects the permissive policy for unrecognised suffixes;
// checksum manifest files are left alone either way. Any failure aborts
// immediately, leaving the staging directory to be discarded by the caller.
func Dir(dir string, keepUnknown bool, logger log15.Logger) error {
	files, err := payloadFiles(dir)
	if err != nil {
		return err
	}

	for _, path := range files {
		if err := one(dir, path, keepUnknown, logger); err != nil {
			return err
		}
	}

	return nil
}

// payloadFiles returns the non-manifest regular files under dir, collected
// up front so extraction doesn't revisit files it creates.
func payloadFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() || verify.IsManifest(entry.Name()) {
			return err
		}

		files = append(files, path)

		return nil
	})

	return files, err
}

func one(dir, path string, keepUnknown bool, logger log15.Logger) error {
	switch name := filepath.Base(path); {
	case strings.HasSuffix(name, tarGzSuffix):
		logger.Debug("unpacking archive", "file", name)

		if err := untarGz(path, dir); err != nil {
			return err
		}

		return os.Remove(path)
	case strings.HasSuffix(name, gzSuffix):
		logger.Debug("decompressing", "file", name)

		return inflate(path)
	case keepUnknown:
		return nil
	default:
		return fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
}

// untarGz unpacks the gzipped tarball at path into dir. Entries may only be
// plain files or directories, and must stay inside dir.
func untarGz(path, dir string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	defer gz.Close()

	tr := tar.NewReader(gz)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		if err := untarEntry(tr, hdr, dir); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
}

func untarEntry(tr *tar.Reader, hdr *tar.Header, dir string) error {
	dest, err := entryDest(hdr.Name, dir)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(dest, dirPerms)
	case tar.TypeReg:
		return writeEntry(tr, hdr, dest)
	default:
		return fmt.Errorf("%s: %w", hdr.Name, ErrBadEntryType)
	}
}

func entryDest(name, dir string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", name, ErrUnsafePath)
	}

	return filepath.Join(dir, clean), nil
}

func writeEntry(tr *tar.Reader, hdr *tar.Header, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), dirPerms); err != nil {
		return err
	}

	w, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, hdr.FileInfo().Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(w, tr); err != nil { //nolint:gosec
		w.Close()

		return err
	}

	return w.Close()
}

// inflate replaces the gzipped file at path with its decompressed content,
// named without the .gz suffix.
func inflate(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	defer gz.Close()

	w, err := os.OpenFile(strings.TrimSuffix(path, gzSuffix), os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerms)
	if err != nil {
		return err
	}

	if _, err := io.Copy(w, gz); err != nil { //nolint:gosec
		w.Close()

		return err
	}

	if err := w.Close(); err != nil {
		return err
	}

	return os.Remove(path)
}
