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

// Package remotedata builds fake remote provider directories, with payload
// files, archives and checksum manifests, for testing the acquisition
// pipeline without a real remote server.
package remotedata

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	dirPerms  = 0755
	filePerms = 0644
)

// Remote is a local directory standing in for a remote provider's tree.
type Remote struct {
	Dir string
}

// New returns a Remote rooted at dir, which must already exist.
func New(dir string) *Remote {
	return &Remote{Dir: dir}
}

// AddFile creates a payload file at the given slash-separated relative path.
func (r *Remote) AddFile(rel string, content []byte) error {
	path := filepath.Join(r.Dir, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return err
	}

	return os.WriteFile(path, content, filePerms)
}

// AddTarGz creates a gzipped tarball at the given relative path containing
// the given name -> content entries.
func (r *Remote) AddTarGz(rel string, entries map[string]string) error {
	path := filepath.Join(r.Dir, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(entries[name]))}

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		if _, err := tw.Write([]byte(entries[name])); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}

	if err := gz.Close(); err != nil {
		return err
	}

	return f.Close()
}

// AddGz creates a gzipped (non-tar) file at the given relative path.
func (r *Remote) AddGz(rel string, content []byte) error {
	path := filepath.Join(r.Dir, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(f)

	if _, err := gz.Write(content); err != nil {
		return err
	}

	if err := gz.Close(); err != nil {
		return err
	}

	return f.Close()
}

// WritePerFileMD5 creates a "<payload>.md5" manifest next to every payload
// file currently in the tree, in NCBI BLAST style.
func (r *Remote) WritePerFileMD5() error {
	return r.eachPayload(func(path, rel string) error {
		digest, err := md5Hex(path)
		if err != nil {
			return err
		}

		line := fmt.Sprintf("%s  %s\n", digest, filepath.Base(rel))

		return os.WriteFile(path+".md5", []byte(line), filePerms)
	})
}

// WriteAggregateMD5 creates an "md5checksums.txt" in the directory at the
// given relative path ("." for the root), listing every payload file under
// it, in NCBI genomes style.
func (r *Remote) WriteAggregateMD5(dirRel string) error {
	var lines []string

	base := filepath.Join(r.Dir, filepath.FromSlash(dirRel))

	err := r.eachPayload(func(path, rel string) error {
		sub, err := filepath.Rel(base, path)
		if err != nil || strings.HasPrefix(sub, "..") {
			return nil //nolint:nilerr
		}

		digest, errm := md5Hex(path)
		if errm != nil {
			return errm
		}

		lines = append(lines, fmt.Sprintf("%s  ./%s\n", digest, filepath.ToSlash(sub)))

		return nil
	})
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(base, "md5checksums.txt"), []byte(strings.Join(lines, "")), filePerms)
}

// WriteChecksums creates a BSD sum style "CHECKSUMS" file in the directory
// at the given relative path, listing every payload file under it, in
// Ensembl style.
func (r *Remote) WriteChecksums(dirRel string) error {
	var lines []string

	base := filepath.Join(r.Dir, filepath.FromSlash(dirRel))

	err := r.eachPayload(func(path, rel string) error {
		sub, err := filepath.Rel(base, path)
		if err != nil || strings.HasPrefix(sub, "..") {
			return nil //nolint:nilerr
		}

		sum, blocks, errs := bsdSum(path)
		if errs != nil {
			return errs
		}

		lines = append(lines, fmt.Sprintf("%d %d %s\n", sum, blocks, filepath.ToSlash(sub)))

		return nil
	})
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(base, "CHECKSUMS"), []byte(strings.Join(lines, "")), filePerms)
}

// Corrupt overwrites an existing file's content without touching any
// manifest, so that verification of it must fail.
func (r *Remote) Corrupt(rel string) error {
	return os.WriteFile(filepath.Join(r.Dir, filepath.FromSlash(rel)), []byte("corrupted"), filePerms)
}

func (r *Remote) eachPayload(cb func(path, rel string) error) error {
	return filepath.WalkDir(r.Dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}

		name := entry.Name()
		if strings.HasSuffix(name, ".md5") || name == "md5checksums.txt" || name == "CHECKSUMS" {
			return nil
		}

		rel, err := filepath.Rel(r.Dir, path)
		if err != nil {
			return err
		}

		return cb(path, filepath.ToSlash(rel))
	})
}
