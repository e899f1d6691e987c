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

// Package verify checks staged payload files against whichever checksum
// manifest convention the remote provider published alongside them.
//
// Verification is all-or-nothing across a dataset's complete file set: every
// failure is collected and reported, and a single one fails the dataset.
package verify

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

const (
	perFileSuffix = ".md5"
	aggregateName = "md5checksums.txt"
	legacyName    = "CHECKSUMS"
)

// Error is the custom error type for the verify package.
type Error string

const (
	// ErrNotInManifest is returned (wrapped with the filename) when a staged
	// payload file has no corresponding manifest entry.
	ErrNotInManifest = Error("payload file has no manifest entry")
	// ErrMalformedManifest is returned (wrapped with the manifest path) when
	// a manifest file cannot be parsed.
	ErrMalformedManifest = Error("malformed checksum manifest")
	// ErrDuplicateEntry is returned when a manifest lists the same filename
	// twice.
	ErrDuplicateEntry = Error("duplicate manifest entry")
)

func (e Error) Error() string { return string(e) }

// MismatchError is a checksum mismatch for one payload file.
type MismatchError struct {
	File string
	Want string
	Got  string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: manifest has %q, file has %q", e.File, e.Want, e.Got)
}

// Strategy verifies all staged payload files against one checksum manifest
// convention. Implementations are bound to a staging directory by Detect.
type Strategy interface {
	// Name is the human readable name of the manifest convention.
	Name() string

	// Verify checks every payload file and returns nil only if all of them
	// match their manifest entries. All failures are collected into the
	// returned error.
	Verify() error
}

// Detect inspects the staged tree and returns the verification strategy for
// the manifest convention present, detected in the order: per-file .md5
// manifests, aggregate md5checksums.txt, legacy CHECKSUMS. If no manifest of
// any kind is present it returns a nil Strategy; the caller should warn and
// treat verification as vacuously successful.
func Detect(dir string) (Strategy, error) {
	files, err := classify(dir)
	if err != nil {
		return nil, err
	}

	switch {
	case len(files.perFile) > 0:
		return &perFile{dir: dir, files: files}, nil
	case len(files.aggregate) > 0:
		return &aggregate{dir: dir, files: files}, nil
	case len(files.legacy) > 0:
		return &legacy{dir: dir, files: files}, nil
	default:
		return nil, nil //nolint:nilnil
	}
}

// IsManifest reports whether the given file basename is a checksum manifest
// rather than a payload file.
func IsManifest(name string) bool {
	return strings.HasSuffix(name, perFileSuffix) || name == aggregateName || name == legacyName
}

// stagedFiles is the result of classifying everything under a staging
// directory. All paths are slash-separated and relative to it.
type stagedFiles struct {
	payloads  []string
	perFile   map[string]bool
	aggregate []string
	legacy    []string
}

func classify(dir string) (*stagedFiles, error) {
	files := &stagedFiles{perFile: make(map[string]bool)}

	err := filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		rel = filepath.ToSlash(rel)

		switch name := entry.Name(); {
		case strings.HasSuffix(name, perFileSuffix):
			files.perFile[rel] = true
		case name == aggregateName:
			files.aggregate = append(files.aggregate, rel)
		case name == legacyName:
			files.legacy = append(files.legacy, rel)
		default:
			files.payloads = append(files.payloads, rel)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files.payloads)

	return files, nil
}

// manifestFor returns which of the given manifest file paths governs the
// payload at rel: the one in the payload's own directory, or failing that
// the nearest ancestor directory's.
func manifestFor(rel string, manifests []string) (string, bool) {
	for dir := path.Dir(rel); ; dir = path.Dir(dir) {
		for _, m := range manifests {
			if path.Dir(m) == dir {
				return m, true
			}
		}

		if dir == "." {
			return "", false
		}
	}
}
