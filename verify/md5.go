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

package verify

import (
	"bufio"
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// perFile verifies payloads against sibling "<payload>.md5" manifest files,
// the NCBI BLAST database convention.
type perFile struct {
	dir   string
	files *stagedFiles
}

func (p *perFile) Name() string { return "per-file md5" }

func (p *perFile) Verify() error {
	var errs *multierror.Error

	for _, rel := range p.files.payloads {
		errs = multierror.Append(errs, p.verifyOne(rel))
	}

	return errs.ErrorOrNil()
}

func (p *perFile) verifyOne(rel string) error {
	manifest := rel + perFileSuffix
	if !p.files.perFile[manifest] {
		return fmt.Errorf("%s: %w", rel, ErrNotInManifest)
	}

	want, err := readDigestLine(filepath.Join(p.dir, filepath.FromSlash(manifest)))
	if err != nil {
		return err
	}

	return compareMD5(p.dir, rel, want)
}

// readDigestLine reads a single-entry manifest whose first whitespace field
// is the hex digest.
func readDigestLine(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 || !isHexDigest(fields[0]) {
		return "", fmt.Errorf("%s: %w", path, ErrMalformedManifest)
	}

	return strings.ToLower(fields[0]), nil
}

// aggregate verifies payloads against per-directory "md5checksums.txt"
// manifests, the NCBI genomes convention. Each manifest lists
// "digest  filename" pairs, filename relative to the manifest's directory.
type aggregate struct {
	dir   string
	files *stagedFiles
}

func (a *aggregate) Name() string { return "aggregate md5" }

func (a *aggregate) Verify() error {
	manifests := make(map[string]map[string]string, len(a.files.aggregate))

	for _, rel := range a.files.aggregate {
		entries, err := parseAggregate(filepath.Join(a.dir, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}

		manifests[rel] = entries
	}

	var errs *multierror.Error

	for _, rel := range a.files.payloads {
		errs = multierror.Append(errs, a.verifyOne(rel, manifests))
	}

	return errs.ErrorOrNil()
}

func (a *aggregate) verifyOne(rel string, manifests map[string]map[string]string) error {
	manifest, ok := manifestFor(rel, a.files.aggregate)
	if !ok {
		return fmt.Errorf("%s: %w", rel, ErrNotInManifest)
	}

	want, ok := lookupEntry(manifests[manifest], manifest, rel)
	if !ok {
		return fmt.Errorf("%s: %w", rel, ErrNotInManifest)
	}

	return compareMD5(a.dir, rel, want)
}

// lookupEntry finds the manifest entry for the payload at rel, first by its
// path relative to the manifest's directory, then by basename.
func lookupEntry(entries map[string]string, manifest, rel string) (string, bool) {
	key := rel
	if dir := path.Dir(manifest); dir != "." {
		key = strings.TrimPrefix(rel, dir+"/")
	}

	if want, ok := entries[key]; ok {
		return want, true
	}

	want, ok := entries[path.Base(rel)]

	return want, ok
}

// parseAggregate reads "digest  filename" lines. Filenames are recorded with
// any leading "./" removed. A repeated filename makes the manifest invalid.
func parseAggregate(file string) (map[string]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	entries := make(map[string]string)
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 || !isHexDigest(fields[0]) {
			return nil, fmt.Errorf("%s: %w", file, ErrMalformedManifest)
		}

		name := path.Clean(strings.TrimPrefix(fields[1], "./"))
		if _, exists := entries[name]; exists {
			return nil, fmt.Errorf("%s: %s: %w", file, name, ErrDuplicateEntry)
		}

		entries[name] = strings.ToLower(fields[0])
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func compareMD5(dir, rel, want string) error {
	got, err := md5File(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}

	if got != want {
		return &MismatchError{File: rel, Want: want, Got: got}
	}

	return nil
}

func md5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}

	defer f.Close()

	h := md5.New() //nolint:gosec
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func isHexDigest(s string) bool {
	if len(s) != md5.Size*2 {
		return false
	}

	_, err := hex.DecodeString(s)

	return err == nil
}
