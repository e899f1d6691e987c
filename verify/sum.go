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
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// sumBlockSize is the block size BSD sum(1) reports sizes in.
const sumBlockSize = 1024

// sumPair is a BSD sum checksum and 1KiB block count, as listed in Ensembl
// style CHECKSUMS files.
type sumPair struct {
	sum    uint16
	blocks int64
}

func (s sumPair) String() string {
	return fmt.Sprintf("%d %d", s.sum, s.blocks)
}

// legacy verifies payloads against per-directory "CHECKSUMS" manifests,
// which record BSD sum(1) output rather than a cryptographic digest. The
// recomputed (checksum, blocks) pair must equal the manifest's pair exactly.
type legacy struct {
	dir   string
	files *stagedFiles
}

func (l *legacy) Name() string { return "legacy CHECKSUMS" }

func (l *legacy) Verify() error {
	manifests := make(map[string]map[string]sumPair, len(l.files.legacy))

	for _, rel := range l.files.legacy {
		entries, err := parseChecksums(filepath.Join(l.dir, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}

		manifests[rel] = entries
	}

	var errs *multierror.Error

	for _, rel := range l.files.payloads {
		errs = multierror.Append(errs, l.verifyOne(rel, manifests))
	}

	return errs.ErrorOrNil()
}

func (l *legacy) verifyOne(rel string, manifests map[string]map[string]sumPair) error {
	manifest, ok := manifestFor(rel, l.files.legacy)
	if !ok {
		return fmt.Errorf("%s: %w", rel, ErrNotInManifest)
	}

	want, ok := lookupSum(manifests[manifest], manifest, rel)
	if !ok {
		return fmt.Errorf("%s: %w", rel, ErrNotInManifest)
	}

	got, err := sumFile(filepath.Join(l.dir, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}

	if got != want {
		return &MismatchError{File: rel, Want: want.String(), Got: got.String()}
	}

	return nil
}

func lookupSum(entries map[string]sumPair, manifest, rel string) (sumPair, bool) {
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

// parseChecksums reads "checksum blocks filename" lines.
func parseChecksums(file string) (map[string]sumPair, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	entries := make(map[string]sumPair)
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		name, pair, err := parseChecksumsLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}

		if _, exists := entries[name]; exists {
			return nil, fmt.Errorf("%s: %s: %w", file, name, ErrDuplicateEntry)
		}

		entries[name] = pair
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func parseChecksumsLine(line string) (string, sumPair, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return "", sumPair{}, ErrMalformedManifest
	}

	sum, err := strconv.ParseUint(fields[0], 10, 16)
	if err != nil {
		return "", sumPair{}, ErrMalformedManifest
	}

	blocks, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || blocks < 0 {
		return "", sumPair{}, ErrMalformedManifest
	}

	name := path.Clean(strings.TrimPrefix(fields[2], "./"))

	return name, sumPair{sum: uint16(sum), blocks: blocks}, nil
}

// sumFile computes the historic BSD sum(1) rotating checksum and 1KiB block
// count of the file at path.
func sumFile(path string) (sumPair, error) {
	f, err := os.Open(path)
	if err != nil {
		return sumPair{}, err
	}

	defer f.Close()

	var (
		checksum uint16
		size     int64
		buf      [32 * 1024]byte
	)

	for {
		n, err := f.Read(buf[:])

		for _, b := range buf[:n] {
			checksum = checksum>>1 | checksum<<15
			checksum += uint16(b)
		}

		size += int64(n)

		if err == io.EOF {
			break
		} else if err != nil {
			return sumPair{}, err
		}
	}

	return sumPair{
		sum:    checksum,
		blocks: (size + sumBlockSize - 1) / sumBlockSize,
	}, nil
}
