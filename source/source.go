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

// Package source describes the remote dataset providers refmirror knows how
// to mirror, including each provider's checksum manifest convention and file
// layout quirks.
package source

import (
	"fmt"
	"os"
	"strings"
)

// Manifest is the checksum manifest convention a provider publishes
// alongside its payload files.
type Manifest int

const (
	// ManifestNone means the provider publishes no checksums at all;
	// verification is skipped with a warning.
	ManifestNone Manifest = iota

	// ManifestPerFileMD5 means each payload file has a sibling
	// "<payload>.md5" file containing its hex MD5 digest.
	ManifestPerFileMD5

	// ManifestAggregateMD5 means each remote directory contains an
	// "md5checksums.txt" file listing "digest  filename" pairs.
	ManifestAggregateMD5

	// ManifestLegacySum means each remote directory contains a "CHECKSUMS"
	// file listing BSD sum(1) "checksum blocks filename" triples.
	ManifestLegacySum
)

// String returns a human readable name for the manifest convention.
func (m Manifest) String() string {
	switch m {
	case ManifestPerFileMD5:
		return "per-file md5"
	case ManifestAggregateMD5:
		return "md5checksums.txt"
	case ManifestLegacySum:
		return "CHECKSUMS"
	default:
		return "none"
	}
}

// Source is an immutable descriptor for one remote dataset provider.
type Source struct {
	// Name is the short identifier used in snapshot paths and on the
	// command line.
	Name string

	// URL is the remote root endpoint the mirror tool connects to.
	URL string

	// Include holds payload glob templates; any "%s" is expanded to the
	// dataset name. Empty means mirror everything under the dataset.
	Include []string

	// Exclude holds globs that are never transferred.
	Exclude []string

	// Manifest is the checksum convention this provider publishes.
	Manifest Manifest

	// KeepUnknown makes extraction pass files with unrecognised suffixes
	// through unchanged, for providers that publish uncompressed payloads.
	// When false, an unrecognised suffix is a fatal extraction error.
	KeepUnknown bool

	// DatasetDirs means datasets are subdirectories of URL rather than
	// filename prefixes within it.
	DatasetDirs bool
}

// RemoteDir returns the remote directory the mirror tool should be pointed
// at for the given dataset.
func (s Source) RemoteDir(dataset string) string {
	if s.DatasetDirs {
		return strings.TrimSuffix(s.URL, "/") + "/" + strings.Trim(dataset, "/")
	}

	return s.URL
}

// PayloadGlobs returns the globs that select the given dataset's payload
// files within RemoteDir.
func (s Source) PayloadGlobs(dataset string) []string {
	if len(s.Include) == 0 {
		return []string{"*"}
	}

	globs := make([]string, len(s.Include))

	for n, tmpl := range s.Include {
		if strings.Contains(tmpl, "%s") {
			globs[n] = fmt.Sprintf(tmpl, dataset)
		} else {
			globs[n] = tmpl
		}
	}

	return globs
}

// ManifestGlobs returns the globs that select the given dataset's checksum
// manifest files within RemoteDir, or nil if the provider publishes none.
// These are transferred before any payload file.
func (s Source) ManifestGlobs(dataset string) []string {
	switch s.Manifest {
	case ManifestPerFileMD5:
		payload := s.PayloadGlobs(dataset)
		globs := make([]string, len(payload))

		for n, glob := range payload {
			globs[n] = glob + ".md5"
		}

		return globs
	case ManifestAggregateMD5:
		return []string{"md5checksums.txt"}
	case ManifestLegacySum:
		return []string{"CHECKSUMS"}
	default:
		return nil
	}
}

// Error is the custom error type for the source package.
type Error string

const (
	// ErrUnknownSource is returned by Lookup for a name not in the registry.
	ErrUnknownSource = Error("unknown source")
	// ErrNoURL is returned when a source has no remote root configured.
	ErrNoURL = Error("source has no remote root URL configured")
)

func (e Error) Error() string { return string(e) }

// sources is the built-in provider registry.
var sources = []Source{ //nolint:gochecknoglobals
	{
		Name:     "ncbi-blast",
		URL:      "ftp://ftp.ncbi.nlm.nih.gov/blast/db",
		Include:  []string{"%s.*.tar.gz", "%s.tar.gz"},
		Manifest: ManifestPerFileMD5,
	},
	{
		Name:        "ncbi-genomes",
		URL:         "ftp://ftp.ncbi.nlm.nih.gov/genomes/all",
		Manifest:    ManifestAggregateMD5,
		DatasetDirs: true,
	},
	{
		Name:        "ensembl",
		URL:         "ftp://ftp.ensembl.org/pub",
		Manifest:    ManifestLegacySum,
		KeepUnknown: true,
		DatasetDirs: true,
	},
	{
		Name:        "custom",
		Manifest:    ManifestNone,
		KeepUnknown: true,
		DatasetDirs: true,
	},
}

// Lookup returns the named source from the built-in registry, with its URL
// overridden by $REFMIRROR_<NAME>_URL if that is set. The custom source has
// no built-in URL, so requires the env var or an explicit override by the
// caller; callers should check the URL with Validate before mirroring.
func Lookup(name string) (Source, error) {
	for _, src := range sources {
		if src.Name != name {
			continue
		}

		if url := os.Getenv(urlEnvVar(name)); url != "" {
			src.URL = url
		}

		return src, nil
	}

	return Source{}, fmt.Errorf("%s: %w", name, ErrUnknownSource)
}

// Validate checks that the source is usable for mirroring.
func (s Source) Validate() error {
	if s.URL == "" {
		return fmt.Errorf("%s: %w", s.Name, ErrNoURL)
	}

	return nil
}

// All returns the built-in provider registry.
func All() []Source {
	all := make([]Source, len(sources))
	copy(all, sources)

	return all
}

func urlEnvVar(name string) string {
	name = strings.ToUpper(strings.ReplaceAll(name, "-", "_"))

	return "REFMIRROR_" + name + "_URL"
}
