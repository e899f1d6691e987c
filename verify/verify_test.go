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
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/refmirror/internal/remotedata"
)

func TestDetect(t *testing.T) {
	Convey("Given a staged tree, Detect picks the convention that is present", t, func() {
		dir := t.TempDir()
		remote := remotedata.New(dir)

		So(remote.AddFile("data.txt", []byte("hello")), ShouldBeNil)

		Convey("with no manifests at all, there is no strategy", func() {
			strategy, err := Detect(dir)
			So(err, ShouldBeNil)
			So(strategy, ShouldBeNil)
		})

		Convey("a CHECKSUMS file selects the legacy strategy", func() {
			So(remote.WriteChecksums("."), ShouldBeNil)

			strategy, err := Detect(dir)
			So(err, ShouldBeNil)
			So(strategy, ShouldNotBeNil)
			So(strategy.Name(), ShouldEqual, "legacy CHECKSUMS")

			Convey("but an md5checksums.txt takes precedence over it", func() {
				So(remote.WriteAggregateMD5("."), ShouldBeNil)

				strategy, err := Detect(dir)
				So(err, ShouldBeNil)
				So(strategy.Name(), ShouldEqual, "aggregate md5")

				Convey("and per-file manifests take precedence over both", func() {
					So(remote.WritePerFileMD5(), ShouldBeNil)

					strategy, err := Detect(dir)
					So(err, ShouldBeNil)
					So(strategy.Name(), ShouldEqual, "per-file md5")
				})
			})
		})
	})
}

func TestPerFile(t *testing.T) {
	Convey("Given payloads with per-file md5 manifests", t, func() {
		dir := t.TempDir()
		remote := remotedata.New(dir)

		So(remote.AddFile("nt.00.tar.gz", []byte("payload zero")), ShouldBeNil)
		So(remote.AddFile("nt.01.tar.gz", []byte("payload one")), ShouldBeNil)
		So(remote.WritePerFileMD5(), ShouldBeNil)

		strategy, err := Detect(dir)
		So(err, ShouldBeNil)
		So(strategy, ShouldNotBeNil)

		Convey("Verify succeeds when all files match", func() {
			So(strategy.Verify(), ShouldBeNil)
		})

		Convey("a corrupt payload is a mismatch naming the file", func() {
			So(remote.Corrupt("nt.01.tar.gz"), ShouldBeNil)

			err := strategy.Verify()
			So(err, ShouldNotBeNil)

			var mismatch *MismatchError

			So(errors.As(err, &mismatch), ShouldBeTrue)
			So(mismatch.File, ShouldEqual, "nt.01.tar.gz")
		})

		Convey("every mismatch is reported, not just the first", func() {
			So(remote.Corrupt("nt.00.tar.gz"), ShouldBeNil)
			So(remote.Corrupt("nt.01.tar.gz"), ShouldBeNil)

			err := strategy.Verify()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "nt.00.tar.gz")
			So(err.Error(), ShouldContainSubstring, "nt.01.tar.gz")
		})

		Convey("a payload without a manifest file fails", func() {
			So(remote.AddFile("stray.tar.gz", []byte("unlisted")), ShouldBeNil)

			strategy, err := Detect(dir)
			So(err, ShouldBeNil)

			err = strategy.Verify()
			So(errors.Is(err, ErrNotInManifest), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "stray.tar.gz")
		})

		Convey("a garbage manifest file is a parse failure", func() {
			So(os.WriteFile(filepath.Join(dir, "nt.00.tar.gz.md5"), []byte("not a digest\n"), 0600), ShouldBeNil)

			err := strategy.Verify()
			So(errors.Is(err, ErrMalformedManifest), ShouldBeTrue)
		})
	})
}

func TestAggregate(t *testing.T) {
	Convey("Given payloads listed in md5checksums.txt files", t, func() {
		dir := t.TempDir()
		remote := remotedata.New(dir)

		So(remote.AddFile("assembly.fna.gz", []byte("genome sequence")), ShouldBeNil)
		So(remote.AddFile("annotation/genes.gff.gz", []byte("gene annotations")), ShouldBeNil)
		So(remote.WriteAggregateMD5("."), ShouldBeNil)

		strategy, err := Detect(dir)
		So(err, ShouldBeNil)
		So(strategy, ShouldNotBeNil)

		Convey("Verify succeeds when all files match, including nested ones", func() {
			So(strategy.Verify(), ShouldBeNil)
		})

		Convey("a digest mismatch fails the whole set", func() {
			So(remote.Corrupt("assembly.fna.gz"), ShouldBeNil)

			err := strategy.Verify()
			So(err, ShouldNotBeNil)

			var mismatch *MismatchError

			So(errors.As(err, &mismatch), ShouldBeTrue)
			So(mismatch.File, ShouldEqual, "assembly.fna.gz")
		})

		Convey("a staged file the manifest doesn't list fails", func() {
			So(remote.AddFile("extra.txt", []byte("surprise")), ShouldBeNil)

			err := strategy.Verify()
			So(errors.Is(err, ErrNotInManifest), ShouldBeTrue)
		})

		Convey("a duplicate manifest entry is a parse failure", func() {
			manifest := filepath.Join(dir, "md5checksums.txt")
			data, err := os.ReadFile(manifest)
			So(err, ShouldBeNil)

			So(os.WriteFile(manifest, append(data, data...), 0600), ShouldBeNil)

			So(errors.Is(strategy.Verify(), ErrDuplicateEntry), ShouldBeTrue)
		})

		Convey("a malformed line is a parse failure", func() {
			manifest := filepath.Join(dir, "md5checksums.txt")
			So(os.WriteFile(manifest, []byte("zzzz nope\n"), 0600), ShouldBeNil)

			So(errors.Is(strategy.Verify(), ErrMalformedManifest), ShouldBeTrue)
		})

		Convey("a manifest in a subdirectory governs that subdirectory", func() {
			So(os.Remove(filepath.Join(dir, "md5checksums.txt")), ShouldBeNil)
			So(remote.WriteAggregateMD5("annotation"), ShouldBeNil)

			strategy, err := Detect(dir)
			So(err, ShouldBeNil)

			err = strategy.Verify()
			So(errors.Is(err, ErrNotInManifest), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "assembly.fna.gz")
			So(err.Error(), ShouldNotContainSubstring, "genes.gff.gz")
		})
	})
}

func TestLegacy(t *testing.T) {
	Convey("Given payloads listed in a BSD sum CHECKSUMS file", t, func() {
		dir := t.TempDir()
		remote := remotedata.New(dir)

		So(remote.AddFile("Homo_sapiens.dna.toplevel.fa.gz", []byte("ACGT")), ShouldBeNil)
		So(remote.AddFile("README", []byte("release notes")), ShouldBeNil)
		So(remote.WriteChecksums("."), ShouldBeNil)

		strategy, err := Detect(dir)
		So(err, ShouldBeNil)
		So(strategy, ShouldNotBeNil)

		Convey("Verify succeeds when all checksum pairs match", func() {
			So(strategy.Verify(), ShouldBeNil)
		})

		Convey("a changed payload fails with both pairs reported", func() {
			So(remote.Corrupt("README"), ShouldBeNil)

			err := strategy.Verify()
			So(err, ShouldNotBeNil)

			var mismatch *MismatchError

			So(errors.As(err, &mismatch), ShouldBeTrue)
			So(mismatch.File, ShouldEqual, "README")
			So(mismatch.Want, ShouldNotEqual, mismatch.Got)
		})

		Convey("a payload missing from the listing fails", func() {
			So(remote.AddFile("unlisted.txt", []byte("x")), ShouldBeNil)

			So(errors.Is(strategy.Verify(), ErrNotInManifest), ShouldBeTrue)
		})

		Convey("a malformed listing is a parse failure", func() {
			So(os.WriteFile(filepath.Join(dir, "CHECKSUMS"), []byte("99999999 2 file\n"), 0600), ShouldBeNil)

			So(errors.Is(strategy.Verify(), ErrMalformedManifest), ShouldBeTrue)
		})
	})
}

func TestSumFile(t *testing.T) {
	Convey("sumFile computes historic BSD sum output", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "data")

		// sum(1) of 1KiB of zero bytes is "0 1"
		So(os.WriteFile(path, make([]byte, 1024), 0600), ShouldBeNil)

		pair, err := sumFile(path)
		So(err, ShouldBeNil)
		So(pair.sum, ShouldEqual, 0)
		So(pair.blocks, ShouldEqual, 1)

		Convey("and a one-past-boundary size rounds blocks up", func() {
			So(os.WriteFile(path, make([]byte, 1025), 0600), ShouldBeNil)

			pair, err := sumFile(path)
			So(err, ShouldBeNil)
			So(pair.blocks, ShouldEqual, 2)
		})

		Convey("and single bytes sum to their value", func() {
			So(os.WriteFile(path, []byte{42}, 0600), ShouldBeNil)

			pair, err := sumFile(path)
			So(err, ShouldBeNil)
			So(pair.sum, ShouldEqual, 42)
			So(pair.blocks, ShouldEqual, 1)
		})
	})
}

func TestIsManifest(t *testing.T) {
	Convey("IsManifest recognises manifest basenames", t, func() {
		So(IsManifest("nt.00.tar.gz.md5"), ShouldBeTrue)
		So(IsManifest("md5checksums.txt"), ShouldBeTrue)
		So(IsManifest("CHECKSUMS"), ShouldBeTrue)
		So(IsManifest("nt.00.tar.gz"), ShouldBeFalse)
		So(IsManifest("README"), ShouldBeFalse)
	})
}
