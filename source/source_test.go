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

package source

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLookup(t *testing.T) {
	Convey("Lookup finds built-in sources by name", t, func() {
		src, err := Lookup("ncbi-blast")
		So(err, ShouldBeNil)
		So(src.Name, ShouldEqual, "ncbi-blast")
		So(src.URL, ShouldContainSubstring, "ncbi.nlm.nih.gov")
		So(src.Manifest, ShouldEqual, ManifestPerFileMD5)
		So(src.Validate(), ShouldBeNil)

		Convey("and errors on unknown names", func() {
			_, err := Lookup("nosuch")
			So(errors.Is(err, ErrUnknownSource), ShouldBeTrue)
		})

		Convey("with the URL overridable via the environment", func() {
			t.Setenv("REFMIRROR_NCBI_BLAST_URL", "ftp://mirror.example.org/blast/db")

			src, err := Lookup("ncbi-blast")
			So(err, ShouldBeNil)
			So(src.URL, ShouldEqual, "ftp://mirror.example.org/blast/db")
		})
	})

	Convey("The custom source needs a URL from somewhere", t, func() {
		src, err := Lookup("custom")
		So(err, ShouldBeNil)
		So(errors.Is(src.Validate(), ErrNoURL), ShouldBeTrue)

		Convey("which can come from the environment", func() {
			t.Setenv("REFMIRROR_CUSTOM_URL", "ftp://internal.example.org/data")

			src, err := Lookup("custom")
			So(err, ShouldBeNil)
			So(src.Validate(), ShouldBeNil)
			So(src.URL, ShouldEqual, "ftp://internal.example.org/data")
		})

		Convey("or be set directly before validating", func() {
			src.URL = "ftp://elsewhere.example.org/data"
			So(src.Validate(), ShouldBeNil)
		})
	})

	Convey("All returns a copy of the registry", t, func() {
		all := All()
		So(len(all), ShouldEqual, 4)

		all[0].Name = "mutated"

		again := All()
		So(again[0].Name, ShouldNotEqual, "mutated")
	})
}

func TestGlobs(t *testing.T) {
	Convey("Prefix-layout sources expand dataset names into their globs", t, func() {
		src, err := Lookup("ncbi-blast")
		So(err, ShouldBeNil)

		So(src.RemoteDir("nt"), ShouldEqual, src.URL)
		So(src.PayloadGlobs("nt"), ShouldResemble, []string{"nt.*.tar.gz", "nt.tar.gz"})
		So(src.ManifestGlobs("nt"), ShouldResemble, []string{"nt.*.tar.gz.md5", "nt.tar.gz.md5"})
	})

	Convey("Directory-layout sources mirror everything under the dataset", t, func() {
		src, err := Lookup("ncbi-genomes")
		So(err, ShouldBeNil)

		So(src.RemoteDir("GCF/000/001/405"), ShouldEqual, src.URL+"/GCF/000/001/405")
		So(src.PayloadGlobs("GCF/000/001/405"), ShouldResemble, []string{"*"})
		So(src.ManifestGlobs("GCF/000/001/405"), ShouldResemble, []string{"md5checksums.txt"})

		Convey("with leading and trailing slashes trimmed", func() {
			So(src.RemoteDir("/GCF/000/"), ShouldEqual, src.URL+"/GCF/000")
		})
	})

	Convey("Legacy sum sources look for a CHECKSUMS manifest", t, func() {
		src, err := Lookup("ensembl")
		So(err, ShouldBeNil)

		So(src.ManifestGlobs("release-115/fasta"), ShouldResemble, []string{"CHECKSUMS"})
		So(src.KeepUnknown, ShouldBeTrue)
	})

	Convey("Manifest-less sources have no manifest globs", t, func() {
		src, err := Lookup("custom")
		So(err, ShouldBeNil)

		So(src.ManifestGlobs("anything"), ShouldBeNil)
		So(src.Manifest.String(), ShouldEqual, "none")
	})
}
