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

package fetch

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/inconshreveable/log15"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/refmirror/internal/remotedata"
	"github.com/wtsi-hgi/refmirror/source"
)

func testLogger() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())

	return logger
}

func TestFetch(t *testing.T) {
	logger := testLogger()

	Convey("Given a remote tree with payloads and per-file manifests", t, func() {
		remoteDir := t.TempDir()
		stagingDir := t.TempDir()
		remote := remotedata.New(remoteDir)

		So(remote.AddFile("nt.00.tar.gz", []byte("payload zero")), ShouldBeNil)
		So(remote.AddFile("nt.01.tar.gz", []byte("payload one")), ShouldBeNil)
		So(remote.AddFile("nr.00.tar.gz", []byte("other dataset")), ShouldBeNil)
		So(remote.WritePerFileMD5(), ShouldBeNil)

		src := source.Source{
			Name:     "demo",
			URL:      remoteDir,
			Include:  []string{"%s.*.tar.gz"},
			Manifest: source.ManifestPerFileMD5,
		}

		mirror := &remotedata.Mirror{}
		f := New(mirror, 3, logger)

		Convey("Fetch transfers all manifests before any payload", func() {
			So(f.Fetch(src, "nt", stagingDir), ShouldBeNil)

			So(len(mirror.Calls), ShouldEqual, 2)
			So(mirror.Calls[0].Include, ShouldResemble, []string{"nt.*.tar.gz.md5"})
			So(mirror.Calls[1].Include, ShouldResemble, []string{"nt.*.tar.gz"})
			So(mirror.Calls[1].Exclude, ShouldContain, "nt.*.tar.gz.md5")
			So(mirror.Calls[0].Parallel, ShouldEqual, 3)

			Convey("staging only the requested dataset's files", func() {
				entries, err := filepath.Glob(filepath.Join(stagingDir, "*"))
				So(err, ShouldBeNil)
				So(entries, ShouldResemble, []string{
					filepath.Join(stagingDir, "nt.00.tar.gz"),
					filepath.Join(stagingDir, "nt.00.tar.gz.md5"),
					filepath.Join(stagingDir, "nt.01.tar.gz"),
					filepath.Join(stagingDir, "nt.01.tar.gz.md5"),
				})
			})
		})

		Convey("Fetch of a manifest-less source does a single payload pass", func() {
			src.Manifest = source.ManifestNone

			So(f.Fetch(src, "nt", stagingDir), ShouldBeNil)
			So(len(mirror.Calls), ShouldEqual, 1)
		})

		Convey("a failed transfer aborts with the dataset named", func() {
			mirror.FailPass = 2

			err := f.Fetch(src, "nt", stagingDir)
			So(errors.Is(err, remotedata.ErrMirrorFailed), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "nt")
		})
	})

	Convey("New defaults parallelism to the CPU count", t, func() {
		f := New(&remotedata.Mirror{}, 0, logger)
		So(f.parallel, ShouldEqual, runtime.NumCPU())
	})
}

func TestLFTP(t *testing.T) {
	Convey("NewLFTP fails up front when the tool is not installed", t, func() {
		t.Setenv("PATH", t.TempDir())

		_, err := NewLFTP(testLogger())
		So(errors.Is(err, ErrToolMissing), ShouldBeTrue)
	})

	Convey("mirrorScript builds one synchronous mirror invocation", t, func() {
		script := mirrorScript("ftp://example.com/blast/db", "/data/.staging-1",
			[]string{"nt.*.tar.gz"}, []string{"nt.*.tar.gz.md5"}, 4)

		So(script, ShouldEqual, `set cmd:fail-exit true; open "ftp://example.com/blast/db"; `+
			`mirror --no-empty-dirs --parallel=4 --include-glob "nt.*.tar.gz" `+
			`--exclude-glob "nt.*.tar.gz.md5" . "/data/.staging-1"`)
	})
}
