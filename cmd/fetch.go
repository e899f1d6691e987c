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

package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/refmirror/fetch"
	"github.com/wtsi-hgi/refmirror/pipeline"
	"github.com/wtsi-hgi/refmirror/snapshot"
	"github.com/wtsi-hgi/refmirror/source"
	"github.com/wtsi-hgi/refmirror/staging"
)

var (
	fetchRoot     string
	fetchSource   string
	fetchURL      string
	fetchDate     string
	fetchLogfile  string
	fetchParallel int
)

// fetchCmd represents the fetch command.
var fetchCmd = &cobra.Command{
	Use:   "fetch [dataset ...]",
	Short: "Fetch datasets into dated snapshots",
	Long: `Fetch datasets into dated snapshots.

Each given dataset is mirrored from the source provider into a staging
directory under the destination root, verified against the provider's
checksum manifests, extracted, and published read-only to:

 <root>/<source>/<dataset>/<YYYY-MM-DD>

A dataset whose snapshot for the date already exists is skipped, so re-runs
are no-ops per dataset. Datasets are processed in order and the first failure
aborts the run, leaving already-published snapshots in place and no partial
snapshot anywhere.

The destination root defaults to $REFMIRROR_ROOT, and the transfer stream
count to $REFMIRROR_PARALLEL or the number of CPUs. A .env or .env.local file
in the working directory can supply these.
`,
	Run: func(_ *cobra.Command, args []string) {
		setCLIFormat()
		loadDotEnv()

		if fetchLogfile != "" {
			logToFile(fetchLogfile)
		}

		src, date, err := checkFetchArgs(args)
		if err != nil {
			die("%s", err)
		}

		if err := runFetch(src, date, args); err != nil {
			die("%s", err)
		}
	},
}

func init() {
	RootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchRoot, "root", "r", "",
		"destination root directory (default $REFMIRROR_ROOT)")
	fetchCmd.Flags().StringVarP(&fetchSource, "source", "s", "", "source provider name, see 'sources'")
	fetchCmd.Flags().StringVarP(&fetchURL, "url", "u", "",
		"override the source's remote root URL (default $REFMIRROR_<SOURCE>_URL)")
	fetchCmd.Flags().StringVarP(&fetchDate, "date", "d", "",
		"acquisition date label, YYYY-MM-DD (default today)")
	fetchCmd.Flags().IntVarP(&fetchParallel, "parallel", "n", 0,
		"number of concurrent transfer streams (default $REFMIRROR_PARALLEL or CPU count)")
	fetchCmd.Flags().StringVarP(&fetchLogfile, "logfile", "l", "", "also log to this file in logfmt")
}

// checkFetchArgs validates everything that can be validated without doing
// any I/O.
func checkFetchArgs(args []string) (source.Source, time.Time, error) {
	if len(args) == 0 {
		return source.Source{}, time.Time{}, errors.New("at least 1 dataset must be provided") //nolint:err113
	}

	if fetchRoot == "" {
		fetchRoot = envRoot()
	}

	if fetchRoot == "" {
		return source.Source{}, time.Time{}, errors.New("no destination root specified") //nolint:err113
	}

	if fetchSource == "" {
		return source.Source{}, time.Time{}, errors.New("no source specified") //nolint:err113
	}

	src, err := source.Lookup(fetchSource)
	if err != nil {
		return source.Source{}, time.Time{}, err
	}

	if fetchURL != "" {
		src.URL = fetchURL
	}

	if err := src.Validate(); err != nil {
		return source.Source{}, time.Time{}, err
	}

	var date time.Time

	if fetchDate != "" {
		if date, err = time.Parse(snapshot.DateFormat, fetchDate); err != nil {
			return source.Source{}, time.Time{}, err
		}
	}

	return src, date, nil
}

func runFetch(src source.Source, date time.Time, datasets []string) error {
	mirror, err := fetch.NewLFTP(appLogger)
	if err != nil {
		return err
	}

	manager, err := staging.NewManager(fetchRoot, appLogger)
	if err != nil {
		return err
	}

	stop := manager.CleanupOnTermination()
	defer stop()

	if fetchParallel < 1 {
		fetchParallel = envParallel()
	}

	p := pipeline.New(src, fetch.New(mirror, fetchParallel, appLogger), manager, date, appLogger)

	outcomes, err := p.Run(datasets)
	if err != nil {
		return err
	}

	published, skipped := 0, 0

	for _, outcome := range outcomes {
		if outcome == pipeline.Published {
			published++
		} else {
			skipped++
		}
	}

	info("done: %d published, %d already existed", published, skipped)

	return nil
}
