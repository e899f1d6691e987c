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

// Package pipeline sequences dataset acquisition: guard, stage, fetch,
// verify, extract, publish, with the staging area released on every path.
//
// Datasets are processed one at a time; concurrency lives inside the
// fetcher's transfer streams. The first failing dataset aborts the batch.
// Snapshots already published earlier in the run are never rolled back, and
// there is no retry anywhere: a re-run is safe because published snapshots
// are skipped.
package pipeline

import (
	"time"

	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/refmirror/extract"
	"github.com/wtsi-hgi/refmirror/fetch"
	"github.com/wtsi-hgi/refmirror/publish"
	"github.com/wtsi-hgi/refmirror/snapshot"
	"github.com/wtsi-hgi/refmirror/source"
	"github.com/wtsi-hgi/refmirror/staging"
	"github.com/wtsi-hgi/refmirror/verify"
)

// Outcome is the per-dataset result of a run.
type Outcome int

const (
	// Published means a new snapshot was created for the dataset.
	Published Outcome = iota
	// Skipped means the dataset's snapshot for the run date already existed
	// and nothing was transferred.
	Skipped
)

// Pipeline acquires datasets from one source into dated snapshots under a
// destination root.
type Pipeline struct {
	source  source.Source
	fetcher *fetch.Fetcher
	staging *staging.Manager
	date    time.Time
	logger  log15.Logger
}

// New returns a Pipeline for the given source. date is the acquisition date
// used for snapshot paths; the zero time means today.
func New(src source.Source, fetcher *fetch.Fetcher, manager *staging.Manager,
	date time.Time, logger log15.Logger) *Pipeline {
	if date.IsZero() {
		date = time.Now()
	}

	return &Pipeline{
		source:  src,
		fetcher: fetcher,
		staging: manager,
		date:    date,
		logger:  logger,
	}
}

// Run processes the given datasets in order, stopping at the first failure.
// Datasets published before the failure remain published. It returns the
// outcome for each dataset processed, in input order.
func (p *Pipeline) Run(datasets []string) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(datasets))

	for _, dataset := range datasets {
		outcome, err := p.runOne(dataset)
		if err != nil {
			return outcomes, err
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

func (p *Pipeline) runOne(dataset string) (Outcome, error) {
	dest := snapshot.Path(p.staging.Root(), p.source.Name, dataset, p.date)

	if snapshot.Exists(dest) {
		p.logger.Info("skipping: snapshot already exists", "dataset", dataset, "path", dest)

		return Skipped, nil
	}

	area, err := p.staging.Create()
	if err != nil {
		return 0, err
	}

	defer area.Release() //nolint:errcheck

	if err := p.acquire(dataset, area.Dir(), dest); err != nil {
		return 0, err
	}

	p.logger.Info("published", "dataset", dataset, "path", dest)

	return Published, nil
}

func (p *Pipeline) acquire(dataset, stagingDir, dest string) error {
	if err := p.fetcher.Fetch(p.source, dataset, stagingDir); err != nil {
		return err
	}

	if err := p.verifyStaged(dataset, stagingDir); err != nil {
		return err
	}

	if err := extract.Dir(stagingDir, p.source.KeepUnknown, p.logger); err != nil {
		return err
	}

	return publish.Publish(stagingDir, dest)
}

func (p *Pipeline) verifyStaged(dataset, stagingDir string) error {
	strategy, err := verify.Detect(stagingDir)
	if err != nil {
		return err
	}

	if strategy == nil {
		p.logger.Warn("no checksum manifest found, proceeding unverified", "dataset", dataset)

		return nil
	}

	p.logger.Info("verifying", "dataset", dataset, "manifest", strategy.Name())

	return strategy.Verify()
}
