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
	"fmt"
	"os"

	"code.cloudfoundry.org/bytefmt"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/refmirror/snapshot"
)

var (
	listRoot    string
	listMinSize string
)

// listCmd represents the list command.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List published snapshots",
	Long: `List the snapshots published under a destination root.

Shows one row per snapshot with its source, dataset, acquisition date, file
count and total size. Snapshots smaller than --size are not shown.
`,
	Run: func(_ *cobra.Command, _ []string) {
		setCLIFormat()
		loadDotEnv()

		if listRoot == "" {
			listRoot = envRoot()
		}

		if listRoot == "" {
			die("no destination root specified")
		}

		minSize, err := minSizeBytes()
		if err != nil {
			die("invalid --size: %s", err)
		}

		infos, err := snapshot.List(listRoot)
		if err != nil {
			die("failed to list snapshots: %s", err)
		}

		renderList(infos, minSize)
	},
}

func init() {
	RootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listRoot, "root", "r", "",
		"destination root directory (default $REFMIRROR_ROOT)")
	listCmd.Flags().StringVar(&listMinSize, "size", "", "only show snapshots at least this large, eg. 100M, 5G")
}

func minSizeBytes() (uint64, error) {
	if listMinSize == "" {
		return 0, nil
	}

	return bytefmt.ToBytes(listMinSize)
}

func renderList(infos []snapshot.Info, minSize uint64) {
	table := prepareListTable()
	skipped := 0

	for _, inf := range infos {
		if inf.Size < minSize {
			skipped++

			continue
		}

		table.Append([]string{inf.Source, inf.Dataset, inf.Date,
			fmt.Sprintf("%d", inf.Files), humanize.IBytes(inf.Size)})
	}

	table.Render()

	if skipped > 0 {
		warn("(%d snapshots not displayed as smaller than --size)", skipped)
	}
}

// prepareListTable creates a table with a header that outputs to STDOUT.
func prepareListTable() *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Source", "Dataset", "Date", "Files", "Size"})

	return table
}
