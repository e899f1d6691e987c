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
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/refmirror/source"
)

// sourcesCmd represents the sources command.
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show the known remote providers",
	Long: `Show the known remote providers.

For each provider: its name, remote root URL, the checksum manifest
convention it publishes, and whether unrecognised payload file types are
kept as-is or treated as fatal.

URLs can be overridden with $REFMIRROR_<NAME>_URL or 'fetch --url'.
`,
	Run: func(_ *cobra.Command, _ []string) {
		for _, src := range source.All() {
			url := src.URL
			if url == "" {
				url = "(set $REFMIRROR_CUSTOM_URL or use --url)"
			}

			policy := "unknown file types fatal"
			if src.KeepUnknown {
				policy = "unknown file types kept"
			}

			cliPrint("%s\n  url: %s\n  manifests: %s\n  %s\n", src.Name, url, src.Manifest, policy)
		}
	},
}

func init() {
	RootCmd.AddCommand(sourcesCmd)
}
