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
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/inconshreveable/log15"
)

const lftpExe = "lftp"

// Error is the custom error type for the fetch package.
type Error string

// ErrToolMissing is returned by NewLFTP when the external transfer tool is
// not installed; this is checked once at startup, before any staging.
const ErrToolMissing = Error("transfer tool not found in PATH")

func (e Error) Error() string { return string(e) }

// LFTP is a Mirror that shells out to lftp's mirror command.
type LFTP struct {
	exe    string
	logger log15.Logger
}

// NewLFTP looks up lftp in PATH and returns a Mirror that drives it.
func NewLFTP(logger log15.Logger) (*LFTP, error) {
	exe, err := exec.LookPath(lftpExe)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", lftpExe, ErrToolMissing)
	}

	return &LFTP{exe: exe, logger: logger}, nil
}

// Mirror runs one synchronous lftp mirror of remoteDir into localDir,
// transferring only files matching the include globs and none matching the
// exclude globs, with up to parallel transfer streams.
func (l *LFTP) Mirror(remoteDir, localDir string, include, exclude []string, parallel int) error {
	script := mirrorScript(remoteDir, localDir, include, exclude, parallel)
	l.logger.Debug("running transfer tool", "tool", l.exe, "script", script)

	cmd := exec.Command(l.exe, "-c", script)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mirror of %s failed: %w: %s", remoteDir, err, bytes.TrimSpace(out))
	}

	return nil
}

func mirrorScript(remoteDir, localDir string, include, exclude []string, parallel int) string {
	args := []string{"mirror", "--no-empty-dirs", "--parallel=" + strconv.Itoa(parallel)}

	for _, glob := range include {
		args = append(args, "--include-glob", lftpQuote(glob))
	}

	for _, glob := range exclude {
		args = append(args, "--exclude-glob", lftpQuote(glob))
	}

	args = append(args, ".", lftpQuote(localDir))

	return "set cmd:fail-exit true; open " + lftpQuote(remoteDir) + "; " + strings.Join(args, " ")
}

func lftpQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
