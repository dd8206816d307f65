/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package cmd

import (
	"bennypowers.dev/cem/genie"
	"bennypowers.dev/cem/internal/logging"
	"github.com/pterm/pterm"
)

// ptermBus renders genie.Bus events through pterm, the teacher's CLI
// feedback library, in place of the spinner cmd/generate.go drove over
// G.ColorizeDuration-wrapped progress text.
type ptermBus struct {
	spinner *pterm.SpinnerPrinter
	total   int
	done    int
}

func newPtermBus() *ptermBus {
	return &ptermBus{}
}

func (b *ptermBus) FilesDiscovered(sources []string) {
	logging.Debug("discovered %d source(s)", len(sources))
	if len(sources) == 0 {
		return
	}
	spinner, _ := pterm.DefaultSpinner.Start("Processing 0/%d", len(sources))
	b.spinner = spinner
	b.spinner.UpdateText(pterm.Sprintf("Processing 0/%d", len(sources)))
	b.total = len(sources)
}

func (b *ptermBus) FileStarted(path string) {
	logging.Debug("started %s", path)
}

func (b *ptermBus) FileCompleted(path string, status genie.Status, message string) {
	b.done++
	if b.spinner != nil {
		b.spinner.UpdateText(pterm.Sprintf("Processing %d/%d", b.done, b.total))
	}
	switch status {
	case genie.StatusError:
		logging.Warning("%s: %s", path, message)
	default:
		logging.Debug("%s: %s %s", path, status, message)
	}
}

func (b *ptermBus) Complete(summary genie.RunSummary) {
	if b.spinner != nil {
		if summary.Failed > 0 {
			b.spinner.Fail(pterm.Sprintf("%d failed", summary.Failed))
		} else {
			b.spinner.Success("Done")
		}
	}
	logging.Debug(
		"created=%d updated=%d unchanged=%d skipped=%d failed=%d",
		summary.Created, summary.Updated, summary.Unchanged, summary.Skipped, summary.Failed,
	)
}

func (b *ptermBus) Error(message string) {
	logging.Error("%s", message)
}

var _ genie.Bus = (*ptermBus)(nil)
