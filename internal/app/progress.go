package app

import (
	"fmt"
	"os"

	"github.com/vk/medusa/internal/schedule"
)

// progressPrinter renders per-stage counters. On a terminal the line is
// redrawn in place; otherwise each change prints its own line so logs stay
// readable. Verbose logging disables in-place redrawing because the log
// lines would tear it apart.
func (a *App) progressPrinter() func(schedule.Progress) {
	interactive := !a.verbose && isTerminal(a.outW)

	return func(p schedule.Progress) {
		total := p.Pending + p.Running + p.Finished
		if total == 0 {
			return
		}
		percent := p.Finished * 100 / total
		contents := fmt.Sprintf("(%3d%%) Suites pending: %-4d running: %-4d finished: %-4d",
			percent, p.Pending, p.Running, p.Finished)

		if interactive {
			end := ""
			if p.Finished == total {
				end = "\n"
			}
			fmt.Fprintf(a.outW, "\r%s%s", contents, end)
		} else {
			fmt.Fprintln(a.outW, contents)
		}
	}
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
