// Package progress reports the progress of long-running CLI batches.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter receives one Increment per completed item.
type Reporter interface {
	Start(total int)
	Increment(item string)
	Finish()
}

// NewReporter returns a LineReporter under CI, where a redrawn bar would
// spam the log, and a TerminalReporter otherwise. Output goes to w.
func NewReporter(task string, w io.Writer) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &LineReporter{task: task, w: w}
	}
	return &TerminalReporter{task: task, w: w}
}

// TerminalReporter draws a progress bar.
type TerminalReporter struct {
	task string
	w    io.Writer
	bar  *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionSetDescription(r.task),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Increment(string) {
	if r.bar != nil {
		_ = r.bar.Add(1)
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// LineReporter prints one line per item.
type LineReporter struct {
	task    string
	w       io.Writer
	total   int
	current int
}

func (r *LineReporter) Start(total int) {
	r.total = total
	r.current = 0
	fmt.Fprintf(r.w, "%s: %d items\n", r.task, total)
}

func (r *LineReporter) Increment(item string) {
	r.current++
	fmt.Fprintf(r.w, "[%d/%d] %s\n", r.current, r.total, item)
}

func (r *LineReporter) Finish() {
	fmt.Fprintf(r.w, "%s: done\n", r.task)
}
