package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"short-creator/internal/domain"
	"short-creator/internal/status"
)

// terminal prints status lines and a spinner for the CLI.
type terminal struct {
	out    io.Writer
	errOut io.Writer

	mu      sync.Mutex
	spinner *progressbar.ProgressBar
	done    chan struct{}
	stopped chan struct{}

	cyan   *color.Color
	green  *color.Color
	yellow *color.Color
	red    *color.Color
	faint  *color.Color
}

func newTerminal(out, errOut io.Writer) *terminal {
	return &terminal{
		out:    out,
		errOut: errOut,
		cyan:   color.New(color.FgCyan, color.Bold),
		green:  color.New(color.FgGreen, color.Bold),
		yellow: color.New(color.FgYellow, color.Bold),
		red:    color.New(color.FgRed, color.Bold),
		faint:  color.New(color.Faint),
	}
}

// Command echoes the command line about to run and how its result is decided.
func (t *terminal) Command(mode domain.ResultMode, command string, args []string) {
	_, _ = t.faint.Fprintf(t.out, "$ %s %s (%s)\n", command, strings.Join(args, " "), mode)
}

// Status prints a status line colored by its state.
func (t *terminal) Status(line status.Line) {
	switch line.State {
	case domain.JobStatusSucceeded:
		_, _ = t.green.Fprint(t.out, "✓ ")
		fmt.Fprintln(t.out, line.Text)
	case domain.JobStatusInvalid, domain.JobStatusCancelled:
		_, _ = t.yellow.Fprintln(t.errOut, line.Text)
	case domain.JobStatusFailed:
		_, _ = t.red.Fprintln(t.errOut, line.Text)
	default:
		fmt.Fprintln(t.out, line.Text)
	}
}

// Fail prints an error that happened outside the script.
func (t *terminal) Fail(err error) {
	_, _ = t.red.Fprintf(t.errOut, "ERROR %v\n", err)
}

// Diagnostics prints one line per check.
func (t *terminal) Diagnostics(report domain.DiagnosticReport) {
	_, _ = t.cyan.Fprintln(t.out, "Diagnostics")
	for _, item := range report.Items {
		if item.Status == domain.DiagnosticStatusPass {
			fmt.Fprintf(t.out, "  %s %-16s %s\n", t.green.Sprint("✓"), item.Name, item.Message)
			continue
		}
		fmt.Fprintf(t.out, "  %s %-16s %s\n", t.red.Sprint("✗"), item.Name, item.Message)
		if item.Hint != "" {
			fmt.Fprintf(t.out, "    %s\n", t.faint.Sprint(item.Hint))
		}
	}
	if !report.HasFailures {
		fmt.Fprintf(t.out, "  %s\n", t.green.Sprint("All checks passed"))
	}
}

// StartSpinner shows an indeterminate spinner with description until StopSpinner.
func (t *terminal) StartSpinner(description string) {
	t.StopSpinner()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.spinner = progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(t.errOut),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionClearOnFinish(),
	)
	t.done = make(chan struct{})
	t.stopped = make(chan struct{})

	go func(bar *progressbar.ProgressBar, done <-chan struct{}, stopped chan<- struct{}) {
		defer close(stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}(t.spinner, t.done, t.stopped)
}

// StopSpinner clears the spinner if one is running.
func (t *terminal) StopSpinner() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spinner == nil {
		return
	}
	close(t.done)
	<-t.stopped
	_ = t.spinner.Finish()
	t.spinner = nil
}
