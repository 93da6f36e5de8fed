// Package status renders the single status line shown under the submit button.
package status

import (
	"sync"

	"short-creator/internal/domain"
)

const (
	// RunningText is shown while the script runs.
	RunningText = "Exécution du script Python..."
	// FailurePrefix precedes every script failure text.
	FailurePrefix = "Erreur lors de l'exécution : "
	// CancelledText is shown after the user cancels a run.
	CancelledText = "Exécution annulée."
)

// Line is a snapshot of the status label.
type Line struct {
	State domain.JobStatus `json:"state"`
	Text  string           `json:"text"`
}

// Reporter holds the status label. Every call overwrites the previous text.
type Reporter struct {
	mu   sync.RWMutex
	line Line
}

// NewReporter creates an idle reporter with an empty label.
func NewReporter() *Reporter {
	return &Reporter{line: Line{State: domain.JobStatusIdle}}
}

// Validating marks the start of a submission.
func (r *Reporter) Validating() Line {
	return r.set(domain.JobStatusValidating, "")
}

// Invalid shows a validation error.
func (r *Reporter) Invalid(err error) Line {
	return r.set(domain.JobStatusInvalid, errText(err))
}

// Running shows the fixed running text.
func (r *Reporter) Running() Line {
	return r.set(domain.JobStatusRunning, RunningText)
}

// Succeeded shows the script's result text verbatim.
func (r *Reporter) Succeeded(text string) Line {
	return r.set(domain.JobStatusSucceeded, text)
}

// Failed shows a dispatch failure with the fixed prefix.
func (r *Reporter) Failed(err error) Line {
	return r.set(domain.JobStatusFailed, FailurePrefix+errText(err))
}

// Cancelled shows the cancellation text.
func (r *Reporter) Cancelled() Line {
	return r.set(domain.JobStatusCancelled, CancelledText)
}

// Current returns the label snapshot.
func (r *Reporter) Current() Line {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.line
}

// Text returns the label text.
func (r *Reporter) Text() string {
	return r.Current().Text
}

func (r *Reporter) set(state domain.JobStatus, text string) Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.line = Line{State: state, Text: text}
	return r.line
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
