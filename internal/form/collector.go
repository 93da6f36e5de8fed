// Package form holds the short-creation parameters while the user edits them.
package form

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"short-creator/internal/domain"
)

// Field names a required form field.
type Field string

const (
	FieldVideoName    Field = "videoName"
	FieldVideoPath    Field = "videoPath"
	FieldOverlayPath  Field = "overlayPath"
	FieldOutputFolder Field = "outputFolder"
)

// ErrUnknownPreset is returned when a duration preset is not one of Presets.
var ErrUnknownPreset = errors.New("unknown duration preset")

// Presets are the segment durations offered as one-click buttons, in seconds.
var Presets = []int{30, 60, 180}

// ValidationError reports the first missing required field.
type ValidationError struct {
	Field   Field  `json:"field"`
	Message string `json:"message"`
}

// Error returns the user-facing message.
func (e *ValidationError) Error() string {
	return e.Message
}

// requiredFields is checked in order; the first empty value wins.
var requiredFields = []struct {
	field   Field
	message string
	value   func(domain.JobRequest) string
}{
	{FieldVideoName, "Veuillez saisir le nom de la vidéo.", func(r domain.JobRequest) string { return r.VideoName }},
	{FieldVideoPath, "Aucune vidéo sélectionnée.", func(r domain.JobRequest) string { return r.VideoPath }},
	{FieldOverlayPath, "Aucune vidéo d'overlay sélectionnée.", func(r domain.JobRequest) string { return r.OverlayPath }},
	{FieldOutputFolder, "Aucun dossier de sortie sélectionné.", func(r domain.JobRequest) string { return r.OutputFolder }},
}

// Validate returns the first missing-field error of req, or nil.
func Validate(req domain.JobRequest) error {
	for _, f := range requiredFields {
		if strings.TrimSpace(f.value(req)) == "" {
			return &ValidationError{Field: f.field, Message: f.message}
		}
	}
	return nil
}

// View is the display state rendered next to each control.
type View struct {
	Request       domain.JobRequest `json:"request"`
	VideoLabel    string            `json:"videoLabel"`
	OverlayLabel  string            `json:"overlayLabel"`
	FolderLabel   string            `json:"folderLabel"`
	DurationLabel string            `json:"durationLabel"`
	WorkersLabel  string            `json:"workersLabel"`
}

// Collector is the mutable form state for one submission at a time.
type Collector struct {
	mu  sync.Mutex
	req domain.JobRequest

	videoLabel   string
	overlayLabel string
	folderLabel  string
}

// NewCollector creates an empty form with initial slider positions.
func NewCollector(segmentDuration, workerCount int) *Collector {
	return &Collector{
		req: domain.JobRequest{
			SegmentDurationSeconds: segmentDuration,
			WorkerCount:            workerCount,
		},
		videoLabel:   noFileLabel,
		overlayLabel: noFileLabel,
		folderLabel:  noFolderLabel,
	}
}

// SetVideoName stores the free-text name used for output files.
func (c *Collector) SetVideoName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.req.VideoName = name
}

// SelectVideo applies a file picker result for the main video.
// An empty selection keeps the previous path and shows the empty label.
func (c *Collector) SelectVideo(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if path, ok := first(paths); ok {
		c.req.VideoPath = path
		c.videoLabel = fmt.Sprintf("Fichier vidéo sélectionné: %s", filepath.Base(path))
		return
	}
	c.videoLabel = noFileLabel
}

// SelectOverlay applies a file picker result for the overlay video.
func (c *Collector) SelectOverlay(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if path, ok := first(paths); ok {
		c.req.OverlayPath = path
		c.overlayLabel = fmt.Sprintf("Vidéo d'overlay: %s", filepath.Base(path))
		return
	}
	c.overlayLabel = noFileLabel
}

// SelectOutputFolder applies a directory picker result.
func (c *Collector) SelectOutputFolder(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if path, ok := first(paths); ok {
		c.req.OutputFolder = path
		c.folderLabel = fmt.Sprintf("Dossier sélectionné: %s", path)
		return
	}
	c.folderLabel = noFolderLabel
}

// SetSegmentDuration stores a slider value as-is.
func (c *Collector) SetSegmentDuration(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.req.SegmentDurationSeconds = seconds
}

// ApplyPreset sets the duration to one of Presets.
func (c *Collector) ApplyPreset(seconds int) error {
	if !IsPreset(seconds) {
		return fmt.Errorf("%w: %d", ErrUnknownPreset, seconds)
	}
	c.SetSegmentDuration(seconds)
	return nil
}

// SetWorkerCount stores the pass-through worker count as-is.
func (c *Collector) SetWorkerCount(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.req.WorkerCount = n
}

// Snapshot returns a copy of the current values without validation.
func (c *Collector) Snapshot() domain.JobRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.req
}

// Validate checks the current values.
func (c *Collector) Validate() error {
	return Validate(c.Snapshot())
}

// Request validates the form and returns the frozen request for dispatch.
func (c *Collector) Request() (domain.JobRequest, error) {
	req := c.Snapshot()
	if err := Validate(req); err != nil {
		return domain.JobRequest{}, err
	}
	return req, nil
}

// View returns the current values with their display labels.
func (c *Collector) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Request:       c.req,
		VideoLabel:    c.videoLabel,
		OverlayLabel:  c.overlayLabel,
		FolderLabel:   c.folderLabel,
		DurationLabel: FormatDuration(c.req.SegmentDurationSeconds),
		WorkersLabel:  FormatWorkers(c.req.WorkerCount),
	}
}

// IsPreset reports whether seconds is one of Presets.
func IsPreset(seconds int) bool {
	for _, p := range Presets {
		if p == seconds {
			return true
		}
	}
	return false
}

func first(paths []string) (string, bool) {
	if len(paths) == 0 || strings.TrimSpace(paths[0]) == "" {
		return "", false
	}
	return strings.TrimSpace(paths[0]), true
}
