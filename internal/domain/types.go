package domain

import "strconv"

// JobStatus tracks one short-creation submission from the form to the script outcome.
type JobStatus string

const (
	JobStatusIdle       JobStatus = "idle"
	JobStatusValidating JobStatus = "validating"
	JobStatusInvalid    JobStatus = "invalid"
	JobStatusRunning    JobStatus = "running"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// ResultMode selects how the dispatcher decides the outcome of a script run.
type ResultMode string

const (
	// ResultModeFirstOutput resolves on the first stdout chunk and rejects on the first stderr chunk.
	ResultModeFirstOutput ResultMode = "first-output"
	// ResultModeWaitExit accumulates both streams and decides once the process exits.
	ResultModeWaitExit ResultMode = "wait-exit"
)

// Valid reports whether m is a known result mode.
func (m ResultMode) Valid() bool {
	return m == ResultModeFirstOutput || m == ResultModeWaitExit
}

// JobRequest is the set of parameters collected for one short-creation submission.
type JobRequest struct {
	VideoName              string `json:"videoName"`
	VideoPath              string `json:"videoPath"`
	OverlayPath            string `json:"overlayPath"`
	OutputFolder           string `json:"outputFolder"`
	SegmentDurationSeconds int    `json:"segmentDurationSeconds"`
	WorkerCount            int    `json:"workerCount"`
}

// Args returns the six positional script arguments in their fixed order.
func (r JobRequest) Args() []string {
	return []string{
		r.VideoName,
		r.VideoPath,
		r.OverlayPath,
		r.OutputFolder,
		strconv.Itoa(r.SegmentDurationSeconds),
		strconv.Itoa(r.WorkerCount),
	}
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	Interpreter     string     `json:"interpreter"`
	ScriptPath      string     `json:"scriptPath"`
	OutputDir       string     `json:"outputDir"`
	SegmentDuration int        `json:"segmentDuration"`
	WorkerCount     int        `json:"workerCount"`
	ResultMode      ResultMode `json:"resultMode"`
	TimeoutSeconds  int        `json:"timeoutSeconds"`
}

// Job stores the current job identity and lifecycle status.
type Job struct {
	ID      string     `json:"id"`
	Status  JobStatus  `json:"status"`
	Request JobRequest `json:"request"`
}
