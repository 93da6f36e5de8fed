// Package dispatch runs the external short-creation script for one job request.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"short-creator/internal/domain"
	"short-creator/internal/logging"
)

// Stream identifies one of the process output streams.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

const readChunkSize = 32 * 1024

// Request is one script run with optional observers.
type Request struct {
	Job domain.JobRequest
	// OnOutput receives every chunk, including chunks read after the outcome was decided.
	OnOutput func(stream Stream, text string)
	// OnExit is called once when the process has exited and both streams are drained.
	OnExit func(exitCode int, err error)
}

// Result is a successful script outcome.
type Result struct {
	Text    string   `json:"text"`
	Stdout  string   `json:"stdout"`
	Stderr  string   `json:"stderr"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
	// ExitCode is -1 when the process was still running at resolution.
	ExitCode int `json:"exitCode"`
	// Detached is set when the process outlives the result.
	Detached bool `json:"detached"`
}

// Config selects the script and how its outcome is decided.
type Config struct {
	// Interpreter runs Script; when empty Script is executed directly.
	Interpreter string
	Script      string
	Mode        domain.ResultMode
	// Env is appended to the current environment.
	Env    []string
	Logger *logging.Logger
}

// Dispatcher starts the script with the six job parameters as positional arguments.
type Dispatcher struct {
	interpreter string
	script      string
	mode        domain.ResultMode
	env         []string
	logger      *logging.Logger
}

// New creates a dispatcher. An unknown mode falls back to first-output.
func New(cfg Config) *Dispatcher {
	mode := cfg.Mode
	if !mode.Valid() {
		mode = domain.ResultModeFirstOutput
	}
	return &Dispatcher{
		interpreter: strings.TrimSpace(cfg.Interpreter),
		script:      strings.TrimSpace(cfg.Script),
		mode:        mode,
		env:         cfg.Env,
		logger:      cfg.Logger,
	}
}

// FromSettings creates a dispatcher for the configured interpreter, script and mode.
func FromSettings(settings domain.Settings, logger *logging.Logger) *Dispatcher {
	return New(Config{
		Interpreter: settings.Interpreter,
		Script:      settings.ScriptPath,
		Mode:        settings.ResultMode,
		Logger:      logger,
	})
}

// Mode returns the active result mode.
func (d *Dispatcher) Mode() domain.ResultMode {
	return d.mode
}

// Command returns the executable and arguments for job.
func (d *Dispatcher) Command(job domain.JobRequest) (string, []string) {
	if d.interpreter == "" {
		return d.script, job.Args()
	}
	return d.interpreter, append([]string{d.script}, job.Args()...)
}

type eventKind int

const (
	eventOutput eventKind = iota
	eventExit
)

type event struct {
	kind     eventKind
	stream   Stream
	text     string
	exitCode int
	err      error
}

// Run starts the script and waits for its outcome according to the result mode.
//
// In first-output mode the first stdout chunk resolves and the first stderr
// chunk rejects, whichever is read first; the process is left running and is
// still drained and reaped. In wait-exit mode both streams are accumulated
// and the outcome is decided on exit. In both modes any stderr output is a
// failure and a non-zero exit without output is an *ExitError.
func (d *Dispatcher) Run(ctx context.Context, req Request) (Result, error) {
	name, args := d.Command(req.Job)
	if name == "" {
		return Result{}, &DispatchError{Stage: "start", Err: errors.New("script path is empty")}
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if len(d.env) > 0 {
		cmd.Env = append(os.Environ(), d.env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, &DispatchError{Stage: "stdout", Command: name, Args: args, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, &DispatchError{Stage: "stderr", Command: name, Args: args, Err: err}
	}

	if err := cmd.Start(); err != nil {
		d.logger.Error("start %s: %v", name, err)
		return Result{}, &DispatchError{Stage: "start", Command: name, Args: args, Err: err}
	}
	d.logger.Info("started %s %s (pid %d)", name, strings.Join(args, " "), cmd.Process.Pid)

	// One first-chunk event per stream plus the exit event; sends never block.
	events := make(chan event, 3)
	var stdoutBuf, stderrBuf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go d.pump(stdout, StreamStdout, &stdoutBuf, events, req.OnOutput, &wg)
	go d.pump(stderr, StreamStderr, &stderrBuf, events, req.OnOutput, &wg)
	go func() {
		wg.Wait()
		waitErr := cmd.Wait()
		code := exitCode(waitErr)
		d.logger.Info("%s exited with code %d", name, code)
		events <- event{kind: eventExit, exitCode: code, err: waitErr}
		if req.OnExit != nil {
			req.OnExit(code, waitErr)
		}
	}()

	base := Result{Command: name, Args: args}
	for {
		select {
		case <-ctx.Done():
			// Events already queued beside the cancellation still decide the outcome.
			for {
				select {
				case ev := <-events:
					if d.mode != domain.ResultModeWaitExit {
						return settleFirst(ctx, base, ev)
					}
					if ev.kind == eventExit {
						return settleOnExit(ctx, base, ev, stdoutBuf.String(), stderrBuf.String())
					}
					continue
				default:
				}
				return Result{}, &DispatchError{Stage: "wait", Command: name, Args: args, Err: ctx.Err()}
			}
		case ev := <-events:
			if d.mode == domain.ResultModeWaitExit {
				if ev.kind != eventExit {
					continue
				}
				// The exit event is sent after both pumps finished.
				return settleOnExit(ctx, base, ev, stdoutBuf.String(), stderrBuf.String())
			}
			return settleFirst(ctx, base, ev)
		}
	}
}

// settleFirst decides the outcome from the first observed event.
func settleFirst(ctx context.Context, base Result, ev event) (Result, error) {
	switch {
	case ev.kind == eventOutput && ev.stream == StreamStdout:
		base.Text = ev.text
		base.Stdout = ev.text
		base.ExitCode = -1
		base.Detached = true
		return base, nil
	case ev.kind == eventOutput:
		return Result{}, &StderrError{Text: ev.text, ExitCode: -1}
	case killed(ctx, ev):
		return Result{}, &DispatchError{Stage: "wait", Command: base.Command, Args: base.Args, Err: ctx.Err()}
	case ev.exitCode != 0:
		return Result{}, &ExitError{Code: ev.exitCode}
	case ev.err != nil:
		return Result{}, &DispatchError{Stage: "wait", Command: base.Command, Args: base.Args, Err: ev.err}
	default:
		base.ExitCode = 0
		return base, nil
	}
}

// settleOnExit decides the outcome from the full output and exit status.
func settleOnExit(ctx context.Context, base Result, ev event, stdout, stderr string) (Result, error) {
	if killed(ctx, ev) {
		return Result{}, &DispatchError{Stage: "wait", Command: base.Command, Args: base.Args, Err: ctx.Err()}
	}
	if stderr != "" {
		return Result{}, &StderrError{Text: stderr, ExitCode: ev.exitCode}
	}
	if ev.exitCode != 0 {
		return Result{}, &ExitError{Code: ev.exitCode}
	}
	if ev.err != nil {
		return Result{}, &DispatchError{Stage: "wait", Command: base.Command, Args: base.Args, Err: ev.err}
	}

	base.Text = stdout
	base.Stdout = stdout
	base.ExitCode = 0
	return base, nil
}

// killed reports whether the process ended because ctx was cancelled.
// A process that exited on its own keeps its real status even if ctx was cancelled afterwards.
func killed(ctx context.Context, ev event) bool {
	return ctx.Err() != nil && ev.exitCode < 0
}

// StartFailed reports whether err means the script never started, so no exit will follow.
func StartFailed(err error) bool {
	var dispatchErr *DispatchError
	return errors.As(err, &dispatchErr) && dispatchErr.Stage != "wait"
}

// pump copies one stream into buf, echoes it, and reports its first chunk.
func (d *Dispatcher) pump(r io.Reader, stream Stream, buf *bytes.Buffer, events chan<- event, onOutput func(Stream, string), wg *sync.WaitGroup) {
	defer wg.Done()

	chunk := make([]byte, readChunkSize)
	reported := false
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			text := string(chunk[:n])
			buf.WriteString(text)
			d.echo(stream, text)
			if onOutput != nil {
				onOutput(stream, text)
			}
			if !reported {
				reported = true
				events <- event{kind: eventOutput, stream: stream, text: text}
			}
		}
		if err != nil {
			return
		}
	}
}

func (d *Dispatcher) echo(stream Stream, text string) {
	text = strings.TrimRight(text, "\r\n")
	if stream == StreamStderr {
		d.logger.Warn("stderr: %s", text)
		return
	}
	d.logger.Info("stdout: %s", text)
}

// exitCode extracts the process exit status; -1 when unavailable.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
