package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"short-creator/internal/config"
	"short-creator/internal/diagnostics"
	"short-creator/internal/dialog"
	"short-creator/internal/dispatch"
	"short-creator/internal/domain"
	"short-creator/internal/form"
	"short-creator/internal/jobs"
	"short-creator/internal/logging"
	"short-creator/internal/status"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// App wires the form, dialogs, dispatcher, status line and settings to the UI runtime.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Jobs        *jobs.Manager
	Form        *form.Collector
	Status      *status.Reporter
	Dialogs     pathPicker
	Diagnostics domain.DiagnosticReport
	// NewRunner builds the script runner for the settings of one submission.
	NewRunner func(domain.Settings) scriptRunner

	assets  fs.FS
	checker *diagnostics.Checker
	logger  *logging.Logger

	mu          sync.Mutex
	activeJobID string
	processes   map[string]context.CancelFunc
	events      *jobs.EventBus
	runtimeCtx  context.Context
}

// scriptRunner isolates the external script behind an interface.
type scriptRunner interface {
	Run(ctx context.Context, req dispatch.Request) (dispatch.Result, error)
}

// pathPicker isolates native dialogs behind an interface.
type pathPicker interface {
	SelectFolderFrom(startDir string) ([]string, error)
	SelectVideo() ([]string, error)
	SelectOverlay() ([]string, error)
}

// Submission is the immediate answer to a click on the create button.
type Submission struct {
	Job    domain.Job  `json:"job"`
	Status status.Line `json:"status"`
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	config.LoadDotEnv()

	appDir := config.AppDir()
	logger, err := logging.Setup(filepath.Join(appDir, "logs"), os.Getenv("SHORTS_DEBUG") != "", os.Stderr)
	if err != nil {
		logger = logging.New(os.Stderr, false)
		logger.Warn("file logging disabled: %v", err)
	} else {
		logger.Info("logging to %s", logger.FilePath())
	}

	jsonStore := config.NewJSONStore(filepath.Join(appDir, "settings.json"))
	logger.Info("settings file %s", jsonStore.Path())
	store := config.NewEnvStore(jsonStore)
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)
	for _, item := range report.Failed() {
		logger.Warn("diagnostic %s: %s", item.ID, item.Message)
	}

	app := &App{
		Settings:    settings,
		Store:       store,
		Jobs:        jobs.NewManager(),
		Form:        form.NewCollector(settings.SegmentDuration, settings.WorkerCount),
		Status:      status.NewReporter(),
		Diagnostics: report,
		assets:      assets,
		checker:     checker,
		logger:      logger,
		events:      jobs.NewEventBus(1000),
	}
	app.Dialogs = dialog.NewBridge(dialog.WailsOpener{}, app.runtimeContext)
	app.NewRunner = func(s domain.Settings) scriptRunner {
		return dispatch.FromSettings(s, logger)
	}
	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Short Creator",
		Width:       800,
		Height:      600,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.Shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores Wails runtime context for dialogs and push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// Shutdown stops every script still running and closes the log.
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = nil
	processes := a.processes
	a.processes = nil
	a.mu.Unlock()

	for jobID, cancel := range processes {
		a.logger.Info("stopping script for job %s", jobID)
		cancel()
	}
	_ = a.logger.Close()
}

// GetForm returns the current form values and labels.
func (a *App) GetForm() form.View {
	return a.Form.View()
}

// SetVideoName stores the name typed by the user.
func (a *App) SetVideoName(name string) form.View {
	a.Form.SetVideoName(name)
	return a.Form.View()
}

// SetSegmentDuration stores the duration slider value.
func (a *App) SetSegmentDuration(seconds int) form.View {
	a.Form.SetSegmentDuration(seconds)
	return a.Form.View()
}

// ApplyDurationPreset handles the 30 s / 1 min / 3 min buttons.
func (a *App) ApplyDurationPreset(seconds int) (form.View, error) {
	if err := a.Form.ApplyPreset(seconds); err != nil {
		return a.Form.View(), err
	}
	return a.Form.View(), nil
}

// SetWorkerCount stores the simultaneous-videos slider value.
func (a *App) SetWorkerCount(n int) form.View {
	a.Form.SetWorkerCount(n)
	return a.Form.View()
}

// DurationPresets lists the preset buttons in display order.
func (a *App) DurationPresets() []int {
	return append([]int(nil), form.Presets...)
}

// PickVideoFile opens a native file dialog for the main video.
func (a *App) PickVideoFile() (form.View, error) {
	paths, err := a.Dialogs.SelectVideo()
	if err != nil {
		return a.Form.View(), err
	}
	a.Form.SelectVideo(paths)
	return a.Form.View(), nil
}

// PickOverlayFile opens a native file dialog for the overlay video.
func (a *App) PickOverlayFile() (form.View, error) {
	paths, err := a.Dialogs.SelectOverlay()
	if err != nil {
		return a.Form.View(), err
	}
	a.Form.SelectOverlay(paths)
	return a.Form.View(), nil
}

// PickOutputFolder opens a native directory picker for the shorts folder.
func (a *App) PickOutputFolder() (form.View, error) {
	startDir := a.Form.Snapshot().OutputFolder
	if startDir == "" {
		a.mu.Lock()
		startDir = a.Settings.OutputDir
		a.mu.Unlock()
	}

	paths, err := a.Dialogs.SelectFolderFrom(startDir)
	if err != nil {
		return a.Form.View(), err
	}
	a.Form.SelectOutputFolder(paths)
	return a.Form.View(), nil
}

// StatusText returns the current status line.
func (a *App) StatusText() status.Line {
	return a.Status.Current()
}

// CreateShorts validates the form and, when complete, starts the script asynchronously.
// Validation failures are reported on the status line, not as errors.
func (a *App) CreateShorts() (Submission, error) {
	if a.Jobs.IsRunning() {
		return Submission{Job: a.Jobs.Current(), Status: a.Status.Current()}, jobs.ErrJobAlreadyRunning
	}

	a.Status.Validating()
	req, err := a.Form.Request()
	if err != nil {
		line := a.Status.Invalid(err)
		// An incomplete form returns the app to idle.
		a.Jobs.Reset()
		a.publishEvent(jobs.Event{
			Type:       jobs.EventTypeStatus,
			Status:     line.State,
			Message:    err.Error(),
			StatusText: line.Text,
		})
		return Submission{Job: a.Jobs.Current(), Status: line}, nil
	}

	settings, err := a.Store.Load()
	if err != nil {
		return Submission{}, fmt.Errorf("load settings: %w", err)
	}

	jobID := uuid.New().String()
	if err := a.Jobs.Start(jobID, req); err != nil {
		return Submission{Job: a.Jobs.Current(), Status: a.Status.Current()}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	if settings.TimeoutSeconds > 0 {
		ctx, cancel = withTimeout(ctx, cancel, time.Duration(settings.TimeoutSeconds)*time.Second)
	}

	a.mu.Lock()
	a.Settings = settings
	a.activeJobID = jobID
	if a.processes == nil {
		a.processes = make(map[string]context.CancelFunc)
	}
	a.processes[jobID] = cancel
	a.mu.Unlock()

	line := a.Status.Running()
	a.publishStatus(jobID, line, "Job started")
	a.logger.Info("job %s: %s -> %s (%ds segments, %d workers)", jobID, req.VideoPath, req.OutputFolder, req.SegmentDurationSeconds, req.WorkerCount)

	go a.runShortsJob(ctx, jobID, req, settings)
	return Submission{Job: a.Jobs.Current(), Status: line}, nil
}

// CancelShorts stops the running script, if any.
func (a *App) CancelShorts() error {
	a.mu.Lock()
	activeJobID := a.activeJobID
	cancel := a.processes[activeJobID]
	a.mu.Unlock()

	if activeJobID == "" || cancel == nil {
		return jobs.ErrNoRunningJob
	}
	if err := a.Jobs.Cancel(); err != nil {
		return err
	}

	cancel()
	line := a.Status.Cancelled()
	a.publishStatus(activeJobID, line, "Cancellation requested")
	return nil
}

// CurrentJob returns current job metadata and status.
func (a *App) CurrentJob() domain.Job {
	return a.Jobs.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// JobHistory returns the retained events of one job, e.g. the output of a detached script.
func (a *App) JobHistory(jobID string) []jobs.Event {
	return a.events.ForJob(jobID)
}

// runShortsJob executes the script and maps its outcome to job state, status line and events.
func (a *App) runShortsJob(ctx context.Context, jobID string, req domain.JobRequest, settings domain.Settings) {
	runner := a.NewRunner(settings)
	exited := make(chan struct{})
	result, err := runner.Run(ctx, dispatch.Request{
		Job: req,
		OnOutput: func(stream dispatch.Stream, text string) {
			a.publishEvent(jobs.Event{
				JobID:   jobID,
				Type:    jobs.EventTypeOutput,
				Stream:  string(stream),
				Message: text,
			})
		},
		OnExit: func(exitCode int, _ error) {
			a.publishEvent(jobs.Event{
				JobID:    jobID,
				Type:     jobs.EventTypeExit,
				ExitCode: exitCode,
				Message:  fmt.Sprintf("Process exited with code %d", exitCode),
			})
			close(exited)
		},
	})

	// The process context stays live until the script exits, even after a
	// first-output result, so a detached script is not killed.
	if dispatch.StartFailed(err) {
		a.releaseProcess(jobID)
	} else {
		go func() {
			<-exited
			a.releaseProcess(jobID)
		}()
	}
	a.clearActiveJob(jobID)
	defer func() {
		a.logger.Info("job %s: %s", jobID, a.Status.Text())
	}()

	switch {
	case err == nil:
		if !a.finishJob(jobID, domain.JobStatusSucceeded) {
			return
		}
		line := a.Status.Succeeded(result.Text)
		a.publishEvent(jobs.Event{
			JobID:      jobID,
			Type:       jobs.EventTypeResult,
			Status:     line.State,
			Message:    result.Text,
			Command:    result.Command,
			Args:       result.Args,
			ExitCode:   result.ExitCode,
			StatusText: line.Text,
		})
	case errors.Is(err, context.Canceled):
		if !a.finishJob(jobID, domain.JobStatusCancelled) {
			return
		}
		line := a.Status.Cancelled()
		a.publishStatus(jobID, line, "Job cancelled")
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("délai d'exécution dépassé (%d s)", settings.TimeoutSeconds)
		}
		if !a.finishJob(jobID, domain.JobStatusFailed) {
			return
		}
		line := a.Status.Failed(err)
		a.logger.Error("job %s failed: %v", jobID, err)
		a.publishEvent(jobs.Event{
			JobID:      jobID,
			Type:       jobs.EventTypeError,
			Status:     line.State,
			Message:    err.Error(),
			StatusText: line.Text,
		})
	}
}

// finishJob records the outcome and reports whether it still decides the status line.
// A run cancelled by the user stays cancelled even if the script answered afterwards.
func (a *App) finishJob(jobID string, outcome domain.JobStatus) bool {
	if err := a.Jobs.Finish(jobID, outcome); err != nil {
		a.logger.Warn("job %s: %v", jobID, err)
		return false
	}
	current := a.Jobs.Current()
	return current.ID == jobID && current.Status == outcome
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(jobID string, line status.Line, message string) {
	a.publishEvent(jobs.Event{
		JobID:      jobID,
		Type:       jobs.EventTypeStatus,
		Status:     line.State,
		Message:    message,
		StatusText: line.Text,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "job:event", published)
	}
}

// clearActiveJob forgets the deciding job once its outcome is known.
func (a *App) clearActiveJob(jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeJobID == jobID {
		a.activeJobID = ""
	}
}

// releaseProcess drops and cancels the context of an exited script.
func (a *App) releaseProcess(jobID string) {
	a.mu.Lock()
	cancel, ok := a.processes[jobID]
	delete(a.processes, jobID)
	a.mu.Unlock()
	if ok {
		cancel()
	}
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// withTimeout bounds ctx and returns a cancel that releases both contexts.
func withTimeout(ctx context.Context, cancel context.CancelFunc, d time.Duration) (context.Context, context.CancelFunc) {
	timed, cancelTimed := context.WithTimeout(ctx, d)
	return timed, func() {
		cancelTimed()
		cancel()
	}
}

// OpenOutputFolder opens the given path, the form's folder, or the default folder in the file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		target = a.Form.Snapshot().OutputFolder
	}
	if target == "" {
		a.mu.Lock()
		target = a.Settings.OutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}

// GetSettings returns the persisted settings with environment overrides applied.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// SaveSettings persists settings and refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	if mode := strings.TrimSpace(string(settings.ResultMode)); mode != "" && !domain.ResultMode(mode).Valid() {
		return domain.Settings{}, fmt.Errorf("unsupported result mode %q", mode)
	}
	if settings.TimeoutSeconds < 0 {
		return domain.Settings{}, fmt.Errorf("timeout must not be negative")
	}
	settings = normalizeSettings(settings)
	if err := a.Store.Save(settings); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(settings)
	return settings, nil
}

// GetDiagnostics returns startup diagnostics.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// RefreshDiagnostics reruns checks against the current settings.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	return a.refreshDiagnosticsFromSettings(settings), nil
}

// normalizeSettings trims user input and fills defaults.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.Interpreter = strings.TrimSpace(settings.Interpreter)
	settings.ScriptPath = strings.TrimSpace(settings.ScriptPath)
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	settings.ResultMode = domain.ResultMode(strings.TrimSpace(string(settings.ResultMode)))
	return config.Normalize(settings)
}
