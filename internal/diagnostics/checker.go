package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"short-creator/internal/domain"
)

// Diagnostic item IDs understood by the remediation flow.
const (
	IDInterpreter = "tool_interpreter"
	IDScript      = "script_path"
	IDFFmpeg      = "tool_ffmpeg"
	IDFFprobe     = "tool_ffprobe"
	IDOutputDir   = "output_dir"
)

// Checker validates the script, its interpreter, the tools the script calls,
// and the default output directory.
type Checker struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := make([]domain.DiagnosticItem, 0, 5)
	if strings.TrimSpace(settings.Interpreter) != "" {
		items = append(items, c.checkInterpreter(settings.Interpreter))
	}
	items = append(items,
		c.checkScript(settings.Interpreter, settings.ScriptPath),
		c.checkTool(IDFFmpeg, "ffmpeg"),
		c.checkTool(IDFFprobe, "ffprobe"),
		c.checkOutputDir(settings.OutputDir),
	)

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkInterpreter verifies the script interpreter is on PATH.
func (c *Checker) checkInterpreter(name string) domain.DiagnosticItem {
	item := c.checkTool(IDInterpreter, strings.TrimSpace(name))
	if item.Status == domain.DiagnosticStatusFail {
		item.Hint = "Install Python 3 or set the interpreter in settings (SHORTS_INTERPRETER)."
	}
	return item
}

// checkTool verifies a required CLI executable is on PATH.
func (c *Checker) checkTool(id, name string) domain.DiagnosticItem {
	path, err := c.lookPath(name)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      id,
			Name:    name,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found in PATH: %s", name),
			Hint:    "Install it and ensure the binary is available on PATH before creating shorts.",
			Fixable: true,
		}
	}

	return domain.DiagnosticItem{
		ID:      id,
		Name:    name,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkScript validates the configured short-creation script.
func (c *Checker) checkScript(interpreter, scriptPath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   IDScript,
		Name: "Script",
	}

	script := strings.TrimSpace(scriptPath)
	if script == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Script path is empty."
		item.Hint = "Set the short-creation script in settings (SHORTS_SCRIPT)."
		return item
	}

	if strings.TrimSpace(interpreter) == "" {
		path, err := c.lookPath(script)
		if err != nil {
			item.Status = domain.DiagnosticStatusFail
			item.Message = fmt.Sprintf("Script is not executable: %s", script)
			item.Hint = "Make the script executable or configure an interpreter."
			return item
		}
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Executable script: %s", path)
		return item
	}

	info, err := c.stat(script)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		if errors.Is(err, os.ErrNotExist) {
			item.Message = fmt.Sprintf("Script does not exist: %s", script)
		} else {
			item.Message = fmt.Sprintf("Cannot access script: %s", script)
		}
		item.Hint = "Place the script next to the app or point the settings at it."
		return item
	}
	if info.IsDir() {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Script path is a directory: %s", script)
		item.Hint = "Point the settings at the script file itself."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Script found: %s", script)
	return item
}

// checkOutputDir validates output directory existence and write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   IDOutputDir,
		Name: "Output directory",
	}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Output directory is empty."
		item.Hint = "Set a default folder where shorts can be written."
		item.Fixable = true
		return item
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		item.Fixable = true
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for the shorts."
		item.Fixable = true
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		stat:       stat,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
