package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	goruntime "runtime"
	"strings"
	"time"

	"short-creator/internal/config"
	"short-creator/internal/diagnostics"
	"short-creator/internal/domain"
)

const installCommandTimeout = 45 * time.Minute

type installOption struct {
	manager  string
	commands [][]string
}

// toolPackage names one installable dependency per package manager.
type toolPackage struct {
	tools    []string
	winget   string
	choco    string
	scoop    string
	brew     string
	apt      string
	dnf      string
	pacman   string
	zypper   string
	describe string
}

var ffmpegPackage = toolPackage{
	tools:    []string{"ffmpeg", "ffprobe"},
	winget:   "Gyan.FFmpeg",
	choco:    "ffmpeg",
	scoop:    "ffmpeg",
	brew:     "ffmpeg",
	apt:      "ffmpeg",
	dnf:      "ffmpeg",
	pacman:   "ffmpeg",
	zypper:   "ffmpeg",
	describe: "ffmpeg/ffprobe",
}

var pythonPackage = toolPackage{
	winget:   "Python.Python.3.12",
	choco:    "python",
	scoop:    "python",
	brew:     "python",
	apt:      "python3",
	dnf:      "python3",
	pacman:   "python",
	zypper:   "python3",
	describe: "python",
}

// InstallOrFixDiagnostic applies an OS-specific remediation for one failed diagnostic item.
func (a *App) InstallOrFixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	settingsChanged := false
	var fixErr error

	switch id {
	case diagnostics.IDFFmpeg, diagnostics.IDFFprobe:
		fixErr = installPackage(ffmpegPackage, goruntime.GOOS)
	case diagnostics.IDInterpreter:
		if settings.Interpreter == "" {
			fixErr = fmt.Errorf("no interpreter configured")
			break
		}
		if !commandAvailable(settings.Interpreter) {
			if fixErr = installPackage(pythonPackage, goruntime.GOOS); fixErr != nil {
				break
			}
		}
		settings, settingsChanged, fixErr = resolveInterpreter(settings, commandAvailable)
	case diagnostics.IDOutputDir:
		settings, settingsChanged, fixErr = installOrFixOutputDir(settings)
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	if settingsChanged {
		if saveErr := a.Store.Save(settings); saveErr != nil {
			report := a.refreshDiagnosticsFromSettings(settings)
			return report, fmt.Errorf("save settings after fix: %w", saveErr)
		}
	}

	report := a.refreshDiagnosticsFromSettings(settings)
	if fixErr != nil {
		a.logger.Error("fix %s: %v", id, fixErr)
		return report, fixErr
	}
	a.logger.Info("fixed diagnostic %s", id)
	return report, nil
}

func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(settings)
	}
	return a.Diagnostics
}

// installPackage installs pkg with the first available package manager and
// verifies its tools are on PATH afterwards.
func installPackage(pkg toolPackage, goos string) error {
	if len(pkg.tools) > 0 && requireToolsOnPath(pkg.tools...) == nil {
		return nil
	}
	if err := runFirstSuccessfulInstall(installOptionsFor(pkg, goos)); err != nil {
		return fmt.Errorf("install %s: %w", pkg.describe, err)
	}
	if len(pkg.tools) == 0 {
		return nil
	}
	if err := requireToolsOnPath(pkg.tools...); err != nil {
		return fmt.Errorf("verify %s on PATH: %w", pkg.describe, err)
	}
	return nil
}

// installOptionsFor lists package-manager commands for goos in preference order.
func installOptionsFor(pkg toolPackage, goos string) []installOption {
	switch goos {
	case "windows":
		return []installOption{
			{manager: "winget", commands: [][]string{{"winget", "install", "--id", pkg.winget, "--exact", "--accept-source-agreements", "--accept-package-agreements"}}},
			{manager: "choco", commands: [][]string{{"choco", "install", pkg.choco, "-y"}}},
			{manager: "scoop", commands: [][]string{{"scoop", "install", pkg.scoop}}},
		}
	case "darwin":
		return []installOption{
			{manager: "brew", commands: [][]string{{"brew", "install", pkg.brew}}},
		}
	default:
		return []installOption{
			{manager: "apt-get", commands: [][]string{{"apt-get", "update"}, {"apt-get", "install", "-y", pkg.apt}}},
			{manager: "dnf", commands: [][]string{{"dnf", "install", "-y", pkg.dnf}}},
			{manager: "pacman", commands: [][]string{{"pacman", "-Sy", "--noconfirm", pkg.pacman}}},
			{manager: "zypper", commands: [][]string{{"zypper", "install", "-y", pkg.zypper}}},
			{manager: "brew", commands: [][]string{{"brew", "install", pkg.brew}}},
		}
	}
}

func runFirstSuccessfulInstall(options []installOption) error {
	if len(options) == 0 {
		return fmt.Errorf("no install commands configured for OS %s", goruntime.GOOS)
	}

	errorsByManager := make([]string, 0, len(options))
	atLeastOneManager := false

	for _, option := range options {
		if !commandAvailable(option.manager) {
			continue
		}
		atLeastOneManager = true
		err := runInstallCommands(option.commands)
		if err == nil {
			return nil
		}
		errorsByManager = append(errorsByManager, fmt.Sprintf("%s: %v", option.manager, err))
	}

	if !atLeastOneManager {
		return fmt.Errorf("no supported package manager found for %s", goruntime.GOOS)
	}
	return errors.New(strings.Join(errorsByManager, " | "))
}

func runInstallCommands(commands [][]string) error {
	for _, command := range commands {
		if err := runCommandWithPossibleElevation(command); err != nil {
			return err
		}
	}
	return nil
}

func runCommandWithPossibleElevation(command []string) error {
	if len(command) == 0 {
		return fmt.Errorf("empty command")
	}

	candidates := [][]string{command}
	if goruntime.GOOS == "linux" && requiresElevation(command[0]) {
		if commandAvailable("pkexec") {
			candidates = append(candidates, append([]string{"pkexec"}, command...))
		}
		if commandAvailable("sudo") {
			candidates = append(candidates, append([]string{"sudo", "-n"}, command...))
		}
	}

	attemptErrors := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		err := runCommand(candidate[0], candidate[1:]...)
		if err == nil {
			return nil
		}
		attemptErrors = append(attemptErrors, err.Error())
	}

	return errors.New(strings.Join(attemptErrors, " | "))
}

func runCommand(name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), installCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %s", formatCommand(name, args), installCommandTimeout)
	}

	trimmed := strings.TrimSpace(string(output))
	if len(trimmed) > 500 {
		trimmed = trimmed[:500] + "..."
	}
	if trimmed == "" {
		return fmt.Errorf("%s failed: %w", formatCommand(name, args), err)
	}
	return fmt.Errorf("%s failed: %w (%s)", formatCommand(name, args), err, trimmed)
}

func formatCommand(name string, args []string) string {
	parts := append([]string{name}, args...)
	return strings.Join(parts, " ")
}

func requiresElevation(manager string) bool {
	switch manager {
	case "apt-get", "dnf", "pacman", "zypper":
		return true
	default:
		return false
	}
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func requireToolsOnPath(names ...string) error {
	missing := make([]string, 0, len(names))
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tools on PATH: %s", strings.Join(missing, ", "))
	}
	return nil
}

// interpreterFallbacks are tried in order when the configured interpreter is
// missing; distributions ship python as python3 and Windows as py.
var interpreterFallbacks = []string{"python3", "python", "py"}

// resolveInterpreter keeps the configured interpreter when it is on PATH and
// otherwise switches to the first available fallback.
func resolveInterpreter(settings domain.Settings, available func(string) bool) (domain.Settings, bool, error) {
	if available(settings.Interpreter) {
		return settings, false, nil
	}
	for _, name := range interpreterFallbacks {
		if name != settings.Interpreter && available(name) {
			settings.Interpreter = name
			return settings, true, nil
		}
	}
	return settings, false, fmt.Errorf("interpreter %s not found on PATH; set it in settings", settings.Interpreter)
}

func installOrFixOutputDir(settings domain.Settings) (domain.Settings, bool, error) {
	outputDir := strings.TrimSpace(settings.OutputDir)
	changed := false
	if outputDir == "" {
		outputDir = config.DefaultSettings().OutputDir
		settings.OutputDir = outputDir
		changed = true
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return settings, changed, fmt.Errorf("create output directory %s: %w", outputDir, err)
	}

	return settings, changed, nil
}
