package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"short-creator/internal/domain"
	"short-creator/internal/jobs"
)

// TestInstallOrFixOutputDirCreatesDirectory ensures output dir fix creates missing directories.
func TestInstallOrFixOutputDirCreatesDirectory(t *testing.T) {
	root := t.TempDir()
	outputDir := filepath.Join(root, "nested", "shorts")

	settings := domain.Settings{
		Interpreter: "python",
		ScriptPath:  "create.py",
		OutputDir:   outputDir,
	}
	fixed, changed, err := installOrFixOutputDir(settings)
	if err != nil {
		t.Fatalf("fix output dir: %v", err)
	}
	if changed {
		t.Fatal("expected settings to remain unchanged")
	}
	if fixed.OutputDir != outputDir {
		t.Fatalf("OutputDir = %s, want %s", fixed.OutputDir, outputDir)
	}
	if _, err := os.Stat(outputDir); err != nil {
		t.Fatalf("stat output dir: %v", err)
	}
}

// TestInstallOptionsForLinuxUsesPackageNames checks per-manager package names.
func TestInstallOptionsForLinuxUsesPackageNames(t *testing.T) {
	options := installOptionsFor(pythonPackage, "linux")
	if len(options) == 0 || options[0].manager != "apt-get" {
		t.Fatalf("options = %+v", options)
	}
	last := options[0].commands[len(options[0].commands)-1]
	if strings.Join(last, " ") != "apt-get install -y python3" {
		t.Fatalf("apt command = %v", last)
	}
}

// TestInstallOptionsForWindowsPrefersWinget checks Windows ordering.
func TestInstallOptionsForWindowsPrefersWinget(t *testing.T) {
	options := installOptionsFor(ffmpegPackage, "windows")
	if options[0].manager != "winget" {
		t.Fatalf("first manager = %s, want winget", options[0].manager)
	}
	if !strings.Contains(strings.Join(options[0].commands[0], " "), "Gyan.FFmpeg") {
		t.Fatalf("winget command = %v", options[0].commands[0])
	}
}

// TestInstallOrFixDiagnosticRejectsUnknownID checks unsupported items.
func TestInstallOrFixDiagnosticRejectsUnknownID(t *testing.T) {
	app := &App{
		Store:  &fakeStore{settings: domain.Settings{ScriptPath: "create.py"}},
		Jobs:   jobs.NewManager(),
		events: jobs.NewEventBus(10),
	}
	if _, err := app.InstallOrFixDiagnostic("script_path"); err == nil {
		t.Fatal("expected unsupported id error")
	}
	if _, err := app.InstallOrFixDiagnostic("  "); err == nil {
		t.Fatal("expected empty id error")
	}
}

// TestInstallOrFixDiagnosticCreatesOutputDir checks the output dir fix end to end.
func TestInstallOrFixDiagnosticCreatesOutputDir(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "shorts")
	app := &App{
		Store: &fakeStore{settings: domain.Settings{
			Interpreter: "python",
			ScriptPath:  "create.py",
			OutputDir:   outputDir,
		}},
		Jobs:   jobs.NewManager(),
		events: jobs.NewEventBus(10),
	}

	if _, err := app.InstallOrFixDiagnostic("output_dir"); err != nil {
		t.Fatalf("fix: %v", err)
	}
	if info, err := os.Stat(outputDir); err != nil || !info.IsDir() {
		t.Fatalf("output dir missing: %v", err)
	}
}

// TestResolveInterpreterFallsBackToPython3 checks distributions that only ship python3.
func TestResolveInterpreterFallsBackToPython3(t *testing.T) {
	available := func(name string) bool { return name == "python3" }

	fixed, changed, err := resolveInterpreter(domain.Settings{Interpreter: "python"}, available)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !changed || fixed.Interpreter != "python3" {
		t.Fatalf("interpreter = %q changed = %v, want python3", fixed.Interpreter, changed)
	}
}

// TestResolveInterpreterKeepsConfiguredName checks an available interpreter is left alone.
func TestResolveInterpreterKeepsConfiguredName(t *testing.T) {
	available := func(name string) bool { return name == "python" || name == "python3" }

	fixed, changed, err := resolveInterpreter(domain.Settings{Interpreter: "python"}, available)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if changed || fixed.Interpreter != "python" {
		t.Fatalf("interpreter = %q changed = %v, want python unchanged", fixed.Interpreter, changed)
	}
}

// TestResolveInterpreterReportsMissing checks the error when nothing is on PATH.
func TestResolveInterpreterReportsMissing(t *testing.T) {
	_, changed, err := resolveInterpreter(domain.Settings{Interpreter: "python"}, func(string) bool { return false })
	if err == nil || changed {
		t.Fatalf("err = %v changed = %v, want error without change", err, changed)
	}
	if !strings.Contains(err.Error(), "python") {
		t.Fatalf("error = %v", err)
	}
}
