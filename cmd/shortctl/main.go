// Package main provides a headless CLI that runs the short-creation script
// with the same validation and status texts as the desktop app.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"short-creator/internal/config"
	"short-creator/internal/diagnostics"
	"short-creator/internal/dispatch"
	"short-creator/internal/domain"
	"short-creator/internal/form"
	"short-creator/internal/logging"
	"short-creator/internal/status"
)

const appName = "shortctl"

func main() {
	config.LoadDotEnv()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// runArgs holds the parsed flags of the run command.
type runArgs struct {
	name        string
	video       string
	overlay     string
	output      string
	duration    int
	workers     int
	mode        string
	timeout     int
	interpreter string
	script      string
	verbose     bool
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Create shorts from a video with an overlay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newDiagnoseCmd(), newPresetsCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var ra runArgs
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Validate the parameters and run the short-creation script",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return executeRun(ctx, ra, newTerminal(cmd.OutOrStdout(), cmd.ErrOrStderr()))
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&ra.name, "name", "n", "", "Video name used for the output files")
	flags.StringVarP(&ra.video, "video", "i", "", "Source video file")
	flags.StringVar(&ra.overlay, "overlay", "", "Overlay video file")
	flags.StringVarP(&ra.output, "output", "o", "", "Output folder for the shorts")
	flags.IntVarP(&ra.duration, "duration", "d", config.DefaultSegmentDuration, "Segment duration in seconds")
	flags.IntVarP(&ra.workers, "workers", "w", config.DefaultWorkerCount, "Number of videos created simultaneously")
	flags.StringVar(&ra.mode, "mode", "", "Result mode (first-output or wait-exit)")
	flags.IntVar(&ra.timeout, "timeout", -1, "Timeout in seconds, 0 disables it")
	flags.StringVar(&ra.interpreter, "interpreter", "", "Interpreter running the script")
	flags.StringVar(&ra.script, "script", "", "Path of the short-creation script")
	flags.BoolVarP(&ra.verbose, "verbose", "v", false, "Echo script output to stderr")
	return cmd
}

// executeRun fills the form from flags, dispatches and prints the status line.
func executeRun(ctx context.Context, ra runArgs, term *terminal) error {
	collector := form.NewCollector(ra.duration, ra.workers)
	collector.SetVideoName(ra.name)
	collector.SelectVideo(optional(ra.video))
	collector.SelectOverlay(optional(ra.overlay))
	collector.SelectOutputFolder(optional(ra.output))

	reporter := status.NewReporter()
	reporter.Validating()
	req, err := collector.Request()
	if err != nil {
		term.Status(reporter.Invalid(err))
		return err
	}

	settings, err := resolveSettings(ra)
	if err != nil {
		term.Fail(err)
		return err
	}

	logWriter := io.Discard
	if ra.verbose {
		logWriter = term.errOut
	}
	dispatcher := dispatch.FromSettings(settings, logging.New(logWriter, ra.verbose))

	if settings.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(settings.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	command, args := dispatcher.Command(req)
	term.Command(dispatcher.Mode(), command, args)
	term.StartSpinner(reporter.Running().Text)
	exited := make(chan int, 1)
	result, err := dispatcher.Run(ctx, dispatch.Request{
		Job:    req,
		OnExit: func(code int, _ error) { exited <- code },
	})
	term.StopSpinner()

	switch {
	case err == nil:
		term.Status(reporter.Succeeded(result.Text))
	case errors.Is(err, context.Canceled):
		term.Status(reporter.Cancelled())
	default:
		term.Status(reporter.Failed(err))
	}

	// A first-output result leaves the script running; returning would cancel
	// ctx and kill it, so wait for it unless the user interrupts.
	if !dispatch.StartFailed(err) {
		waitForExit(ctx, exited, term)
	}
	return err
}

// waitForExit blocks until the script exits or ctx is cancelled.
func waitForExit(ctx context.Context, exited <-chan int, term *terminal) {
	select {
	case <-exited:
		return
	default:
	}

	term.StartSpinner("En attente de la fin du script...")
	defer term.StopSpinner()
	select {
	case <-exited:
	case <-ctx.Done():
		// The process is killed with ctx; its exit still follows.
		<-exited
	}
}

// resolveSettings loads stored settings and applies flag overrides.
func resolveSettings(ra runArgs) (domain.Settings, error) {
	store := config.NewEnvStore(config.NewJSONStore(filepath.Join(config.AppDir(), "settings.json")))
	settings, err := store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	if ra.interpreter != "" {
		settings.Interpreter = ra.interpreter
	}
	if ra.script != "" {
		settings.ScriptPath = ra.script
	}
	if ra.mode != "" {
		mode := domain.ResultMode(ra.mode)
		if !mode.Valid() {
			return domain.Settings{}, fmt.Errorf("unsupported result mode %q", ra.mode)
		}
		settings.ResultMode = mode
	}
	if ra.timeout >= 0 {
		settings.TimeoutSeconds = ra.timeout
	}
	return settings, nil
}

func newDiagnoseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Check the interpreter, the script, ffmpeg and the output folder",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := resolveSettings(runArgs{timeout: -1})
			if err != nil {
				return err
			}
			report := diagnostics.NewChecker().Run(settings)
			newTerminal(cmd.OutOrStdout(), cmd.ErrOrStderr()).Diagnostics(report)
			if report.HasFailures {
				return fmt.Errorf("%d diagnostic(s) failed", len(report.Failed()))
			}
			return nil
		},
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the segment duration presets",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			for _, seconds := range form.Presets {
				fmt.Fprintf(out, "%4d  %s\n", seconds, form.FormatDuration(seconds))
			}
		},
	}
}

// optional turns an empty flag into an empty picker result.
func optional(path string) []string {
	if path == "" {
		return nil
	}
	return []string{path}
}
