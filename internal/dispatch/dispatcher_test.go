package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"short-creator/internal/domain"
)

// TestHelperProcess is the fake short-creation script. It only runs when
// re-executed by helperDispatcher.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("HELPER_MODE") {
	case "ok":
		fmt.Fprint(os.Stdout, "ok")
		os.Exit(0)
	case "boom":
		fmt.Fprint(os.Stderr, "boom")
		os.Exit(1)
	case "boom-exit0":
		fmt.Fprint(os.Stderr, "boom")
		os.Exit(0)
	case "exit2":
		os.Exit(2)
	case "silent":
		os.Exit(0)
	case "args":
		fmt.Fprint(os.Stdout, strings.Join(os.Args[2:], "|"))
		os.Exit(0)
	case "chunks":
		fmt.Fprint(os.Stdout, "first")
		time.Sleep(100 * time.Millisecond)
		fmt.Fprint(os.Stdout, "second")
		os.Exit(0)
	case "sleep":
		time.Sleep(10 * time.Second)
		os.Exit(0)
	}
	os.Exit(3)
}

func helperDispatcher(mode domain.ResultMode, helperMode string) *Dispatcher {
	return New(Config{
		Interpreter: os.Args[0],
		Script:      "-test.run=TestHelperProcess",
		Mode:        mode,
		Env:         []string{"GO_WANT_HELPER_PROCESS=1", "HELPER_MODE=" + helperMode},
	})
}

func sampleJob() domain.JobRequest {
	return domain.JobRequest{
		VideoName:              "valo",
		VideoPath:              "/videos/main.mp4",
		OverlayPath:            "/videos/overlay.mp4",
		OutputFolder:           "/shorts",
		SegmentDurationSeconds: 180,
		WorkerCount:            4,
	}
}

// TestRunFirstOutputSuccess checks the first stdout chunk is the result text.
func TestRunFirstOutputSuccess(t *testing.T) {
	d := helperDispatcher(domain.ResultModeFirstOutput, "ok")
	result, err := d.Run(context.Background(), Request{Job: sampleJob()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Text != "ok" {
		t.Fatalf("text = %q, want ok", result.Text)
	}
}

// TestRunWaitExitSuccess checks the same script in wait-exit mode.
func TestRunWaitExitSuccess(t *testing.T) {
	d := helperDispatcher(domain.ResultModeWaitExit, "ok")
	result, err := d.Run(context.Background(), Request{Job: sampleJob()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Text != "ok" {
		t.Fatalf("text = %q, want ok", result.Text)
	}
	if result.ExitCode != 0 || result.Detached {
		t.Fatalf("unexpected exit state: %+v", result)
	}
}

// TestRunStderrFails checks stderr output fails regardless of exit code and mode.
func TestRunStderrFails(t *testing.T) {
	for _, mode := range []domain.ResultMode{domain.ResultModeFirstOutput, domain.ResultModeWaitExit} {
		for _, helper := range []string{"boom", "boom-exit0"} {
			t.Run(string(mode)+"/"+helper, func(t *testing.T) {
				_, err := helperDispatcher(mode, helper).Run(context.Background(), Request{Job: sampleJob()})
				var sErr *StderrError
				if !errors.As(err, &sErr) {
					t.Fatalf("error = %v (%T), want *StderrError", err, err)
				}
				if !strings.Contains(sErr.Error(), "boom") {
					t.Fatalf("error text = %q, want boom", sErr.Error())
				}
			})
		}
	}
}

// TestRunExitCodeFails checks a silent non-zero exit reports the code.
func TestRunExitCodeFails(t *testing.T) {
	for _, mode := range []domain.ResultMode{domain.ResultModeFirstOutput, domain.ResultModeWaitExit} {
		_, err := helperDispatcher(mode, "exit2").Run(context.Background(), Request{Job: sampleJob()})
		var eErr *ExitError
		if !errors.As(err, &eErr) {
			t.Fatalf("%s: error = %v (%T), want *ExitError", mode, err, err)
		}
		if eErr.Code != 2 || !strings.Contains(eErr.Error(), "2") {
			t.Fatalf("%s: exit error = %+v (%q)", mode, eErr, eErr.Error())
		}
	}
}

// TestRunSilentSuccess checks exit 0 without output resolves with empty text.
func TestRunSilentSuccess(t *testing.T) {
	result, err := helperDispatcher(domain.ResultModeFirstOutput, "silent").Run(context.Background(), Request{Job: sampleJob()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Text != "" || result.ExitCode != 0 {
		t.Fatalf("result = %+v", result)
	}
}

// TestRunPassesArgumentsInOrder checks the six positional parameters.
func TestRunPassesArgumentsInOrder(t *testing.T) {
	result, err := helperDispatcher(domain.ResultModeWaitExit, "args").Run(context.Background(), Request{Job: sampleJob()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := "valo|/videos/main.mp4|/videos/overlay.mp4|/shorts|180|4"
	if result.Text != want {
		t.Fatalf("args = %q, want %q", result.Text, want)
	}
}

// TestRunFirstOutputDetachesAndKeepsDraining checks later chunks still reach observers.
func TestRunFirstOutputDetachesAndKeepsDraining(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	exited := make(chan int, 1)

	result, err := helperDispatcher(domain.ResultModeFirstOutput, "chunks").Run(context.Background(), Request{
		Job: sampleJob(),
		OnOutput: func(stream Stream, text string) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, text)
		},
		OnExit: func(code int, err error) {
			exited <- code
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Text != "first" || !result.Detached {
		t.Fatalf("result = %+v, want detached first chunk", result)
	}

	select {
	case code := <-exited:
		if code != 0 {
			t.Fatalf("exit code = %d, want 0", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("process exit was not reported")
	}

	mu.Lock()
	defer mu.Unlock()
	if got := strings.Join(seen, ""); got != "firstsecond" {
		t.Fatalf("observed output = %q, want firstsecond", got)
	}
}

// TestRunWaitExitAccumulates checks every chunk is part of the result.
func TestRunWaitExitAccumulates(t *testing.T) {
	result, err := helperDispatcher(domain.ResultModeWaitExit, "chunks").Run(context.Background(), Request{Job: sampleJob()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Text != "firstsecond" {
		t.Fatalf("text = %q, want firstsecond", result.Text)
	}
}

// TestRunCancel checks context cancellation stops a running script.
func TestRunCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := helperDispatcher(domain.ResultModeWaitExit, "sleep").Run(ctx, Request{Job: sampleJob()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("cancellation took too long")
	}
}

// TestRunStartFailure checks a missing interpreter is reported as a start error.
func TestRunStartFailure(t *testing.T) {
	d := New(Config{Interpreter: "/definitely/not/here/python", Script: "create.py"})
	_, err := d.Run(context.Background(), Request{Job: sampleJob()})

	var dErr *DispatchError
	if !errors.As(err, &dErr) {
		t.Fatalf("error = %v (%T), want *DispatchError", err, err)
	}
	if dErr.Stage != "start" {
		t.Fatalf("stage = %q, want start", dErr.Stage)
	}
}

// TestCommandWithoutInterpreter checks the script is executed directly.
func TestCommandWithoutInterpreter(t *testing.T) {
	name, args := New(Config{Script: "/opt/create.sh"}).Command(sampleJob())
	if name != "/opt/create.sh" {
		t.Fatalf("name = %q", name)
	}
	if len(args) != 6 || args[0] != "valo" || args[5] != "4" {
		t.Fatalf("args = %v", args)
	}

	name, args = New(Config{Interpreter: "python", Script: "electron_short_creation.py"}).Command(sampleJob())
	if name != "python" || args[0] != "electron_short_creation.py" || len(args) != 7 {
		t.Fatalf("command = %s %v", name, args)
	}
}

// TestNewDefaultsMode checks an unknown mode falls back to first-output.
func TestNewDefaultsMode(t *testing.T) {
	if got := New(Config{Script: "x", Mode: "whenever"}).Mode(); got != domain.ResultModeFirstOutput {
		t.Fatalf("mode = %q, want first-output", got)
	}
}

// TestRunExitStatusSurvivesCancelFromOnExit checks a context released by the
// exit callback cannot turn a real exit into a cancellation.
func TestRunExitStatusSurvivesCancelFromOnExit(t *testing.T) {
	cases := []struct {
		mode     domain.ResultMode
		helper   string
		wantText string
		wantCode int
	}{
		{domain.ResultModeFirstOutput, "exit2", "", 2},
		{domain.ResultModeWaitExit, "exit2", "", 2},
		{domain.ResultModeWaitExit, "ok", "ok", 0},
		{domain.ResultModeFirstOutput, "silent", "", 0},
	}

	for _, tc := range cases {
		for i := 0; i < 5; i++ {
			ctx, cancel := context.WithCancel(context.Background())
			d := helperDispatcher(tc.mode, tc.helper)
			result, err := d.Run(ctx, Request{
				Job:    sampleJob(),
				OnExit: func(int, error) { cancel() },
			})
			cancel()

			if tc.wantCode != 0 {
				var exitErr *ExitError
				if !errors.As(err, &exitErr) || exitErr.Code != tc.wantCode {
					t.Fatalf("%s/%s: error = %v, want exit code %d", tc.mode, tc.helper, err, tc.wantCode)
				}
				continue
			}
			if err != nil {
				t.Fatalf("%s/%s: Run() error = %v", tc.mode, tc.helper, err)
			}
			if result.Text != tc.wantText {
				t.Fatalf("%s/%s: text = %q, want %q", tc.mode, tc.helper, result.Text, tc.wantText)
			}
		}
	}
}

// TestRunExitEventPrecedesOnExit checks Run has its outcome before OnExit returns.
func TestRunExitEventPrecedesOnExit(t *testing.T) {
	release := make(chan struct{})
	done := make(chan struct{})
	d := helperDispatcher(domain.ResultModeWaitExit, "exit2")

	go func() {
		defer close(done)
		_, err := d.Run(context.Background(), Request{
			Job:    sampleJob(),
			OnExit: func(int, error) { <-release },
		})
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			t.Errorf("error = %v, want *ExitError", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run blocked on the exit callback")
	}
	close(release)
}

// TestStartFailed checks which errors mean no process was started.
func TestStartFailed(t *testing.T) {
	if !StartFailed(&DispatchError{Stage: "start"}) {
		t.Fatal("start stage should report a start failure")
	}
	if StartFailed(&DispatchError{Stage: "wait", Err: context.Canceled}) {
		t.Fatal("wait stage is not a start failure")
	}
	if StartFailed(&ExitError{Code: 2}) || StartFailed(nil) {
		t.Fatal("script failures are not start failures")
	}
}
