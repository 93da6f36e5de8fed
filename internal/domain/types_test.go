package domain

import "testing"

// TestJobRequestArgsOrder verifies the fixed positional order handed to the script.
func TestJobRequestArgsOrder(t *testing.T) {
	req := JobRequest{
		VideoName:              "valo",
		VideoPath:              "/in/main.mp4",
		OverlayPath:            "/in/overlay.mp4",
		OutputFolder:           "/out",
		SegmentDurationSeconds: 180,
		WorkerCount:            4,
	}

	want := []string{"valo", "/in/main.mp4", "/in/overlay.mp4", "/out", "180", "4"}
	got := req.Args()
	if len(got) != len(want) {
		t.Fatalf("args len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestResultModeValid checks accepted mode names.
func TestResultModeValid(t *testing.T) {
	if !ResultModeFirstOutput.Valid() || !ResultModeWaitExit.Valid() {
		t.Fatal("expected built-in modes to be valid")
	}
	if ResultMode("eventually").Valid() {
		t.Fatal("unexpected valid mode")
	}
}
