package dialog

import (
	"context"
	"errors"
	"testing"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// fakeOpener returns canned dialog results.
type fakeOpener struct {
	dir      string
	file     string
	err      error
	lastOpts wailsruntime.OpenDialogOptions
}

func (f *fakeOpener) OpenDirectoryDialog(ctx context.Context, options wailsruntime.OpenDialogOptions) (string, error) {
	f.lastOpts = options
	return f.dir, f.err
}

func (f *fakeOpener) OpenFileDialog(ctx context.Context, options wailsruntime.OpenDialogOptions) (string, error) {
	f.lastOpts = options
	return f.file, f.err
}

func readyContext() (context.Context, error) {
	return context.Background(), nil
}

// TestSelectFolderReturnsChosenPath checks the happy path.
func TestSelectFolderReturnsChosenPath(t *testing.T) {
	opener := &fakeOpener{dir: " /shorts "}
	got, err := NewBridge(opener, readyContext).SelectFolder()
	if err != nil {
		t.Fatalf("SelectFolder() error = %v", err)
	}
	if len(got) != 1 || got[0] != "/shorts" {
		t.Fatalf("paths = %v, want [/shorts]", got)
	}
	if !opener.lastOpts.CanCreateDirectories {
		t.Fatal("expected folder dialog to allow directory creation")
	}
}

// TestSelectFolderCancelled checks a dismissed dialog is an empty result, not an error.
func TestSelectFolderCancelled(t *testing.T) {
	got, err := NewBridge(&fakeOpener{}, readyContext).SelectFolder()
	if err != nil {
		t.Fatalf("SelectFolder() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("paths = %#v, want empty slice", got)
	}
}

// TestSelectVideoUsesVideoFilter checks the file dialog filter.
func TestSelectVideoUsesVideoFilter(t *testing.T) {
	opener := &fakeOpener{file: "/videos/main.mp4"}
	got, err := NewBridge(opener, readyContext).SelectVideo()
	if err != nil {
		t.Fatalf("SelectVideo() error = %v", err)
	}
	if len(got) != 1 || got[0] != "/videos/main.mp4" {
		t.Fatalf("paths = %v", got)
	}
	if len(opener.lastOpts.Filters) == 0 || opener.lastOpts.Filters[0].Pattern != videoDialogFilter[0].Pattern {
		t.Fatalf("filters = %+v", opener.lastOpts.Filters)
	}
}

// TestBridgeRequiresRuntimeContext checks dialogs before startup fail.
func TestBridgeRequiresRuntimeContext(t *testing.T) {
	notReady := func() (context.Context, error) { return nil, errors.New("runtime context is not initialized") }
	if _, err := NewBridge(&fakeOpener{}, notReady).SelectOverlay(); err == nil {
		t.Fatal("expected error without runtime context")
	}
}

// TestSelectFolderFromPassesStartDirectory checks the picker start location.
func TestSelectFolderFromPassesStartDirectory(t *testing.T) {
	opener := &fakeOpener{dir: "/shorts/new"}
	if _, err := NewBridge(opener, readyContext).SelectFolderFrom(" /shorts "); err != nil {
		t.Fatalf("SelectFolderFrom() error = %v", err)
	}
	if opener.lastOpts.DefaultDirectory != "/shorts" {
		t.Fatalf("default directory = %q, want /shorts", opener.lastOpts.DefaultDirectory)
	}
}
