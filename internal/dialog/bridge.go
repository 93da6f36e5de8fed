// Package dialog asks the desktop host for file and folder selections.
package dialog

import (
	"context"
	"strings"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var videoDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Fichiers vidéo",
		Pattern:     "*.mp4;*.mkv;*.avi;*.mov;*.webm",
	},
	{
		DisplayName: "Tous les fichiers",
		Pattern:     "*",
	},
}

// Opener presents native dialogs. An empty path means the user cancelled.
type Opener interface {
	OpenDirectoryDialog(ctx context.Context, options wailsruntime.OpenDialogOptions) (string, error)
	OpenFileDialog(ctx context.Context, options wailsruntime.OpenDialogOptions) (string, error)
}

// WailsOpener forwards to the Wails runtime dialogs.
type WailsOpener struct{}

// OpenDirectoryDialog opens a native directory picker.
func (WailsOpener) OpenDirectoryDialog(ctx context.Context, options wailsruntime.OpenDialogOptions) (string, error) {
	return wailsruntime.OpenDirectoryDialog(ctx, options)
}

// OpenFileDialog opens a native file picker.
func (WailsOpener) OpenFileDialog(ctx context.Context, options wailsruntime.OpenDialogOptions) (string, error) {
	return wailsruntime.OpenFileDialog(ctx, options)
}

// Bridge turns dialog results into path lists.
type Bridge struct {
	opener  Opener
	context func() (context.Context, error)
}

// NewBridge creates a bridge that resolves the runtime context lazily,
// since Wails only provides it after startup.
func NewBridge(opener Opener, runtimeContext func() (context.Context, error)) *Bridge {
	return &Bridge{opener: opener, context: runtimeContext}
}

// SelectFolder asks for an output directory. A cancelled dialog yields an empty slice.
func (b *Bridge) SelectFolder() ([]string, error) {
	return b.SelectFolderFrom("")
}

// SelectFolderFrom is SelectFolder with the picker opened at startDir.
func (b *Bridge) SelectFolderFrom(startDir string) ([]string, error) {
	ctx, err := b.context()
	if err != nil {
		return nil, err
	}

	path, err := b.opener.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:                "Sélectionner le dossier de sortie",
		DefaultDirectory:     strings.TrimSpace(startDir),
		CanCreateDirectories: true,
	})
	if err != nil {
		return nil, err
	}
	return paths(path), nil
}

// SelectVideo asks for the main video file.
func (b *Bridge) SelectVideo() ([]string, error) {
	return b.selectFile("Sélectionner la vidéo")
}

// SelectOverlay asks for the overlay video file.
func (b *Bridge) SelectOverlay() ([]string, error) {
	return b.selectFile("Sélectionner la vidéo d'overlay")
}

func (b *Bridge) selectFile(title string) ([]string, error) {
	ctx, err := b.context()
	if err != nil {
		return nil, err
	}

	path, err := b.opener.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   title,
		Filters: videoDialogFilter,
	})
	if err != nil {
		return nil, err
	}
	return paths(path), nil
}

func paths(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return []string{}
	}
	return []string{path}
}
