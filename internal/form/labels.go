package form

import "fmt"

const (
	noFileLabel   = "Aucun fichier sélectionné."
	noFolderLabel = "Aucun dossier sélectionné."
)

// FormatDuration renders a segment duration as minutes and seconds.
func FormatDuration(seconds int) string {
	minutes := seconds / 60
	rest := seconds % 60
	if minutes > 0 {
		return fmt.Sprintf("%d minutes et %d secondes", minutes, rest)
	}
	return fmt.Sprintf("%d secondes", rest)
}

// FormatWorkers renders the simultaneous video count.
func FormatWorkers(n int) string {
	return fmt.Sprintf("%d vidéo(s) créées en simultané", n)
}
