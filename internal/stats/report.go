package stats

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/chrizzleybear/piano-midi-practice/internal/model"
)

const reportWidthBackup = 80

// RenderSummary prints the end-of-session report: cumulative counters
// followed by the per-position mistake table.
func RenderSummary(w io.Writer, snap model.SessionSnapshot) error {
	return RenderSummaryWidth(w, snap, terminalWidth())
}

// RenderSummaryWidth renders the report capped to the given width.
func RenderSummaryWidth(w io.Writer, snap model.SessionSnapshot, width int) error {
	if width <= 0 {
		width = reportWidthBackup
	}
	rule := strings.Repeat("=", min(width, reportWidthBackup))
	if _, err := fmt.Fprintln(w, rule); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "Session Statistics"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, rule); err != nil {
		return err
	}
	if snap.Attempted == 0 {
		_, err := fmt.Fprintln(w, "No rounds completed.")
		return err
	}
	if _, err := fmt.Fprintf(w, "Rounds attempted: %d\n", snap.Attempted); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Rounds correct: %d\n", snap.Correct); err != nil {
		return err
	}
	if snap.Escaped > 0 {
		if _, err := fmt.Fprintf(w, "Rounds escaped: %d\n", snap.Escaped); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Accuracy: %.1f%%\n", snap.Accuracy()*100); err != nil {
		return err
	}
	if len(snap.Errors) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "Mistakes"); err != nil {
		return err
	}
	headers := []string{"Note", "Expected", "Played", "Count"}
	rows := make([][]string, 0, len(snap.Errors))
	for _, e := range snap.Errors {
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.Position),
			e.Expected,
			e.Played,
			fmt.Sprintf("%d", e.Count),
		})
	}
	rightAlign := map[int]bool{0: true, 3: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return reportWidthBackup
	}
	return width
}
