package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mikey-austin/homewatch/internal/core"
	"github.com/mikey-austin/homewatch/internal/ports"
)

// HumanPrinter prints human-readable output to Out, or stdout when nil.
type HumanPrinter struct {
	Out io.Writer
}

// Print renders human output.
func (p HumanPrinter) Print(v any) error {
	w := writer(p.Out)
	switch data := v.(type) {
	case core.ScanResult:
		return printScan(w, data)
	case core.HierarchyResult:
		return printHierarchy(w, data)
	case core.StatusResult:
		return printStatus(w, data)
	case core.CtlResult:
		return printCtl(w, data)
	default:
		_, err := fmt.Fprintln(w, "ok")
		return err
	}
}

func printScan(w io.Writer, result core.ScanResult) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	rows := [][2]string{
		{"root", result.Root},
		{"folders", fmt.Sprint(result.Folders)},
		{"medias", fmt.Sprint(result.Medias)},
		{"playlists", fmt.Sprint(result.Playlists)},
		{"elapsed", result.Elapsed},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, warning := range result.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warning); err != nil {
			return err
		}
	}
	return nil
}

func printHierarchy(w io.Writer, result core.HierarchyResult) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "FOLDER\tMEDIAS"); err != nil {
		return err
	}
	for _, f := range result.Folders {
		if _, err := fmt.Fprintf(tw, "%s\t%d\n", f.Path, f.Medias); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(tw, "TOTAL\t%d\n", result.Total()); err != nil {
		return err
	}
	return tw.Flush()
}

func printStatus(w io.Writer, result core.StatusResult) error {
	st := result.Status
	player := st.Player
	state := "none"
	if player.State != nil {
		state = ports.EngineState(*player.State).String()
	}
	media := "-"
	if player.Media != nil {
		media = strings.TrimPrefix(player.Media.Folder+"/"+player.Media.Basename, "./")
	}
	position := ""
	if player.Time != nil {
		position = formatMS(*player.Time)
	}
	line := strings.TrimSpace(fmt.Sprintf("[%s]  %s  %s  vol %d%%", state, media, position, player.CurrentVolume))
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	q := st.Queue
	current := "-"
	if q.Current != nil {
		current = fmt.Sprint(*q.Current)
	}
	_, err := fmt.Fprintf(w, "Queue: %d elements (current %s) shuffle=%t loop=%t autoplay=%t\n",
		len(q.Elements), current, q.Shuffle, q.Loop, st.Autoplay)
	if err != nil {
		return err
	}
	if result.Path != "" {
		_, err = fmt.Fprintf(w, "from %s\n", result.Path)
	}
	return err
}

func printCtl(w io.Writer, result core.CtlResult) error {
	if _, err := fmt.Fprintf(w, "> %s\n", result.Sent); err != nil {
		return err
	}
	for _, msg := range result.Received {
		if _, err := fmt.Fprintf(w, "< %s\n", msg); err != nil {
			return err
		}
	}
	return nil
}

func formatMS(ms int64) string {
	if ms <= 0 {
		return "0:00"
	}
	secs := ms / 1000
	if secs >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
