package history

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Render writes records as a table
func Render(w io.Writer, records []Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"Started", "Source", "Title", "Media", "Status", "Took", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: 24},
		{Name: "Media", WidthMax: 30},
		{Name: "Error", WidthMax: 40},
	})

	for _, r := range records {
		took := "-"
		if d := r.Duration(); d > 0 {
			took = d.Round(time.Second).String()
		}
		t.AppendRow(table.Row{
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Source,
			r.Title,
			mediaSummary(r.Media),
			statusText(r),
			took,
			r.Error,
		})
	}

	if len(records) == 0 {
		t.AppendFooter(table.Row{"", "", "no publish attempts yet"})
	} else {
		t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d record(s)", len(records))})
	}
	t.Render()
}

func statusText(r Record) string {
	switch r.Status {
	case StatusPublished:
		return text.FgGreen.Sprint(r.Status)
	case StatusFailed:
		if r.Step > 0 {
			return text.FgRed.Sprintf("%s (step %d)", r.Status, r.Step)
		}
		return text.FgRed.Sprint(r.Status)
	default:
		return text.FgYellow.Sprint(r.Status)
	}
}

func mediaSummary(media []string) string {
	if len(media) == 0 {
		return "-"
	}
	names := make([]string, 0, len(media))
	for _, m := range media {
		names = append(names, filepath.Base(m))
	}
	return strings.Join(names, ", ")
}
