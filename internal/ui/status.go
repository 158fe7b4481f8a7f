package ui

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ldi/stint/internal/timer"
	"github.com/ldi/stint/pkg/models"
)

// RenderStatus writes a plain text table of the tracked tasks, running task
// first. With decimal set the elapsed time is shown in hours only.
func RenderStatus(w io.Writer, state *models.TimerState, now time.Time, decimal bool) error {
	tasks := state.Ordered()
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks tracked yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	var total time.Duration
	for _, t := range tasks {
		elapsed := timer.Elapsed(t, now)
		total += elapsed

		shown := FormatClock(elapsed)
		if decimal {
			shown = FormatDecimal(elapsed)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Status, shown, t.Title, FormatStarted(t, now))
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	summary := fmt.Sprintf("%s tracked across %s", FormatDecimal(total)+"h", humanize.Comma(int64(len(tasks))))
	if len(tasks) == 1 {
		summary += " task"
	} else {
		summary += " tasks"
	}
	if badge := timer.BadgeText(state); badge != "" {
		summary += " [" + badge + "]"
	}

	_, err := fmt.Fprintln(w, summary)
	return err
}
