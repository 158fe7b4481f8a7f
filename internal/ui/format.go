package ui

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ldi/stint/pkg/models"
)

// FormatClock renders d as HH:MM:SS. Hours are not wrapped at 24.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// FormatDecimal renders d as hours with two decimal places.
func FormatDecimal(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.2f", d.Hours())
}

// FormatStarted describes when the open interval of a running task began.
func FormatStarted(t *models.Task, now time.Time) string {
	started := t.StartedAt()
	if started == nil {
		return ""
	}
	return "started " + humanize.RelTime(*started, now, "ago", "from now")
}
