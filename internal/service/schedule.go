package service

import (
	"strings"
	"time"

	"github.com/estatedesk/backend/internal/models"
)

const (
	UnitDays   = "days"
	UnitWeeks  = "weeks"
	UnitMonths = "months"
)

type Frequency struct {
	Interval int
	Unit     string
}

// ResolveFrequency parses a free-text schedule label ("quarterly
// maintenance", "annual check") into a structured interval. Unrecognized
// labels fall back to monthly rather than failing, so materialization
// never blocks on bad metadata.
func ResolveFrequency(label string) Frequency {
	v := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(v, "quarter"):
		return Frequency{Interval: 3, Unit: UnitMonths}
	case strings.Contains(v, "annual"), strings.Contains(v, "year"):
		return Frequency{Interval: 12, Unit: UnitMonths}
	case strings.Contains(v, "week"):
		return Frequency{Interval: 1, Unit: UnitWeeks}
	case strings.Contains(v, "dai"), strings.Contains(v, "day"):
		return Frequency{Interval: 1, Unit: UnitDays}
	default:
		return Frequency{Interval: 1, Unit: UnitMonths}
	}
}

// ComputeNextDue picks the next due date for an asset's schedule.
// Precedence: an explicit next date is authoritative; otherwise the last
// maintenance date advanced by one interval; otherwise now advanced by
// one interval. The order distinguishes a freshly scheduled asset from
// one catching up on history.
func ComputeNextDue(sched *models.MaintenanceSchedule, freq Frequency, now time.Time) time.Time {
	if sched != nil && sched.NextMaintenanceDate != nil {
		return *sched.NextMaintenanceDate
	}
	if sched != nil && sched.LastMaintenanceDate != nil {
		return AddInterval(*sched.LastMaintenanceDate, freq)
	}
	return AddInterval(now, freq)
}

func AddInterval(t time.Time, freq Frequency) time.Time {
	switch freq.Unit {
	case UnitDays:
		return t.AddDate(0, 0, freq.Interval)
	case UnitWeeks:
		return t.AddDate(0, 0, 7*freq.Interval)
	default:
		return t.AddDate(0, freq.Interval, 0)
	}
}

// ClassifyTask reports the selection state of a task at a point in time.
// A task is due once its next due date has arrived; it is overdue once a
// full calendar day has elapsed past the due date. Classification feeds
// priority derivation, it does not filter selection.
func ClassifyTask(task models.MaintenanceTask, now time.Time) string {
	if task.Status == models.TaskStatusCompleted || task.Status == models.TaskStatusCancelled {
		return task.Status
	}
	if task.NextDueDate.After(now) {
		return models.TaskStatusScheduled
	}
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if task.NextDueDate.Before(startOfDay) {
		return models.TaskStatusOverdue
	}
	return models.TaskStatusDue
}
